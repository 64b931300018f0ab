package vector

import "errors"

var (
	// ErrCollectionNotFound is returned for operations against a
	// collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch is returned when a vector's dimension
	// disagrees with the collection's established dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbedderMismatch is returned when an operation uses an embedding
	// configuration other than the one that indexed the collection.
	ErrEmbedderMismatch = errors.New("embedder mismatch")

	// ErrConnection is returned when the vector store backend is
	// unreachable.
	ErrConnection = errors.New("vector store connection failed")
)
