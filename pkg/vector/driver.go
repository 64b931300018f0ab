// Package vector provides interfaces and implementations for
// collection-scoped vector storage and similarity search.
package vector

import (
	"context"
	"sort"
)

// Record is a stored chunk with its embedding and metadata.
type Record struct {
	// ChunkID is a unique identifier for the chunk
	// (conventionally "<document id>:<seq>").
	ChunkID string

	// DocumentID is the parent document id.
	DocumentID string

	// Seq is the chunk's 0-based sequence index within its document.
	Seq int

	// Text is the raw chunk text.
	Text string

	// Start and End are byte offsets into the document's normalized text.
	Start int
	End   int

	// TokenCount is the number of tokens in Text.
	TokenCount int

	// Vector is the embedding of Text.
	Vector []float32
}

// Result is a search hit: a record plus similarity score and rank.
type Result struct {
	Record

	// Score is the similarity score (higher = more relevant).
	Score float32

	// Rank is the 0-based position in the result ordering.
	Rank int
}

// Meta describes the embedding configuration that indexed a collection.
// It is recorded at collection creation and invariant thereafter.
type Meta struct {
	// Dimension is the embedding dimension of every vector in the collection.
	Dimension int

	// Embedder is the identity of the embedding provider that indexed the
	// collection.
	Embedder string
}

// Collection pairs a collection name with its recorded meta.
type Collection struct {
	Name string
	Meta Meta
}

// Store handles storage and retrieval of chunk embeddings, scoped to named
// collections.
//
// Implementations must serialize Upsert/DeleteDocument affecting the same
// collection so that cascade deletes stay atomic from the caller's view;
// Query is read-only and needs no such discipline.
type Store interface {
	// Ensure creates the collection if it does not exist, recording meta.
	// If the collection exists, Ensure verifies meta against the recorded
	// configuration: ErrDimensionMismatch on a dimension disagreement,
	// ErrEmbedderMismatch on a provider identity disagreement.
	Ensure(ctx context.Context, collection string, meta Meta) error

	// Meta returns the recorded embedding configuration of a collection.
	// Returns ErrCollectionNotFound for unknown collections.
	Meta(ctx context.Context, collection string) (Meta, error)

	// List returns every collection with its meta, sorted by name.
	List(ctx context.Context) ([]Collection, error)

	// Upsert stores records, replacing any prior record with the same
	// ChunkID. Returns ErrCollectionNotFound for unknown collections and
	// ErrDimensionMismatch when a vector disagrees with the collection's
	// dimension.
	Upsert(ctx context.Context, collection string, records []Record) error

	// Query returns the topK most similar records to the given embedding,
	// sorted by descending score with ties broken by ascending Seq.
	// Returns ErrCollectionNotFound for unknown collections. An empty
	// collection yields an empty slice, not an error.
	Query(ctx context.Context, collection string, embedding []float32, topK int) ([]Result, error)

	// DeleteDocument removes every chunk of the given document from the
	// collection as one atomic operation. Idempotent: deleting an unknown
	// document id is not an error. Returns ErrCollectionNotFound for
	// unknown collections.
	DeleteDocument(ctx context.Context, collection string, documentID string) error

	// Drop removes the whole collection. Returns ErrCollectionNotFound
	// for unknown collections.
	Drop(ctx context.Context, collection string) error

	// Close releases any resources held by the store.
	Close() error
}

// SortResults orders hits by descending score, breaking ties by ascending
// sequence index and then document id for full determinism, and assigns
// ranks. Store implementations share this so ordering semantics never
// drift between backends.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Seq != results[j].Seq {
			return results[i].Seq < results[j].Seq
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	for i := range results {
		results[i].Rank = i
	}
}
