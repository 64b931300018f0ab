package embeddings

import "errors"

var (
	// ErrUnavailable is returned when every provider in the chain fails.
	ErrUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch is returned when a provider's vectors disagree
	// with the expected embedding dimension. Never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownProvider is returned when a named provider is not part of
	// the chain.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)
