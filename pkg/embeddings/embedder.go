// Package embeddings provides text embedding capabilities with a
// prioritized fallback chain across providers.
package embeddings

import "context"

// Provider is a single embedding backend.
type Provider interface {
	// Name returns the provider identity string, used for cache keys and
	// embedder-mismatch detection (e.g. "ollama/nomic-embed-text").
	Name() string

	// Dimensions returns the fixed vector dimension this provider produces.
	Dimensions() int

	// EmbedBatch converts texts into vectors, preserving input order and
	// one-to-one correspondence.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the provider.
	Close() error
}
