// Package llm defines the completion provider interface the query path
// hands its assembled context to. Prompt templating stays with the caller.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the completion provider could not serve the
// request after retries.
var ErrUnavailable = errors.New("llm provider unavailable")

// Params tunes a single completion call.
type Params struct {
	// Temperature controls sampling randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Provider is a completion backend.
type Provider interface {
	// Name returns the provider identity string (e.g. "ollama/llama3").
	Name() string

	// Complete returns the model's completion for the prompt.
	Complete(ctx context.Context, prompt string, params Params) (string, error)

	// Close releases resources held by the provider.
	Close() error
}
