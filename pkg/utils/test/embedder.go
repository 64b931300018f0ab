package testutils

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a test embedding provider that returns a deterministic
// vector derived from the input text.
type MockProvider struct {
	// Identity is returned by Name.
	Identity string

	// Dim is the advertised and produced vector dimension.
	Dim int

	// FailAll causes every EmbedBatch call to fail.
	FailAll bool

	// FailOn causes EmbedBatch to fail when the batch contains this text.
	FailOn string

	mu    sync.Mutex
	calls int
}

// NewMockProvider creates a deterministic test provider.
func NewMockProvider(identity string, dim int) *MockProvider {
	return &MockProvider{Identity: identity, Dim: dim}
}

func (m *MockProvider) Name() string {
	return m.Identity
}

func (m *MockProvider) Dimensions() int {
	return m.Dim
}

// Calls returns how many EmbedBatch calls the provider has served.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// EmbedBatch returns one vector per text. Element i of a vector is a
// deterministic function of the text bytes and i, so equal texts always
// produce equal vectors and different texts almost never collide.
func (m *MockProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.FailAll {
		return nil, fmt.Errorf("mock provider %s unavailable", m.Identity)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailOn != "" && text == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", text)
		}
		vectors[i] = Vectorize(text, m.Dim)
	}
	return vectors, nil
}

func (m *MockProvider) Close() error {
	return nil
}

// Vectorize derives a deterministic unit-independent vector of the given
// dimension from text.
func Vectorize(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var h uint32 = 2166136261
	for _, b := range []byte(text) {
		h = (h ^ uint32(b)) * 16777619
	}
	for i := range vec {
		h = h*1664525 + 1013904223
		vec[i] = float32(h%1000)/1000.0 - 0.5
	}
	return vec
}
