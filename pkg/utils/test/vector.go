package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/ragify/pkg/vector"
	"github.com/papercomputeco/ragify/pkg/vector/memory"
)

// MockStore is a vector store for tests. It delegates to an in-memory store
// while recording calls and optionally injecting failures.
type MockStore struct {
	*memory.Store

	mu sync.Mutex

	// UpsertErr, if set, is returned from every Upsert call.
	UpsertErr error

	// DeleteErr, if set, is returned from every DeleteDocument call.
	DeleteErr error

	upsertCalls int
	deleted     []string
}

func NewMockStore() *MockStore {
	return &MockStore{Store: memory.NewStore()}
}

func (m *MockStore) Upsert(ctx context.Context, collection string, records []vector.Record) error {
	m.mu.Lock()
	m.upsertCalls++
	err := m.UpsertErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.Store.Upsert(ctx, collection, records)
}

func (m *MockStore) DeleteDocument(ctx context.Context, collection string, documentID string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, documentID)
	err := m.DeleteErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.Store.DeleteDocument(ctx, collection, documentID)
}

// UpsertCalls reports how many times Upsert was invoked.
func (m *MockStore) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCalls
}

// Deleted returns the document IDs passed to DeleteDocument.
func (m *MockStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
