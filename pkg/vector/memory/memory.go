// Package memory provides an in-memory vector.Store implementation.
//
// Search is an exact cosine-similarity scan. This is the local-dev and
// test story; persistent backends live in the sibling driver packages.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/ragify/pkg/vector"
)

type collection struct {
	meta    vector.Meta
	records map[string]vector.Record // keyed by ChunkID
}

// Store implements vector.Store using in-process data structures.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
	}
}

// Ensure creates the collection if missing and verifies meta otherwise.
func (s *Store) Ensure(_ context.Context, name string, meta vector.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		s.collections[name] = &collection{
			meta:    meta,
			records: make(map[string]vector.Record),
		}
		return nil
	}

	if coll.meta.Dimension != meta.Dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, got %d",
			vector.ErrDimensionMismatch, name, coll.meta.Dimension, meta.Dimension)
	}
	if coll.meta.Embedder != meta.Embedder {
		return fmt.Errorf("%w: collection %q was indexed by %q, got %q",
			vector.ErrEmbedderMismatch, name, coll.meta.Embedder, meta.Embedder)
	}
	return nil
}

// Meta returns the recorded embedding configuration of a collection.
func (s *Store) Meta(_ context.Context, name string) (vector.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return vector.Meta{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	return coll.meta, nil
}

// List returns every collection with its meta, sorted by name.
func (s *Store) List(_ context.Context) ([]vector.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vector.Collection, 0, len(s.collections))
	for name, coll := range s.collections {
		out = append(out, vector.Collection{Name: name, Meta: coll.meta})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert stores records, replacing prior records with the same ChunkID.
func (s *Store) Upsert(_ context.Context, name string, records []vector.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	for _, rec := range records {
		if len(rec.Vector) != coll.meta.Dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, record %q has %d",
				vector.ErrDimensionMismatch, name, coll.meta.Dimension, rec.ChunkID, len(rec.Vector))
		}
	}

	for _, rec := range records {
		coll.records[rec.ChunkID] = rec
	}
	return nil
}

// Query scans the collection and returns the topK nearest records by
// cosine similarity.
func (s *Store) Query(_ context.Context, name string, embedding []float32, topK int) ([]vector.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	if topK <= 0 || len(coll.records) == 0 {
		return []vector.Result{}, nil
	}

	results := make([]vector.Result, 0, len(coll.records))
	for _, rec := range coll.records {
		results = append(results, vector.Result{
			Record: rec,
			Score:  Cosine(embedding, rec.Vector),
		})
	}

	vector.SortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteDocument removes every chunk of the document. The whole removal
// happens under one lock acquisition, so it is atomic to callers.
func (s *Store) DeleteDocument(_ context.Context, name string, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	for id, rec := range coll.records {
		if rec.DocumentID == documentID {
			delete(coll.records, id)
		}
	}
	return nil
}

// Drop removes the whole collection.
func (s *Store) Drop(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Cosine returns the cosine similarity of two vectors. Mismatched or
// zero-magnitude inputs score 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Ensure Store implements vector.Store
var _ vector.Store = (*Store)(nil)
