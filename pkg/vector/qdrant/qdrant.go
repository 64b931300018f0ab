// Package qdrant provides a Qdrant vector store implementation using its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/vector"
)

// Store implements vector.Store against a Qdrant server. Collections map
// one-to-one onto Qdrant collections configured with cosine distance.
//
// Qdrant point IDs must be UUIDs or integers, so chunk IDs are mapped to
// deterministic SHA1 UUIDs. The embedder identity is recorded on a single
// meta point per collection, excluded from searches by payload filter.
type Store struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant server URL (e.g., "http://localhost:6333").
	URL string
}

// NewStore creates a new Qdrant vector store.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}

	s := &Store{
		baseURL: c.URL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	logger.Info("connected to Qdrant", zap.String("url", c.URL))

	return s, nil
}

var _ vector.Store = (*Store)(nil)

// pointID maps a chunk ID to a deterministic Qdrant point UUID.
func pointID(collection, chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(collection+"/"+chunkID)).String()
}

// metaPointID is the point carrying the collection's embedder identity.
func metaPointID(collection string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(collection+"/__meta")).String()
}

// excludeMeta filters the meta point out of search results.
func excludeMeta() *qdrantFilter {
	return &qdrantFilter{
		MustNot: []qdrantCondition{
			{Key: "meta", Match: qdrantMatch{Value: true}},
		},
	}
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
		return resp.StatusCode, nil
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("qdrant %s %s: status %d: %s",
			method, path, resp.StatusCode, string(respBody))
	}

	return resp.StatusCode, nil
}

// Ensure creates the collection if absent and verifies its recorded
// dimension and embedder otherwise.
func (s *Store) Ensure(ctx context.Context, name string, meta vector.Meta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", vector.ErrDimensionMismatch)
	}

	existing, err := s.collectionMeta(ctx, name)
	switch {
	case err == nil:
		if existing.Dimension != meta.Dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, got %d",
				vector.ErrDimensionMismatch, name, existing.Dimension, meta.Dimension)
		}
		if existing.Embedder != meta.Embedder {
			return fmt.Errorf("%w: collection %s was embedded with %s, got %s",
				vector.ErrEmbedderMismatch, name, existing.Embedder, meta.Embedder)
		}
		return nil
	case !errors.Is(err, vector.ErrCollectionNotFound):
		return err
	}

	createReq := qdrantCreateCollectionRequest{
		Vectors: qdrantVectorParams{
			Size:     meta.Dimension,
			Distance: "Cosine",
		},
	}
	if _, err := s.do(ctx, "PUT", "/collections/"+name, createReq, nil); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	// Record the embedder identity on the meta point.
	metaPoint := qdrantPoint{
		ID:     metaPointID(name),
		Vector: make([]float32, meta.Dimension),
		Payload: map[string]any{
			"meta":     true,
			"embedder": meta.Embedder,
		},
	}
	upsertReq := qdrantUpsertRequest{Points: []qdrantPoint{metaPoint}}
	if _, err := s.do(ctx, "PUT", "/collections/"+name+"/points?wait=true", upsertReq, nil); err != nil {
		return fmt.Errorf("recording collection meta for %s: %w", name, err)
	}

	s.logger.Info("created collection",
		zap.String("collection", name),
		zap.Int("dimension", meta.Dimension),
		zap.String("embedder", meta.Embedder),
	)

	return nil
}

// Meta returns the recorded dimension and embedder for a collection.
func (s *Store) Meta(ctx context.Context, name string) (vector.Meta, error) {
	return s.collectionMeta(ctx, name)
}

func (s *Store) collectionMeta(ctx context.Context, name string) (vector.Meta, error) {
	var info qdrantCollectionInfo
	status, err := s.do(ctx, "GET", "/collections/"+name, nil, &info)
	if status == http.StatusNotFound {
		return vector.Meta{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if err != nil {
		return vector.Meta{}, fmt.Errorf("fetching collection %s: %w", name, err)
	}

	meta := vector.Meta{Dimension: info.Result.Config.Params.Vectors.Size}

	retrieveReq := qdrantRetrieveRequest{
		IDs:         []string{metaPointID(name)},
		WithPayload: true,
	}
	var retrieveResp qdrantRetrieveResponse
	if _, err := s.do(ctx, "POST", "/collections/"+name+"/points", retrieveReq, &retrieveResp); err != nil {
		return vector.Meta{}, fmt.Errorf("fetching collection meta for %s: %w", name, err)
	}
	if len(retrieveResp.Result) > 0 {
		meta.Embedder = retrieveResp.Result[0].Payload.Embedder
	}

	return meta, nil
}

// List returns every collection with its meta, sorted by name.
func (s *Store) List(ctx context.Context) ([]vector.Collection, error) {
	var listResp qdrantListCollectionsResponse
	if _, err := s.do(ctx, "GET", "/collections", nil, &listResp); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	names := make([]string, 0, len(listResp.Result.Collections))
	for _, c := range listResp.Result.Collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)

	out := make([]vector.Collection, 0, len(names))
	for _, name := range names {
		meta, err := s.collectionMeta(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, vector.Collection{Name: name, Meta: meta})
	}
	return out, nil
}

// Upsert stores chunk records with their embeddings. Records whose chunk ID
// already exists in the collection are replaced, since the point ID is
// derived from the chunk ID.
func (s *Store) Upsert(ctx context.Context, name string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	meta, err := s.collectionMeta(ctx, name)
	if err != nil {
		return err
	}

	points := make([]qdrantPoint, len(records))
	for i, rec := range records {
		if len(rec.Vector) != meta.Dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection %s wants %d",
				vector.ErrDimensionMismatch, rec.ChunkID, len(rec.Vector), name, meta.Dimension)
		}
		points[i] = qdrantPoint{
			ID:     pointID(name, rec.ChunkID),
			Vector: rec.Vector,
			Payload: map[string]any{
				"chunk_id":    rec.ChunkID,
				"document_id": rec.DocumentID,
				"seq":         rec.Seq,
				"text":        rec.Text,
				"start":       rec.Start,
				"end":         rec.End,
				"token_count": rec.TokenCount,
			},
		}
	}

	upsertReq := qdrantUpsertRequest{Points: points}
	if _, err := s.do(ctx, "PUT", "/collections/"+name+"/points?wait=true", upsertReq, nil); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	s.logger.Debug("upserted chunks",
		zap.String("collection", name),
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar chunks to the given embedding.
func (s *Store) Query(ctx context.Context, name string, embedding []float32, topK int) ([]vector.Result, error) {
	meta, err := s.collectionMeta(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(embedding) != meta.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s wants %d",
			vector.ErrDimensionMismatch, len(embedding), name, meta.Dimension)
	}
	if topK <= 0 {
		return []vector.Result{}, nil
	}

	searchReq := qdrantSearchRequest{
		Vector:      embedding,
		Limit:       topK,
		WithPayload: true,
		Filter:      excludeMeta(),
	}
	var searchResp qdrantSearchResponse
	if _, err := s.do(ctx, "POST", "/collections/"+name+"/points/search", searchReq, &searchResp); err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	results := make([]vector.Result, 0, len(searchResp.Result))
	for _, point := range searchResp.Result {
		results = append(results, vector.Result{
			Record: vector.Record{
				ChunkID:    point.Payload.ChunkID,
				DocumentID: point.Payload.DocumentID,
				Seq:        point.Payload.Seq,
				Text:       point.Payload.Text,
				Start:      point.Payload.Start,
				End:        point.Payload.End,
				TokenCount: point.Payload.TokenCount,
			},
			Score: point.Score,
		})
	}

	vector.SortResults(results)

	s.logger.Debug("queried qdrant",
		zap.String("collection", name),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteDocument removes every chunk of a document from the collection.
// Qdrant applies the filter delete atomically server side.
func (s *Store) DeleteDocument(ctx context.Context, name string, documentID string) error {
	if _, err := s.collectionMeta(ctx, name); err != nil {
		return err
	}

	deleteReq := qdrantDeleteRequest{
		Filter: qdrantFilter{
			Must: []qdrantCondition{
				{Key: "document_id", Match: qdrantMatch{Value: documentID}},
			},
		},
	}
	if _, err := s.do(ctx, "POST", "/collections/"+name+"/points/delete?wait=true", deleteReq, nil); err != nil {
		return fmt.Errorf("deleting document points: %w", err)
	}

	s.logger.Debug("deleted document",
		zap.String("collection", name),
		zap.String("document_id", documentID),
	)

	return nil
}

// Drop removes the collection entirely.
func (s *Store) Drop(ctx context.Context, name string) error {
	if _, err := s.collectionMeta(ctx, name); err != nil {
		return err
	}

	if _, err := s.do(ctx, "DELETE", "/collections/"+name, nil, nil); err != nil {
		return fmt.Errorf("dropping collection %s: %w", name, err)
	}

	s.logger.Info("dropped collection", zap.String("collection", name))

	return nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
