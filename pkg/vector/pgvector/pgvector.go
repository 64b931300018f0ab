// Package pgvector provides a Postgres-backed vector store using the
// pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/vector"
)

// Store implements vector.Store on Postgres with pgvector. The embedding
// column is dimensionless; per-row dimensions are enforced by the recorded
// collection meta before any insert or query reaches the database.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Config holds configuration for the Postgres store.
type Config struct {
	// ConnString is the Postgres connection string.
	ConnString string
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag_collections (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	dimension INT NOT NULL,
	embedder TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rag_chunks (
	collection_id BIGINT NOT NULL REFERENCES rag_collections(id) ON DELETE CASCADE,
	chunk_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	seq INT NOT NULL,
	content TEXT NOT NULL,
	start_offset INT NOT NULL,
	end_offset INT NOT NULL,
	token_count INT NOT NULL,
	embedding vector,
	PRIMARY KEY (collection_id, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_rag_chunks_document ON rag_chunks(collection_id, document_id);
`

// NewStore connects to Postgres, verifies the connection, and creates the
// schema.
func NewStore(ctx context.Context, c Config, logger *zap.Logger) (*Store, error) {
	if c.ConnString == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}

	pool, err := pgxpool.New(ctx, c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("connected to Postgres with pgvector")

	return &Store{
		pool:   pool,
		logger: logger,
	}, nil
}

var _ vector.Store = (*Store)(nil)

func (s *Store) lookup(ctx context.Context, name string) (id int64, meta vector.Meta, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT id, dimension, embedder FROM rag_collections WHERE name = $1`, name,
	).Scan(&id, &meta.Dimension, &meta.Embedder)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, vector.Meta{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, vector.Meta{}, fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return id, meta, nil
}

func checkMeta(name string, existing, want vector.Meta) error {
	if existing.Dimension != want.Dimension {
		return fmt.Errorf("%w: collection %s has dimension %d, got %d",
			vector.ErrDimensionMismatch, name, existing.Dimension, want.Dimension)
	}
	if existing.Embedder != want.Embedder {
		return fmt.Errorf("%w: collection %s was embedded with %s, got %s",
			vector.ErrEmbedderMismatch, name, existing.Embedder, want.Embedder)
	}
	return nil
}

// Ensure creates the collection if absent and verifies its recorded
// dimension and embedder otherwise.
func (s *Store) Ensure(ctx context.Context, name string, meta vector.Meta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", vector.ErrDimensionMismatch)
	}

	_, existing, err := s.lookup(ctx, name)
	switch {
	case err == nil:
		return checkMeta(name, existing, meta)
	case !errors.Is(err, vector.ErrCollectionNotFound):
		return err
	}

	// ON CONFLICT DO NOTHING keeps concurrent Ensure calls safe.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO rag_collections(name, dimension, embedder) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`,
		name, meta.Dimension, meta.Embedder,
	)
	if err != nil {
		return fmt.Errorf("inserting collection %s: %w", name, err)
	}

	// Re-read what actually landed: a concurrent creator may have won the
	// conflict with different meta, and that has to fail on this call.
	_, landed, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}
	if err := checkMeta(name, landed, meta); err != nil {
		return err
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
	_, meta, err := s.lookup(ctx, name)
	return meta, err
}

// List returns every collection with its meta, sorted by name.
func (s *Store) List(ctx context.Context) ([]vector.Collection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, dimension, embedder FROM rag_collections ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	out := []vector.Collection{}
	for rows.Next() {
		var coll vector.Collection
		if err := rows.Scan(&coll.Name, &coll.Meta.Dimension, &coll.Meta.Embedder); err != nil {
			return nil, fmt.Errorf("scanning collection row: %w", err)
		}
		out = append(out, coll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection rows: %w", err)
	}
	return out, nil
}

// Upsert stores chunk records with their embeddings. Records whose chunk ID
// already exists in the collection are replaced.
func (s *Store) Upsert(ctx context.Context, name string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	id, meta, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if len(rec.Vector) != meta.Dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection %s wants %d",
				vector.ErrDimensionMismatch, rec.ChunkID, len(rec.Vector), name, meta.Dimension)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		_, err := tx.Exec(ctx,
			`INSERT INTO rag_chunks
				(collection_id, chunk_id, document_id, seq, content, start_offset, end_offset, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (collection_id, chunk_id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				seq = EXCLUDED.seq,
				content = EXCLUDED.content,
				start_offset = EXCLUDED.start_offset,
				end_offset = EXCLUDED.end_offset,
				token_count = EXCLUDED.token_count,
				embedding = EXCLUDED.embedding`,
			id, rec.ChunkID, rec.DocumentID, rec.Seq, rec.Text,
			rec.Start, rec.End, rec.TokenCount, pgv.NewVector(rec.Vector),
		)
		if err != nil {
			return fmt.Errorf("upserting chunk %s: %w", rec.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("upserted chunks",
		zap.String("collection", name),
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar chunks to the given embedding using
// cosine distance.
func (s *Store) Query(ctx context.Context, name string, embedding []float32, topK int) ([]vector.Result, error) {
	id, meta, err := s.lookup(ctx, name)
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

	queryVec := pgv.NewVector(embedding)

	rows, err := s.pool.Query(ctx, `
		SELECT
			chunk_id,
			document_id,
			seq,
			content,
			start_offset,
			end_offset,
			token_count,
			1 - (embedding <=> $1) AS score
		FROM rag_chunks
		WHERE collection_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, queryVec, id, topK)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	results := []vector.Result{}
	for rows.Next() {
		var res vector.Result
		var score float64
		if err := rows.Scan(
			&res.ChunkID, &res.DocumentID, &res.Seq, &res.Text,
			&res.Start, &res.End, &res.TokenCount, &score,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		res.Score = float32(score)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	vector.SortResults(results)

	s.logger.Debug("queried pgvector",
		zap.String("collection", name),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteDocument removes every chunk of a document from the collection.
func (s *Store) DeleteDocument(ctx context.Context, name string, documentID string) error {
	id, _, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rag_chunks WHERE collection_id = $1 AND document_id = $2`,
		id, documentID,
	)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	s.logger.Debug("deleted document",
		zap.String("collection", name),
		zap.String("document_id", documentID),
		zap.Int64("chunks", tag.RowsAffected()),
	)

	return nil
}

// Drop removes a collection and, via the foreign key cascade, its chunks.
func (s *Store) Drop(ctx context.Context, name string) error {
	id, _, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM rag_collections WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	s.logger.Info("dropped collection", zap.String("collection", name))

	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
