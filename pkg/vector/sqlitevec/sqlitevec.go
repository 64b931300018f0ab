// Package sqlitevec provides a SQLite-backed vector store using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/vector"
)

// Store implements vector.Store using SQLite with the sqlite-vec extension.
// Each collection gets its own vec0 virtual table, since vec0 fixes the
// vector dimension at table creation time.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	// mu serializes collection creation and drop. Row-level work relies on
	// SQLite's own locking.
	mu sync.Mutex
}

// Config holds configuration for the SQLite vec store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewStore opens the database, verifies sqlite-vec is loadable, and creates
// the bookkeeping tables.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// Collection manifest. Each row pins the dimension and embedder identity
	// the collection was created with.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			dimension INTEGER NOT NULL,
			embedder TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	// Chunk rows for every collection. vec0 virtual tables use integer
	// rowids, so this table supplies the rowid that keys each embedding.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id INTEGER NOT NULL,
			chunk_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			text TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			token_count INTEGER NOT NULL,
			UNIQUE(collection_id, chunk_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chunks_document
		ON chunks(collection_id, document_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating document index: %w", err)
	}

	logger.Info("sqlite-vec vector store initialized",
		zap.String("db_path", c.DBPath),
		zap.String("vec_version", vecVersion),
	)

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

var _ vector.Store = (*Store)(nil)

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func vecTable(collectionID int64) string {
	return fmt.Sprintf("vec_embeddings_%d", collectionID)
}

// lookup returns the collection row for name.
func (s *Store) lookup(ctx context.Context, name string) (id int64, meta vector.Meta, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT id, dimension, embedder FROM collections WHERE name = ?`, name,
	).Scan(&id, &meta.Dimension, &meta.Embedder)
	if err == sql.ErrNoRows {
		return 0, vector.Meta{}, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, vector.Meta{}, fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return id, meta, nil
}

// Ensure creates the collection if absent and verifies its recorded
// dimension and embedder otherwise.
func (s *Store) Ensure(ctx context.Context, name string, meta vector.Meta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", vector.ErrDimensionMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, existing, err := s.lookup(ctx, name)
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

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO collections(name, dimension, embedder) VALUES (?, ?, ?)`,
		name, meta.Dimension, meta.Embedder,
	)
	if err != nil {
		return fmt.Errorf("inserting collection %s: %w", name, err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting collection id for %s: %w", name, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])`,
		vecTable(id), meta.Dimension,
	)
	if _, err := s.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table for %s: %w", name, err)
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, dimension, embedder FROM collections ORDER BY name`,
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

	table := vecTable(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		embBlob := serializeFloat32(rec.Vector)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM chunks WHERE collection_id = ? AND chunk_id = ?`,
			id, rec.ChunkID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE chunks
				SET document_id = ?, seq = ?, text = ?, start_offset = ?, end_offset = ?, token_count = ?
				WHERE rowid = ?`,
				rec.DocumentID, rec.Seq, rec.Text, rec.Start, rec.End, rec.TokenCount, existingRowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", rec.ChunkID, err)
			}

			// vec0 does not support UPDATE, replace via DELETE + INSERT
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", rec.ChunkID, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, table),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for chunk %s: %w", rec.ChunkID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO chunks(collection_id, chunk_id, document_id, seq, text, start_offset, end_offset, token_count)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, rec.ChunkID, rec.DocumentID, rec.Seq, rec.Text, rec.Start, rec.End, rec.TokenCount,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", rec.ChunkID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", rec.ChunkID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, table),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", rec.ChunkID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", rec.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("upserted chunks",
		zap.String("collection", name),
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar chunks to the given embedding.
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

	queryBlob := serializeFloat32(embedding)

	// KNN query via vec0 MATCH, then JOIN back for the chunk metadata.
	query := fmt.Sprintf(`
		SELECT
			c.chunk_id,
			c.document_id,
			c.seq,
			c.text,
			c.start_offset,
			c.end_offset,
			c.token_count,
			ve.distance
		FROM %s ve
		INNER JOIN chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, vecTable(id))

	rows, err := s.db.QueryContext(ctx, query, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.Result{}
	for rows.Next() {
		var res vector.Result
		var distance float64
		if err := rows.Scan(
			&res.ChunkID, &res.DocumentID, &res.Seq, &res.Text,
			&res.Start, &res.End, &res.TokenCount, &distance,
		); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// Convert distance to similarity score: lower distance = higher similarity
		res.Score = float32(1.0 / (1.0 + distance))
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	vector.SortResults(results)

	s.logger.Debug("queried sqlite-vec",
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
	table := vecTable(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM chunks WHERE collection_id = ? AND document_id = ?`,
		id, documentID,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection_id = ? AND document_id = ?`,
		id, documentID,
	); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted document",
		zap.String("collection", name),
		zap.String("document_id", documentID),
		zap.Int("chunks", len(rowIDs)),
	)

	return nil
}

// Drop removes a collection, its chunks, and its vec0 table.
func (s *Store) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection_id = ?`, id,
	); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collections WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("deleting collection row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, vecTable(id)),
	); err != nil {
		return fmt.Errorf("dropping vec0 table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Info("dropped collection", zap.String("collection", name))

	return nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.db.Close()
}
