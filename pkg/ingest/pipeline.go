// Package ingest runs the document ingestion pipeline: load, chunk, embed,
// upsert, with bounded parallelism across documents and a progress event
// per state transition.
//
// Each document moves through pending, loading, chunking, embedding,
// upserting, and finally succeeded or failed. A stage failure attributes
// the error to that document, rolls back any chunks already upserted for
// it in this run, and never disturbs sibling documents in the batch.
package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/chunker"
	"github.com/papercomputeco/ragify/pkg/document"
	"github.com/papercomputeco/ragify/pkg/embeddings"
	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/eventstream/nop"
	"github.com/papercomputeco/ragify/pkg/vector"
)

var (
	defaultNumWorkers  uint = 3
	defaultUpsertBatch      = 128
)

// Config is the configuration options for the ingestion pipeline.
type Config struct {
	// Loader converts source files into documents.
	Loader *document.Loader

	// Chunker splits normalized text into token-bounded chunks.
	Chunker *chunker.Chunker

	// Chain embeds chunk text.
	Chain *embeddings.Chain

	// Store is the target vector store.
	Store vector.Store

	// Publisher receives progress events. Optional; nil disables events.
	Publisher eventstream.Publisher

	// NumWorkers bounds how many documents are processed concurrently.
	NumWorkers uint

	// UpsertBatch is the number of records per store upsert call.
	UpsertBatch int

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Report is the final outcome for one document in a batch.
type Report struct {
	Path       string
	DocumentID uuid.UUID
	Filename   string
	Status     document.Status
	Chunks     int
	Err        error
}

// Pipeline ingests batches of files into a collection.
type Pipeline struct {
	config *Config
	logger *zap.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(c *Config) (*Pipeline, error) {
	if c.Loader == nil || c.Chunker == nil || c.Chain == nil || c.Store == nil {
		return nil, fmt.Errorf("loader, chunker, chain and store are required")
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.UpsertBatch <= 0 {
		c.UpsertBatch = defaultUpsertBatch
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &Pipeline{
		config: c,
		logger: c.Logger,
	}, nil
}

// Run ingests the files at paths into the collection, creating it when
// absent. Documents are processed independently with bounded parallelism;
// one document's failure never aborts its siblings. Reports come back in
// input order.
func (p *Pipeline) Run(ctx context.Context, collection string, paths []string) ([]Report, error) {
	meta, err := p.ensureCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, len(paths))

	type job struct {
		idx  int
		path string
	}
	queue := make(chan job)

	var wg sync.WaitGroup
	wg.Add(int(p.config.NumWorkers))
	for i := uint(0); i < p.config.NumWorkers; i++ {
		go func(id uint) {
			defer wg.Done()
			p.logger.Debug("ingest worker started", zap.Uint("worker_id", id))
			for j := range queue {
				reports[j.idx] = p.processDocument(ctx, collection, meta, j.path)
			}
			p.logger.Debug("ingest worker stopped", zap.Uint("worker_id", id))
		}(i)
	}

	for i, path := range paths {
		queue <- job{idx: i, path: path}
	}
	close(queue)
	wg.Wait()

	return reports, nil
}

// ensureCollection resolves the collection's meta, creating the collection
// pinned to the chain's primary provider when it does not exist yet.
func (p *Pipeline) ensureCollection(ctx context.Context, collection string) (vector.Meta, error) {
	meta, err := p.config.Store.Meta(ctx, collection)
	if err == nil {
		return meta, nil
	}

	primary, err := p.config.Chain.Provider(p.config.Chain.Primary())
	if err != nil {
		return vector.Meta{}, err
	}

	meta = vector.Meta{
		Dimension: primary.Dimensions(),
		Embedder:  primary.Name(),
	}
	if err := p.config.Store.Ensure(ctx, collection, meta); err != nil {
		return vector.Meta{}, err
	}
	return meta, nil
}

// processDocument runs one document through the full state machine.
func (p *Pipeline) processDocument(ctx context.Context, collection string, meta vector.Meta, path string) Report {
	report := Report{Path: path, Status: document.StatusFailed}

	fail := func(stage eventstream.Stage, err error) Report {
		report.Err = err
		p.publish(collection, report.DocumentID, report.Filename, eventstream.StageFailed, err.Error(), report.Chunks)
		p.logger.Warn("document ingestion failed",
			zap.String("path", path),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		return report
	}

	if err := ctx.Err(); err != nil {
		return fail(eventstream.StagePending, err)
	}
	p.publish(collection, uuid.Nil, path, eventstream.StagePending, "", 0)

	// loading
	p.publish(collection, uuid.Nil, path, eventstream.StageLoading, "", 0)
	doc, err := p.config.Loader.Load(path)
	if err != nil {
		return fail(eventstream.StageLoading, err)
	}
	report.DocumentID = doc.ID
	report.Filename = doc.Filename

	// chunking
	p.publish(collection, doc.ID, doc.Filename, eventstream.StageChunking, "", 0)
	chunks := p.config.Chunker.Chunks(doc.ID, doc.Text)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return fail(eventstream.StageChunking, fmt.Errorf("%w: %s", document.ErrEmptyDocument, doc.Filename))
	}

	// embedding
	p.publish(collection, doc.ID, doc.Filename, eventstream.StageEmbedding, "", len(chunks))
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, identity, err := p.config.Chain.EmbedBatch(ctx, texts, meta.Dimension)
	if err != nil {
		return fail(eventstream.StageEmbedding, err)
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	// upserting
	p.publish(collection, doc.ID, doc.Filename, eventstream.StageUpserting, "", len(chunks))
	if err := p.upsertChunks(ctx, collection, doc.ID, chunks); err != nil {
		p.rollback(collection, doc.ID)
		return fail(eventstream.StageUpserting, err)
	}

	report.Status = document.StatusSucceeded
	p.publish(collection, doc.ID, doc.Filename, eventstream.StageSucceeded, "", len(chunks))
	p.logger.Info("document ingested",
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", doc.Filename),
		zap.String("collection", collection),
		zap.String("embedder", identity),
		zap.Int("chunks", len(chunks)),
	)

	return report
}

// upsertChunks writes records in batches, checking for cancellation between
// batches so an abandoned upload stops promptly.
func (p *Pipeline) upsertChunks(ctx context.Context, collection string, docID uuid.UUID, chunks []document.Chunk) error {
	for lo := 0; lo < len(chunks); lo += p.config.UpsertBatch {
		if err := ctx.Err(); err != nil {
			return err
		}

		hi := lo + p.config.UpsertBatch
		if hi > len(chunks) {
			hi = len(chunks)
		}

		records := make([]vector.Record, 0, hi-lo)
		for _, chunk := range chunks[lo:hi] {
			records = append(records, vector.Record{
				ChunkID:    fmt.Sprintf("%s:%d", docID, chunk.Seq),
				DocumentID: docID.String(),
				Seq:        chunk.Seq,
				Text:       chunk.Text,
				Start:      chunk.Start,
				End:        chunk.End,
				TokenCount: chunk.TokenCount,
				Vector:     chunk.Vector,
			})
		}

		if err := p.config.Store.Upsert(ctx, collection, records); err != nil {
			return err
		}
	}
	return nil
}

// rollback removes any chunks already upserted for the document in this
// run. DeleteDocument is idempotent, so a retried rollback is harmless.
// A fresh context is used because rollback must run even when the run's
// context is already canceled.
func (p *Pipeline) rollback(collection string, docID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.config.Store.DeleteDocument(ctx, collection, docID.String()); err != nil {
		p.logger.Error("rollback failed, collection may hold partial chunks",
			zap.String("collection", collection),
			zap.String("document_id", docID.String()),
			zap.Error(err),
		)
	}
}

// publish emits a progress event. Delivery is best-effort: a publisher
// error is logged and ingestion continues.
func (p *Pipeline) publish(collection string, docID uuid.UUID, filename string, stage eventstream.Stage, errMsg string, chunks int) {
	event := &eventstream.IngestEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeIngestProgress,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Collection:    collection,
		DocumentID:    docID.String(),
		Filename:      filename,
		Stage:         stage,
		Error:         errMsg,
		Chunks:        chunks,
	}
	if docID == uuid.Nil {
		event.DocumentID = ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.config.Publisher.PublishIngest(ctx, event); err != nil {
		p.logger.Warn("progress event not delivered",
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
	}
}
