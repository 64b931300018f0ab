// Package watcher feeds files dropped into an upload directory through the
// ingestion pipeline.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/ingest"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
// Uploads arrive as a burst of writes; ingesting on the first event would
// read a partial file.
const DefaultSettle = 500 * time.Millisecond

// Config holds the watcher configuration.
type Config struct {
	// Dir is the upload directory to watch.
	Dir string

	// Collection is the collection uploaded files are ingested into.
	Collection string

	// Settle overrides DefaultSettle when positive.
	Settle time.Duration
}

// Watcher watches an upload directory and ingests files after they settle.
type Watcher struct {
	config   Config
	pipeline *ingest.Pipeline
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher. The directory must exist.
func New(config Config, pipeline *ingest.Pipeline, logger *zap.Logger) (*Watcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if config.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", config.Dir)
	}
	if config.Settle <= 0 {
		config.Settle = DefaultSettle
	}

	return &Watcher{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches the directory until ctx is canceled. Files already present
// when Run starts are ingested first; after that every created or written
// file is ingested once it has settled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.config.Dir, err)
	}

	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	w.logger.Info("watching upload directory",
		zap.String("dir", w.config.Dir),
		zap.String("collection", w.config.Collection),
	)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// ingestExisting processes files already sitting in the directory.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return fmt.Errorf("reading watch directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(w.config.Dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil
	}

	w.ingest(ctx, paths)
	return nil
}

// schedule resets the settle timer for path. The timer firing means no
// event touched the file for a full settle window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.config.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, []string{path})
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, paths []string) {
	reports, err := w.pipeline.Run(ctx, w.config.Collection, paths)
	if err != nil {
		w.logger.Error("ingesting uploads failed",
			zap.Strings("paths", paths),
			zap.Error(err),
		)
		return
	}

	for _, report := range reports {
		if report.Err != nil {
			w.logger.Warn("upload rejected",
				zap.String("path", report.Path),
				zap.Error(report.Err),
			)
			continue
		}
		w.logger.Info("upload ingested",
			zap.String("path", report.Path),
			zap.Int("chunks", report.Chunks),
		)
	}
}
