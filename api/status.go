package api

import (
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/ragify/pkg/eventstream"
)

// DocumentStatus is the latest known ingestion state of one document.
type DocumentStatus struct {
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename,omitempty"`
	Collection string            `json:"collection"`
	Stage      eventstream.Stage `json:"stage"`
	Error      string            `json:"error,omitempty"`
	Chunks     int               `json:"chunks,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// StatusTracker folds ingest progress events into a per-document status
// map served by the documents endpoints.
type StatusTracker struct {
	mu        sync.RWMutex
	documents map[string]DocumentStatus
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		documents: make(map[string]DocumentStatus),
	}
}

// Apply folds one event into the tracked state. Fields an event does not
// carry (filename after the first event, chunk count before success) keep
// their last known value.
func (t *StatusTracker) Apply(event *eventstream.IngestEvent) {
	if event == nil || event.DocumentID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.documents[event.DocumentID]
	status.DocumentID = event.DocumentID
	status.Collection = event.Collection
	status.Stage = event.Stage
	status.Error = event.Error
	status.UpdatedAt = event.EmittedAt
	if event.Filename != "" {
		status.Filename = event.Filename
	}
	if event.Chunks != 0 {
		status.Chunks = event.Chunks
	}
	t.documents[event.DocumentID] = status
}

// List returns every tracked document, most recently updated first.
// Ties are broken by document id so the order is stable.
func (t *StatusTracker) List() []DocumentStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]DocumentStatus, 0, len(t.documents))
	for _, status := range t.documents {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

// Get returns the status of one document.
func (t *StatusTracker) Get(documentID string) (DocumentStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status, ok := t.documents[documentID]
	return status, ok
}
