package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeIngestProgress is emitted on every document state
	// transition during ingestion.
	EventTypeIngestProgress = "ragify.ingest.progress"
)

// Stage names a step of the per-document ingestion state machine.
type Stage string

const (
	StagePending   Stage = "pending"
	StageLoading   Stage = "loading"
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageUpserting Stage = "upserting"
	StageSucceeded Stage = "succeeded"
	StageFailed    Stage = "failed"
)

// IngestEvent is a transport-neutral progress event for one document.
// Consuming the stream is optional; ingestion never depends on delivery.
type IngestEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Collection    string    `json:"collection"`
	DocumentID    string    `json:"document_id"`
	Filename      string    `json:"filename,omitempty"`
	Stage         Stage     `json:"stage"`
	Error         string    `json:"error,omitempty"`
	Chunks        int       `json:"chunks,omitempty"`
}
