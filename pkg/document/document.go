// Package document provides the document and chunk model plus loading of
// source files (PDF, DOCX, plain text, markdown) into normalized text.
package document

import (
	"time"

	"github.com/google/uuid"
)

// Format identifies the source file format of a document.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// Status tracks a document through the ingestion pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Document represents a user-provided source file.
type Document struct {
	// ID is the unique identifier for the document.
	ID uuid.UUID

	// Filename is the original file name (base name, no directory).
	Filename string

	// Format is the detected source format.
	Format Format

	// Size is the raw byte size of the source file.
	Size int64

	// IngestedAt is when ingestion of this document started.
	IngestedAt time.Time

	// Status is the current ingestion status.
	Status Status

	// FailReason carries the triggering error message when Status is failed.
	FailReason string

	// Text is the normalized extracted text. Populated by the loader.
	Text string
}

// Chunk is a contiguous span of a document's normalized text.
type Chunk struct {
	// DocumentID is the parent document id.
	DocumentID uuid.UUID

	// Seq is the 0-based sequence index within the document.
	Seq int

	// Text is the raw chunk text.
	Text string

	// Start and End are byte offsets into the normalized source text,
	// such that source[Start:End] == Text.
	Start int
	End   int

	// TokenCount is the number of tokens in Text.
	TokenCount int

	// Vector is the embedding, attached once by the embedder.
	Vector []float32
}
