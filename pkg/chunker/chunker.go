// Package chunker splits normalized text into overlapping, token-bounded
// chunks suitable for embedding.
//
// The algorithm tokenizes the full text once, then slides a window of
// max tokens forward with a step of max-overlap, mapping each token span
// back to byte offsets in the source text. Chunking is deterministic:
// re-chunking the same text with the same parameters yields byte-identical
// chunks, which makes re-ingestion after a partial failure safe.
package chunker

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragify/pkg/document"
	"github.com/papercomputeco/ragify/pkg/tokenizer"
)

// ErrInvalidChunkConfig is returned for window parameters that cannot
// produce an advancing window. It is a configuration-time error and is
// validated at startup, never retried.
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// Config holds the chunking window parameters, all in tokens.
type Config struct {
	// MaxTokens is the window size. Every chunk has at most this many tokens.
	MaxTokens int

	// OverlapTokens is how many tokens consecutive chunks share.
	OverlapTokens int

	// MinTokens is the smallest acceptable chunk; only the final chunk of
	// a document may be shorter.
	MinTokens int
}

// Validate checks the window parameters.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalidChunkConfig, c.MaxTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("%w: overlap_tokens must not be negative, got %d", ErrInvalidChunkConfig, c.OverlapTokens)
	}
	if c.MinTokens < 0 {
		return fmt.Errorf("%w: min_tokens must not be negative, got %d", ErrInvalidChunkConfig, c.MinTokens)
	}
	if c.MinTokens > c.MaxTokens {
		return fmt.Errorf("%w: min_tokens %d > max_tokens %d", ErrInvalidChunkConfig, c.MinTokens, c.MaxTokens)
	}
	if c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: overlap_tokens %d >= max_tokens %d leaves a non-advancing window",
			ErrInvalidChunkConfig, c.OverlapTokens, c.MaxTokens)
	}
	return nil
}

// Chunker produces chunk scanners for documents.
type Chunker struct {
	tok *tokenizer.Tokenizer
	cfg Config
}

// New creates a Chunker. The config is validated once here.
func New(tok *tokenizer.Tokenizer, cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{tok: tok, cfg: cfg}, nil
}

// Scan returns a Scanner over the chunks of text for the given document id.
// The scanner is lazy and finite; calling Scan again restarts chunking
// from the beginning.
func (c *Chunker) Scan(docID uuid.UUID, text string) *Scanner {
	tokens := c.tok.Encode(text)
	return &Scanner{
		cfg:     c.cfg,
		docID:   docID,
		text:    text,
		tokens:  tokens,
		offsets: c.tok.Offsets(text, tokens),
	}
}

// Chunks materializes the full chunk sequence for text.
func (c *Chunker) Chunks(docID uuid.UUID, text string) []document.Chunk {
	var chunks []document.Chunk
	s := c.Scan(docID, text)
	for s.Next() {
		chunks = append(chunks, s.Chunk())
	}
	return chunks
}

// Scanner iterates lazily over the chunks of one document.
// The usage pattern follows bufio.Scanner: Next advances, Chunk returns
// the current chunk.
type Scanner struct {
	cfg     Config
	docID   uuid.UUID
	text    string
	tokens  []int
	offsets []int

	pos  int // next window start, in tokens
	seq  int
	cur  document.Chunk
	done bool
}

// Next advances to the next chunk. It returns false when the sequence is
// exhausted.
func (s *Scanner) Next() bool {
	for !s.done {
		if len(s.tokens) == 0 || s.pos >= len(s.tokens) {
			s.done = true
			return false
		}

		start := s.pos
		end := start + s.cfg.MaxTokens
		if end >= len(s.tokens) {
			end = len(s.tokens)
			s.done = true
		} else {
			s.pos += s.cfg.MaxTokens - s.cfg.OverlapTokens
		}

		chunk := s.materialize(start, end)
		// A window of pure whitespace carries nothing worth indexing.
		if !isBlank(chunk.Text) {
			s.cur = chunk
			s.seq++
			return true
		}
	}
	return false
}

// Chunk returns the chunk produced by the last successful call to Next.
func (s *Scanner) Chunk() document.Chunk {
	return s.cur
}

func (s *Scanner) materialize(start, end int) document.Chunk {
	byteStart := s.offsets[start]
	byteEnd := s.offsets[end]
	return document.Chunk{
		DocumentID: s.docID,
		Seq:        s.seq,
		Text:       s.text[byteStart:byteEnd],
		Start:      byteStart,
		End:        byteEnd,
		TokenCount: end - start,
	}
}

func isBlank(text string) bool {
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
