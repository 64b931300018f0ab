// Package channel provides an in-process eventstream publisher backed by a
// buffered channel, used by the CLI and API to surface ingest progress.
package channel

import (
	"context"
	"sync"

	"github.com/papercomputeco/ragify/pkg/eventstream"
)

// DefaultBuffer is the channel capacity when none is configured.
const DefaultBuffer = 256

// Publisher delivers events to an in-process subscriber. Publishing never
// blocks: when the subscriber falls behind, events are dropped.
type Publisher struct {
	mu     sync.Mutex
	ch     chan eventstream.IngestEvent
	closed bool
}

// NewPublisher creates a channel publisher with the given buffer size.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Publisher{
		ch: make(chan eventstream.IngestEvent, buffer),
	}
}

// Events is the subscriber side of the stream. It is closed by Close.
func (p *Publisher) Events() <-chan eventstream.IngestEvent {
	return p.ch
}

// PublishIngest delivers the event if the buffer has room and drops it
// otherwise.
func (p *Publisher) PublishIngest(_ context.Context, event *eventstream.IngestEvent) error {
	if event == nil {
		return eventstream.ErrNilIngestEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	select {
	case p.ch <- *event:
	default:
	}
	return nil
}

// Close closes the stream. Subsequent publishes are silently discarded.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
