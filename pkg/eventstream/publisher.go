package eventstream

import "context"

// Publisher publishes ingestion progress events to an event stream backend.
type Publisher interface {
	PublishIngest(ctx context.Context, event *IngestEvent) error
	Close() error
}
