package eventstream

import (
	"context"
	"errors"
)

// Multi fans each event out to every publisher in order. A failing
// publisher never blocks the others; errors are joined.
type Multi []Publisher

var _ Publisher = Multi{}

func (m Multi) PublishIngest(ctx context.Context, event *IngestEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishIngest(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
