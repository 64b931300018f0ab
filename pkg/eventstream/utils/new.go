package eventstreamutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/eventstream/kafka"
	"github.com/papercomputeco/ragify/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// Backend selects the event backend: "nop" or "kafka". Empty means nop.
	// The in-process channel backend is wired directly by callers that
	// consume its events and is not constructed here.
	Backend string

	// Brokers is the Kafka broker list. Required for the kafka backend.
	Brokers []string

	// Topic is the Kafka topic. Empty uses the backend default.
	Topic string

	Logger *zap.Logger
}

// NewPublisher creates an ingest event publisher from opts.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Backend {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", o.Backend)
	}
}
