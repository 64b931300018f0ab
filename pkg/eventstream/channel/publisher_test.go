package channel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragify/pkg/eventstream"
	"github.com/papercomputeco/ragify/pkg/eventstream/channel"
)

var _ = Describe("Publisher", func() {
	var (
		ctx context.Context
		p   *channel.Publisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		p = channel.NewPublisher(4)
	})

	It("implements eventstream.Publisher", func() {
		var _ eventstream.Publisher = (*channel.Publisher)(nil)
	})

	It("delivers published events in order", func() {
		for _, stage := range []eventstream.Stage{
			eventstream.StageLoading,
			eventstream.StageChunking,
			eventstream.StageEmbedding,
		} {
			Expect(p.PublishIngest(ctx, &eventstream.IngestEvent{
				DocumentID: "doc-1",
				Stage:      stage,
			})).To(Succeed())
		}
		Expect(p.Close()).To(Succeed())

		var stages []eventstream.Stage
		for event := range p.Events() {
			stages = append(stages, event.Stage)
		}
		Expect(stages).To(Equal([]eventstream.Stage{
			eventstream.StageLoading,
			eventstream.StageChunking,
			eventstream.StageEmbedding,
		}))
	})

	It("returns ErrNilIngestEvent for nil events", func() {
		err := p.PublishIngest(ctx, nil)
		Expect(err).To(MatchError(eventstream.ErrNilIngestEvent))
	})

	It("drops events instead of blocking when the buffer is full", func() {
		for i := 0; i < 10; i++ {
			Expect(p.PublishIngest(ctx, &eventstream.IngestEvent{
				DocumentID: "doc-1",
				Stage:      eventstream.StageLoading,
			})).To(Succeed())
		}
		Expect(p.Close()).To(Succeed())

		count := 0
		for range p.Events() {
			count++
		}
		Expect(count).To(Equal(4))
	})

	It("discards publishes after Close", func() {
		Expect(p.Close()).To(Succeed())
		Expect(p.PublishIngest(ctx, &eventstream.IngestEvent{})).To(Succeed())
	})

	It("tolerates a double Close", func() {
		Expect(p.Close()).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})
})
