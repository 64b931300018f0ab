package eventstream_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragify/pkg/eventstream"
)

type recordPublisher struct {
	events     []eventstream.IngestEvent
	publishErr error
	closeErr   error
	closed     bool
}

func (r *recordPublisher) PublishIngest(_ context.Context, event *eventstream.IngestEvent) error {
	if r.publishErr != nil {
		return r.publishErr
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *recordPublisher) Close() error {
	r.closed = true
	return r.closeErr
}

var _ = Describe("Multi", func() {
	var (
		first  *recordPublisher
		second *recordPublisher
		multi  eventstream.Multi
	)

	BeforeEach(func() {
		first = &recordPublisher{}
		second = &recordPublisher{}
		multi = eventstream.Multi{first, second}
	})

	It("fans one event out to every publisher", func() {
		event := &eventstream.IngestEvent{DocumentID: "doc-1", Stage: eventstream.StageLoading}

		Expect(multi.PublishIngest(context.Background(), event)).To(Succeed())

		Expect(first.events).To(HaveLen(1))
		Expect(second.events).To(HaveLen(1))
		Expect(second.events[0].DocumentID).To(Equal("doc-1"))
	})

	It("still publishes to later publishers when an earlier one fails", func() {
		boom := errors.New("broker down")
		first.publishErr = boom

		event := &eventstream.IngestEvent{DocumentID: "doc-2", Stage: eventstream.StageFailed}
		err := multi.PublishIngest(context.Background(), event)

		Expect(err).To(MatchError(boom))
		Expect(second.events).To(HaveLen(1))
	})

	It("closes every publisher and joins errors", func() {
		boom := errors.New("close failed")
		second.closeErr = boom

		err := multi.Close()

		Expect(err).To(MatchError(boom))
		Expect(first.closed).To(BeTrue())
		Expect(second.closed).To(BeTrue())
	})
})
