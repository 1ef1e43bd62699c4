package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/worker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type handlerFunc func(ctx context.Context, ev conversation.Event) conversation.Outcome

func (f handlerFunc) Handle(ctx context.Context, ev conversation.Event) conversation.Outcome {
	return f(ctx, ev)
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx context.Context
		ev  conversation.Event
	)

	BeforeEach(func() {
		ctx = context.Background()
		ev = conversation.TextEvent(model.Identity{UserID: "U1", ChannelID: "D1"}, "hello")
	})

	It("handles submitted events in the background", func() {
		var handled atomic.Int32
		d := worker.New(handlerFunc(func(context.Context, conversation.Event) conversation.Outcome {
			handled.Add(1)
			return conversation.Outcome{Status: conversation.StatusAdvanced}
		}), worker.Config{})

		for i := 0; i < 5; i++ {
			Expect(d.Submit(ctx, ev)).To(Succeed())
		}
		Expect(d.Stop(ctx)).To(Succeed())
		Expect(handled.Load()).To(Equal(int32(5)))
	})

	It("never runs more events at once than the concurrency limit", func() {
		var (
			inFlight atomic.Int32
			peak     atomic.Int32
		)
		d := worker.New(handlerFunc(func(context.Context, conversation.Event) conversation.Outcome {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return conversation.Outcome{}
		}), worker.Config{Concurrency: 3})

		for i := 0; i < 20; i++ {
			Expect(d.Submit(ctx, ev)).To(Succeed())
		}
		Expect(d.Stop(ctx)).To(Succeed())
		Expect(peak.Load()).To(BeNumerically("<=", 3))
		Expect(peak.Load()).To(BeNumerically(">", 0))
	})

	It("survives a panicking handler", func() {
		var handled atomic.Int32
		d := worker.New(handlerFunc(func(_ context.Context, e conversation.Event) conversation.Outcome {
			if e.Value == "boom" {
				panic("boom")
			}
			handled.Add(1)
			return conversation.Outcome{}
		}), worker.Config{Concurrency: 1})

		Expect(d.Submit(ctx, conversation.TextEvent(ev.Identity, "boom"))).To(Succeed())
		Expect(d.Submit(ctx, ev)).To(Succeed())
		Expect(d.Stop(ctx)).To(Succeed())
		Expect(handled.Load()).To(Equal(int32(1)))
	})

	It("keeps running after the submitting request is cancelled", func() {
		release := make(chan struct{})
		var sawCancel atomic.Bool
		d := worker.New(handlerFunc(func(c context.Context, _ conversation.Event) conversation.Outcome {
			<-release
			sawCancel.Store(c.Err() != nil)
			return conversation.Outcome{}
		}), worker.Config{})

		reqCtx, cancel := context.WithCancel(ctx)
		Expect(d.Submit(reqCtx, ev)).To(Succeed())
		cancel()
		close(release)

		Expect(d.Stop(ctx)).To(Succeed())
		Expect(sawCancel.Load()).To(BeFalse())
	})

	It("bounds each event with the configured timeout", func() {
		var deadline atomic.Bool
		d := worker.New(handlerFunc(func(c context.Context, _ conversation.Event) conversation.Outcome {
			_, ok := c.Deadline()
			deadline.Store(ok)
			return conversation.Outcome{}
		}), worker.Config{Timeout: time.Second})

		Expect(d.Submit(ctx, ev)).To(Succeed())
		Expect(d.Stop(ctx)).To(Succeed())
		Expect(deadline.Load()).To(BeTrue())
	})

	It("rejects events after Stop", func() {
		d := worker.New(handlerFunc(func(context.Context, conversation.Event) conversation.Outcome {
			return conversation.Outcome{}
		}), worker.Config{})

		Expect(d.Stop(ctx)).To(Succeed())
		Expect(d.Submit(ctx, ev)).To(MatchError(worker.ErrStopped))
		Expect(d.Stop(ctx)).To(Succeed())
	})

	It("gives up waiting when the stop context ends", func() {
		release := make(chan struct{})
		var once sync.Once
		DeferCleanup(func() { once.Do(func() { close(release) }) })

		d := worker.New(handlerFunc(func(context.Context, conversation.Event) conversation.Outcome {
			<-release
			return conversation.Outcome{}
		}), worker.Config{})
		Expect(d.Submit(ctx, ev)).To(Succeed())

		stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(d.Stop(stopCtx)).To(MatchError(context.DeadlineExceeded))
	})
})
