package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/conversation"
)

var ErrStopped = errors.New("dispatcher stopped")

type Config struct {
	// Concurrency caps events handled at once across all users.
	Concurrency int
	// Timeout bounds one event end to end.
	Timeout time.Duration
}

// Dispatcher runs inbound events in the background so webhook handlers can
// acknowledge immediately. Events from the same user are serialized by the
// handler's own locking, not here.
type Dispatcher struct {
	handler EventHandler
	cfg     Config
	sem     chan struct{}

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func New(handler EventHandler, cfg Config) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Dispatcher{
		handler: handler,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.Concurrency),
	}
}

// Submit schedules ev and returns without waiting for it. ctx is used for
// its values only (trace and log fields); its cancellation is ignored since
// the originating request finishes first.
func (d *Dispatcher) Submit(ctx context.Context, ev conversation.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}

	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx), ev)
	return nil
}

// Stop rejects new events and waits for accepted ones to finish, or until
// ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight events: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(ctx context.Context, ev conversation.Event) {
	defer d.wg.Done()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	sc := logger.StartSpan(ctx, "intake.dispatch", trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	sc.SetAttributes(
		attribute.String("intake.event_kind", string(ev.Kind)),
		attribute.String("intake.action_id", ev.ActionID),
	)

	ctx, cancel := context.WithTimeout(sc.Context(), d.cfg.Timeout)
	defer cancel()

	outcome, err := d.handleSafe(ctx, ev)
	if err != nil {
		sc.RecordError(err)
		return
	}

	sc.SetAttributes(attribute.String("intake.status", string(outcome.Status)))
	if outcome.Err != nil {
		sc.RecordError(outcome.Err)
	}
}

func (d *Dispatcher) handleSafe(ctx context.Context, ev conversation.Event) (outcome conversation.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in event handling",
				"panic", r,
				"event_kind", ev.Kind,
				"user_id", ev.Identity.UserID,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.handler.Handle(ctx, ev), nil
}
