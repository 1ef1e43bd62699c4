package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/intake/internal/conversation"
)

// Producer appends conversation events to a Redis stream. It satisfies the
// webhook dispatcher contract, so a replica that accepts a webhook does not
// have to be the one that handles it.
type Producer interface {
	Submit(ctx context.Context, ev conversation.Event) error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Submit(ctx context.Context, ev conversation.Event) error {
	values := eventValues(ev, 1)
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		values["trace_id"] = sc.TraceID().String()
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	p.logger.DebugContext(ctx, "enqueued event", "stream", p.stream, "kind", ev.Kind)
	return nil
}
