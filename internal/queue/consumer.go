package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/conversation"
)

type ConsumerConfig struct {
	Stream      string        // Redis stream name
	Group       string        // Redis consumer group name
	Consumer    string        // Redis consumer name, unique per replica
	DLQStream   string        // Dead letter stream for events that keep failing
	BatchSize   int64         // Number of messages to read per call
	Block       time.Duration // How long to block waiting for new messages
	MaxAttempts int           // Attempts before moving to the dead letter stream
}

// Processor hands one event to whatever runs conversations locally.
type Processor func(ctx context.Context, ev conversation.Event) error

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.DLQStream == "" {
		cfg.DLQStream = cfg.Stream + "-dlq"
	}

	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Start from "0" so events appended before the group existed are not lost.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Run reads until ctx is cancelled, handing each event to process. Events
// process rejects are requeued, then dead-lettered after MaxAttempts.
func (c *RedisConsumer) Run(ctx context.Context, process Processor) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "intake.queue.consumer",
	})

	for {
		if ctx.Err() != nil {
			return nil
		}

		messages, err := c.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.ErrorContext(ctx, "failed to read events", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			c.handle(ctx, msg, process)
		}
	}
}

func (c *RedisConsumer) handle(ctx context.Context, msg Message, process Processor) {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "intake.queue.consume", trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	err := process(ctx, msg.Event)
	if err == nil {
		if ackErr := c.Ack(ctx, msg); ackErr != nil {
			slog.ErrorContext(ctx, "failed to ack event", "error", ackErr, "message_id", msg.ID)
		}
		return
	}

	sc.RecordError(err)
	if msg.Attempt >= c.cfg.MaxAttempts {
		if dlqErr := c.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to dead-letter event", "error", dlqErr, "message_id", msg.ID)
		}
		return
	}
	if reqErr := c.Requeue(ctx, msg, err.Error()); reqErr != nil {
		slog.ErrorContext(ctx, "failed to requeue event", "error", reqErr, "message_id", msg.ID)
	}
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		// ">" reads only messages never delivered to this group.
		Streams: []string{c.cfg.Stream, ">"},
		Count:   c.cfg.BatchSize,
		Block:   c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, raw := range stream.Messages {
			parsed, parseErr := ParseMessage(raw)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse event",
					"error", parseErr,
					"raw_message_id", raw.ID,
					"stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: raw.ID, Raw: raw})
				continue
			}
			messages = append(messages, parsed)
		}
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read events from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed event for requeue: %w", err)
	}

	values := messageValues(msg, msg.Attempt+1)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	slog.InfoContext(ctx, "event requeued for retry",
		"next_attempt", msg.Attempt+1,
		"reason", errMsg)
	return nil
}

func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed event for dlq: %w", err)
	}

	values := messageValues(msg, msg.Attempt)
	values["error"] = errMsg

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	slog.ErrorContext(ctx, "event sent to DLQ",
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}
