package queue

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
)

// Message is one conversation event read back from the stream.
type Message struct {
	ID      string
	Event   conversation.Event
	Attempt int
	TraceID string
	Raw     redis.XMessage
}

// eventValues flattens ev into stream fields.
func eventValues(ev conversation.Event, attempt int) map[string]any {
	if attempt <= 0 {
		attempt = 1
	}
	values := map[string]any{
		"user_id":    ev.Identity.UserID,
		"channel_id": ev.Identity.ChannelID,
		"kind":       string(ev.Kind),
		"attempt":    attempt,
	}
	if ev.Value != "" {
		values["value"] = ev.Value
	}
	if ev.ActionID != "" {
		values["action_id"] = ev.ActionID
	}
	if ev.MessageRef != "" {
		values["message_ref"] = ev.MessageRef
	}
	return values
}

func messageValues(msg Message, attempt int) map[string]any {
	values := eventValues(msg.Event, attempt)
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	userID, err := parseString(msg.Values, "user_id")
	if err != nil {
		return Message{}, err
	}
	channelID, err := parseString(msg.Values, "channel_id")
	if err != nil {
		return Message{}, err
	}
	kind, err := parseString(msg.Values, "kind")
	if err != nil {
		return Message{}, err
	}
	if userID == "" || channelID == "" {
		return Message{}, fmt.Errorf("empty user_id or channel_id")
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	return Message{
		ID: msg.ID,
		Event: conversation.Event{
			Identity:   model.Identity{UserID: userID, ChannelID: channelID},
			Kind:       conversation.EventKind(kind),
			Value:      parseOptionalString(msg.Values, "value"),
			ActionID:   parseOptionalString(msg.Values, "action_id"),
			MessageRef: parseOptionalString(msg.Values, "message_ref"),
		},
		Attempt: attempt,
		TraceID: parseOptionalString(msg.Values, "trace_id"),
		Raw:     msg,
	}, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
