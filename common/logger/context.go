package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so every log line emitted while handling an
// inbound event carries the conversation it belongs to without threading values by hand.
type LogFields struct {
	UserID    *string // Messaging platform user
	ChannelID *string // Messaging platform channel
	SessionID *int64  // Intake session (snowflake)
	Stage     *string // Stage the session was in when the event arrived
	EventKind *string // Inbound event kind (e.g., "select_project", "confirm")
	Component string  // Component name (OTel semantic convention style, e.g., "intake.conversation")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.ChannelID != nil {
		result.ChannelID = new.ChannelID
	}
	if new.SessionID != nil {
		result.SessionID = new.SessionID
	}
	if new.Stage != nil {
		result.Stage = new.Stage
	}
	if new.EventKind != nil {
		result.EventKind = new.EventKind
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// Useful for logging user-supplied text.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
