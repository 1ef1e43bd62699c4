package worker

import (
	"context"

	"basegraph.app/intake/internal/conversation"
)

// EventHandler processes one inbound event. conversation.Machine is the
// production implementation.
type EventHandler interface {
	Handle(ctx context.Context, ev conversation.Event) conversation.Outcome
}
