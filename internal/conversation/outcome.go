package conversation

import "basegraph.app/intake/internal/model"

// Status classifies what handling one event did to the conversation.
type Status string

const (
	// StatusAdvanced: a new stage or the next field prompt was stored.
	StatusAdvanced Status = "advanced"
	// StatusCompleted: the ticket was created and the session cleared.
	StatusCompleted Status = "completed"
	// StatusClosed: the session ended without a ticket (cancel, duplicate).
	StatusClosed Status = "closed"
	// StatusRetry: a collaborator failed and the session was left as it was.
	StatusRetry Status = "retry"
	// StatusAborted: a collaborator failed and no session survives.
	StatusAborted Status = "aborted"
	// StatusIgnored: the event did not apply to the current stage.
	StatusIgnored Status = "ignored"
	// StatusReset: the stored session could not be read and was dropped.
	StatusReset Status = "reset"
)

// Outcome describes one pass through Machine.Handle. Err carries the
// collaborator failure that was turned into a user message, if any.
type Outcome struct {
	Status Status
	From   model.Stage
	To     model.Stage
	Err    error
}
