package model

import "time"

type OutcomeKind string

const (
	OutcomeCreated   OutcomeKind = "created"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeAbandoned OutcomeKind = "abandoned"
)

// Outcome records how an intake conversation ended.
type Outcome struct {
	ID          int64       `json:"id"`
	SessionID   int64       `json:"session_id"`
	Identity    Identity    `json:"identity"`
	Kind        OutcomeKind `json:"kind"`
	Stage       Stage       `json:"stage"`
	ProjectKey  *string     `json:"project_key,omitempty"`
	IssueType   *string     `json:"issue_type,omitempty"`
	TicketKey   *string     `json:"ticket_key,omitempty"`
	DuplicateOf *string     `json:"duplicate_of,omitempty"`
	Summary     string      `json:"summary"`
	CreatedAt   time.Time   `json:"created_at"`
}
