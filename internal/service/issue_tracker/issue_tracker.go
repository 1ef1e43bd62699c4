package issue_tracker

import (
	"context"
	"errors"

	"basegraph.app/intake/internal/model"
)

// ErrNotConfigured is returned by New when the selected provider is missing
// credentials.
var ErrNotConfigured = errors.New("issue tracker not configured")

type SearchIssuesParams struct {
	ProjectKey string
	IssueTypes []string // empty = provider default set
	Summary    string
	Terms      []string // individual words, OR-ed with the summary
	MaxResults int
}

type CreateIssueParams struct {
	Ticket model.TicketRequest
	// RequestedBy is the chat user id that asked for the ticket.
	RequestedBy string
}

// IssueTracker is the slice of a tracker's API the intake flow needs.
type IssueTracker interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListIssueTypes(ctx context.Context, projectKey string) ([]model.IssueType, error)
	// RequiredFields returns every field the tracker marks as required for
	// creating an issue of the given type, including the ones the intake
	// flow fills itself.
	RequiredFields(ctx context.Context, projectKey string, issueType model.IssueType) ([]model.FieldDescriptor, error)
	SearchIssues(ctx context.Context, params SearchIssuesParams) ([]model.Candidate, error)
	CreateIssue(ctx context.Context, params CreateIssueParams) (*model.CreatedTicket, error)
}
