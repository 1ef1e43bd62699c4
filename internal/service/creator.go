package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
)

type TicketCreator interface {
	Create(ctx context.Context, identity model.Identity, ticket model.TicketRequest) (*model.CreatedTicket, error)
}

type ticketCreator struct {
	tracker issue_tracker.IssueTracker
	timeout time.Duration
}

func NewTicketCreator(tracker issue_tracker.IssueTracker, timeout time.Duration) TicketCreator {
	return &ticketCreator{tracker: tracker, timeout: timeout}
}

func (c *ticketCreator) Create(ctx context.Context, identity model.Identity, ticket model.TicketRequest) (*model.CreatedTicket, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.tracker.CreateIssue(ctx, issue_tracker.CreateIssueParams{
		Ticket:      ticket,
		RequestedBy: identity.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}

	slog.InfoContext(ctx, "ticket created",
		"ticket_key", created.Key,
		"project_key", ticket.ProjectKey,
		"issue_type", ticket.IssueTypeName)

	return created, nil
}
