package store

import (
	"context"
	"fmt"
	"time"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgxpool.Pool the ledger needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type outcomeStore struct {
	db querier
}

func NewOutcomeStore(db querier) OutcomeStore {
	return &outcomeStore{db: db}
}

const insertOutcome = `
INSERT INTO intake_outcomes (
    id, session_id, user_id, channel_id, kind, stage,
    project_key, issue_type, ticket_key, duplicate_of, summary, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (s *outcomeStore) Record(ctx context.Context, o *model.Outcome) error {
	if o.ID == 0 {
		o.ID = id.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, insertOutcome,
		o.ID, o.SessionID, o.Identity.UserID, o.Identity.ChannelID,
		string(o.Kind), string(o.Stage),
		o.ProjectKey, o.IssueType, o.TicketKey, o.DuplicateOf,
		o.Summary, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

const listOutcomesByUser = `
SELECT id, session_id, user_id, channel_id, kind, stage,
       project_key, issue_type, ticket_key, duplicate_of, summary, created_at
FROM intake_outcomes
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`

func (s *outcomeStore) ListByUser(ctx context.Context, userID string, limit int32) ([]model.Outcome, error) {
	rows, err := s.db.Query(ctx, listOutcomesByUser, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	outcomes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Outcome, error) {
		var (
			o           model.Outcome
			kind, stage string
		)
		err := row.Scan(
			&o.ID, &o.SessionID, &o.Identity.UserID, &o.Identity.ChannelID,
			&kind, &stage,
			&o.ProjectKey, &o.IssueType, &o.TicketKey, &o.DuplicateOf,
			&o.Summary, &o.CreatedAt,
		)
		o.Kind = model.OutcomeKind(kind)
		o.Stage = model.Stage(stage)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan outcomes: %w", err)
	}
	return outcomes, nil
}

// nopOutcomeStore is used when no database is configured.
type nopOutcomeStore struct{}

func NewNopOutcomeStore() OutcomeStore {
	return nopOutcomeStore{}
}

func (nopOutcomeStore) Record(context.Context, *model.Outcome) error { return nil }

func (nopOutcomeStore) ListByUser(context.Context, string, int32) ([]model.Outcome, error) {
	return nil, nil
}
