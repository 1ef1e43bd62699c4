package store

import (
	"context"
	"errors"

	"basegraph.app/intake/internal/model"
)

var (
	// ErrSessionNotFound is returned when an identity has no active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCorrupt is returned when a stored session cannot be decoded or
	// its payload does not match its stage.
	ErrSessionCorrupt = errors.New("session corrupt")
	ErrLockTimeout    = errors.New("timed out acquiring lock")
)

// SessionStore holds at most one session per identity.
type SessionStore interface {
	Get(ctx context.Context, identity model.Identity) (*model.Session, error)
	Put(ctx context.Context, session *model.Session) error
	Remove(ctx context.Context, identity model.Identity) error
}

// Locker serializes work on a key. The returned unlock func must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// OutcomeStore is the ledger of finished conversations.
type OutcomeStore interface {
	Record(ctx context.Context, outcome *model.Outcome) error
	ListByUser(ctx context.Context, userID string, limit int32) ([]model.Outcome, error)
}
