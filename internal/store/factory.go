package store

import (
	"log/slog"

	"basegraph.app/intake/core/config"
	"basegraph.app/intake/core/db"
	"github.com/redis/go-redis/v9"
)

// Stores bundles the persistence the conversation machine depends on.
type Stores struct {
	Sessions SessionStore
	Locker   Locker
	Outcomes OutcomeStore
}

// NewStores picks the session backend from cfg. rdb is only used for the
// redis backend and database may be nil when the ledger is disabled.
func NewStores(cfg config.SessionConfig, rdb *redis.Client, database *db.DB, logger *slog.Logger) *Stores {
	stores := &Stores{
		Outcomes: NewNopOutcomeStore(),
	}

	if cfg.UsesRedis() && rdb != nil {
		stores.Sessions = NewRedisSessionStore(rdb, cfg.KeyPrefix, cfg.TTL)
		stores.Locker = NewRedisLocker(rdb, cfg.KeyPrefix, cfg.LockTTL, logger)
	} else {
		stores.Sessions = NewMemorySessionStore(cfg.TTL)
		stores.Locker = NewKeyedMutex()
	}

	if database != nil {
		stores.Outcomes = NewOutcomeStore(database.Pool())
	}

	return stores
}
