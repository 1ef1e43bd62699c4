package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/core/db"
	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/service"
	"basegraph.app/intake/internal/store"
)

// App is everything a front end needs to run intake conversations. The
// messaging platform is supplied by the caller.
type App struct {
	Machine  *conversation.Machine
	Services *service.Services
	Stores   *store.Stores

	database *db.DB
	redis    *redis.Client
}

// New connects the configured backends and assembles the machine. Postgres
// and Redis are optional and only dialled when configured.
func New(ctx context.Context, cfg config.Config, messenger conversation.Messenger) (*App, error) {
	a := &App{}

	tracker, err := service.NewIssueTracker(cfg.Tracker)
	if err != nil {
		return nil, fmt.Errorf("creating issue tracker: %w", err)
	}

	client, err := llm.New(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	slog.InfoContext(ctx, "llm client ready", "provider", cfg.LLM.Provider, "model", client.Model())

	if cfg.DB.Enabled() {
		a.database, err = db.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := a.database.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		slog.InfoContext(ctx, "database connected, outcome ledger enabled")
	}

	if cfg.Sessions.UsesRedis() || cfg.Dispatch.UsesRedis() {
		opts, err := redis.ParseURL(cfg.Sessions.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.InfoContext(ctx, "redis connected", "prefix", cfg.Sessions.KeyPrefix)
	}

	a.Stores = store.NewStores(cfg.Sessions, a.redis, a.database, slog.Default())
	a.Services = service.NewServices(cfg, tracker, client)

	if err := a.Services.Catalog.Warm(ctx); err != nil {
		// Not fatal: the catalog is fetched again on first use.
		slog.WarnContext(ctx, "failed to warm project catalog", "error", err)
	}

	a.Machine = conversation.NewMachine(conversation.Deps{
		Sessions:   a.Stores.Sessions,
		Locker:     a.Stores.Locker,
		Outcomes:   a.Stores.Outcomes,
		Extractor:  a.Services.Extractor,
		Catalog:    a.Services.Catalog,
		IssueTypes: a.Services.IssueTypes,
		Fields:     a.Services.Fields,
		Duplicates: a.Services.Duplicates,
		Creator:    a.Services.Creator,
		Messenger:  messenger,
	})

	return a, nil
}

// Redis returns the shared client, or nil when no Redis backend is configured.
func (a *App) Redis() *redis.Client {
	return a.redis
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if a.database != nil {
		a.database.Close()
	}
	return errors.Join(errs...)
}
