package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
	"github.com/patrickmn/go-cache"
)

const projectsCacheKey = "projects"

// ProjectCatalog serves the selectable projects from a short-lived cache.
type ProjectCatalog interface {
	Projects(ctx context.Context) ([]model.Project, error)
	Warm(ctx context.Context) error
}

type projectCatalog struct {
	tracker    issue_tracker.IssueTracker
	cache      *cache.Cache
	defaultKey string
	timeout    time.Duration
}

func NewProjectCatalog(tracker issue_tracker.IssueTracker, ttl time.Duration, defaultKey string, timeout time.Duration) ProjectCatalog {
	return &projectCatalog{
		tracker:    tracker,
		cache:      cache.New(ttl, 2*ttl),
		defaultKey: defaultKey,
		timeout:    timeout,
	}
}

func (c *projectCatalog) Projects(ctx context.Context) ([]model.Project, error) {
	if x, found := c.cache.Get(projectsCacheKey); found {
		return cloneProjects(x.([]model.Project)), nil
	}

	projects, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	// An empty catalog is not cached so the next request retries the tracker.
	if len(projects) > 0 {
		c.cache.Set(projectsCacheKey, projects, cache.DefaultExpiration)
	}
	return cloneProjects(projects), nil
}

func (c *projectCatalog) Warm(ctx context.Context) error {
	projects, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		c.cache.Set(projectsCacheKey, projects, cache.DefaultExpiration)
	}
	slog.InfoContext(ctx, "project catalog warmed", "count", len(projects))
	return nil
}

func (c *projectCatalog) fetch(ctx context.Context) ([]model.Project, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	projects, err := c.tracker.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	sort.SliceStable(projects, func(i, j int) bool {
		iDefault := projects[i].Key == c.defaultKey
		jDefault := projects[j].Key == c.defaultKey
		if iDefault != jDefault {
			return iDefault
		}
		return projects[i].Name < projects[j].Name
	})
	return projects, nil
}

func cloneProjects(projects []model.Project) []model.Project {
	out := make([]model.Project, len(projects))
	copy(out, projects)
	return out
}
