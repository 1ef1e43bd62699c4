package service

import (
	"context"
	"fmt"
	"time"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
)

type IssueTypeLister interface {
	IssueTypes(ctx context.Context, project model.Project) ([]model.IssueType, error)
}

type issueTypeLister struct {
	tracker issue_tracker.IssueTracker
	timeout time.Duration
}

func NewIssueTypeLister(tracker issue_tracker.IssueTracker, timeout time.Duration) IssueTypeLister {
	return &issueTypeLister{tracker: tracker, timeout: timeout}
}

func (l *issueTypeLister) IssueTypes(ctx context.Context, project model.Project) ([]model.IssueType, error) {
	ctx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	types, err := l.tracker.ListIssueTypes(ctx, project.Key)
	if err != nil {
		return nil, fmt.Errorf("listing issue types for %s: %w", project.Key, err)
	}
	return types, nil
}
