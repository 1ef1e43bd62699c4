package service

import (
	"context"
	"fmt"
	"time"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
)

// FieldResolver reports which required fields still have to be asked for.
type FieldResolver interface {
	Resolve(ctx context.Context, project model.Project, issueType model.IssueType) ([]model.FieldDescriptor, error)
}

type fieldResolver struct {
	tracker issue_tracker.IssueTracker
	timeout time.Duration
}

func NewFieldResolver(tracker issue_tracker.IssueTracker, timeout time.Duration) FieldResolver {
	return &fieldResolver{tracker: tracker, timeout: timeout}
}

func (r *fieldResolver) Resolve(ctx context.Context, project model.Project, issueType model.IssueType) ([]model.FieldDescriptor, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.tracker.RequiredFields(ctx, project.Key, issueType)
	if err != nil {
		return nil, fmt.Errorf("resolving required fields: %w", err)
	}

	remaining := make([]model.FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		if model.IsPrecollected(f.ID) {
			continue
		}
		remaining = append(remaining, f)
	}
	return remaining, nil
}
