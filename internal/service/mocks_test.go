package service_test

import (
	"context"
	"encoding/json"
	"sync"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
)

type mockIssueTracker struct {
	listProjectsFn   func(ctx context.Context) ([]model.Project, error)
	listIssueTypesFn func(ctx context.Context, projectKey string) ([]model.IssueType, error)
	requiredFieldsFn func(ctx context.Context, projectKey string, issueType model.IssueType) ([]model.FieldDescriptor, error)
	searchIssuesFn   func(ctx context.Context, params issue_tracker.SearchIssuesParams) ([]model.Candidate, error)
	createIssueFn    func(ctx context.Context, params issue_tracker.CreateIssueParams) (*model.CreatedTicket, error)

	mu                sync.Mutex
	listProjectsCalls int
}

func (m *mockIssueTracker) ListProjects(ctx context.Context) ([]model.Project, error) {
	m.mu.Lock()
	m.listProjectsCalls++
	m.mu.Unlock()
	if m.listProjectsFn != nil {
		return m.listProjectsFn(ctx)
	}
	return nil, nil
}

func (m *mockIssueTracker) ListIssueTypes(ctx context.Context, projectKey string) ([]model.IssueType, error) {
	if m.listIssueTypesFn != nil {
		return m.listIssueTypesFn(ctx, projectKey)
	}
	return nil, nil
}

func (m *mockIssueTracker) RequiredFields(ctx context.Context, projectKey string, issueType model.IssueType) ([]model.FieldDescriptor, error) {
	if m.requiredFieldsFn != nil {
		return m.requiredFieldsFn(ctx, projectKey, issueType)
	}
	return nil, nil
}

func (m *mockIssueTracker) SearchIssues(ctx context.Context, params issue_tracker.SearchIssuesParams) ([]model.Candidate, error) {
	if m.searchIssuesFn != nil {
		return m.searchIssuesFn(ctx, params)
	}
	return nil, nil
}

func (m *mockIssueTracker) CreateIssue(ctx context.Context, params issue_tracker.CreateIssueParams) (*model.CreatedTicket, error) {
	if m.createIssueFn != nil {
		return m.createIssueFn(ctx, params)
	}
	return nil, nil
}

// mockLLM answers every Chat call with chatFn's raw JSON.
type mockLLM struct {
	chatFn func(ctx context.Context, req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

func (m *mockLLM) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	raw := "{}"
	if m.chatFn != nil {
		var err error
		raw, err = m.chatFn(ctx, req)
		if err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal([]byte(raw), result); err != nil {
		return nil, err
	}
	return &llm.Response{}, nil
}

func (m *mockLLM) Model() string {
	return "mock"
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
