package issue_tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"basegraph.app/intake/internal/model"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLab has a fixed set of work item types and no per-project required
// fields beyond the title.
var gitLabIssueTypes = []model.IssueType{
	{ID: "issue", Name: "issue", Description: "A general issue"},
	{ID: "incident", Name: "incident", Description: "A service disruption"},
	{ID: "task", Name: "task", Description: "A unit of work"},
}

type GitLabConfig struct {
	BaseURL string
	Token   string
}

type gitLabIssueTracker struct {
	client *gitlab.Client
}

func NewGitLabIssueTracker(cfg GitLabConfig) (IssueTracker, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gitlab: %w", ErrNotConfigured)
	}

	client, err := newGitLabClient(cfg.BaseURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &gitLabIssueTracker{client: client}, nil
}

func newGitLabClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

func (t *gitLabIssueTracker) ListProjects(ctx context.Context) ([]model.Project, error) {
	opts := &gitlab.ListProjectsOptions{
		Membership: gitlab.Ptr(true),
		Archived:   gitlab.Ptr(false),
		Simple:     gitlab.Ptr(true),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: 100,
		},
	}

	var projects []model.Project

	for {
		page, resp, err := t.client.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing gitlab projects: %w", err)
		}

		for _, p := range page {
			if p == nil {
				continue
			}
			projects = append(projects, model.Project{
				ID:   strconv.FormatInt(p.ID, 10),
				Key:  p.PathWithNamespace,
				Name: p.NameWithNamespace,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return projects, nil
}

func (t *gitLabIssueTracker) ListIssueTypes(context.Context, string) ([]model.IssueType, error) {
	out := make([]model.IssueType, len(gitLabIssueTypes))
	copy(out, gitLabIssueTypes)
	return out, nil
}

func (t *gitLabIssueTracker) RequiredFields(context.Context, string, model.IssueType) ([]model.FieldDescriptor, error) {
	return nil, nil
}

func (t *gitLabIssueTracker) SearchIssues(ctx context.Context, params SearchIssuesParams) ([]model.Candidate, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		Search:  gitlab.Ptr(params.Summary),
		OrderBy: gitlab.Ptr("created_at"),
		Sort:    gitlab.Ptr("desc"),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: 20,
		},
	}
	if len(params.IssueTypes) == 1 {
		opts.IssueType = gitlab.Ptr(params.IssueTypes[0])
	}

	issues, _, err := t.client.Issues.ListProjectIssues(params.ProjectKey, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("searching gitlab issues: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(issues))
	for _, issue := range issues {
		if issue == nil {
			continue
		}
		if params.MaxResults > 0 && len(candidates) >= params.MaxResults {
			break
		}
		candidates = append(candidates, model.Candidate{
			Key:     fmt.Sprintf("#%d", issue.IID),
			Summary: issue.Title,
			URL:     issue.WebURL,
		})
	}
	return candidates, nil
}

func (t *gitLabIssueTracker) CreateIssue(ctx context.Context, params CreateIssueParams) (*model.CreatedTicket, error) {
	ticket := params.Ticket

	description := ticket.Description
	if params.RequestedBy != "" {
		description = strings.TrimSpace(description + "\n\nRequested via chat by " + params.RequestedBy)
	}

	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(ticket.Summary),
		Description: gitlab.Ptr(description),
	}
	if ticket.IssueTypeName != "" {
		opts.IssueType = gitlab.Ptr(ticket.IssueTypeName)
	}

	issue, _, err := t.client.Issues.CreateIssue(ticket.ProjectKey, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("creating gitlab issue: %w", err)
	}

	return &model.CreatedTicket{
		Key: fmt.Sprintf("#%d", issue.IID),
		ID:  fmt.Sprintf("%d", issue.ID),
		URL: issue.WebURL,
	}, nil
}
