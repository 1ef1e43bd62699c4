package service

import (
	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/service/issue_tracker"
)

// Services holds the collaborators of the conversation machine, all backed
// by one tracker and one language model.
type Services struct {
	Extractor  TicketExtractor
	Fields     FieldResolver
	Duplicates DuplicateFinder
	Catalog    ProjectCatalog
	IssueTypes IssueTypeLister
	Creator    TicketCreator
}

func NewServices(cfg config.Config, tracker issue_tracker.IssueTracker, client llm.Client) *Services {
	timeout := cfg.CallTimeout
	return &Services{
		Extractor: NewTicketExtractor(client, timeout),
		Fields:    NewFieldResolver(tracker, timeout),
		Duplicates: NewDuplicateFinder(tracker, client, DuplicateFinderConfig{
			MaxResults: cfg.Duplicates.MaxResults,
			Scoring:    cfg.Duplicates.Scoring,
			Threshold:  cfg.Duplicates.Threshold,
			Timeout:    timeout,
		}),
		Catalog:    NewProjectCatalog(tracker, cfg.Catalog.TTL, cfg.Catalog.DefaultProjectKey, timeout),
		IssueTypes: NewIssueTypeLister(tracker, timeout),
		Creator:    NewTicketCreator(tracker, timeout),
	}
}

// NewIssueTracker builds the adapter named by cfg.Provider.
func NewIssueTracker(cfg config.TrackerConfig) (issue_tracker.IssueTracker, error) {
	switch cfg.Provider {
	case "gitlab":
		return issue_tracker.NewGitLabIssueTracker(issue_tracker.GitLabConfig{
			BaseURL: cfg.GitLabURL,
			Token:   cfg.GitLabToken,
		})
	default:
		return issue_tracker.NewJiraIssueTracker(issue_tracker.JiraConfig{
			Server:   cfg.JiraServer,
			Username: cfg.JiraUsername,
			APIToken: cfg.JiraAPIToken,
		})
	}
}
