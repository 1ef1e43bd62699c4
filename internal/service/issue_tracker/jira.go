package issue_tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"basegraph.app/intake/internal/model"
	jira "github.com/andygrunwald/go-jira"
)

type JiraConfig struct {
	Server   string
	Username string
	APIToken string
}

type jiraIssueTracker struct {
	client *jira.Client
	server string
}

func NewJiraIssueTracker(cfg JiraConfig) (IssueTracker, error) {
	if cfg.Server == "" || cfg.Username == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("jira: %w", ErrNotConfigured)
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.APIToken,
	}
	return newJiraIssueTracker(tp.Client(), cfg.Server)
}

func newJiraIssueTracker(httpClient *http.Client, server string) (IssueTracker, error) {
	server = strings.TrimSuffix(server, "/")
	client, err := jira.NewClient(httpClient, server)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}
	return &jiraIssueTracker{client: client, server: server}, nil
}

func (t *jiraIssueTracker) ListProjects(ctx context.Context) ([]model.Project, error) {
	list, resp, err := t.client.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jira projects: %w", jira.NewJiraError(resp, err))
	}

	projects := make([]model.Project, 0, len(*list))
	for _, p := range *list {
		projects = append(projects, model.Project{
			ID:   p.ID,
			Key:  p.Key,
			Name: p.Name,
		})
	}
	return projects, nil
}

func (t *jiraIssueTracker) ListIssueTypes(ctx context.Context, projectKey string) ([]model.IssueType, error) {
	project, resp, err := t.client.Project.GetWithContext(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("fetching jira project %s: %w", projectKey, jira.NewJiraError(resp, err))
	}

	issueTypes := make([]model.IssueType, 0, len(project.IssueTypes))
	for _, it := range project.IssueTypes {
		if it.Subtask {
			continue
		}
		issueTypes = append(issueTypes, model.IssueType{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			IconURL:     it.IconURL,
		})
	}
	return issueTypes, nil
}

func (t *jiraIssueTracker) RequiredFields(ctx context.Context, projectKey string, issueType model.IssueType) ([]model.FieldDescriptor, error) {
	meta, resp, err := t.client.Issue.GetCreateMetaWithOptionsWithContext(ctx, &jira.GetQueryOptions{
		ProjectKeys: projectKey,
		Expand:      "projects.issuetypes.fields",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching jira createmeta: %w", jira.NewJiraError(resp, err))
	}

	for _, p := range meta.Projects {
		if p == nil || p.Key != projectKey {
			continue
		}
		for _, it := range p.IssueTypes {
			if it == nil || (it.Id != issueType.ID && it.Name != issueType.Name) {
				continue
			}
			return requiredFromMeta(it.Fields), nil
		}
	}

	return nil, fmt.Errorf("issue type %q not found in createmeta for project %s", issueType.Name, projectKey)
}

// requiredFromMeta reads the loosely typed createmeta field map. Every entry
// looks like {"required": bool, "name": "...", "schema": {"custom": "..."},
// "allowedValues": [{"id": "...", "name"|"value": "..."}]}.
func requiredFromMeta(fields map[string]interface{}) []model.FieldDescriptor {
	var out []model.FieldDescriptor
	for fieldID, raw := range fields {
		field, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if required, _ := field["required"].(bool); !required {
			continue
		}

		desc := model.FieldDescriptor{ID: fieldID}
		desc.Name, _ = field["name"].(string)
		if schema, ok := field["schema"].(map[string]interface{}); ok {
			_, desc.Custom = schema["custom"]
		}

		if values, ok := field["allowedValues"].([]interface{}); ok {
			for _, v := range values {
				entry, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				av := model.AllowedValue{}
				av.ID, _ = entry["id"].(string)
				av.Name, _ = entry["name"].(string)
				av.Value, _ = entry["value"].(string)
				desc.AllowedValues = append(desc.AllowedValues, av)
			}
		}
		out = append(out, desc)
	}

	sortFields(out)
	return out
}

func (t *jiraIssueTracker) SearchIssues(ctx context.Context, params SearchIssuesParams) ([]model.Candidate, error) {
	jql := buildJQL(params)
	issues, resp, err := t.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
		MaxResults: params.MaxResults,
		Fields:     []string{"summary", "issuetype", "project"},
	})
	if err != nil {
		return nil, fmt.Errorf("searching jira: %w", jira.NewJiraError(resp, err))
	}

	candidates := make([]model.Candidate, 0, len(issues))
	for _, issue := range issues {
		summary := ""
		if issue.Fields != nil {
			summary = issue.Fields.Summary
		}
		candidates = append(candidates, model.Candidate{
			Key:     issue.Key,
			Summary: summary,
			URL:     t.browseURL(issue.Key),
		})
	}
	return candidates, nil
}

func buildJQL(params SearchIssuesParams) string {
	conditions := []string{fmt.Sprintf(`project = "%s"`, escapeJQL(params.ProjectKey))}

	if len(params.IssueTypes) > 0 {
		quoted := make([]string, len(params.IssueTypes))
		for i, it := range params.IssueTypes {
			quoted[i] = `"` + escapeJQL(it) + `"`
		}
		conditions = append(conditions, "issuetype IN ("+strings.Join(quoted, ", ")+")")
	} else {
		conditions = append(conditions, "issuetype IN (Bug, Story, Task)")
	}

	var text []string
	if params.Summary != "" {
		text = append(text, fmt.Sprintf(`summary ~ "%s"`, escapeJQL(params.Summary)))
	}
	for _, term := range params.Terms {
		text = append(text, fmt.Sprintf(`summary ~ "%s"`, escapeJQL(term)))
	}
	if len(text) > 0 {
		conditions = append(conditions, "("+strings.Join(text, " OR ")+")")
	}

	return strings.Join(conditions, " AND ") + " ORDER BY created DESC"
}

func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func (t *jiraIssueTracker) CreateIssue(ctx context.Context, params CreateIssueParams) (*model.CreatedTicket, error) {
	ticket := params.Ticket

	description := ticket.Description
	if params.RequestedBy != "" {
		description = strings.TrimSpace(description + "\n\nRequested via chat by <@" + params.RequestedBy + ">")
	}

	issue := &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: ticket.ProjectKey},
			Type:        jira.IssueType{Name: ticket.IssueTypeName},
			Summary:     ticket.Summary,
			Description: description,
			Unknowns:    dynamicFields(ticket),
		},
	}

	created, resp, err := t.client.Issue.CreateWithContext(ctx, issue)
	if err != nil {
		return nil, fmt.Errorf("creating jira issue: %w", jira.NewJiraError(resp, err))
	}

	return &model.CreatedTicket{
		Key: created.Key,
		ID:  created.ID,
		URL: t.browseURL(created.Key),
	}, nil
}

// dynamicFields shapes the additionally collected values for the create call.
// Option fields carry the allowed value's id, which Jira wants wrapped.
func dynamicFields(ticket model.TicketRequest) map[string]interface{} {
	if len(ticket.Fields) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(ticket.Fields))
	for fieldID, value := range ticket.Fields {
		if model.IsPrecollected(fieldID) {
			continue
		}
		if ticket.IsOptionField(fieldID) {
			out[fieldID] = map[string]string{"id": value}
			continue
		}
		out[fieldID] = value
	}
	return out
}

func (t *jiraIssueTracker) browseURL(key string) string {
	return t.server + "/browse/" + key
}
