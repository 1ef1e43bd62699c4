package issue_tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"basegraph.app/intake/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type gitlabProject struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	NameWithNamespace string `json:"name_with_namespace"`
	PathWithNamespace string `json:"path_with_namespace"`
}

type gitlabIssue struct {
	ID     int64  `json:"id"`
	IID    int64  `json:"iid"`
	Title  string `json:"title"`
	WebURL string `json:"web_url"`
}

type gitlabAPIMock struct {
	server   *httptest.Server
	projects []gitlabProject
	issues   []gitlabIssue

	mu         sync.Mutex
	lastQuery  map[string]string
	lastCreate map[string]any
}

func (m *gitlabAPIMock) start() {
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v4/projects" && r.Method == http.MethodGet:
			m.handleListProjects(w, r)
		case strings.HasSuffix(r.URL.Path, "/issues") && r.Method == http.MethodGet:
			m.mu.Lock()
			m.lastQuery = map[string]string{
				"search":     r.URL.Query().Get("search"),
				"issue_type": r.URL.Query().Get("issue_type"),
			}
			m.mu.Unlock()
			_ = json.NewEncoder(w).Encode(m.issues)
		case strings.HasSuffix(r.URL.Path, "/issues") && r.Method == http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			m.mu.Lock()
			m.lastCreate = body
			m.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(gitlabIssue{ID: 900, IID: 12, Title: "x", WebURL: "http://git/g/p1/-/issues/12"})
		default:
			http.NotFound(w, r)
		}
	}))
}

func (m *gitlabAPIMock) handleListProjects(w http.ResponseWriter, r *http.Request) {
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if pageNum == 0 {
		pageNum = 1
	}
	// One project per page to exercise pagination.
	if pageNum > len(m.projects) {
		_ = json.NewEncoder(w).Encode([]gitlabProject{})
		return
	}
	if pageNum < len(m.projects) {
		w.Header().Set("X-Next-Page", strconv.Itoa(pageNum+1))
	}
	_ = json.NewEncoder(w).Encode(m.projects[pageNum-1 : pageNum])
}

var _ = Describe("gitLabIssueTracker", func() {
	var (
		ctx     context.Context
		mock    *gitlabAPIMock
		tracker IssueTracker
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &gitlabAPIMock{
			projects: []gitlabProject{
				{ID: 1, Name: "p1", NameWithNamespace: "G / p1", PathWithNamespace: "g/p1"},
				{ID: 2, Name: "p2", NameWithNamespace: "G / p2", PathWithNamespace: "g/p2"},
			},
		}
		mock.start()

		var err error
		tracker, err = NewGitLabIssueTracker(GitLabConfig{BaseURL: mock.server.URL, Token: "token"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mock.server.Close()
	})

	It("requires a token", func() {
		_, err := NewGitLabIssueTracker(GitLabConfig{})
		Expect(err).To(MatchError(ErrNotConfigured))
	})

	It("lists member projects across pages", func() {
		projects, err := tracker.ListProjects(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(Equal([]model.Project{
			{ID: "1", Key: "g/p1", Name: "G / p1"},
			{ID: "2", Key: "g/p2", Name: "G / p2"},
		}))
	})

	It("offers the fixed issue types and no required fields", func() {
		types, err := tracker.ListIssueTypes(ctx, "g/p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(types).To(HaveLen(3))

		fields, err := tracker.RequiredFields(ctx, "g/p1", types[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(BeEmpty())
	})

	It("searches issues by summary and caps the result count", func() {
		mock.issues = []gitlabIssue{
			{ID: 1, IID: 3, Title: "Login broken", WebURL: "http://git/3"},
			{ID: 2, IID: 4, Title: "Login slow", WebURL: "http://git/4"},
		}

		candidates, err := tracker.SearchIssues(ctx, SearchIssuesParams{
			ProjectKey: "g/p1",
			IssueTypes: []string{"incident"},
			Summary:    "Login broken",
			MaxResults: 1,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(Equal([]model.Candidate{{Key: "#3", Summary: "Login broken", URL: "http://git/3"}}))
		Expect(mock.lastQuery).To(HaveKeyWithValue("search", "Login broken"))
		Expect(mock.lastQuery).To(HaveKeyWithValue("issue_type", "incident"))
	})

	It("creates an issue", func() {
		created, err := tracker.CreateIssue(ctx, CreateIssueParams{
			Ticket: model.TicketRequest{ProjectKey: "g/p1", IssueTypeName: "task", Summary: "Add export", Description: "CSV export"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(Equal(&model.CreatedTicket{Key: "#12", ID: "900", URL: "http://git/g/p1/-/issues/12"}))
		Expect(mock.lastCreate).To(HaveKeyWithValue("title", "Add export"))
		Expect(mock.lastCreate).To(HaveKeyWithValue("issue_type", "task"))
	})
})
