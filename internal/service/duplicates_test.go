package service_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
	"basegraph.app/intake/internal/service/issue_tracker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DuplicateFinder", func() {
	var (
		ctx     context.Context
		tracker *mockIssueTracker
		client  *mockLLM
		query   service.DuplicateQuery
		hits    []model.Candidate
	)

	BeforeEach(func() {
		ctx = context.Background()
		hits = []model.Candidate{
			{Key: "ENG-1", Summary: "Login page slow"},
			{Key: "ENG-2", Summary: "Login button broken on mobile"},
			{Key: "ENG-3", Summary: "Update footer copy"},
		}
		tracker = &mockIssueTracker{
			searchIssuesFn: func(context.Context, issue_tracker.SearchIssuesParams) ([]model.Candidate, error) {
				return hits, nil
			},
		}
		client = &mockLLM{}
		query = service.DuplicateQuery{
			Project:     model.Project{Key: "ENG"},
			IssueType:   model.IssueType{Name: "Bug"},
			Summary:     "The login button is broken on mobile",
			Description: "Tapping login on iOS does nothing",
		}
	})

	It("searches the chosen project and issue type", func() {
		var got issue_tracker.SearchIssuesParams
		tracker.searchIssuesFn = func(_ context.Context, params issue_tracker.SearchIssuesParams) ([]model.Candidate, error) {
			got = params
			return nil, nil
		}

		finder := service.NewDuplicateFinder(tracker, nil, service.DuplicateFinderConfig{MaxResults: 7})
		candidates, err := finder.Find(ctx, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(BeEmpty())
		Expect(got).To(Equal(issue_tracker.SearchIssuesParams{
			ProjectKey: "ENG",
			IssueTypes: []string{"Bug"},
			Summary:    "The login button is broken on mobile",
			Terms:      []string{"login", "button", "broken", "mobile"},
			MaxResults: 7,
		}))
	})

	It("returns the search results untouched when scoring is off", func() {
		finder := service.NewDuplicateFinder(tracker, client, service.DuplicateFinderConfig{})
		candidates, err := finder.Find(ctx, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(Equal(hits))
		Expect(client.calls()).To(BeZero())
	})

	It("reports search failures", func() {
		tracker.searchIssuesFn = func(context.Context, issue_tracker.SearchIssuesParams) ([]model.Candidate, error) {
			return nil, errors.New("jql error")
		}
		finder := service.NewDuplicateFinder(tracker, nil, service.DuplicateFinderConfig{})
		_, err := finder.Find(ctx, query)
		Expect(err).To(MatchError(ContainSubstring("searching for duplicates")))
	})

	Context("with scoring", func() {
		var finder service.DuplicateFinder

		BeforeEach(func() {
			finder = service.NewDuplicateFinder(tracker, client, service.DuplicateFinderConfig{
				Scoring:   true,
				Threshold: 0.6,
				Timeout:   time.Second,
			})
		})

		It("keeps candidates above the threshold, best first", func() {
			client.chatFn = func(_ context.Context, req llm.Request) (string, error) {
				switch {
				case strings.Contains(req.UserPrompt, "Login page slow"):
					return `{"score":0.65}`, nil
				case strings.Contains(req.UserPrompt, "Login button broken"):
					return `{"score":0.9}`, nil
				default:
					return `{"score":0.1}`, nil
				}
			}

			candidates, err := finder.Find(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(HaveLen(2))
			Expect(candidates[0].Key).To(Equal("ENG-2"))
			Expect(*candidates[0].Score).To(BeNumerically("~", 0.9))
			Expect(candidates[1].Key).To(Equal("ENG-1"))
		})

		It("falls back to the search results when nothing clears the threshold", func() {
			client.chatFn = func(context.Context, llm.Request) (string, error) {
				return `{"score":0.2}`, nil
			}

			candidates, err := finder.Find(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(Equal(hits))
		})

		It("ignores candidates whose scoring fails", func() {
			client.chatFn = func(_ context.Context, req llm.Request) (string, error) {
				if strings.Contains(req.UserPrompt, "Update footer copy") {
					return `{"score":0.99}`, nil
				}
				if strings.Contains(req.UserPrompt, "Login page slow") {
					return `{"score":7}`, nil
				}
				return "", errors.New("rate limited")
			}

			candidates, err := finder.Find(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(candidates).To(HaveLen(1))
			Expect(candidates[0].Key).To(Equal("ENG-3"))
		})
	})
})
