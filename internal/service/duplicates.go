package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"basegraph.app/intake/common"
	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
	"golang.org/x/sync/errgroup"
)

const (
	maxSearchTerms     = 5
	scoringParallelism = 4
)

type DuplicateQuery struct {
	Project     model.Project
	IssueType   model.IssueType
	Summary     string
	Description string
}

// DuplicateFinder looks for existing tickets similar to a new request.
// An empty result is not an error.
type DuplicateFinder interface {
	Find(ctx context.Context, query DuplicateQuery) ([]model.Candidate, error)
}

type DuplicateFinderConfig struct {
	MaxResults int
	// Scoring asks the language model to rate each hit; hits below
	// Threshold are dropped.
	Scoring   bool
	Threshold float64
	Timeout   time.Duration
}

type SimilarityScore struct {
	Score float64 `json:"score" jsonschema_description:"Semantic similarity between 0.0 and 1.0"`
}

var similarityScoreSchema = llm.GenerateSchema[SimilarityScore]()

const similaritySystemPrompt = `You compare issue tracker tickets.
On a scale of 0.0 to 1.0, rate how semantically similar the two issue descriptions are.
Respond with a JSON object {"score": <float>} only.`

type duplicateFinder struct {
	tracker issue_tracker.IssueTracker
	llm     llm.Client
	cfg     DuplicateFinderConfig
}

// NewDuplicateFinder builds a finder. client may be nil when scoring is off.
func NewDuplicateFinder(tracker issue_tracker.IssueTracker, client llm.Client, cfg DuplicateFinderConfig) DuplicateFinder {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &duplicateFinder{tracker: tracker, llm: client, cfg: cfg}
}

func (f *duplicateFinder) Find(ctx context.Context, query DuplicateQuery) ([]model.Candidate, error) {
	params := issue_tracker.SearchIssuesParams{
		ProjectKey: query.Project.Key,
		Summary:    query.Summary,
		Terms:      common.SearchTerms(query.Summary, maxSearchTerms),
		MaxResults: f.cfg.MaxResults,
	}
	if query.IssueType.Name != "" {
		params.IssueTypes = []string{query.IssueType.Name}
	}

	searchCtx, cancel := withTimeout(ctx, f.cfg.Timeout)
	candidates, err := f.tracker.SearchIssues(searchCtx, params)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("searching for duplicates: %w", err)
	}

	if !f.cfg.Scoring || f.llm == nil || len(candidates) == 0 {
		return candidates, nil
	}

	return f.score(ctx, query, candidates), nil
}

// score rates candidates against the request. Candidates that cannot be
// scored are dropped; if nothing clears the threshold the unscored search
// results are returned as they came.
func (f *duplicateFinder) score(ctx context.Context, query DuplicateQuery, candidates []model.Candidate) []model.Candidate {
	scores := make([]*float64, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoringParallelism)
	for i, c := range candidates {
		g.Go(func() error {
			s, err := f.scoreOne(gctx, query, c)
			if err != nil {
				slog.WarnContext(gctx, "similarity scoring failed", "candidate", c.Key, "error", err)
				return nil
			}
			scores[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	var scored []model.Candidate
	for i, c := range candidates {
		if scores[i] == nil || *scores[i] < f.cfg.Threshold {
			continue
		}
		c.Score = scores[i]
		scored = append(scored, c)
	}

	if len(scored) == 0 {
		return candidates
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Score > *scored[j].Score
	})
	return scored
}

func (f *duplicateFinder) scoreOne(ctx context.Context, query DuplicateQuery, c model.Candidate) (float64, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	description := query.Description
	if description == "" {
		description = query.Summary
	}

	var out SimilarityScore
	_, err := f.llm.Chat(ctx, llm.Request{
		SystemPrompt: similaritySystemPrompt,
		UserPrompt:   fmt.Sprintf("Description 1: %q\nDescription 2: %q", description, c.Summary),
		SchemaName:   "similarity_score",
		Schema:       similarityScoreSchema,
		MaxTokens:    50,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return 0, err
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("score %v out of range", out.Score)
	}
	return out.Score, nil
}
