package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
)

// ErrExtraction means the language model gave nothing usable for the request.
var ErrExtraction = errors.New("could not extract ticket details")

type TicketExtractor interface {
	Extract(ctx context.Context, identity model.Identity, text string) (*model.ParsedDraft, error)
}

type ExtractedTicket struct {
	Summary     string `json:"summary" jsonschema_description:"One-line ticket title"`
	Description string `json:"description" jsonschema_description:"Fuller description of the request; repeat the summary if the user gave no more detail"`
	IssueType   string `json:"issueType" jsonschema:"enum=Bug,enum=Task,enum=Story" jsonschema_description:"Suggested issue type"`
}

var extractedTicketSchema = llm.GenerateSchema[ExtractedTicket]()

const extractorSystemPrompt = `You help people file tickets in an issue tracker.
Extract the summary, description, and suggested issue type from the user's request.
The issue type must be one of: Bug, Task, Story.
If the description is short or missing, use the summary as the description or elaborate slightly.
Respond with a JSON object with keys "summary", "description" and "issueType" only.`

type ticketExtractor struct {
	llm     llm.Client
	timeout time.Duration
}

func NewTicketExtractor(client llm.Client, timeout time.Duration) TicketExtractor {
	return &ticketExtractor{llm: client, timeout: timeout}
}

func (e *ticketExtractor) Extract(ctx context.Context, identity model.Identity, text string) (*model.ParsedDraft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty request", ErrExtraction)
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	var out ExtractedTicket
	start := time.Now()
	_, err := e.llm.Chat(ctx, llm.Request{
		SystemPrompt: extractorSystemPrompt,
		UserPrompt:   fmt.Sprintf("User request: %q", text),
		SchemaName:   "extracted_ticket",
		Schema:       extractedTicketSchema,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrExtraction)
	}
	description := strings.TrimSpace(out.Description)
	if description == "" {
		description = summary
	}

	slog.InfoContext(ctx, "ticket details extracted",
		"issue_type", out.IssueType,
		"latency_ms", time.Since(start).Milliseconds())

	return &model.ParsedDraft{
		Identity:      identity,
		RawText:       text,
		Summary:       summary,
		Description:   description,
		SuggestedType: strings.TrimSpace(out.IssueType),
	}, nil
}

// withTimeout bounds a collaborator call. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
