package model

import (
	"errors"
	"fmt"
	"time"
)

// Stage names the step a conversation is waiting on.
type Stage string

const (
	StageNone               Stage = ""
	StageParsed             Stage = "parsed"
	StageProjectSelection   Stage = "project_selection"
	StageIssueTypeSelection Stage = "issue_type_selection"
	StageFieldInput         Stage = "field_input"
	StageDuplicateCheck     Stage = "duplicate_check"
	StageReadyToCreate      Stage = "ready_to_create"
	StageCreated            Stage = "created"
)

var ErrStageMismatch = errors.New("stage does not match payload")

// Payload is the stage-specific data of a session. The set of
// implementations is closed; each stage has exactly one.
type Payload interface {
	Stage() Stage
	payload()
}

// ParsedDraft is what the language model made of the user's request.
type ParsedDraft struct {
	Identity      Identity `json:"identity"`
	RawText       string   `json:"raw_text"`
	Summary       string   `json:"summary"`
	Description   string   `json:"description"`
	SuggestedType string   `json:"suggested_type"`
}

type ProjectSelection struct {
	Draft    ParsedDraft `json:"draft"`
	Projects []Project   `json:"projects"`
}

type IssueTypeSelection struct {
	Draft      ParsedDraft `json:"draft"`
	Project    Project     `json:"project"`
	IssueTypes []IssueType `json:"issue_types"`
}

// FieldInput walks the user through the tracker's remaining required fields
// one at a time. Cursor indexes Fields; Values is keyed by field id.
type FieldInput struct {
	Draft        ParsedDraft       `json:"draft"`
	Project      Project           `json:"project"`
	IssueType    IssueType         `json:"issue_type"`
	Fields       []FieldDescriptor `json:"fields"`
	Cursor       int               `json:"cursor"`
	Values       map[string]string `json:"values"`
	OptionFields []string          `json:"option_fields,omitempty"`
}

// Current returns the field at the cursor.
func (f FieldInput) Current() (FieldDescriptor, bool) {
	if f.Cursor < 0 || f.Cursor >= len(f.Fields) {
		return FieldDescriptor{}, false
	}
	return f.Fields[f.Cursor], true
}

type DuplicateCheck struct {
	Draft         ParsedDraft       `json:"draft"`
	Project       Project           `json:"project"`
	IssueType     IssueType         `json:"issue_type"`
	Values        map[string]string `json:"values,omitempty"`
	OptionFields  []string          `json:"option_fields,omitempty"`
	Candidates    []Candidate       `json:"candidates"`
	HasCandidates bool              `json:"has_candidates"`
}

// HasCandidate reports whether key was offered as a possible duplicate.
func (d DuplicateCheck) HasCandidate(key string) bool {
	for _, c := range d.Candidates {
		if c.Key == key {
			return true
		}
	}
	return false
}

type ReadyToCreate struct {
	Identity Identity      `json:"identity"`
	Ticket   TicketRequest `json:"ticket"`
}

type Created struct {
	Identity Identity      `json:"identity"`
	Ticket   CreatedTicket `json:"ticket"`
}

func (ParsedDraft) Stage() Stage        { return StageParsed }
func (ProjectSelection) Stage() Stage   { return StageProjectSelection }
func (IssueTypeSelection) Stage() Stage { return StageIssueTypeSelection }
func (FieldInput) Stage() Stage         { return StageFieldInput }
func (DuplicateCheck) Stage() Stage     { return StageDuplicateCheck }
func (ReadyToCreate) Stage() Stage      { return StageReadyToCreate }
func (Created) Stage() Stage            { return StageCreated }

func (ParsedDraft) payload()        {}
func (ProjectSelection) payload()   {}
func (IssueTypeSelection) payload() {}
func (FieldInput) payload()         {}
func (DuplicateCheck) payload()     {}
func (ReadyToCreate) payload()      {}
func (Created) payload()            {}

// Session is one user's in-flight intake conversation.
type Session struct {
	ID        int64     `json:"id"`
	Identity  Identity  `json:"identity"`
	Stage     Stage     `json:"stage"`
	Payload   Payload   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id int64, identity Identity, payload Payload, now time.Time) *Session {
	return &Session{
		ID:        id,
		Identity:  identity,
		Stage:     payload.Stage(),
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance replaces the payload wholesale and moves the stage tag with it.
func (s *Session) Advance(payload Payload, now time.Time) {
	s.Payload = payload
	s.Stage = payload.Stage()
	s.UpdatedAt = now
}

func (s *Session) Validate() error {
	if s == nil {
		return errors.New("nil session")
	}
	if s.Identity.IsZero() {
		return errors.New("session has no identity")
	}
	if s.Payload == nil {
		return fmt.Errorf("%w: stage %q has no payload", ErrStageMismatch, s.Stage)
	}
	if s.Payload.Stage() != s.Stage {
		return fmt.Errorf("%w: stage %q, payload %q", ErrStageMismatch, s.Stage, s.Payload.Stage())
	}
	return nil
}
