package model

import "slices"

// Fields the intake flow always fills on its own. Trackers that report them
// as required must not trigger a prompt.
var PrecollectedFields = []string{"summary", "description", "project", "issuetype", "reporter"}

func IsPrecollected(fieldID string) bool {
	return slices.Contains(PrecollectedFields, fieldID)
}

// Project is a top-level tracker container a ticket can be filed under.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type IssueType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
}

// AllowedValue is one option of an enumerated tracker field. Trackers fill
// these three attributes inconsistently, so Label and Underlying pick the
// first one present.
type AllowedValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Label is what the user sees.
func (v AllowedValue) Label() string {
	return firstNonEmpty(v.Name, v.Value, v.ID)
}

// Underlying is what gets sent to the tracker.
func (v AllowedValue) Underlying() string {
	return firstNonEmpty(v.ID, v.Value, v.Name)
}

type FieldDescriptor struct {
	ID            string         `json:"field_id"`
	Name          string         `json:"name"`
	Custom        bool           `json:"is_custom"`
	AllowedValues []AllowedValue `json:"allowed_values,omitempty"`
}

// Choices returns the allowed values that can be rendered as options.
// An empty result means the field is answered with free text.
func (f FieldDescriptor) Choices() []AllowedValue {
	var choices []AllowedValue
	for _, v := range f.AllowedValues {
		if v.Label() == "" || v.Underlying() == "" {
			continue
		}
		choices = append(choices, v)
	}
	return choices
}

// Resolve maps a submitted option value back to the underlying tracker value.
func (f FieldDescriptor) Resolve(submitted string) (string, bool) {
	for _, v := range f.Choices() {
		if v.Underlying() == submitted {
			return v.Underlying(), true
		}
	}
	return "", false
}

func (f FieldDescriptor) DisplayName() string {
	return firstNonEmpty(f.Name, f.ID)
}

// Candidate is an existing ticket that may duplicate the new request.
type Candidate struct {
	Key     string   `json:"key"`
	Summary string   `json:"summary"`
	URL     string   `json:"url"`
	Score   *float64 `json:"score,omitempty"`
}

// TicketRequest is the fully assembled creation payload.
type TicketRequest struct {
	ProjectKey    string            `json:"project_key"`
	IssueTypeName string            `json:"issue_type_name"`
	Summary       string            `json:"summary"`
	Description   string            `json:"description"`
	Reporter      string            `json:"reporter,omitempty"`
	Fields        map[string]string `json:"dynamic_fields,omitempty"`
	OptionFields  []string          `json:"option_fields,omitempty"`
}

// FieldMap returns every field the ticket will be created with, keyed by
// tracker field id.
func (t TicketRequest) FieldMap() map[string]string {
	out := make(map[string]string, len(t.Fields)+2)
	for k, v := range t.Fields {
		out[k] = v
	}
	out["summary"] = t.Summary
	out["description"] = t.Description
	return out
}

func (t TicketRequest) IsOptionField(fieldID string) bool {
	return slices.Contains(t.OptionFields, fieldID)
}

type CreatedTicket struct {
	Key string `json:"key"`
	ID  string `json:"id"`
	URL string `json:"url"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
