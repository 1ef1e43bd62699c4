package conversation

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"basegraph.app/intake/internal/model"
)

const maxCandidatesShown = 3

const (
	msgRephrase         = "I had trouble understanding the details for the ticket. Could you try rephrasing, or be more specific about the summary, description and type (Bug, Task, Story)?"
	msgNoProjects       = "I couldn't find any projects you can file tickets in. Please try again later."
	msgProjectsFailed   = "I couldn't load the list of projects right now. Please try again later."
	msgNoContext        = "Sorry, I couldn't find the context for this action. Please try starting over."
	msgUnknownAction    = "Sorry, I didn't understand that action."
	msgStartOver        = "Something went wrong with this request. Please start over by sending your request again."
	msgCancelled        = "Okay, I've cancelled the ticket creation."
	msgStoreFailed      = "Something went wrong saving your progress. Please try that again."
	msgCreateFailed     = "Sorry, I couldn't create the ticket. You can try confirming again or cancel."
	msgIssueTypesFailed = "I couldn't load the issue types for that project. Please pick it again to retry."
	msgFieldsFailed     = "I couldn't load the required fields for that issue type. Please pick it again to retry."
	msgPickFromOptions  = "Please pick one of the options above, or type `cancel` to stop."
)

func cancelButton() Button {
	return Button{ActionID: ActionCancel, Label: "Cancel", Value: "cancel"}
}

func draftFields(draft model.ParsedDraft) []Field {
	fields := []Field{{Label: "Summary", Value: draft.Summary}}
	if draft.SuggestedType != "" {
		fields = append(fields, Field{Label: "Suggested type", Value: draft.SuggestedType})
	}
	return fields
}

func projectPrompt(p model.ProjectSelection) Message {
	options := make([]Option, 0, len(p.Projects))
	for _, project := range p.Projects {
		label := project.Key
		if project.Name != "" {
			label = fmt.Sprintf("%s (%s)", project.Name, project.Key)
		}
		options = append(options, Option{Label: label, Value: project.Key})
	}

	return Message{
		Text:   "Got it. Which project should this ticket go to?",
		Fields: draftFields(p.Draft),
		Choice: &Choice{
			ActionID:    ActionSelectProject,
			Placeholder: "Select a project",
			Options:     options,
		},
		Buttons: []Button{cancelButton()},
	}
}

func issueTypePrompt(p model.IssueTypeSelection) Message {
	options := make([]Option, 0, len(p.IssueTypes))
	for _, it := range p.IssueTypes {
		options = append(options, Option{Label: it.Name, Value: it.ID})
	}

	return Message{
		Text:   fmt.Sprintf("What type of ticket is this for *%s*?", projectLabel(p.Project)),
		Fields: draftFields(p.Draft),
		Choice: &Choice{
			ActionID:    ActionSelectIssueType,
			Placeholder: "Select an issue type",
			Options:     options,
		},
		Buttons: []Button{cancelButton()},
	}
}

// suggestedFirst moves the issue type the extractor suggested to the front.
func suggestedFirst(types []model.IssueType, suggested string) []model.IssueType {
	if suggested == "" {
		return types
	}
	out := make([]model.IssueType, 0, len(types))
	var rest []model.IssueType
	for _, it := range types {
		if strings.EqualFold(it.Name, suggested) {
			out = append(out, it)
			continue
		}
		rest = append(rest, it)
	}
	return append(out, rest...)
}

func fieldPrompt(f model.FieldInput) Message {
	field, _ := f.Current()
	progress := fmt.Sprintf("(%d of %d)", f.Cursor+1, len(f.Fields))

	choices := field.Choices()
	if len(choices) == 0 {
		return Message{
			Text:    fmt.Sprintf("Please type a value for *%s* %s.", field.DisplayName(), progress),
			Buttons: []Button{cancelButton()},
		}
	}

	options := make([]Option, 0, len(choices))
	for _, v := range choices {
		options = append(options, Option{Label: v.Label(), Value: fieldChoiceValue(field.ID, v.Underlying())})
	}
	return Message{
		Text: fmt.Sprintf("Please choose a value for *%s* %s.", field.DisplayName(), progress),
		Choice: &Choice{
			ActionID:    ActionSelectFieldValue,
			Placeholder: "Select " + field.DisplayName(),
			Options:     options,
		},
		Buttons: []Button{cancelButton()},
	}
}

// Option values for field choices carry the field id so a click on an
// earlier field's menu cannot be taken as an answer to the current one.
func fieldChoiceValue(fieldID, underlying string) string {
	return fieldID + "=" + underlying
}

func parseFieldChoice(field model.FieldDescriptor, submitted string) (string, bool) {
	if fieldID, value, ok := strings.Cut(submitted, "="); ok && fieldID == field.ID {
		return field.Resolve(value)
	}
	return field.Resolve(submitted)
}

func duplicatePrompt(d model.DuplicateCheck) Message {
	return Message{
		Text:       fmt.Sprintf("I found some existing tickets that might be similar to *%s*.", d.Draft.Summary),
		Candidates: d.Candidates,
		Buttons: []Button{
			{ActionID: ActionCreateAnyway, Label: "Create New Ticket Anyway", Value: "create_anyway", Primary: true},
			cancelButton(),
		},
	}
}

func confirmPrompt(r model.ReadyToCreate) Message {
	t := r.Ticket
	fields := []Field{
		{Label: "Project", Value: t.ProjectKey},
		{Label: "Type", Value: t.IssueTypeName},
		{Label: "Summary", Value: t.Summary},
	}
	for _, id := range slices.Sorted(maps.Keys(t.Fields)) {
		fields = append(fields, Field{Label: id, Value: t.Fields[id]})
	}

	return Message{
		Text:   "Please review and confirm the details for the new ticket:",
		Fields: fields,
		Detail: t.Description,
		Buttons: []Button{
			{ActionID: ActionConfirm, Label: "Confirm & Create Ticket", Value: "confirm", Primary: true},
			cancelButton(),
		},
	}
}

func createdMessage(c model.Created) Message {
	return Message{
		Text: fmt.Sprintf("Done! I've created ticket <%s|%s> for you.", c.Ticket.URL, c.Ticket.Key),
	}
}

func duplicateMessage(key string) Message {
	return Message{
		Text: fmt.Sprintf("Okay, I've noted that this is a duplicate of %s. I won't create a new ticket.", key),
	}
}

func issueTypesUnavailable(project model.Project) Message {
	return Message{
		Text: fmt.Sprintf("I couldn't find any issue types for *%s*. Please start over.", projectLabel(project)),
	}
}

func reminder(summary string) Message {
	return Message{
		Text: fmt.Sprintf("You already have a ticket in progress for *%s*. Use the options above, or type `cancel` to stop.", summary),
	}
}

func projectLabel(p model.Project) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Key
}
