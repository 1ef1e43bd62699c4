package conversation

import (
	"strings"

	"basegraph.app/intake/internal/model"
)

// EventKind is what an inbound interaction asks the machine to do.
type EventKind string

const (
	EventText             EventKind = "text"
	EventSelectProject    EventKind = "select_project"
	EventSelectIssueType  EventKind = "select_issue_type"
	EventSelectFieldValue EventKind = "select_field_value"
	EventCreateAnyway     EventKind = "create_anyway"
	EventMarkDuplicate    EventKind = "mark_duplicate"
	EventCancel           EventKind = "cancel"
	EventConfirm          EventKind = "confirm"
	EventUnknown          EventKind = "unknown"
)

// Action ids put on interactive elements. Clicks come back carrying one of
// these.
const (
	ActionSelectProject    = "select_project_action"
	ActionSelectIssueType  = "select_issue_type_action"
	ActionSelectFieldValue = "select_field_value_action"
	ActionCreateAnyway     = "create_anyway_action"
	ActionMarkDuplicate    = "mark_duplicate_action"
	ActionCancel           = "cancel_action"
	ActionConfirm          = "confirm_create_action"
)

var actionKinds = map[string]EventKind{
	ActionSelectProject:    EventSelectProject,
	ActionSelectIssueType:  EventSelectIssueType,
	ActionSelectFieldValue: EventSelectFieldValue,
	ActionCreateAnyway:     EventCreateAnyway,
	ActionMarkDuplicate:    EventMarkDuplicate,
	ActionCancel:           EventCancel,
	ActionConfirm:          EventConfirm,

	// Ids used by messages posted before the rename. They may still be
	// clicked in old conversations.
	"select_jira_project_action":    EventSelectProject,
	"select_jira_issue_type_action": EventSelectIssueType,
	"create_new_ticket_anyway":      EventCreateAnyway,
	"mark_duplicate":                EventMarkDuplicate,
	"cancel_creation_similarity":    EventCancel,
	"cancel_creation_confirmation":  EventCancel,
	"confirm_create_ticket_action":  EventConfirm,
}

// KindForAction maps an action id to its event kind. Unrecognized ids map to
// EventUnknown.
func KindForAction(actionID string) EventKind {
	if kind, ok := actionKinds[actionID]; ok {
		return kind
	}
	return EventUnknown
}

// Event is one inbound interaction, already stripped of platform details.
type Event struct {
	Identity model.Identity
	Kind     EventKind
	// Value is the typed text for EventText and the selected option or
	// button value for actions.
	Value    string
	ActionID string
	// MessageRef points at the message an action was clicked on, so the
	// reply can replace it. Empty for text events.
	MessageRef string
}

func TextEvent(identity model.Identity, text string) Event {
	return Event{Identity: identity, Kind: EventText, Value: text}
}

func ActionEvent(identity model.Identity, actionID, value, messageRef string) Event {
	return Event{
		Identity:   identity,
		Kind:       KindForAction(actionID),
		Value:      value,
		ActionID:   actionID,
		MessageRef: messageRef,
	}
}

// isCancelText reports whether a typed message asks to abandon the flow.
func isCancelText(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "cancel":
		return true
	default:
		return false
	}
}
