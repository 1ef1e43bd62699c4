package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
	"basegraph.app/intake/internal/store"
)

// Deps are the collaborators of the machine. Clock and NewID default to
// time.Now and snowflake ids.
type Deps struct {
	Sessions store.SessionStore
	Locker   store.Locker
	Outcomes store.OutcomeStore

	Extractor  service.TicketExtractor
	Catalog    service.ProjectCatalog
	IssueTypes service.IssueTypeLister
	Fields     service.FieldResolver
	Duplicates service.DuplicateFinder
	Creator    service.TicketCreator

	Messenger Messenger

	Clock func() time.Time
	NewID func() int64
}

// Machine drives intake conversations. Each call to Handle is one inbound
// event; state between events lives only in the session store.
type Machine struct {
	deps  Deps
	table map[transitionKey]transition
}

func NewMachine(deps Deps) *Machine {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = id.New
	}
	if deps.Outcomes == nil {
		deps.Outcomes = store.NewNopOutcomeStore()
	}
	if deps.Locker == nil {
		deps.Locker = store.NewKeyedMutex()
	}

	m := &Machine{deps: deps}
	m.table = m.transitions()
	return m
}

// Handle runs one event to completion. Every collaborator failure is turned
// into a reply and reported in the returned Outcome; nothing is returned as
// an error.
func (m *Machine) Handle(ctx context.Context, ev Event) Outcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(ev.Identity.UserID),
		ChannelID: logger.Ptr(ev.Identity.ChannelID),
		EventKind: logger.Ptr(string(ev.Kind)),
		Component: "intake.conversation",
	})

	if ev.Identity.IsZero() {
		slog.WarnContext(ctx, "event without identity dropped")
		return Outcome{Status: StatusIgnored}
	}

	unlock, err := m.deps.Locker.Lock(ctx, ev.Identity.Key())
	if err != nil {
		slog.ErrorContext(ctx, "failed to lock conversation", "error", err)
		m.reply(ctx, ev, Message{Text: msgStoreFailed})
		return Outcome{Status: StatusRetry, Err: err}
	}
	defer unlock()

	sess, err := m.deps.Sessions.Get(ctx, ev.Identity)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		sess = nil
	case errors.Is(err, store.ErrSessionCorrupt):
		return m.reset(ctx, ev, nil, err)
	case err != nil:
		slog.ErrorContext(ctx, "failed to load session", "error", err)
		m.reply(ctx, ev, Message{Text: msgStoreFailed})
		return Outcome{Status: StatusRetry, Err: err}
	}

	stage := model.StageNone
	if sess != nil {
		stage = sess.Stage
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			SessionID: logger.Ptr(sess.ID),
			Stage:     logger.Ptr(string(stage)),
		})
	}

	kind := ev.Kind
	if kind == EventText && sess != nil && isCancelText(ev.Value) && !awaitsOpenText(sess) {
		kind = EventCancel
	}

	if kind == EventUnknown {
		slog.WarnContext(ctx, "unrecognized action", "action_id", ev.ActionID)
		m.reply(ctx, ev, Message{Text: msgUnknownAction})
		return Outcome{Status: StatusIgnored, From: stage, To: stage}
	}

	t, ok := m.table[transitionKey{stage: stage, kind: kind}]
	if !ok {
		return m.unmatched(ctx, ev, sess, kind)
	}

	outcome := t(ctx, ev, sess)
	outcome.From = stage

	slog.InfoContext(ctx, "event handled",
		"status", outcome.Status,
		"to_stage", outcome.To)

	return outcome
}

// unmatched is the single fallback for (stage, kind) pairs with no
// transition. State is never touched here.
func (m *Machine) unmatched(ctx context.Context, ev Event, sess *model.Session, kind EventKind) Outcome {
	if sess == nil {
		slog.InfoContext(ctx, "action without a session", "action_id", ev.ActionID)
		m.reply(ctx, ev, Message{Text: msgNoContext})
		return Outcome{Status: StatusIgnored}
	}

	if kind == EventText {
		m.reply(ctx, ev, m.reminderFor(sess))
	} else {
		slog.InfoContext(ctx, "event does not apply to current stage", "action_id", ev.ActionID, "value", ev.Value)
	}
	return Outcome{Status: StatusIgnored, From: sess.Stage, To: sess.Stage}
}

func (m *Machine) reminderFor(sess *model.Session) Message {
	if draft, ok := draftOf(sess.Payload); ok {
		return reminder(draft.Summary)
	}
	if r, ok := sess.Payload.(model.ReadyToCreate); ok {
		return reminder(r.Ticket.Summary)
	}
	return Message{Text: msgPickFromOptions}
}

// reset drops a session that cannot be trusted and tells the user to start
// over.
func (m *Machine) reset(ctx context.Context, ev Event, sess *model.Session, cause error) Outcome {
	slog.ErrorContext(ctx, "discarding unreadable session", "error", cause)

	if err := m.deps.Sessions.Remove(ctx, ev.Identity); err != nil {
		slog.ErrorContext(ctx, "failed to remove session", "error", err)
	}
	if sess != nil {
		m.record(ctx, sess, model.OutcomeAbandoned, nil)
	}
	m.reply(ctx, ev, Message{Text: msgStartOver})

	return Outcome{Status: StatusReset, To: model.StageNone, Err: cause}
}

// save stores sess after moving it to payload. On failure the user is asked
// to retry and the previous state is kept.
func (m *Machine) save(ctx context.Context, ev Event, sess *model.Session, payload model.Payload) error {
	sess.Advance(payload, m.deps.Clock())
	if err := m.deps.Sessions.Put(ctx, sess); err != nil {
		slog.ErrorContext(ctx, "failed to store session", "error", err)
		m.reply(ctx, ev, Message{Text: msgStoreFailed})
		return err
	}
	return nil
}

// end removes the session and records how it ended.
func (m *Machine) end(ctx context.Context, sess *model.Session, kind model.OutcomeKind, ticketKey *string) {
	if err := m.deps.Sessions.Remove(ctx, sess.Identity); err != nil {
		slog.ErrorContext(ctx, "failed to remove session", "error", err)
	}
	m.record(ctx, sess, kind, ticketKey)
}

func (m *Machine) record(ctx context.Context, sess *model.Session, kind model.OutcomeKind, ref *string) {
	outcome := &model.Outcome{
		ID:        m.deps.NewID(),
		SessionID: sess.ID,
		Identity:  sess.Identity,
		Kind:      kind,
		Stage:     sess.Stage,
		CreatedAt: m.deps.Clock(),
	}

	if draft, ok := draftOf(sess.Payload); ok {
		outcome.Summary = draft.Summary
	}
	if project, ok := projectOf(sess.Payload); ok {
		outcome.ProjectKey = logger.Ptr(project.Key)
	}
	if it, ok := issueTypeOf(sess.Payload); ok {
		outcome.IssueType = logger.Ptr(it.Name)
	}
	if r, ok := sess.Payload.(model.ReadyToCreate); ok {
		outcome.Summary = r.Ticket.Summary
		outcome.ProjectKey = logger.Ptr(r.Ticket.ProjectKey)
		outcome.IssueType = logger.Ptr(r.Ticket.IssueTypeName)
	}

	switch kind {
	case model.OutcomeCreated:
		outcome.TicketKey = ref
	case model.OutcomeDuplicate:
		outcome.DuplicateOf = ref
	}

	if err := m.deps.Outcomes.Record(ctx, outcome); err != nil {
		slog.WarnContext(ctx, "failed to record outcome", "kind", kind, "error", err)
	}
}

// reply answers ev. Clicks replace the message they came from so its
// controls cannot be used again; everything else is posted.
func (m *Machine) reply(ctx context.Context, ev Event, msg Message) {
	channel := ev.Identity.ChannelID
	if ev.MessageRef != "" {
		err := m.deps.Messenger.Update(ctx, channel, ev.MessageRef, msg)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "failed to update message, posting instead", "error", err)
	}
	if _, err := m.deps.Messenger.Post(ctx, channel, msg); err != nil {
		slog.ErrorContext(ctx, "failed to post message", "error", err)
	}
}

// awaitsOpenText reports whether typed text would be taken as the answer to
// a free-text field, in which case it is never read as a command.
func awaitsOpenText(sess *model.Session) bool {
	p, ok := sess.Payload.(model.FieldInput)
	if !ok {
		return false
	}
	field, ok := p.Current()
	return ok && len(field.Choices()) == 0
}

// payloadAs asserts the stored payload type. A mismatch means the stored
// session disagrees with the transition table and is treated as unreadable.
func payloadAs[T model.Payload](sess *model.Session) (T, error) {
	p, ok := sess.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: stage %q holds %T, want %T", model.ErrStageMismatch, sess.Stage, sess.Payload, zero)
	}
	return p, nil
}

func draftOf(p model.Payload) (model.ParsedDraft, bool) {
	switch v := p.(type) {
	case model.ParsedDraft:
		return v, true
	case model.ProjectSelection:
		return v.Draft, true
	case model.IssueTypeSelection:
		return v.Draft, true
	case model.FieldInput:
		return v.Draft, true
	case model.DuplicateCheck:
		return v.Draft, true
	default:
		return model.ParsedDraft{}, false
	}
}

func projectOf(p model.Payload) (model.Project, bool) {
	switch v := p.(type) {
	case model.IssueTypeSelection:
		return v.Project, true
	case model.FieldInput:
		return v.Project, true
	case model.DuplicateCheck:
		return v.Project, true
	default:
		return model.Project{}, false
	}
}

func issueTypeOf(p model.Payload) (model.IssueType, bool) {
	switch v := p.(type) {
	case model.FieldInput:
		return v.IssueType, true
	case model.DuplicateCheck:
		return v.IssueType, true
	default:
		return model.IssueType{}, false
	}
}
