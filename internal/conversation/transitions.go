package conversation

import (
	"context"
	"log/slog"
	"maps"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
)

type transitionKey struct {
	stage model.Stage
	kind  EventKind
}

// transition handles one (stage, kind) pair. sess is nil only for
// model.StageNone.
type transition func(ctx context.Context, ev Event, sess *model.Session) Outcome

// pendingStages are the stages a stored session can be in. Parsed is
// never stored and Created is cleared as soon as it is reached.
var pendingStages = []model.Stage{
	model.StageProjectSelection,
	model.StageIssueTypeSelection,
	model.StageFieldInput,
	model.StageDuplicateCheck,
	model.StageReadyToCreate,
}

func (m *Machine) transitions() map[transitionKey]transition {
	table := map[transitionKey]transition{
		{model.StageNone, EventText}:                          m.start,
		{model.StageProjectSelection, EventSelectProject}:     m.selectProject,
		{model.StageIssueTypeSelection, EventSelectIssueType}: m.selectIssueType,
		{model.StageFieldInput, EventText}:                    m.answerField,
		{model.StageFieldInput, EventSelectFieldValue}:        m.answerField,
		{model.StageDuplicateCheck, EventCreateAnyway}:        m.createAnyway,
		{model.StageDuplicateCheck, EventMarkDuplicate}:       m.markDuplicate,
		{model.StageReadyToCreate, EventConfirm}:              m.confirm,
	}
	for _, stage := range pendingStages {
		table[transitionKey{stage, EventCancel}] = m.cancel
	}
	return table
}

func (m *Machine) start(ctx context.Context, ev Event, _ *model.Session) Outcome {
	slog.InfoContext(ctx, "new ticket request", "text", logger.Truncate(ev.Value, 80))

	draft, err := m.deps.Extractor.Extract(ctx, ev.Identity, ev.Value)
	if err != nil {
		slog.WarnContext(ctx, "extraction failed", "error", err)
		m.reply(ctx, ev, Message{Text: msgRephrase})
		return Outcome{Status: StatusAborted, Err: err}
	}

	projects, err := m.deps.Catalog.Projects(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "listing projects failed", "error", err)
		m.reply(ctx, ev, Message{Text: msgProjectsFailed})
		return Outcome{Status: StatusAborted, Err: err}
	}
	if len(projects) == 0 {
		m.reply(ctx, ev, Message{Text: msgNoProjects})
		return Outcome{Status: StatusAborted}
	}

	payload := model.ProjectSelection{Draft: *draft, Projects: projects}
	sess := model.NewSession(m.deps.NewID(), ev.Identity, payload, m.deps.Clock())
	if err := m.deps.Sessions.Put(ctx, sess); err != nil {
		slog.ErrorContext(ctx, "failed to store session", "error", err)
		m.reply(ctx, ev, Message{Text: msgStoreFailed})
		return Outcome{Status: StatusAborted, Err: err}
	}

	m.reply(ctx, ev, projectPrompt(payload))
	return Outcome{Status: StatusAdvanced, To: sess.Stage}
}

func (m *Machine) selectProject(ctx context.Context, ev Event, sess *model.Session) Outcome {
	p, err := payloadAs[model.ProjectSelection](sess)
	if err != nil {
		return m.reset(ctx, ev, sess, err)
	}

	project, ok := findProject(p.Projects, ev.Value)
	if !ok {
		return m.stale(ctx, ev, sess)
	}

	types, err := m.deps.IssueTypes.IssueTypes(ctx, project)
	if err != nil {
		slog.ErrorContext(ctx, "listing issue types failed", "project_key", project.Key, "error", err)
		retry := projectPrompt(p)
		retry.Text = msgIssueTypesFailed
		m.reply(ctx, ev, retry)
		return Outcome{Status: StatusRetry, To: sess.Stage, Err: err}
	}
	if len(types) == 0 {
		m.end(ctx, sess, model.OutcomeAbandoned, nil)
		m.reply(ctx, ev, issueTypesUnavailable(project))
		return Outcome{Status: StatusAborted, To: model.StageNone}
	}

	next := model.IssueTypeSelection{
		Draft:      p.Draft,
		Project:    project,
		IssueTypes: suggestedFirst(types, p.Draft.SuggestedType),
	}
	if err := m.save(ctx, ev, sess, next); err != nil {
		return Outcome{Status: StatusRetry, To: model.StageProjectSelection, Err: err}
	}

	m.reply(ctx, ev, issueTypePrompt(next))
	return Outcome{Status: StatusAdvanced, To: sess.Stage}
}

func (m *Machine) selectIssueType(ctx context.Context, ev Event, sess *model.Session) Outcome {
	p, err := payloadAs[model.IssueTypeSelection](sess)
	if err != nil {
		return m.reset(ctx, ev, sess, err)
	}

	issueType, ok := findIssueType(p.IssueTypes, ev.Value)
	if !ok {
		return m.stale(ctx, ev, sess)
	}

	fields, err := m.deps.Fields.Resolve(ctx, p.Project, issueType)
	if err != nil {
		slog.ErrorContext(ctx, "resolving required fields failed", "issue_type", issueType.Name, "error", err)
		retry := issueTypePrompt(p)
		retry.Text = msgFieldsFailed
		m.reply(ctx, ev, retry)
		return Outcome{Status: StatusRetry, To: sess.Stage, Err: err}
	}

	if len(fields) > 0 {
		next := model.FieldInput{
			Draft:     p.Draft,
			Project:   p.Project,
			IssueType: issueType,
			Fields:    fields,
			Values:    map[string]string{},
		}
		if err := m.save(ctx, ev, sess, next); err != nil {
			return Outcome{Status: StatusRetry, To: model.StageIssueTypeSelection, Err: err}
		}
		m.reply(ctx, ev, fieldPrompt(next))
		return Outcome{Status: StatusAdvanced, To: sess.Stage}
	}

	return m.checkDuplicates(ctx, ev, sess, p.Draft, p.Project, issueType, map[string]string{}, nil)
}

func (m *Machine) answerField(ctx context.Context, ev Event, sess *model.Session) Outcome {
	p, err := payloadAs[model.FieldInput](sess)
	if err != nil {
		return m.reset(ctx, ev, sess, err)
	}
	field, ok := p.Current()
	if !ok {
		return m.reset(ctx, ev, sess, model.ErrStageMismatch)
	}

	expectsChoice := len(field.Choices()) > 0
	var value string

	switch ev.Kind {
	case EventText:
		if expectsChoice {
			m.reply(ctx, ev, Message{Text: msgPickFromOptions})
			return Outcome{Status: StatusIgnored, To: sess.Stage}
		}
		if ev.Value == "" {
			m.reply(ctx, ev, fieldPrompt(p))
			return Outcome{Status: StatusIgnored, To: sess.Stage}
		}
		value = ev.Value
	case EventSelectFieldValue:
		if !expectsChoice {
			return m.stale(ctx, ev, sess)
		}
		value, ok = parseFieldChoice(field, ev.Value)
		if !ok {
			return m.stale(ctx, ev, sess)
		}
		p.OptionFields = append(p.OptionFields, field.ID)
	}

	values := make(map[string]string, len(p.Values)+1)
	maps.Copy(values, p.Values)
	values[field.ID] = value
	p.Values = values
	p.Cursor++

	slog.InfoContext(ctx, "field answered", "field_id", field.ID, "cursor", p.Cursor, "field_count", len(p.Fields))

	if p.Cursor < len(p.Fields) {
		if err := m.save(ctx, ev, sess, p); err != nil {
			return Outcome{Status: StatusRetry, To: model.StageFieldInput, Err: err}
		}
		m.reply(ctx, ev, fieldPrompt(p))
		return Outcome{Status: StatusAdvanced, To: sess.Stage}
	}

	return m.checkDuplicates(ctx, ev, sess, p.Draft, p.Project, p.IssueType, p.Values, p.OptionFields)
}

// checkDuplicates runs the duplicate search and moves to the duplicate
// check, or straight to confirmation when nothing similar exists. A failed
// search counts as no candidates.
func (m *Machine) checkDuplicates(
	ctx context.Context,
	ev Event,
	sess *model.Session,
	draft model.ParsedDraft,
	project model.Project,
	issueType model.IssueType,
	values map[string]string,
	optionFields []string,
) Outcome {
	from := sess.Stage

	candidates, err := m.deps.Duplicates.Find(ctx, service.DuplicateQuery{
		Project:     project,
		IssueType:   issueType,
		Summary:     draft.Summary,
		Description: draft.Description,
	})
	if err != nil {
		slog.WarnContext(ctx, "duplicate search failed, continuing without candidates", "error", err)
		candidates = nil
	}
	if len(candidates) > maxCandidatesShown {
		candidates = candidates[:maxCandidatesShown]
	}

	if len(candidates) > 0 {
		next := model.DuplicateCheck{
			Draft:         draft,
			Project:       project,
			IssueType:     issueType,
			Values:        values,
			OptionFields:  optionFields,
			Candidates:    candidates,
			HasCandidates: true,
		}
		if err := m.save(ctx, ev, sess, next); err != nil {
			return Outcome{Status: StatusRetry, To: from, Err: err}
		}
		m.reply(ctx, ev, duplicatePrompt(next))
		return Outcome{Status: StatusAdvanced, To: sess.Stage}
	}

	next := model.ReadyToCreate{
		Identity: sess.Identity,
		Ticket:   assembleTicket(sess.Identity, draft, project, issueType, values, optionFields),
	}
	if err := m.save(ctx, ev, sess, next); err != nil {
		return Outcome{Status: StatusRetry, To: from, Err: err}
	}
	m.reply(ctx, ev, confirmPrompt(next))
	return Outcome{Status: StatusAdvanced, To: sess.Stage}
}

func (m *Machine) createAnyway(ctx context.Context, ev Event, sess *model.Session) Outcome {
	p, err := payloadAs[model.DuplicateCheck](sess)
	if err != nil {
		return m.reset(ctx, ev, sess, err)
	}

	next := model.ReadyToCreate{
		Identity: sess.Identity,
		Ticket:   assembleTicket(sess.Identity, p.Draft, p.Project, p.IssueType, p.Values, p.OptionFields),
	}
	if err := m.save(ctx, ev, sess, next); err != nil {
		return Outcome{Status: StatusRetry, To: model.StageDuplicateCheck, Err: err}
	}
	m.reply(ctx, ev, confirmPrompt(next))
	return Outcome{Status: StatusAdvanced, To: sess.Stage}
}

func (m *Machine) markDuplicate(ctx context.Context, ev Event, sess *model.Session) Outcome {
	p, err := payloadAs[model.DuplicateCheck](sess)
	if err != nil {
		return m.reset(ctx, ev, sess, err)
	}
	if !p.HasCandidate(ev.Value) {
		return m.stale(ctx, ev, sess)
	}

	key := ev.Value
	m.end(ctx, sess, model.OutcomeDuplicate, &key)
	m.reply(ctx, ev, duplicateMessage(key))
	return Outcome{Status: StatusClosed, To: model.StageNone}
}

func (m *Machine) cancel(ctx context.Context, ev Event, sess *model.Session) Outcome {
	m.end(ctx, sess, model.OutcomeCancelled, nil)
	m.reply(ctx, ev, Message{Text: msgCancelled})
	return Outcome{Status: StatusClosed, To: model.StageNone}
}

func (m *Machine) confirm(ctx context.Context, ev Event, sess *model.Session) Outcome {
	p, err := payloadAs[model.ReadyToCreate](sess)
	if err != nil {
		return m.reset(ctx, ev, sess, err)
	}

	created, err := m.deps.Creator.Create(ctx, sess.Identity, p.Ticket)
	if err != nil {
		slog.ErrorContext(ctx, "ticket creation failed", "error", err)
		retry := confirmPrompt(p)
		retry.Text = msgCreateFailed
		m.reply(ctx, ev, retry)
		return Outcome{Status: StatusRetry, To: sess.Stage, Err: err}
	}

	done := model.Created{Identity: sess.Identity, Ticket: *created}
	m.end(ctx, sess, model.OutcomeCreated, &created.Key)
	m.reply(ctx, ev, createdMessage(done))
	return Outcome{Status: StatusCompleted, To: model.StageNone}
}

// stale handles a click that fails its guard, typically a second click on a
// control whose choice has already been consumed.
func (m *Machine) stale(ctx context.Context, ev Event, sess *model.Session) Outcome {
	slog.InfoContext(ctx, "stale or invalid selection ignored", "action_id", ev.ActionID, "value", ev.Value)
	return Outcome{Status: StatusIgnored, To: sess.Stage}
}

func assembleTicket(
	identity model.Identity,
	draft model.ParsedDraft,
	project model.Project,
	issueType model.IssueType,
	values map[string]string,
	optionFields []string,
) model.TicketRequest {
	fields := make(map[string]string, len(values))
	maps.Copy(fields, values)

	return model.TicketRequest{
		ProjectKey:    project.Key,
		IssueTypeName: issueType.Name,
		Summary:       draft.Summary,
		Description:   draft.Description,
		Reporter:      identity.UserID,
		Fields:        fields,
		OptionFields:  optionFields,
	}
}

func findProject(projects []model.Project, value string) (model.Project, bool) {
	for _, p := range projects {
		if p.Key == value || (p.ID != "" && p.ID == value) {
			return p, true
		}
	}
	return model.Project{}, false
}

func findIssueType(types []model.IssueType, value string) (model.IssueType, bool) {
	for _, it := range types {
		if it.ID == value || (it.ID == "" && it.Name == value) {
			return it, true
		}
	}
	return model.IssueType{}, false
}
