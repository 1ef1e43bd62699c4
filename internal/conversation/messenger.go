package conversation

import (
	"context"

	"basegraph.app/intake/internal/model"
)

// Messenger delivers replies to the chat platform. Post returns a reference
// to the new message that Update can later replace.
type Messenger interface {
	Post(ctx context.Context, channelID string, msg Message) (string, error)
	Update(ctx context.Context, channelID, messageRef string, msg Message) error
}

// Message is a platform-neutral reply layout. Text is always set and doubles
// as the notification fallback.
type Message struct {
	Text       string
	Fields     []Field
	Detail     string
	Choice     *Choice
	Candidates []model.Candidate
	Buttons    []Button
}

type Field struct {
	Label string
	Value string
}

// Choice is a single-select prompt.
type Choice struct {
	ActionID    string
	Placeholder string
	Options     []Option
}

type Option struct {
	Label string
	Value string
}

type Button struct {
	ActionID string
	Label    string
	Value    string
	Primary  bool
}

// Interactive reports whether the message offers anything to click.
func (m Message) Interactive() bool {
	return m.Choice != nil || len(m.Buttons) > 0 || len(m.Candidates) > 0
}
