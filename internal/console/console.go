// Package console runs intake conversations in a terminal. Interactive
// controls are printed as a numbered list and answered by typing the number.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
)

type control struct {
	actionID string
	value    string
}

type Console struct {
	out      io.Writer
	identity model.Identity

	mu       sync.Mutex
	controls []control
	seq      int
}

func New(out io.Writer, identity model.Identity) *Console {
	return &Console{out: out, identity: identity}
}

func (c *Console) Identity() model.Identity {
	return c.identity
}

func (c *Console) Post(_ context.Context, _ string, msg conversation.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.render(msg)
	return fmt.Sprintf("console-%d", c.seq), nil
}

func (c *Console) Update(ctx context.Context, channelID, _ string, msg conversation.Message) error {
	_, err := c.Post(ctx, channelID, msg)
	return err
}

// Event turns a typed line into an event. A number picks a control from the
// last message; anything else is sent as text.
func (c *Console) Event(line string) conversation.Event {
	line = strings.TrimSpace(line)

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(c.controls) {
		ctl := c.controls[n-1]
		return conversation.ActionEvent(c.identity, ctl.actionID, ctl.value, "")
	}
	return conversation.TextEvent(c.identity, line)
}

// render must be called with mu held.
func (c *Console) render(msg conversation.Message) {
	var b strings.Builder
	c.controls = c.controls[:0]

	fmt.Fprintf(&b, "\nintake> %s\n", msg.Text)
	for _, f := range msg.Fields {
		fmt.Fprintf(&b, "    %s: %s\n", f.Label, f.Value)
	}
	if msg.Detail != "" {
		fmt.Fprintf(&b, "    %s\n", strings.ReplaceAll(msg.Detail, "\n", "\n    "))
	}

	if msg.Choice != nil {
		for _, o := range msg.Choice.Options {
			c.addControl(&b, o.Label, msg.Choice.ActionID, o.Value)
		}
	}
	for _, cand := range msg.Candidates {
		label := fmt.Sprintf("%s is a duplicate (%s)", cand.Key, cand.Summary)
		if cand.URL != "" {
			label += " " + cand.URL
		}
		c.addControl(&b, label, conversation.ActionMarkDuplicate, cand.Key)
	}
	for _, btn := range msg.Buttons {
		c.addControl(&b, btn.Label, btn.ActionID, btn.Value)
	}

	_, _ = io.WriteString(c.out, b.String())
}

func (c *Console) addControl(b *strings.Builder, label, actionID, value string) {
	c.controls = append(c.controls, control{actionID: actionID, value: value})
	fmt.Fprintf(b, "  [%d] %s\n", len(c.controls), label)
}
