package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"basegraph.app/intake/internal/conversation"
)

type messenger struct {
	client *slack.Client
}

// NewMessenger posts conversation messages through the Slack Web API.
// Message refs are Slack message timestamps.
func NewMessenger(client *slack.Client) conversation.Messenger {
	return &messenger{client: client}
}

func (m *messenger) Post(ctx context.Context, channelID string, msg conversation.Message) (string, error) {
	_, ts, err := m.client.PostMessageContext(ctx, channelID, options(msg)...)
	if err != nil {
		return "", fmt.Errorf("posting message to %s: %w", channelID, err)
	}

	slog.DebugContext(ctx, "slack message posted", "channel_id", channelID, "ts", ts)
	return ts, nil
}

func (m *messenger) Update(ctx context.Context, channelID, ref string, msg conversation.Message) error {
	if _, _, _, err := m.client.UpdateMessageContext(ctx, channelID, ref, options(msg)...); err != nil {
		return fmt.Errorf("updating message %s in %s: %w", ref, channelID, err)
	}
	return nil
}

// options sends the plain text as the notification fallback alongside the
// blocks.
func options(msg conversation.Message) []slack.MsgOption {
	return []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionBlocks(Blocks(msg)...),
	}
}
