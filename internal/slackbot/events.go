package slackbot

import (
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
)

const channelTypeIM = "im"

// TextEvent translates a direct message into a conversation event. Messages
// from bots (including our own), edits and other subtypes are skipped.
func TextEvent(ev *slackevents.MessageEvent) (conversation.Event, bool) {
	if ev == nil || ev.ChannelType != channelTypeIM {
		return conversation.Event{}, false
	}
	if ev.BotID != "" || ev.SubType != "" {
		return conversation.Event{}, false
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" || ev.User == "" {
		return conversation.Event{}, false
	}

	return conversation.TextEvent(model.Identity{UserID: ev.User, ChannelID: ev.Channel}, text), true
}

// ActionEvents translates a block_actions callback into one event per action.
// Other interaction types produce nothing.
func ActionEvents(cb slack.InteractionCallback) []conversation.Event {
	if cb.Type != slack.InteractionTypeBlockActions {
		return nil
	}

	identity := model.Identity{
		UserID:    cb.User.ID,
		ChannelID: firstNonEmpty(cb.Channel.ID, cb.Container.ChannelID),
	}
	ref := firstNonEmpty(cb.Container.MessageTs, cb.Message.Timestamp)

	events := make([]conversation.Event, 0, len(cb.ActionCallback.BlockActions))
	for _, action := range cb.ActionCallback.BlockActions {
		if action == nil {
			continue
		}
		value := action.Value
		if action.SelectedOption.Value != "" {
			value = action.SelectedOption.Value
		}
		events = append(events, conversation.ActionEvent(identity, action.ActionID, value, ref))
	}
	return events
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
