package slackbot

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
)

// Slack rejects messages past these limits.
const (
	maxSectionFields = 10
	maxSelectOptions = 100
	maxSectionText   = 3000
	maxOptionText    = 75
)

const (
	blockIDPrompt     = "intake_prompt"
	blockIDFields     = "intake_fields"
	blockIDDetail     = "intake_detail"
	blockIDActions    = "intake_actions"
	blockIDCandidates = "intake_candidate_"
)

// Blocks renders a conversation message as Block Kit.
func Blocks(msg conversation.Message) []slack.Block {
	var blocks []slack.Block

	if msg.Text != "" {
		blocks = append(blocks, slack.NewSectionBlock(markdown(msg.Text), nil, nil, slack.SectionBlockOptionBlockID(blockIDPrompt)))
	}

	if len(msg.Fields) > 0 {
		fields := make([]*slack.TextBlockObject, 0, min(len(msg.Fields), maxSectionFields))
		for _, f := range msg.Fields {
			if len(fields) == maxSectionFields {
				break
			}
			fields = append(fields, markdown(fmt.Sprintf("*%s*\n%s", f.Label, f.Value)))
		}
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil, slack.SectionBlockOptionBlockID(blockIDFields)))
	}

	if msg.Detail != "" {
		blocks = append(blocks, slack.NewSectionBlock(markdown("*Description*\n"+msg.Detail), nil, nil, slack.SectionBlockOptionBlockID(blockIDDetail)))
	}

	if len(msg.Candidates) > 0 {
		blocks = append(blocks, slack.NewDividerBlock())
		for i, c := range msg.Candidates {
			button := slack.NewButtonBlockElement(conversation.ActionMarkDuplicate, c.Key, plain("This is a duplicate"))
			blocks = append(blocks, slack.NewSectionBlock(
				markdown(candidateLine(c)),
				nil,
				slack.NewAccessory(button),
				slack.SectionBlockOptionBlockID(fmt.Sprintf("%s%d", blockIDCandidates, i)),
			))
		}
		blocks = append(blocks, slack.NewDividerBlock())
	}

	var elements []slack.BlockElement
	if msg.Choice != nil && len(msg.Choice.Options) > 0 {
		elements = append(elements, selectElement(*msg.Choice))
	}
	for _, b := range msg.Buttons {
		button := slack.NewButtonBlockElement(b.ActionID, b.Value, plain(b.Label))
		if b.Primary {
			button = button.WithStyle(slack.StylePrimary)
		}
		elements = append(elements, button)
	}
	if len(elements) > 0 {
		blocks = append(blocks, slack.NewActionBlock(blockIDActions, elements...))
	}

	return blocks
}

func selectElement(choice conversation.Choice) *slack.SelectBlockElement {
	options := make([]*slack.OptionBlockObject, 0, min(len(choice.Options), maxSelectOptions))
	for _, o := range choice.Options {
		if len(options) == maxSelectOptions {
			break
		}
		options = append(options, slack.NewOptionBlockObject(o.Value, plain(clip(o.Label, maxOptionText)), nil))
	}
	return slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain(choice.Placeholder), choice.ActionID, options...)
}

func candidateLine(c model.Candidate) string {
	var b strings.Builder
	if c.URL != "" {
		fmt.Fprintf(&b, "<%s|%s>", c.URL, c.Key)
	} else {
		b.WriteString(c.Key)
	}
	if c.Summary != "" {
		b.WriteString(": ")
		b.WriteString(c.Summary)
	}
	if c.Score != nil {
		fmt.Fprintf(&b, " _(%.0f%% similar)_", *c.Score*100)
	}
	return b.String()
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, clip(text, maxSectionText), false, false)
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
