package console_test

import (
	"bytes"
	"context"

	"basegraph.app/intake/internal/console"
	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Console", func() {
	var (
		out      *bytes.Buffer
		identity model.Identity
		c        *console.Console
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		identity = model.Identity{UserID: "local", ChannelID: "console"}
		c = console.New(out, identity)
	})

	It("numbers choice options, candidates and buttons in order", func() {
		_, err := c.Post(context.Background(), "console", conversation.Message{
			Text: "Similar tickets",
			Choice: &conversation.Choice{
				ActionID: conversation.ActionSelectProject,
				Options:  []conversation.Option{{Label: "Engineering (ENG)", Value: "ENG"}},
			},
			Candidates: []model.Candidate{{Key: "ENG-1", Summary: "Login broken"}},
			Buttons:    []conversation.Button{{ActionID: conversation.ActionCancel, Label: "Cancel", Value: "cancel"}},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(out.String()).To(ContainSubstring("intake> Similar tickets"))
		Expect(out.String()).To(ContainSubstring("[1] Engineering (ENG)"))
		Expect(out.String()).To(ContainSubstring("[2] ENG-1 is a duplicate (Login broken)"))
		Expect(out.String()).To(ContainSubstring("[3] Cancel"))

		Expect(c.Event("1")).To(Equal(conversation.ActionEvent(identity, conversation.ActionSelectProject, "ENG", "")))
		Expect(c.Event(" 2 ").Kind).To(Equal(conversation.EventMarkDuplicate))
		Expect(c.Event("3").Kind).To(Equal(conversation.EventCancel))
	})

	It("treats other input as text", func() {
		Expect(c.Event("4")).To(Equal(conversation.TextEvent(identity, "4")))
		Expect(c.Event("the login is broken")).To(Equal(conversation.TextEvent(identity, "the login is broken")))
	})

	It("replaces the controls with each new message", func() {
		ctx := context.Background()
		_, _ = c.Post(ctx, "console", conversation.Message{
			Text:    "first",
			Buttons: []conversation.Button{{ActionID: conversation.ActionConfirm, Label: "Confirm", Value: "confirm"}},
		})
		Expect(c.Update(ctx, "console", "console-1", conversation.Message{Text: "done"})).To(Succeed())

		Expect(c.Event("1").Kind).To(Equal(conversation.EventText))
	})
})
