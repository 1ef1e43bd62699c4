package conversation_test

import (
	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Events", func() {
	DescribeTable("KindForAction",
		func(actionID string, want conversation.EventKind) {
			Expect(conversation.KindForAction(actionID)).To(Equal(want))
		},
		Entry("project", conversation.ActionSelectProject, conversation.EventSelectProject),
		Entry("issue type", conversation.ActionSelectIssueType, conversation.EventSelectIssueType),
		Entry("field value", conversation.ActionSelectFieldValue, conversation.EventSelectFieldValue),
		Entry("create anyway", conversation.ActionCreateAnyway, conversation.EventCreateAnyway),
		Entry("mark duplicate", conversation.ActionMarkDuplicate, conversation.EventMarkDuplicate),
		Entry("cancel", conversation.ActionCancel, conversation.EventCancel),
		Entry("confirm", conversation.ActionConfirm, conversation.EventConfirm),
		Entry("legacy similarity cancel", "cancel_creation_similarity", conversation.EventCancel),
		Entry("legacy confirm", "confirm_create_ticket_action", conversation.EventConfirm),
		Entry("unknown", "something_else", conversation.EventUnknown),
		Entry("empty", "", conversation.EventUnknown),
	)

	It("builds action events with their message reference", func() {
		id := model.Identity{UserID: "U1", ChannelID: "C1"}
		ev := conversation.ActionEvent(id, conversation.ActionMarkDuplicate, "ENG-7", "1700000000.0001")
		Expect(ev).To(Equal(conversation.Event{
			Identity:   id,
			Kind:       conversation.EventMarkDuplicate,
			Value:      "ENG-7",
			ActionID:   conversation.ActionMarkDuplicate,
			MessageRef: "1700000000.0001",
		}))
	})
})
