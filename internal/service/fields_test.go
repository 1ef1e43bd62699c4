package service_test

import (
	"context"
	"errors"
	"time"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FieldResolver", func() {
	var (
		ctx     context.Context
		tracker *mockIssueTracker
	)

	BeforeEach(func() {
		ctx = context.Background()
		tracker = &mockIssueTracker{}
	})

	It("drops the fields the flow fills itself", func() {
		tracker.requiredFieldsFn = func(_ context.Context, projectKey string, issueType model.IssueType) ([]model.FieldDescriptor, error) {
			Expect(projectKey).To(Equal("ENG"))
			Expect(issueType.Name).To(Equal("Bug"))
			return []model.FieldDescriptor{
				{ID: "summary"}, {ID: "description"}, {ID: "project"}, {ID: "issuetype"}, {ID: "reporter"},
				{ID: "priority", Name: "Priority"},
				{ID: "customfield_1", Name: "Brand", Custom: true},
			}, nil
		}

		fields, err := service.NewFieldResolver(tracker, time.Second).Resolve(ctx, model.Project{Key: "ENG"}, model.IssueType{Name: "Bug"})
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(HaveLen(2))
		Expect(fields[0].ID).To(Equal("priority"))
		Expect(fields[1].ID).To(Equal("customfield_1"))
	})

	It("returns an empty list when only precollected fields are required", func() {
		tracker.requiredFieldsFn = func(context.Context, string, model.IssueType) ([]model.FieldDescriptor, error) {
			return []model.FieldDescriptor{{ID: "summary"}}, nil
		}

		fields, err := service.NewFieldResolver(tracker, time.Second).Resolve(ctx, model.Project{Key: "ENG"}, model.IssueType{Name: "Task"})
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(BeEmpty())
	})

	It("wraps tracker errors", func() {
		boom := errors.New("boom")
		tracker.requiredFieldsFn = func(context.Context, string, model.IssueType) ([]model.FieldDescriptor, error) {
			return nil, boom
		}

		_, err := service.NewFieldResolver(tracker, time.Second).Resolve(ctx, model.Project{Key: "ENG"}, model.IssueType{Name: "Bug"})
		Expect(err).To(MatchError(boom))
	})

	It("bounds the tracker call", func() {
		tracker.requiredFieldsFn = func(ctx context.Context, _ string, _ model.IssueType) ([]model.FieldDescriptor, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}

		_, err := service.NewFieldResolver(tracker, 10*time.Millisecond).Resolve(ctx, model.Project{Key: "ENG"}, model.IssueType{Name: "Bug"})
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})
})
