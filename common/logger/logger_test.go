package logger_test

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"basegraph.app/intake/common/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WithLogFields", func() {
	It("merges newer fields over older ones", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			UserID:    logger.Ptr("U1"),
			Stage:     logger.Ptr("project_selection"),
			Component: "intake.conversation",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr("field_input")})

		fields := logger.GetLogFields(ctx)
		Expect(*fields.UserID).To(Equal("U1"))
		Expect(*fields.Stage).To(Equal("field_input"))
		Expect(fields.Component).To(Equal("intake.conversation"))
		Expect(fields.ChannelID).To(BeNil())
	})

	It("is empty on a bare context", func() {
		Expect(logger.GetLogFields(context.Background())).To(Equal(logger.LogFields{}))
	})
})

var _ = Describe("Truncate", func() {
	It("cuts long text and leaves short text alone", func() {
		Expect(logger.Truncate("hello world", 5)).To(Equal("hello..."))
		Expect(logger.Truncate("hi", 5)).To(Equal("hi"))
	})
})

var _ = Describe("StartSpanFromTraceID", func() {
	It("continues the given trace", func() {
		const traceHex = "4bf92f3577b34da6a3ce929d0e0e4736"

		sc := logger.StartSpanFromTraceID(context.Background(), traceHex, "intake.queue.consume")
		defer sc.End()

		Expect(trace.SpanContextFromContext(sc.Context()).TraceID().String()).To(Equal(traceHex))
	})

	It("starts afresh on a malformed id", func() {
		sc := logger.StartSpanFromTraceID(context.Background(), "not-hex", "intake.queue.consume")
		defer sc.End()

		Expect(sc.Context()).NotTo(BeNil())
	})
})
