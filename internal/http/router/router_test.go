package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/http/router"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type nopDispatcher struct{}

func (nopDispatcher) Submit(context.Context, conversation.Event) error { return nil }

var _ = Describe("SetupRoutes", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		router.SetupRoutes(engine, router.RouterConfig{
			SlackSigningSecret: "secret",
			Dispatcher:         nopDispatcher{},
		})
	})

	DescribeTable("health endpoints",
		func(path string) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"status":"ok"`))
		},
		Entry("health", "/health"),
		Entry("root", "/"),
	)

	DescribeTable("slack endpoints require a signature",
		func(path string) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}")))
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		},
		Entry("events", "/slack/events"),
		Entry("interactive", "/slack/interactive"),
	)
})
