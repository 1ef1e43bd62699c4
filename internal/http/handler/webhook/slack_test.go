package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/http/handler/webhook"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/worker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const signingSecret = "test-signing-secret"

type fakeDispatcher struct {
	mu     sync.Mutex
	events []conversation.Event
	err    error
}

func (f *fakeDispatcher) Submit(_ context.Context, ev conversation.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func signedRequest(path, contentType string, body []byte) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func interactiveBody(payload string) []byte {
	return []byte(url.Values{"payload": {payload}}.Encode())
}

var _ = Describe("SlackWebhookHandler", func() {
	var (
		router     *gin.Engine
		dispatcher *fakeDispatcher
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		dispatcher = &fakeDispatcher{}

		h := webhook.NewSlackWebhookHandler(signingSecret, dispatcher)
		router.POST("/slack/events", h.HandleEvents)
		router.POST("/slack/interactive", h.HandleInteractive)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	messageEvent := func(inner string) []byte {
		return []byte(`{"type":"event_callback","team_id":"T1","event":` + inner + `}`)
	}

	Describe("events", func() {
		It("answers the url verification challenge", func() {
			body := []byte(`{"type":"url_verification","token":"t","challenge":"abc123"}`)
			w := serve(signedRequest("/slack/events", "application/json", body))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("abc123"))
		})

		It("rejects requests with a bad signature", func() {
			req := signedRequest("/slack/events", "application/json", []byte(`{"type":"url_verification"}`))
			req.Header.Set("X-Slack-Signature", "v0=00")
			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(dispatcher.events).To(BeEmpty())
		})

		It("dispatches direct messages as text events", func() {
			body := messageEvent(`{"type":"message","user":"U1","text":"login is broken","channel":"D1","channel_type":"im","ts":"1.1"}`)
			w := serve(signedRequest("/slack/events", "application/json", body))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(dispatcher.events).To(Equal([]conversation.Event{
				conversation.TextEvent(model.Identity{UserID: "U1", ChannelID: "D1"}, "login is broken"),
			}))
		})

		It("ignores bot messages", func() {
			body := messageEvent(`{"type":"message","bot_id":"B1","text":"Which project?","channel":"D1","channel_type":"im","ts":"1.1"}`)
			w := serve(signedRequest("/slack/events", "application/json", body))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(dispatcher.events).To(BeEmpty())
		})

		It("acknowledges retries without dispatching again", func() {
			body := messageEvent(`{"type":"message","user":"U1","text":"login is broken","channel":"D1","channel_type":"im","ts":"1.1"}`)
			req := signedRequest("/slack/events", "application/json", body)
			req.Header.Set("X-Slack-Retry-Num", "1")
			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(dispatcher.events).To(BeEmpty())
		})

		It("rejects malformed JSON", func() {
			w := serve(signedRequest("/slack/events", "application/json", []byte(`{not json`)))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("answers 503 while shutting down", func() {
			dispatcher.err = worker.ErrStopped
			body := messageEvent(`{"type":"message","user":"U1","text":"hi","channel":"D1","channel_type":"im","ts":"1.1"}`)
			w := serve(signedRequest("/slack/events", "application/json", body))

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("interactions", func() {
		It("dispatches block actions with the message reference", func() {
			payload := `{
				"type": "block_actions",
				"user": {"id": "U1"},
				"channel": {"id": "D1"},
				"container": {"type": "message", "message_ts": "1700000000.000100", "channel_id": "D1"},
				"actions": [{"type": "button", "block_id": "intake_actions", "action_id": "confirm_create_action", "value": "confirm"}]
			}`
			w := serve(signedRequest("/slack/interactive", "application/x-www-form-urlencoded", interactiveBody(payload)))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(dispatcher.events).To(HaveLen(1))
			Expect(dispatcher.events[0].Kind).To(Equal(conversation.EventConfirm))
			Expect(dispatcher.events[0].MessageRef).To(Equal("1700000000.000100"))
			Expect(dispatcher.events[0].Identity).To(Equal(model.Identity{UserID: "U1", ChannelID: "D1"}))
		})

		It("rejects a request without a payload", func() {
			w := serve(signedRequest("/slack/interactive", "application/x-www-form-urlencoded", []byte("foo=bar")))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects unsigned interactions", func() {
			req := httptest.NewRequest(http.MethodPost, "/slack/interactive", bytes.NewReader(interactiveBody(`{}`)))
			w := serve(req)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
