package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"basegraph.app/intake/internal/conversation"
	"basegraph.app/intake/internal/slackbot"
	"basegraph.app/intake/internal/worker"
)

// maxBodyBytes bounds what is read before the signature is checked.
const maxBodyBytes = 1 << 20

type Dispatcher interface {
	Submit(ctx context.Context, ev conversation.Event) error
}

type SlackWebhookHandler struct {
	signingSecret string
	dispatcher    Dispatcher
}

func NewSlackWebhookHandler(signingSecret string, dispatcher Dispatcher) *SlackWebhookHandler {
	return &SlackWebhookHandler{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
	}
}

// HandleEvents serves the Events API endpoint.
func (h *SlackWebhookHandler) HandleEvents(c *gin.Context) {
	ctx := c.Request.Context()

	body, ok := h.verifiedBody(c)
	if !ok {
		return
	}

	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var outer struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(body, &outer)

	if outer.Type == slackevents.URLVerification {
		var challenge slackevents.EventsAPIURLVerificationEvent
		if err := json.Unmarshal(body, &challenge); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		c.String(http.StatusOK, challenge.Challenge)
		return
	}

	// Slack redelivers when it thinks we were slow. The first delivery was
	// already accepted, so a retry is acknowledged without running it again.
	if retry := c.GetHeader("X-Slack-Retry-Num"); retry != "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "retry ignored"})
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		slog.WarnContext(ctx, "unsupported slack event, ignoring", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "event type not supported"})
		return
	}

	if event.Type != slackevents.CallbackEvent {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	msg, isMessage := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !isMessage {
		slog.DebugContext(ctx, "slack callback ignored", "inner_type", event.InnerEvent.Type)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ev, accepted := slackbot.TextEvent(msg)
	if !accepted {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if !h.submit(c, ev) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleInteractive serves the interactivity endpoint that receives clicks.
func (h *SlackWebhookHandler) HandleInteractive(c *gin.Context) {
	ctx := c.Request.Context()

	body, ok := h.verifiedBody(c)
	if !ok {
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("payload") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payload"})
		return
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	events := slackbot.ActionEvents(cb)
	slog.InfoContext(ctx, "slack interaction received",
		"type", cb.Type,
		"user_id", cb.User.ID,
		"actions", len(events))

	for _, ev := range events {
		if !h.submit(c, ev) {
			return
		}
	}
	c.Status(http.StatusOK)
}

func (h *SlackWebhookHandler) verifiedBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}

	if err := slackbot.Verify(c.Request.Header, body, h.signingSecret); err != nil {
		slog.WarnContext(c.Request.Context(), "slack signature rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return nil, false
	}
	return body, true
}

func (h *SlackWebhookHandler) submit(c *gin.Context, ev conversation.Event) bool {
	if err := h.dispatcher.Submit(c.Request.Context(), ev); err != nil {
		if errors.Is(err, worker.ErrStopped) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
			return false
		}
		slog.ErrorContext(c.Request.Context(), "failed to dispatch event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return false
	}
	return true
}
