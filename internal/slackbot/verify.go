package slackbot

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

var ErrBadSignature = errors.New("invalid slack signature")

// Verify checks the request signature Slack computes over the raw body with
// the app's signing secret. Requests older than five minutes are rejected.
func Verify(header http.Header, body []byte, signingSecret string) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	return nil
}
