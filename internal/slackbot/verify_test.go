package slackbot_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"basegraph.app/intake/internal/slackbot"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// signedHeader builds the headers Slack sends for body.
func signedHeader(secret string, body []byte, at time.Time) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return h
}

var _ = Describe("Verify", func() {
	const secret = "shh"
	body := []byte(`{"type":"event_callback"}`)

	It("accepts a correctly signed request", func() {
		Expect(slackbot.Verify(signedHeader(secret, body, time.Now()), body, secret)).To(Succeed())
	})

	It("rejects a different secret", func() {
		err := slackbot.Verify(signedHeader("other", body, time.Now()), body, secret)
		Expect(err).To(MatchError(slackbot.ErrBadSignature))
	})

	It("rejects a tampered body", func() {
		header := signedHeader(secret, body, time.Now())
		err := slackbot.Verify(header, []byte(`{"type":"tampered"}`), secret)
		Expect(err).To(MatchError(slackbot.ErrBadSignature))
	})

	It("rejects stale timestamps", func() {
		err := slackbot.Verify(signedHeader(secret, body, time.Now().Add(-10*time.Minute)), body, secret)
		Expect(err).To(MatchError(slackbot.ErrBadSignature))
	})

	It("rejects missing headers", func() {
		err := slackbot.Verify(http.Header{}, body, secret)
		Expect(err).To(MatchError(slackbot.ErrBadSignature))
	})
})
