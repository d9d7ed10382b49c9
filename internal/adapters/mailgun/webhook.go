// Package mailgun turns Mailgun inbound-route webhooks into envelopes.
package mailgun

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"review_inbox/internal/domain"
)

const maxFormMemory = 10 << 20

var (
	ErrBadSignature = errors.New("mailgun: webhook signature verification failed")
	ErrStale        = errors.New("mailgun: webhook timestamp outside tolerance")
)

type Verifier struct {
	signingKey string
	tolerance  time.Duration
	now        func() time.Time
}

// NewVerifier: an empty signing key disables verification.
func NewVerifier(signingKey string, tolerance time.Duration) *Verifier {
	return &Verifier{signingKey: signingKey, tolerance: tolerance, now: time.Now}
}

// Verify checks HMAC-SHA256(signingKey, timestamp+token) against signature.
func (v *Verifier) Verify(timestamp, token, signature string) error {
	if v == nil || v.signingKey == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(v.signingKey))
	mac.Write([]byte(timestamp + token))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	if v.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return ErrStale
		}
		if d := v.now().Sub(time.Unix(ts, 0)); math.Abs(float64(d)) > float64(v.tolerance) {
			return ErrStale
		}
	}
	return nil
}

// ParseRequest reads a multipart or urlencoded Mailgun payload.
func ParseRequest(r *http.Request) (domain.Envelope, map[string]string, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if err2 := r.ParseForm(); err2 != nil {
			return domain.Envelope{}, nil, fmt.Errorf("parse form: %w", err2)
		}
	}
	sig := map[string]string{
		"timestamp": r.FormValue("timestamp"),
		"token":     r.FormValue("token"),
		"signature": r.FormValue("signature"),
	}
	env := domain.Envelope{
		Recipient: strings.TrimSpace(r.FormValue("recipient")),
		Sender:    strings.TrimSpace(first(r.FormValue("sender"), r.FormValue("from"))),
		Subject:   r.FormValue("subject"),
		Text:      first(r.FormValue("body-plain"), r.FormValue("stripped-text")),
		HTML:      first(r.FormValue("body-html"), r.FormValue("stripped-html")),
		MessageID: strings.TrimSpace(first(r.FormValue("Message-Id"), r.FormValue("message-id"))),
	}
	if env.Recipient == "" {
		env.Recipient = strings.TrimSpace(r.FormValue("To"))
	}
	return env, sig, nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
