// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"review_inbox/internal/adapters/mailgun"
	"review_inbox/internal/app"
	"review_inbox/internal/domain"
)

const maxEnvelopeBytes = 10 << 20

// InboundProcessor is satisfied by *app.Receiver.
type InboundProcessor interface {
	Process(ctx context.Context, env domain.Envelope) app.Result
}

type deadlineProcessor struct {
	next InboundProcessor
	d    time.Duration
}

// WithDeadline bounds each Process call. Writes that already started are
// detached from this deadline and run on their own.
func WithDeadline(p InboundProcessor, d time.Duration) InboundProcessor {
	if d <= 0 {
		return p
	}
	return deadlineProcessor{next: p, d: d}
}

func (p deadlineProcessor) Process(ctx context.Context, env domain.Envelope) app.Result {
	ctx, cancel := context.WithTimeout(ctx, p.d)
	defer cancel()
	return p.next.Process(ctx, env)
}

type Handlers struct {
	Inbound InboundProcessor
	Mailgun *mailgun.Verifier
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type ackResponse struct {
	Received bool   `json:"received"`
	Message  string `json:"message"`
	ReviewID string `json:"reviewId,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/inbound/email", h.inboundJSON)
	s.mux.Post("/v1/inbound/mailgun", h.inboundMailgun)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func (h *Handlers) inboundJSON(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
	if err := dec.Decode(&payload); err != nil || payload == nil {
		log.Warn().Err(err).Msg("inbound envelope not parseable")
		writeProblem(w, http.StatusBadRequest, "Invalid envelope", "body must be a JSON object")
		return
	}
	h.ack(w, r, mapEnvelope(payload))
}

func (h *Handlers) inboundMailgun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEnvelopeBytes)
	env, sig, err := mailgun.ParseRequest(r)
	if err != nil {
		log.Warn().Err(err).Msg("mailgun payload not parseable")
		writeProblem(w, http.StatusBadRequest, "Invalid envelope", "form payload expected")
		return
	}
	if err := h.Mailgun.Verify(sig["timestamp"], sig["token"], sig["signature"]); err != nil {
		log.Warn().Err(err).Str("recipient", env.Recipient).Msg("mailgun signature rejected")
		writeProblem(w, http.StatusForbidden, "Forbidden", "signature verification failed")
		return
	}
	h.ack(w, r, env)
}

// ack processes env and always answers 200. The message text is the same for
// every rejection so a caller cannot learn a tenant's plan or aliases from it.
func (h *Handlers) ack(w http.ResponseWriter, r *http.Request, env domain.Envelope) {
	res := h.Inbound.Process(r.Context(), env)

	out := ackResponse{Received: true, Message: ackMessage(res.Outcome)}
	if res.Outcome.Stored() {
		out.ReviewID = res.ReviewID
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to write inbound ack")
	}
}

func ackMessage(o domain.Outcome) string {
	switch o {
	case domain.OutcomeReviewCreated:
		return "review created"
	case domain.OutcomeRawStored:
		return "review stored for triage"
	case domain.OutcomeAlreadyProcessed:
		return "already processed"
	}
	return "message ignored"
}
