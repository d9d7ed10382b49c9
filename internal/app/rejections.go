package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"review_inbox/internal/adapters/observability"
	"review_inbox/internal/domain"
)

// inbound_rejections column limits
const (
	maxRejectAddrBytes  = 320
	maxRejectAliasBytes = 128
)

// RejectionLogger writes the analytics-only audit row for messages that never
// became reviews. Nothing it does can fail the pipeline.
type RejectionLogger struct {
	repo domain.RejectionRepository
	now  func() time.Time
}

func NewRejectionLogger(r domain.RejectionRepository) *RejectionLogger {
	return &RejectionLogger{repo: r, now: time.Now}
}

func (l *RejectionLogger) Log(ctx context.Context, e domain.RejectionEntry) {
	if l == nil || l.repo == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			observability.ObserveRejectionLogFailure()
			log.Error().Interface("panic", rec).Msg("rejection log panicked")
		}
	}()
	e.Recipient = truncateRunes(e.Recipient, maxRejectAddrBytes)
	e.AliasCandidate = truncateRunes(e.AliasCandidate, maxRejectAliasBytes)
	e.MessageID = truncateRunes(e.MessageID, maxRejectAddrBytes)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	if err := l.repo.InsertRejection(context.WithoutCancel(ctx), e); err != nil {
		observability.ObserveRejectionLogFailure()
		log.Warn().Err(err).Str("reason", string(e.Reason)).Msg("rejection log write failed")
	}
}
