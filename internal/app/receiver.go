package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"review_inbox/internal/adapters/observability"
	"review_inbox/internal/domain"
)

// Result is what happened to one inbound message. Every Result is acked to
// the transport as a success.
type Result struct {
	Outcome         domain.Outcome
	Stage           domain.Stage
	Trace           []domain.Stage
	ReviewID        string
	TenantID        string
	EstablishmentID string
	DedupKey        string
	Extraction      string // heuristic|llm|"" for raw or not reached
}

func (r *Result) reach(s domain.Stage) {
	r.Stage = s
	r.Trace = append(r.Trace, s)
}

type Receiver struct {
	recipients *RecipientParser
	resolver   *Resolver
	gate       *PlanGate
	dedup      *DuplicateDetector
	extractor  *ContentExtractor
	writer     *Writer
	rejections *RejectionLogger
}

type ReceiverDeps struct {
	Recipients *RecipientParser
	Resolver   *Resolver
	Gate       *PlanGate
	Dedup      *DuplicateDetector
	Extractor  *ContentExtractor
	Writer     *Writer
	Rejections *RejectionLogger
}

func NewReceiver(d ReceiverDeps) *Receiver {
	return &Receiver{
		recipients: d.Recipients,
		resolver:   d.Resolver,
		gate:       d.Gate,
		dedup:      d.Dedup,
		extractor:  d.Extractor,
		writer:     d.Writer,
		rejections: d.Rejections,
	}
}

// Process runs one message through the pipeline. It has no error return on
// purpose: business failures are outcomes, and the caller acks all of them.
func (rc *Receiver) Process(ctx context.Context, env domain.Envelope) (res Result) {
	start := time.Now()
	res.reach(domain.StageReceived)
	defer func() { rc.record(env, &res, time.Since(start)) }()

	to, err := rc.recipients.Parse(env.Recipient)
	if err != nil {
		res.Outcome = domain.OutcomeInvalidRecipient
		if errors.Is(err, ErrWrongDomain) {
			res.Outcome = domain.OutcomeWrongDomain
		}
		rc.reject(ctx, env, "", res.Outcome)
		return res
	}
	if !ValidAlias(to.Alias) {
		res.Outcome = domain.OutcomeInvalidAlias
		rc.reject(ctx, env, to.Alias, res.Outcome)
		return res
	}
	res.reach(domain.StageAliasExtracted)

	est, err := rc.resolver.Resolve(ctx, to.Alias)
	switch {
	case errors.Is(err, domain.ErrOwnershipMismatch):
		res.Outcome = domain.OutcomeOwnershipMismatch
		rc.reject(ctx, env, to.Alias, res.Outcome)
		return res
	case err != nil:
		// Store failures during lookup are indistinguishable from "unknown"
		// for the sender; the log line tells them apart.
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("alias", to.Alias).Msg("establishment lookup failed")
		}
		res.Outcome = domain.OutcomeNoEstablishment
		rc.reject(ctx, env, to.Alias, res.Outcome)
		return res
	}
	res.TenantID, res.EstablishmentID = est.TenantID, est.ID
	res.reach(domain.StageEstablishmentFound)

	dec, err := rc.gate.Check(ctx, est.TenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", est.TenantID).Msg("plan check failed")
		res.Outcome = domain.OutcomePlanLookupFailed
		rc.reject(ctx, env, to.Alias, res.Outcome)
		return res
	}
	if !dec.Allowed {
		res.Outcome = domain.OutcomePlanNotEligible
		rc.reject(ctx, env, to.Alias, res.Outcome)
		return res
	}
	res.reach(domain.StagePlanChecked)

	res.DedupKey = rc.dedup.Key(env)
	existing, err := rc.dedup.Seen(ctx, est.ID, res.DedupKey)
	if err != nil {
		// The unique index still protects the insert, so carry on.
		log.Warn().Err(err).Str("establishment_id", est.ID).Msg("dedup pre-check failed")
	}
	if existing != "" {
		res.Outcome = domain.OutcomeAlreadyProcessed
		res.ReviewID = existing
		rc.reject(ctx, env, to.Alias, res.Outcome)
		return res
	}
	res.reach(domain.StageDedupChecked)

	body := bodyText(env.Text, env.HTML)
	ex, ok := rc.extractor.Extract(ctx, env.Subject, body)
	res.reach(domain.StageContentExtracted)

	if ok {
		res.Extraction = ex.Stage
		res.ReviewID, err = rc.writer.WriteReview(ctx, est, res.DedupKey, ex)
		res.Outcome = domain.OutcomeReviewCreated
	} else {
		res.ReviewID, err = rc.writer.WriteRaw(ctx, est, res.DedupKey, env.Subject, body)
		res.Outcome = domain.OutcomeRawStored
	}
	switch {
	case err == nil:
		res.reach(domain.StageReviewCreated)
	case errors.Is(err, domain.ErrDuplicate):
		// lost the race against a concurrent redelivery
		res.Outcome = domain.OutcomeAlreadyProcessed
		res.ReviewID = ""
		if id, serr := rc.dedup.Seen(ctx, est.ID, res.DedupKey); serr == nil {
			res.ReviewID = id
		}
		rc.reject(ctx, env, to.Alias, res.Outcome)
	case errors.Is(err, domain.ErrOwnershipMismatch):
		res.Outcome = domain.OutcomeOwnershipMismatch
		res.ReviewID = ""
		log.Error().
			Str("tenant_id", est.TenantID).
			Str("establishment_id", est.ID).
			Strs("trace", stageStrings(res.Trace)).
			Msg("ownership_mismatch at write")
		rc.reject(ctx, env, to.Alias, res.Outcome)
	default:
		res.Outcome = domain.OutcomePersistenceFailed
		res.ReviewID = ""
		log.Error().Err(err).
			Str("tenant_id", est.TenantID).
			Str("establishment_id", est.ID).
			Str("message_id", env.MessageID).
			Strs("trace", stageStrings(res.Trace)).
			Msg("review write failed")
		rc.reject(ctx, env, to.Alias, res.Outcome)
	}
	return res
}

func (rc *Receiver) reject(ctx context.Context, env domain.Envelope, alias string, reason domain.Outcome) {
	rc.rejections.Log(ctx, domain.RejectionEntry{
		Recipient:      env.Recipient,
		AliasCandidate: alias,
		Reason:         reason,
		MessageID:      env.MessageID,
	})
}

func (rc *Receiver) record(env domain.Envelope, res *Result, dur time.Duration) {
	observability.ObserveInbound(string(res.Outcome), string(res.Stage), dur)

	var ev *zerolog.Event
	switch res.Outcome {
	case domain.OutcomeOwnershipMismatch, domain.OutcomePersistenceFailed, domain.OutcomePlanLookupFailed:
		ev = log.Error()
	default:
		ev = log.Info()
	}
	ev.Str("outcome", string(res.Outcome)).
		Str("stage", string(res.Stage)).
		Strs("trace", stageStrings(res.Trace)).
		Str("recipient", env.Recipient).
		Str("message_id", env.MessageID).
		Str("tenant_id", res.TenantID).
		Str("establishment_id", res.EstablishmentID).
		Str("review_id", res.ReviewID).
		Str("extraction", res.Extraction).
		Dur("duration", dur).
		Msg("inbound_outcome")
}

func stageStrings(in []domain.Stage) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
