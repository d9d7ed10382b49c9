package domain

// Stage is the furthest point of the inbound pipeline a message reached.
type Stage string

const (
	StageReceived           Stage = "received"
	StageAliasExtracted     Stage = "alias_extracted"
	StageEstablishmentFound Stage = "establishment_found"
	StagePlanChecked        Stage = "plan_checked"
	StageDedupChecked       Stage = "dedup_checked"
	StageContentExtracted   Stage = "content_extracted"
	StageReviewCreated      Stage = "review_created"
)

// Outcome is the terminal state of one inbound message. All outcomes are acked
// to the transport; they only differ in logs, metrics and tests.
type Outcome string

const (
	OutcomeReviewCreated     Outcome = "review_created"
	OutcomeRawStored         Outcome = "raw_stored"
	OutcomeAlreadyProcessed  Outcome = "already_processed"
	OutcomeInvalidRecipient  Outcome = "invalid_recipient"
	OutcomeWrongDomain       Outcome = "wrong_domain"
	OutcomeInvalidAlias      Outcome = "invalid_alias"
	OutcomeNoEstablishment   Outcome = "no_establishment_found"
	OutcomeOwnershipMismatch Outcome = "ownership_mismatch"
	OutcomePlanNotEligible   Outcome = "plan_not_eligible"
	OutcomePlanLookupFailed  Outcome = "plan_lookup_failed"
	OutcomePersistenceFailed Outcome = "persistence_failed"
)

// Stored reports whether a review row exists for the message after processing.
func (o Outcome) Stored() bool {
	return o == OutcomeReviewCreated || o == OutcomeRawStored || o == OutcomeAlreadyProcessed
}
