package domain

import "time"

type Establishment struct {
	ID        string
	TenantID  string
	Alias     string // unique across all establishments
	Name      string
	City      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan is read-only here; the billing side owns it.
type Plan struct {
	TenantID string
	Tier     string // free|starter|pro|business
	Status   string // active|trialing|past_due|canceled
}

const PlanFree = "free"

type RejectionEntry struct {
	Recipient      string
	AliasCandidate string
	Reason         Outcome
	MessageID      string
	CreatedAt      time.Time
}
