package domain

import "time"

type ReviewSource string

const (
	SourceManual         ReviewSource = "manual"
	SourceAutomatedEmail ReviewSource = "automated-email"
	SourceRawFallback    ReviewSource = "raw-fallback"
)

type Review struct {
	ID              string
	TenantID        string
	EstablishmentID string
	Source          ReviewSource
	Rating          *int // 1..5
	Text            string
	Author          *string
	DedupKey        *string // provider message id
	RawCapture      *string // raw-fallback only, bounded length
	ReviewDate      *string // as reported by the sender, unparsed
	CreatedAt       time.Time
}

// Envelope is the transport-neutral inbound message.
type Envelope struct {
	Recipient string
	Sender    string
	Subject   string
	Text      string
	HTML      string
	MessageID string
}
