package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"review_inbox/internal/domain"
)

const (
	RawMarker            = "[unparsed]"
	DefaultRawCaptureMax = 4000
)

// Column limits of the reviews table, in bytes. VARCHAR counts characters, so
// a byte cut is always inside the limit.
const (
	maxTextBytes       = 65535
	maxAuthorBytes     = 255
	maxReviewDateBytes = 64
)

// Writer commits review rows. Once a message gets here the write is detached
// from the request context: it finishes or fails on its own deadline.
type Writer struct {
	reviews domain.ReviewRepository
	rawMax  int
	timeout time.Duration
	now     func() time.Time
}

func NewWriter(r domain.ReviewRepository, rawMax int, timeout time.Duration) *Writer {
	if rawMax <= 0 {
		rawMax = DefaultRawCaptureMax
	}
	if rawMax > maxTextBytes {
		rawMax = maxTextBytes
	}
	return &Writer{reviews: r, rawMax: rawMax, timeout: timeout, now: time.Now}
}

// WriteReview stores an extracted review. It returns domain.ErrDuplicate when
// the dedup key already exists and domain.ErrOwnershipMismatch when the
// establishment no longer belongs to the tenant.
func (w *Writer) WriteReview(ctx context.Context, e domain.Establishment, dedupKey string, ex Extraction) (string, error) {
	r := w.base(e, dedupKey, domain.SourceAutomatedEmail)
	r.Text = truncateRunes(ex.Text, maxTextBytes)
	r.Rating = ex.Rating
	r.Author = clipPtr(ex.Author, maxAuthorBytes)
	r.ReviewDate = clipPtr(ex.ReviewDate, maxReviewDateBytes)
	return r.ID, w.insert(ctx, r)
}

// WriteRaw keeps a message nothing could parse, tagged for manual triage.
func (w *Writer) WriteRaw(ctx context.Context, e domain.Establishment, dedupKey, subject, body string) (string, error) {
	r := w.base(e, dedupKey, domain.SourceRawFallback)
	r.Text = truncateRunes(strings.TrimSpace(RawMarker+" "+strings.TrimSpace(subject)), maxTextBytes)
	raw := truncateRunes(strings.TrimSpace(body), w.rawMax)
	r.RawCapture = &raw
	return r.ID, w.insert(ctx, r)
}

func (w *Writer) base(e domain.Establishment, dedupKey string, src domain.ReviewSource) domain.Review {
	r := domain.Review{
		ID:              uuid.NewString(),
		TenantID:        e.TenantID,
		EstablishmentID: e.ID,
		Source:          src,
		CreatedAt:       w.now().UTC(),
	}
	if dedupKey != "" {
		k := dedupKey
		r.DedupKey = &k
	}
	return r
}

func clipPtr(s *string, n int) *string {
	if s == nil {
		return nil
	}
	c := truncateRunes(*s, n)
	return &c
}

func (w *Writer) insert(ctx context.Context, r domain.Review) error {
	wctx := context.WithoutCancel(ctx)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(wctx, w.timeout)
		defer cancel()
	}
	return w.reviews.InsertReview(wctx, r)
}
