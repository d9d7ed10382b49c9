package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"review_inbox/internal/domain"
)

const (
	contentKeyPrefix = "content:"
	hashedIDPrefix   = "mid:"
	maxDedupKeyBytes = 255 // reviews.dedup_key is VARCHAR(255) ascii
)

// DuplicateDetector guards (establishment_id, dedup key). The pre-check is an
// optimization; the store's unique index on insert is authoritative and the
// writer reports that conflict as the same "already processed" outcome.
type DuplicateDetector struct {
	reviews     domain.ReviewRepository
	contentHash bool
}

// NewDuplicateDetector: with contentHash set, messages without a provider id
// get a key derived from their content instead of no key at all.
func NewDuplicateDetector(r domain.ReviewRepository, contentHash bool) *DuplicateDetector {
	return &DuplicateDetector{reviews: r, contentHash: contentHash}
}

// Key returns the dedup key for env, or "" when no idempotency applies.
func (d *DuplicateDetector) Key(env domain.Envelope) string {
	if id := strings.Trim(strings.TrimSpace(env.MessageID), "<>"); id != "" {
		if len(id) > maxDedupKeyBytes || !isASCII(id) {
			sum := sha256.Sum256([]byte(id))
			return hashedIDPrefix + hex.EncodeToString(sum[:])
		}
		return id
	}
	if !d.contentHash {
		return ""
	}
	h := sha256.New()
	for _, part := range []string{env.Recipient, env.Sender, env.Subject, env.Text, env.HTML} {
		h.Write([]byte(strings.TrimSpace(part)))
		h.Write([]byte{0})
	}
	return contentKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Seen returns the id of an existing review for the key, or "".
func (d *DuplicateDetector) Seen(ctx context.Context, establishmentID, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	id, err := d.reviews.FindByDedupKey(ctx, establishmentID, key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return id, err
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
