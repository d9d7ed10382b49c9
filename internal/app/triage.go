package app

import (
	"context"
	"errors"

	"review_inbox/internal/domain"
)

const (
	defaultTriageLimit = 50
	maxTriageLimit     = 500
)

var ErrTenantRequired = errors.New("tenant id is required")

// TriageService lists raw-fallback rows so an operator can fix them by hand.
// Reads are always scoped to one tenant.
type TriageService struct {
	reviews domain.ReviewRepository
}

func NewTriageService(r domain.ReviewRepository) *TriageService {
	return &TriageService{reviews: r}
}

func (t *TriageService) Pending(ctx context.Context, tenantID string, limit int) ([]domain.Review, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	switch {
	case limit <= 0:
		limit = defaultTriageLimit
	case limit > maxTriageLimit:
		limit = maxTriageLimit
	}
	return t.reviews.ListBySource(ctx, tenantID, domain.SourceRawFallback, limit)
}
