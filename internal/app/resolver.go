package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"review_inbox/internal/domain"
)

// Resolver maps an alias to exactly one establishment and then re-reads that
// establishment scoped to its tenant. The second read is independent of the
// first; if they disagree something upstream is broken and the message must
// not be attributed to anyone.
type Resolver struct {
	repo domain.EstablishmentRepository
}

func NewResolver(r domain.EstablishmentRepository) *Resolver { return &Resolver{repo: r} }

// Resolve returns domain.ErrNotFound for an unknown alias and
// domain.ErrOwnershipMismatch when the scoped re-read fails.
func (r *Resolver) Resolve(ctx context.Context, alias string) (domain.Establishment, error) {
	e, err := r.repo.FindByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Establishment{}, domain.ErrNotFound
		}
		return domain.Establishment{}, fmt.Errorf("find by alias: %w", err)
	}
	if e.Alias != alias {
		return domain.Establishment{}, r.mismatch(alias, e, "alias differs from lookup key")
	}

	owned, err := r.repo.GetForTenant(ctx, e.TenantID, e.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Establishment{}, r.mismatch(alias, e, "scoped re-read found nothing")
		}
		return domain.Establishment{}, fmt.Errorf("ownership re-read: %w", err)
	}
	if owned.ID != e.ID || owned.TenantID != e.TenantID {
		return domain.Establishment{}, r.mismatch(alias, e, "scoped re-read returned a different row")
	}
	return owned, nil
}

func (r *Resolver) mismatch(alias string, e domain.Establishment, why string) error {
	log.Error().
		Str("alias", alias).
		Str("tenant_id", e.TenantID).
		Str("establishment_id", e.ID).
		Str("detail", why).
		Msg("ownership_mismatch")
	return domain.ErrOwnershipMismatch
}
