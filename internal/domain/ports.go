package domain

import "context"

type EstablishmentRepository interface {
	AliasExists(ctx context.Context, alias string) (bool, error)
	// CreateEstablishment returns ErrDuplicate when the alias is already used.
	CreateEstablishment(ctx context.Context, e Establishment) error
	// UpdateAlias swaps the alias in place; the old one stops resolving at commit.
	UpdateAlias(ctx context.Context, tenantID, establishmentID, alias string) error
	FindByAlias(ctx context.Context, alias string) (Establishment, error)
	GetForTenant(ctx context.Context, tenantID, establishmentID string) (Establishment, error)
}

type ReviewRepository interface {
	FindByDedupKey(ctx context.Context, establishmentID, key string) (string, error)
	// InsertReview checks the tenant against the establishment row itself and
	// returns ErrOwnershipMismatch when they disagree, ErrDuplicate on a dedup
	// key conflict.
	InsertReview(ctx context.Context, r Review) error
	ListBySource(ctx context.Context, tenantID string, source ReviewSource, limit int) ([]Review, error)
}

type PlanSource interface {
	// PlanFor returns ErrNotFound when the tenant has no plan row.
	PlanFor(ctx context.Context, tenantID string) (Plan, error)
}

type RejectionRepository interface {
	InsertRejection(ctx context.Context, e RejectionEntry) error
}

// LanguageModel sends one structured-extraction prompt and returns the raw
// completion text. Callers parse it.
type LanguageModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
