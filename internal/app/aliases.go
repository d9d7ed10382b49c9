package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_inbox/internal/domain"
)

const (
	aliasAttempts  = 5
	aliasTokenLen  = 8
	aliasAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	DefaultPrefix  = "avis-"
	maxCustomAlias = 64

	aliasByteLimit  = 252 // largest multiple of len(aliasAlphabet) below 256
	maxEntropyReads = 16
)

var errEntropyStarved = errors.New("alias entropy: no usable bytes")

var customAliasRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

type AliasRegistry struct {
	repo   domain.EstablishmentRepository
	prefix string
	// rand is swapped in tests to force collisions.
	rand func([]byte) (int, error)
}

func NewAliasRegistry(r domain.EstablishmentRepository, prefix string) *AliasRegistry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AliasRegistry{repo: r, prefix: NormalizeAlias(prefix), rand: crand.Read}
}

// NormalizeAlias is the only transformation applied to a token, both when it is
// issued and when it is looked up.
func NormalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidAlias reports whether s (already normalized) is an acceptable alias.
func ValidAlias(s string) bool {
	return len(s) <= maxCustomAlias && customAliasRe.MatchString(s)
}

// Generate returns a fresh candidate token without checking the store.
func (a *AliasRegistry) Generate() (string, error) {
	out := make([]byte, 0, aliasTokenLen)
	buf := make([]byte, aliasTokenLen)
	for reads := 0; len(out) < aliasTokenLen; reads++ {
		if reads == maxEntropyReads {
			return "", errEntropyStarved
		}
		if _, err := a.rand(buf); err != nil {
			return "", fmt.Errorf("alias entropy: %w", err)
		}
		for _, b := range buf {
			// 252..255 would favour a-d
			if b >= aliasByteLimit || len(out) == aliasTokenLen {
				continue
			}
			out = append(out, aliasAlphabet[int(b)%len(aliasAlphabet)])
		}
	}
	return a.prefix + string(out), nil
}

// CreateEstablishment stores a new establishment together with its alias.
// An empty customAlias means "generate one".
func (a *AliasRegistry) CreateEstablishment(ctx context.Context, tenantID, name string, city *string, customAlias string) (domain.Establishment, error) {
	e := domain.Establishment{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Name:     strings.TrimSpace(name),
		City:     city,
	}
	if customAlias != "" {
		alias := NormalizeAlias(customAlias)
		if !ValidAlias(alias) {
			return domain.Establishment{}, domain.ErrInvalidAlias
		}
		e.Alias = alias
		if err := a.repo.CreateEstablishment(ctx, e); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.Establishment{}, domain.ErrAliasTaken
			}
			return domain.Establishment{}, err
		}
		return e, nil
	}

	err := a.issue(ctx, func(alias string) error {
		e.Alias = alias
		return a.repo.CreateEstablishment(ctx, e)
	})
	if err != nil {
		return domain.Establishment{}, err
	}
	return e, nil
}

// Regenerate replaces the alias of an owned establishment. The previous alias
// stops resolving as soon as the update commits.
func (a *AliasRegistry) Regenerate(ctx context.Context, tenantID, establishmentID string) (string, error) {
	if _, err := a.repo.GetForTenant(ctx, tenantID, establishmentID); err != nil {
		return "", err
	}
	var issued string
	err := a.issue(ctx, func(alias string) error {
		issued = alias
		return a.repo.UpdateAlias(ctx, tenantID, establishmentID, alias)
	})
	if err != nil {
		return "", err
	}
	log.Info().
		Str("tenant_id", tenantID).
		Str("establishment_id", establishmentID).
		Str("alias", issued).
		Msg("alias regenerated")
	return issued, nil
}

// SetCustom installs an owner-chosen alias.
func (a *AliasRegistry) SetCustom(ctx context.Context, tenantID, establishmentID, alias string) (string, error) {
	alias = NormalizeAlias(alias)
	if !ValidAlias(alias) {
		return "", domain.ErrInvalidAlias
	}
	if err := a.repo.UpdateAlias(ctx, tenantID, establishmentID, alias); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return "", domain.ErrAliasTaken
		}
		return "", err
	}
	return alias, nil
}

// issue runs the generate/check/write loop. The existence check keeps the
// common path cheap; the store's unique index is what actually guarantees
// uniqueness under concurrent issuance, so a duplicate on write counts as a
// collision too.
func (a *AliasRegistry) issue(ctx context.Context, write func(alias string) error) error {
	for attempt := 1; attempt <= aliasAttempts; attempt++ {
		alias, err := a.Generate()
		if err != nil {
			return err
		}
		exists, err := a.repo.AliasExists(ctx, alias)
		if err != nil {
			return fmt.Errorf("alias exists check: %w", err)
		}
		if exists {
			log.Warn().Int("attempt", attempt).Msg("alias collision on check")
			continue
		}
		err = write(alias)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
		log.Warn().Int("attempt", attempt).Msg("alias collision on write")
	}
	log.Error().Int("attempts", aliasAttempts).Msg("alias issuance exhausted")
	return domain.ErrAliasExhausted
}
