package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"review_inbox/internal/domain"
)

var DefaultPaidTiers = []string{"starter", "pro", "business"}

// Decision is what the gate saw. Allowed is false for every unpaid or unknown tier.
type Decision struct {
	Allowed bool
	Plan    domain.Plan
}

// PlanGate reads the tenant plan (cache-aside) and decides whether automated
// ingestion applies. It never writes plan state.
type PlanGate struct {
	plans    domain.PlanSource
	cache    domain.Cache
	cacheTTL time.Duration
	paid     map[string]struct{}
}

func NewPlanGate(p domain.PlanSource, c domain.Cache, ttl time.Duration, paidTiers []string) *PlanGate {
	if len(paidTiers) == 0 {
		paidTiers = DefaultPaidTiers
	}
	paid := make(map[string]struct{}, len(paidTiers))
	for _, t := range paidTiers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && t != domain.PlanFree {
			paid[t] = struct{}{}
		}
	}
	return &PlanGate{plans: p, cache: c, cacheTTL: ttl, paid: paid}
}

func (g *PlanGate) Check(ctx context.Context, tenantID string) (Decision, error) {
	plan, err := g.plan(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: g.eligible(plan), Plan: plan}, nil
}

func (g *PlanGate) eligible(p domain.Plan) bool {
	if _, ok := g.paid[strings.ToLower(p.Tier)]; !ok {
		return false
	}
	switch strings.ToLower(p.Status) {
	case "active", "trialing", "":
		return true
	}
	return false
}

func (g *PlanGate) plan(ctx context.Context, tenantID string) (domain.Plan, error) {
	key := fmt.Sprintf("plan:%s", tenantID)
	var p domain.Plan
	if g.cache != nil {
		if ok, _ := g.cache.Get(ctx, key, &p); ok {
			return p, nil
		}
	}
	p, err := g.plans.PlanFor(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Plan{}, fmt.Errorf("plan lookup: %w", err)
		}
		p = domain.Plan{TenantID: tenantID, Tier: domain.PlanFree}
	}
	if g.cache != nil && g.cacheTTL > 0 {
		_ = g.cache.Set(ctx, key, p, int(g.cacheTTL.Seconds()))
	}
	return p, nil
}
