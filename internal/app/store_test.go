package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"review_inbox/internal/domain"
)

// memStore is an in-memory stand-in for the MySQL repo. It enforces the same
// constraints the schema does: unique alias, unique (establishment, dedup key)
// and the tenant check on review insert.
type memStore struct {
	mu         sync.Mutex
	ests       map[string]domain.Establishment
	reviews    []domain.Review
	plans      map[string]domain.Plan
	rejections []domain.RejectionEntry

	aliasLookups int
	planLookups  int

	existsLies   bool // AliasExists always answers false
	hideScoped   bool // GetForTenant never finds anything
	failInsert   error
	failDedup    error
	failPlan     error
	failReject   error
	panicReject  bool
	beforeInsert func()
}

func newMemStore() *memStore {
	return &memStore{ests: map[string]domain.Establishment{}, plans: map[string]domain.Plan{}}
}

func (m *memStore) addEstablishment(id, tenant, alias string) domain.Establishment {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := domain.Establishment{ID: id, TenantID: tenant, Alias: alias, Name: id}
	m.ests[id] = e
	return e
}

func (m *memStore) setPlan(tenant, tier, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[tenant] = domain.Plan{TenantID: tenant, Tier: tier, Status: status}
}

func (m *memStore) aliasTakenLocked(alias, exceptID string) bool {
	for id, e := range m.ests {
		if e.Alias == alias && id != exceptID {
			return true
		}
	}
	return false
}

func (m *memStore) AliasExists(_ context.Context, alias string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsLies {
		return false, nil
	}
	return m.aliasTakenLocked(alias, ""), nil
}

func (m *memStore) CreateEstablishment(_ context.Context, e domain.Establishment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aliasTakenLocked(e.Alias, "") {
		return domain.ErrDuplicate
	}
	m.ests[e.ID] = e
	return nil
}

func (m *memStore) UpdateAlias(_ context.Context, tenantID, establishmentID, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.ests[establishmentID]
	if !ok || e.TenantID != tenantID {
		return domain.ErrNotFound
	}
	if m.aliasTakenLocked(alias, establishmentID) {
		return domain.ErrDuplicate
	}
	e.Alias = alias
	m.ests[establishmentID] = e
	return nil
}

func (m *memStore) FindByAlias(_ context.Context, alias string) (domain.Establishment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliasLookups++
	for _, e := range m.ests {
		if e.Alias == alias {
			return e, nil
		}
	}
	return domain.Establishment{}, domain.ErrNotFound
}

func (m *memStore) GetForTenant(_ context.Context, tenantID, establishmentID string) (domain.Establishment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.ests[establishmentID]
	if m.hideScoped || !ok || e.TenantID != tenantID {
		return domain.Establishment{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memStore) FindByDedupKey(_ context.Context, establishmentID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDedup != nil {
		return "", m.failDedup
	}
	for _, r := range m.reviews {
		if r.EstablishmentID == establishmentID && r.DedupKey != nil && *r.DedupKey == key {
			return r.ID, nil
		}
	}
	return "", domain.ErrNotFound
}

func (m *memStore) InsertReview(ctx context.Context, r domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return m.failInsert
	}
	e, ok := m.ests[r.EstablishmentID]
	if !ok || e.TenantID != r.TenantID {
		return domain.ErrOwnershipMismatch
	}
	if r.DedupKey != nil {
		for _, x := range m.reviews {
			if x.EstablishmentID == r.EstablishmentID && x.DedupKey != nil && *x.DedupKey == *r.DedupKey {
				return domain.ErrDuplicate
			}
		}
	}
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *memStore) ListBySource(_ context.Context, tenantID string, source domain.ReviewSource, limit int) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Review
	for _, r := range m.reviews {
		if r.TenantID == tenantID && r.Source == source {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) PlanFor(_ context.Context, tenantID string) (domain.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planLookups++
	if m.failPlan != nil {
		return domain.Plan{}, m.failPlan
	}
	p, ok := m.plans[tenantID]
	if !ok {
		return domain.Plan{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memStore) InsertRejection(_ context.Context, e domain.RejectionEntry) error {
	if m.panicReject {
		panic("rejection store exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReject != nil {
		return m.failReject
	}
	m.rejections = append(m.rejections, e)
	return nil
}

func (m *memStore) reviewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reviews)
}

func (m *memStore) lastRejection() (domain.RejectionEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rejections) == 0 {
		return domain.RejectionEntry{}, false
	}
	return m.rejections[len(m.rejections)-1], true
}

// fakeModel answers with a canned completion, or blocks until the context
// ends when block is set.
type fakeModel struct {
	mu       sync.Mutex
	out      string
	err      error
	block    bool
	calls    int
	lastUser string
}

func (f *fakeModel) Complete(ctx context.Context, _, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastUser = user
	out, err, block := f.out, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return out, err
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errBoom = errors.New("boom")
