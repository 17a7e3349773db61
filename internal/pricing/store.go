package pricing

import (
	"context"
	"sort"
	"sync"
)

// Store holds the backend's pricing overrides and partner plans, the data
// behind /api/pricing and /api/white-label/plans.
type Store interface {
	ListOverrides(ctx context.Context) ([]RemoteTier, error)
	PutOverride(ctx context.Context, o RemoteTier) error
	ListPlans(ctx context.Context) ([]Plan, error)
	PutPlan(ctx context.Context, p Plan) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu        sync.RWMutex
	overrides map[TierID]RemoteTier
	plans     map[PlanID]Plan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		overrides: make(map[TierID]RemoteTier),
		plans:     make(map[PlanID]Plan),
	}
}

func (m *MemoryStore) ListOverrides(_ context.Context) ([]RemoteTier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RemoteTier, 0, len(m.overrides))
	for _, o := range m.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) PutOverride(_ context.Context, o RemoteTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.Features = append([]string(nil), o.Features...)
	m.overrides[o.ID] = o
	return nil
}

func (m *MemoryStore) ListPlans(_ context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sortPlans(out)
	return out, nil
}

func (m *MemoryStore) PutPlan(_ context.Context, p Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Features = append([]string(nil), p.Features...)
	m.plans[p.ID] = p
	return nil
}

// sortPlans orders plans cheapest first, then by id.
func sortPlans(plans []Plan) {
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].MonthlyCents != plans[j].MonthlyCents {
			return plans[i].MonthlyCents < plans[j].MonthlyCents
		}
		return plans[i].ID < plans[j].ID
	})
}

var _ Store = (*MemoryStore)(nil)
