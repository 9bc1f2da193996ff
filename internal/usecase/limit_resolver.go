package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

// LimitResolver maps a tenant to its current numeric caps. Resolved limits
// are cached per tenant; billing invalidates synchronously on plan change, so
// the very next check after an upgrade sees the new caps with no propagation
// delay.
type LimitResolver struct {
	plans    PlanSource
	defaults domain.PlanLimits

	mu    sync.Mutex
	cache map[string]domain.PlanLimits
}

func NewLimitResolver(plans PlanSource, defaults domain.PlanLimits) *LimitResolver {
	return &LimitResolver{
		plans:    plans,
		defaults: defaults,
		cache:    make(map[string]domain.PlanLimits),
	}
}

func (r *LimitResolver) Limits(ctx context.Context, tenantID string) (domain.PlanLimits, error) {
	if tenantID == "" {
		return nil, errors.New("tenant_id is required")
	}

	r.mu.Lock()
	cached, ok := r.cache[tenantID]
	r.mu.Unlock()
	if ok {
		return cached.Clone(), nil
	}

	limits, found, err := r.plans.Limits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !found {
		limits = r.defaults.Clone()
	}

	r.mu.Lock()
	r.cache[tenantID] = limits
	r.mu.Unlock()
	return limits.Clone(), nil
}

func (r *LimitResolver) Invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.cache, tenantID)
	r.mu.Unlock()
}

var _ domain.LimitSource = (*LimitResolver)(nil)
