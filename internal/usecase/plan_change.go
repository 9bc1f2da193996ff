package usecase

import (
	"context"
	"errors"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

// PlanChangeService is the synchronous invalidation path billing calls when a
// tenant's tier changes: the resolver cache is cleared and every limiter
// bucket for the tenant is dropped, so neither stale caps nor stale throttle
// state survive into the next request.
type PlanChangeService struct {
	Resolver *LimitResolver
	Limiter  domain.RateLimiter
}

func NewPlanChangeService(resolver *LimitResolver, limiter domain.RateLimiter) *PlanChangeService {
	return &PlanChangeService{Resolver: resolver, Limiter: limiter}
}

func (s *PlanChangeService) PlanChanged(ctx context.Context, tenantID string) error {
	if s == nil || s.Resolver == nil {
		return errors.New("plan change service is not wired")
	}
	if tenantID == "" {
		return errors.New("tenant_id is required")
	}
	s.Resolver.Invalidate(tenantID)
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Invalidate(ctx, tenantID)
}
