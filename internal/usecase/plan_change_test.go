package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

type recordingLimiter struct {
	invalidated []string
	err         error
}

func (r *recordingLimiter) Allow(context.Context, string, domain.BucketConfig) (domain.RateLimitDecision, error) {
	return domain.RateLimitDecision{Allowed: true}, nil
}

func (r *recordingLimiter) Invalidate(_ context.Context, identity string) error {
	r.invalidated = append(r.invalidated, identity)
	return r.err
}

func TestPlanChange_InvalidatesResolverAndLimiter(t *testing.T) {
	source := &fakePlanSource{limits: map[string]domain.PlanLimits{}}
	resolver := NewLimitResolver(source, freeTier())
	limiter := &recordingLimiter{}
	svc := NewPlanChangeService(resolver, limiter)

	if _, err := resolver.Limits(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	source.limits["tenant-a"] = domain.PlanLimits{domain.ResourceActiveListing: 25}

	if err := svc.PlanChanged(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("plan changed: %v", err)
	}
	if len(limiter.invalidated) != 1 || limiter.invalidated[0] != "tenant-a" {
		t.Fatalf("limiter invalidations = %v", limiter.invalidated)
	}
	limits, err := resolver.Limits(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("resolve after change: %v", err)
	}
	if limits.For(domain.ResourceActiveListing) != 25 {
		t.Fatalf("limit after change = %d, want 25", limits.For(domain.ResourceActiveListing))
	}
}

func TestPlanChange_LimiterErrorPropagates(t *testing.T) {
	resolver := NewLimitResolver(&fakePlanSource{}, freeTier())
	wantErr := errors.New("scan failed")
	svc := NewPlanChangeService(resolver, &recordingLimiter{err: wantErr})

	if err := svc.PlanChanged(context.Background(), "tenant-b"); !errors.Is(err, wantErr) {
		t.Fatalf("expected limiter error, got %v", err)
	}
}

func TestPlanChange_RequiresTenant(t *testing.T) {
	svc := NewPlanChangeService(NewLimitResolver(&fakePlanSource{}, freeTier()), nil)
	if err := svc.PlanChanged(context.Background(), ""); err == nil {
		t.Fatal("empty tenant should error")
	}
}
