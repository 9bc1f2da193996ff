package domain

import (
	"context"
	"time"
)

// ResourceKind names a category of capacity-bound resource a tenant can hold.
type ResourceKind string

const (
	ResourceActiveListing ResourceKind = "listing_active"
	ResourceShowcase      ResourceKind = "showcase"
)

// PlanLimits maps resource kinds to the hard cap the tenant's current plan
// grants. Kinds absent from the map have capacity zero.
type PlanLimits map[ResourceKind]int

func (l PlanLimits) For(kind ResourceKind) int {
	return l[kind]
}

// Clone returns an independent copy so cached limits cannot be mutated by
// callers.
func (l PlanLimits) Clone() PlanLimits {
	out := make(PlanLimits, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// QuotaUsage is one durable counter row. Used never exceeds the tenant's cap
// at the moment of a successful consume and never goes negative.
type QuotaUsage struct {
	TenantID     string
	ResourceKind ResourceKind
	Used         int
	UpdatedAt    time.Time
}

// LimitSource resolves a tenant's current caps. Implementations must reflect
// a plan change on the very next call after invalidation.
type LimitSource interface {
	Limits(ctx context.Context, tenantID string) (PlanLimits, error)
}
