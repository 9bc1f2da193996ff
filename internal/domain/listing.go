package domain

import "time"

type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingExpired   ListingStatus = "expired"
	ListingCancelled ListingStatus = "cancelled"
)

// Listing is the business resource the quota protects. The status transition
// out of active is one-directional and releases the tenant's slot in the same
// transaction that flips the row.
type Listing struct {
	ID            string
	TenantID      string
	Title         string
	Status        ListingStatus
	Showcased     bool
	ShowcaseUntil *time.Time
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReclaimResult summarizes one reclaim pass for logging, metrics and the
// cache-invalidation hook.
type ReclaimResult struct {
	Expired   int
	Failed    int
	TenantIDs []string
}

func (r *ReclaimResult) Merge(other ReclaimResult) {
	r.Expired += other.Expired
	r.Failed += other.Failed
	seen := make(map[string]bool, len(r.TenantIDs))
	for _, id := range r.TenantIDs {
		seen[id] = true
	}
	for _, id := range other.TenantIDs {
		if !seen[id] {
			seen[id] = true
			r.TenantIDs = append(r.TenantIDs, id)
		}
	}
}
