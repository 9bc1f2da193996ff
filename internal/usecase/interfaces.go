package usecase

import (
	"context"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

// PlanSource reads the billing-owned plan rows. found is false when the
// tenant has no paid plan and the free-tier defaults apply.
type PlanSource interface {
	Limits(ctx context.Context, tenantID string) (limits domain.PlanLimits, found bool, err error)
}

// ReclaimStore expires one batch of lapsed listings and releases their quota
// slots, all inside a single transaction with per-item savepoints.
type ReclaimStore interface {
	ReclaimExpiredBatch(ctx context.Context, batchSize int, now time.Time) (domain.ReclaimResult, error)
}
