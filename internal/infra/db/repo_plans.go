package db

import (
	"context"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"gorm.io/gorm"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Limits returns the paid-tier caps for a tenant, or found=false when no plan
// rows exist so the resolver can fall back to free-tier defaults.
func (r *PlanRepository) Limits(ctx context.Context, tenantID string) (domain.PlanLimits, bool, error) {
	var rows []PlanLimitModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	limits := make(domain.PlanLimits, len(rows))
	for _, row := range rows {
		limits[domain.ResourceKind(row.ResourceKind)] = row.Capacity
	}
	return limits, true, nil
}
