package db

import "time"

// QuotaUsageModel is the per-tenant, per-kind consumption counter. The
// composite unique index is the single serialization point for all quota
// mutation: every consume/release locks exactly one of these rows. Rows are
// never deleted, a zero row stays for audit reads.
type QuotaUsageModel struct {
	ID           uint      `gorm:"primaryKey"`
	TenantID     string    `gorm:"type:uuid;uniqueIndex:idx_quota_tenant_kind;not null"`
	ResourceKind string    `gorm:"uniqueIndex:idx_quota_tenant_kind;not null"`
	Used         int       `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (QuotaUsageModel) TableName() string {
	return "quota_usage"
}

// PlanLimitModel is owned by billing; this core only reads it. One row per
// tenant and resource kind carrying the paid-tier cap.
type PlanLimitModel struct {
	ID           uint      `gorm:"primaryKey"`
	TenantID     string    `gorm:"type:uuid;uniqueIndex:idx_plan_tenant_kind;not null"`
	ResourceKind string    `gorm:"uniqueIndex:idx_plan_tenant_kind;not null"`
	Capacity     int       `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (PlanLimitModel) TableName() string {
	return "plan_limits"
}

type ListingModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	TenantID      string `gorm:"type:uuid;index;not null"`
	Title         string `gorm:"not null"`
	Status        string `gorm:"index:idx_listing_status_expiry;not null"`
	Showcased     bool   `gorm:"not null;default:false"`
	ShowcaseUntil *time.Time
	ExpiresAt     time.Time `gorm:"index:idx_listing_status_expiry;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (ListingModel) TableName() string {
	return "listings"
}
