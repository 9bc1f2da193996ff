package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"gorm.io/gorm"
)

// QuotaLedger enforces hard caps on the quota_usage rows. Consume and Release
// take the caller's transaction so the quota mutation commits or rolls back
// together with the business row it protects. The ledger fails closed: any
// error propagates and aborts that transaction.
type QuotaLedger struct {
	db     *gorm.DB
	limits domain.LimitSource
}

func NewQuotaLedger(db *gorm.DB, limits domain.LimitSource) *QuotaLedger {
	return &QuotaLedger{db: db, limits: limits}
}

// Consume increments the tenant's counter for kind by amount, or returns
// ErrQuotaExceeded without mutating anything. The check-then-increment holds
// an exclusive lock on the usage row until the caller's transaction ends,
// which is what bounds concurrent grants to the cap.
func (l *QuotaLedger) Consume(ctx context.Context, tx *gorm.DB, tenantID string, kind domain.ResourceKind, amount int) error {
	if tx == nil {
		return errors.New("quota consume requires a transaction")
	}
	if amount <= 0 {
		return fmt.Errorf("invalid consume amount %d", amount)
	}

	// Limits are resolved before the row lock is taken so no resolver read
	// happens while holding the serialization point.
	limits, err := l.limits.Limits(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("resolve limits: %w", err)
	}
	limit := limits.For(kind)

	used, err := lockUsageRow(ctx, tx, tenantID, kind)
	if err != nil {
		return err
	}
	if used+amount > limit {
		return fmt.Errorf("%w: %s at %d of %d", domain.ErrQuotaExceeded, kind, used, limit)
	}
	return setUsage(ctx, tx, tenantID, kind, used+amount)
}

// Release decrements the counter, clamped at zero. Callers tie each release
// to a guarded state transition in the same transaction, which is what makes
// a retried release for the same logical event a no-op upstream of here.
func (l *QuotaLedger) Release(ctx context.Context, tx *gorm.DB, tenantID string, kind domain.ResourceKind, amount int) error {
	if tx == nil {
		return errors.New("quota release requires a transaction")
	}
	if amount <= 0 {
		return fmt.Errorf("invalid release amount %d", amount)
	}
	used, err := lockUsageRow(ctx, tx, tenantID, kind)
	if err != nil {
		return err
	}
	newUsed := used - amount
	if newUsed < 0 {
		newUsed = 0
	}
	return setUsage(ctx, tx, tenantID, kind, newUsed)
}

func (l *QuotaLedger) GetUsage(ctx context.Context, tenantID string, kind domain.ResourceKind) (int, error) {
	var row QuotaUsageModel
	err := l.db.WithContext(ctx).
		Where("tenant_id = ? AND resource_kind = ?", tenantID, string(kind)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Used, nil
}

func (l *QuotaLedger) GetLimits(ctx context.Context, tenantID string) (domain.PlanLimits, error) {
	return l.limits.Limits(ctx, tenantID)
}

// lockUsageRow reads used under FOR UPDATE, creating the row at zero on first
// contact. The insert is a no-op when the row already exists, so it never
// errors and never aborts the enclosing transaction; when concurrent
// first-time consumers race, the losers block on the unique index until the
// winner commits and the locked read then sees the committed row.
func lockUsageRow(ctx context.Context, tx *gorm.DB, tenantID string, kind domain.ResourceKind) (int, error) {
	if err := tx.WithContext(ctx).Exec(
		"INSERT INTO quota_usage (tenant_id, resource_kind, used, updated_at) VALUES (?, ?, 0, ?) ON CONFLICT (tenant_id, resource_kind) DO NOTHING",
		tenantID, string(kind), time.Now().UTC(),
	).Error; err != nil {
		return 0, fmt.Errorf("ensure usage row: %w", err)
	}

	var row QuotaUsageModel
	res := tx.WithContext(ctx).Raw(
		"SELECT * FROM quota_usage WHERE tenant_id = ? AND resource_kind = ? FOR UPDATE",
		tenantID, string(kind),
	).Scan(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("lock usage row: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("usage row for %s/%s missing after ensure", tenantID, kind)
	}
	return row.Used, nil
}

func setUsage(ctx context.Context, tx *gorm.DB, tenantID string, kind domain.ResourceKind, used int) error {
	return tx.WithContext(ctx).Exec(
		"UPDATE quota_usage SET used = ?, updated_at = ? WHERE tenant_id = ? AND resource_kind = ?",
		used, time.Now().UTC(), tenantID, string(kind),
	).Error
}
