//go:build integration
// +build integration

package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&QuotaUsageModel{}, &PlanLimitModel{}, &ListingModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"quota_usage", "plan_limits", "listings"} {
		if err := gdb.Exec("TRUNCATE TABLE " + table).Error; err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return gdb
}

type staticLimits struct {
	limits domain.PlanLimits
}

func (s *staticLimits) Limits(ctx context.Context, tenantID string) (domain.PlanLimits, error) {
	return s.limits.Clone(), nil
}

func TestQuotaLedger_HardCapUnderConcurrency(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 3,
	}})
	tenantID := uuid.NewString()

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, denied := 0, 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gdb.Transaction(func(tx *gorm.DB) error {
				return ledger.Consume(context.Background(), tx, tenantID, domain.ResourceActiveListing, 1)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrQuotaExceeded):
				denied++
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 || denied != 17 {
		t.Fatalf("expected 3 successes and 17 denials, got %d/%d", succeeded, denied)
	}
	used, err := ledger.GetUsage(context.Background(), tenantID, domain.ResourceActiveListing)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if used != 3 {
		t.Fatalf("usage after concurrent consumes = %d, want 3", used)
	}

	// Release one slot, the next consume succeeds and refills to the cap.
	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(context.Background(), tx, tenantID, domain.ResourceActiveListing, 1)
	}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if used, _ = ledger.GetUsage(context.Background(), tenantID, domain.ResourceActiveListing); used != 2 {
		t.Fatalf("usage after release = %d, want 2", used)
	}
	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return ledger.Consume(context.Background(), tx, tenantID, domain.ResourceActiveListing, 1)
	}); err != nil {
		t.Fatalf("consume after release: %v", err)
	}
	if used, _ = ledger.GetUsage(context.Background(), tenantID, domain.ResourceActiveListing); used != 3 {
		t.Fatalf("final usage = %d, want 3", used)
	}
}

func TestQuotaLedger_ReleaseClampsAtZero(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceShowcase: 2,
	}})
	tenantID := uuid.NewString()

	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(context.Background(), tx, tenantID, domain.ResourceShowcase, 5)
	}); err != nil {
		t.Fatalf("release on empty ledger: %v", err)
	}
	used, err := ledger.GetUsage(context.Background(), tenantID, domain.ResourceShowcase)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if used != 0 {
		t.Fatalf("usage went negative or stuck: %d", used)
	}
}

func TestQuotaLedger_DeniedConsumeRollsBackBusinessRow(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 0,
	}})
	repo := NewListingRepository(gdb, ledger)
	tenantID := uuid.NewString()

	_, err := repo.CreateActive(context.Background(), tenantID, "over cap", time.Hour)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	var count int64
	if err := gdb.Model(&ListingModel{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		t.Fatalf("count listings: %v", err)
	}
	if count != 0 {
		t.Fatalf("denied request left %d listing rows behind", count)
	}
}

func TestQuotaLedger_ConcurrentFirstConsume(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 50,
	}})
	tenantID := uuid.NewString()

	// No usage row exists yet, so every caller races on creating it. Exactly
	// one insert wins; the rest must serialize behind the winner's row without
	// surfacing an error or losing an increment.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gdb.Transaction(func(tx *gorm.DB) error {
				return ledger.Consume(context.Background(), tx, tenantID, domain.ResourceActiveListing, 1)
			})
			if err != nil {
				t.Errorf("consume during first-row race: %v", err)
			}
		}()
	}
	wg.Wait()

	used, err := ledger.GetUsage(context.Background(), tenantID, domain.ResourceActiveListing)
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if used != 10 {
		t.Fatalf("usage = %d, want 10", used)
	}
}

func TestListingRepository_ReclaimFreesSlots(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 2,
		domain.ResourceShowcase:      1,
	}})
	repo := NewListingRepository(gdb, ledger)
	tenantID := uuid.NewString()

	first, err := repo.CreateActive(context.Background(), tenantID, "expiring soon", time.Millisecond)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := repo.CreateActive(context.Background(), tenantID, "long lived", time.Hour); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := repo.PromoteShowcase(context.Background(), tenantID, first.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("promote showcase: %v", err)
	}

	// Tenant is at the cap: a third create must be denied.
	if _, err := repo.CreateActive(context.Background(), tenantID, "over cap", time.Hour); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded at cap, got %v", err)
	}

	result, err := repo.ReclaimExpiredBatch(context.Background(), 1000, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if result.Expired != 1 || result.Failed != 0 {
		t.Fatalf("reclaim result = %+v, want 1 expired", result)
	}
	if len(result.TenantIDs) != 1 || result.TenantIDs[0] != tenantID {
		t.Fatalf("reclaim tenants = %v", result.TenantIDs)
	}

	used, _ := ledger.GetUsage(context.Background(), tenantID, domain.ResourceActiveListing)
	if used != 1 {
		t.Fatalf("active usage after reclaim = %d, want 1", used)
	}
	showcaseUsed, _ := ledger.GetUsage(context.Background(), tenantID, domain.ResourceShowcase)
	if showcaseUsed != 0 {
		t.Fatalf("showcase usage after reclaim = %d, want 0", showcaseUsed)
	}

	// The freed slot is consumable again.
	if _, err := repo.CreateActive(context.Background(), tenantID, "replacement", time.Hour); err != nil {
		t.Fatalf("create after reclaim: %v", err)
	}

	got, err := repo.GetByID(context.Background(), tenantID, first.ID)
	if err != nil {
		t.Fatalf("get expired listing: %v", err)
	}
	if got.Status != domain.ListingExpired || got.Showcased {
		t.Fatalf("expired listing state = %+v", got)
	}
}

func TestListingRepository_ReclaimIsIdempotentPerListing(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 1,
	}})
	repo := NewListingRepository(gdb, ledger)
	tenantID := uuid.NewString()

	if _, err := repo.CreateActive(context.Background(), tenantID, "once", time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	if _, err := repo.ReclaimExpiredBatch(context.Background(), 10, deadline); err != nil {
		t.Fatalf("first reclaim: %v", err)
	}
	second, err := repo.ReclaimExpiredBatch(context.Background(), 10, deadline)
	if err != nil {
		t.Fatalf("second reclaim: %v", err)
	}
	if second.Expired != 0 {
		t.Fatalf("second pass expired %d listings, want 0", second.Expired)
	}
	used, _ := ledger.GetUsage(context.Background(), tenantID, domain.ResourceActiveListing)
	if used != 0 {
		t.Fatalf("usage after double reclaim = %d, want 0", used)
	}
}

func TestListingRepository_CancelReleasesOnce(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 1,
		domain.ResourceShowcase:      1,
	}})
	repo := NewListingRepository(gdb, ledger)
	tenantID := uuid.NewString()

	listing, err := repo.CreateActive(context.Background(), tenantID, "cancel me", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.PromoteShowcase(context.Background(), tenantID, listing.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := repo.Cancel(context.Background(), tenantID, listing.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := repo.Cancel(context.Background(), tenantID, listing.ID); !errors.Is(err, domain.ErrListingNotActive) {
		t.Fatalf("second cancel should fail with ErrListingNotActive, got %v", err)
	}

	for _, kind := range []domain.ResourceKind{domain.ResourceActiveListing, domain.ResourceShowcase} {
		used, _ := ledger.GetUsage(context.Background(), tenantID, kind)
		if used != 0 {
			t.Fatalf("%s usage after cancel = %d, want 0", kind, used)
		}
	}
}

func TestListingRepository_DoubleShowcaseDenied(t *testing.T) {
	gdb := setupTestDB(t)
	ledger := NewQuotaLedger(gdb, &staticLimits{limits: domain.PlanLimits{
		domain.ResourceActiveListing: 1,
		domain.ResourceShowcase:      5,
	}})
	repo := NewListingRepository(gdb, ledger)
	tenantID := uuid.NewString()

	listing, err := repo.CreateActive(context.Background(), tenantID, "shiny", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	until := time.Now().Add(time.Hour)
	if err := repo.PromoteShowcase(context.Background(), tenantID, listing.ID, until); err != nil {
		t.Fatalf("first promote: %v", err)
	}
	if err := repo.PromoteShowcase(context.Background(), tenantID, listing.ID, until); !errors.Is(err, domain.ErrShowcaseActive) {
		t.Fatalf("second promote should fail with ErrShowcaseActive, got %v", err)
	}
	used, _ := ledger.GetUsage(context.Background(), tenantID, domain.ResourceShowcase)
	if used != 1 {
		t.Fatalf("showcase usage = %d, want 1", used)
	}
}
