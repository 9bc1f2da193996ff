package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingRepository struct {
	db     *gorm.DB
	ledger *QuotaLedger
}

func NewListingRepository(db *gorm.DB, ledger *QuotaLedger) *ListingRepository {
	return &ListingRepository{db: db, ledger: ledger}
}

// CreateActive consumes one listing_active slot and inserts the listing in a
// single transaction. A denied consume rolls everything back, so a denied
// request never leaves a row behind.
func (r *ListingRepository) CreateActive(ctx context.Context, tenantID, title string, lifetime time.Duration) (domain.Listing, error) {
	if tenantID == "" {
		return domain.Listing{}, errors.New("tenant_id is required")
	}
	if title == "" {
		return domain.Listing{}, errors.New("title is required")
	}
	now := time.Now().UTC()
	model := ListingModel{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     title,
		Status:    string(domain.ListingActive),
		ExpiresAt: now.Add(lifetime),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ledger.Consume(ctx, tx, tenantID, domain.ResourceActiveListing, 1); err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return toDomainListing(model), nil
}

// PromoteShowcase consumes one showcase slot and flags the listing, all in
// one transaction. The listing row is locked first so two concurrent
// promotions of the same listing serialize.
func (r *ListingRepository) PromoteShowcase(ctx context.Context, tenantID, listingID string, until time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := lockListing(ctx, tx, tenantID, listingID)
		if err != nil {
			return err
		}
		if model.Status != string(domain.ListingActive) {
			return domain.ErrListingNotActive
		}
		if model.Showcased {
			return domain.ErrShowcaseActive
		}
		if err := r.ledger.Consume(ctx, tx, tenantID, domain.ResourceShowcase, 1); err != nil {
			return err
		}
		return tx.Exec(
			"UPDATE listings SET showcased = TRUE, showcase_until = ?, updated_at = ? WHERE id = ?",
			until.UTC(), time.Now().UTC(), listingID,
		).Error
	})
}

// Cancel transitions active -> cancelled and releases the consumed slots in
// the same transaction. The status guard makes the release exactly-once: a
// second cancel of the same listing sees a non-active row and fails before
// touching the ledger.
func (r *ListingRepository) Cancel(ctx context.Context, tenantID, listingID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := lockListing(ctx, tx, tenantID, listingID)
		if err != nil {
			return err
		}
		if model.Status != string(domain.ListingActive) {
			return domain.ErrListingNotActive
		}
		if err := tx.Exec(
			"UPDATE listings SET status = ?, showcased = FALSE, showcase_until = NULL, updated_at = ? WHERE id = ?",
			string(domain.ListingCancelled), time.Now().UTC(), listingID,
		).Error; err != nil {
			return err
		}
		if err := r.ledger.Release(ctx, tx, tenantID, domain.ResourceActiveListing, 1); err != nil {
			return err
		}
		if model.Showcased {
			if err := r.ledger.Release(ctx, tx, tenantID, domain.ResourceShowcase, 1); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ListingRepository) ListActive(ctx context.Context, tenantID string) ([]domain.Listing, error) {
	var models []ListingModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, string(domain.ListingActive)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	listings := make([]domain.Listing, 0, len(models))
	for _, model := range models {
		listings = append(listings, toDomainListing(model))
	}
	return listings, nil
}

func (r *ListingRepository) GetByID(ctx context.Context, tenantID, listingID string) (*domain.Listing, error) {
	var model ListingModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", listingID, tenantID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	listing := toDomainListing(model)
	return &listing, nil
}

// ReclaimExpiredBatch expires up to batchSize lapsed listings in one
// transaction, one savepoint per item so a poisoned row cannot abort the
// whole batch.
func (r *ListingRepository) ReclaimExpiredBatch(ctx context.Context, batchSize int, now time.Time) (domain.ReclaimResult, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	var result domain.ReclaimResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []ListingModel
		if err := tx.WithContext(ctx).Raw(
			"SELECT * FROM listings WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ? FOR UPDATE",
			string(domain.ListingActive), now.UTC(), batchSize,
		).Scan(&due).Error; err != nil {
			return fmt.Errorf("scan expired listings: %w", err)
		}

		tenants := make(map[string]bool)
		for i, model := range due {
			sp := fmt.Sprintf("reclaim_item_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			if err := r.expireOne(ctx, tx, model); err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				result.Failed++
				continue
			}
			result.Expired++
			if !tenants[model.TenantID] {
				tenants[model.TenantID] = true
				result.TenantIDs = append(result.TenantIDs, model.TenantID)
			}
		}
		return nil
	})
	if err != nil {
		return domain.ReclaimResult{}, err
	}
	return result, nil
}

func (r *ListingRepository) expireOne(ctx context.Context, tx *gorm.DB, model ListingModel) error {
	res := tx.WithContext(ctx).Exec(
		"UPDATE listings SET status = ?, showcased = FALSE, showcase_until = NULL, updated_at = ? WHERE id = ? AND status = ?",
		string(domain.ListingExpired), time.Now().UTC(), model.ID, string(domain.ListingActive),
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Already transitioned by a concurrent path; nothing to release.
		return nil
	}
	if err := r.ledger.Release(ctx, tx, model.TenantID, domain.ResourceActiveListing, 1); err != nil {
		return err
	}
	if model.Showcased {
		return r.ledger.Release(ctx, tx, model.TenantID, domain.ResourceShowcase, 1)
	}
	return nil
}

func lockListing(ctx context.Context, tx *gorm.DB, tenantID, listingID string) (ListingModel, error) {
	var model ListingModel
	res := tx.WithContext(ctx).Raw(
		"SELECT * FROM listings WHERE id = ? AND tenant_id = ? FOR UPDATE",
		listingID, tenantID,
	).Scan(&model)
	if res.Error != nil {
		return ListingModel{}, res.Error
	}
	if res.RowsAffected == 0 {
		return ListingModel{}, domain.ErrNotFound
	}
	return model, nil
}

func toDomainListing(model ListingModel) domain.Listing {
	return domain.Listing{
		ID:            model.ID,
		TenantID:      model.TenantID,
		Title:         model.Title,
		Status:        domain.ListingStatus(model.Status),
		Showcased:     model.Showcased,
		ShowcaseUntil: model.ShowcaseUntil,
		ExpiresAt:     model.ExpiresAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
