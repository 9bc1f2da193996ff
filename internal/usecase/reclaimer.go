package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"github.com/robfig/cron/v3"
)

// ExpiryReclaimer periodically expires lapsed listings and returns their
// quota slots. It drains: each tick keeps pulling batches until one comes
// back short or expires nothing, so a backlog clears in a single tick without
// a batch of stuck rows pinning the tick. The AfterBatch hook fires
// once per completed batch so downstream projections can invalidate the
// tenants that lost active listings.
type ExpiryReclaimer struct {
	store      ReclaimStore
	batchSize  int
	interval   time.Duration
	afterBatch func(context.Context, domain.ReclaimResult)
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

type ReclaimerConfig struct {
	BatchSize  int
	Interval   time.Duration
	AfterBatch func(context.Context, domain.ReclaimResult)
	Now        func() time.Time
	Logger     *slog.Logger
}

func NewExpiryReclaimer(store ReclaimStore, cfg ReclaimerConfig) *ExpiryReclaimer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ExpiryReclaimer{
		store:      store,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		afterBatch: cfg.AfterBatch,
		now:        cfg.Now,
		logger:     cfg.Logger.With("component", "expiry.reclaimer"),
	}
}

// RunOnce performs one full reclaim pass and is safe to call directly (used
// by tests and by the scheduled tick).
func (r *ExpiryReclaimer) RunOnce(ctx context.Context) (domain.ReclaimResult, error) {
	if r.store == nil {
		return domain.ReclaimResult{}, errors.New("reclaim store is required")
	}
	var total domain.ReclaimResult
	for {
		batch, err := r.store.ReclaimExpiredBatch(ctx, r.batchSize, r.now())
		if err != nil {
			return total, fmt.Errorf("reclaim batch: %w", err)
		}
		if batch.Expired > 0 || batch.Failed > 0 {
			total.Merge(batch)
			if r.afterBatch != nil && len(batch.TenantIDs) > 0 {
				r.afterBatch(ctx, batch)
			}
		}
		// Failed items stay active and would be re-selected by the next
		// batch, so a pass that expired nothing makes no progress. Stop and
		// leave the failures to the next tick instead of re-locking the same
		// rows forever.
		if batch.Expired == 0 || batch.Expired+batch.Failed < r.batchSize {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

// Start schedules RunOnce on a fixed interval and returns immediately. The
// scheduler stops when ctx is cancelled.
func (r *ExpiryReclaimer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("reclaimer already started")
	}
	c := cron.New()
	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := c.AddFunc(spec, func() { r.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule reclaimer: %w", err)
	}
	c.Start()
	r.cron = c
	r.running = true
	r.logger.Info("expiry reclaimer started", "interval", r.interval.String(), "batch_size", r.batchSize)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

func (r *ExpiryReclaimer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("expiry reclaimer stopped")
}

func (r *ExpiryReclaimer) tick(ctx context.Context) {
	result, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("reclaim pass failed", "error", err, "expired", result.Expired, "failed", result.Failed)
		return
	}
	if result.Expired > 0 || result.Failed > 0 {
		r.logger.Info("reclaim pass completed",
			"expired", result.Expired,
			"failed", result.Failed,
			"tenants", len(result.TenantIDs),
		)
	}
}
