package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/config"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/infra/cachemem"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/infra/db"
	httpinfra "github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/infra/http"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/infra/ratelimit"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/metrics"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	var limiter domain.RateLimiter
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process rate limiter (single instance only)")
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
	}

	freeTier := domain.PlanLimits{
		domain.ResourceActiveListing: cfg.FreeMaxActiveListings,
		domain.ResourceShowcase:      cfg.FreeMaxShowcase,
	}
	resolver := usecase.NewLimitResolver(db.NewPlanRepository(store.DB), freeTier)
	ledger := db.NewQuotaLedger(store.DB, resolver)
	listings := db.NewListingRepository(store.DB, ledger)
	cache := cachemem.New(cfg.ProjectionCacheTTL())

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reclaimer := usecase.NewExpiryReclaimer(listings, usecase.ReclaimerConfig{
		BatchSize: cfg.ReclaimBatchSize,
		Interval:  cfg.ReclaimInterval(),
		Logger:    logger,
		AfterBatch: func(_ context.Context, result domain.ReclaimResult) {
			cache.InvalidateTenants(result.TenantIDs)
			m.ReclaimedListings.Add(float64(result.Expired))
			m.ReclaimFailures.Add(float64(result.Failed))
		},
	})
	if err := reclaimer.Start(ctx); err != nil {
		log.Fatalf("failed to start reclaimer: %v", err)
	}

	srv := httpinfra.NewServerWithDeps(cfg, httpinfra.ServerDeps{
		Listings:    listings,
		Quota:       ledger,
		PlanChanges: usecase.NewPlanChangeService(resolver, limiter),
		Cache:       cache,
		RateLimiter: limiter,
		Metrics:     m,
		Registry:    registry,
		Logger:      logger,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
