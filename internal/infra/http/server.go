package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/config"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultListingLifetime = 30 * 24 * time.Hour

// ListingStore is the transactional listing surface: every method that
// touches capacity couples the business row and the quota mutation in one
// transaction.
type ListingStore interface {
	CreateActive(ctx context.Context, tenantID, title string, lifetime time.Duration) (domain.Listing, error)
	PromoteShowcase(ctx context.Context, tenantID, listingID string, until time.Time) error
	Cancel(ctx context.Context, tenantID, listingID string) error
	ListActive(ctx context.Context, tenantID string) ([]domain.Listing, error)
}

type QuotaReader interface {
	GetUsage(ctx context.Context, tenantID string, kind domain.ResourceKind) (int, error)
	GetLimits(ctx context.Context, tenantID string) (domain.PlanLimits, error)
}

type PlanChanger interface {
	PlanChanged(ctx context.Context, tenantID string) error
}

type ProjectionCache interface {
	Get(ctx context.Context, tenantID string) ([]domain.Listing, bool)
	Put(ctx context.Context, tenantID string, listings []domain.Listing)
	InvalidateTenant(tenantID string)
}

type Server struct {
	cfg config.Config
	r   *gin.Engine

	listings    ListingStore
	quota       QuotaReader
	planChanges PlanChanger
	cache       ProjectionCache
	limiter     domain.RateLimiter
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	logger      *slog.Logger

	writeBucket domain.BucketConfig
	readBucket  domain.BucketConfig

	adminAPIKey     string
	listingLifetime time.Duration
}

type ServerDeps struct {
	Listings    ListingStore
	Quota       QuotaReader
	PlanChanges PlanChanger
	Cache       ProjectionCache
	RateLimiter domain.RateLimiter
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry
	Logger      *slog.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:             cfg,
		r:               r,
		listings:        deps.Listings,
		quota:           deps.Quota,
		planChanges:     deps.PlanChanges,
		cache:           deps.Cache,
		limiter:         deps.RateLimiter,
		metrics:         deps.Metrics,
		registry:        deps.Registry,
		logger:          logger.With("component", "http"),
		adminAPIKey:     cfg.AdminAPIKey,
		listingLifetime: defaultListingLifetime,
	}
	s.writeBucket = domain.BucketConfig{
		Scope:           "write",
		Capacity:        float64(cfg.RateLimitWriteCapacity),
		RefillPerSecond: float64(cfg.RateLimitWriteRefillPerMin) / 60.0,
		IdleTTL:         cfg.RateLimitIdleTTL(),
	}
	s.readBucket = domain.BucketConfig{
		Scope:           "read",
		Capacity:        float64(cfg.RateLimitReadCapacity),
		RefillPerSecond: float64(cfg.RateLimitReadRefillPerMin) / 60.0,
		IdleTTL:         cfg.RateLimitIdleTTL(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	if s.registry != nil {
		s.r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := s.r.Group("/v1", s.requireTenant)
	{
		writes := v1.Group("", s.rateLimit(s.writeBucket))
		writes.POST("/listings", s.handleCreateListing)
		writes.POST("/listings/:id/showcase", s.handleShowcaseListing)
		writes.DELETE("/listings/:id", s.handleCancelListing)

		reads := v1.Group("", s.rateLimit(s.readBucket))
		reads.GET("/listings", s.handleListListings)
		reads.GET("/quota/usage", s.handleQuotaUsage)
		reads.GET("/quota/limits", s.handleQuotaLimits)
	}

	s.r.POST("/internal/plan-changed", s.requireAdminKey, s.handlePlanChanged)
	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, 404, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() *gin.Engine {
	return s.r
}
