package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the governance counters. Rate-limit outcomes include
// "error" so fail-open admits stay visible in dashboards rather than blending
// into ordinary allows.
type Metrics struct {
	RateLimitDecisions *prometheus.CounterVec
	QuotaDenials       *prometheus.CounterVec
	ReclaimedListings  prometheus.Counter
	ReclaimFailures    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_rate_limit_decisions_total",
				Help: "Rate limit decisions by scope and outcome (allowed, denied, error)",
			},
			[]string{"scope", "outcome"},
		),
		QuotaDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "governance_quota_denials_total",
				Help: "Consume attempts rejected over the hard cap, by resource kind",
			},
			[]string{"resource_kind"},
		),
		ReclaimedListings: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "governance_reclaimed_listings_total",
				Help: "Listings transitioned to expired with their quota slot released",
			},
		),
		ReclaimFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "governance_reclaim_item_failures_total",
				Help: "Reclaim items rolled back to their savepoint and skipped",
			},
		),
	}
}
