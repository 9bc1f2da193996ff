package domain

import (
	"context"
	"time"
)

// BucketConfig describes the shape of one token bucket. Shapes are per call
// site: different routes reuse the same key namespace with different
// capacities and refill rates.
type BucketConfig struct {
	Scope           string
	Capacity        float64
	RefillPerSecond float64
	Cost            float64
	IdleTTL         time.Duration
}

type RateLimitDecision struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
}

// RateLimiter is the admission gate. Allow must execute the read-refill-take
// sequence as a single atomic step against the backing store so concurrent
// callers never observe an intermediate state. Invalidate drops every bucket
// belonging to an identity, used when a tenant changes plan tier.
type RateLimiter interface {
	Allow(ctx context.Context, identity string, cfg BucketConfig) (RateLimitDecision, error)
	Invalidate(ctx context.Context, identity string) error
}
