package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

// memoryLimiter mirrors the Redis limiter's contract for dev mode and tests.
// A single process mutex stands in for the store's atomic-execute primitive;
// it is not safe across processes and must not be deployed behind more than
// one instance.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*memoryBucket
	maxKeys int
}

type memoryBucket struct {
	tokens     float64
	refilledAt time.Time
	expiresAt  time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		data:    make(map[string]*memoryBucket),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, identity string, cfg domain.BucketConfig) (domain.RateLimitDecision, error) {
	if cfg.Capacity <= 0 {
		return domain.RateLimitDecision{Allowed: true, Remaining: cfg.Capacity}, nil
	}
	cost := cfg.Cost
	if cost <= 0 {
		cost = 1
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = time.Minute
	}
	now := m.now()
	key := bucketKey(cfg.Scope, identity)

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[key]
	if ok && now.After(bucket.expiresAt) {
		delete(m.data, key)
		ok = false
	}
	if !ok {
		if len(m.data) >= m.maxKeys {
			m.gc(now)
		}
		if len(m.data) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		bucket = &memoryBucket{tokens: cfg.Capacity, refilledAt: now}
		m.data[key] = bucket
	}

	elapsed := now.Sub(bucket.refilledAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	bucket.tokens += elapsed * cfg.RefillPerSecond
	if bucket.tokens > cfg.Capacity {
		bucket.tokens = cfg.Capacity
	}
	bucket.refilledAt = now
	bucket.expiresAt = now.Add(idleTTL)

	if bucket.tokens >= cost {
		bucket.tokens -= cost
		return domain.RateLimitDecision{Allowed: true, Remaining: bucket.tokens}, nil
	}
	return domain.RateLimitDecision{
		Allowed:    false,
		Remaining:  bucket.tokens,
		RetryAfter: retryAfter(bucket.tokens, cost, cfg.RefillPerSecond),
	}, nil
}

func (m *memoryLimiter) Invalidate(_ context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.data {
		if id, ok := keyIdentity(key); ok && id == identity {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *memoryLimiter) gc(now time.Time) {
	for key, bucket := range m.data {
		if now.After(bucket.expiresAt) {
			delete(m.data, key)
		}
	}
}
