package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// The whole token-bucket step runs server-side so the read-refill-take
// sequence is indivisible for concurrent callers of the same key. State is a
// hash {tokens, refilled_at}; refilled_at is in seconds with a fractional
// part. Elapsed time is clamped at zero to tolerate small clock skew between
// callers.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "tokens", "refilled_at")
local tokens = tonumber(state[1])
local refilled_at = tonumber(state[2])
if tokens == nil or refilled_at == nil then
  tokens = capacity
  refilled_at = now
end

local elapsed = now - refilled_at
if elapsed < 0 then
  elapsed = 0
end
tokens = tokens + elapsed * refill
if tokens > capacity then
  tokens = capacity
end

local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "refilled_at", tostring(now))
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens)}
`)

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (domain.RateLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisLimiter{client: client, now: now}, nil
}

// NewRedisLimiterWithClient wraps an injected client so the process owns one
// connection pool with an explicit lifecycle instead of an ambient singleton.
func NewRedisLimiterWithClient(client *redis.Client, now func() time.Time) domain.RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &redisLimiter{client: client, now: now}
}

func (r *redisLimiter) Allow(ctx context.Context, identity string, cfg domain.BucketConfig) (domain.RateLimitDecision, error) {
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

	now := r.now()
	nowSecs := float64(now.UnixNano()) / float64(time.Second)
	key := bucketKey(cfg.Scope, identity)

	result, err := tokenBucketScript.Run(ctx, r.client, []string{key},
		cfg.Capacity,
		cfg.RefillPerSecond,
		cost,
		strconv.FormatFloat(nowSecs, 'f', -1, 64),
		idleTTL.Milliseconds(),
	).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return domain.RateLimitDecision{}, fmt.Errorf("%w: unexpected script response", domain.ErrStoreUnavailable)
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return domain.RateLimitDecision{}, fmt.Errorf("%w: invalid allowed flag", domain.ErrStoreUnavailable)
	}
	tokensStr, ok := values[1].(string)
	if !ok {
		return domain.RateLimitDecision{}, fmt.Errorf("%w: invalid token count", domain.ErrStoreUnavailable)
	}
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("%w: invalid token count %q", domain.ErrStoreUnavailable, tokensStr)
	}

	decision := domain.RateLimitDecision{
		Allowed:   allowed == 1,
		Remaining: tokens,
	}
	if !decision.Allowed {
		decision.RetryAfter = retryAfter(tokens, cost, cfg.RefillPerSecond)
	}
	return decision, nil
}

// Invalidate deletes every bucket for an identity. Called on plan tier change
// so stale throttling state from the old tier does not leak into the new one.
func (r *redisLimiter) Invalidate(ctx context.Context, identity string) error {
	iter := r.client.Scan(ctx, 0, identityPattern(identity), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		// The MATCH glob is only a prefilter; its wildcard crosses colons,
		// so an identity that is a suffix of another would match too.
		if id, ok := keyIdentity(iter.Val()); ok && id == identity {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func retryAfter(tokens, cost, refillPerSecond float64) time.Duration {
	if refillPerSecond <= 0 {
		return 0
	}
	deficit := cost - tokens
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / refillPerSecond * float64(time.Second))
}
