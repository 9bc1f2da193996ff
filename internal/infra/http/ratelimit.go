package http

import (
	"net/http"
	"strconv"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"github.com/gin-gonic/gin"
)

// rateLimit gates a route group with the given bucket shape. The limiter
// fails open: if the counter store is unreachable the request is admitted,
// logged and counted, because throttling is availability protection rather
// than a correctness invariant. The quota path never gets this treatment.
func (s *Server) rateLimit(cfg domain.BucketConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || cfg.Capacity <= 0 {
			c.Next()
			return
		}
		identity := limiterIdentity(c)

		decision, err := s.limiter.Allow(c.Request.Context(), identity, cfg)
		if err != nil {
			s.logger.Warn("rate limiter unavailable, admitting request",
				"scope", cfg.Scope, "identity", identity, "error", err)
			if s.metrics != nil {
				s.metrics.RateLimitDecisions.WithLabelValues(cfg.Scope, "error").Inc()
			}
			c.Next()
			return
		}

		writeRateLimitHeaders(c, cfg, decision)
		if !decision.Allowed {
			if s.metrics != nil {
				s.metrics.RateLimitDecisions.WithLabelValues(cfg.Scope, "denied").Inc()
			}
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded, slow down")
			c.Abort()
			return
		}
		if s.metrics != nil {
			s.metrics.RateLimitDecisions.WithLabelValues(cfg.Scope, "allowed").Inc()
		}
		c.Next()
	}
}

// Buckets are keyed by tenant when the caller is identified, by client IP
// otherwise (unauthenticated probes still get throttled).
func limiterIdentity(c *gin.Context) string {
	if tenantID := c.GetString(ctxTenantID); tenantID != "" {
		return tenantID
	}
	return c.ClientIP()
}

func writeRateLimitHeaders(c *gin.Context, cfg domain.BucketConfig, decision domain.RateLimitDecision) {
	c.Header("RateLimit-Limit", strconv.Itoa(int(cfg.Capacity)))
	remaining := int(decision.Remaining)
	if remaining < 0 {
		remaining = 0
	}
	c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.Allowed && decision.RetryAfter > 0 {
		retryAfter := int64(decision.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
}
