package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"github.com/gin-gonic/gin"
)

const ctxTenantID = "tenant_id"

func (s *Server) requireTenant(c *gin.Context) {
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "X-Tenant-ID header is required")
		c.Abort()
		return
	}
	c.Set(ctxTenantID, tenantID)
	c.Next()
}

func (s *Server) requireAdminKey(c *gin.Context) {
	if s.adminAPIKey == "" || c.GetHeader("X-Admin-Key") != s.adminAPIKey {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateListing(c *gin.Context) {
	tenantID := c.GetString(ctxTenantID)
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Title == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_LISTING", "title is required")
		return
	}
	lifetime := s.listingLifetime
	if req.LifetimeDays > 0 {
		if req.LifetimeDays > 90 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_LISTING", "lifetime_days out of range")
			return
		}
		lifetime = time.Duration(req.LifetimeDays) * 24 * time.Hour
	}

	listing, err := s.listings.CreateActive(c.Request.Context(), tenantID, req.Title, lifetime)
	if err != nil {
		s.countQuotaDenial(err, domain.ResourceActiveListing)
		writeError(c, err)
		return
	}
	if s.cache != nil {
		s.cache.InvalidateTenant(tenantID)
	}
	c.JSON(http.StatusCreated, toListingResponse(listing))
}

func (s *Server) handleShowcaseListing(c *gin.Context) {
	tenantID := c.GetString(ctxTenantID)
	listingID := c.Param("id")
	var req showcaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	days := req.Days
	if days <= 0 {
		days = 7
	}
	until := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)

	if err := s.listings.PromoteShowcase(c.Request.Context(), tenantID, listingID, until); err != nil {
		s.countQuotaDenial(err, domain.ResourceShowcase)
		writeError(c, err)
		return
	}
	if s.cache != nil {
		s.cache.InvalidateTenant(tenantID)
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": listingID, "showcase_until": until})
}

func (s *Server) handleCancelListing(c *gin.Context) {
	tenantID := c.GetString(ctxTenantID)
	listingID := c.Param("id")
	if err := s.listings.Cancel(c.Request.Context(), tenantID, listingID); err != nil {
		writeError(c, err)
		return
	}
	if s.cache != nil {
		s.cache.InvalidateTenant(tenantID)
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": listingID, "status": string(domain.ListingCancelled)})
}

func (s *Server) handleListListings(c *gin.Context) {
	tenantID := c.GetString(ctxTenantID)
	if s.cache != nil {
		if cached, ok := s.cache.Get(c.Request.Context(), tenantID); ok {
			c.JSON(http.StatusOK, toListingsResponse(cached))
			return
		}
	}
	listings, err := s.listings.ListActive(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	if s.cache != nil {
		s.cache.Put(c.Request.Context(), tenantID, listings)
	}
	c.JSON(http.StatusOK, toListingsResponse(listings))
}

func (s *Server) handleQuotaUsage(c *gin.Context) {
	tenantID := c.GetString(ctxTenantID)
	usage := make(map[string]int)
	for _, kind := range []domain.ResourceKind{domain.ResourceActiveListing, domain.ResourceShowcase} {
		used, err := s.quota.GetUsage(c.Request.Context(), tenantID, kind)
		if err != nil {
			writeError(c, err)
			return
		}
		usage[string(kind)] = used
	}
	c.JSON(http.StatusOK, quotaUsageResponse{TenantID: tenantID, Usage: usage})
}

func (s *Server) handleQuotaLimits(c *gin.Context) {
	tenantID := c.GetString(ctxTenantID)
	limits, err := s.quota.GetLimits(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make(map[string]int, len(limits))
	for kind, capacity := range limits {
		out[string(kind)] = capacity
	}
	c.JSON(http.StatusOK, quotaLimitsResponse{TenantID: tenantID, Limits: out})
}

func (s *Server) handlePlanChanged(c *gin.Context) {
	var req planChangedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TenantID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "tenant_id is required")
		return
	}
	if err := s.planChanges.PlanChanged(c.Request.Context(), req.TenantID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant_id": req.TenantID, "invalidated": true})
}

func (s *Server) countQuotaDenial(err error, kind domain.ResourceKind) {
	if s.metrics != nil && errors.Is(err, domain.ErrQuotaExceeded) {
		s.metrics.QuotaDenials.WithLabelValues(string(kind)).Inc()
	}
}

// Quota denial is deliberately a different status and code than throttling:
// 429 means "slow down and retry", 409 QUOTA_EXCEEDED means "free a slot or
// upgrade".
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		status, code = http.StatusConflict, "QUOTA_EXCEEDED"
	case errors.Is(err, domain.ErrShowcaseActive):
		status, code = http.StatusConflict, "SHOWCASE_ACTIVE"
	case errors.Is(err, domain.ErrListingNotActive):
		status, code = http.StatusConflict, "LISTING_NOT_ACTIVE"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
