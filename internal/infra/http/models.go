package http

import (
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createListingRequest struct {
	Title        string `json:"title"`
	LifetimeDays int    `json:"lifetime_days"`
}

type showcaseRequest struct {
	Days int `json:"days"`
}

type planChangedRequest struct {
	TenantID string `json:"tenant_id"`
}

type listingResponse struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	Showcased     bool       `json:"showcased"`
	ShowcaseUntil *time.Time `json:"showcase_until,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type listingsResponse struct {
	Listings []listingResponse `json:"listings"`
}

type quotaUsageResponse struct {
	TenantID string         `json:"tenant_id"`
	Usage    map[string]int `json:"usage"`
}

type quotaLimitsResponse struct {
	TenantID string         `json:"tenant_id"`
	Limits   map[string]int `json:"limits"`
}

func toListingResponse(listing domain.Listing) listingResponse {
	return listingResponse{
		ID:            listing.ID,
		TenantID:      listing.TenantID,
		Title:         listing.Title,
		Status:        string(listing.Status),
		Showcased:     listing.Showcased,
		ShowcaseUntil: listing.ShowcaseUntil,
		ExpiresAt:     listing.ExpiresAt,
		CreatedAt:     listing.CreatedAt,
	}
}

func toListingsResponse(listings []domain.Listing) listingsResponse {
	out := listingsResponse{Listings: make([]listingResponse, 0, len(listings))}
	for _, listing := range listings {
		out.Listings = append(out.Listings, toListingResponse(listing))
	}
	return out
}
