package domain

import "errors"

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrStoreUnavailable = errors.New("counter store unavailable")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrListingNotActive = errors.New("listing not active")
	ErrShowcaseActive   = errors.New("listing already showcased")
)
