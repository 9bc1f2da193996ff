package cachemem

import (
	"context"
	"sync"
	"time"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"
)

// Cache holds the per-tenant active-listing projection. The reclaimer's
// after-batch hook and every listing mutation invalidate entries, so a short
// TTL is only a backstop against missed invalidations.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	listings  []domain.Listing
	expiresAt time.Time
}

func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, time.Now)
}

func NewWithClock(ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(_ context.Context, tenantID string) ([]domain.Listing, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[tenantID]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, tenantID)
		return nil, false
	}
	out := make([]domain.Listing, len(entry.listings))
	copy(out, entry.listings)
	return out, true
}

func (c *Cache) Put(_ context.Context, tenantID string, listings []domain.Listing) {
	if c == nil {
		return
	}
	stored := make([]domain.Listing, len(listings))
	copy(stored, listings)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = cacheEntry{
		listings:  stored,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache) InvalidateTenant(tenantID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

func (c *Cache) InvalidateTenants(tenantIDs []string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for _, id := range tenantIDs {
		delete(c.entries, id)
	}
	c.mu.Unlock()
}
