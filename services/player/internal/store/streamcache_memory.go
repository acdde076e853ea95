package store

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	locator   string
	expiresAt time.Time
}

// memoryStreamCache is a development-only in-memory cache backend. Expiry is
// checked on read; there is no background eviction.
type memoryStreamCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewMemoryStreamCache() StreamCache {
	return &memoryStreamCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *memoryStreamCache) Get(_ context.Context, canonicalID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[canonicalID]
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, canonicalID)
		return "", false, nil
	}
	return e.locator, true, nil
}

func (c *memoryStreamCache) Set(_ context.Context, canonicalID, locator string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !expiresAt.After(c.now()) {
		return nil
	}
	c.entries[canonicalID] = cacheEntry{locator: locator, expiresAt: expiresAt}
	return nil
}
