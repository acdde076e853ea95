// Package store provides the durable per-tenant playback state: the queue,
// the resolved stream cache, and the repeat flag.
//
// Primary backend: Redis (env REDIS_URL), using the key layout
// `queue:{tenant}` (list), `{canonicalID}` (string with EXAT expiry) and
// `repeat:{tenant}` (0/1). If Redis is not available, in-memory stores are
// used (development only, state is lost on restart).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Item is one queued playable unit. The canonical id is the only identifier
// carried through queue and cache; title and duration are display metadata
// and may be stale after re-resolution.
type Item struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	CanonicalID     string `json:"canonical_id"`
}

// Queue is a tenant-scoped ordered list of pending items. Insertion order is
// play order. The item being played stays at the front until its completion
// pops it, so a crash mid-play never loses it.
type Queue interface {
	// Append adds item to the tail of the tenant's queue.
	Append(ctx context.Context, tenantID string, item Item) error

	// PeekFront returns the front item without removing it.
	PeekFront(ctx context.Context, tenantID string) (Item, bool, error)

	// PopFront removes and returns the front item.
	PopFront(ctx context.Context, tenantID string) (Item, bool, error)

	// RemoveAt removes the item at the 0-based index. It reads the element
	// at the position first and removes exactly that element, so a
	// concurrent shrink cannot delete a neighbour. Returns false when the
	// index is out of bounds.
	RemoveAt(ctx context.Context, tenantID string, index int) (bool, error)

	// List returns a snapshot of the queue in play order.
	List(ctx context.Context, tenantID string) ([]Item, error)

	// Clear deletes the tenant's queue record entirely.
	Clear(ctx context.Context, tenantID string) error
}

// StreamCache maps a canonical item id to its short-lived stream locator.
// The expiry comes from the locator itself, never from a TTL of our choosing.
type StreamCache interface {
	// Get returns the cached locator, or ok=false on miss or expiry.
	Get(ctx context.Context, canonicalID string) (string, bool, error)

	// Set stores the locator until expiresAt. Locators that are already
	// expired (or carry no expiry) are not stored.
	Set(ctx context.Context, canonicalID, locator string, expiresAt time.Time) error
}

// Repeat persists the per-tenant repeat flag. Default is false.
type Repeat interface {
	Get(ctx context.Context, tenantID string) (bool, error)
	Set(ctx context.Context, tenantID string, on bool) error
}

// Stores bundles the three player stores sharing one backend.
type Stores struct {
	Queue  Queue
	Cache  StreamCache
	Repeat Repeat
}

// New creates the best available stores: Redis > in-memory (dev fallback).
// When isProd is true the in-memory fallback is not allowed.
func New(rdb *redis.Client, isProd bool) (Stores, error) {
	if rdb != nil {
		return Stores{
			Queue:  NewRedisQueue(rdb),
			Cache:  NewRedisStreamCache(rdb),
			Repeat: NewRedisRepeat(rdb),
		}, nil
	}
	if isProd {
		return Stores{}, errors.New("production requires REDIS_URL for playback state; in-memory stores are not allowed")
	}
	return Stores{
		Queue:  NewMemoryQueue(),
		Cache:  NewMemoryStreamCache(),
		Repeat: NewMemoryRepeat(),
	}, nil
}

func queueKey(tenantID string) string  { return "queue:" + tenantID }
func repeatKey(tenantID string) string { return "repeat:" + tenantID }
