// Package resolver turns a free-text query into a playable stream locator
// plus item metadata. Resolution may be slow (network or subprocess), so
// callers go through the shared Pool instead of calling a Resolver on their
// command path.
package resolver

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound means the query yielded no playable result.
var ErrNotFound = errors.New("resolver: no result for query")

// Result is one resolved item. The canonical id is stable across
// re-resolutions; the stream URL is short-lived and expires at ExpiresAt.
type Result struct {
	CanonicalID     string
	StreamURL       string
	ExpiresAt       time.Time // zero when the locator carries no expiry
	Title           string
	DurationSeconds int
	Tags            []string
}

// Resolver is the external resolution collaborator. Implementations must be
// safe to call from any goroutine.
type Resolver interface {
	Resolve(ctx context.Context, query string) (Result, error)
}

// LocatorExpiry extracts the signed expiry epoch embedded in a stream
// locator's `expire` query parameter. A locator without one returns the zero
// time, which downstream treats as already expired.
func LocatorExpiry(locator string) time.Time {
	u, err := url.Parse(locator)
	if err != nil {
		return time.Time{}
	}
	raw := u.Query().Get("expire")
	if raw == "" {
		return time.Time{}
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
