package engine

import (
	"context"
	"sync"
)

// Registry owns the one-engine-per-tenant invariant: creation is lazy on
// first command and guarded per key, so two concurrent first commands for
// the same tenant share one instance and never block other tenants.
type Registry struct {
	create func(ctx context.Context, tenantID, tenantName string) (*Engine, error)

	mu      sync.Mutex
	entries map[string]*regEntry
}

type regEntry struct {
	once sync.Once
	eng  *Engine
	err  error
}

func NewRegistry(create func(ctx context.Context, tenantID, tenantName string) (*Engine, error)) *Registry {
	return &Registry{create: create, entries: make(map[string]*regEntry)}
}

// Get returns the tenant's engine, creating it on first access.
func (r *Registry) Get(ctx context.Context, tenantID, tenantName string) (*Engine, error) {
	r.mu.Lock()
	entry, ok := r.entries[tenantID]
	if !ok {
		entry = &regEntry{}
		r.entries[tenantID] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.eng, entry.err = r.create(ctx, tenantID, tenantName)
	})
	if entry.err != nil {
		// Failed creations don't poison the slot; the next command retries.
		r.mu.Lock()
		if r.entries[tenantID] == entry {
			delete(r.entries, tenantID)
		}
		r.mu.Unlock()
		return nil, entry.err
	}
	return entry.eng, nil
}

// Peek returns the engine only if it already exists.
func (r *Registry) Peek(tenantID string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[tenantID]
	if !ok || entry.eng == nil {
		return nil, false
	}
	return entry.eng, true
}

// Remove tears the tenant's engine down. Called after an explicit leave or a
// voice-disconnect notification from the gateway.
func (r *Registry) Remove(tenantID string) {
	r.mu.Lock()
	entry, ok := r.entries[tenantID]
	delete(r.entries, tenantID)
	r.mu.Unlock()

	if ok && entry.eng != nil {
		entry.eng.Close()
	}
}

// Close tears down every engine.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*regEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		if entry.eng != nil {
			entry.eng.Close()
		}
	}
}
