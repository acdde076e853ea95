// Package graph provides the interaction-graph store behind the event
// consumer: idempotent node merges and create-or-increment edges.
//
// Primary backend: Postgres (env DATABASE_URL), modelling the property graph
// as two upsert-only tables. If no database is configured, an in-memory
// store is used (development only).
package graph

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Node labels.
const (
	LabelUser   = "User"
	LabelItem   = "Item"
	LabelTenant = "Tenant"
	LabelTag    = "Tag"
)

// Edge labels.
const (
	EdgeAdded    = "ADDED"
	EdgeListened = "LISTENED"
	EdgeInTenant = "IN_TENANT"
	EdgeHasTag   = "HAS_TAG"
)

// Ref addresses one node by label and natural key.
type Ref struct {
	Label string
	Key   string
}

// Store is the property-graph port. All operations are idempotent merges:
// the same node key always lands on the same node, and bucketed edges count
// discrete occurrences rather than snapshots.
type Store interface {
	// UpsertNode creates the node or refreshes its attributes.
	UpsertNode(ctx context.Context, label, key string, attrs map[string]any) error

	// UpsertEdge creates the (from, to, label, bucket) edge with count=1.
	// When increment is set, re-applying the same edge bumps its count.
	// Unbucketed relationship edges pass bucket="" and increment=false.
	UpsertEdge(ctx context.Context, from, to Ref, label, bucket string, increment bool) error

	// EnsureSchema creates tables/constraints, including the uniqueness
	// guarantee on Item canonical ids.
	EnsureSchema(ctx context.Context) error

	Close()
}

// New creates the best available store: Postgres > in-memory (dev fallback).
// When isProd is true the in-memory fallback is not allowed.
func New(pool *pgxpool.Pool, isProd bool) (Store, error) {
	if pool != nil {
		return NewPostgres(pool), nil
	}
	if isProd {
		return nil, errors.New("production requires DATABASE_URL for the graph store; in-memory store is not allowed")
	}
	return NewMemory(), nil
}
