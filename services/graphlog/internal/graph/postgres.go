package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) EnsureSchema(ctx context.Context) error {
	// The (label, key) primary key is the uniqueness constraint for every
	// node identity, Item canonical ids included.
	const schema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
	label      text NOT NULL,
	key        text NOT NULL,
	attrs      jsonb NOT NULL DEFAULT '{}',
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (label, key)
);

CREATE TABLE IF NOT EXISTS graph_edges (
	from_label text NOT NULL,
	from_key   text NOT NULL,
	to_label   text NOT NULL,
	to_key     text NOT NULL,
	label      text NOT NULL,
	bucket     text NOT NULL DEFAULT '',
	count      bigint NOT NULL DEFAULT 1,
	first_seen timestamptz NOT NULL DEFAULT now(),
	last_seen  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (from_label, from_key, to_label, to_key, label, bucket)
);
`
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}
	return nil
}

func (s *postgresStore) UpsertNode(ctx context.Context, label, key string, attrs map[string]any) error {
	if attrs == nil {
		attrs = map[string]any{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO graph_nodes (label, key, attrs)
VALUES ($1, $2, $3)
ON CONFLICT (label, key)
DO UPDATE SET attrs = graph_nodes.attrs || EXCLUDED.attrs, updated_at = now();
`
	if _, err := s.pool.Exec(ctx, q, label, key, b); err != nil {
		return fmt.Errorf("upsert node %s/%s: %w", label, key, err)
	}
	return nil
}

func (s *postgresStore) UpsertEdge(ctx context.Context, from, to Ref, label, bucket string, increment bool) error {
	const q = `
INSERT INTO graph_edges (from_label, from_key, to_label, to_key, label, bucket)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (from_label, from_key, to_label, to_key, label, bucket)
DO UPDATE SET
	count     = graph_edges.count + CASE WHEN $7 THEN 1 ELSE 0 END,
	last_seen = now();
`
	if _, err := s.pool.Exec(ctx, q, from.Label, from.Key, to.Label, to.Key, label, bucket, increment); err != nil {
		return fmt.Errorf("upsert edge %s %s/%s -> %s/%s: %w", label, from.Label, from.Key, to.Label, to.Key, err)
	}
	return nil
}

func (s *postgresStore) Close() {
	s.pool.Close()
}
