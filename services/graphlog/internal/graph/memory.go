package graph

import (
	"context"
	"sync"
	"time"
)

// MemoryNode is an in-memory node record, exported for test assertions.
type MemoryNode struct {
	Label     string
	Key       string
	Attrs     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemoryEdge is an in-memory edge record, exported for test assertions.
type MemoryEdge struct {
	From      Ref
	To        Ref
	Label     string
	Bucket    string
	Count     int64
	FirstSeen time.Time
	LastSeen  time.Time
}

type edgeKey struct {
	from   Ref
	to     Ref
	label  string
	bucket string
}

// memoryStore is a development-only in-memory graph backend.
type memoryStore struct {
	mu    sync.Mutex
	nodes map[Ref]*MemoryNode
	edges map[edgeKey]*MemoryEdge
	now   func() time.Time
}

func NewMemory() *memoryStore {
	return &memoryStore{
		nodes: make(map[Ref]*MemoryNode),
		edges: make(map[edgeKey]*MemoryEdge),
		now:   time.Now,
	}
}

func (s *memoryStore) EnsureSchema(context.Context) error { return nil }

func (s *memoryStore) UpsertNode(_ context.Context, label, key string, attrs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := Ref{Label: label, Key: key}
	node, ok := s.nodes[ref]
	if !ok {
		node = &MemoryNode{Label: label, Key: key, Attrs: map[string]any{}, CreatedAt: s.now()}
		s.nodes[ref] = node
	}
	for k, v := range attrs {
		node.Attrs[k] = v
	}
	node.UpdatedAt = s.now()
	return nil
}

func (s *memoryStore) UpsertEdge(_ context.Context, from, to Ref, label, bucket string, increment bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{from: from, to: to, label: label, bucket: bucket}
	edge, ok := s.edges[key]
	if !ok {
		s.edges[key] = &MemoryEdge{From: from, To: to, Label: label, Bucket: bucket, Count: 1, FirstSeen: s.now(), LastSeen: s.now()}
		return nil
	}
	if increment {
		edge.Count++
	}
	edge.LastSeen = s.now()
	return nil
}

func (s *memoryStore) Close() {}

// Node returns the stored node, if any. Test helper.
func (s *memoryStore) Node(label, key string) (MemoryNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[Ref{Label: label, Key: key}]
	if !ok {
		return MemoryNode{}, false
	}
	return *node, true
}

// Edge returns the stored edge, if any. Test helper.
func (s *memoryStore) Edge(from, to Ref, label, bucket string) (MemoryEdge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edge, ok := s.edges[edgeKey{from: from, to: to, label: label, bucket: bucket}]
	if !ok {
		return MemoryEdge{}, false
	}
	return *edge, true
}

// NodeCount reports how many nodes carry the label. Test helper.
func (s *memoryStore) NodeCount(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ref := range s.nodes {
		if ref.Label == label {
			n++
		}
	}
	return n
}
