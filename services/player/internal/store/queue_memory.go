package store

import (
	"context"
	"sync"
)

// memoryQueue is a development-only in-memory queue backend.
type memoryQueue struct {
	mu     sync.Mutex
	queues map[string][]Item
}

func NewMemoryQueue() Queue {
	return &memoryQueue{queues: make(map[string][]Item)}
}

func (q *memoryQueue) Append(_ context.Context, tenantID string, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[tenantID] = append(q.queues[tenantID], item)
	return nil
}

func (q *memoryQueue) PeekFront(_ context.Context, tenantID string) (Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[tenantID]
	if len(items) == 0 {
		return Item{}, false, nil
	}
	return items[0], true, nil
}

func (q *memoryQueue) PopFront(_ context.Context, tenantID string) (Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[tenantID]
	if len(items) == 0 {
		return Item{}, false, nil
	}
	item := items[0]
	q.queues[tenantID] = items[1:]
	return item, true, nil
}

func (q *memoryQueue) RemoveAt(_ context.Context, tenantID string, index int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[tenantID]
	if index < 0 || index >= len(items) {
		return false, nil
	}
	q.queues[tenantID] = append(items[:index], items[index+1:]...)
	return true, nil
}

func (q *memoryQueue) List(_ context.Context, tenantID string) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[tenantID]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (q *memoryQueue) Clear(_ context.Context, tenantID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, tenantID)
	return nil
}
