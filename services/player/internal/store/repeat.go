package store

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

type redisRepeat struct {
	client *redis.Client
}

func NewRedisRepeat(client *redis.Client) Repeat {
	return &redisRepeat{client: client}
}

func (r *redisRepeat) Get(ctx context.Context, tenantID string) (bool, error) {
	v, err := r.client.Get(ctx, repeatKey(tenantID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (r *redisRepeat) Set(ctx context.Context, tenantID string, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return r.client.Set(ctx, repeatKey(tenantID), v, 0).Err()
}

// memoryRepeat is a development-only in-memory repeat flag backend.
type memoryRepeat struct {
	mu    sync.Mutex
	flags map[string]bool
}

func NewMemoryRepeat() Repeat {
	return &memoryRepeat{flags: make(map[string]bool)}
}

func (r *memoryRepeat) Get(_ context.Context, tenantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags[tenantID], nil
}

func (r *memoryRepeat) Set(_ context.Context, tenantID string, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[tenantID] = on
	return nil
}
