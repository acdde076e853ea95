package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStreamCache struct {
	client *redis.Client
}

func NewRedisStreamCache(client *redis.Client) StreamCache {
	return &redisStreamCache{client: client}
}

func (c *redisStreamCache) Get(ctx context.Context, canonicalID string) (string, bool, error) {
	locator, err := c.client.Get(ctx, canonicalID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return locator, true, nil
}

func (c *redisStreamCache) Set(ctx context.Context, canonicalID, locator string, expiresAt time.Time) error {
	// Expiry is the locator's own signed expiry. A locator with none, or one
	// already past, is unusable and must not outlive this call.
	if !expiresAt.After(time.Now()) {
		return nil
	}
	return c.client.SetArgs(ctx, canonicalID, locator, redis.SetArgs{ExpireAt: expiresAt}).Err()
}
