package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Append(ctx context.Context, tenantID string, item Item) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, queueKey(tenantID), b).Err()
}

func (q *redisQueue) PeekFront(ctx context.Context, tenantID string) (Item, bool, error) {
	raw, err := q.client.LIndex(ctx, queueKey(tenantID), 0).Result()
	if err == redis.Nil {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

func (q *redisQueue) PopFront(ctx context.Context, tenantID string) (Item, bool, error) {
	raw, err := q.client.LPop(ctx, queueKey(tenantID)).Result()
	if err == redis.Nil {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

func (q *redisQueue) RemoveAt(ctx context.Context, tenantID string, index int) (bool, error) {
	key := queueKey(tenantID)

	length, err := q.client.LLen(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if index < 0 || int64(index) >= length {
		return false, nil
	}

	// Snapshot the element, then remove by value so the deletion cannot hit
	// a neighbour if the list shrank in between.
	raw, err := q.client.LIndex(ctx, key, int64(index)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	removed, err := q.client.LRem(ctx, key, 1, raw).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (q *redisQueue) List(ctx context.Context, tenantID string) ([]Item, error) {
	raws, err := q.client.LRange(ctx, queueKey(tenantID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (q *redisQueue) Clear(ctx context.Context, tenantID string) error {
	return q.client.Del(ctx, queueKey(tenantID)).Err()
}
