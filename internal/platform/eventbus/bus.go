// Package eventbus provides the fire-and-forget pub/sub channel between the
// player and the graphlog consumer.
//
// Primary backend: Redis pub/sub (env REDIS_URL).
// Alternate: core NATS subjects (env NATS_URL) with the same delivery contract.
// If neither is configured, an in-process bus is used (development only).
//
// The contract is deliberately weak: a message reaches subscribers connected
// at publish time and nobody else. No persistence, no replay, no acks.
package eventbus

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/example/jukebox-platform/internal/platform/natsconn"
)

// Handler receives the raw JSON body of one message on a topic.
type Handler func(ctx context.Context, topic string, body []byte)

// Bus is the fire-and-forget pub/sub port.
type Bus interface {
	// Publish sends body to every currently-connected subscriber of topic.
	// A publish with no subscribers is not an error.
	Publish(ctx context.Context, topic string, body []byte) error

	// Subscribe registers h for the given topics until ctx is cancelled.
	Subscribe(ctx context.Context, h Handler, topics ...string) error

	Close() error
}

// New creates the best available bus: Redis > NATS > in-process.
// When isProd is true the in-process fallback is not allowed.
func New(rdb *redis.Client, natsURL string, isProd bool) (Bus, error) {
	if rdb != nil {
		return NewRedisBus(rdb), nil
	}
	if natsURL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: natsURL})
		if err != nil {
			return nil, err
		}
		return NewNATSBus(nc), nil
	}
	if isProd {
		return nil, errors.New("production requires REDIS_URL or NATS_URL for the event bus; in-process bus is not allowed")
	}
	return NewMemoryBus(), nil
}
