// Package redisconn provides a shared Redis client factory. Both the player
// stores and the redis event bus go through it so connection settings stay
// in one place.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/jukebox-platform/internal/platform/config"
)

// Options configures the Redis client. Zero values fall back to env vars or
// built-in defaults.
type Options struct {
	URL         string        // redis:// DSN or plain host:port
	DialTimeout time.Duration // default from REDIS_DIAL_TIMEOUT or 5s
}

// Connect builds a client and verifies it with a ping so callers fail fast
// on bad configuration.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.URL == "" {
		opts.URL = config.String("REDIS_URL", "redis://127.0.0.1:6379/0")
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = config.Duration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	}

	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		ropts = &redis.Options{Addr: opts.URL}
	}
	ropts.DialTimeout = opts.DialTimeout

	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect %s: %w", ropts.Addr, err)
	}
	return client, nil
}
