package eventbus

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type redisBus struct {
	client *redis.Client
}

// NewRedisBus wraps an existing client; the caller owns its lifecycle.
func NewRedisBus(client *redis.Client) Bus {
	return &redisBus{client: client}
}

func (b *redisBus) Publish(ctx context.Context, topic string, body []byte) error {
	return b.client.Publish(ctx, topic, body).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, h Handler, topics ...string) error {
	sub := b.client.Subscribe(ctx, topics...)
	// Force the SUBSCRIBE round trip so misconfiguration surfaces here
	// instead of as a silent empty channel.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h(ctx, msg.Channel, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	return nil // shared client closed by its owner
}
