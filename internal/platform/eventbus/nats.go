package eventbus

import (
	"context"

	"github.com/nats-io/nats.go"
)

// natsBus publishes on core NATS subjects. Core (non-JetStream) delivery
// matches the bus contract: connected subscribers only, no replay.
type natsBus struct {
	nc *nats.Conn
}

func NewNATSBus(nc *nats.Conn) Bus {
	return &natsBus{nc: nc}
}

func (b *natsBus) Publish(_ context.Context, topic string, body []byte) error {
	return b.nc.Publish(topic, body)
}

func (b *natsBus) Subscribe(ctx context.Context, h Handler, topics ...string) error {
	subs := make([]*nats.Subscription, 0, len(topics))
	for _, topic := range topics {
		topic := topic
		sub, err := b.nc.Subscribe(topic, func(msg *nats.Msg) {
			h(ctx, topic, msg.Data)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return err
		}
		subs = append(subs, sub)
	}

	go func() {
		<-ctx.Done()
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}()
	return nil
}

func (b *natsBus) Close() error {
	b.nc.Close()
	return nil
}
