package eventbus

import (
	"context"
	"sync"
)

// memoryBus is a development-only in-process bus. It mirrors the weak
// delivery contract of the real backends: a publish reaches handlers
// subscribed at that moment and nobody else.
type memoryBus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
}

type subscription struct {
	ctx context.Context
	h   Handler
}

func NewMemoryBus() Bus {
	return &memoryBus{subs: make(map[string][]subscription)}
}

func (b *memoryBus) Publish(ctx context.Context, topic string, body []byte) error {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		s.h(ctx, topic, body)
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, h Handler, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], subscription{ctx: ctx, h: h})
	}
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscription)
	return nil
}
