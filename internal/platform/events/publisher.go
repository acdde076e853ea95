package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/eventbus"
)

// Publisher publishes playback events to the bus, fire-and-forget.
// Failures are logged as warnings and never surface to the caller.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	bus eventbus.Bus
	log *zap.Logger
}

// NewPublisher wraps an existing bus. Pass bus=nil to get a no-op stub
// (useful in tests and tools without a bus).
func NewPublisher(bus eventbus.Bus, log *zap.Logger) *Publisher {
	return &Publisher{bus: bus, log: log}
}

func (p *Publisher) ItemAdded(ctx context.Context, ev ItemAdded) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	p.publish(ctx, TopicItemAdded, ev)
}

func (p *Publisher) ItemListened(ctx context.Context, ev ItemListened) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	p.publish(ctx, TopicItemListened, ev)
}

func (p *Publisher) publish(ctx context.Context, topic string, ev any) {
	if p == nil || p.bus == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := p.bus.Publish(ctx, topic, body); err != nil {
		p.log.Warn("events: publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
