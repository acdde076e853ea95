package eventbus

import (
	"context"
	"sync"
	"testing"
)

type recorder struct {
	mu     sync.Mutex
	topics []string
	bodies []string
}

func (r *recorder) handle(_ context.Context, topic string, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.bodies = append(r.bodies, string(body))
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

func TestMemoryBus_DeliversToSubscribedTopicsOnly(t *testing.T) {
	bus := NewMemoryBus()
	rec := &recorder{}
	if err := bus.Subscribe(context.Background(), rec.handle, "item_added"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(context.Background(), "item_added", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(context.Background(), "item_listened", []byte(`{"b":2}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", rec.count())
	}
	if rec.topics[0] != "item_added" || rec.bodies[0] != `{"a":1}` {
		t.Fatalf("unexpected delivery %s %s", rec.topics[0], rec.bodies[0])
	}
}

func TestMemoryBus_PublishBeforeSubscribeIsLost(t *testing.T) {
	bus := NewMemoryBus()
	if err := bus.Publish(context.Background(), "item_added", []byte(`{}`)); err != nil {
		t.Fatalf("publish without subscribers must not error: %v", err)
	}

	rec := &recorder{}
	bus.Subscribe(context.Background(), rec.handle, "item_added")
	if rec.count() != 0 {
		t.Fatal("earlier publishes must not be replayed to late subscribers")
	}
}

func TestMemoryBus_MultipleSubscribersFanOut(t *testing.T) {
	bus := NewMemoryBus()
	a, b := &recorder{}, &recorder{}
	bus.Subscribe(context.Background(), a.handle, "item_listened")
	bus.Subscribe(context.Background(), b.handle, "item_listened")

	bus.Publish(context.Background(), "item_listened", []byte(`{}`))

	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("both subscribers must receive the publish, got %d and %d", a.count(), b.count())
	}
}

func TestMemoryBus_CancelledSubscriberSkipped(t *testing.T) {
	bus := NewMemoryBus()
	live, dead := &recorder{}, &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	bus.Subscribe(ctx, dead.handle, "item_added")
	bus.Subscribe(context.Background(), live.handle, "item_added")
	cancel()

	bus.Publish(context.Background(), "item_added", []byte(`{}`))

	if dead.count() != 0 {
		t.Fatal("cancelled subscriber must not receive deliveries")
	}
	if live.count() != 1 {
		t.Fatalf("live subscriber must still receive deliveries, got %d", live.count())
	}
}

func TestMemoryBus_SubscribeOneHandlerManyTopics(t *testing.T) {
	bus := NewMemoryBus()
	rec := &recorder{}
	bus.Subscribe(context.Background(), rec.handle, "item_added", "item_listened")

	bus.Publish(context.Background(), "item_added", []byte(`{}`))
	bus.Publish(context.Background(), "item_listened", []byte(`{}`))

	if rec.count() != 2 {
		t.Fatalf("expected deliveries from both topics, got %d", rec.count())
	}
}
