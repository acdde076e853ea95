// Package ingest drains the playback event topics into the interaction
// graph. Each event is processed independently: a failure is logged and the
// event is dropped. The graph is an analytics side-channel, not the source
// of truth for playback state.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/eventbus"
	"github.com/example/jukebox-platform/internal/platform/events"
	"github.com/example/jukebox-platform/services/graphlog/internal/graph"
)

// Ingestor is the single logical consumer for both topics. No ordering is
// assumed across topics or tenants; an ItemListened may arrive before the
// ItemAdded for the same item.
type Ingestor struct {
	store graph.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(store graph.Store, log *zap.Logger) *Ingestor {
	return &Ingestor{store: store, log: log, now: time.Now}
}

// Run subscribes to both topics until ctx is cancelled.
func (i *Ingestor) Run(ctx context.Context, bus eventbus.Bus) error {
	return bus.Subscribe(ctx, i.Handle, events.TopicItemAdded, events.TopicItemListened)
}

// Handle dispatches one raw message. Bad or failing events are logged and
// dropped, never retried.
func (i *Ingestor) Handle(ctx context.Context, topic string, body []byte) {
	var err error
	switch topic {
	case events.TopicItemAdded:
		var ev events.ItemAdded
		if err = json.Unmarshal(body, &ev); err == nil {
			err = i.itemAdded(ctx, ev)
		}
	case events.TopicItemListened:
		var ev events.ItemListened
		if err = json.Unmarshal(body, &ev); err == nil {
			err = i.itemListened(ctx, ev)
		}
	default:
		i.log.Warn("unknown topic", zap.String("topic", topic))
		return
	}
	if err != nil {
		i.log.Error("event dropped", zap.String("topic", topic), zap.Error(err))
	}
}

func (i *Ingestor) itemAdded(ctx context.Context, ev events.ItemAdded) error {
	if ev.ItemCanonicalID == "" || ev.TenantID == "" || ev.ActorID == "" {
		return errors.New("item_added: missing tenant, actor, or canonical id")
	}
	bucket := WeekBucket(i.now())

	if err := i.store.UpsertNode(ctx, graph.LabelUser, ev.ActorID, map[string]any{"name": ev.ActorName}); err != nil {
		return err
	}
	if err := i.store.UpsertNode(ctx, graph.LabelItem, ev.ItemCanonicalID, map[string]any{
		"title":            ev.ItemTitle,
		"duration_seconds": ev.DurationSeconds,
	}); err != nil {
		return err
	}
	if err := i.store.UpsertNode(ctx, graph.LabelTenant, ev.TenantID, map[string]any{"name": ev.TenantName}); err != nil {
		return err
	}

	user := graph.Ref{Label: graph.LabelUser, Key: ev.ActorID}
	item := graph.Ref{Label: graph.LabelItem, Key: ev.ItemCanonicalID}
	tenant := graph.Ref{Label: graph.LabelTenant, Key: ev.TenantID}

	if err := i.store.UpsertEdge(ctx, user, item, graph.EdgeAdded, bucket, true); err != nil {
		return err
	}
	if err := i.store.UpsertEdge(ctx, user, tenant, graph.EdgeInTenant, "", false); err != nil {
		return err
	}
	for _, tag := range ev.Tags {
		if tag == "" {
			continue
		}
		if err := i.store.UpsertNode(ctx, graph.LabelTag, tag, map[string]any{"name": tag}); err != nil {
			return err
		}
		if err := i.store.UpsertEdge(ctx, item, graph.Ref{Label: graph.LabelTag, Key: tag}, graph.EdgeHasTag, "", false); err != nil {
			return err
		}
	}
	return nil
}

func (i *Ingestor) itemListened(ctx context.Context, ev events.ItemListened) error {
	if ev.ItemCanonicalID == "" || ev.TenantID == "" {
		return errors.New("item_listened: missing tenant or canonical id")
	}
	bucket := WeekBucket(i.now())

	// A listened event may beat its added event here; the minimal Item node
	// is enough and the added event fills in the rest later.
	if err := i.store.UpsertNode(ctx, graph.LabelItem, ev.ItemCanonicalID, map[string]any{"title": ev.ItemTitle}); err != nil {
		return err
	}
	if err := i.store.UpsertNode(ctx, graph.LabelTenant, ev.TenantID, map[string]any{"name": ev.TenantName}); err != nil {
		return err
	}

	item := graph.Ref{Label: graph.LabelItem, Key: ev.ItemCanonicalID}
	tenant := graph.Ref{Label: graph.LabelTenant, Key: ev.TenantID}

	for _, listener := range ev.Listeners {
		if listener.ID == "" {
			continue
		}
		if err := i.store.UpsertNode(ctx, graph.LabelUser, listener.ID, map[string]any{"name": listener.Name}); err != nil {
			return err
		}
		user := graph.Ref{Label: graph.LabelUser, Key: listener.ID}
		if err := i.store.UpsertEdge(ctx, user, item, graph.EdgeListened, bucket, true); err != nil {
			return err
		}
		if err := i.store.UpsertEdge(ctx, user, tenant, graph.EdgeInTenant, "", false); err != nil {
			return err
		}
	}
	return nil
}

// WeekBucket renders the ISO year-week window edges are grouped by,
// e.g. "2026-W36".
func WeekBucket(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%d", year, week)
}
