package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/eventbus"
	"github.com/example/jukebox-platform/internal/platform/events"
	"github.com/example/jukebox-platform/services/graphlog/internal/graph"
)

func fixedIngestor(store graph.Store, at time.Time) *Ingestor {
	i := New(store, zap.NewNop())
	i.now = func() time.Time { return at }
	return i
}

func added() events.ItemAdded {
	return events.ItemAdded{
		EventID:         "ev-1",
		TenantID:        "tenant-1",
		TenantName:      "Test Tenant",
		ActorID:         "u1",
		ActorName:       "alice",
		ItemCanonicalID: "https://item/a",
		ItemTitle:       "Track a",
		DurationSeconds: 180,
		Tags:            []string{"rock", "live"},
	}
}

func publish(t *testing.T, i *Ingestor, topic string, ev any) {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	i.Handle(context.Background(), topic, body)
}

func TestItemAdded_BuildsNodesAndEdges(t *testing.T) {
	mem := graph.NewMemory()
	at := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedIngestor(mem, at)

	publish(t, ing, events.TopicItemAdded, added())

	if _, ok := mem.Node(graph.LabelUser, "u1"); !ok {
		t.Fatal("missing user node")
	}
	item, ok := mem.Node(graph.LabelItem, "https://item/a")
	if !ok {
		t.Fatal("missing item node")
	}
	if item.Attrs["title"] != "Track a" {
		t.Fatalf("item attrs not recorded: %+v", item.Attrs)
	}
	if _, ok := mem.Node(graph.LabelTenant, "tenant-1"); !ok {
		t.Fatal("missing tenant node")
	}

	user := graph.Ref{Label: graph.LabelUser, Key: "u1"}
	itemRef := graph.Ref{Label: graph.LabelItem, Key: "https://item/a"}
	tenant := graph.Ref{Label: graph.LabelTenant, Key: "tenant-1"}

	edge, ok := mem.Edge(user, itemRef, graph.EdgeAdded, WeekBucket(at))
	if !ok {
		t.Fatal("missing ADDED edge in the event's week bucket")
	}
	if edge.Count != 1 {
		t.Fatalf("expected count 1, got %d", edge.Count)
	}
	if _, ok := mem.Edge(user, tenant, graph.EdgeInTenant, ""); !ok {
		t.Fatal("missing IN_TENANT edge")
	}
}

func TestItemAdded_TagsLinked(t *testing.T) {
	mem := graph.NewMemory()
	ing := fixedIngestor(mem, time.Now())

	publish(t, ing, events.TopicItemAdded, added())

	itemRef := graph.Ref{Label: graph.LabelItem, Key: "https://item/a"}
	for _, tag := range []string{"rock", "live"} {
		if _, ok := mem.Node(graph.LabelTag, tag); !ok {
			t.Fatalf("missing tag node %q", tag)
		}
		if _, ok := mem.Edge(itemRef, graph.Ref{Label: graph.LabelTag, Key: tag}, graph.EdgeHasTag, ""); !ok {
			t.Fatalf("missing HAS_TAG edge for %q", tag)
		}
	}
	if got := mem.NodeCount(graph.LabelTag); got != 2 {
		t.Fatalf("expected 2 tag nodes, got %d", got)
	}
}

func TestItemAdded_ReplayIncrementsNotDuplicates(t *testing.T) {
	mem := graph.NewMemory()
	at := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedIngestor(mem, at)

	publish(t, ing, events.TopicItemAdded, added())
	publish(t, ing, events.TopicItemAdded, added())

	if got := mem.NodeCount(graph.LabelUser); got != 1 {
		t.Fatalf("replay must not duplicate user nodes, got %d", got)
	}
	if got := mem.NodeCount(graph.LabelItem); got != 1 {
		t.Fatalf("replay must not duplicate item nodes, got %d", got)
	}

	user := graph.Ref{Label: graph.LabelUser, Key: "u1"}
	itemRef := graph.Ref{Label: graph.LabelItem, Key: "https://item/a"}
	edge, _ := mem.Edge(user, itemRef, graph.EdgeAdded, WeekBucket(at))
	if edge.Count != 2 {
		t.Fatalf("replay must increment the bucketed count, got %d", edge.Count)
	}
}

func TestItemAdded_SeparateWeeksSeparateBuckets(t *testing.T) {
	mem := graph.NewMemory()
	week1 := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)

	ing := fixedIngestor(mem, week1)
	publish(t, ing, events.TopicItemAdded, added())
	ing.now = func() time.Time { return week2 }
	publish(t, ing, events.TopicItemAdded, added())

	user := graph.Ref{Label: graph.LabelUser, Key: "u1"}
	itemRef := graph.Ref{Label: graph.LabelItem, Key: "https://item/a"}

	e1, ok1 := mem.Edge(user, itemRef, graph.EdgeAdded, WeekBucket(week1))
	e2, ok2 := mem.Edge(user, itemRef, graph.EdgeAdded, WeekBucket(week2))
	if !ok1 || !ok2 {
		t.Fatal("each week must get its own edge")
	}
	if e1.Count != 1 || e2.Count != 1 {
		t.Fatalf("counts must not bleed across buckets: %d and %d", e1.Count, e2.Count)
	}
}

func TestItemListened_PerListenerEdges(t *testing.T) {
	mem := graph.NewMemory()
	at := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedIngestor(mem, at)

	publish(t, ing, events.TopicItemListened, events.ItemListened{
		EventID:         "ev-2",
		TenantID:        "tenant-1",
		TenantName:      "Test Tenant",
		ItemCanonicalID: "https://item/a",
		ItemTitle:       "Track a",
		Listeners: []events.Listener{
			{ID: "u1", Name: "alice"},
			{ID: "u2", Name: "bob"},
		},
	})

	itemRef := graph.Ref{Label: graph.LabelItem, Key: "https://item/a"}
	for _, id := range []string{"u1", "u2"} {
		user := graph.Ref{Label: graph.LabelUser, Key: id}
		if _, ok := mem.Node(graph.LabelUser, id); !ok {
			t.Fatalf("missing user node %s", id)
		}
		if _, ok := mem.Edge(user, itemRef, graph.EdgeListened, WeekBucket(at)); !ok {
			t.Fatalf("missing LISTENED edge for %s", id)
		}
		tenant := graph.Ref{Label: graph.LabelTenant, Key: "tenant-1"}
		if _, ok := mem.Edge(user, tenant, graph.EdgeInTenant, ""); !ok {
			t.Fatalf("missing IN_TENANT edge for %s", id)
		}
	}
}

func TestItemListened_BeforeAddedCreatesMinimalItem(t *testing.T) {
	mem := graph.NewMemory()
	ing := fixedIngestor(mem, time.Now())

	publish(t, ing, events.TopicItemListened, events.ItemListened{
		TenantID:        "tenant-1",
		ItemCanonicalID: "https://item/a",
		ItemTitle:       "Track a",
		Listeners:       []events.Listener{{ID: "u1", Name: "alice"}},
	})

	item, ok := mem.Node(graph.LabelItem, "https://item/a")
	if !ok {
		t.Fatal("listened before added must still create the item node")
	}
	if _, has := item.Attrs["duration_seconds"]; has {
		t.Fatal("minimal item node must not fake a duration")
	}

	// The late added event fills in the full attributes.
	publish(t, ing, events.TopicItemAdded, added())
	item, _ = mem.Node(graph.LabelItem, "https://item/a")
	if item.Attrs["duration_seconds"] != 180 {
		t.Fatalf("added event must backfill duration, got %v", item.Attrs["duration_seconds"])
	}
}

func TestHandle_BadEventsDropped(t *testing.T) {
	mem := graph.NewMemory()
	ing := fixedIngestor(mem, time.Now())

	ing.Handle(context.Background(), events.TopicItemAdded, []byte(`{not json`))
	ing.Handle(context.Background(), events.TopicItemAdded, []byte(`{}`)) // missing required fields
	ing.Handle(context.Background(), "unknown_topic", []byte(`{}`))

	if got := mem.NodeCount(graph.LabelUser) + mem.NodeCount(graph.LabelItem); got != 0 {
		t.Fatalf("bad events must leave the graph untouched, got %d nodes", got)
	}
}

func TestRun_ConsumesFromBus(t *testing.T) {
	mem := graph.NewMemory()
	ing := fixedIngestor(mem, time.Now())
	bus := eventbus.NewMemoryBus()

	if err := ing.Run(context.Background(), bus); err != nil {
		t.Fatalf("run: %v", err)
	}

	body, _ := json.Marshal(added())
	if err := bus.Publish(context.Background(), events.TopicItemAdded, body); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, ok := mem.Node(graph.LabelItem, "https://item/a"); !ok {
		t.Fatal("published event must reach the graph through the bus")
	}
}

func TestWeekBucket_Format(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), "2026-W36"},
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "2026-W1"},
		// Jan 1 2027 falls in the last ISO week of 2026.
		{time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
	}
	for _, tc := range cases {
		if got := WeekBucket(tc.in); got != tc.want {
			t.Fatalf("WeekBucket(%s): expected %s, got %s", tc.in.Format("2006-01-02"), tc.want, got)
		}
	}
}
