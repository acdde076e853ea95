// Package events defines the playback event payloads exchanged between the
// player service and the graphlog consumer. Payloads are append-only facts:
// published once per occurrence, never mutated.
package events

// Topic names on the event bus.
const (
	TopicItemAdded    = "item_added"
	TopicItemListened = "item_listened"
)

// Listener identifies one non-bot member present in the channel when an item
// finished playing.
type Listener struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemAdded is published when a resolved item lands in a tenant's queue.
type ItemAdded struct {
	EventID         string   `json:"event_id"`
	TenantID        string   `json:"tenant_id"`
	TenantName      string   `json:"tenant_name"`
	ActorID         string   `json:"actor_id"`
	ActorName       string   `json:"actor_name"`
	ItemCanonicalID string   `json:"item_canonical_id"`
	ItemTitle       string   `json:"item_title"`
	DurationSeconds int      `json:"item_duration_seconds"`
	Tags            []string `json:"item_tags"`
}

// ItemListened is published when an item finishes playing, carrying a
// snapshot of the non-bot members present in the channel at that moment.
type ItemListened struct {
	EventID         string     `json:"event_id"`
	TenantID        string     `json:"tenant_id"`
	TenantName      string     `json:"tenant_name"`
	ItemCanonicalID string     `json:"item_canonical_id"`
	ItemTitle       string     `json:"item_title"`
	Listeners       []Listener `json:"listeners"`
}
