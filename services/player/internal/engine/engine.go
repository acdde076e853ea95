// Package engine owns the per-tenant playback state machine. Each Engine
// processes commands one at a time on its own goroutine; concurrency exists
// across tenants, never within one. Slow resolutions run on the shared
// resolver pool and their results are posted back into the command stream.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/events"
	"github.com/example/jukebox-platform/services/player/internal/resolver"
	"github.com/example/jukebox-platform/services/player/internal/store"
	"github.com/example/jukebox-platform/services/player/internal/voice"
)

// QuerySeparator splits one command text into independent sub-queries.
const QuerySeparator = ";;"

// maxStartRetries bounds re-attempts after a playback start failure; each
// retry forces a cache refresh first.
const maxStartRetries = 2

var (
	// ErrClosed is returned for commands posted after the engine was torn down.
	ErrClosed = errors.New("engine: closed")

	// ErrDiscarded marks a resolution that finished after a stop or leave
	// invalidated it.
	ErrDiscarded = errors.New("engine: playback stopped before resolution finished")
)

// State is the engine's position in Idle → Resolving → Playing → (Paused).
type State int

const (
	StateIdle State = iota
	StateResolving
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// Actor identifies who issued an enqueue.
type Actor struct {
	ID   string
	Name string
}

// EnqueueResult reports the outcome for one sub-query.
type EnqueueResult struct {
	Query   string
	Title   string
	Started bool // playback kicked off immediately (engine was idle)
	Err     error
}

// Options wires one engine instance.
type Options struct {
	TenantID   string
	TenantName string
	Stores     store.Stores
	Pool       *resolver.Pool
	Transport  voice.Transport
	Publisher  *events.Publisher
	Log        *zap.Logger
}

// Engine is the per-tenant playback state machine. All mutable fields below
// cmds are owned by the loop goroutine.
type Engine struct {
	tenantID   string
	tenantName string
	queue      store.Queue
	cache      store.StreamCache
	repeat     store.Repeat
	pool       *resolver.Pool
	transport  voice.Transport
	pub        *events.Publisher
	log        *zap.Logger

	cmds      chan func()
	quit      chan struct{}
	closeOnce sync.Once

	// gen invalidates in-flight work: stop and leave bump it, and any
	// resolver result or completion callback carrying an older value is
	// discarded. Written only by the loop, read from any goroutine.
	gen atomic.Uint64

	state    State
	current  *store.Item
	repeatOn bool
}

// New loads the persisted repeat flag and starts the engine's command loop.
func New(ctx context.Context, opts Options) (*Engine, error) {
	repeatOn, err := opts.Stores.Repeat.Get(ctx, opts.TenantID)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		tenantID:   opts.TenantID,
		tenantName: opts.TenantName,
		queue:      opts.Stores.Queue,
		cache:      opts.Stores.Cache,
		repeat:     opts.Stores.Repeat,
		pool:       opts.Pool,
		transport:  opts.Transport,
		pub:        opts.Publisher,
		log:        opts.Log.With(zap.String("tenant", opts.TenantID)),
		cmds:       make(chan func(), 64),
		quit:       make(chan struct{}),
		repeatOn:   repeatOn,
		state:      StateIdle,
	}
	go e.loop()
	return e, nil
}

func (e *Engine) loop() {
	for {
		select {
		case <-e.quit:
			return
		case fn := <-e.cmds:
			fn()
		}
	}
}

// Close stops the command loop. Pending commands are dropped.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.quit) })
}

// do posts fn into the command stream and waits for it to run.
func (e *Engine) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case e.cmds <- wrapped:
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers fn into the command stream without waiting. Used by
// completion callbacks and resolver continuations.
func (e *Engine) post(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.quit:
	}
}

// SplitQueries breaks command text on the separator token, dropping blanks.
func SplitQueries(query string) []string {
	parts := strings.Split(query, QuerySeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join connects the tenant's transport to a channel. No queue side effects.
func (e *Engine) Join(ctx context.Context, channelID string) error {
	var err error
	if doErr := e.do(ctx, func() {
		err = e.transport.Join(ctx, channelID)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Leave disconnects, clears the tenant's queue, and resets to idle. Any
// in-flight resolution for this tenant is abandoned. The caller is expected
// to remove the engine from its registry afterwards.
func (e *Engine) Leave(ctx context.Context) error {
	var err error
	if doErr := e.do(ctx, func() {
		e.gen.Add(1)
		err = e.transport.Leave(ctx)
		if clearErr := e.queue.Clear(context.Background(), e.tenantID); clearErr != nil && err == nil {
			err = clearErr
		}
		e.current = nil
		e.state = StateIdle
	}); doErr != nil {
		return doErr
	}
	return err
}

// Enqueue resolves each sub-query off the command path and appends the
// successes to the queue, starting playback when the engine is idle. One
// failing sub-query never affects the others.
func (e *Engine) Enqueue(ctx context.Context, query string, actor Actor) []EnqueueResult {
	queries := SplitQueries(query)
	results := make([]EnqueueResult, 0, len(queries))

	for _, q := range queries {
		r := EnqueueResult{Query: q}
		gen := e.gen.Load()

		res, err := e.pool.Resolve(ctx, q)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}

		if doErr := e.do(ctx, func() {
			if gen != e.gen.Load() {
				r.Err = ErrDiscarded
				return
			}
			r.Title, r.Started, r.Err = e.addResolved(res, actor)
		}); doErr != nil {
			r.Err = doErr
		}
		results = append(results, r)
	}
	return results
}

// addResolved runs on the loop: persist the item, cache its locator, emit
// the added event, and start playback when idle. An item that could not be
// persisted is reported as this sub-query's failure; it is never played and
// its added event is never published.
func (e *Engine) addResolved(res resolver.Result, actor Actor) (title string, started bool, err error) {
	item := store.Item{
		Title:           res.Title,
		DurationSeconds: res.DurationSeconds,
		CanonicalID:     res.CanonicalID,
	}
	ctx := context.Background()

	if err := e.queue.Append(ctx, e.tenantID, item); err != nil {
		e.log.Error("queue append failed", zap.Error(err))
		return res.Title, false, err
	}
	if err := e.cache.Set(ctx, res.CanonicalID, res.StreamURL, res.ExpiresAt); err != nil {
		e.log.Warn("stream cache set failed", zap.Error(err))
	}

	e.pub.ItemAdded(ctx, events.ItemAdded{
		TenantID:        e.tenantID,
		TenantName:      e.tenantName,
		ActorID:         actor.ID,
		ActorName:       actor.Name,
		ItemCanonicalID: res.CanonicalID,
		ItemTitle:       res.Title,
		DurationSeconds: res.DurationSeconds,
		Tags:            res.Tags,
	})

	if e.state == StateIdle {
		e.playNext(0, false)
		return res.Title, e.state != StateIdle, nil
	}
	return res.Title, false, nil
}

// Play starts draining the existing durable queue when idle (the no-query
// play command). Returns false when there was nothing to play.
func (e *Engine) Play(ctx context.Context) (bool, error) {
	var started bool
	if err := e.do(ctx, func() {
		if e.state != StateIdle {
			started = true
			return
		}
		e.playNext(0, false)
		started = e.state != StateIdle
	}); err != nil {
		return false, err
	}
	return started, nil
}

// Skip forcibly ends the active stream; the completion callback then
// publishes the listened event and advances, exactly as a natural end.
// Returns false when nothing is playing.
func (e *Engine) Skip(ctx context.Context) (bool, error) {
	var skipped bool
	if err := e.do(ctx, func() {
		if e.state != StatePlaying && e.state != StatePaused {
			return
		}
		e.transport.Stop()
		skipped = true
	}); err != nil {
		return false, err
	}
	return skipped, nil
}

// Stop ends playback, clears the queue, and returns to idle. The transport
// stays connected. The completion callback of the stopped stream is stale
// after the generation bump and gets discarded.
func (e *Engine) Stop(ctx context.Context) error {
	return e.do(ctx, func() {
		e.gen.Add(1)
		e.transport.Stop()
		if err := e.queue.Clear(context.Background(), e.tenantID); err != nil {
			e.log.Error("queue clear failed", zap.Error(err))
		}
		e.current = nil
		e.state = StateIdle
	})
}

// Pause suspends the active stream. No queue side effects.
func (e *Engine) Pause(ctx context.Context) (bool, error) {
	var paused bool
	if err := e.do(ctx, func() {
		if e.state != StatePlaying {
			return
		}
		if e.transport.Pause() {
			e.state = StatePaused
			paused = true
		}
	}); err != nil {
		return false, err
	}
	return paused, nil
}

// Resume continues a paused stream.
func (e *Engine) Resume(ctx context.Context) (bool, error) {
	var resumed bool
	if err := e.do(ctx, func() {
		if e.state != StatePaused {
			return
		}
		if e.transport.Resume() {
			e.state = StatePlaying
			resumed = true
		}
	}); err != nil {
		return false, err
	}
	return resumed, nil
}

// ToggleRepeat flips and persists the repeat flag, returning the new value.
func (e *Engine) ToggleRepeat(ctx context.Context) (bool, error) {
	var on bool
	var persistErr error
	if err := e.do(ctx, func() {
		e.repeatOn = !e.repeatOn
		on = e.repeatOn
		persistErr = e.repeat.Set(context.Background(), e.tenantID, e.repeatOn)
	}); err != nil {
		return false, err
	}
	return on, persistErr
}

// RemoveAt deletes the queued item at the 0-based index into the visible
// queue. While something is playing the front slot of the durable queue holds
// the current item, which is not addressable here.
func (e *Engine) RemoveAt(ctx context.Context, index int) (bool, error) {
	var removed bool
	var err error
	if doErr := e.do(ctx, func() {
		if index < 0 {
			return
		}
		raw := index
		if e.state != StateIdle {
			raw++
		}
		removed, err = e.queue.RemoveAt(context.Background(), e.tenantID, raw)
	}); doErr != nil {
		return false, doErr
	}
	return removed, err
}

// ListQueue snapshots the pending items in play order, excluding the
// current item (which occupies the durable queue's front slot until its
// completion pops it).
func (e *Engine) ListQueue(ctx context.Context) ([]store.Item, error) {
	var items []store.Item
	var err error
	if doErr := e.do(ctx, func() {
		items, err = e.queue.List(context.Background(), e.tenantID)
		if err == nil && e.state != StateIdle && len(items) > 0 {
			items = items[1:]
		}
	}); doErr != nil {
		return nil, doErr
	}
	return items, err
}

// NowPlaying returns the transient current item and the engine state.
func (e *Engine) NowPlaying(ctx context.Context) (store.Item, State, bool, error) {
	var item store.Item
	var state State
	var ok bool
	if err := e.do(ctx, func() {
		state = e.state
		if e.current != nil {
			item = *e.current
			ok = true
		}
	}); err != nil {
		return store.Item{}, StateIdle, false, err
	}
	return item, state, ok, nil
}
