package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/events"
	"github.com/example/jukebox-platform/services/player/internal/store"
)

// playNext advances the queue. It runs on the loop goroutine. The front item
// is peeked, not popped. Removal happens only in the completion path, so a
// crash between peek and playback start never loses the item (at the cost of
// possibly replaying it after a restart).
func (e *Engine) playNext(retry int, forceRefresh bool) {
	ctx := context.Background()

	item, ok, err := e.queue.PeekFront(ctx, e.tenantID)
	if err != nil {
		e.log.Error("queue peek failed", zap.Error(err))
		e.state = StateIdle
		return
	}
	if !ok {
		e.log.Info("queue empty, nothing to play")
		e.state = StateIdle
		return
	}

	if !forceRefresh {
		if locator, hit, err := e.cache.Get(ctx, item.CanonicalID); err == nil && hit {
			e.startPlayback(item, locator, retry)
			return
		} else if err != nil {
			e.log.Warn("stream cache get failed", zap.Error(err))
		}
	}

	// Miss, expiry, or forced refresh: re-resolve by canonical id off the
	// command path, then deliver the result back into it.
	e.state = StateResolving
	gen := e.gen.Load()
	go func() {
		res, err := e.pool.Resolve(ctx, item.CanonicalID)
		e.post(func() {
			if gen != e.gen.Load() {
				return
			}
			if err != nil {
				e.log.Warn("re-resolution failed", zap.String("canonical_id", item.CanonicalID), zap.Error(err))
				e.startFailed(item, retry)
				return
			}
			if err := e.cache.Set(context.Background(), res.CanonicalID, res.StreamURL, res.ExpiresAt); err != nil {
				e.log.Warn("stream cache set failed", zap.Error(err))
			}
			e.startPlayback(item, res.StreamURL, retry)
		})
	}()
}

// startPlayback hands the locator to the transport. Runs on the loop.
func (e *Engine) startPlayback(item store.Item, locator string, retry int) {
	gen := e.gen.Load()
	err := e.transport.Play(context.Background(), locator, func(playErr error) {
		e.post(func() { e.trackDone(gen, playErr) })
	})
	if err != nil {
		e.log.Warn("playback start failed",
			zap.String("title", item.Title),
			zap.Int("attempt", retry+1),
			zap.Error(err))
		e.startFailed(item, retry)
		return
	}

	e.current = &item
	e.state = StatePlaying
	e.log.Info("playing", zap.String("title", item.Title), zap.String("canonical_id", item.CanonicalID))
}

// startFailed retries a failed start with a forced cache refresh, up to the
// bound. Past the bound the item is dropped and the engine idles; the rest
// of the queue is reachable by the next play command.
func (e *Engine) startFailed(item store.Item, retry int) {
	if retry < maxStartRetries {
		e.playNext(retry+1, true)
		return
	}

	e.log.Error("giving up on item after retries",
		zap.String("title", item.Title),
		zap.String("canonical_id", item.CanonicalID),
		zap.Int("attempts", retry+1))
	if _, _, err := e.queue.PopFront(context.Background(), e.tenantID); err != nil {
		e.log.Error("queue pop failed", zap.Error(err))
	}
	e.current = nil
	e.state = StateIdle
}

// trackDone is the completion path, funneled through the command stream so
// a user skip and a natural end can never both advance the queue. It runs
// uniformly for natural end, stream error, and explicit stop of the stream.
func (e *Engine) trackDone(gen uint64, playErr error) {
	if gen != e.gen.Load() {
		return // a stop or leave already invalidated this stream
	}
	cur := e.current
	if cur == nil {
		return
	}
	if playErr != nil {
		e.log.Warn("stream ended with error", zap.String("title", cur.Title), zap.Error(playErr))
	}

	ctx := context.Background()

	listeners := make([]events.Listener, 0)
	for _, m := range e.transport.Listeners() {
		if m.Bot {
			continue
		}
		listeners = append(listeners, events.Listener{ID: m.ID, Name: m.Name})
	}
	e.pub.ItemListened(ctx, events.ItemListened{
		TenantID:        e.tenantID,
		TenantName:      e.tenantName,
		ItemCanonicalID: cur.CanonicalID,
		ItemTitle:       cur.Title,
		Listeners:       listeners,
	})

	if _, _, err := e.queue.PopFront(ctx, e.tenantID); err != nil {
		e.log.Error("queue pop failed", zap.Error(err))
	}
	if e.repeatOn {
		if err := e.queue.Append(ctx, e.tenantID, *cur); err != nil {
			e.log.Error("repeat re-append failed", zap.Error(err))
		}
	}

	e.current = nil
	e.state = StateIdle
	e.playNext(0, false)
}
