package voice

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sim is a development transport: Play "streams" for a fixed duration on a
// timer, then fires the completion callback. It lets the whole player run
// end to end without a real voice gateway.
type Sim struct {
	TenantID      string
	TrackDuration time.Duration
	Members       []Member
	Log           *zap.Logger

	mu      sync.Mutex
	channel string
	timer   *time.Timer
	onDone  func(err error)
	paused  bool
	remain  time.Duration
	started time.Time
}

// NewSimFactory returns a Factory producing one Sim per tenant.
func NewSimFactory(trackDuration time.Duration, members []Member, log *zap.Logger) Factory {
	if trackDuration <= 0 {
		trackDuration = 5 * time.Second
	}
	return func(tenantID string) Transport {
		return &Sim{TenantID: tenantID, TrackDuration: trackDuration, Members: members, Log: log}
	}
}

func (s *Sim) Join(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = channelID
	if s.Log != nil {
		s.Log.Info("sim transport joined", zap.String("tenant", s.TenantID), zap.String("channel", channelID))
	}
	return nil
}

func (s *Sim) Leave(_ context.Context) error {
	s.stopLocked(false)
	s.mu.Lock()
	s.channel = ""
	s.mu.Unlock()
	return nil
}

func (s *Sim) Play(_ context.Context, streamURL string, onDone func(err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.onDone = onDone
	s.paused = false
	s.remain = s.TrackDuration
	s.started = time.Now()
	s.timer = time.AfterFunc(s.TrackDuration, func() { s.finish(nil) })
	if s.Log != nil {
		s.Log.Debug("sim transport playing", zap.String("tenant", s.TenantID), zap.String("url", streamURL))
	}
	return nil
}

func (s *Sim) Stop() {
	s.stopLocked(true)
}

func (s *Sim) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil || s.paused {
		return false
	}
	s.timer.Stop()
	s.remain -= time.Since(s.started)
	if s.remain < 0 {
		s.remain = 0
	}
	s.paused = true
	return true
}

func (s *Sim) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil || !s.paused {
		return false
	}
	s.paused = false
	s.started = time.Now()
	s.timer = time.AfterFunc(s.remain, func() { s.finish(nil) })
	return true
}

func (s *Sim) Listeners() []Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Member, len(s.Members))
	copy(out, s.Members)
	return out
}

// stopLocked ends the active stream; fire controls whether the completion
// callback is invoked.
func (s *Sim) stopLocked(fire bool) {
	s.mu.Lock()
	timer := s.timer
	done := s.onDone
	s.timer = nil
	s.onDone = nil
	s.paused = false
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if fire && done != nil {
		go done(nil)
	}
}

// finish is the timer path: hand the stream's end to the completion callback.
func (s *Sim) finish(err error) {
	s.mu.Lock()
	done := s.onDone
	s.timer = nil
	s.onDone = nil
	s.mu.Unlock()
	if done != nil {
		done(err)
	}
}
