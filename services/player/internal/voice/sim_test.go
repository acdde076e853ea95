package voice

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSim_CompletesAfterTrackDuration(t *testing.T) {
	sim := &Sim{TenantID: "t1", TrackDuration: 20 * time.Millisecond}

	var fired atomic.Int64
	if err := sim.Play(context.Background(), "stream://a", func(error) { fired.Add(1) }); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, "completion", func() bool { return fired.Load() == 1 })

	// No second firing after completion.
	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("completion must fire exactly once, got %d", got)
	}
}

func TestSim_StopFiresCompletionOnce(t *testing.T) {
	sim := &Sim{TenantID: "t1", TrackDuration: time.Hour}

	var fired atomic.Int64
	sim.Play(context.Background(), "stream://a", func(error) { fired.Add(1) })
	sim.Stop()

	waitFor(t, "completion", func() bool { return fired.Load() == 1 })
	sim.Stop() // idempotent
	time.Sleep(20 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("stop must fire the pending completion exactly once, got %d", got)
	}
}

func TestSim_LeaveDiscardsCompletion(t *testing.T) {
	sim := &Sim{TenantID: "t1", TrackDuration: 20 * time.Millisecond}

	var fired atomic.Int64
	sim.Play(context.Background(), "stream://a", func(error) { fired.Add(1) })
	if err := sim.Leave(context.Background()); err != nil {
		t.Fatalf("leave: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("leave must drop the stream without firing completion, got %d", got)
	}
}

func TestSim_PauseHoldsTheTimer(t *testing.T) {
	sim := &Sim{TenantID: "t1", TrackDuration: 30 * time.Millisecond}

	var fired atomic.Int64
	sim.Play(context.Background(), "stream://a", func(error) { fired.Add(1) })

	if !sim.Pause() {
		t.Fatal("pause on an active stream must succeed")
	}
	if sim.Pause() {
		t.Fatal("double pause must report false")
	}

	// Well past the original duration: paused streams never complete.
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("paused stream must not complete")
	}

	if !sim.Resume() {
		t.Fatal("resume on a paused stream must succeed")
	}
	if sim.Resume() {
		t.Fatal("double resume must report false")
	}
	waitFor(t, "completion after resume", func() bool { return fired.Load() == 1 })
}

func TestSim_PauseWithoutStream(t *testing.T) {
	sim := &Sim{TenantID: "t1", TrackDuration: time.Second}
	if sim.Pause() {
		t.Fatal("pause with nothing playing must report false")
	}
	if sim.Resume() {
		t.Fatal("resume with nothing playing must report false")
	}
}

func TestSimFactory_DefaultsDuration(t *testing.T) {
	factory := NewSimFactory(0, []Member{{ID: "u1", Name: "alice"}}, nil)
	tr := factory("tenant-1")
	sim, ok := tr.(*Sim)
	if !ok {
		t.Fatalf("factory must produce a Sim, got %T", tr)
	}
	if sim.TrackDuration <= 0 {
		t.Fatal("factory must default a non-positive duration")
	}
	listeners := tr.Listeners()
	if len(listeners) != 1 || listeners[0].ID != "u1" {
		t.Fatalf("unexpected listeners %+v", listeners)
	}
}
