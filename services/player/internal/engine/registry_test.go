package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/eventbus"
	"github.com/example/jukebox-platform/internal/platform/events"
	"github.com/example/jukebox-platform/services/player/internal/resolver"
	"github.com/example/jukebox-platform/services/player/internal/store"
	"github.com/example/jukebox-platform/services/player/internal/voice"
)

func testRegistry(t *testing.T, creations *atomic.Int64) *Registry {
	t.Helper()
	pool := resolver.NewPool(&fakeResolver{}, 1, zap.NewNop())
	t.Cleanup(pool.Close)
	pub := events.NewPublisher(eventbus.NewMemoryBus(), zap.NewNop())
	factory := func(string) voice.Transport { return &fakeTransport{} }

	reg := NewRegistry(func(ctx context.Context, tenantID, tenantName string) (*Engine, error) {
		creations.Add(1)
		return New(ctx, Options{
			TenantID:   tenantID,
			TenantName: tenantName,
			Stores: store.Stores{
				Queue:  store.NewMemoryQueue(),
				Cache:  store.NewMemoryStreamCache(),
				Repeat: store.NewMemoryRepeat(),
			},
			Pool:      pool,
			Transport: factory(tenantID),
			Publisher: pub,
			Log:       zap.NewNop(),
		})
	})
	t.Cleanup(reg.Close)
	return reg
}

func TestRegistry_ConcurrentGetCreatesOnce(t *testing.T) {
	var creations atomic.Int64
	reg := testRegistry(t, &creations)

	const callers = 16
	engines := make([]*Engine, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eng, err := reg.Get(context.Background(), "tenant-1", "Tenant One")
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			engines[i] = eng
		}(i)
	}
	wg.Wait()

	if got := creations.Load(); got != 1 {
		t.Fatalf("expected exactly 1 creation, got %d", got)
	}
	for i := 1; i < callers; i++ {
		if engines[i] != engines[0] {
			t.Fatalf("caller %d got a different engine instance", i)
		}
	}
}

func TestRegistry_TenantsAreIsolated(t *testing.T) {
	var creations atomic.Int64
	reg := testRegistry(t, &creations)

	a, err := reg.Get(context.Background(), "tenant-a", "A")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	b, err := reg.Get(context.Background(), "tenant-b", "B")
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if a == b {
		t.Fatal("distinct tenants must get distinct engines")
	}
	if got := creations.Load(); got != 2 {
		t.Fatalf("expected 2 creations, got %d", got)
	}
}

func TestRegistry_PeekDoesNotCreate(t *testing.T) {
	var creations atomic.Int64
	reg := testRegistry(t, &creations)

	if _, ok := reg.Peek("tenant-1"); ok {
		t.Fatal("peek must not find an engine before first Get")
	}
	if got := creations.Load(); got != 0 {
		t.Fatalf("peek must not create, got %d creations", got)
	}

	if _, err := reg.Get(context.Background(), "tenant-1", "Tenant One"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := reg.Peek("tenant-1"); !ok {
		t.Fatal("peek must find the engine after Get")
	}
}

func TestRegistry_RemoveClosesEngine(t *testing.T) {
	var creations atomic.Int64
	reg := testRegistry(t, &creations)

	eng, err := reg.Get(context.Background(), "tenant-1", "Tenant One")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	reg.Remove("tenant-1")

	if _, _, _, err := eng.NowPlaying(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("removed engine must be closed, got %v", err)
	}

	// The next Get builds a fresh engine.
	if _, err := reg.Get(context.Background(), "tenant-1", "Tenant One"); err != nil {
		t.Fatalf("get after remove: %v", err)
	}
	if got := creations.Load(); got != 2 {
		t.Fatalf("expected a second creation after remove, got %d", got)
	}
}

func TestRegistry_FailedCreationRetries(t *testing.T) {
	boom := errors.New("store unavailable")
	fail := true
	var creations atomic.Int64
	pool := resolver.NewPool(&fakeResolver{}, 1, zap.NewNop())
	t.Cleanup(pool.Close)

	reg := NewRegistry(func(ctx context.Context, tenantID, tenantName string) (*Engine, error) {
		creations.Add(1)
		if fail {
			return nil, boom
		}
		return New(ctx, Options{
			TenantID: tenantID,
			Stores: store.Stores{
				Queue:  store.NewMemoryQueue(),
				Cache:  store.NewMemoryStreamCache(),
				Repeat: store.NewMemoryRepeat(),
			},
			Pool:      pool,
			Transport: &fakeTransport{},
			Publisher: events.NewPublisher(nil, zap.NewNop()),
			Log:       zap.NewNop(),
		})
	})
	t.Cleanup(reg.Close)

	if _, err := reg.Get(context.Background(), "tenant-1", ""); !errors.Is(err, boom) {
		t.Fatalf("expected creation error, got %v", err)
	}

	fail = false
	if _, err := reg.Get(context.Background(), "tenant-1", ""); err != nil {
		t.Fatalf("retry after failed creation: %v", err)
	}
	if got := creations.Load(); got != 2 {
		t.Fatalf("expected 2 creation attempts, got %d", got)
	}
}
