package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/eventbus"
	"github.com/example/jukebox-platform/internal/platform/events"
	"github.com/example/jukebox-platform/internal/platform/httpserver"
	"github.com/example/jukebox-platform/internal/platform/logging"
	"github.com/example/jukebox-platform/internal/platform/redisconn"
	"github.com/example/jukebox-platform/internal/platform/run"
	playerapi "github.com/example/jukebox-platform/services/player/internal/api"
	playerconfig "github.com/example/jukebox-platform/services/player/internal/config"
	"github.com/example/jukebox-platform/services/player/internal/engine"
	"github.com/example/jukebox-platform/services/player/internal/resolver"
	"github.com/example/jukebox-platform/services/player/internal/store"
	"github.com/example/jukebox-platform/services/player/internal/voice"
)

func main() {
	cfg := playerconfig.Load()

	log, err := logging.New("player", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisconn.Connect(context.Background(), redisconn.Options{URL: cfg.RedisURL})
		if err != nil {
			log.Error("redis connect", zap.Error(err))
			run.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
	}

	stores, err := store.New(rdb, cfg.IsProd)
	if err != nil {
		log.Error("stores", zap.Error(err))
		run.Exit(1)
	}
	if rdb == nil {
		log.Warn("REDIS_URL not set, using in-memory playback state (development only)")
	}

	bus, err := eventbus.New(rdb, cfg.NATSURL, cfg.IsProd)
	if err != nil {
		log.Error("event bus", zap.Error(err))
		run.Exit(1)
	}
	defer func() { _ = bus.Close() }()

	pub := events.NewPublisher(bus, log)

	pool := resolver.NewPool(resolver.NewYTDLP(cfg.ResolverBin, cfg.ResolverTimeout, log), cfg.ResolverWorkers, log)
	defer pool.Close()

	// Voice transport: the real gateway lives outside this service; the
	// simulated transport makes local and staging runs playable end to end.
	transports := voice.NewSimFactory(cfg.SimTrackDuration, nil, log)

	reg := engine.NewRegistry(func(ctx context.Context, tenantID, tenantName string) (*engine.Engine, error) {
		return engine.New(ctx, engine.Options{
			TenantID:   tenantID,
			TenantName: tenantName,
			Stores:     stores,
			Pool:       pool,
			Transport:  transports(tenantID),
			Publisher:  pub,
			Log:        log,
		})
	})
	defer reg.Close()

	r := chi.NewRouter()
	httpserver.SetupRouter(r)
	playerapi.Routes(r, reg, log)

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTPAddr,
		ServiceName: "player",
		Logger:      log,
		Router:      r,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	})
	run.Exit(code)
}
