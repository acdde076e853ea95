package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/jukebox-platform/internal/platform/eventbus"
	"github.com/example/jukebox-platform/internal/platform/logging"
	"github.com/example/jukebox-platform/internal/platform/redisconn"
	"github.com/example/jukebox-platform/internal/platform/run"
	graphconfig "github.com/example/jukebox-platform/services/graphlog/internal/config"
	"github.com/example/jukebox-platform/services/graphlog/internal/graph"
	"github.com/example/jukebox-platform/services/graphlog/internal/ingest"
)

func main() {
	cfg := graphconfig.Load()

	log, err := logging.New("graphlog", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pgcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Error("database url", zap.Error(err))
			run.Exit(1)
		}
		pgcfg.MaxConns = 10
		pgcfg.MaxConnIdleTime = 5 * time.Minute
		pool, err = pgxpool.NewWithConfig(ctx, pgcfg)
		if err != nil {
			log.Error("database open", zap.Error(err))
			run.Exit(1)
		}
		if err := pool.Ping(ctx); err != nil {
			log.Error("database ping", zap.Error(err))
			run.Exit(1)
		}
	}

	store, err := graph.New(pool, cfg.IsProd)
	if err != nil {
		log.Error("graph store", zap.Error(err))
		run.Exit(1)
	}
	defer store.Close()
	if pool == nil {
		log.Warn("DATABASE_URL not set, using in-memory graph (development only)")
	}

	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("graph schema", zap.Error(err))
		run.Exit(1)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisconn.Connect(ctx, redisconn.Options{URL: cfg.RedisURL})
		if err != nil {
			log.Error("redis connect", zap.Error(err))
			run.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
	}

	bus, err := eventbus.New(rdb, cfg.NATSURL, cfg.IsProd)
	if err != nil {
		log.Error("event bus", zap.Error(err))
		run.Exit(1)
	}
	defer func() { _ = bus.Close() }()

	ing := ingest.New(store, log)

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if err := ing.Run(ctx, bus); err != nil {
			return err
		}
		log.Info("graph ingestor subscribed")
		<-ctx.Done()
		return ctx.Err()
	})
	run.Exit(code)
}
