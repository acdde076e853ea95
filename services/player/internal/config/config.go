package config

import (
	"time"

	"github.com/example/jukebox-platform/internal/platform/config"
)

type Config struct {
	LogLevel string
	HTTPAddr string

	RedisURL string
	NATSURL  string

	ResolverBin     string
	ResolverTimeout time.Duration
	ResolverWorkers int

	// SimTrackDuration drives the development transport's fake stream length.
	SimTrackDuration time.Duration

	IsProd bool
}

func Load() Config {
	return Config{
		LogLevel:         config.String("LOG_LEVEL", "info"),
		HTTPAddr:         config.String("HTTP_ADDR", ":8080"),
		RedisURL:         config.String("REDIS_URL", ""),
		NATSURL:          config.String("NATS_URL", ""),
		ResolverBin:      config.String("RESOLVER_BIN", "yt-dlp"),
		ResolverTimeout:  config.Duration("RESOLVER_TIMEOUT", 30*time.Second),
		ResolverWorkers:  config.Int("RESOLVER_WORKERS", 4),
		SimTrackDuration: config.Duration("SIM_TRACK_DURATION", 5*time.Second),
		IsProd:           config.IsProd(),
	}
}
