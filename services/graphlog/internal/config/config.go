package config

import (
	"github.com/example/jukebox-platform/internal/platform/config"
)

type Config struct {
	LogLevel    string
	RedisURL    string
	NATSURL     string
	DatabaseURL string
	IsProd      bool
}

func Load() Config {
	return Config{
		LogLevel:    config.String("LOG_LEVEL", "info"),
		RedisURL:    config.String("REDIS_URL", ""),
		NATSURL:     config.String("NATS_URL", ""),
		DatabaseURL: config.String("DATABASE_URL", ""),
		IsProd:      config.IsProd(),
	}
}
