package main

import (
	"log/slog"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/config"
)

type apiConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RewardsConfig   string        `env:"REWARDS_CONFIG" envDefault:"configs/rewards.toml"`
	Postgres        config.PostgresConfig
}
