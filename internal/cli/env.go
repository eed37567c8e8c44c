package cli

import (
	"context"

	"fastclick/internal/config"
	"fastclick/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Env is what a command needs to reach the store. Redis is nil when it is
// unreachable; commands that only need the database still run.
type Env struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
}

// EnvOpener connects an Env. Tests substitute one backed by SQLite.
type EnvOpener func(ctx context.Context) (*Env, error)

// OpenFromConfig loads the server configuration and connects to Postgres and,
// best effort, Redis.
func OpenFromConfig(_ context.Context) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, false)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: cfg, DB: db}
	if rdb, err := infra.NewRedis(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; statement locks disabled")
	} else {
		env.Redis = rdb
	}
	return env, nil
}

func (e *Env) Close() {
	if sqlDB, err := e.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
}
