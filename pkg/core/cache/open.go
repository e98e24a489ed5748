package cache

import (
	"context"
	"fmt"
	"time"
)

// Config selects and configures the cache backend.
type Config struct {
	Backend      string         `yaml:"backend"` // memory | redis | postgres | sqlite
	TTL          time.Duration  `yaml:"ttl"`
	Prefix       string         `yaml:"prefix"`
	OnStoreError string         `yaml:"on_store_error"` // bypass | fail
	Redis        RedisConfig    `yaml:"redis"`
	Postgres     PostgresConfig `yaml:"postgres"`
	SQLite       SQLiteConfig   `yaml:"sqlite"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	ClientName string `yaml:"client_name"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Open constructs the configured store. The caller owns it and must Close it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis), nil
	case "postgres":
		s, err := NewPostgresStore(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "cache.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
