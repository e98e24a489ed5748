// Package config loads config/app.yaml, layers secrets from the environment
// (and an optional .env file) on top and validates the result.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"econ_dashboard/pkg/core/agent"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/edgar"
	"econ_dashboard/pkg/core/llm"
	"econ_dashboard/pkg/core/worldbank"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"
)

const DefaultPath = "config/app.yaml"

// Config is the whole application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Cache      cache.Config     `yaml:"cache"`
	WorldBank  worldbank.Config `yaml:"worldbank"`
	Edgar      edgar.Config     `yaml:"edgar"`
	LLM        agent.Config     `yaml:"llm"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	TopicsFile string           `yaml:"topics_file"`
	PromptsDir string           `yaml:"prompts_dir"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"` // debug, info, warn, error
	Pretty bool   `yaml:"pretty"`
}

type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// Standard 5-field cron specs.
	PurgeSpec  string        `yaml:"purge_spec"`
	WarmSpec   string        `yaml:"warm_spec"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// Default returns the configuration used when app.yaml leaves a field unset.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 120 * time.Second,
			CORSOrigins:    []string{"*"},
		},
		Log: LogConfig{Level: "info"},
		Cache: cache.Config{
			Backend:      "memory",
			TTL:          24 * time.Hour,
			Prefix:       "econ:",
			OnStoreError: string(cache.BypassOnStoreError),
			Redis:        cache.RedisConfig{Addr: "localhost:6379", ClientName: "econ-dashboard"},
			SQLite:       cache.SQLiteConfig{Path: "data/cache.db"},
		},
		LLM: agent.Config{
			ActiveProvider: agent.DefaultProvider,
			Timeout:        90 * time.Second,
		},
		Scheduler: SchedulerConfig{
			PurgeSpec:  "*/30 * * * *",
			WarmSpec:   "15 3 * * *",
			JobTimeout: 10 * time.Minute,
		},
		TopicsFile: "config/topics.hjson",
		PromptsDir: "resources/prompts",
	}
}

// Load reads path over the defaults. A missing file at DefaultPath is
// tolerated; any other missing path is an error. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv copies secrets and deployment overrides from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	if c.LLM.Providers == nil {
		c.LLM.Providers = make(map[string]llm.ProviderConfig)
	}
	setKey := func(provider string, vars ...string) {
		for _, v := range vars {
			if key := getenv(v); key != "" {
				pc := c.LLM.Providers[provider]
				pc.APIKey = key
				c.LLM.Providers[provider] = pc
				return
			}
		}
	}
	setKey("openai", "OPENAI_API_KEY")
	setKey("gemini", "GEMINI_API_KEY")
	setKey("deepseek", "DEEPSEEK_API_KEY")
	setKey("qwen", "DASHSCOPE_API_KEY", "QWEN_API_KEY")

	if v := getenv("LLM_PROVIDER"); v != "" {
		c.LLM.ActiveProvider = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		port := getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		if _, _, err := net.SplitHostPort(v); err == nil {
			c.Cache.Redis.Addr = v
		} else {
			c.Cache.Redis.Addr = net.JoinHostPort(v, port)
		}
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.Redis.DB = db
		}
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Cache.Postgres.URL = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("SEC_USER_AGENT"); v != "" {
		c.Edgar.UserAgent = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if _, err := cache.ParseFailureMode(c.Cache.OnStoreError); err != nil {
		errs = append(errs, fmt.Errorf("cache.on_store_error: %w", err))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	case "postgres":
		if c.Cache.Postgres.URL == "" {
			errs = append(errs, errors.New("cache.postgres.url (or DATABASE_URL) is required for the postgres backend"))
		}
	case "sqlite":
		if c.Cache.SQLite.Path == "" {
			errs = append(errs, errors.New("cache.sqlite.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of memory, redis, postgres, sqlite", c.Cache.Backend))
	}

	if c.WorldBank.MaxConcurrency < 0 {
		errs = append(errs, errors.New("worldbank.max_concurrency must not be negative"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}

	if c.Scheduler.Enabled {
		for name, spec := range map[string]string{"purge_spec": c.Scheduler.PurgeSpec, "warm_spec": c.Scheduler.WarmSpec} {
			if spec == "" {
				continue
			}
			if _, err := cron.ParseStandard(spec); err != nil {
				errs = append(errs, fmt.Errorf("scheduler.%s: %w", name, err))
			}
		}
	}

	if c.TopicsFile == "" {
		errs = append(errs, errors.New("topics_file is required"))
	}
	return errors.Join(errs...)
}

// FailureMode returns the validated cache failure mode.
func (c *Config) FailureMode() cache.FailureMode {
	m, err := cache.ParseFailureMode(c.Cache.OnStoreError)
	if err != nil {
		return cache.BypassOnStoreError
	}
	return m
}
