package main

import (
	"context"
	"fmt"
	"os"

	"econ_dashboard/pkg/core/agent"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/chart"
	"econ_dashboard/pkg/core/config"
	"econ_dashboard/pkg/core/dashboard"
	"econ_dashboard/pkg/core/edgar"
	"econ_dashboard/pkg/core/finance"
	"econ_dashboard/pkg/core/logger"
	"econ_dashboard/pkg/core/prompt"
	"econ_dashboard/pkg/core/topics"
	"econ_dashboard/pkg/core/worldbank"

	"github.com/rs/zerolog"
)

// app holds every long-lived component. The cache store is opened once here
// and handed to each client through a shared accessor.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      cache.Store
	worldBank  *worldbank.Client
	edgar      *edgar.Client
	topics     *topics.Set
	agents     *agent.Manager
	summaries  *finance.Generator
	controller *dashboard.Controller
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, os.Stderr)
	logger.SetGlobalLogger(log)

	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	if err := store.Ping(ctx); err != nil {
		// Not fatal: the accessor's failure mode decides what happens per call.
		log.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("Cache store is unreachable")
	}
	acc := cache.NewAccessor(store, cfg.Cache.TTL, cfg.Cache.Prefix, cfg.FailureMode(), log)

	set, err := topics.Load(cfg.TopicsFile)
	if err != nil {
		log.Error().Err(err).Str("file", cfg.TopicsFile).Msg("Failed to load topics, indicator sections will show an error")
		set = topics.Failed(err)
	}

	prompts := prompt.NewRegistry()
	if err := prompts.LoadDirectory(cfg.PromptsDir, log); err != nil {
		log.Warn().Err(err).Str("dir", cfg.PromptsDir).Msg("Failed to load prompt library, using built-in prompts")
	}

	a := &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		worldBank: worldbank.NewClient(cfg.WorldBank, acc, log),
		edgar:     edgar.NewClient(cfg.Edgar, acc, log),
		topics:    set,
		agents:    agent.NewManager(cfg.LLM, log),
	}
	a.summaries = finance.NewGenerator(a.edgar, a.agents, prompts, acc, log)
	a.controller = dashboard.NewController(a.worldBank, chart.NewWriter(a.worldBank, log), set, a.summaries, log)

	log.Info().
		Str("cache", cfg.Cache.Backend).
		Str("llm", a.agents.GetActiveProvider()).
		Int("topics", set.Len()).
		Int("prompts", prompts.Count()).
		Msg("Application initialized")
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close cache store")
	}
}
