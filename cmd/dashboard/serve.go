package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"econ_dashboard/pkg/api/config"
	"econ_dashboard/pkg/api/finance"
	"econ_dashboard/pkg/api/pages"
	"econ_dashboard/pkg/api/server"
	"econ_dashboard/pkg/api/worldbank"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/chart"
	"econ_dashboard/pkg/core/scheduler"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard and JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pagesHandler, err := pages.NewHandler(a.controller, a.log)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:           a.cfg.Server.Addr,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		Log:            a.log,
		Pages:          pagesHandler,
		WorldBank:      worldbank.NewHandler(a.worldBank, chart.NewWriter(a.worldBank, a.log), a.topics, a.log),
		Finance:        finance.NewHandler(a.summaries, a.log),
		Settings:       config.NewHandler(a.agents, a.log),
		Store:          a.store,
	})

	if a.cfg.Scheduler.Enabled {
		sched := scheduler.New(a.cfg.Scheduler.JobTimeout, a.log)
		if p, ok := a.store.(cache.Purger); ok {
			if err := sched.AddJob(a.cfg.Scheduler.PurgeSpec, scheduler.NewPurgeJob(p, a.log)); err != nil {
				return err
			}
		}
		if err := sched.AddJob(a.cfg.Scheduler.WarmSpec, scheduler.NewWarmJob(a.worldBank, a.topics, a.log)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
