package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gxliu28/gas-bot/internal/metrics"
	"github.com/gxliu28/gas-bot/internal/reminder"
	"github.com/gxliu28/gas-bot/internal/scheduler"
	"github.com/gxliu28/gas-bot/internal/server"
)

var errRunInProgress = errors.New("a reminder run is already in progress")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as a daemon: cron-scheduled passes plus an HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			m := metrics.New()
			runner, cleanup, err := buildRunner(cfg, logger, m)
			if err != nil {
				return err
			}
			defer cleanup()

			// Runs never overlap; a trigger while one is active is refused.
			var runMu sync.Mutex
			trigger := func(ctx context.Context) (*reminder.Summary, error) {
				if !runMu.TryLock() {
					return nil, errRunInProgress
				}
				defer runMu.Unlock()
				return runner.Run(ctx)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Schedule.Enabled {
				sched := scheduler.New(cfg.Schedule.Cron, cfg.Timezone, func(ctx context.Context) {
					if _, err := trigger(ctx); err != nil {
						logger.Error("scheduled run failed", "error", err)
					}
				}, logger)
				if err := sched.Start(ctx); err != nil {
					return err
				}
				defer sched.Stop()
			}

			srv := server.New(cfg.Server.Addr, m.Handler(), trigger, logger)

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- srv.Start()
			}()

			select {
			case err := <-serveErr:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
