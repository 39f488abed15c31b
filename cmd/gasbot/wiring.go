package main

import (
	"fmt"
	"log/slog"

	"github.com/gxliu28/gas-bot/internal/adapters/slack"
	"github.com/gxliu28/gas-bot/internal/config"
	"github.com/gxliu28/gas-bot/internal/logging"
	"github.com/gxliu28/gas-bot/internal/metrics"
	"github.com/gxliu28/gas-bot/internal/reminder"
	"github.com/gxliu28/gas-bot/internal/runlog"
	"github.com/gxliu28/gas-bot/internal/sheets"
)

// buildRunner assembles the run pipeline from configuration. The returned
// cleanup function closes whatever stores own resources.
func buildRunner(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*reminder.Runner, func(), error) {
	slackClient := slack.NewClient(cfg.Slack.BotToken)
	resolver := slack.NewResolver(slackClient, logger)
	notifier := slack.NewNotifier(slackClient)

	var googleOpts []sheets.GoogleOption
	if cfg.Google.APIKey != "" {
		googleOpts = append(googleOpts, sheets.WithAPIKey(cfg.Google.APIKey))
	}

	router := sheets.NewRouter()
	router.Register(sheets.KindGoogle, sheets.NewGoogleClient(cfg.Google.AccessToken, googleOpts...))
	router.Register(sheets.KindCSV, sheets.NewCSVSource(""))
	router.Register(sheets.KindSQLite, sheets.NewSQLiteSource())

	var stores runlog.MultiStore
	cleanup := func() {}
	if cfg.RunLog.Path != "" {
		stores = append(stores, runlog.NewFileStore(cfg.RunLog.Path))
	}
	if cfg.RunLog.BoltPath != "" {
		boltStore, err := runlog.NewBoltStore(cfg.RunLog.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open run-log store: %w", err)
		}
		stores = append(stores, boltStore)
		cleanup = func() { _ = boltStore.Close() }
	}

	var store runlog.Store = stores
	if len(stores) == 0 {
		store = runlog.Discard{}
	}

	processor := reminder.NewProcessor(router, resolver, notifier,
		reminder.WithLogger(logger),
		reminder.WithMetrics(m),
	)
	runner := reminder.NewRunner(cfg, processor, store,
		reminder.WithRunnerLogger(logger),
		reminder.WithRunnerMetrics(m),
	)
	return runner, cleanup, nil
}

// loadConfig loads and validates the configuration, then initializes
// logging from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Init(cfg.Logging); err != nil {
		return nil, nil, err
	}
	logger := logging.Get()
	slog.SetDefault(logger)
	return cfg, logger, nil
}
