package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gxliu28/gas-bot/internal/config"
	"github.com/gxliu28/gas-bot/internal/metrics"
	"github.com/gxliu28/gas-bot/internal/runlog"
)

// ErrMissingToken aborts a run before any processing when the messaging
// platform credential is absent.
var ErrMissingToken = errors.New("slack bot token is not configured")

// Summary reports the outcome of one run.
type Summary struct {
	RunID    string        `json:"run_id"`
	Sent     int           `json:"sent"`
	Targets  int           `json:"targets"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Runner iterates the enabled targets of a configuration, aggregates
// their run-log lines in target order and flushes them once at the end.
type Runner struct {
	cfg       *config.Config
	processor *Processor
	logStore  runlog.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// RunnerOption configures the Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRunnerMetrics attaches run metrics.
func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithRunnerClock overrides the wall clock (for testing).
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner over a processor and a run-log store.
func NewRunner(cfg *config.Config, processor *Processor, logStore runlog.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:       cfg,
		processor: processor,
		logStore:  logStore,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one reminder pass: all enabled targets, sequentially, with
// a single run-wide reference time. Only the missing-credential
// precondition aborts; every other failure is contained at the row or
// target level.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.cfg.Slack.BotToken == "" {
		return nil, ErrMissingToken
	}

	tz := r.cfg.Timezone
	if tz == "" {
		tz = config.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)
	started := r.now()
	now := started.In(loc)

	var lines []string
	targets := 0
	for _, target := range r.cfg.Targets {
		if !target.Enable {
			continue
		}
		targets++

		targetLines, err := r.processor.Process(ctx, target, now, loc)
		if err != nil {
			logger.Error("target processing failed",
				"target", target.DisplayName(),
				"error", err,
			)
			continue
		}
		lines = append(lines, targetLines...)
	}

	if err := r.logStore.Append(ctx, lines); err != nil {
		logger.Error("failed to persist run log", "error", err)
	}

	duration := r.now().Sub(started)
	r.metrics.ObserveRun(started, duration)

	logger.Info("reminder run complete",
		"sent", len(lines),
		"targets", targets,
		"duration", duration,
	)

	return &Summary{
		RunID:    runID,
		Sent:     len(lines),
		Targets:  targets,
		Started:  started,
		Duration: duration,
	}, nil
}
