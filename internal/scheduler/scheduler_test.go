package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart_ValidSchedule(t *testing.T) {
	s := New("0 9 * * *", "Asia/Tokyo", func(ctx context.Context) {}, quietLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	if s.NextRun().IsZero() {
		t.Error("NextRun() should be set after Start")
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New("not a cron expr", "UTC", func(ctx context.Context) {}, quietLogger())

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStart_Idempotent(t *testing.T) {
	s := New("@hourly", "UTC", func(ctx context.Context) {}, quietLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
}

func TestInvalidTimezoneFallsBackToUTC(t *testing.T) {
	s := New("@daily", "Not/AZone", func(ctx context.Context) {}, quietLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()
}

func TestStop_WithoutStart(t *testing.T) {
	s := New("@daily", "UTC", func(ctx context.Context) {}, quietLogger())
	s.Stop() // must not panic or block

	if !s.NextRun().Equal(time.Time{}) {
		t.Error("NextRun() should be zero when not running")
	}
}
