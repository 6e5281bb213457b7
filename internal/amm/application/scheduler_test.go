package application

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	amm "argus-control/internal/amm/domain"
	ammmemory "argus-control/internal/amm/infrastructure/memory"
	orders "argus-control/internal/orders/domain"
	"argus-control/internal/protocol"
)

type stubSubmitter struct {
	calls []protocol.MeasurementOrder
	err   error
}

func (s *stubSubmitter) SubmitMeasurement(_ context.Context, m protocol.MeasurementOrder) (*orders.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, m)
	return &orders.Order{OrderID: "AMM240305090000000", Type: "OR", Status: orders.StatusOpen}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func measurementTemplate() protocol.MeasurementOrder {
	return protocol.MeasurementOrder{
		Task:       "FFM",
		Station:    "MOB-01",
		FreqMode:   protocol.FreqModeSingle,
		FreqSingle: 94700000,
	}
}

func activeConfig(t *testing.T, repo *ammmemory.ConfigRepository, timing amm.Timing) *amm.Configuration {
	t.Helper()
	cfg := &amm.Configuration{
		ID:          "cfg-1",
		Name:        "FM monitor",
		Status:      amm.StatusActive,
		Measurement: measurementTemplate(),
		Timing:      timing,
		CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return cfg
}

func periodicTiming() amm.Timing {
	return amm.Timing{
		Mode:       amm.ModePeriodic,
		Weekdays:   []time.Weekday{time.Tuesday},
		DailyStart: "08:00",
		DailyEnd:   "10:00",
	}
}

func newTestScheduler(t *testing.T, repo *ammmemory.ConfigRepository, submitter *stubSubmitter) *Scheduler {
	t.Helper()
	sched, err := NewScheduler(repo, submitter, quietLogger())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return sched
}

func TestSchedulerFiresDueWindowOnce(t *testing.T) {
	repo := ammmemory.NewConfigRepository()
	submitter := &stubSubmitter{}
	sched := newTestScheduler(t, repo, submitter)
	cfg := activeConfig(t, repo, periodicTiming())
	ctx := context.Background()

	// 2024-03-05 09:00 UTC is a Tuesday inside the daily window.
	tick := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	sched.RunOnce(ctx, tick)

	if len(submitter.calls) != 1 {
		t.Fatalf("submissions = %d, want 1", len(submitter.calls))
	}
	m := submitter.calls[0]
	if m.TimeMode != "S" {
		t.Fatalf("time mode = %q", m.TimeMode)
	}
	if !m.StartTime.Equal(time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)) ||
		!m.StopTime.Equal(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("window bounds = %v..%v", m.StartTime, m.StopTime)
	}

	history, _ := repo.ListExecutions(ctx, cfg.ID, 0)
	if len(history) != 1 || history[0].OrderID != "AMM240305090000000" || history[0].Error != "" {
		t.Fatalf("history = %+v", history)
	}
	fired, _ := repo.GetByID(ctx, cfg.ID)
	if !fired.LastFiredAt.Equal(history[0].FiredAt) {
		t.Fatalf("last fired = %v, want %v", fired.LastFiredAt, history[0].FiredAt)
	}
}

func TestSchedulerDoubleTickIsIdempotent(t *testing.T) {
	repo := ammmemory.NewConfigRepository()
	submitter := &stubSubmitter{}
	sched := newTestScheduler(t, repo, submitter)
	cfg := activeConfig(t, repo, periodicTiming())
	ctx := context.Background()

	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 1, 0, 0, time.UTC))
	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 59, 0, 0, time.UTC))

	if len(submitter.calls) != 1 {
		t.Fatalf("submissions = %d, want exactly 1 per window", len(submitter.calls))
	}
	history, _ := repo.ListExecutions(ctx, cfg.ID, 0)
	if len(history) != 1 {
		t.Fatalf("history = %+v", history)
	}
}

func TestSchedulerSkipsInactiveAndUndueConfigs(t *testing.T) {
	repo := ammmemory.NewConfigRepository()
	submitter := &stubSubmitter{}
	sched := newTestScheduler(t, repo, submitter)
	ctx := context.Background()

	paused := &amm.Configuration{
		ID: "cfg-paused", Name: "paused", Status: amm.StatusPaused,
		Measurement: measurementTemplate(), Timing: periodicTiming(),
	}
	if err := repo.Create(ctx, paused); err != nil {
		t.Fatalf("Create: %v", err)
	}
	activeConfig(t, repo, periodicTiming())

	// Tuesday, but outside the daily window.
	sched.RunOnce(ctx, time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC))
	if len(submitter.calls) != 0 {
		t.Fatalf("submissions = %d, want 0", len(submitter.calls))
	}
}

func TestSchedulerRecordsFailedFiring(t *testing.T) {
	repo := ammmemory.NewConfigRepository()
	submitter := &stubSubmitter{err: errors.New("inbox not writable")}
	sched := newTestScheduler(t, repo, submitter)
	cfg := activeConfig(t, repo, periodicTiming())
	ctx := context.Background()

	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	history, _ := repo.ListExecutions(ctx, cfg.ID, 0)
	if len(history) != 1 || history[0].Error == "" || history[0].OrderID != "" {
		t.Fatalf("history = %+v", history)
	}

	// The window is spent even though the submit failed.
	submitter.err = nil
	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 5, 0, 0, time.UTC))
	if len(submitter.calls) != 0 {
		t.Fatalf("failed window refired")
	}
}

func TestSchedulerAlwaysModeLeavesImmediateTiming(t *testing.T) {
	repo := ammmemory.NewConfigRepository()
	submitter := &stubSubmitter{}
	sched := newTestScheduler(t, repo, submitter)
	activeConfig(t, repo, amm.Timing{Mode: amm.ModeAlways, Refire: 5 * time.Minute})
	ctx := context.Background()

	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 2, 0, 0, time.UTC))
	if len(submitter.calls) != 1 {
		t.Fatalf("submissions = %d", len(submitter.calls))
	}
	if submitter.calls[0].TimeMode != "" {
		t.Fatalf("always mode set a time window: %q", submitter.calls[0].TimeMode)
	}

	// Next refire bucket fires again.
	sched.RunOnce(ctx, time.Date(2024, 3, 5, 9, 7, 0, 0, time.UTC))
	if len(submitter.calls) != 2 {
		t.Fatalf("submissions = %d, want 2", len(submitter.calls))
	}
}
