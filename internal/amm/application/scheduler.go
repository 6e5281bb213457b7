package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	amm "argus-control/internal/amm/domain"
	"argus-control/internal/observability/metrics"
	orders "argus-control/internal/orders/domain"
	"argus-control/internal/protocol"
)

// MeasurementSubmitter issues measurement orders.
type MeasurementSubmitter interface {
	SubmitMeasurement(ctx context.Context, m protocol.MeasurementOrder) (*orders.Order, error)
}

// Scheduler evaluates active configurations once per tick and fires the
// ones whose window is due. Every firing attempt is recorded, failures
// included, so one window never produces a second order.
type Scheduler struct {
	repo      amm.Repository
	submitter MeasurementSubmitter
	logger    *logrus.Logger
	interval  time.Duration
	now       func() time.Time
}

// NewScheduler constructs a scheduler ticking once per minute.
func NewScheduler(repo amm.Repository, submitter MeasurementSubmitter, logger *logrus.Logger) (*Scheduler, error) {
	if repo == nil {
		return nil, errors.New("amm: nil repo")
	}
	if submitter == nil {
		return nil, errors.New("amm: nil submitter")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		repo:      repo,
		submitter: submitter,
		logger:    logger,
		interval:  time.Minute,
		now:       time.Now,
	}, nil
}

// SetInterval overrides the tick interval.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// Start runs the scheduler loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.RunOnce(ctx, now.UTC())
		}
	}
}

// RunOnce evaluates every active configuration at the given instant.
// Per-configuration failures are absorbed: one broken schedule never stalls
// the others.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	configs, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("could not list active configurations")
		return
	}
	for i := range configs {
		if err := s.evaluate(ctx, &configs[i], now); err != nil {
			metrics.IncSchedulerFiring("error")
			s.logger.WithFields(logrus.Fields{"config_id": configs[i].ID, "name": configs[i].Name}).
				WithError(err).Error("schedule evaluation failed")
		}
	}
}

func (s *Scheduler) evaluate(ctx context.Context, cfg *amm.Configuration, now time.Time) error {
	window, due := cfg.Timing.DueWindow(now)
	if !due {
		return nil
	}
	fired, err := s.repo.HasFired(ctx, cfg.ID, window.ID)
	if err != nil {
		return err
	}
	if fired {
		return nil
	}

	measurement := buildMeasurement(cfg, window)
	exec := &amm.Execution{
		ID:       uuid.NewString(),
		ConfigID: cfg.ID,
		WindowID: window.ID,
		FiredAt:  now,
	}

	order, err := s.submitter.SubmitMeasurement(ctx, measurement)
	if err != nil {
		// Record the failed attempt: the window is spent either way.
		exec.Error = err.Error()
		metrics.IncSchedulerFiring("failed")
		s.logger.WithFields(logrus.Fields{"config_id": cfg.ID, "window": window.ID}).
			WithError(err).Warn("measurement submit failed")
	} else {
		exec.OrderID = order.OrderID
		metrics.IncSchedulerFiring("submitted")
		s.logger.WithFields(logrus.Fields{"config_id": cfg.ID, "window": window.ID, "order_id": order.OrderID}).
			Info("measurement fired")
	}
	return s.repo.RecordExecution(ctx, exec)
}

// buildMeasurement resolves the order template against the firing window.
// Bounded windows become an explicit span on the order; an ALWAYS schedule
// fires an immediate measurement.
func buildMeasurement(cfg *amm.Configuration, window amm.Window) protocol.MeasurementOrder {
	m := cfg.Measurement
	if m.Name == "" {
		m.Name = cfg.Name
	}
	if cfg.Timing.Mode != amm.ModeAlways {
		m.TimeMode = "S"
		m.StartTime = window.Start
		m.StopTime = window.End
	}
	return m
}
