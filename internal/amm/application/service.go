package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	amm "argus-control/internal/amm/domain"
	"argus-control/internal/auth"
	"argus-control/internal/protocol"
)

// Service manages measurement configurations.
type Service struct {
	repo amm.Repository
	now  func() time.Time
}

// NewService constructs a configuration service.
func NewService(repo amm.Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("amm: nil repo")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Create stores a new configuration in draft status.
func (s *Service) Create(ctx context.Context, name string, measurement protocol.MeasurementOrder, timing amm.Timing) (*amm.Configuration, error) {
	now := s.now().UTC()
	cfg := &amm.Configuration{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      amm.StatusDraft,
		Measurement: measurement,
		Timing:      timing,
		CreatedBy:   auth.UserFromContext(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update replaces the measurement and timing of a configuration. The status
// is kept; pausing and resuming go through SetStatus.
func (s *Service) Update(ctx context.Context, id, name string, measurement protocol.MeasurementOrder, timing amm.Timing) (*amm.Configuration, error) {
	cfg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg.Name = name
	cfg.Measurement = measurement
	cfg.Timing = timing
	cfg.UpdatedAt = s.now().UTC()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetStatus moves a configuration between draft, active and paused.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*amm.Configuration, error) {
	switch status {
	case amm.StatusDraft, amm.StatusActive, amm.StatusPaused:
	default:
		return nil, fmt.Errorf("amm: unknown status %q", status)
	}
	cfg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg.Status = status
	cfg.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get fetches one configuration.
func (s *Service) Get(ctx context.Context, id string) (*amm.Configuration, error) {
	if id == "" {
		return nil, errors.New("amm: id required")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns all configurations.
func (s *Service) List(ctx context.Context) ([]amm.Configuration, error) {
	return s.repo.List(ctx)
}

// Delete removes a configuration and its execution history.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("amm: id required")
	}
	return s.repo.Delete(ctx, id)
}

// History returns the newest executions of a configuration.
func (s *Service) History(ctx context.Context, id string, limit int) ([]amm.Execution, error) {
	if id == "" {
		return nil, errors.New("amm: id required")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListExecutions(ctx, id, limit)
}
