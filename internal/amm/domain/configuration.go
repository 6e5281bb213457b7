package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"argus-control/internal/protocol"
)

// Configuration statuses. Only active configurations are evaluated by the
// scheduler.
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusPaused = "paused"
)

var (
	// ErrNotFound is returned when no configuration exists for an id.
	ErrNotFound = errors.New("amm: configuration not found")
)

// Configuration is an automatic measurement: a measurement order template
// plus the timing that decides when it fires.
type Configuration struct {
	ID          string
	Name        string
	Status      string
	Measurement protocol.MeasurementOrder
	Timing      Timing
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// LastFiredAt is the most recent execution, zero until the first firing.
	LastFiredAt time.Time
}

// Validate checks the configuration top to bottom.
func (c *Configuration) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("amm: name required")
	}
	switch c.Status {
	case StatusDraft, StatusActive, StatusPaused:
	default:
		return fmt.Errorf("amm: unknown status %q", c.Status)
	}
	if err := c.Measurement.Validate(); err != nil {
		return err
	}
	return c.Timing.Validate()
}

// Execution is one firing of a configuration, successful or not.
type Execution struct {
	ID       string
	ConfigID string
	WindowID string
	OrderID  string
	FiredAt  time.Time
	Error    string
}

// Repository persists configurations and their execution history. HasFired
// is the at-most-once guard: one (config, window) pair fires a single order
// no matter how often the schedule is re-evaluated.
type Repository interface {
	Create(ctx context.Context, cfg *Configuration) error
	Update(ctx context.Context, cfg *Configuration) error
	GetByID(ctx context.Context, id string) (*Configuration, error)
	List(ctx context.Context) ([]Configuration, error)
	ListActive(ctx context.Context) ([]Configuration, error)
	Delete(ctx context.Context, id string) error

	RecordExecution(ctx context.Context, exec *Execution) error
	HasFired(ctx context.Context, configID, windowID string) (bool, error)
	ListExecutions(ctx context.Context, configID string, limit int) ([]Execution, error)
}
