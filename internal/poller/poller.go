// Package poller keeps the cached system state fresh by issuing periodic
// GSS orders when the newest stored snapshot grows stale.
package poller

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"argus-control/internal/observability/metrics"
	orders "argus-control/internal/orders/domain"
	"argus-control/internal/protocol"
	results "argus-control/internal/results/domain"
)

const (
	// DefaultInterval is how often the poller checks snapshot age.
	DefaultInterval = time.Minute
	// DefaultThreshold is the maximum snapshot age before a refresh order
	// is issued.
	DefaultThreshold = 5 * time.Minute
)

// StateSubmitter issues a system state query order.
type StateSubmitter interface {
	SubmitSystemStateQuery(ctx context.Context) (*orders.Order, error)
}

// OrderLister reports orders in a given status.
type OrderLister interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]orders.Order, error)
}

// Poller drives the GSS refresh loop.
type Poller struct {
	store     results.Store
	submitter StateSubmitter
	lister    OrderLister
	logger    *logrus.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

// New constructs a poller over the given response store and order service.
func New(store results.Store, submitter StateSubmitter, lister OrderLister, logger *logrus.Logger) (*Poller, error) {
	if store == nil || submitter == nil || lister == nil {
		return nil, errors.New("poller: nil dependency")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Poller{
		store:     store,
		submitter: submitter,
		lister:    lister,
		logger:    logger,
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
		now:       time.Now,
	}, nil
}

// SetInterval overrides how often the loop runs.
func (p *Poller) SetInterval(interval time.Duration) {
	if interval > 0 {
		p.interval = interval
	}
}

// SetThreshold overrides the maximum snapshot age.
func (p *Poller) SetThreshold(threshold time.Duration) {
	if threshold > 0 {
		p.threshold = threshold
	}
}

// Start runs the refresh loop until the context is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.WithError(err).Warn("system state refresh failed")
			}
		}
	}
}

// RunOnce checks snapshot freshness and issues a GSS order when needed.
// A refresh is skipped while a previous state query is still open, so a
// slow instrument never accumulates a backlog of identical orders.
func (p *Poller) RunOnce(ctx context.Context) error {
	latest, err := p.store.Latest(ctx, string(protocol.OrderTypeSystemState))
	if err != nil && !errors.Is(err, results.ErrNotFound) {
		metrics.IncPollerRun("error")
		return err
	}
	if latest != nil && p.now().UTC().Sub(latest.ReceivedAt) < p.threshold {
		metrics.IncPollerRun("fresh")
		return nil
	}

	pending, err := p.hasOpenStateQuery(ctx)
	if err != nil {
		metrics.IncPollerRun("error")
		return err
	}
	if pending {
		metrics.IncPollerRun("pending")
		return nil
	}

	order, err := p.submitter.SubmitSystemStateQuery(ctx)
	if err != nil {
		metrics.IncPollerRun("error")
		return err
	}
	metrics.IncPollerRun("submitted")
	p.logger.WithField("order_id", order.OrderID).Info("submitted system state refresh")
	return nil
}

func (p *Poller) hasOpenStateQuery(ctx context.Context) (bool, error) {
	open, err := p.lister.ListByStatus(ctx, orders.StatusOpen, 0)
	if err != nil {
		return false, err
	}
	for _, o := range open {
		if strings.EqualFold(o.Type, string(protocol.OrderTypeSystemState)) {
			return true, nil
		}
	}
	return false, nil
}
