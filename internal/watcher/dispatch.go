package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"argus-control/internal/eventing"
	"argus-control/internal/exchange"
	"argus-control/internal/observability/metrics"
	ordersevents "argus-control/internal/orders/application/events"
	orders "argus-control/internal/orders/domain"
	"argus-control/internal/protocol"
	resultsevents "argus-control/internal/results/application/events"
	results "argus-control/internal/results/domain"
)

// EventPublisher is the minimal publish interface the dispatcher needs.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Dispatcher turns a settled Outbox file into a stored response and the
// matching order transition. Correlation uses the order id embedded in the
// document, never the filename.
type Dispatcher struct {
	orders orders.Repository
	store  results.Store
	bus    EventPublisher
	dirs   exchange.Dirs
	logger *logrus.Logger
	now    func() time.Time
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(repo orders.Repository, store results.Store, bus EventPublisher, dirs exchange.Dirs, logger *logrus.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("watcher: nil order repo")
	}
	if store == nil {
		return nil, errors.New("watcher: nil result store")
	}
	if bus == nil {
		return nil, errors.New("watcher: nil publisher")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{orders: repo, store: store, bus: bus, dirs: dirs, logger: logger, now: time.Now}, nil
}

// HandleFile processes one response file. Parse failures are absorbed: they
// are logged and published, the file stays in place, and the watcher keeps
// running. Successfully decoded files move into the Responses archive and
// the stored record keeps the archived path.
func (d *Dispatcher) HandleFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	response, err := protocol.Decode(data)
	if err != nil {
		var perr *protocol.ParseError
		if errors.As(err, &perr) {
			d.logger.WithFields(logrus.Fields{"file": path, "reason": perr.Reason}).
				Warn("outbox file did not parse, leaving in place")
			metrics.IncParseError()
			_ = d.bus.Publish(ctx, resultsevents.ResponseParseFailed{
				EventID:    eventing.NewEventID(),
				SourceFile: path,
				Reason:     perr.Reason,
				OccurredAt: d.now().UTC(),
			})
			return nil
		}
		return err
	}

	archived, err := d.dirs.ArchiveResponse(path)
	if err != nil {
		d.logger.WithField("file", path).WithError(err).Warn("could not archive processed file")
		archived = path
	}

	now := d.now().UTC()
	record := &results.Record{
		ID:         uuid.NewString(),
		OrderID:    response.OrderID,
		Type:       string(response.Type),
		ReceivedAt: now,
		SourceFile: archived,
		Response:   response,
	}
	if err := d.store.Save(ctx, record); err != nil {
		return err
	}
	metrics.IncResponseParsed(record.Type)

	_ = d.bus.Publish(ctx, resultsevents.ResponseStored{
		EventID:    eventing.NewEventID(),
		ResponseID: record.ID,
		OrderID:    record.OrderID,
		OrderType:  record.Type,
		SourceFile: archived,
		OccurredAt: now,
	})

	return d.correlate(ctx, record, response, now)
}

func (d *Dispatcher) correlate(ctx context.Context, record *results.Record, response *protocol.ResponseRecord, now time.Time) error {
	order, err := d.orders.GetByID(ctx, response.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		d.logger.WithFields(logrus.Fields{"order_id": response.OrderID, "file": record.SourceFile}).
			Info("unsolicited response stored without order transition")
		metrics.IncUnsolicited()
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case response.Failed():
		ie := response.InstrumentError
		err = d.orders.MarkFailed(ctx, order.OrderID, fmt.Sprintf("%s: %s", ie.Code, ie.Message), now)
		if err == nil {
			metrics.IncOrderClosed(orders.StatusFailed)
			_ = d.bus.Publish(ctx, ordersevents.OrderFailed{
				EventID:    eventing.NewEventID(),
				OrderID:    order.OrderID,
				OrderType:  order.Type,
				Code:       ie.Code,
				Message:    ie.Message,
				OccurredAt: now,
			})
		}
	case response.Finished():
		err = d.orders.MarkFinished(ctx, order.OrderID, record.ID, now)
		if err == nil {
			metrics.IncOrderClosed(orders.StatusFinished)
			_ = d.bus.Publish(ctx, ordersevents.OrderFinished{
				EventID:    eventing.NewEventID(),
				OrderID:    order.OrderID,
				OrderType:  order.Type,
				ResponseID: record.ID,
				OccurredAt: now,
			})
		}
	default:
		// Interim state: the response is stored but the order stays open
		// until the instrument reports Finished.
		return nil
	}

	if errors.Is(err, orders.ErrInvalidTransition) {
		d.logger.WithField("order_id", order.OrderID).Debug("duplicate response for closed order ignored")
		return nil
	}
	return err
}
