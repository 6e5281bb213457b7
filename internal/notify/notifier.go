// Package notify pushes order failure alerts to an external webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"argus-control/internal/eventing"
	ordersevents "argus-control/internal/orders/application/events"
)

// AlertMessage describes one order that needs operator attention.
type AlertMessage struct {
	OrderID    string
	OrderType  string
	Code       string
	Message    string
	OccurredAt time.Time
}

// Notifier delivers alert messages.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}

func formatAlertMessage(msg AlertMessage) string {
	when := msg.OccurredAt.UTC().Format(time.RFC3339)
	if msg.Code != "" {
		return fmt.Sprintf("[argus] order %s (%s) failed at %s: %s: %s", msg.OrderID, msg.OrderType, when, msg.Code, msg.Message)
	}
	if msg.Message != "" {
		return fmt.Sprintf("[argus] order %s (%s) failed at %s: %s", msg.OrderID, msg.OrderType, when, msg.Message)
	}
	return fmt.Sprintf("[argus] order %s expired at %s without a response", msg.OrderID, when)
}

// WireBus forwards order failures and expiries to the notifier. Delivery
// errors are logged, never propagated: a dead webhook must not fail the
// response dispatch that triggered it.
func WireBus(bus *eventing.InMemoryBus, notifier Notifier, logger *logrus.Logger) {
	if bus == nil || notifier == nil {
		return
	}
	if logger == nil {
		logger = logrus.New()
	}

	bus.Subscribe(eventing.TypeOf[ordersevents.OrderFailed](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderFailed)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		msg := AlertMessage{
			OrderID:    evt.OrderID,
			OrderType:  evt.OrderType,
			Code:       evt.Code,
			Message:    evt.Message,
			OccurredAt: evt.OccurredAt,
		}
		if err := notifier.Notify(ctx, msg); err != nil {
			logger.WithError(err).WithField("order_id", evt.OrderID).Warn("alert delivery failed")
		}
		return nil
	})

	bus.Subscribe(eventing.TypeOf[ordersevents.OrderExpired](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderExpired)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		msg := AlertMessage{OrderID: evt.OrderID, OccurredAt: evt.OccurredAt}
		if err := notifier.Notify(ctx, msg); err != nil {
			logger.WithError(err).WithField("order_id", evt.OrderID).Warn("alert delivery failed")
		}
		return nil
	})
}
