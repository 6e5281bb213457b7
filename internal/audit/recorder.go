package audit

import (
	"context"
	"encoding/json"

	"argus-control/internal/eventing"
	ordersevents "argus-control/internal/orders/application/events"
)

// instrumentActor marks entries caused by instrument responses rather than
// an API caller.
const instrumentActor = "instrument"

// WireBus records order lifecycle events as audit entries.
func WireBus(bus *eventing.InMemoryBus, logger Logger) {
	if bus == nil || logger == nil {
		return
	}

	bus.Subscribe(eventing.TypeOf[ordersevents.OrderSubmitted](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderSubmitted)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		meta, _ := json.Marshal(map[string]string{"order_type": evt.OrderType, "file_path": evt.FilePath})
		return logger.Log(ctx, Entry{
			Actor:        evt.CreatedBy,
			Action:       "order.submitted",
			ResourceType: "order",
			ResourceID:   evt.OrderID,
			Metadata:     meta,
			CreatedAt:    evt.OccurredAt,
		})
	})

	bus.Subscribe(eventing.TypeOf[ordersevents.OrderFinished](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderFinished)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		meta, _ := json.Marshal(map[string]string{"response_id": evt.ResponseID})
		return logger.Log(ctx, Entry{
			Actor:        instrumentActor,
			Action:       "order.finished",
			ResourceType: "order",
			ResourceID:   evt.OrderID,
			Metadata:     meta,
			CreatedAt:    evt.OccurredAt,
		})
	})

	bus.Subscribe(eventing.TypeOf[ordersevents.OrderFailed](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderFailed)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		meta, _ := json.Marshal(map[string]string{"code": evt.Code, "message": evt.Message})
		return logger.Log(ctx, Entry{
			Actor:        instrumentActor,
			Action:       "order.failed",
			ResourceType: "order",
			ResourceID:   evt.OrderID,
			Metadata:     meta,
			CreatedAt:    evt.OccurredAt,
		})
	})
}
