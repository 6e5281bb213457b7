package eventing

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// ErrInvalidEventType is returned by handlers that receive an unexpected
// payload type.
var ErrInvalidEventType = errors.New("eventing: invalid event type")

// EventHandler processes one delivered event.
type EventHandler func(ctx context.Context, event any) error

// TypeOf resolves the subscription key for an event type.
func TypeOf[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.String()
}

// InMemoryBus is a synchronous in-process event bus. Handlers run on the
// publisher's goroutine in subscription order.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for an event type key (see TypeOf).
func (b *InMemoryBus) Subscribe(eventType string, handler EventHandler) {
	if eventType == "" || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish wraps the event in an envelope and delivers it to every
// subscriber. The first handler error stops delivery and is returned.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return errors.New("eventing: nil event")
	}
	env, err := BuildEnvelope(event, Meta{CorrelationID: CorrelationIDFromContext(ctx)})
	if err != nil {
		return err
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[env.EventType]...)
	b.mu.RUnlock()

	ctx = WithEnvelope(ctx, env)
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
