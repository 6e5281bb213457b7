package orders

import (
	"context"
	"time"
)

// Repository persists orders. Close operations are conditional on the order
// still being open: a second close returns ErrInvalidTransition so duplicate
// responses stay harmless.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]Order, error)
	MarkFinished(ctx context.Context, orderID string, responseRef string, closedAt time.Time) error
	MarkFailed(ctx context.Context, orderID string, errMsg string, closedAt time.Time) error
	MarkExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
