package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	orders "argus-control/internal/orders/domain"
)

// OrderRepository is an in-memory order store for tests and single-node
// setups without a database.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

// NewOrderRepository constructs an empty repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*orders.Order)}
}

// Create inserts an order.
func (r *OrderRepository) Create(_ context.Context, order *orders.Order) error {
	if order == nil {
		return errors.New("order repo: nil order")
	}
	if order.OrderID == "" {
		return errors.New("order repo: empty order id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.OrderID]; ok {
		return errors.New("order repo: duplicate order id " + order.OrderID)
	}
	clone := *order
	r.orders[order.OrderID] = &clone
	return nil
}

// GetByID fetches an order by id.
func (r *OrderRepository) GetByID(_ context.Context, orderID string) (*orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

// ListByStatus lists orders in a status, oldest first.
func (r *OrderRepository) ListByStatus(_ context.Context, status string, limit int) ([]orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []orders.Order
	for _, order := range r.orders {
		if status == "" || order.Status == status {
			result = append(result, *order)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkFinished closes an open order, recording the response that finished
// it. Exactly one caller wins; everyone else gets ErrInvalidTransition.
func (r *OrderRepository) MarkFinished(_ context.Context, orderID string, responseRef string, closedAt time.Time) error {
	return r.close(orderID, orders.StatusFinished, responseRef, "", closedAt)
}

// MarkFailed closes an open order with an error message.
func (r *OrderRepository) MarkFailed(_ context.Context, orderID string, errMsg string, closedAt time.Time) error {
	return r.close(orderID, orders.StatusFailed, "", errMsg, closedAt)
}

func (r *OrderRepository) close(orderID, status, responseRef, errMsg string, closedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	if order.Status != orders.StatusOpen {
		return orders.ErrInvalidTransition
	}
	order.Status = status
	order.ResponseRef = responseRef
	order.Error = errMsg
	order.ClosedAt = closedAt
	return nil
}

// MarkExpiredBefore expires open orders created before the cutoff and
// returns their ids.
func (r *OrderRepository) MarkExpiredBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for _, order := range r.orders {
		if order.Status == orders.StatusOpen && order.CreatedAt.Before(cutoff) {
			order.Status = orders.StatusExpired
			order.ClosedAt = cutoff
			expired = append(expired, order.OrderID)
		}
	}
	return expired, nil
}
