package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	orders "argus-control/internal/orders/domain"
)

// OrderRepository is a Postgres implementation of the order store.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository constructs a repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order.
func (r *OrderRepository) Create(ctx context.Context, order *orders.Order) error {
	if r == nil || r.db == nil {
		return errors.New("order repo: nil db")
	}
	if order == nil {
		return errors.New("order repo: nil order")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO instrument_orders (
	order_id, order_type, order_name, status, created_by, file_path, document, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, order.OrderID, order.Type, order.Name, order.Status, order.CreatedBy, order.FilePath, order.Document, order.CreatedAt)
	return err
}

// GetByID fetches an order by id.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*orders.Order, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("order repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT order_id, order_type, order_name, status, created_by, file_path, document, created_at, closed_at, response_ref, error
FROM instrument_orders
WHERE order_id = $1
LIMIT 1`, orderID)
	return scanOrder(row)
}

// ListByStatus lists orders in a status, oldest first.
func (r *OrderRepository) ListByStatus(ctx context.Context, status string, limit int) ([]orders.Order, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("order repo: nil db")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id, order_type, order_name, status, created_by, file_path, document, created_at, closed_at, response_ref, error
FROM instrument_orders
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orders.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	return result, rows.Err()
}

// MarkFinished closes an open order, recording the response that finished
// it. The WHERE clause carries the open-status guard, so a lost race
// surfaces as ErrInvalidTransition.
func (r *OrderRepository) MarkFinished(ctx context.Context, orderID string, responseRef string, closedAt time.Time) error {
	return r.close(ctx, orderID, orders.StatusFinished, responseRef, "", closedAt)
}

// MarkFailed closes an open order with an error message.
func (r *OrderRepository) MarkFailed(ctx context.Context, orderID string, errMsg string, closedAt time.Time) error {
	return r.close(ctx, orderID, orders.StatusFailed, "", errMsg, closedAt)
}

func (r *OrderRepository) close(ctx context.Context, orderID, status, responseRef, errMsg string, closedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("order repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE instrument_orders
SET status = $1, response_ref = $2, error = $3, closed_at = $4
WHERE order_id = $5 AND status = $6`, status, responseRef, errMsg, closedAt, orderID, orders.StatusOpen)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM instrument_orders WHERE order_id = $1)`, orderID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return orders.ErrNotFound
	}
	return orders.ErrInvalidTransition
}

// MarkExpiredBefore expires open orders created before the cutoff and
// returns their ids.
func (r *OrderRepository) MarkExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("order repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
UPDATE instrument_orders
SET status = $1, closed_at = $2
WHERE status = $3 AND created_at < $2
RETURNING order_id`, orders.StatusExpired, cutoff, orders.StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return expired, err
		}
		expired = append(expired, id)
	}
	return expired, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*orders.Order, error) {
	var order orders.Order
	var closedAt sql.NullTime
	var responseRef, errMsg sql.NullString
	err := row.Scan(
		&order.OrderID, &order.Type, &order.Name, &order.Status, &order.CreatedBy,
		&order.FilePath, &order.Document, &order.CreatedAt, &closedAt, &responseRef, &errMsg,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		order.ClosedAt = closedAt.Time
	}
	if responseRef.Valid {
		order.ResponseRef = responseRef.String
	}
	if errMsg.Valid {
		order.Error = errMsg.String
	}
	return &order, nil
}
