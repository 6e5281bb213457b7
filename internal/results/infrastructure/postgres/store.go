package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"argus-control/internal/protocol"
	results "argus-control/internal/results/domain"
)

// ResultStore is a Postgres implementation of the response store. The parsed
// response body is kept as JSONB.
type ResultStore struct {
	db *sql.DB
}

// NewResultStore constructs a store.
func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Save inserts a record.
func (s *ResultStore) Save(ctx context.Context, record *results.Record) error {
	if s == nil || s.db == nil {
		return errors.New("result store: nil db")
	}
	if record == nil {
		return errors.New("result store: nil record")
	}
	payload, err := json.Marshal(record.Response)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO instrument_responses (
	id, order_id, order_type, received_at, source_file, response
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, record.ID, record.OrderID, record.Type, record.ReceivedAt, record.SourceFile, payload)
	return err
}

// Get fetches one record by id.
func (s *ResultStore) Get(ctx context.Context, id string) (*results.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("result store: nil db")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, order_id, order_type, received_at, source_file, response
FROM instrument_responses
WHERE id = $1
LIMIT 1`, id)
	return scanRecord(row)
}

// Latest returns the most recent record of an order type.
func (s *ResultStore) Latest(ctx context.Context, orderType string) (*results.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("result store: nil db")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, order_id, order_type, received_at, source_file, response
FROM instrument_responses
WHERE ($1 = '' OR order_type = $1)
ORDER BY received_at DESC
LIMIT 1`, orderType)
	return scanRecord(row)
}

// List returns records matching the filter, newest first.
func (s *ResultStore) List(ctx context.Context, filter results.Filter) ([]results.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("result store: nil db")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, order_id, order_type, received_at, source_file, response
FROM instrument_responses
WHERE ($1 = '' OR order_id = $1)
  AND ($2 = '' OR order_type = $2)
  AND ($3::timestamptz IS NULL OR received_at >= $3)
ORDER BY received_at DESC
LIMIT $4`, filter.OrderID, filter.Type, nullTime(filter), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []results.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func nullTime(filter results.Filter) any {
	if filter.Since.IsZero() {
		return nil
	}
	return filter.Since
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*results.Record, error) {
	var record results.Record
	var payload []byte
	err := row.Scan(&record.ID, &record.OrderID, &record.Type, &record.ReceivedAt, &record.SourceFile, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, results.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		var response protocol.ResponseRecord
		if err := json.Unmarshal(payload, &response); err != nil {
			return nil, err
		}
		record.Response = &response
	}
	return &record, nil
}
