package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	amm "argus-control/internal/amm/domain"
	"argus-control/internal/protocol"
)

// ConfigRepository is a Postgres implementation of the configuration store.
// Measurement template and timing travel as JSONB; the execution history
// table carries a unique (config_id, window_id) constraint which backs the
// at-most-once firing guarantee across restarts.
type ConfigRepository struct {
	db *sql.DB
}

// NewConfigRepository constructs a repository.
func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// Create inserts a configuration.
func (r *ConfigRepository) Create(ctx context.Context, cfg *amm.Configuration) error {
	if r == nil || r.db == nil {
		return errors.New("amm repo: nil db")
	}
	measurement, timing, err := marshalParts(cfg)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO amm_configurations (
	id, name, status, measurement, timing, created_by, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, cfg.ID, cfg.Name, cfg.Status, measurement, timing, cfg.CreatedBy, cfg.CreatedAt, cfg.UpdatedAt)
	return err
}

// Update replaces a configuration.
func (r *ConfigRepository) Update(ctx context.Context, cfg *amm.Configuration) error {
	if r == nil || r.db == nil {
		return errors.New("amm repo: nil db")
	}
	measurement, timing, err := marshalParts(cfg)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE amm_configurations
SET name = $1, status = $2, measurement = $3, timing = $4, updated_at = $5
WHERE id = $6`, cfg.Name, cfg.Status, measurement, timing, cfg.UpdatedAt, cfg.ID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return amm.ErrNotFound
	}
	return nil
}

// GetByID fetches a configuration.
func (r *ConfigRepository) GetByID(ctx context.Context, id string) (*amm.Configuration, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("amm repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, status, measurement, timing, created_by, created_at, updated_at, last_fired_at
FROM amm_configurations
WHERE id = $1
LIMIT 1`, id)
	return scanConfig(row)
}

// List returns all configurations.
func (r *ConfigRepository) List(ctx context.Context) ([]amm.Configuration, error) {
	return r.list(ctx, `
SELECT id, name, status, measurement, timing, created_by, created_at, updated_at, last_fired_at
FROM amm_configurations
ORDER BY created_at ASC`)
}

// ListActive returns configurations in the active status.
func (r *ConfigRepository) ListActive(ctx context.Context) ([]amm.Configuration, error) {
	return r.list(ctx, `
SELECT id, name, status, measurement, timing, created_by, created_at, updated_at, last_fired_at
FROM amm_configurations
WHERE status = 'active'
ORDER BY created_at ASC`)
}

func (r *ConfigRepository) list(ctx context.Context, query string) ([]amm.Configuration, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("amm repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []amm.Configuration
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cfg)
	}
	return result, rows.Err()
}

// Delete removes a configuration and its history.
func (r *ConfigRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("amm repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM amm_configurations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return amm.ErrNotFound
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM amm_executions WHERE config_id = $1`, id)
	return err
}

// RecordExecution appends an execution and stamps the configuration's last
// firing time. A concurrent duplicate for the same window loses against the
// unique constraint and is dropped silently.
func (r *ConfigRepository) RecordExecution(ctx context.Context, exec *amm.Execution) error {
	if r == nil || r.db == nil {
		return errors.New("amm repo: nil db")
	}
	if exec == nil {
		return errors.New("amm repo: nil execution")
	}
	result, err := r.db.ExecContext(ctx, `
INSERT INTO amm_executions (
	id, config_id, window_id, order_id, fired_at, error
) VALUES (
	$1, $2, $3, $4, $5, $6
)
ON CONFLICT (config_id, window_id) DO NOTHING`,
		exec.ID, exec.ConfigID, exec.WindowID, exec.OrderID, exec.FiredAt, exec.Error)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil || affected == 0 {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
UPDATE amm_configurations
SET last_fired_at = $1
WHERE id = $2 AND (last_fired_at IS NULL OR last_fired_at < $1)`, exec.FiredAt, exec.ConfigID)
	return err
}

// HasFired reports whether a window already produced an execution record.
func (r *ConfigRepository) HasFired(ctx context.Context, configID, windowID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("amm repo: nil db")
	}
	var fired bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM amm_executions WHERE config_id = $1 AND window_id = $2
)`, configID, windowID).Scan(&fired)
	return fired, err
}

// ListExecutions returns the newest executions of a configuration.
func (r *ConfigRepository) ListExecutions(ctx context.Context, configID string, limit int) ([]amm.Execution, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("amm repo: nil db")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, config_id, window_id, order_id, fired_at, error
FROM amm_executions
WHERE config_id = $1
ORDER BY fired_at DESC
LIMIT $2`, configID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []amm.Execution
	for rows.Next() {
		var exec amm.Execution
		var orderID, errMsg sql.NullString
		if err := rows.Scan(&exec.ID, &exec.ConfigID, &exec.WindowID, &orderID, &exec.FiredAt, &errMsg); err != nil {
			return nil, err
		}
		exec.OrderID = orderID.String
		exec.Error = errMsg.String
		result = append(result, exec)
	}
	return result, rows.Err()
}

func marshalParts(cfg *amm.Configuration) ([]byte, []byte, error) {
	if cfg == nil {
		return nil, nil, errors.New("amm repo: nil configuration")
	}
	measurement, err := json.Marshal(cfg.Measurement)
	if err != nil {
		return nil, nil, err
	}
	timing, err := json.Marshal(cfg.Timing)
	if err != nil {
		return nil, nil, err
	}
	return measurement, timing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*amm.Configuration, error) {
	var cfg amm.Configuration
	var measurement, timing []byte
	var lastFired sql.NullTime
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Status, &measurement, &timing, &cfg.CreatedBy, &cfg.CreatedAt, &cfg.UpdatedAt, &lastFired)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, amm.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastFired.Valid {
		cfg.LastFiredAt = lastFired.Time
	}
	var order protocol.MeasurementOrder
	if err := json.Unmarshal(measurement, &order); err != nil {
		return nil, err
	}
	cfg.Measurement = order
	if err := json.Unmarshal(timing, &cfg.Timing); err != nil {
		return nil, err
	}
	return &cfg, nil
}
