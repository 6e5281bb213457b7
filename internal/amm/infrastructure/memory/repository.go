package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	amm "argus-control/internal/amm/domain"
)

// ConfigRepository is an in-memory configuration store.
type ConfigRepository struct {
	mu      sync.Mutex
	configs map[string]*amm.Configuration
	history map[string][]amm.Execution // config id -> executions
	fired   map[string]bool            // config id + "\x00" + window id
}

// NewConfigRepository constructs an empty repository.
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{
		configs: make(map[string]*amm.Configuration),
		history: make(map[string][]amm.Execution),
		fired:   make(map[string]bool),
	}
}

func firedKey(configID, windowID string) string {
	return configID + "\x00" + windowID
}

// Create inserts a configuration.
func (r *ConfigRepository) Create(_ context.Context, cfg *amm.Configuration) error {
	if cfg == nil || cfg.ID == "" {
		return errors.New("amm repo: invalid configuration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ID]; ok {
		return errors.New("amm repo: duplicate configuration id " + cfg.ID)
	}
	clone := *cfg
	r.configs[cfg.ID] = &clone
	return nil
}

// Update replaces a configuration.
func (r *ConfigRepository) Update(_ context.Context, cfg *amm.Configuration) error {
	if cfg == nil || cfg.ID == "" {
		return errors.New("amm repo: invalid configuration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ID]; !ok {
		return amm.ErrNotFound
	}
	clone := *cfg
	r.configs[cfg.ID] = &clone
	return nil
}

// GetByID fetches a configuration.
func (r *ConfigRepository) GetByID(_ context.Context, id string) (*amm.Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, amm.ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

// List returns all configurations sorted by creation time.
func (r *ConfigRepository) List(_ context.Context) ([]amm.Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(*amm.Configuration) bool { return true }), nil
}

// ListActive returns configurations the scheduler should evaluate.
func (r *ConfigRepository) ListActive(_ context.Context) ([]amm.Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(func(cfg *amm.Configuration) bool { return cfg.Status == amm.StatusActive }), nil
}

func (r *ConfigRepository) collect(keep func(*amm.Configuration) bool) []amm.Configuration {
	var result []amm.Configuration
	for _, cfg := range r.configs {
		if keep(cfg) {
			result = append(result, *cfg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

// Delete removes a configuration and its history.
func (r *ConfigRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[id]; !ok {
		return amm.ErrNotFound
	}
	delete(r.configs, id)
	delete(r.history, id)
	return nil
}

// RecordExecution appends an execution, marks its window fired and stamps
// the configuration's last firing time.
func (r *ConfigRepository) RecordExecution(_ context.Context, exec *amm.Execution) error {
	if exec == nil || exec.ConfigID == "" || exec.WindowID == "" {
		return errors.New("amm repo: invalid execution")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[exec.ConfigID] = append(r.history[exec.ConfigID], *exec)
	r.fired[firedKey(exec.ConfigID, exec.WindowID)] = true
	if cfg, ok := r.configs[exec.ConfigID]; ok && exec.FiredAt.After(cfg.LastFiredAt) {
		cfg.LastFiredAt = exec.FiredAt
	}
	return nil
}

// HasFired reports whether a window already produced an execution record.
func (r *ConfigRepository) HasFired(_ context.Context, configID, windowID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired[firedKey(configID, windowID)], nil
}

// ListExecutions returns the newest executions of a configuration.
func (r *ConfigRepository) ListExecutions(_ context.Context, configID string, limit int) ([]amm.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append([]amm.Execution(nil), r.history[configID]...)
	sort.Slice(history, func(i, j int) bool { return history[i].FiredAt.After(history[j].FiredAt) })
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}
