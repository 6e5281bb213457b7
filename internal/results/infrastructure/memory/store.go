package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	results "argus-control/internal/results/domain"
)

// ResultStore keeps parsed responses in memory, newest first.
type ResultStore struct {
	mu      sync.Mutex
	records []results.Record
	byID    map[string]int
}

// NewResultStore constructs an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{byID: make(map[string]int)}
}

// Save appends a record.
func (s *ResultStore) Save(_ context.Context, record *results.Record) error {
	if record == nil {
		return errors.New("result store: nil record")
	}
	if record.ID == "" {
		return errors.New("result store: empty record id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[record.ID]; ok {
		return errors.New("result store: duplicate record id " + record.ID)
	}
	s.byID[record.ID] = len(s.records)
	s.records = append(s.records, *record)
	return nil
}

// Get fetches one record by id.
func (s *ResultStore) Get(_ context.Context, id string) (*results.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, results.ErrNotFound
	}
	record := s.records[idx]
	return &record, nil
}

// Latest returns the most recent record of an order type.
func (s *ResultStore) Latest(_ context.Context, orderType string) (*results.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *results.Record
	for i := range s.records {
		record := &s.records[i]
		if orderType != "" && record.Type != orderType {
			continue
		}
		if latest == nil || record.ReceivedAt.After(latest.ReceivedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, results.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// List returns records matching the filter, newest first.
func (s *ResultStore) List(_ context.Context, filter results.Filter) ([]results.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []results.Record
	for _, record := range s.records {
		if filter.OrderID != "" && record.OrderID != filter.OrderID {
			continue
		}
		if filter.Type != "" && record.Type != filter.Type {
			continue
		}
		if !filter.Since.IsZero() && record.ReceivedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, record)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ReceivedAt.After(matched[j].ReceivedAt) })
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
