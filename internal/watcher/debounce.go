package watcher

import (
	"sort"
	"sync"
	"time"
)

// debouncer collapses bursts of filesystem events per path. A path becomes
// due once no further event arrived for the quiet interval, so a file still
// being written is never picked up half-finished.
type debouncer struct {
	mu      sync.Mutex
	pending map[string]time.Time
}

func newDebouncer() *debouncer {
	return &debouncer{pending: make(map[string]time.Time)}
}

// note records an event for a path, restarting its quiet interval.
func (d *debouncer) note(path string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[path] = at
}

// drain removes and returns every pending path regardless of quiet time.
func (d *debouncer) drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ready := make([]string, 0, len(d.pending))
	for path := range d.pending {
		ready = append(ready, path)
	}
	d.pending = make(map[string]time.Time)
	sort.Strings(ready)
	return ready
}

// due removes and returns the paths whose quiet interval elapsed.
func (d *debouncer) due(now time.Time, quiet time.Duration) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ready []string
	for path, last := range d.pending {
		if !now.Before(last.Add(quiet)) {
			ready = append(ready, path)
			delete(d.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}
