package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"argus-control/internal/exchange"
	"argus-control/internal/observability/metrics"
)

// DefaultQuiet is how long a file must stay quiet before it is dispatched.
const DefaultQuiet = 500 * time.Millisecond

// Watcher observes the Outbox directory and feeds settled response files to
// the dispatcher. Filesystem events and the startup backlog funnel through
// the same debounced path, on a single consumer goroutine.
type Watcher struct {
	dir        string
	dispatcher *Dispatcher
	logger     *logrus.Logger
	quiet      time.Duration
	deb        *debouncer
	now        func() time.Time
}

// New constructs a watcher for the Outbox directory.
func New(dir string, dispatcher *Dispatcher, logger *logrus.Logger, quiet time.Duration) (*Watcher, error) {
	if dir == "" {
		return nil, errors.New("watcher: empty directory")
	}
	if dispatcher == nil {
		return nil, errors.New("watcher: nil dispatcher")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Watcher{
		dir:        dir,
		dispatcher: dispatcher,
		logger:     logger,
		quiet:      quiet,
		deb:        newDebouncer(),
		now:        time.Now,
	}, nil
}

// Run watches until the context is cancelled. Files already present at
// startup are dispatched first, so responses that arrived while the service
// was down are not lost. On shutdown Run drains files still pending in the
// debouncer before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	w.logger.WithField("dir", w.dir).Info("watching outbox")

	if err := w.scanBacklog(); err != nil {
		return err
	}

	ticker := time.NewTicker(w.quiet / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drainPending(ctx)
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher: event channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !exchange.IsResponseFile(event.Name) {
				continue
			}
			w.deb.note(event.Name, w.now())
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher: error channel closed")
			}
			w.logger.WithError(err).Warn("watch error")
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// scanBacklog enqueues response files already sitting in the Outbox. They
// are marked as already quiet so the next flush picks them up.
func (w *Watcher) scanBacklog() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	settled := w.now().Add(-w.quiet)
	for _, entry := range entries {
		if entry.IsDir() || !exchange.IsResponseFile(entry.Name()) {
			continue
		}
		w.deb.note(filepath.Join(w.dir, entry.Name()), settled)
	}
	return nil
}

func (w *Watcher) flush(ctx context.Context) {
	w.dispatch(ctx, w.deb.due(w.now(), w.quiet))
}

// drainPending dispatches everything still held by the debouncer so files
// noticed before shutdown are not stranded in the Outbox. The dispatch runs
// on a detached context because ctx is already cancelled here.
func (w *Watcher) drainPending(ctx context.Context) {
	w.dispatch(context.WithoutCancel(ctx), w.deb.drain())
}

func (w *Watcher) dispatch(ctx context.Context, paths []string) {
	for _, path := range paths {
		start := w.now()
		if err := w.dispatcher.HandleFile(ctx, path); err != nil {
			w.logger.WithField("file", path).WithError(err).Error("dispatch failed")
			continue
		}
		metrics.ObserveDispatchLatency(w.now().Sub(start).Seconds())
	}
}
