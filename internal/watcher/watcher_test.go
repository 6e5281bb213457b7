package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	orders "argus-control/internal/orders/domain"
)

func waitForStatus(t *testing.T, repo statusReader, orderID, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		order, err := repo.GetByID(context.Background(), orderID)
		if err == nil && order.Status == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	order, err := repo.GetByID(context.Background(), orderID)
	t.Fatalf("order never reached %q: order=%+v err=%v", want, order, err)
}

type statusReader interface {
	GetByID(ctx context.Context, orderID string) (*orders.Order, error)
}

func TestWatcherDispatchesNewResponseFile(t *testing.T) {
	d, repo, _, _, _ := newTestDispatcher(t)
	dir := t.TempDir()

	openOrder(t, repo, "GSS240305143015123", "GSS")

	w, err := New(dir, d, quietLogger(), 40*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before the file lands.
	time.Sleep(100 * time.Millisecond)
	writeResponse(t, dir, "GSS-240305-143015123-R.xml", finishedResponse("GSS240305143015123", "GSS"))

	waitForStatus(t, repo, "GSS240305143015123", orders.StatusFinished)

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}
}

func TestWatcherProcessesBacklogOnStartup(t *testing.T) {
	d, repo, _, _, _ := newTestDispatcher(t)
	dir := t.TempDir()

	openOrder(t, repo, "GSP240305143020456", "GSP")
	// The response arrived while the service was down.
	writeResponse(t, dir, "GSP-240305-143020456-R.xml", finishedResponse("GSP240305143020456", "GSP"))

	w, err := New(dir, d, quietLogger(), 40*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	waitForStatus(t, repo, "GSP240305143020456", orders.StatusFinished)
}

func TestWatcherDrainsPendingOnShutdown(t *testing.T) {
	d, repo, _, _, _ := newTestDispatcher(t)
	dir := t.TempDir()

	openOrder(t, repo, "OR240305150000789", "OR")
	writeResponse(t, dir, "OR-240305-150000789-R.xml", finishedResponse("OR240305150000789", "OR"))

	// A quiet interval far past the test horizon: the file can only be
	// dispatched by the shutdown drain, never by the ticker.
	w, err := New(dir, d, quietLogger(), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}
	order, _ := repo.GetByID(context.Background(), "OR240305150000789")
	if order.Status != orders.StatusFinished {
		t.Fatalf("pending response not dispatched on shutdown: %q", order.Status)
	}
}

func TestWatcherIgnoresNonResponseFiles(t *testing.T) {
	d, repo, store, _, _ := newTestDispatcher(t)
	dir := t.TempDir()

	openOrder(t, repo, "GSS240305143015123", "GSS")

	w, err := New(dir, d, quietLogger(), 40*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	// An order copy and a stray file: neither matches the -R convention.
	if err := os.WriteFile(filepath.Join(dir, "GSS-240305-143015123-O.xml"), []byte("<XMLSchema1/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	order, _ := repo.GetByID(context.Background(), "GSS240305143015123")
	if order.Status != orders.StatusOpen {
		t.Fatalf("order transitioned from a non-response file: %q", order.Status)
	}
	records, _ := store.List(context.Background(), resultFilter(""))
	if len(records) != 0 {
		t.Fatalf("non-response files produced records: %+v", records)
	}
}
