package application

import (
	"context"
	"errors"
	"testing"
	"time"

	amm "argus-control/internal/amm/domain"
	ammmemory "argus-control/internal/amm/infrastructure/memory"
	"argus-control/internal/auth"
)

func newTestConfigService(t *testing.T) (*Service, *ammmemory.ConfigRepository) {
	t.Helper()
	repo := ammmemory.NewConfigRepository()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func TestCreateStartsAsDraft(t *testing.T) {
	svc, _ := newTestConfigService(t)
	ctx := auth.WithUser(context.Background(), "operator1")

	cfg, err := svc.Create(ctx, "FM monitor", measurementTemplate(), periodicTiming())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cfg.ID == "" || cfg.Status != amm.StatusDraft || cfg.CreatedBy != "operator1" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestCreateRejectsInvalidTiming(t *testing.T) {
	svc, _ := newTestConfigService(t)

	_, err := svc.Create(context.Background(), "broken", measurementTemplate(), amm.Timing{Mode: "SOMETIMES"})
	if err == nil {
		t.Fatalf("invalid timing accepted")
	}
}

func TestSetStatusTransitions(t *testing.T) {
	svc, _ := newTestConfigService(t)
	ctx := context.Background()

	cfg, err := svc.Create(ctx, "FM monitor", measurementTemplate(), periodicTiming())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	activated, err := svc.SetStatus(ctx, cfg.ID, amm.StatusActive)
	if err != nil || activated.Status != amm.StatusActive {
		t.Fatalf("activate: %+v err %v", activated, err)
	}
	if _, err := svc.SetStatus(ctx, cfg.ID, "archived"); err == nil {
		t.Fatalf("unknown status accepted")
	}
	if _, err := svc.SetStatus(ctx, "missing", amm.StatusPaused); !errors.Is(err, amm.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateKeepsStatus(t *testing.T) {
	svc, _ := newTestConfigService(t)
	ctx := context.Background()

	cfg, _ := svc.Create(ctx, "FM monitor", measurementTemplate(), periodicTiming())
	if _, err := svc.SetStatus(ctx, cfg.ID, amm.StatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	timing := periodicTiming()
	timing.DailyEnd = "12:00"
	updated, err := svc.Update(ctx, cfg.ID, "FM monitor v2", measurementTemplate(), timing)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != amm.StatusActive || updated.Name != "FM monitor v2" {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Timing.DailyEnd != "12:00" {
		t.Fatalf("timing not replaced: %+v", updated.Timing)
	}
}

func TestHistoryRequiresExistingConfig(t *testing.T) {
	svc, repo := newTestConfigService(t)
	ctx := context.Background()

	if _, err := svc.History(ctx, "missing", 10); !errors.Is(err, amm.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	cfg, _ := svc.Create(ctx, "FM monitor", measurementTemplate(), periodicTiming())
	_ = repo.RecordExecution(ctx, &amm.Execution{
		ID: "exec-1", ConfigID: cfg.ID, WindowID: "w1",
		OrderID: "AMM240305090000000", FiredAt: time.Now().UTC(),
	})

	history, err := svc.History(ctx, cfg.ID, 10)
	if err != nil || len(history) != 1 {
		t.Fatalf("history = %+v err %v", history, err)
	}
}
