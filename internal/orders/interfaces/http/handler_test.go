package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"argus-control/internal/exchange"
	orderapp "argus-control/internal/orders/application"
	orders "argus-control/internal/orders/domain"
	ordersmemory "argus-control/internal/orders/infrastructure/memory"
	"argus-control/internal/protocol"
)

type nopBus struct{}

func (nopBus) Publish(context.Context, any) error { return nil }

func newTestHandler(t *testing.T) (*Handler, *ordersmemory.OrderRepository) {
	t.Helper()
	root := t.TempDir()
	dirs := exchange.Dirs{
		Inbox:    filepath.Join(root, "inbox"),
		Outbox:   filepath.Join(root, "outbox"),
		Requests: filepath.Join(root, "requests"),
	}
	if err := dirs.EnsureAll(); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	repo := ordersmemory.NewOrderRepository()
	svc, err := orderapp.NewService(repo, protocol.NewCodec("CP-TEST", "panel"), protocol.NewIDGenerator(nil), dirs, nopBus{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	handler, err := NewHandler(svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler, repo
}

func TestSubmitMeasurement(t *testing.T) {
	handler, _ := newTestHandler(t)
	body := `{
		"name": "FM check",
		"task": "FFM",
		"station": "MOB1",
		"freq_mode": "S",
		"freq_single": 94700000,
		"meas_data_typ": "LV"
	}`

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/measurements", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.OrderID, "AMM") || resp.Status != orders.StatusOpen {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSubmitMeasurementRejectsBadPayload(t *testing.T) {
	handler, _ := newTestHandler(t)
	body := `{"task": "FFM", "freq_mode": "S", "freq_single": 94700000}`

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/measurements", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "station") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSubmitSMDIQuery(t *testing.T) {
	handler, _ := newTestHandler(t)
	body := `{
		"kind": "ifl",
		"list_name": "broadcast",
		"freq_mode": "R",
		"freq_lower": 87500000,
		"freq_upper": 108000000
	}`

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/queries", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp orderResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Type != "IFL" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSubmitSystemStateQuery(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/system-state", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var resp orderResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Type != "GSS" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestListAndGetOrders(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/system-params", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d", rec.Code)
	}
	var created orderResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=open", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].OrderID != created.OrderID {
		t.Fatalf("list = %+v", list)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+created.OrderID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/GSS000000000000000", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/orders", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
