package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ammapp "argus-control/internal/amm/application"
	amm "argus-control/internal/amm/domain"
	ammmemory "argus-control/internal/amm/infrastructure/memory"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	svc, err := ammapp.NewService(ammmemory.NewConfigRepository())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	handler, err := NewHandler(svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler
}

const createBody = `{
	"name": "FM monitor",
	"measurement": {
		"task": "FFM",
		"station": "MOB1",
		"freq_mode": "S",
		"freq_single": 94700000,
		"meas_data_typ": "LV"
	},
	"timing": {
		"mode": "PERIODIC",
		"weekdays": [1, 2, 3, 4, 5],
		"daily_start": "08:00",
		"daily_end": "10:00",
		"fragmentation": {"enabled": false}
	}
}`

func createConfig(t *testing.T, handler *Handler) configResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/measurements", strings.NewReader(createBody)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body.String())
	}
	var view configResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return view
}

func TestCreateConfiguration(t *testing.T) {
	handler := newTestHandler(t)
	view := createConfig(t, handler)

	if view.ID == "" || view.Status != amm.StatusDraft {
		t.Fatalf("view = %+v", view)
	}
	if view.Measurement.FreqSingle != 94700000 {
		t.Fatalf("measurement = %+v", view.Measurement)
	}
}

func TestCreateRejectsBadTiming(t *testing.T) {
	handler := newTestHandler(t)
	body := strings.Replace(createBody, `"mode": "PERIODIC"`, `"mode": "SOMETIMES"`, 1)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/measurements", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusAndList(t *testing.T) {
	handler := newTestHandler(t)
	view := createConfig(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/measurements/"+view.ID+"/status", strings.NewReader(`{"status":"active"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var updated configResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Status != amm.StatusActive {
		t.Fatalf("updated = %+v", updated)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/measurements", nil))
	var list []configResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Status != amm.StatusActive {
		t.Fatalf("list = %+v", list)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	handler := newTestHandler(t)
	view := createConfig(t, handler)

	body := strings.Replace(createBody, "FM monitor", "FM monitor v2", 1)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/measurements/"+view.ID, strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body.String())
	}
	var updated configResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Name != "FM monitor v2" {
		t.Fatalf("updated = %+v", updated)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/measurements/"+view.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/measurements/"+view.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	view := createConfig(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/measurements/"+view.ID+"/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d body %s", rec.Code, rec.Body.String())
	}
	var history []executionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history = %+v", history)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/measurements/missing/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
}
