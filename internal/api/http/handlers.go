// Package apihttp serves read-side views derived from stored instrument
// responses.
package apihttp

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"argus-control/internal/protocol"
	results "argus-control/internal/results/domain"
)

// SystemStateHandler serves the latest monitoring system snapshot.
type SystemStateHandler struct {
	store results.Store
}

// NewSystemStateHandler constructs a SystemStateHandler.
func NewSystemStateHandler(store results.Store) *SystemStateHandler {
	return &SystemStateHandler{store: store}
}

// ServeHTTP handles GET /api/v1/system-state.
func (h *SystemStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.store == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	record, err := h.store.Latest(r.Context(), string(protocol.OrderTypeSystemState))
	if err != nil {
		respondLatestError(w, err, "no system state received yet")
		return
	}
	if record.Response == nil || record.Response.SystemState == nil {
		http.Error(w, "no system state received yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshotView{
		OrderID:    record.OrderID,
		ReceivedAt: record.ReceivedAt,
		AgeSeconds: int64(time.Since(record.ReceivedAt).Seconds()),
		State:      record.Response.SystemState,
	})
}

// SystemParamsHandler serves the latest signal path and device inventory.
type SystemParamsHandler struct {
	store results.Store
}

// NewSystemParamsHandler constructs a SystemParamsHandler.
func NewSystemParamsHandler(store results.Store) *SystemParamsHandler {
	return &SystemParamsHandler{store: store}
}

// ServeHTTP handles GET /api/v1/system-params.
func (h *SystemParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.store == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	record, err := h.store.Latest(r.Context(), string(protocol.OrderTypeSystemParams))
	if err != nil {
		respondLatestError(w, err, "no system parameters received yet")
		return
	}
	if record.Response == nil || record.Response.SystemParams == nil {
		http.Error(w, "no system parameters received yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(paramsView{
		OrderID:    record.OrderID,
		ReceivedAt: record.ReceivedAt,
		Params:     record.Response.SystemParams,
	})
}

// ExportStationsCSVHandler exports the latest station list as CSV.
type ExportStationsCSVHandler struct {
	store results.Store
}

// NewExportStationsCSVHandler constructs an ExportStationsCSVHandler.
func NewExportStationsCSVHandler(store results.Store) *ExportStationsCSVHandler {
	return &ExportStationsCSVHandler{store: store}
}

// ServeHTTP handles GET /api/v1/exports/stations.csv.
func (h *ExportStationsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.store == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	record, err := h.store.Latest(r.Context(), string(protocol.OrderTypeSystemState))
	if err != nil {
		respondLatestError(w, err, "no system state received yet")
		return
	}
	if record.Response == nil || record.Response.SystemState == nil {
		http.Error(w, "no system state received yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="stations.csv"`)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"name", "rmc", "host", "type", "online", "user", "longitude", "latitude", "devices"})
	for _, station := range record.Response.SystemState.Stations {
		_ = writer.Write([]string{
			station.Name,
			station.RMC,
			station.Host,
			station.Type,
			strconv.FormatBool(station.Online),
			station.User,
			formatCoord(station.Longitude),
			formatCoord(station.Latitude),
			strconv.Itoa(len(station.Devices)),
		})
	}
	writer.Flush()
}

func respondLatestError(w http.ResponseWriter, err error, missing string) {
	if errors.Is(err, results.ErrNotFound) {
		http.Error(w, missing, http.StatusNotFound)
		return
	}
	http.Error(w, "query snapshot error", http.StatusInternalServerError)
}

func formatCoord(value float64) string {
	return strconv.FormatFloat(value, 'f', 6, 64)
}

type snapshotView struct {
	OrderID    string                `json:"order_id"`
	ReceivedAt time.Time             `json:"received_at"`
	AgeSeconds int64                 `json:"age_seconds"`
	State      *protocol.SystemState `json:"state"`
}

type paramsView struct {
	OrderID    string                 `json:"order_id"`
	ReceivedAt time.Time              `json:"received_at"`
	Params     *protocol.SystemParams `json:"params"`
}
