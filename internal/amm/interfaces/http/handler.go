// Package http exposes scheduled measurement configurations over REST.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	ammapp "argus-control/internal/amm/application"
	amm "argus-control/internal/amm/domain"
	ordershttp "argus-control/internal/orders/interfaces/http"
	"argus-control/internal/protocol"
)

// Handler provides configuration endpoints under /api/v1/measurements.
type Handler struct {
	service *ammapp.Service
}

// NewHandler constructs a configuration handler.
func NewHandler(service *ammapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("amm handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes the configuration endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/measurements"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case rest == "" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.handleUpdate(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		h.handleStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet:
		h.handleHistory(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type configRequest struct {
	Name        string                        `json:"name"`
	Measurement ordershttp.MeasurementRequest `json:"measurement"`
	Timing      amm.Timing                    `json:"timing"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	cfg, err := h.service.Create(r.Context(), req.Name, req.Measurement.ToOrder(), req.Timing)
	if err != nil {
		respondConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(configView(cfg))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]configResponse, 0, len(list))
	for i := range list {
		views = append(views, configView(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	cfg, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(configView(cfg))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	cfg, err := h.service.Update(r.Context(), id, req.Name, req.Measurement.ToOrder(), req.Timing)
	if err != nil {
		respondConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(configView(cfg))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondConfigError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	cfg, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		respondConfigError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(configView(cfg))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, id string) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	history, err := h.service.History(r.Context(), id, limit)
	if err != nil {
		respondConfigError(w, err)
		return
	}
	views := make([]executionResponse, 0, len(history))
	for _, e := range history {
		views = append(views, executionResponse{
			ID:       e.ID,
			WindowID: e.WindowID,
			OrderID:  e.OrderID,
			FiredAt:  e.FiredAt,
			Error:    e.Error,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func respondConfigError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, amm.ErrNotFound):
		http.Error(w, "configuration not found", http.StatusNotFound)
	default:
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

type configResponse struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Status      string                    `json:"status"`
	Measurement protocol.MeasurementOrder `json:"measurement"`
	Timing      amm.Timing                `json:"timing"`
	CreatedBy   string                    `json:"created_by"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	LastFiredAt *time.Time                `json:"last_fired_at,omitempty"`
}

type executionResponse struct {
	ID       string    `json:"id"`
	WindowID string    `json:"window_id"`
	OrderID  string    `json:"order_id,omitempty"`
	FiredAt  time.Time `json:"fired_at"`
	Error    string    `json:"error,omitempty"`
}

func configView(c *amm.Configuration) configResponse {
	view := configResponse{
		ID:          c.ID,
		Name:        c.Name,
		Status:      c.Status,
		Measurement: c.Measurement,
		Timing:      c.Timing,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if !c.LastFiredAt.IsZero() {
		fired := c.LastFiredAt
		view.LastFiredAt = &fired
	}
	return view
}
