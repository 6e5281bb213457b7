// Package http exposes stored instrument responses over REST.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"argus-control/internal/protocol"
	results "argus-control/internal/results/domain"
)

// Handler provides response endpoints under /api/v1/responses.
type Handler struct {
	store results.Store
}

// NewHandler constructs a response handler.
func NewHandler(store results.Store) (*Handler, error) {
	if store == nil {
		return nil, errors.New("results handler: nil store")
	}
	return &Handler{store: store}, nil
}

// ServeHTTP routes the response endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/responses"), "/")
	if rest == "" {
		h.handleList(w, r)
		return
	}
	if strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	h.handleGet(w, r, rest)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := results.Filter{
		OrderID: r.URL.Query().Get("order_id"),
		Type:    strings.ToUpper(r.URL.Query().Get("type")),
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]recordResponse, 0, len(list))
	for i := range list {
		views = append(views, recordView(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			http.Error(w, "response not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recordView(record))
}

type recordResponse struct {
	ID         string                   `json:"id"`
	OrderID    string                   `json:"order_id"`
	Type       string                   `json:"type"`
	ReceivedAt time.Time                `json:"received_at"`
	SourceFile string                   `json:"source_file"`
	Response   *protocol.ResponseRecord `json:"response"`
}

func recordView(r *results.Record) recordResponse {
	return recordResponse{
		ID:         r.ID,
		OrderID:    r.OrderID,
		Type:       r.Type,
		ReceivedAt: r.ReceivedAt,
		SourceFile: r.SourceFile,
		Response:   r.Response,
	}
}
