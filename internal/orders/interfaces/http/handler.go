// Package http exposes the order service over REST.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	orderapp "argus-control/internal/orders/application"
	orders "argus-control/internal/orders/domain"
	"argus-control/internal/protocol"
)

// Handler provides order HTTP endpoints under /api/v1/orders.
type Handler struct {
	service *orderapp.Service
}

// NewHandler constructs an order handler.
func NewHandler(service *orderapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("orders handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes the order endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/orders"), "/")

	switch {
	case r.Method == http.MethodPost && rest == "measurements":
		h.handleMeasurement(w, r)
	case r.Method == http.MethodPost && rest == "queries":
		h.handleQuery(w, r)
	case r.Method == http.MethodPost && rest == "system-state":
		h.submit(w, r, func() (*orders.Order, error) {
			return h.service.SubmitSystemStateQuery(r.Context())
		})
	case r.Method == http.MethodPost && rest == "system-params":
		h.submit(w, r, func() (*orders.Order, error) {
			return h.service.SubmitSystemParamsQuery(r.Context())
		})
	case r.Method == http.MethodGet && rest == "":
		h.handleList(w, r)
	case r.Method == http.MethodGet && rest != "" && !strings.Contains(rest, "/"):
		h.handleGet(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LocationRequest carries a geographic position in decimal degrees.
type LocationRequest struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	HeightM   float64 `json:"height_m"`
}

// MeasurementRequest is the JSON body of a measurement submission. It is
// shared with the scheduled-measurement endpoints.
type MeasurementRequest struct {
	Name         string  `json:"name"`
	SuborderName string  `json:"suborder_name"`
	Task         string  `json:"task"`
	ResultType   string  `json:"result_type"`
	Station      string  `json:"station"`
	StationTyp   string  `json:"station_typ"`
	SignalPath   string  `json:"signal_path"`
	FreqMode     string  `json:"freq_mode"`
	FreqSingle   int64   `json:"freq_single"`
	FreqStart    int64   `json:"freq_start"`
	FreqStop     int64   `json:"freq_stop"`
	FreqStep     int64   `json:"freq_step"`
	FreqList     []int64 `json:"freq_list"`
	MeasDataTyp  string  `json:"meas_data_typ"`

	IFBandwidthHz int64   `json:"if_bandwidth_hz"`
	RFAttenuation string  `json:"rf_attenuation"`
	Demodulation  string  `json:"demodulation"`
	MeasTime      float64 `json:"meas_time"`
	Detector      string  `json:"detector"`
	AntennaPort   string  `json:"antenna_port"`
	AntennaMode   string  `json:"antenna_mode"`

	TimeMode  string    `json:"time_mode"`
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`

	Location *LocationRequest `json:"location"`
	Operator string           `json:"operator"`
}

// ToOrder converts the JSON body into a measurement payload.
func (req MeasurementRequest) ToOrder() protocol.MeasurementOrder {
	m := protocol.MeasurementOrder{
		Name:         req.Name,
		SuborderName: req.SuborderName,
		Task:         req.Task,
		ResultType:   req.ResultType,
		Station:      req.Station,
		StationTyp:   req.StationTyp,
		SignalPath:   req.SignalPath,
		FreqMode:     req.FreqMode,
		FreqSingle:   req.FreqSingle,
		FreqStart:    req.FreqStart,
		FreqStop:     req.FreqStop,
		FreqStep:     req.FreqStep,
		FreqList:     req.FreqList,
		MeasDataTyp:  req.MeasDataTyp,
		Receiver: protocol.ReceiverParams{
			IFBandwidthHz: req.IFBandwidthHz,
			RFAttenuation: req.RFAttenuation,
			Demodulation:  req.Demodulation,
			MeasTime:      req.MeasTime,
			Detector:      req.Detector,
		},
		Antenna: protocol.AntennaParams{
			Port: req.AntennaPort,
			Mode: req.AntennaMode,
		},
		TimeMode:  req.TimeMode,
		StartTime: req.StartTime,
		StopTime:  req.StopTime,
		Operator:  req.Operator,
	}
	if req.Location != nil {
		m.Location = &protocol.Location{
			Longitude: protocol.LongitudeDMS(req.Location.Longitude),
			Latitude:  protocol.LatitudeDMS(req.Location.Latitude),
			HeightM:   req.Location.HeightM,
		}
	}
	return m
}

func (h *Handler) handleMeasurement(w http.ResponseWriter, r *http.Request) {
	var req MeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	h.submit(w, r, func() (*orders.Order, error) {
		return h.service.SubmitMeasurement(r.Context(), req.ToOrder())
	})
}

type queryRequest struct {
	Kind             string  `json:"kind"`
	ListName         string  `json:"list_name"`
	ResultOption     string  `json:"result_option"`
	IncludeBandwidth bool    `json:"include_bandwidth"`
	FreqMode         string  `json:"freq_mode"`
	FreqSingle       int64   `json:"freq_single"`
	FreqLower        int64   `json:"freq_lower"`
	FreqUpper        int64   `json:"freq_upper"`
	FreqStep         int64   `json:"freq_step"`
	FreqList         []int64 `json:"freq_list"`
	LocationMode     string  `json:"location_mode"`
	Country          string  `json:"country"`
	City             string  `json:"city"`
	ZipCode          string  `json:"zip_code"`
	Service          string  `json:"service"`
	CallSign         string  `json:"call_sign"`
	Licensee         string  `json:"licensee"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	query := protocol.SMDIQuery{
		Kind:             protocol.OrderType(strings.ToUpper(req.Kind)),
		ListName:         req.ListName,
		ResultOption:     req.ResultOption,
		IncludeBandwidth: req.IncludeBandwidth,
		Frequency: protocol.FrequencyFilter{
			Mode:   req.FreqMode,
			Single: req.FreqSingle,
			Lower:  req.FreqLower,
			Upper:  req.FreqUpper,
			Step:   req.FreqStep,
			List:   req.FreqList,
		},
		Location: protocol.LocationFilter{
			Mode:    req.LocationMode,
			Country: req.Country,
			City:    req.City,
			ZipCode: req.ZipCode,
		},
		Service:  req.Service,
		CallSign: req.CallSign,
		Licensee: req.Licensee,
	}
	h.submit(w, r, func() (*orders.Order, error) {
		return h.service.SubmitSMDIQuery(r.Context(), query)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, run func() (*orders.Order, error)) {
	order, err := run()
	if err != nil {
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(orderView(order))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.service.ListByStatus(r.Context(), status, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]orderResponse, 0, len(list))
	for i := range list {
		views = append(views, orderView(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(orderView(order))
}

type orderResponse struct {
	OrderID     string     `json:"order_id"`
	Type        string     `json:"type"`
	Name        string     `json:"name,omitempty"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	FilePath    string     `json:"file_path"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	ResponseRef string     `json:"response_ref,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func orderView(o *orders.Order) orderResponse {
	view := orderResponse{
		OrderID:     o.OrderID,
		Type:        o.Type,
		Name:        o.Name,
		Status:      o.Status,
		CreatedBy:   o.CreatedBy,
		FilePath:    o.FilePath,
		CreatedAt:   o.CreatedAt,
		ResponseRef: o.ResponseRef,
		Error:       o.Error,
	}
	if !o.ClosedAt.IsZero() {
		closed := o.ClosedAt
		view.ClosedAt = &closed
	}
	return view
}
