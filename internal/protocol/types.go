package protocol

import "time"

// OrderType is the instrument's order type code.
type OrderType string

const (
	// OrderTypeSystemState is a GSS (Get System State) query.
	OrderTypeSystemState OrderType = "GSS"
	// OrderTypeSystemParams is a GSP (Get System Parameters) query.
	OrderTypeSystemParams OrderType = "GSP"
	// OrderTypeMeasurement is an OR measurement order.
	OrderTypeMeasurement OrderType = "OR"
	// OrderTypeFrequencyQuery is an SMDI frequency list query.
	OrderTypeFrequencyQuery OrderType = "IFL"
	// OrderTypeTransmitterQuery is an SMDI transmitter list query.
	OrderTypeTransmitterQuery OrderType = "ITL"
)

// Known order-state literals used by the instrument.
const (
	OrderStateOpen      = "Open"
	OrderStateInProcess = "In Process"
	OrderStateFinished  = "Finished"
)

// Request is an order payload that can be encoded into an instrument order
// document.
type Request interface {
	// Type returns the order type code placed in ORDER_TYPE.
	Type() OrderType
	// IDPrefix returns the prefix used when generating the order id.
	IDPrefix() string
	// Validate rejects malformed payloads before any encoding happens.
	Validate() error
}

// SystemStateQuery asks for the monitoring system state (stations, devices,
// run flag).
type SystemStateQuery struct{}

func (SystemStateQuery) Type() OrderType  { return OrderTypeSystemState }
func (SystemStateQuery) IDPrefix() string { return "GSS" }
func (SystemStateQuery) Validate() error  { return nil }

// SystemParamsQuery asks for the system parameters (signal paths and device
// capabilities per station).
type SystemParamsQuery struct{}

func (SystemParamsQuery) Type() OrderType  { return OrderTypeSystemParams }
func (SystemParamsQuery) IDPrefix() string { return "GSP" }
func (SystemParamsQuery) Validate() error  { return nil }

// Frequency mode codes for measurement and SMDI payloads.
const (
	FreqModeSingle = "S"
	FreqModeRange  = "R"
	FreqModeList   = "L"
	FreqModeNone   = "N"
)

// ReceiverParams holds the receiver configuration of a measurement.
type ReceiverParams struct {
	IFBandwidthHz int64
	RFAttenuation string // "Auto" or a dB value
	Demodulation  string
	MeasTime      float64 // seconds, -1 for automatic
	Detector      string
}

// AntennaParams holds the antenna configuration of a measurement.
type AntennaParams struct {
	Port string
	Mode string
}

// Location is a geographic position expressed in the instrument's
// degrees/minutes/seconds form.
type Location struct {
	Longitude Coordinate
	Latitude  Coordinate
	HeightM   float64
}

// MeasurementOrder is an OR order carrying one sub-order.
type MeasurementOrder struct {
	Name         string
	SuborderName string
	Task         string // FFM, SCAN, DSCAN, PSCAN, FLSCAN, TLSCAN
	ResultType   string // MR, CMR, AMR

	Station    string // station PC name the order targets
	StationTyp string // F fixed, M mobile
	SignalPath string

	FreqMode    string
	FreqSingle  int64 // Hz
	FreqStart   int64 // Hz
	FreqStop    int64 // Hz
	FreqStep    int64 // Hz
	FreqList    []int64
	MeasDataTyp string // LV, FM, BE

	Receiver ReceiverParams
	Antenna  AntennaParams

	TimeMode  string // P periodic, S span
	StartTime time.Time
	StopTime  time.Time

	Location *Location
	Operator string
}

func (MeasurementOrder) Type() OrderType  { return OrderTypeMeasurement }
func (MeasurementOrder) IDPrefix() string { return "AMM" }

// Validate checks the measurement payload. Frequencies are Hz throughout;
// a range with stop at or below start is rejected.
func (m MeasurementOrder) Validate() error {
	if m.Station == "" {
		return &ValidationError{Field: "station", Reason: "required"}
	}
	if m.Task == "" {
		return &ValidationError{Field: "task", Reason: "required"}
	}
	switch m.FreqMode {
	case FreqModeSingle:
		if m.FreqSingle <= 0 {
			return &ValidationError{Field: "freq_single", Reason: "must be a positive frequency in Hz"}
		}
	case FreqModeRange:
		if m.FreqStart <= 0 {
			return &ValidationError{Field: "freq_start", Reason: "must be a positive frequency in Hz"}
		}
		if m.FreqStop <= m.FreqStart {
			return &ValidationError{Field: "freq_stop", Reason: "stop frequency must be above start frequency"}
		}
		if m.FreqStep < 0 {
			return &ValidationError{Field: "freq_step", Reason: "must not be negative"}
		}
	case FreqModeList:
		if len(m.FreqList) == 0 {
			return &ValidationError{Field: "freq_list", Reason: "at least one frequency required"}
		}
		for _, f := range m.FreqList {
			if f <= 0 {
				return &ValidationError{Field: "freq_list", Reason: "frequencies must be positive Hz values"}
			}
		}
	default:
		return &ValidationError{Field: "freq_mode", Reason: "must be S, R or L"}
	}
	if m.TimeMode == "S" && !m.StopTime.After(m.StartTime) {
		return &ValidationError{Field: "stop_time", Reason: "must be after start time"}
	}
	return nil
}

// FrequencyFilter restricts an SMDI query by frequency.
type FrequencyFilter struct {
	Mode   string // S, R, L or N
	Single int64
	Lower  int64
	Upper  int64
	Step   int64
	List   []int64
}

// LocationFilter restricts an SMDI query by place.
type LocationFilter struct {
	Mode     string // N none, C country, COORD coordinates
	Country  string
	City     string
	ZipCode  string
	Coord    *Location
	RadiusKm float64
}

// SMDIQuery is an IFL or ITL database query order.
type SMDIQuery struct {
	Kind             OrderType // OrderTypeFrequencyQuery or OrderTypeTransmitterQuery
	ListName         string
	ResultOption     string // transmitters, occupied_freq, unassigned_freq
	IncludeBandwidth bool

	Frequency FrequencyFilter
	Location  LocationFilter

	Service  string
	CallSign string
	Licensee string
}

func (q SMDIQuery) Type() OrderType  { return q.Kind }
func (q SMDIQuery) IDPrefix() string { return string(q.Kind) }

func (q SMDIQuery) Validate() error {
	if q.Kind != OrderTypeFrequencyQuery && q.Kind != OrderTypeTransmitterQuery {
		return &ValidationError{Field: "kind", Reason: "must be IFL or ITL"}
	}
	switch q.Frequency.Mode {
	case FreqModeNone, "":
	case FreqModeSingle:
		if q.Frequency.Single <= 0 {
			return &ValidationError{Field: "frequency.single", Reason: "must be a positive frequency in Hz"}
		}
	case FreqModeRange:
		if q.Frequency.Lower <= 0 || q.Frequency.Upper <= q.Frequency.Lower {
			return &ValidationError{Field: "frequency.range", Reason: "upper limit must be above a positive lower limit"}
		}
	case FreqModeList:
		if len(q.Frequency.List) == 0 {
			return &ValidationError{Field: "frequency.list", Reason: "at least one frequency required"}
		}
	default:
		return &ValidationError{Field: "frequency.mode", Reason: "must be S, R, L or N"}
	}
	if q.Location.Mode == "COORD" && q.Location.Coord == nil {
		return &ValidationError{Field: "location.coord", Reason: "coordinates required for COORD mode"}
	}
	return nil
}
