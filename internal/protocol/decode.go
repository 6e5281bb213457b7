package protocol

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// InstrumentError is an ACD error reported inside a response document.
type InstrumentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DeviceStatus is one device entry of a system-state response.
type DeviceStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Station is one monitoring station of a system-state response.
type Station struct {
	Name      string         `json:"name"`
	RMC       string         `json:"rmc"`
	Host      string         `json:"host"`
	Type      string         `json:"type"`
	Longitude float64        `json:"longitude"`
	Latitude  float64        `json:"latitude"`
	Online    bool           `json:"online"`
	User      string         `json:"user,omitempty"`
	Devices   []DeviceStatus `json:"devices,omitempty"`
}

// SystemState is the parsed GSS response body.
type SystemState struct {
	Running        bool      `json:"running"`
	CurrentUser    string    `json:"current_user,omitempty"`
	MonitoringTime int       `json:"monitoring_time,omitempty"`
	Stations       []Station `json:"stations"`
	TotalStations  int       `json:"total_stations"`
	OnlineStations int       `json:"online_stations"`
}

// DeviceCapability describes one device on a signal path.
type DeviceCapability struct {
	Name           string   `json:"name"`
	Driver         string   `json:"driver,omitempty"`
	Detectors      []string `json:"detectors,omitempty"`
	IFBandwidthsHz []int64  `json:"if_bandwidths_hz,omitempty"`
	RFAttenuations []string `json:"rf_attenuations,omitempty"`
	Demodulations  []string `json:"demodulations,omitempty"`
	MeasModes      []string `json:"meas_modes,omitempty"`
}

// SignalPath is a receiver/antenna capability of a station with its
// frequency range.
type SignalPath struct {
	Name        string             `json:"name"`
	FreqLowerHz int64              `json:"freq_lower_hz"`
	FreqUpperHz int64              `json:"freq_upper_hz"`
	Devices     []DeviceCapability `json:"devices,omitempty"`
}

// StationParams groups the signal paths of one station.
type StationParams struct {
	Station Station      `json:"station"`
	Paths   []SignalPath `json:"paths"`
}

// SystemParams is the parsed GSP response body.
type SystemParams struct {
	Stations []StationParams `json:"stations"`
}

// Sample is one measurement data point.
type Sample struct {
	Time        string   `json:"time,omitempty"`
	FrequencyHz int64    `json:"frequency_hz"`
	Level       float64  `json:"level"`
	Bearing     *float64 `json:"bearing,omitempty"`
}

// MeasurementResult is the parsed OR response body.
type MeasurementResult struct {
	MeasurementID string   `json:"measurement_id,omitempty"`
	MeasType      string   `json:"meas_type,omitempty"`
	Station       string   `json:"station,omitempty"`
	Files         []string `json:"files,omitempty"`
	Samples       []Sample `json:"samples"`
}

// FrequencyEntry is one FREQ_RES row of an SMDI frequency-list response.
type FrequencyEntry struct {
	TxID             int64   `json:"tx_id,omitempty"`
	FrequencyHz      int64   `json:"frequency_hz"`
	LowerHz          int64   `json:"lower_hz,omitempty"`
	UpperHz          int64   `json:"upper_hz,omitempty"`
	Channel          string  `json:"channel,omitempty"`
	ChannelSpacingHz int64   `json:"channel_spacing_hz,omitempty"`
	BandwidthHz      int64   `json:"bandwidth_hz,omitempty"`
	TransmitterName  string  `json:"transmitter_name,omitempty"`
	SpectrumType     int     `json:"spectrum_type,omitempty"`
	TransmitterCount int     `json:"transmitter_count,omitempty"`
}

// TransmitterEntry is one TX_RES row of an SMDI transmitter-list response.
type TransmitterEntry struct {
	TxID        int64   `json:"tx_id,omitempty"`
	FrequencyHz int64   `json:"frequency_hz"`
	Service     string  `json:"service,omitempty"`
	CallSign    string  `json:"call_sign,omitempty"`
	Licensee    string  `json:"licensee,omitempty"`
	StationName string  `json:"station_name,omitempty"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
}

// ResponseRecord is a parsed instrument response. Exactly the variant
// matching Type is populated.
type ResponseRecord struct {
	OrderID    string    `json:"order_id"`
	Type       OrderType `json:"type"`
	OrderState string    `json:"order_state,omitempty"`

	InstrumentError *InstrumentError `json:"instrument_error,omitempty"`

	SystemState  *SystemState       `json:"system_state,omitempty"`
	SystemParams *SystemParams      `json:"system_params,omitempty"`
	Measurement  *MeasurementResult `json:"measurement,omitempty"`
	Frequencies  []FrequencyEntry   `json:"frequencies,omitempty"`
	Transmitters []TransmitterEntry `json:"transmitters,omitempty"`
}

// Finished reports whether the instrument marked the order done.
func (r *ResponseRecord) Finished() bool {
	return strings.EqualFold(r.OrderState, OrderStateFinished)
}

// Failed reports whether the instrument attached an error to the response.
func (r *ResponseRecord) Failed() bool {
	return r.InstrumentError != nil
}

type respOrderDef struct {
	OrderID   string `xml:"ORDER_ID"`
	OrderType string `xml:"ORDER_TYPE"`
	OrderName string `xml:"ORDER_NAME"`
	State     string `xml:"ORDER_STATE"`
}

type monsysBlock struct {
	Name        string      `xml:"MSS_ST_NAME"`
	RMC         string      `xml:"MSS_RMC"`
	RMCPC       string      `xml:"MSS_RMC_PC"`
	Type        string      `xml:"MSS_ST_TYPE"`
	Long        float64     `xml:"MSS_LONG"`
	Lat         float64     `xml:"MSS_LAT"`
	Run         string      `xml:"MSS_RUN"`
	User        string      `xml:"MSS_USER"`
	MonitorTime int         `xml:"MSS_MONITOR_TIME"`
	Devices     []devBlock  `xml:"MSS_DEV"`
	Paths       []pathBlock `xml:"MSS_PATHS"`
}

type devBlock struct {
	Name  string `xml:"D_NAME"`
	State string `xml:"D_STATE"`
}

type pathBlock struct {
	Name    string     `xml:"MP_NAME"`
	FreqL   string     `xml:"MP_FR_L"`
	FreqU   string     `xml:"MP_FR_U"`
	Devices []capBlock `xml:"MP_DEV"`
}

type capBlock struct {
	Name   string   `xml:"D_NAME"`
	Driver string   `xml:"D_DRIVER"`
	Det    []string `xml:"D_DET"`
	IFBW   []string `xml:"D_IFBW"`
	RFAttn []string `xml:"D_RFATTN"`
	Demod  []string `xml:"D_DEMOD"`
	MParam []string `xml:"D_MPARAM"`
}

type measDataBlock struct {
	Freq    string `xml:"MD_M_FREQ"`
	Level   string `xml:"MD_LEV"`
	DLevel  string `xml:"MD_D_LEV"`
	Time    string `xml:"MD_TIME"`
	Bearing string `xml:"MD_DIR"`
}

type freqResBlock struct {
	TxID      string `xml:"TX_ID"`
	Freq      string `xml:"FREQ"`
	FreqL     string `xml:"FREQ_L"`
	FreqU     string `xml:"FREQ_U"`
	Channel   string `xml:"CHANNEL"`
	ChSpacing string `xml:"CH_SPACING"`
	Bandwidth string `xml:"BANDWIDTH"`
	TxName    string `xml:"TX_NAME"`
	Spectrum  string `xml:"SPECTRUM_TYPE"`
	TxCount   string `xml:"TX_COUNT"`
}

type txResBlock struct {
	TxID        string `xml:"TX_ID"`
	Freq        string `xml:"FREQ"`
	Service     string `xml:"SERVICE"`
	CallSign    string `xml:"CALL_SIGN"`
	Licensee    string `xml:"LICENSEE"`
	StationName string `xml:"STATION_NAME"`
	City        string `xml:"CITY"`
	Country     string `xml:"COUNTRY"`
	Long        string `xml:"LONG"`
	Lat         string `xml:"LAT"`
	Distance    string `xml:"DISTANCE"`
}

// Decode parses an instrument response document into a typed record. The
// response type is recognized from the ORDER_TYPE discriminator element (or,
// failing that, from the body shape), never from a filename. Unknown
// elements are skipped; missing optional elements default to zero values.
// Decode performs no I/O.
func Decode(data []byte) (*ResponseRecord, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		hdr     respOrderDef
		hasHdr  bool
		monsys  []monsysBlock
		meas    []measDataBlock
		freqRes []freqResBlock
		txRes   []txResBlock

		topRun, topUser, topMonTime       string
		measType, measStation, userString string
		measFiles                         []string
		acdErr, acdErrMess                string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Reason: "malformed XML", Err: err}
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		var derr error
		switch strings.ToUpper(se.Name.Local) {
		case "ORDER_DEF":
			derr = dec.DecodeElement(&hdr, &se)
			hasHdr = true
		case "MONSYS_STRUCTURE", "MONSYS_INFO":
			var b monsysBlock
			if derr = dec.DecodeElement(&b, &se); derr == nil {
				monsys = append(monsys, b)
			}
		case "MEAS_DATA":
			var b measDataBlock
			if derr = dec.DecodeElement(&b, &se); derr == nil {
				meas = append(meas, b)
			}
		case "FREQ_RES":
			var b freqResBlock
			if derr = dec.DecodeElement(&b, &se); derr == nil {
				freqRes = append(freqRes, b)
			}
		case "TX_RES":
			var b txResBlock
			if derr = dec.DecodeElement(&b, &se); derr == nil {
				txRes = append(txRes, b)
			}
		case "MSS_RUN":
			derr = dec.DecodeElement(&topRun, &se)
		case "MSS_USER":
			derr = dec.DecodeElement(&topUser, &se)
		case "MSS_MONITOR_TIME":
			derr = dec.DecodeElement(&topMonTime, &se)
		case "MEAS_TYPE":
			derr = dec.DecodeElement(&measType, &se)
		case "STATION":
			derr = dec.DecodeElement(&measStation, &se)
		case "MEAS_FILE":
			var f string
			if derr = dec.DecodeElement(&f, &se); derr == nil && f != "" {
				measFiles = append(measFiles, f)
			}
		case "ACD_USERSTRING":
			derr = dec.DecodeElement(&userString, &se)
		case "ACD_ERR":
			derr = dec.DecodeElement(&acdErr, &se)
		case "ACD_ERR_MESS":
			derr = dec.DecodeElement(&acdErrMess, &se)
		}
		if derr != nil {
			return nil, &ParseError{Reason: "malformed XML", Err: derr}
		}
	}

	rec := &ResponseRecord{
		OrderID:    strings.TrimSpace(hdr.OrderID),
		OrderState: strings.TrimSpace(hdr.State),
	}
	if code := strings.TrimSpace(acdErr); code != "" && code != "S" && !strings.EqualFold(code, "Success") {
		rec.InstrumentError = &InstrumentError{Code: code, Message: strings.TrimSpace(acdErrMess)}
	}

	rec.Type = classify(hdr.OrderType, monsys, meas, freqRes, txRes)
	if rec.Type == "" {
		if !hasHdr || rec.OrderID == "" {
			return nil, &ParseError{Reason: "no recognizable response content"}
		}
		return nil, &ParseError{Reason: "unknown response type " + strconv.Quote(hdr.OrderType)}
	}

	switch rec.Type {
	case OrderTypeSystemState:
		rec.SystemState = buildSystemState(monsys, topRun, topUser, topMonTime)
	case OrderTypeSystemParams:
		rec.SystemParams = buildSystemParams(monsys)
	case OrderTypeMeasurement:
		rec.Measurement = buildMeasurement(meas, measType, measStation, userString, measFiles)
	case OrderTypeFrequencyQuery:
		rec.Frequencies = buildFrequencies(freqRes)
	case OrderTypeTransmitterQuery:
		rec.Transmitters = buildTransmitters(txRes)
	}
	return rec, nil
}

// classify resolves the response type from the discriminator element, falling
// back to the body shape for documents without a usable header.
func classify(orderType string, monsys []monsysBlock, meas []measDataBlock, freqRes []freqResBlock, txRes []txResBlock) OrderType {
	switch strings.ToUpper(strings.TrimSpace(orderType)) {
	case "GSS":
		return OrderTypeSystemState
	case "GSP":
		return OrderTypeSystemParams
	case "OR":
		return OrderTypeMeasurement
	case "IFL", "IOFL":
		return OrderTypeFrequencyQuery
	case "ITL":
		return OrderTypeTransmitterQuery
	}
	switch {
	case len(freqRes) > 0:
		return OrderTypeFrequencyQuery
	case len(txRes) > 0:
		return OrderTypeTransmitterQuery
	case len(meas) > 0:
		return OrderTypeMeasurement
	case hasPaths(monsys):
		return OrderTypeSystemParams
	case len(monsys) > 0:
		return OrderTypeSystemState
	}
	return ""
}

func hasPaths(monsys []monsysBlock) bool {
	for _, b := range monsys {
		if len(b.Paths) > 0 {
			return true
		}
	}
	return false
}

func buildSystemState(monsys []monsysBlock, topRun, topUser, topMonTime string) *SystemState {
	state := &SystemState{
		Running:     yes(topRun),
		CurrentUser: topUser,
	}
	state.MonitoringTime, _ = strconv.Atoi(strings.TrimSpace(topMonTime))

	for _, b := range monsys {
		st := stationFrom(b)
		for _, d := range b.Devices {
			st.Devices = append(st.Devices, DeviceStatus{Name: d.Name, State: d.State})
		}
		state.Stations = append(state.Stations, st)
		if st.Online {
			state.OnlineStations++
			state.Running = true
		}
		if state.CurrentUser == "" {
			state.CurrentUser = b.User
		}
		if state.MonitoringTime == 0 {
			state.MonitoringTime = b.MonitorTime
		}
	}
	state.TotalStations = len(state.Stations)
	return state
}

func buildSystemParams(monsys []monsysBlock) *SystemParams {
	params := &SystemParams{}
	for _, b := range monsys {
		sp := StationParams{Station: stationFrom(b)}
		for _, p := range b.Paths {
			path := SignalPath{
				Name:        p.Name,
				FreqLowerHz: parseHz(p.FreqL),
				FreqUpperHz: parseHz(p.FreqU),
			}
			for _, d := range p.Devices {
				dev := DeviceCapability{
					Name:           d.Name,
					Driver:         d.Driver,
					Detectors:      d.Det,
					RFAttenuations: d.RFAttn,
					Demodulations:  d.Demod,
					MeasModes:      d.MParam,
				}
				for _, bw := range d.IFBW {
					if hz := parseHz(bw); hz > 0 {
						dev.IFBandwidthsHz = append(dev.IFBandwidthsHz, hz)
					}
				}
				path.Devices = append(path.Devices, dev)
			}
			sp.Paths = append(sp.Paths, path)
		}
		params.Stations = append(params.Stations, sp)
	}
	return params
}

func buildMeasurement(meas []measDataBlock, measType, station, userString string, files []string) *MeasurementResult {
	result := &MeasurementResult{
		MeasurementID: strings.TrimSpace(userString),
		MeasType:      strings.TrimSpace(measType),
		Station:       strings.TrimSpace(station),
		Files:         files,
	}
	for _, m := range meas {
		s := Sample{
			Time:        strings.TrimSpace(m.Time),
			FrequencyHz: parseHz(m.Freq),
		}
		level := m.Level
		if level == "" {
			level = m.DLevel
		}
		s.Level, _ = strconv.ParseFloat(strings.TrimSpace(level), 64)
		if b := strings.TrimSpace(m.Bearing); b != "" {
			if v, err := strconv.ParseFloat(b, 64); err == nil {
				s.Bearing = &v
			}
		}
		result.Samples = append(result.Samples, s)
	}
	return result
}

func buildFrequencies(rows []freqResBlock) []FrequencyEntry {
	out := make([]FrequencyEntry, 0, len(rows))
	for _, r := range rows {
		e := FrequencyEntry{
			FrequencyHz:      parseHz(r.Freq),
			LowerHz:          parseHz(r.FreqL),
			UpperHz:          parseHz(r.FreqU),
			Channel:          strings.TrimSpace(r.Channel),
			ChannelSpacingHz: parseHz(r.ChSpacing),
			BandwidthHz:      parseHz(r.Bandwidth),
			TransmitterName:  strings.TrimSpace(r.TxName),
		}
		e.TxID, _ = strconv.ParseInt(strings.TrimSpace(r.TxID), 10, 64)
		e.SpectrumType, _ = strconv.Atoi(strings.TrimSpace(r.Spectrum))
		e.TransmitterCount, _ = strconv.Atoi(strings.TrimSpace(r.TxCount))
		out = append(out, e)
	}
	return out
}

func buildTransmitters(rows []txResBlock) []TransmitterEntry {
	out := make([]TransmitterEntry, 0, len(rows))
	for _, r := range rows {
		e := TransmitterEntry{
			FrequencyHz: parseHz(r.Freq),
			Service:     strings.TrimSpace(r.Service),
			CallSign:    strings.TrimSpace(r.CallSign),
			Licensee:    strings.TrimSpace(r.Licensee),
			StationName: strings.TrimSpace(r.StationName),
			City:        strings.TrimSpace(r.City),
			Country:     strings.TrimSpace(r.Country),
		}
		e.TxID, _ = strconv.ParseInt(strings.TrimSpace(r.TxID), 10, 64)
		e.Longitude, _ = strconv.ParseFloat(strings.TrimSpace(r.Long), 64)
		e.Latitude, _ = strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
		e.DistanceKm, _ = strconv.ParseFloat(strings.TrimSpace(r.Distance), 64)
		out = append(out, e)
	}
	return out
}

func stationFrom(b monsysBlock) Station {
	return Station{
		Name:      strings.TrimSpace(b.Name),
		RMC:       strings.TrimSpace(b.RMC),
		Host:      strings.TrimSpace(b.RMCPC),
		Type:      strings.TrimSpace(b.Type),
		Longitude: b.Long,
		Latitude:  b.Lat,
		Online:    yes(b.Run),
		User:      strings.TrimSpace(b.User),
	}
}

// parseHz reads a frequency element as integral Hz. Values are never
// rescaled; a document that says 94700000 stays 94700000.
func parseHz(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func yes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Y")
}
