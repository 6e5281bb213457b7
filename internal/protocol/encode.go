package protocol

import (
	"encoding/xml"
	"fmt"
)

// Fixed header literals the instrument expects verbatim.
const (
	orderCreator  = "Extern"
	executionType = "A"
	orderVersion  = "200"
	xsiNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	wireTime      = "2006-01-02T15:04:05"
)

// Codec builds order documents for the instrument and parses its responses.
// Sender and SenderPC identify the issuing control station in every header.
type Codec struct {
	Sender   string
	SenderPC string
}

// NewCodec constructs a codec with the given sender identity.
func NewCodec(sender, senderPC string) *Codec {
	return &Codec{Sender: sender, SenderPC: senderPC}
}

type orderDocument struct {
	XMLName xml.Name     `xml:"XMLSchema1"`
	XSI     string       `xml:"xmlns:xsi,attr"`
	Def     orderDef     `xml:"ORDER_DEF"`
	Sub     *subOrderDef `xml:"SUB_ORDER_DEF,omitempty"`
	SMDI    *smdiDef     `xml:"SMDI_DEF,omitempty"`
}

type orderDef struct {
	OrderID   string `xml:"ORDER_ID"`
	OrderType string `xml:"ORDER_TYPE"`
	OrderName string `xml:"ORDER_NAME"`
	Sender    string `xml:"ORDER_SENDER"`
	SenderPC  string `xml:"ORDER_SENDER_PC"`
	State     string `xml:"ORDER_STATE"`
	Creator   string `xml:"ORDER_CREATOR"`
	ExecType  string `xml:"EXECUTION_TYPE"`
	Version   string `xml:"ORDER_VER"`
}

type subOrderDef struct {
	Name         string `xml:"SUBORDER_NAME"`
	State        string `xml:"SUBORDER_STATE"`
	Task         string `xml:"SUBORDER_TASK"`
	ResultType   string `xml:"RESULT_TYPE"`
	ResultFormat string `xml:"RESULT_FORMAT"`

	Act struct {
		UserString string `xml:"ACD_USERSTRING"`
	} `xml:"ACT_DEF"`

	Station struct {
		Station     string `xml:"MSP_STATION"`
		StationType string `xml:"MSP_STATION_TYPE,omitempty"`
		SignalPath  string `xml:"MSP_SIG_PATH,omitempty"`
	} `xml:"MSP_DEF"`

	Freq     freqParam  `xml:"FREQ_PARAM"`
	FreqList []freqItem `xml:"FREQ_LST,omitempty"`

	IFBandwidth   int64  `xml:"IF_BANDWIDTH,omitempty"`
	RFAttenuation string `xml:"RF_ATTENUATION,omitempty"`
	Demodulation  string `xml:"DEMOD,omitempty"`

	MDT struct {
		DataType   string  `xml:"MEAS_DATA_TYPE"`
		MeasTime   float64 `xml:"MEAS_TIME"`
		DetectType string  `xml:"DETECT_TYPE,omitempty"`
	} `xml:"MDT_PARAM"`

	Antenna *antParam  `xml:"ANT_PARAM,omitempty"`
	Time    *timeParam `xml:"TIME_PARAM,omitempty"`
	Loc     *locDef    `xml:"LOC_DEF,omitempty"`

	Operator string `xml:"OPERATOR_NAME,omitempty"`
}

type freqParam struct {
	Mode   string `xml:"FREQ_PAR_MODE"`
	Single int64  `xml:"FREQ_PAR_S,omitempty"`
	Lower  int64  `xml:"FREQ_PAR_RG_L,omitempty"`
	Upper  int64  `xml:"FREQ_PAR_RG_U,omitempty"`
	Step   int64  `xml:"FREQ_PAR_STEP,omitempty"`
}

type freqItem struct {
	Freq int64 `xml:"FREQ"`
}

type antParam struct {
	Port string `xml:"ANT_PORT,omitempty"`
	Mode string `xml:"ANT_MODE,omitempty"`
}

type timeParam struct {
	Mode  string `xml:"TIME_MODE"`
	Start string `xml:"START_TIME,omitempty"`
	Stop  string `xml:"STOP_TIME,omitempty"`
}

type locDef struct {
	LongDeg int     `xml:"LONG_DEG"`
	LongMin int     `xml:"LONG_MIN"`
	LongSec float64 `xml:"LONG_SEC"`
	LongHem string  `xml:"LONG_HEM"`
	LatDeg  int     `xml:"LAT_DEG"`
	LatMin  int     `xml:"LAT_MIN"`
	LatSec  float64 `xml:"LAT_SEC"`
	LatHem  string  `xml:"LAT_HEM"`
	Height  float64 `xml:"HEIGHT"`
}

type smdiDef struct {
	ListName         string `xml:"LIST_NAME,omitempty"`
	ResultOption     string `xml:"RESULT_OPTION,omitempty"`
	IncludeBandwidth string `xml:"INCL_BW"`

	Freq     freqParam  `xml:"FREQ_PARAM"`
	FreqList []freqItem `xml:"FREQ_LST,omitempty"`

	Loc struct {
		Mode    string  `xml:"LOC_MODE"`
		Country string  `xml:"COUNTRY,omitempty"`
		City    string  `xml:"CITY,omitempty"`
		ZipCode string  `xml:"ZIP_CODE,omitempty"`
		Coord   *locDef `xml:"LOC_COORD,omitempty"`
		Radius  float64 `xml:"RADIUS,omitempty"`
	} `xml:"LOC_PARAM"`

	Service  string `xml:"SERVICE,omitempty"`
	CallSign string `xml:"CALL_SIGN,omitempty"`
	Licensee string `xml:"LICENSEE,omitempty"`
}

// Encode validates the payload and builds the order document for the given
// id. It is a pure function of its inputs: nothing is written anywhere.
func (c *Codec) Encode(orderID string, req Request) ([]byte, error) {
	if req == nil {
		return nil, &ValidationError{Reason: "nil request"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc := orderDocument{
		XSI: xsiNamespace,
		Def: orderDef{
			OrderID:   orderID,
			OrderType: string(req.Type()),
			Sender:    c.Sender,
			SenderPC:  c.SenderPC,
			State:     OrderStateOpen,
			Creator:   orderCreator,
			ExecType:  executionType,
			Version:   orderVersion,
		},
	}

	switch r := req.(type) {
	case SystemStateQuery:
		doc.Def.OrderName = "SystemStateQuery"
	case SystemParamsQuery:
		doc.Def.OrderName = "SystemParametersQuery"
	case MeasurementOrder:
		doc.Def.OrderName = orderName(r.Name, "Measurement Order")
		doc.Sub = buildSubOrder(orderID, r)
	case SMDIQuery:
		doc.Def.OrderName = orderName(r.ListName, "SMDI Query")
		doc.SMDI = buildSMDI(r)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported request type %T", req)}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

func orderName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func buildSubOrder(orderID string, m MeasurementOrder) *subOrderDef {
	sub := &subOrderDef{
		Name:         orderName(m.SuborderName, "Measurement"),
		State:        OrderStateOpen,
		Task:         m.Task,
		ResultType:   orderName(m.ResultType, "MR"),
		ResultFormat: "XML",

		IFBandwidth:   m.Receiver.IFBandwidthHz,
		RFAttenuation: orderName(m.Receiver.RFAttenuation, "Auto"),
		Demodulation:  m.Receiver.Demodulation,
		Operator:      m.Operator,
	}
	sub.Act.UserString = orderID + "_SUB"
	sub.Station.Station = m.Station
	sub.Station.StationType = m.StationTyp
	sub.Station.SignalPath = m.SignalPath

	sub.Freq = freqParam{Mode: m.FreqMode}
	switch m.FreqMode {
	case FreqModeSingle:
		sub.Freq.Single = m.FreqSingle
	case FreqModeRange:
		sub.Freq.Lower = m.FreqStart
		sub.Freq.Upper = m.FreqStop
		sub.Freq.Step = m.FreqStep
	case FreqModeList:
		for _, f := range m.FreqList {
			sub.FreqList = append(sub.FreqList, freqItem{Freq: f})
		}
	}

	sub.MDT.DataType = orderName(m.MeasDataTyp, "LV")
	sub.MDT.MeasTime = m.Receiver.MeasTime
	if sub.MDT.MeasTime == 0 {
		sub.MDT.MeasTime = -1
	}
	sub.MDT.DetectType = m.Receiver.Detector

	if m.Antenna != (AntennaParams{}) {
		sub.Antenna = &antParam{Port: m.Antenna.Port, Mode: m.Antenna.Mode}
	}
	if m.TimeMode != "" {
		sub.Time = &timeParam{Mode: m.TimeMode}
		if !m.StartTime.IsZero() {
			sub.Time.Start = m.StartTime.UTC().Format(wireTime)
		}
		if !m.StopTime.IsZero() {
			sub.Time.Stop = m.StopTime.UTC().Format(wireTime)
		}
	}
	if m.Location != nil {
		sub.Loc = buildLoc(*m.Location)
	}
	return sub
}

func buildLoc(l Location) *locDef {
	return &locDef{
		LongDeg: l.Longitude.Degrees,
		LongMin: l.Longitude.Minutes,
		LongSec: l.Longitude.Seconds,
		LongHem: l.Longitude.Hemisphere,
		LatDeg:  l.Latitude.Degrees,
		LatMin:  l.Latitude.Minutes,
		LatSec:  l.Latitude.Seconds,
		LatHem:  l.Latitude.Hemisphere,
		Height:  l.HeightM,
	}
}

func buildSMDI(q SMDIQuery) *smdiDef {
	def := &smdiDef{
		ListName:         q.ListName,
		ResultOption:     q.ResultOption,
		IncludeBandwidth: yesNo(q.IncludeBandwidth),
		Service:          q.Service,
		CallSign:         q.CallSign,
		Licensee:         q.Licensee,
	}
	mode := q.Frequency.Mode
	if mode == "" {
		mode = FreqModeNone
	}
	def.Freq = freqParam{Mode: mode}
	switch mode {
	case FreqModeSingle:
		def.Freq.Single = q.Frequency.Single
	case FreqModeRange:
		def.Freq.Lower = q.Frequency.Lower
		def.Freq.Upper = q.Frequency.Upper
		def.Freq.Step = q.Frequency.Step
	case FreqModeList:
		for _, f := range q.Frequency.List {
			def.FreqList = append(def.FreqList, freqItem{Freq: f})
		}
	}

	def.Loc.Mode = orderName(q.Location.Mode, "N")
	def.Loc.Country = q.Location.Country
	def.Loc.City = q.Location.City
	def.Loc.ZipCode = q.Location.ZipCode
	def.Loc.Radius = q.Location.RadiusKm
	if q.Location.Coord != nil {
		def.Loc.Coord = buildLoc(*q.Location.Coord)
	}
	return def
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
