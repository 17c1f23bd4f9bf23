package gateway

// CursorMsg is the WS request sent by the charting host on each pointer
// movement: the time under the cursor and the observed value (nearest
// candle close).
type CursorMsg struct {
	Type     string  `json:"type"` // "CURSOR"
	ReqID    string  `json:"req_id,omitempty"`
	TimeMs   int64   `json:"t_ms"`
	Observed float64 `json:"value"`
}

// OverlayMsg is the WS reply to one CursorMsg.
type OverlayMsg struct {
	Type            string  `json:"type"` // "OVERLAY"
	ReqID           string  `json:"req_id,omitempty"`
	Observed        float64 `json:"observed"`
	ResistanceDelta string  `json:"resistance_delta"`
	SupportDelta    string  `json:"support_delta"`
}

// SegmentOut is the REST/WS representation of one compiled segment, enough
// for a host to draw the line and know its selection key.
type SegmentOut struct {
	Category  string  `json:"category"`
	StartMs   int64   `json:"start_ms"`
	EndMs     int64   `json:"end_ms"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// CandleOut is the REST response type for /api/candles.
type CandleOut struct {
	TS    string  `json:"ts"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ErrorMsg is the WS error envelope.
type ErrorMsg struct {
	Type  string `json:"type"` // "ERROR"
	ReqID string `json:"req_id,omitempty"`
	Error string `json:"error"`
}
