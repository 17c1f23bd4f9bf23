package model

import "encoding/json"

// DeltaUnavailable is the sentinel rendered when no reference line qualifies
// for a query (or the reference is degenerate). Matches what charting hosts
// display as a placeholder.
const DeltaUnavailable = "—"

// QueryEvent is one pointer-movement sample from the interaction host:
// the time under the cursor and the observed value (typically the nearest
// candle's close). Ephemeral, with no identity beyond the event itself.
type QueryEvent struct {
	TimeMs   int64   `json:"t_ms"`
	Observed float64 `json:"value"`
}

// DisplayPayload is the answer to one QueryEvent: a signed-percentage string
// (or DeltaUnavailable) per category, plus the observed value echoed back for
// display.
type DisplayPayload struct {
	Observed        float64 `json:"observed"`
	ResistanceDelta string  `json:"resistance_delta"`
	SupportDelta    string  `json:"support_delta"`
}

// JSON returns the JSON-encoded payload (ignoring errors for hot-path usage).
func (p *DisplayPayload) JSON() []byte {
	b, _ := json.Marshal(p)
	return b
}
