package model

import (
	"encoding/json"
	"time"
)

// Candle is one OHLC bar of the dataset the overlay annotates. Prices are
// float64: these come from historical CSV exports, not a live integer-price
// feed, so there is no fixed-point requirement here.
type Candle struct {
	Dataset string    `json:"dataset"`
	TS      time.Time `json:"ts"`
	Open    float64   `json:"open"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	Close   float64   `json:"close"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
