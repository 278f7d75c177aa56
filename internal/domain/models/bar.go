package models

import (
	"math"
	"time"
)

// Bar is one OHLCV record for a one-minute interval. Time is the unique key.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Unix returns the bar timestamp in unix seconds.
func (b Bar) Unix() int64 { return b.Time.Unix() }

// Finite reports whether every price and volume field is a finite number.
func (b Bar) Finite() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
