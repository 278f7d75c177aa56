package features

import (
	"fmt"
	"time"
)

// Model feature names.
const (
	FClose        = "close"
	FLow          = "low"
	FLogRet       = "log_ret"
	FOBV          = "obv"
	FVWAP         = "vwap"
	FHourSin      = "hour_sin"
	FHourCos      = "hour_cos"
	FDowSin       = "dow_sin"
	FCloseStd60   = "close_std_60"
	FATR14        = "atr_14"
	FDowCos       = "dow_cos"
	FCloseStd20   = "close_std_20"
	FCloseSlope60 = "close_slope_60"
	FHourVolume   = "hour_volume"
	FMACDSignal   = "macd_signal"
	FVolume       = "volumeTo"
	FIsWeekend    = "is_weekend"
	FCloseSlope20 = "close_slope_20"
	FRSI7         = "rsi_7"
	FCMF20        = "cmf_20"
	FMACDHist     = "macd_hist"
)

// DefaultFeatures is the ordered column list the models were trained on.
var DefaultFeatures = []string{
	FClose, FLow, FLogRet, FOBV, FVWAP, FHourSin, FHourCos,
	FDowSin, FCloseStd60, FATR14, FDowCos, FCloseStd20, FCloseSlope60, FHourVolume, FMACDSignal,
	FVolume, FIsWeekend, FCloseSlope20, FRSI7, FCMF20, FMACDHist,
}

// Row is one fully defined feature row.
type Row struct {
	Time         time.Time `json:"time"`
	Close        float64   `json:"close"`
	Low          float64   `json:"low"`
	LogRet       float64   `json:"log_ret"`
	OBV          float64   `json:"obv"`
	VWAP         float64   `json:"vwap"`
	HourSin      float64   `json:"hour_sin"`
	HourCos      float64   `json:"hour_cos"`
	DowSin       float64   `json:"dow_sin"`
	CloseStd60   float64   `json:"close_std_60"`
	ATR14        float64   `json:"atr_14"`
	DowCos       float64   `json:"dow_cos"`
	CloseStd20   float64   `json:"close_std_20"`
	CloseSlope60 float64   `json:"close_slope_60"`
	HourVolume   float64   `json:"hour_volume"`
	MACDSignal   float64   `json:"macd_signal"`
	Volume       float64   `json:"volumeTo"`
	IsWeekend    float64   `json:"is_weekend"`
	CloseSlope20 float64   `json:"close_slope_20"`
	RSI7         float64   `json:"rsi_7"`
	CMF20        float64   `json:"cmf_20"`
	MACDHist     float64   `json:"macd_hist"`
}

// Frame is the retained tail of feature rows plus every computed column
// aligned with them.
type Frame struct {
	Rows    []Row
	columns map[string][]float64
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Last returns the newest row. It panics on an empty frame.
func (f *Frame) Last() Row { return f.Rows[len(f.Rows)-1] }

// Column returns a copy of the named column aligned with Rows.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, true
}

// Closes returns the close column.
func (f *Frame) Closes() []float64 {
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.Close
	}
	return out
}

// Matrix returns the last n rows projected onto names, oldest first.
func (f *Frame) Matrix(names []string, n int) ([][]float64, error) {
	if n > len(f.Rows) {
		return nil, fmt.Errorf("need %d rows, have %d", n, len(f.Rows))
	}
	cols := make([][]float64, len(names))
	for j, name := range names {
		col, ok := f.columns[name]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		cols[j] = col
	}
	start := len(f.Rows) - n
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][start+i]
		}
		out[i] = row
	}
	return out, nil
}

func rowAt(cols map[string][]float64, i int, ts time.Time) Row {
	v := func(name string) float64 { return cols[name][i] }
	return Row{
		Time:         ts,
		Close:        v(FClose),
		Low:          v(FLow),
		LogRet:       v(FLogRet),
		OBV:          v(FOBV),
		VWAP:         v(FVWAP),
		HourSin:      v(FHourSin),
		HourCos:      v(FHourCos),
		DowSin:       v(FDowSin),
		CloseStd60:   v(FCloseStd60),
		ATR14:        v(FATR14),
		DowCos:       v(FDowCos),
		CloseStd20:   v(FCloseStd20),
		CloseSlope60: v(FCloseSlope60),
		HourVolume:   v(FHourVolume),
		MACDSignal:   v(FMACDSignal),
		Volume:       v(FVolume),
		IsWeekend:    v(FIsWeekend),
		CloseSlope20: v(FCloseSlope20),
		RSI7:         v(FRSI7),
		CMF20:        v(FCMF20),
		MACDHist:     v(FMACDHist),
	}
}

// NewFrame builds a frame from rows alone. Only the named model features are
// available as columns.
func NewFrame(rows []Row) *Frame {
	f := &Frame{Rows: append([]Row(nil), rows...), columns: make(map[string][]float64, len(DefaultFeatures))}
	for _, name := range DefaultFeatures {
		f.columns[name] = make([]float64, len(rows))
	}
	for i, r := range rows {
		for name, v := range r.values() {
			f.columns[name][i] = v
		}
	}
	return f
}

func (r Row) values() map[string]float64 {
	return map[string]float64{
		FClose: r.Close, FLow: r.Low, FLogRet: r.LogRet, FOBV: r.OBV, FVWAP: r.VWAP,
		FHourSin: r.HourSin, FHourCos: r.HourCos, FDowSin: r.DowSin, FCloseStd60: r.CloseStd60,
		FATR14: r.ATR14, FDowCos: r.DowCos, FCloseStd20: r.CloseStd20, FCloseSlope60: r.CloseSlope60,
		FHourVolume: r.HourVolume, FMACDSignal: r.MACDSignal, FVolume: r.Volume, FIsWeekend: r.IsWeekend,
		FCloseSlope20: r.CloseSlope20, FRSI7: r.RSI7, FCMF20: r.CMF20, FMACDHist: r.MACDHist,
	}
}
