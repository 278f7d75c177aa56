package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"TradePulse/internal/domain/models"
)

// ErrFeatureComputation marks windows that cannot be turned into features.
var ErrFeatureComputation = errors.New("feature computation failed")

const (
	atrPeriod  = 14
	rsiPeriod  = 7
	cmfPeriod  = 20
	macdFast   = 8
	macdSlow   = 17
	macdSignal = 9
	bbPeriod   = 20
)

// Config controls the engine.
type Config struct {
	Lookback  int
	StepAhead int
	Features  []string
}

// Engine turns a bar window into a Frame.
type Engine struct {
	lookback  int
	stepAhead int
	features  []string
	lags      []int
	windows   []int
}

// NewEngine validates the feature list against the columns the engine produces.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Lookback < 2 {
		return nil, fmt.Errorf("lookback must be >= 2, got %d", cfg.Lookback)
	}
	if len(cfg.Features) == 0 {
		cfg.Features = DefaultFeatures
	}
	e := &Engine{
		lookback:  cfg.Lookback,
		stepAhead: cfg.StepAhead,
		features:  append([]string(nil), cfg.Features...),
		lags:      uniqueInts(5, 20, 60, cfg.Lookback),
		windows:   uniqueInts(20, 60, cfg.Lookback),
	}
	known := make(map[string]bool)
	for _, name := range e.columnNames() {
		known[name] = true
	}
	for _, name := range e.features {
		if !known[name] {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
	}
	return e, nil
}

func (e *Engine) Lookback() int { return e.lookback }

func (e *Engine) StepAhead() int { return e.stepAhead }

func (e *Engine) Features() []string { return append([]string(nil), e.features...) }

func (e *Engine) FeatureCount() int { return len(e.features) }

// Warmup is the number of leading bars that can never yield a complete row.
func (e *Engine) Warmup() int {
	w := atrPeriod - 1
	for _, l := range e.lags {
		w = max(w, l)
	}
	for _, n := range e.windows {
		w = max(w, n-1)
	}
	return max(w, cmfPeriod-1, rsiPeriod)
}

// MinBars is the window length needed for a full lookback of rows.
func (e *Engine) MinBars() int { return e.Warmup() + e.lookback }

// Compute derives every indicator column, drops rows where any column is
// missing and keeps the newest lookback rows. Only past bars feed each row.
func (e *Engine) Compute(bars []models.Bar) (*Frame, error) {
	if err := validate(bars); err != nil {
		return nil, err
	}
	n := len(bars)
	cols := make(map[string][]float64, 48)

	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	cl := make([]float64, n)
	vol := make([]float64, n)
	for i, b := range bars {
		open[i], high[i], low[i], cl[i], vol[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	cols["open"], cols["high"], cols[FLow], cols[FClose], cols[FVolume] = open, high, low, cl, vol

	for _, l := range e.lags {
		cols[fmt.Sprintf("close_lag_%d", l)] = shift(cl, l)
	}
	for _, w := range e.windows {
		cols[fmt.Sprintf("close_ma_%d", w)] = rollingMean(cl, w)
		cols[fmt.Sprintf("close_std_%d", w)] = rollingStd(cl, w)
		cols[fmt.Sprintf("close_slope_%d", w)] = rollingSlope(cl, w)
	}

	tr := trueRange(high, low, cl)
	cols["tr"] = tr
	cols[FATR14] = rollingMean(tr, atrPeriod)
	cols[FVWAP] = vwap(high, low, cl, vol)
	cols[FOBV] = obv(cl, vol)
	mfv := moneyFlowVolume(high, low, cl, vol)
	cols["mfv"] = mfv
	cols[FCMF20] = cmf(mfv, vol, cmfPeriod)
	cols[FRSI7] = rsi(cl, rsiPeriod)

	fast := ema(cl, macdFast)
	slow := ema(cl, macdSlow)
	macd := make([]float64, n)
	for i := range macd {
		macd[i] = fast[i] - slow[i]
	}
	sig := ema(macd, macdSignal)
	hist := make([]float64, n)
	for i := range hist {
		hist[i] = macd[i] - sig[i]
	}
	cols["ema_8"], cols["ema_17"] = fast, slow
	cols["macd"], cols[FMACDSignal], cols[FMACDHist] = macd, sig, hist

	ma20 := cols[fmt.Sprintf("close_ma_%d", bbPeriod)]
	std20 := cols[fmt.Sprintf("close_std_%d", bbPeriod)]
	bb := make([]float64, n)
	for i := range bb {
		bb[i] = (cl[i] - (ma20[i] - 2*std20[i])) / (4 * std20[i])
	}
	cols["bb_position"] = bb
	cols[FLogRet] = logReturns(cl)

	e.timeColumns(bars, vol, cols)
	pivotColumns(high, low, cl, cols)

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ok := true
		for _, col := range cols {
			if !finite(col[i]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) > e.lookback {
		keep = keep[len(keep)-e.lookback:]
	}

	frame := &Frame{Rows: make([]Row, len(keep)), columns: make(map[string][]float64, len(cols))}
	for name, col := range cols {
		out := make([]float64, len(keep))
		for j, i := range keep {
			out[j] = col[i]
		}
		frame.columns[name] = out
	}
	for j, i := range keep {
		frame.Rows[j] = rowAt(frame.columns, j, bars[i].Time)
	}
	return frame, nil
}

func (e *Engine) timeColumns(bars []models.Bar, vol []float64, cols map[string][]float64) {
	n := len(bars)
	hs, hc := make([]float64, n), make([]float64, n)
	ds, dc := make([]float64, n), make([]float64, n)
	we, hv := make([]float64, n), make([]float64, n)
	for i, b := range bars {
		if b.Time.IsZero() {
			hc[i], dc[i] = 1, 1
			continue
		}
		t := b.Time.UTC()
		hour := float64(t.Hour()) + float64(t.Minute())/60
		dow := float64((int(t.Weekday()) + 6) % 7)
		hs[i] = math.Sin(2 * math.Pi * hour / 24)
		hc[i] = math.Cos(2 * math.Pi * hour / 24)
		ds[i] = math.Sin(2 * math.Pi * dow / 7)
		dc[i] = math.Cos(2 * math.Pi * dow / 7)
		if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
			we[i] = 1
		}
		hv[i] = hs[i] * vol[i]
	}
	cols[FHourSin], cols[FHourCos] = hs, hc
	cols[FDowSin], cols[FDowCos] = ds, dc
	cols[FIsWeekend], cols[FHourVolume] = we, hv
}

func pivotColumns(high, low, cl []float64, cols map[string][]float64) {
	n := len(cl)
	pivot, s1, r1 := nanSeries(n), nanSeries(n), nanSeries(n)
	for i := 1; i < n; i++ {
		p := (high[i-1] + low[i-1] + cl[i-1]) / 3
		pivot[i] = p
		s1[i] = 2*p - high[i-1]
		r1[i] = 2*p - low[i-1]
	}
	cols["pivot"], cols["support_1"], cols["resistance_1"] = pivot, s1, r1
}

// columnNames lists every column Compute produces.
func (e *Engine) columnNames() []string {
	names := []string{
		"open", "high", FLow, FClose, FVolume, "tr", FATR14, FVWAP, FOBV, "mfv", FCMF20, FRSI7,
		"ema_8", "ema_17", "macd", FMACDSignal, FMACDHist, "bb_position", FLogRet,
		FHourSin, FHourCos, FDowSin, FDowCos, FIsWeekend, FHourVolume,
		"pivot", "support_1", "resistance_1",
	}
	for _, l := range e.lags {
		names = append(names, fmt.Sprintf("close_lag_%d", l))
	}
	for _, w := range e.windows {
		names = append(names,
			fmt.Sprintf("close_ma_%d", w),
			fmt.Sprintf("close_std_%d", w),
			fmt.Sprintf("close_slope_%d", w))
	}
	return names
}

func validate(bars []models.Bar) error {
	for i, b := range bars {
		if !b.Finite() {
			return fmt.Errorf("%w: bar %d has non-finite values", ErrFeatureComputation, i)
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%w: bar %d has non-positive price", ErrFeatureComputation, i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: bar %d has negative volume", ErrFeatureComputation, i)
		}
	}
	return nil
}

func uniqueInts(vals ...int) []int {
	seen := make(map[int]bool, len(vals))
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if v > 0 && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
