package features

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// Series helpers. Positions without enough history hold NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// shift returns x lagged by k positions.
func shift(x []float64, k int) []float64 {
	out := nanSeries(len(x))
	for i := k; i < len(x); i++ {
		out[i] = x[i-k]
	}
	return out
}

// rollingMean is the simple moving average over w points, NaN before w-1.
func rollingMean(x []float64, w int) []float64 {
	if w < 1 || len(x) < w {
		return nanSeries(len(x))
	}
	out := talib.Sma(x, w)
	for i := 0; i < w-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

// rollingStd is the sample standard deviation (n-1 denominator) over w points.
func rollingStd(x []float64, w int) []float64 {
	out := nanSeries(len(x))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(x); i++ {
		win := x[i-w+1 : i+1]
		mean := 0.0
		for _, v := range win {
			mean += v
		}
		mean /= float64(w)
		ss := 0.0
		for _, v := range win {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// rollingSlope fits y = a + b*t over each window of w points (t = 0..w-1) and returns b.
func rollingSlope(x []float64, w int) []float64 {
	out := nanSeries(len(x))
	if w < 2 {
		return out
	}
	tMean := float64(w-1) / 2
	den := 0.0
	for t := 0; t < w; t++ {
		d := float64(t) - tMean
		den += d * d
	}
	for i := w - 1; i < len(x); i++ {
		win := x[i-w+1 : i+1]
		yMean := 0.0
		for _, v := range win {
			yMean += v
		}
		yMean /= float64(w)
		num := 0.0
		for t, v := range win {
			num += (float64(t) - tMean) * (v - yMean)
		}
		out[i] = num / den
	}
	return out
}

// Slope is the least-squares slope of y against its index.
func Slope(y []float64) float64 {
	if len(y) < 2 {
		return math.NaN()
	}
	s := rollingSlope(y, len(y))
	return s[len(s)-1]
}

// ema is the recursive exponential average seeded with the first value.
func ema(x []float64, span int) []float64 {
	out := nanSeries(len(x))
	if len(x) == 0 {
		return out
	}
	alpha := 2 / (float64(span) + 1)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// trueRange uses high-low for the first bar.
func trueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

func vwap(high, low, close, volume []float64) []float64 {
	out := make([]float64, len(close))
	pv, vol := 0.0, 0.0
	for i := range close {
		tp := (high[i] + low[i] + close[i]) / 3
		pv += tp * volume[i]
		vol += volume[i]
		out[i] = pv / vol
	}
	return out
}

// obv accumulates signed volume. A non-positive change, including the first bar, counts as -1.
func obv(close, volume []float64) []float64 {
	out := make([]float64, len(close))
	acc := 0.0
	for i := range close {
		sign := -1.0
		if i > 0 && close[i]-close[i-1] > 0 {
			sign = 1
		}
		acc += sign * volume[i]
		out[i] = acc
	}
	return out
}

func moneyFlowVolume(high, low, close, volume []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		out[i] = ((close[i] - low[i]) - (high[i] - close[i])) / (high[i] - low[i] + 1e-9) * volume[i]
	}
	return out
}

// cmf is the ratio of rolling money-flow volume to rolling volume.
func cmf(mfv, volume []float64, w int) []float64 {
	num := rollingMean(mfv, w)
	den := rollingMean(volume, w)
	out := make([]float64, len(mfv))
	for i := range out {
		out[i] = num[i] / den[i]
	}
	return out
}

// rsi averages clipped gains and losses with a simple rolling mean.
// A zero average loss leaves the value undefined.
func rsi(close []float64, w int) []float64 {
	n := len(close)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := rollingMean(gains, w)
	avgLoss := rollingMean(losses, w)
	out := nanSeries(n)
	for i := w; i < n; i++ {
		if avgLoss[i] == 0 || !finite(avgLoss[i]) {
			continue
		}
		out[i] = 100 - 100/(1+avgGain[i]/avgLoss[i])
	}
	return out
}

// logReturns computes ln(c_t/c_{t-1} + 1e-9); the first value is undefined.
func logReturns(close []float64) []float64 {
	out := nanSeries(len(close))
	for i := 1; i < len(close); i++ {
		out[i] = math.Log(close[i]/close[i-1] + 1e-9)
	}
	return out
}

// PctChange is the simple return series of x; the first value is undefined.
func PctChange(x []float64) []float64 {
	out := nanSeries(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i]/x[i-1] - 1
	}
	return out
}

// SampleStd skips non-finite values and needs at least two points.
func SampleStd(x []float64) float64 {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if finite(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) < 2 {
		return math.NaN()
	}
	return rollingStd(vals, len(vals))[len(vals)-1]
}

// Mean skips non-finite values.
func Mean(x []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range x {
		if finite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
