package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal     *prometheus.CounterVec
	skipsTotal      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	predictorErrors *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	regime          prometheus.Gauge
	lastPrice       prometheus.Gauge
	predictedPrice  prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_cycles_total",
				Help: "Decision cycles by outcome",
			},
			[]string{"outcome"},
		),
		skipsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_cycle_skips_total",
				Help: "Skipped or aborted cycles by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		predictorErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_predictor_errors_total",
				Help: "Predictor failures by model",
			},
			[]string{"model"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_signals_total",
				Help: "Signals emitted per pipeline stage",
			},
			[]string{"stage", "signal"},
		),
		regime: f.NewGauge(prometheus.GaugeOpts{
			Name: "tradepulse_regime",
			Help: "Current market regime id (1..4)",
		}),
		lastPrice: f.NewGauge(prometheus.GaugeOpts{
			Name: "tradepulse_last_price",
			Help: "Close of the latest bar in the window",
		}),
		predictedPrice: f.NewGauge(prometheus.GaugeOpts{
			Name: "tradepulse_predicted_price",
			Help: "Latest ensemble price forecast",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepulse_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordCycle counts a finished cycle.
func (r *Recorder) RecordCycle(outcome string) {
	r.cyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordSkip counts a skipped or aborted cycle by reason.
func (r *Recorder) RecordSkip(reason string) {
	r.skipsTotal.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordPredictorError records a failed model call.
func (r *Recorder) RecordPredictorError(model string) {
	r.predictorErrors.WithLabelValues(model).Inc()
}

// RecordSignal records the signal produced by a stage.
func (r *Recorder) RecordSignal(stage, signal string) {
	r.signalsTotal.WithLabelValues(stage, signal).Inc()
}

// RecordRegime sets the regime gauge.
func (r *Recorder) RecordRegime(id int) {
	r.regime.Set(float64(id))
}

// RecordLastPrice records the last observed close.
func (r *Recorder) RecordLastPrice(price float64) {
	r.lastPrice.Set(price)
}

// RecordPredictedPrice records the latest forecast.
func (r *Recorder) RecordPredictedPrice(price float64) {
	r.predictedPrice.Set(price)
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCycle(string)            {}
func (Nop) RecordSkip(string)             {}
func (Nop) RecordError(string)            {}
func (Nop) RecordPredictorError(string)   {}
func (Nop) RecordSignal(string, string)   {}
func (Nop) RecordRegime(int)              {}
func (Nop) RecordLastPrice(float64)       {}
func (Nop) RecordPredictedPrice(float64)  {}
func (Nop) RecordLatency(string, float64) {}
