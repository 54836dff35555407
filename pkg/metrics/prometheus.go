package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	confidence   prometheus.Histogram
	ticksTotal   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastConf     *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsignal_signals_emitted_total",
				Help: "Total number of signal records emitted",
			},
			[]string{"action"},
		),
		confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chartsignal_signal_confidence",
				Help:    "Confidence of emitted signals (placeholder score, not accuracy)",
				Buckets: prometheus.LinearBuckets(80, 1, 16),
			},
		),
		ticksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsignal_ticks_total",
				Help: "Decision cycles by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsignal_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastConf: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chartsignal_last_confidence",
				Help: "Confidence of the last emitted signal per action",
			},
			[]string{"action"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartsignal_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records an emitted signal.
func (r *Recorder) RecordSignal(action string, confidence int) {
	r.signalsTotal.WithLabelValues(action).Inc()
	r.confidence.Observe(float64(confidence))
	r.lastConf.WithLabelValues(action).Set(float64(confidence))
}

// RecordTick records the outcome of one decision cycle.
func (r *Recorder) RecordTick(outcome string) {
	r.ticksTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordSignal(string, int)      {}
func (Noop) RecordTick(string)             {}
func (Noop) RecordError(string)            {}
func (Noop) RecordLatency(string, float64) {}
