package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics tracks per-endpoint latency and failures of the signal API.
type APIMetrics struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
	limited *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	f := promauto.With(reg)
	return &APIMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chartsignal",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of signal API endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chartsignal",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by signal API endpoint",
			},
			[]string{"endpoint"},
		),
		limited: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chartsignal",
				Subsystem: "api",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records the latency since start.
func (m *APIMetrics) Observe(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *APIMetrics) Error(endpoint string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(endpoint).Inc()
}

func (m *APIMetrics) Limited(endpoint string) {
	if m == nil {
		return
	}
	m.limited.WithLabelValues(endpoint).Inc()
}
