// Package metrics exposes Prometheus collectors for the prediction path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the requests counter.
const (
	OutcomeSuccess       = "success"
	OutcomeAnomaly       = "anomaly"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeConfiguration = "configuration_error"
	OutcomeModelError    = "model_error"
)

type Metrics struct {
	requests      *prometheus.CounterVec
	duration      prometheus.Histogram
	modelDuration prometheus.Histogram
	predicted     prometheus.Histogram
	recordErrors  prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "energy",
			Name:      "prediction_requests_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energy",
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end prediction latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		modelDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energy",
			Name:      "model_call_duration_seconds",
			Help:      "Latency of the regressor call.",
			Buckets:   prometheus.DefBuckets,
		}),
		predicted: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energy",
			Name:      "predicted_consumption_kbtu",
			Help:      "Distribution of predicted consumption.",
			Buckets:   prometheus.ExponentialBuckets(1e4, 4, 10),
		}),
		recordErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "energy",
			Name:      "prediction_record_errors_total",
			Help:      "Predictions that could not be persisted.",
		}),
	}
}

func (m *Metrics) ObserveRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) ObserveModelCall(d time.Duration) {
	if m == nil {
		return
	}
	m.modelDuration.Observe(d.Seconds())
}

func (m *Metrics) ObservePrediction(kbtu float64) {
	if m == nil {
		return
	}
	m.predicted.Observe(kbtu)
}

func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.recordErrors.Inc()
}
