// Package metrics exposes Prometheus collectors for captures and delivery.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "domsnap"

// Outcomes recorded on captures_total.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	capturesTotal    *prometheus.CounterVec
	captureDuration  *prometheus.HistogramVec
	captureNodes     prometheus.Histogram
	baselineMisses   prometheus.Counter
	deliveryFailures *prometheus.CounterVec
	pickersActive    prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		capturesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Captures by source and outcome",
		}, []string{"source", "outcome"}),

		captureDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Time from capture request to serialized JSON",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		captureNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_nodes",
			Help:      "Serialized element count per capture",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16384
		}),

		baselineMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "baseline_misses_total",
			Help:      "Baseline styles measured (one per distinct tag per capture)",
		}),

		deliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Failed deliveries by sink",
		}, []string{"sink"}),

		pickersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pickers_active",
			Help:      "Tabs with an active element picker",
		}),
	}
}

// ObserveCapture records one finished capture attempt.
func (m *Metrics) ObserveCapture(source, outcome string, elapsed time.Duration, nodes, baselineMisses int) {
	if m == nil {
		return
	}
	m.capturesTotal.WithLabelValues(source, outcome).Inc()
	m.captureDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		m.captureNodes.Observe(float64(nodes))
		m.baselineMisses.Add(float64(baselineMisses))
	}
}

// DeliveryFailed counts a failed sink delivery.
func (m *Metrics) DeliveryFailed(sink string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(sink).Inc()
}

// SetPickersActive sets the active picker gauge.
func (m *Metrics) SetPickersActive(n int) {
	if m == nil {
		return
	}
	m.pickersActive.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
