package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for payment and verification attempts.
type Metrics struct {
	registry *prometheus.Registry

	// Finished attempts by kind (verify, pay) and outcome (status or failure reason)
	Attempts *prometheus.CounterVec

	// Duration of a full browser flow by kind
	AttemptDuration *prometheus.HistogramVec

	// Browser flows currently running
	InFlight prometheus.Gauge
}

// New creates a Metrics instance registered on its own registry, so tests can
// build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicepayer_attempts_total",
			Help: "Total finished payment and verification attempts by kind and outcome",
		}, []string{"kind", "outcome"}),

		AttemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicepayer_attempt_duration_seconds",
			Help:    "Duration of browser flows by kind",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"kind"}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "invoicepayer_attempts_in_flight",
			Help: "Browser flows currently running",
		}),
	}
}

// ObserveAttempt records a finished attempt.
func (m *Metrics) ObserveAttempt(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(kind, outcome).Inc()
	m.AttemptDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// Started marks a flow as running and returns the func that marks it done.
func (m *Metrics) Started() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
