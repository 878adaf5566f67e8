// Package monitoring exposes Prometheus metrics for the bridge dispatch path.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It satisfies the dispatcher's
// MetricsRecorder so the dispatch path stays decoupled from prometheus.
type Metrics struct {
	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec

	// Donation metrics
	DonationsTotal *prometheus.CounterVec

	// Registry metrics
	RegisteredIntents prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a metrics collector registered on reg. Tests pass a
// fresh prometheus.NewRegistry so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// Invocation metrics
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_invocations_total",
				Help: "Total number of intent invocations by outcome",
			},
			[]string{"intent", "outcome"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_invocation_duration_seconds",
				Help:    "Intent invocation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"intent"},
		),

		// Donation metrics
		DonationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_donations_total",
				Help: "Total number of donation attempts by outcome",
			},
			[]string{"outcome"},
		),

		// Registry metrics
		RegisteredIntents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_registered_intents",
				Help: "Number of intents currently registered",
			},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// ObserveInvocation records one completed invocation. The outcome is "ok",
// "failed", or a bridge error code.
func (m *Metrics) ObserveInvocation(identifier, outcome string, elapsed time.Duration) {
	m.InvocationsTotal.WithLabelValues(identifier, outcome).Inc()
	m.InvocationDuration.WithLabelValues(identifier).Observe(elapsed.Seconds())
}

// ObserveDonation records one donation attempt.
func (m *Metrics) ObserveDonation(ok bool) {
	if ok {
		m.DonationsTotal.WithLabelValues("ok").Inc()
	} else {
		m.DonationsTotal.WithLabelValues("failed").Inc()
	}
}

// SetRegisteredIntents sets the registered intents gauge.
func (m *Metrics) SetRegisteredIntents(count int) {
	m.RegisteredIntents.Set(float64(count))
}
