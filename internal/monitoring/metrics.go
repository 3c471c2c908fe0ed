// Package monitoring provides Prometheus metrics for dispatch operations.
package monitoring

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the notifier.
type Metrics struct {
	// DispatchCyclesTotal counts completed dispatch cycles by trigger and status.
	DispatchCyclesTotal *prometheus.CounterVec

	// SendsTotal counts individual send attempts by status.
	SendsTotal *prometheus.CounterVec

	// SendDuration tracks per-send latency.
	SendDuration prometheus.Histogram

	// RecipientsResolved tracks how many eligible recipients each cycle produced.
	RecipientsResolved prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers the notifier metrics on the given
// registry. A nil registry creates a private one.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		DispatchCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_dispatch_cycles_total",
				Help: "Total number of dispatch cycles by trigger and status",
			},
			[]string{"trigger", "status"}, // status: completed, input_error, lookup_error, auth_error, skipped_duplicate
		),
		SendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_sends_total",
				Help: "Total number of individual send attempts by status",
			},
			[]string{"status"}, // status: success, error
		),
		SendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifier_send_duration_seconds",
				Help:    "Time taken for one send request to the push gateway",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),
		RecipientsResolved: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifier_recipients_resolved",
				Help:    "Number of eligible recipients per dispatch cycle",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		registry: registry,
	}

	collectors := []prometheus.Collector{
		m.DispatchCyclesTotal,
		m.SendsTotal,
		m.SendDuration,
		m.RecipientsResolved,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

// ObserveSend records one send attempt.
func (m *Metrics) ObserveSend(d time.Duration, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	m.SendsTotal.WithLabelValues(status).Inc()
	m.SendDuration.Observe(d.Seconds())
}

// RecordCycle records a completed dispatch cycle.
func (m *Metrics) RecordCycle(trigger, status string) {
	m.DispatchCyclesTotal.WithLabelValues(trigger, status).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
