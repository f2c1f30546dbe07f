// Package promsink implements analytics.Sink over Prometheus gauges, grounded
// on the pack's stellar-arrow-source/go/metrics.Collector: a dedicated
// registry, one metric family per measurement shape, exposed over
// promhttp.Handler.
package promsink

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iotaledger/chronicle/pkg/analytics"
)

// Sink exposes every Measurement's scalar fields as gauges, keyed by
// analytic name (and, for bucketed measurements, by bucket label too).
type Sink struct {
	mu       sync.Mutex
	registry *prometheus.Registry

	count   *prometheus.GaugeVec
	amount  *prometheus.GaugeVec
	buckets *prometheus.GaugeVec
}

// New builds a Sink with its own registry, so it can be mounted at a
// dedicated /metrics path without colliding with the default global
// registry's process/go collectors (or not, at the caller's choice — see
// Registry).
func New() *Sink {
	registry := prometheus.NewRegistry()
	s := &Sink{
		registry: registry,
		count: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronicle_analytics_count",
			Help: "Scalar count field of the latest measurement for an analytic.",
		}, []string{"analytic"}),
		amount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronicle_analytics_amount",
			Help: "Scalar amount field of the latest measurement for an analytic.",
		}, []string{"analytic"}),
		buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronicle_analytics_bucket",
			Help: "Bucketed measurement value for an analytic, labeled by bucket key.",
		}, []string{"analytic", "bucket"}),
	}
	registry.MustRegister(s.count, s.amount, s.buckets)
	return s
}

// Emit implements analytics.Sink.
func (s *Sink) Emit(m analytics.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Count != 0 {
		s.count.WithLabelValues(m.Name).Set(float64(m.Count))
	}
	if m.Amount != 0 {
		s.amount.WithLabelValues(m.Name).Set(float64(m.Amount))
	}
	for bucket, value := range m.Buckets {
		s.buckets.WithLabelValues(m.Name, bucket).Set(float64(value))
	}
	return nil
}

// Handler returns the http.Handler serving this sink's registry in
// Prometheus exposition format, for mounting under /metrics (spec.md's
// health/metrics HTTP endpoint, SPEC_FULL.md §2).
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
