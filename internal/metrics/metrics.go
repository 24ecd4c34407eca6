package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels a rate limit decision.
type Outcome string

const (
	OutcomeAdmitted Outcome = "admitted"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// Metrics holds the rate limiter collectors and the registry they live in.
type Metrics struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	eventFailures prometheus.Counter
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratelimit",
			Name:      "requests_total",
			Help:      "Rate limit decisions by outcome.",
		}, []string{"outcome"}),
		eventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ratelimit",
			Name:      "event_publish_failures_total",
			Help:      "Limit exceeded events that could not be published.",
		}),
	}

	registry.MustRegister(m.decisions, m.eventFailures)

	return m
}

// RecordDecision counts one request with the given outcome.
func (m *Metrics) RecordDecision(outcome Outcome) {
	m.decisions.WithLabelValues(string(outcome)).Inc()
}

// RecordEventFailure counts one failed event publish.
func (m *Metrics) RecordEventFailure() {
	m.eventFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
