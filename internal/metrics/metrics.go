// Package metrics exposes conversion counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion outcomes.
const (
	OutcomeParsed = "parsed"
	OutcomeSample = "sample"
	OutcomeError  = "error"
)

// Metrics holds the collectors recorded by the HTTP layer.
type Metrics struct {
	registry     *prometheus.Registry
	conversions  *prometheus.CounterVec
	transactions prometheus.Histogram
	extraction   *prometheus.HistogramVec
	errors       *prometheus.CounterVec
}

// New registers the collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "conversions_total",
			Help:      "Statement conversions by outcome.",
		}, []string{"outcome"}),
		transactions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "transactions_per_conversion",
			Help:      "Transactions emitted per successful conversion.",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 40, 50},
		}),
		extraction: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting text, by method.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "errors_total",
			Help:      "Failed conversions by error code.",
		}, []string{"code"}),
	}
	m.registry.MustRegister(
		m.conversions,
		m.transactions,
		m.extraction,
		m.errors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveConversion records a finished conversion.
func (m *Metrics) ObserveConversion(usedSample bool, transactions int) {
	outcome := OutcomeParsed
	if usedSample {
		outcome = OutcomeSample
	}
	m.conversions.WithLabelValues(outcome).Inc()
	m.transactions.Observe(float64(transactions))
}

// ObserveError records a failed conversion.
func (m *Metrics) ObserveError(code string) {
	m.conversions.WithLabelValues(OutcomeError).Inc()
	m.errors.WithLabelValues(code).Inc()
}

// ObserveExtraction records how long text extraction took.
func (m *Metrics) ObserveExtraction(method string, d time.Duration) {
	if method == "" {
		method = "unknown"
	}
	m.extraction.WithLabelValues(method).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
