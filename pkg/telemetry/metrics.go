package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the completion engine.
type Metrics struct {
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	completionRuns   *prometheus.CounterVec
	completionTime   *prometheus.HistogramVec
	strategyOutcomes *prometheus.CounterVec
	rateLookups      *prometheus.CounterVec
	warningsEmitted  *prometheus.CounterVec
	invoiceAmount    *prometheus.HistogramVec
}

// NewMetrics registers and returns Prometheus metrics for telemetry.
func NewMetrics() *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factuur_api_requests_total",
		Help: "Counts API requests by method, status, and source shop.",
	}, []string{"method", "status", "source"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "factuur_api_duration_seconds",
		Help:    "API request latency per method/source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "source"})

	completionRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factuur_completion_runs_total",
		Help: "Invoice completion runs by outcome (completed or concept).",
	}, []string{"outcome", "source"})

	completionTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "factuur_completion_duration_seconds",
		Help:    "Invoice completion run durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	strategyOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factuur_strategy_outcomes_total",
		Help: "Strategy attempts by strategy name and result.",
	}, []string{"strategy", "result"})

	rateLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factuur_rate_lookups_total",
		Help: "Vat rate lookups by country and cache status.",
	}, []string{"country", "cache"})

	warningsEmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factuur_warnings_total",
		Help: "Warnings emitted during completion by code.",
	}, []string{"code"})

	invoiceAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "factuur_invoice_amount",
		Help:    "Completed invoice amount distribution.",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
	}, []string{"source"})

	prometheus.MustRegister(
		apiRequests,
		apiDuration,
		completionRuns,
		completionTime,
		strategyOutcomes,
		rateLookups,
		warningsEmitted,
		invoiceAmount,
	)

	return &Metrics{
		apiRequests:      apiRequests,
		apiDuration:      apiDuration,
		completionRuns:   completionRuns,
		completionTime:   completionTime,
		strategyOutcomes: strategyOutcomes,
		rateLookups:      rateLookups,
		warningsEmitted:  warningsEmitted,
		invoiceAmount:    invoiceAmount,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, status, source string, duration time.Duration) {
	if m == nil {
		return
	}
	sourceLabel := sanitizeLabel(source)
	methodLabel := sanitizeLabel(method)
	m.apiRequests.WithLabelValues(methodLabel, status, sourceLabel).Inc()
	m.apiDuration.WithLabelValues(methodLabel, sourceLabel).Observe(duration.Seconds())
}

// ObserveCompletionRun records a completion run outcome and duration.
func (m *Metrics) ObserveCompletionRun(outcome, source string, duration time.Duration) {
	if m == nil {
		return
	}
	sourceLabel := sanitizeLabel(source)
	m.completionRuns.WithLabelValues(sanitizeLabel(outcome), sourceLabel).Inc()
	m.completionTime.WithLabelValues(sourceLabel).Observe(duration.Seconds())
}

// ObserveStrategy records one strategy attempt result.
func (m *Metrics) ObserveStrategy(strategy, result string) {
	if m == nil {
		return
	}
	m.strategyOutcomes.WithLabelValues(sanitizeLabel(strategy), sanitizeLabel(result)).Inc()
}

// ObserveRateLookup counts a vat rate lookup and whether it hit the cache.
func (m *Metrics) ObserveRateLookup(country string, cacheHit bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.rateLookups.WithLabelValues(sanitizeLabel(country), cache).Inc()
}

// ObserveWarning counts an emitted completion warning by code.
func (m *Metrics) ObserveWarning(code string) {
	if m == nil {
		return
	}
	m.warningsEmitted.WithLabelValues(sanitizeLabel(code)).Inc()
}

// ObserveInvoiceAmount records a completed invoice amount distribution.
func (m *Metrics) ObserveInvoiceAmount(source string, amount float64) {
	if m == nil {
		return
	}
	m.invoiceAmount.WithLabelValues(sanitizeLabel(source)).Observe(amount)
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
