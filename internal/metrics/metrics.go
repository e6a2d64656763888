// Package metrics exposes Prometheus instrumentation for the API and the
// suggestion engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricart_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutricart_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nutricart_api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Suggestion engine
	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricart_suggestions_total",
			Help: "Suggestions computed, by classification and result kind",
		},
		[]string{"state", "kind"},
	)

	SuggestionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricart_suggestion_errors_total",
			Help: "Failed suggestion computations, by reason",
		},
		[]string{"reason"},
	)

	OptimizerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutricart_optimizer_duration_seconds",
			Help:    "Time spent in one optimizer invocation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"optimizer", "outcome"},
	)

	SolverNodes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutricart_solver_nodes",
			Help:    "Branch-and-bound nodes per integer program",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 .. 16384
		},
		[]string{"optimizer"},
	)

	AddAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nutricart_add_attempts",
			Help:    "Sampling attempts used by the add optimizer",
			Buckets: []float64{1, 2, 3, 4, 5, 10},
		},
	)

	// Catalog and reports
	CatalogProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nutricart_catalog_products",
			Help: "Products in the loaded catalog",
		},
	)

	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutricart_reports_total",
			Help: "Generated reports, by format and status",
		},
		[]string{"format", "status"},
	)
)

// Handler serves the default registry in the exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordRateLimited() {
	APIRateLimited.Inc()
}

// RecordSuggestion records a successful suggestion.
func RecordSuggestion(state, kind string) {
	SuggestionsTotal.WithLabelValues(state, kind).Inc()
}

func RecordSuggestionError(reason string) {
	SuggestionErrors.WithLabelValues(reason).Inc()
}

// RecordOptimizer records one optimizer invocation. nodes < 0 skips the
// solver histogram (no program was built).
func RecordOptimizer(optimizer, outcome string, duration time.Duration, nodes int) {
	OptimizerDuration.WithLabelValues(optimizer, outcome).Observe(duration.Seconds())
	if nodes >= 0 {
		SolverNodes.WithLabelValues(optimizer).Observe(float64(nodes))
	}
}

func RecordAddAttempts(n int) {
	AddAttempts.Observe(float64(n))
}

func SetCatalogProducts(n int) {
	CatalogProducts.Set(float64(n))
}

// RecordReport records a report generation; err marks it failed.
func RecordReport(format string, err error) {
	status := "ready"
	if err != nil {
		status = "failed"
	}
	ReportsTotal.WithLabelValues(format, status).Inc()
}
