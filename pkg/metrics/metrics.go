package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	identifiersIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identifiers_issued_total",
			Help: "Human-readable identifiers issued, by kind and source (counter or fallback)",
		},
		[]string{"kind", "source"},
	)

	paymentsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Payments recorded against orders and invoices",
		},
		[]string{"target"},
	)
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		identifiersIssuedTotal,
		paymentsRecordedTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// ObserveHTTPRequest records one served request
func ObserveHTTPRequest(method, endpoint, statusCode string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// IdentifierIssued counts an issued identifier. source is "counter" or "fallback".
func IdentifierIssued(kind, source string) {
	identifiersIssuedTotal.WithLabelValues(kind, source).Inc()
}

// PaymentRecorded counts a payment against an "order" or "invoice"
func PaymentRecorded(target string) {
	paymentsRecordedTotal.WithLabelValues(target).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry exposes the collector registry, mainly for tests
func Registry() *prometheus.Registry {
	return registry
}
