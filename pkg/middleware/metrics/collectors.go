package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "certipop"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_time",
			Help:      "http response time.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsFromRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "total_http_requests_from_role", Help: "http requests from role"},
		[]string{"role"},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	// outcome is "ok" or a connector failure kind.
	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "upstream_requests_total", Help: "APIMS document operations by outcome"},
		[]string{"operation", "outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "APIMS document operation latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsFromRole,
		totalHttpRequestsToUri,
		totalHttpRequests,
		upstreamRequests,
		upstreamDuration,
	)
}

// ObserveUpstream records one document operation.
func ObserveUpstream(operation, outcome string, d time.Duration) {
	upstreamRequests.WithLabelValues(operation, outcome).Inc()
	upstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
}
