// Package metrics holds the Prometheus collectors shared by the gateway, caches and HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TMDBRequestsTotal counts catalog API calls by endpoint and outcome.
	TMDBRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_tmdb_requests_total",
			Help: "Catalog API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	TMDBRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_tmdb_request_duration_seconds",
			Help:    "Catalog API request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movies_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CatalogFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_catalog_fetch_errors_total",
			Help: "Catalog cache operations that recorded an error",
		},
		[]string{"operation"},
	)

	BootstrapFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movies_bootstrap_failures_total",
			Help: "Home data initializations that had at least one failed category",
		},
	)

	RatingStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_rating_store_errors_total",
			Help: "Rating store operations that failed",
		},
		[]string{"operation"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_api_requests_total",
			Help: "Local HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_api_request_duration_seconds",
			Help:    "Local HTTP request latency",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	EventStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_event_stream_clients",
			Help: "Connected change-event WebSocket clients",
		},
	)
)
