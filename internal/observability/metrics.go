package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Backend API request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "group", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"method", "group", "status"},
	)

	// Token refresh metrics
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refresh_total",
			Help: "Total number of token refresh attempts",
		},
		[]string{"outcome"},
	)

	TokenRefreshWaiters = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "token_refresh_waiters",
			Help:    "Number of requests queued behind a single refresh flight",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)

	// Notification cache metrics
	CacheFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_cache_fetches_total",
			Help: "Cache fetch outcomes per logical resource",
		},
		[]string{"resource", "outcome"}, // hit, miss, coalesced, throttled
	)

	// Socket metrics
	SocketEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socket_events_total",
			Help: "Socket events received, by event name and disposition",
		},
		[]string{"event", "disposition"}, // applied, duplicate, refetch, ignored
	)

	SocketReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socket_reconnects_total",
			Help: "Number of socket reconnect attempts",
		},
	)

	// Daemon HTTP surface metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Daemon HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of daemon HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Archive metrics
	ArchiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_writes_total",
			Help: "Notifications written to the postgres archive",
		},
		[]string{"outcome"},
	)
)
