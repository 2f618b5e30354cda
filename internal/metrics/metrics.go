package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StartupAttempts tracks startup sequence attempts
	StartupAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_startup_attempts_total",
			Help: "Total number of startup sequence attempts",
		},
	)

	// StartupFailures tracks startup failures per kind
	StartupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_startup_failures_total",
			Help: "Total number of startup failures",
		},
		[]string{"kind", "component"},
	)

	// StartupDuration tracks how long a full startup attempt takes
	StartupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "launcher_startup_duration_seconds",
			Help:    "Startup sequence duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APIRequestsTotal tracks backend API requests per method and outcome
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"method", "outcome"},
	)

	// APIRetriesTotal tracks retried backend API attempts
	APIRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_api_retries_total",
			Help: "Total number of retried backend API attempts",
		},
	)

	// TokenRefreshes tracks token refresh outcomes
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_token_refreshes_total",
			Help: "Total number of access token refreshes",
		},
		[]string{"outcome"},
	)

	// RealtimeReconnects tracks realtime socket reconnect attempts
	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_realtime_reconnects_total",
			Help: "Total number of realtime socket reconnect attempts",
		},
	)

	// ActiveDownloads tracks currently running transfers
	ActiveDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_active_downloads",
			Help: "Number of currently running transfers",
		},
	)

	// ShutdownStepErrors tracks shutdown steps that failed
	ShutdownStepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_shutdown_step_errors_total",
			Help: "Total number of failed shutdown steps",
		},
		[]string{"step"},
	)

	// ReportsWritten tracks failure reports written to disk
	ReportsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_reports_written_total",
			Help: "Total number of failure reports written",
		},
	)

	// StoreConnectionsOpen tracks open connections of the record store
	StoreConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_store_connections_open",
			Help: "Open connections held by the record store",
		},
	)
)
