package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts fail-closed permission evaluations by outcome (allowed|denied|error).
	// Permission names come from callers and are kept out of the label set.
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"result"},
	)

	// DirectoryQueries counts directory round trips by query and result (ok|error).
	DirectoryQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_directory_queries_total",
			Help: "Total number of directory queries",
		},
		[]string{"query", "result"},
	)

	// DirectoryLatency measures directory query latency.
	DirectoryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatekeeper_directory_query_seconds",
			Help:    "Directory query latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// CacheLookups counts directory cache lookups (hit|miss|error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_directory_cache_lookups_total",
			Help: "Directory cache lookups by result",
		},
		[]string{"query", "result"},
	)

	// SessionTransitions counts session state changes, plus discarded stale results.
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_session_transitions_total",
			Help: "Authorization session state transitions",
		},
		[]string{"state"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatekeeper_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
