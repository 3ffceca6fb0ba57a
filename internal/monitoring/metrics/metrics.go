package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FailuresClassified counts failure signals acted on, by category
	FailuresClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_failures_classified_total",
			Help: "Total number of failed operations by recovery category",
		},
		[]string{"category"},
	)

	// RefreshCalls counts calls to the refresh endpoint by outcome
	RefreshCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_refresh_calls_total",
			Help: "Total number of credential refresh network calls",
		},
		[]string{"outcome"},
	)

	// RefreshSharedWaits counts waiters that joined an in-flight refresh
	RefreshSharedWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionguard_refresh_shared_waits_total",
			Help: "Total number of refresh requests served by an in-flight refresh",
		},
	)

	// RefreshLatency tracks refresh call latency
	RefreshLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sessionguard_refresh_latency_seconds",
			Help:    "Credential refresh latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Replays counts replayed operations by outcome
	Replays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_replays_total",
			Help: "Total number of operations replayed after a refresh",
		},
		[]string{"outcome"},
	)

	// SessionTerminations counts terminated sessions by reason
	SessionTerminations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_session_terminations_total",
			Help: "Total number of session terminations",
		},
		[]string{"reason"},
	)

	// TransportRequests counts forwarded operations by transport and outcome
	TransportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_transport_requests_total",
			Help: "Total number of operations forwarded by a transport",
		},
		[]string{"transport", "outcome"},
	)

	// TransportLatency tracks forward latency per transport and operation
	TransportLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessionguard_transport_latency_seconds",
			Help:    "Transport forward latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "operation"},
	)

	// ConnectivityRetries counts connectivity failures retried by the network policy
	ConnectivityRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionguard_connectivity_retries_total",
			Help: "Total number of connectivity failures retried with backoff",
		},
	)

	// CacheHits counts identity cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionguard_cache_hits_total",
			Help: "Total number of operations served from the identity cache",
		},
	)

	// DBConnectionPoolUsage is the open/max connection ratio of the credential database
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessionguard_db_connection_pool_usage_percent",
			Help: "Credential database connection pool usage",
		},
	)
)
