// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ytfeed"

var (
	// FeedFetchesTotal tracks feed refresh attempts.
	// Labels:
	//   - channel_id: monitored channel
	//   - result: success, network_error, parse_error
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Total number of feed refresh attempts",
		},
		[]string{"channel_id", "result"},
	)

	// FeedFetchDuration tracks how long a fetch+parse cycle takes.
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of feed fetch and parse cycles",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"channel_id"},
	)

	// SnapshotAccessesTotal tracks how snapshot accesses were served.
	// Labels:
	//   - result: fresh, refreshed, stale, error
	SnapshotAccessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_accesses_total",
			Help:      "Total number of snapshot accesses",
		},
		[]string{"channel_id", "result"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// NotificationsTotal tracks snapshot event publication.
	// Labels:
	//   - backend: redis, rabbitmq
	//   - status: success, error
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of snapshot event publications",
		},
		[]string{"backend", "status"},
	)

	// UploadsDetectedTotal counts latest-upload changes seen by the worker.
	UploadsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_detected_total",
			Help:      "Total number of new uploads detected from snapshot events",
		},
		[]string{"channel_id"},
	)
)

// Fetch result constants.
const (
	FetchSuccess      = "success"
	FetchNetworkError = "network_error"
	FetchParseError   = "parse_error"
)

// Access result constants.
const (
	AccessFresh     = "fresh"
	AccessRefreshed = "refreshed"
	AccessStale     = "stale"
	AccessError     = "error"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Notification backend constants.
const (
	BackendRedis    = "redis"
	BackendRabbitMQ = "rabbitmq"
)

// Notification status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
