package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	ProviderCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_latency_ms",
			Help:    "Notification provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"endpoint", "status"},
	)

	CommentCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comment_created_count",
			Help: "Total number of comments persisted",
		},
		[]string{"base_type"}, // article, comment
	)

	NotificationEnqueueCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_enqueue_count",
			Help: "Total number of notification jobs enqueued",
		},
		[]string{"channel", "status"}, // status: sent, failed
	)

	NotificationDeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_count",
			Help: "Total number of notification deliveries attempted by workers",
		},
		[]string{"channel", "status"}, // status: success, retry, dropped
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the slow-query threshold",
		},
	)
)

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records database query latency.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordMQConsumeLatency records end-to-end handling time of one delivery.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordProviderCallLatency records one outbound provider HTTP call.
func RecordProviderCallLatency(endpoint, status string, duration time.Duration) {
	ProviderCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// IncrementCommentCreated counts a persisted comment by its base type.
func IncrementCommentCreated(baseType string) {
	CommentCreatedCount.WithLabelValues(baseType).Inc()
}

// IncrementNotificationEnqueue counts an enqueue attempt per channel.
func IncrementNotificationEnqueue(channel, status string) {
	NotificationEnqueueCount.WithLabelValues(channel, status).Inc()
}

// IncrementNotificationDelivery counts a worker delivery outcome per channel.
func IncrementNotificationDelivery(channel, status string) {
	NotificationDeliveryCount.WithLabelValues(channel, status).Inc()
}

// IncrementSlowQuery counts one slow query.
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}
