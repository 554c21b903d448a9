package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Business metrics
	RidesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_created_total",
			Help: "Total number of rides created",
		},
		[]string{"vehicle_type"},
	)

	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_transitions_total",
			Help: "Total number of applied ride status transitions",
		},
		[]string{"status"},
	)

	RideAcceptConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ride_accept_conflicts_total",
			Help: "Total number of accept attempts that lost the ride",
		},
	)

	LocationSamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_samples_total",
			Help: "Total number of driver location samples by outcome",
		},
		[]string{"result"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total number of settlement attempts by outcome",
		},
		[]string{"result"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "exchange", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

func RecordRideCreated(vehicleType string) {
	RidesCreatedTotal.WithLabelValues(vehicleType).Inc()
}

func RecordTransition(status string) {
	RideTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordAcceptConflict() {
	RideAcceptConflictsTotal.Inc()
}

// RecordLocationSample records a sample outcome: stored, stale or rejected.
func RecordLocationSample(result string) {
	LocationSamplesTotal.WithLabelValues(result).Inc()
}

func RecordSettlement(result string) {
	SettlementsTotal.WithLabelValues(result).Inc()
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(service, exchange string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(service, exchange, statusOf(err)).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(service, queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, statusOf(err)).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
