package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_events_total",
			Help: "Total number of events processed by the router (count)",
		},
		[]string{"orchestration", "status"},
	)

	RoutingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_routing_duration_ms",
			Help:    "Duration of routing decisions in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"status"},
	)

	ConditionEvalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_condition_eval_errors_total",
			Help: "Total number of routing condition evaluation failures (count)",
		},
		[]string{"orchestration", "event_type"},
	)

	ActiveOrchestrations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_active_orchestrations",
			Help: "Number of loaded orchestrations (count)",
		},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_dispatch_total",
			Help: "Total number of events dispatched to target queues (count)",
		},
		[]string{"target", "status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_dispatch_duration_ms",
			Help:    "Duration of event dispatch in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"target"},
	)

	DeadLetterEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_dead_letter_events_total",
			Help: "Total number of events routed to the dead-letter target (count)",
		},
		[]string{"reason"},
	)

	BulkEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_bulk_events_total",
			Help: "Total number of events received via bulk endpoints (count)",
		},
		[]string{"mode", "status"},
	)

	AuditRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_audit_records_total",
			Help: "Total number of audit records written (count)",
		},
		[]string{"stage", "status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	AuditWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_audit_write_duration_ms",
			Help:    "Duration of audit sink writes in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"sink"},
	)
)

func RegisterRouterMetrics() {
	prometheus.MustRegister(EventsRoutedTotal)
	prometheus.MustRegister(RoutingDuration)
	prometheus.MustRegister(ConditionEvalErrorsTotal)
	prometheus.MustRegister(ActiveOrchestrations)
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(DeadLetterEventsTotal)
	prometheus.MustRegister(BulkEventsTotal)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterAuditMetrics() {
	prometheus.MustRegister(AuditRecordsTotal)
	prometheus.MustRegister(AuditWriteDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaConsumerLag)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncEventRouted(orchestration, status string) {
	EventsRoutedTotal.WithLabelValues(orchestration, status).Inc()
}

func ObserveRoutingDuration(duration time.Duration, status string) {
	RoutingDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetActiveOrchestrations(count int) {
	ActiveOrchestrations.Set(float64(count))
}

func IncDispatch(target, status string) {
	DispatchTotal.WithLabelValues(target, status).Inc()
}

func ObserveDispatchDuration(target string, duration time.Duration) {
	DispatchDuration.WithLabelValues(target).Observe(float64(duration.Milliseconds()))
}

func IncDeadLetter(reason string) {
	DeadLetterEventsTotal.WithLabelValues(reason).Inc()
}

func IncBulkEvent(mode, status string) {
	BulkEventsTotal.WithLabelValues(mode, status).Inc()
}

func IncAuditRecord(stage, status string) {
	AuditRecordsTotal.WithLabelValues(stage, status).Inc()
}

func ObserveAuditWriteDuration(sink string, duration time.Duration) {
	AuditWriteDuration.WithLabelValues(sink).Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}
