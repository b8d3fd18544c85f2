package constants

import "time"

const (
	ServiceName = "router-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultInputTopic        = "events"
	DefaultConfigUpdateTopic = "orchestration_updates"
	DefaultDLQTopic          = "events_dlq"
	DefaultDeadLetterTarget  = "dead-letter-queue"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultBulkWorkers = 8
	MaxBulkEvents      = 1000
)

const (
	AuditQueueSize     = 1024
	AuditFlushTimeout  = 2 * time.Second
	DefaultMongoDBName = "switchyard"
	DefaultAuditColl   = "audit_trail"
)
