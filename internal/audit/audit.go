package audit

import (
	"context"
	"sync"
	"time"

	"switchyard/internal/constants"
	"switchyard/internal/logger"
	"switchyard/pkg/metrics"
	"switchyard/pkg/models"
)

type Stage string

const (
	StageReceived Stage = "RECEIVED"
	StageRouted   Stage = "ROUTED"
	StageFailed   Stage = "FAILED"
	StageError    Stage = "ERROR"
)

// Record is one audit trail entry for one event at one processing stage.
type Record struct {
	EventID       string    `json:"eventId" bson:"event_id"`
	CorrelationID string    `json:"correlationId,omitempty" bson:"correlation_id,omitempty"`
	EventType     string    `json:"eventType" bson:"event_type"`
	Orchestration string    `json:"orchestration,omitempty" bson:"orchestration,omitempty"`
	Stage         Stage     `json:"stage" bson:"stage"`
	Target        string    `json:"target,omitempty" bson:"target,omitempty"`
	Detail        string    `json:"detail,omitempty" bson:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// Store persists audit records. Implementations must be safe for use from
// the single writer goroutine.
type Store interface {
	Write(ctx context.Context, record Record) error
	Close(ctx context.Context) error
}

// Trail accepts audit records without blocking the event path: records go
// through a bounded channel to a single writer goroutine. When the channel
// is full the record is dropped and counted rather than stalling routing.
type Trail struct {
	store   Store
	logger  logger.Logger
	records chan Record

	stopOnce sync.Once
	done     chan struct{}
}

func NewTrail(store Store, log logger.Logger) *Trail {
	return &Trail{
		store:   store,
		logger:  log,
		records: make(chan Record, constants.AuditQueueSize),
		done:    make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is canceled, then drains what is
// already queued.
func (t *Trail) Start(ctx context.Context) {
	go func() {
		defer close(t.done)
		for {
			select {
			case record := <-t.records:
				t.write(record)
			case <-ctx.Done():
				t.drain()
				return
			}
		}
	}()
}

func (t *Trail) drain() {
	for {
		select {
		case record := <-t.records:
			t.write(record)
		default:
			return
		}
	}
}

func (t *Trail) write(record Record) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.AuditFlushTimeout)
	defer cancel()

	start := time.Now()
	if err := t.store.Write(ctx, record); err != nil {
		metrics.IncAuditRecord(string(record.Stage), "error")
		t.logger.Errorw("Failed to write audit record",
			"event_id", record.EventID,
			"stage", record.Stage,
			"error", err,
		)
		return
	}
	metrics.IncAuditRecord(string(record.Stage), "success")
	metrics.ObserveAuditWriteDuration("store", time.Since(start))
}

// Record queues one audit entry. Never blocks.
func (t *Trail) Record(event models.Event, stage Stage, target, detail string) {
	record := Record{
		EventID:       event.EventID,
		CorrelationID: event.CorrelationID,
		EventType:     event.Type,
		Orchestration: event.OrchestrationName,
		Stage:         stage,
		Target:        target,
		Detail:        detail,
		Timestamp:     time.Now().UTC(),
	}

	select {
	case t.records <- record:
	default:
		metrics.IncAuditRecord(string(stage), "dropped")
		t.logger.Warnw("Audit queue full, dropping record",
			"event_id", record.EventID,
			"stage", stage,
		)
	}
}

// Stop waits for the writer loop to finish and closes the store. Call after
// canceling the context passed to Start.
func (t *Trail) Stop(ctx context.Context) error {
	<-t.done
	var err error
	t.stopOnce.Do(func() {
		err = t.store.Close(ctx)
	})
	return err
}
