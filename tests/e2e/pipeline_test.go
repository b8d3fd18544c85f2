package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchyard/pkg/models"
)

const (
	kafkaBroker        = "localhost:29092"
	inputTopic         = "events"
	premiumTopic       = "premium-orders"
	standardTopic      = "standard-orders"
	deadLetterTopic    = "dead-letter-queue"
	messageWaitTimeout = 30 * time.Second
)

func TestPipelineRoutesConditionalMatch(t *testing.T) {
	testEvent := models.Event{
		EventID:   uuid.New().String(),
		Type:      "OrderCreated",
		Timestamp: time.Now().UTC(),
		Context: map[string]interface{}{
			"customerTier": "premium",
			"amount":       500,
		},
		Source: "e2e_test",
	}

	err := sendEventToKafka(t, inputTopic, testEvent)
	require.NoError(t, err, "failed to send event to input topic")

	routed := waitForRoutedEvent(t, premiumTopic, testEvent.EventID)
	require.NotNil(t, routed, "premium event should reach the premium-orders queue")

	assert.Equal(t, testEvent.EventID, routed.EventID)
	assert.Equal(t, "OrderCreated", routed.Type)
	assert.Equal(t, "premium", routed.Context["customerTier"])
}

func TestPipelineRoutesDefaultFallback(t *testing.T) {
	testEvent := models.Event{
		EventID:   uuid.New().String(),
		Type:      "OrderCreated",
		Timestamp: time.Now().UTC(),
		Context: map[string]interface{}{
			"customerTier": "basic",
		},
		Source: "e2e_test",
	}

	err := sendEventToKafka(t, inputTopic, testEvent)
	require.NoError(t, err)

	routed := waitForRoutedEvent(t, standardTopic, testEvent.EventID)
	require.NotNil(t, routed, "non-matching event should fall back to the default target")
	assert.Equal(t, testEvent.EventID, routed.EventID)

	time.Sleep(3 * time.Second)
	notRouted := tryGetRoutedEvent(t, premiumTopic, testEvent.EventID)
	assert.Nil(t, notRouted, "event should not also appear on the conditional target")
}

func TestPipelineSendsUnknownTypeToDeadLetter(t *testing.T) {
	testEvent := models.Event{
		EventID:   uuid.New().String(),
		Type:      "NoSuchEventType",
		Timestamp: time.Now().UTC(),
		Context:   map[string]interface{}{},
		Source:    "e2e_test",
	}

	err := sendEventToKafka(t, inputTopic, testEvent)
	require.NoError(t, err)

	deadLettered := waitForRoutedEvent(t, deadLetterTopic, testEvent.EventID)
	require.NotNil(t, deadLettered, "unroutable event should land on the dead-letter queue")
	assert.NotEmpty(t, deadLettered.Metadata["dead_letter_reason"])
}

func TestPipelineOrchestrationHeaderSelectsRuleSet(t *testing.T) {
	testEvent := models.Event{
		EventID:           uuid.New().String(),
		Type:              "OrderCreated",
		Timestamp:         time.Now().UTC(),
		OrchestrationName: "nonexistent-orchestration",
		Context: map[string]interface{}{
			"customerTier": "premium",
		},
		Source: "e2e_test",
	}

	err := sendEventToKafka(t, inputTopic, testEvent)
	require.NoError(t, err)

	// unknown orchestration names fall back to the default rule set
	routed := waitForRoutedEvent(t, premiumTopic, testEvent.EventID)
	require.NotNil(t, routed, "event should be routed via the default orchestration")
}

func TestPipelineMultipleEvents(t *testing.T) {
	events := []models.Event{
		{
			EventID:   uuid.New().String(),
			Type:      "OrderCreated",
			Timestamp: time.Now().UTC(),
			Context:   map[string]interface{}{"customerTier": "premium", "index": 1},
			Source:    "e2e_multi",
		},
		{
			EventID:   uuid.New().String(),
			Type:      "OrderCreated",
			Timestamp: time.Now().UTC(),
			Context:   map[string]interface{}{"customerTier": "premium", "index": 2},
			Source:    "e2e_multi",
		},
		{
			EventID:   uuid.New().String(),
			Type:      "OrderCreated",
			Timestamp: time.Now().UTC(),
			Context:   map[string]interface{}{"customerTier": "basic", "index": 3},
			Source:    "e2e_multi",
		},
	}

	for _, event := range events {
		err := sendEventToKafka(t, inputTopic, event)
		require.NoError(t, err)
	}

	msg1 := waitForRoutedEvent(t, premiumTopic, events[0].EventID)
	assert.NotNil(t, msg1, "first premium event should be routed")

	msg2 := waitForRoutedEvent(t, premiumTopic, events[1].EventID)
	assert.NotNil(t, msg2, "second premium event should be routed")

	msg3 := waitForRoutedEvent(t, standardTopic, events[2].EventID)
	assert.NotNil(t, msg3, "basic event should be routed to the default target")
}

func sendEventToKafka(t *testing.T, topic string, event models.Event) error {
	t.Helper()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaBroker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.EventID),
			Value: body,
			Time:  time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func waitForRoutedEvent(t *testing.T, topic, eventID string) *models.Event {
	t.Helper()
	return readUntilEvent(t, topic, eventID, kafka.FirstOffset, messageWaitTimeout)
}

func tryGetRoutedEvent(t *testing.T, topic, eventID string) *models.Event {
	t.Helper()
	return readUntilEvent(t, topic, eventID, kafka.FirstOffset, 10*time.Second)
}

func readUntilEvent(t *testing.T, topic, eventID string, startOffset int64, timeout time.Duration) *models.Event {
	t.Helper()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{kafkaBroker},
		Topic:          topic,
		GroupID:        fmt.Sprintf("e2e-test-reader-%s", uuid.New().String()),
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        2 * time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var event models.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		_ = reader.CommitMessages(ctx, msg)

		if event.EventID == eventID {
			return &event
		}
	}
}
