package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBuilder(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	event := NewEventBuilder().
		WithEventID("evt-1").
		WithType("OrderCreated").
		WithTimestamp(ts).
		WithCorrelationID("order-42").
		WithOrchestrationName("order-processing").
		WithSource("checkout").
		WithContextValue("customerTier", "premium").
		WithContextValue("amount", 250).
		WithMetadata(map[string]string{"origin": "api"}).
		Build()

	assert.Equal(t, "evt-1", event.EventID)
	assert.Equal(t, "OrderCreated", event.Type)
	assert.Equal(t, ts, event.Timestamp)
	assert.Equal(t, "order-42", event.CorrelationID)
	assert.Equal(t, "order-processing", event.OrchestrationName)
	assert.Equal(t, "checkout", event.Source)
	assert.Equal(t, "premium", event.Context["customerTier"])
	assert.Equal(t, 250, event.Context["amount"])
	assert.Equal(t, "api", event.Metadata["origin"])
}

func TestEventBuilderNormalizesDefaults(t *testing.T) {
	event := NewEventBuilder().WithType("OrderCreated").Build()

	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, DefaultEventVersion, event.Version)
}
