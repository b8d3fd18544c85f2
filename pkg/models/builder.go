package models

import "time"

type EventBuilder struct {
	event *Event
}

func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		event: &Event{
			Context:  make(map[string]interface{}),
			Metadata: make(map[string]string),
		},
	}
}

func (b *EventBuilder) WithEventID(id string) *EventBuilder {
	b.event.EventID = id
	return b
}

func (b *EventBuilder) WithType(eventType string) *EventBuilder {
	b.event.Type = eventType
	return b
}

func (b *EventBuilder) WithTimestamp(timestamp time.Time) *EventBuilder {
	b.event.Timestamp = timestamp
	return b
}

func (b *EventBuilder) WithContext(ctx map[string]interface{}) *EventBuilder {
	b.event.Context = ctx
	return b
}

func (b *EventBuilder) WithContextValue(key string, value interface{}) *EventBuilder {
	b.event.Context[key] = value
	return b
}

func (b *EventBuilder) WithCorrelationID(correlationID string) *EventBuilder {
	b.event.CorrelationID = correlationID
	return b
}

func (b *EventBuilder) WithOrchestrationName(name string) *EventBuilder {
	b.event.OrchestrationName = name
	return b
}

func (b *EventBuilder) WithSource(source string) *EventBuilder {
	b.event.Source = source
	return b
}

func (b *EventBuilder) WithMetadata(metadata map[string]string) *EventBuilder {
	b.event.Metadata = metadata
	return b
}

func (b *EventBuilder) Build() Event {
	return b.event.Normalized()
}
