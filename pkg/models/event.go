package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultEventVersion = "1.0"

// Event is one occurrence flowing through the router. Events are immutable
// once constructed; derived events are built via WithType/WithContext.
type Event struct {
	EventID           string                 `json:"eventId,omitempty"`
	Type              string                 `json:"type"`
	Timestamp         time.Time              `json:"timestamp,omitempty"`
	Context           map[string]interface{} `json:"context,omitempty"`
	CorrelationID     string                 `json:"correlationId,omitempty"`
	OrchestrationName string                 `json:"orchestrationName,omitempty"`
	Source            string                 `json:"source,omitempty"`
	Metadata          map[string]string      `json:"metadata,omitempty"`
	Version           string                 `json:"version,omitempty"`
}

// Normalized returns a copy with generated defaults filled in: eventId,
// timestamp and version are optional on the wire.
func (e Event) Normalized() Event {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Version == "" {
		e.Version = DefaultEventVersion
	}
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	return e
}

func (e Event) ContextValue(key string) (interface{}, bool) {
	if e.Context == nil {
		return nil, false
	}
	v, ok := e.Context[key]
	return v, ok
}

// WithType derives a new event with a different type and a fresh identity.
func (e Event) WithType(newType string) Event {
	derived := e
	derived.EventID = uuid.New().String()
	derived.Type = newType
	derived.Timestamp = time.Now().UTC()
	derived.Context = copyContext(e.Context)
	derived.Metadata = copyMetadata(e.Metadata)
	return derived
}

// WithContext derives a new event carrying the given context.
func (e Event) WithContext(ctx map[string]interface{}) Event {
	derived := e
	derived.EventID = uuid.New().String()
	derived.Timestamp = time.Now().UTC()
	derived.Context = copyContext(ctx)
	derived.Metadata = copyMetadata(e.Metadata)
	return derived
}

func copyContext(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
