package models

// BulkEventRequest wraps a batch of events submitted in one call.
type BulkEventRequest struct {
	Events []Event `json:"events"`
}

// BulkEventResponse is returned immediately; bulk processing is
// fire-and-forget so the counts reflect submission, not completion.
type BulkEventResponse struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Failures   []FailedEvent `json:"failures"`
	DurationMs int64         `json:"durationMs"`
}

type FailedEvent struct {
	EventID       string `json:"eventId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	Type          string `json:"type,omitempty"`
	Error         string `json:"error"`
}
