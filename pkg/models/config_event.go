package models

import "time"

// OrchestrationUpdateEvent signals that a rule set changed and loaded
// copies should be refreshed. Consumed from the config update topic.
type OrchestrationUpdateEvent struct {
	EventType     string    `json:"event_type"`
	Orchestration string    `json:"orchestration,omitempty"` // empty means all
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
	ChangedBy     string    `json:"changed_by,omitempty"`
}

const (
	EventTypeOrchestrationUpdated = "orchestration_updated"
)

const (
	ActionUpdate = "update"
	ActionReload = "reload"
)
