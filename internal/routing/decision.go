package routing

import "fmt"

// Decision is the outcome of routing one event: where it goes, whether a
// conditional branch (as opposed to the default target) picked the
// destination, and why routing failed if it did.
type Decision struct {
	EventType            string `json:"eventType"`
	Target               string `json:"target,omitempty"`
	Success              bool   `json:"success"`
	ConditionalRouteUsed bool   `json:"conditionalRouteUsed"`
	ErrorMessage         string `json:"errorMessage,omitempty"`
}

func SuccessDecision(eventType, target string, conditional bool) Decision {
	return Decision{
		EventType:            eventType,
		Target:               target,
		Success:              true,
		ConditionalRouteUsed: conditional,
	}
}

// NoRouteDecision reports an event type the rule set has no route for.
func NoRouteDecision(eventType string) Decision {
	return Decision{
		EventType:    eventType,
		ErrorMessage: fmt.Sprintf("no route found for event type: %s", eventType),
	}
}

// NoTargetDecision reports a matched route that yields no destination: no
// condition matched and no default target is configured.
func NoTargetDecision(eventType string) Decision {
	return Decision{
		EventType:    eventType,
		ErrorMessage: fmt.Sprintf("no target found for event type: %s", eventType),
	}
}

func ErrorDecision(eventType, message string) Decision {
	return Decision{
		EventType:    eventType,
		ErrorMessage: message,
	}
}
