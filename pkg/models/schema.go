package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateEvent(e *Event) error {
	if e == nil {
		return &ValidationError{
			Field:   "event",
			Message: "event cannot be nil",
		}
	}

	if e.Type == "" {
		return &ValidationError{
			Field:   "type",
			Message: "event type is required",
		}
	}

	return nil
}
