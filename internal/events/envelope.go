package events

import (
	"fmt"
	"time"
)

// EventEnvelope is the common wrapper for messages this service produces.
// Generic so each event keeps a strongly typed payload.
type EventEnvelope[T any] struct {
	EventName    string    `json:"event_name"`
	EventVersion int       `json:"event_version"`
	EventID      string    `json:"event_id"`
	Producer     string    `json:"producer"`
	PartitionKey string    `json:"partition_key"`
	OccurredAt   time.Time `json:"occurred_at"`
	Payload      T         `json:"payload"`
}

// Validate ensures the envelope carries the expected event identity.
func (e EventEnvelope[T]) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected event_name: %s", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected event_version: %d", e.EventVersion)
	}
	if e.EventID == "" {
		return fmt.Errorf("missing event_id")
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partition_key")
	}
	return nil
}
