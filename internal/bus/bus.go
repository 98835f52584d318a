// Package bus provides event bus implementations for publishing
// evaluation lifecycle events. Progress events are a side channel: they
// never alter evaluation ordering or results.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "eval.query.evaluated").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event with a fresh ID and current timestamp.
func NewEvent(eventType, source string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UnixNano(),
		Payload:   payload,
	}
}

// Topics for evaluation lifecycle events.
const (
	TopicApproachStarted   = "eval.approach.started"
	TopicApproachCompleted = "eval.approach.completed"
	TopicQueryEvaluated    = "eval.query.evaluated"
	TopicQueryFailed       = "eval.query.failed"
)
