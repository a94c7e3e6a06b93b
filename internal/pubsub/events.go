// Package pubsub provides a generic publish/subscribe event system used to
// notify read-only observers (CLI progress, the task browser, the log tail)
// about state owned by a single writer.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// Record-level changes applied by a mutation.
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"

	// Fetch lifecycle of a collection.
	LoadingEvent EventType = "loading"
	LoadedEvent  EventType = "loaded"
	FailedEvent  EventType = "failed"

	// ClearedEvent signals that a store was reset to its empty state.
	ClearedEvent EventType = "cleared"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T) int
}
