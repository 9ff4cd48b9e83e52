// Package events re-exports the platform event bus for convenience.
// This allows internal modules to import events from internal/events
// while the implementation lives in platform/events.
package events

import (
	platformevents "github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// Event is the base interface all domain events implement.
type Event = platformevents.Event

// BaseEvent provides common fields for all events.
type BaseEvent = platformevents.BaseEvent

// Bus is the interface for publishing and subscribing to domain events.
type Bus = platformevents.Bus

// Handler processes events of a specific type.
type Handler = platformevents.Handler

// HandlerFunc adapts ordinary functions to the Handler interface.
type HandlerFunc = platformevents.HandlerFunc

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewBaseEvent creates a new base event with the current timestamp.
func NewBaseEvent() BaseEvent {
	return platformevents.NewBaseEvent()
}

// NewInMemoryBus creates a new in-memory event bus.
// This is a convenience re-export from platform/events.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
