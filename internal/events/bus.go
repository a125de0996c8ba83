// Package events provides the in-process event bus connecting the output
// subsystem to the API layer.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. Publishing on a nil bus is
// a no-op so services can run without one in tests.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	// Type switch calls the generic Publish with the concrete type.
	switch e := ev.(type) {
	case ConfigAppliedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigSavedEvent:
		event.Publish(b.dispatcher, e)
	case BufferResizedEvent:
		event.Publish(b.dispatcher, e)
	case PauseChangedEvent:
		event.Publish(b.dispatcher, e)
	case InputSourceEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an unsubscribe
// function.
// Usage: unsub := bus.Subscribe(func(e ConfigSavedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ConfigAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BufferResizedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PauseChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(InputSourceEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// No-op unsubscribe for unrecognized handler types
		return func() {}
	}
}
