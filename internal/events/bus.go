package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(CameraOpenedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case CameraOpenedEvent:
		event.Publish(b.dispatcher, e)
	case CameraClosedEvent:
		event.Publish(b.dispatcher, e)
	case StreamStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case FrameDroppedEvent:
		event.Publish(b.dispatcher, e)
	case MasterChangedEvent:
		event.Publish(b.dispatcher, e)
	case DisplayOpenedEvent:
		event.Publish(b.dispatcher, e)
	case DisplayClosedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDiscoveryEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e CameraOpenedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	// The kelindar/event library uses reflection to determine the event
	// type, so match the handler signature against each known event type.
	switch h := handler.(type) {
	case func(CameraOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MasterChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DisplayOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DisplayClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDiscoveryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
