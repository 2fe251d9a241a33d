package platform

import "fmt"

// EventKind identifies the variant of an Event.
type EventKind string

const (
	EventUnknown       EventKind = "unknown"
	EventWindowCreated EventKind = "window_created"
	// EventWindowDestroyed is reserved and not produced yet.
	EventWindowDestroyed EventKind = "window_destroyed"
	EventEnter           EventKind = "enter"
	EventLeave           EventKind = "leave"
)

// Event is a window system event. Window is set for every kind except
// EventUnknown; Code is the protocol event class it was decoded from.
type Event struct {
	Kind   EventKind `json:"kind"`
	Window WindowID  `json:"window,omitempty"`
	Code   uint8     `json:"code"`
}

func (e Event) String() string {
	if e.Kind == EventUnknown {
		return fmt.Sprintf("unknown(%d)", e.Code)
	}
	return fmt.Sprintf("%s(%#x)", e.Kind, uint32(e.Window))
}
