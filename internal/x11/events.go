package x11

import (
	"context"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// EventKind classifies a translated X event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventWindowCreated
	// EventWindowDestroyed is reserved; the translator does not produce it.
	EventWindowDestroyed
	EventEnter
	EventLeave
)

func (k EventKind) String() string {
	switch k {
	case EventWindowCreated:
		return "window_created"
	case EventWindowDestroyed:
		return "window_destroyed"
	case EventEnter:
		return "enter"
	case EventLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Event is the translated form of one X event.
type Event struct {
	Kind   EventKind
	Window xproto.Window
	// Code is the X event class the event was decoded from.
	Code byte
}

// HasPendingEvent reports whether an event is queued without blocking.
// A polled event is held until the next call to NextEvent.
func (c *Connection) HasPendingEvent() bool {
	if c.Closed() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.peeked != nil {
		return true
	}
	for {
		ev, xerr := c.srv.PollForEvent()
		if ev == nil {
			if xerr != nil {
				// Asynchronous request error; nothing to report.
				continue
			}
			return false
		}
		if c.isWake(ev) {
			continue
		}
		c.peeked = ev
		return true
	}
}

// NextEvent flushes outstanding requests and blocks until the next event
// arrives, then translates it. It returns ctx.Err() once ctx is done and
// ErrConnectionClosed when the connection goes away.
func (c *Connection) NextEvent(ctx context.Context) (Event, error) {
	if c.Closed() {
		return Event{}, ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}

	stop := context.AfterFunc(ctx, func() {
		c.withServer(func(srv Server) { _ = srv.Wake() })
	})
	defer stop()

	if !c.withServer(func(srv Server) { srv.Sync() }) {
		return Event{}, ErrConnectionClosed
	}
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}

		ev, xerr := c.take()
		if ev == nil {
			if xerr != nil {
				// Fire-and-forget requests on vanished windows land here.
				continue
			}
			return Event{}, ErrConnectionClosed
		}
		if c.isWake(ev) {
			continue
		}
		return c.translate(ev), nil
	}
}

func (c *Connection) take() (xgb.Event, xgb.Error) {
	c.mu.Lock()
	if ev := c.peeked; ev != nil {
		c.peeked = nil
		c.mu.Unlock()
		return ev, nil
	}
	c.mu.Unlock()
	return c.srv.WaitForEvent()
}

// isWake reports whether ev is our own wake message. Only the private
// wake window carries it; the same atom on any other window is surfaced.
func (c *Connection) isWake(ev xgb.Event) bool {
	msg, ok := ev.(xproto.ClientMessageEvent)
	return ok && msg.Type == c.srv.WakeAtom() && msg.Window == c.srv.WakeWindow()
}

// translate classifies ev. Map requests also narrow the window's event
// subscription; this must happen before the event is handed out, or the
// caller could miss crossings on the new window.
func (c *Connection) translate(ev xgb.Event) Event {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		c.withServer(func(srv Server) { srv.SetEventMask(e.Window, ManagedEventMask) })
		return Event{Kind: EventWindowCreated, Window: e.Window, Code: xproto.MapRequest}
	case xproto.EnterNotifyEvent:
		return Event{Kind: EventEnter, Window: e.Event, Code: xproto.EnterNotify}
	case xproto.LeaveNotifyEvent:
		return Event{Kind: EventLeave, Window: e.Event, Code: xproto.LeaveNotify}
	default:
		return Event{Kind: EventUnknown, Code: eventCode(ev)}
	}
}

// eventCode reads the event class from the wire form of ev, with the
// synthetic (SendEvent) bit cleared.
func eventCode(ev xgb.Event) byte {
	if ev == nil {
		return 0
	}
	buf := ev.Bytes()
	if len(buf) == 0 {
		return 0
	}
	return buf[0] & 0x7f
}
