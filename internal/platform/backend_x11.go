package platform

import (
	"context"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xwinsys/internal/x11"
)

// LinuxBackend exposes an X11 connection through the Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend wraps an existing X11 connection. The backend takes
// ownership; Close releases the connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens display (empty means $DISPLAY). The
// error is an *x11.ConnectionError.
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, err
	}
	return &LinuxBackend{conn: conn}, nil
}

// Close releases the underlying X11 connection.
func (b *LinuxBackend) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// HasPendingEvent reports whether an event can be read without blocking.
func (b *LinuxBackend) HasPendingEvent() bool {
	return b.conn.HasPendingEvent()
}

// NextEvent returns the next translated event.
func (b *LinuxBackend) NextEvent(ctx context.Context) (Event, error) {
	ev, err := b.conn.NextEvent(ctx)
	if err != nil {
		return Event{}, err
	}
	return eventFromX11(ev), nil
}

// Root returns the X11 root window ID.
func (b *LinuxBackend) Root() WindowID {
	return WindowID(b.conn.Root())
}

// Windows lists the top-level windows, root excluded.
func (b *LinuxBackend) Windows() []WindowID {
	wins := b.conn.Windows()
	ids := make([]WindowID, 0, len(wins))
	for _, w := range wins {
		ids = append(ids, WindowID(w))
	}
	return ids
}

// WindowName returns the window title, or "" when it has none.
func (b *LinuxBackend) WindowName(windowID WindowID) string {
	return b.conn.WindowName(xproto.Window(windowID))
}

// Screens returns the monitor rectangles in server order.
func (b *LinuxBackend) Screens() []Rect {
	heads := b.conn.Screens()
	rects := make([]Rect, 0, len(heads))
	for _, h := range heads {
		rects = append(rects, rectFromHead(h))
	}
	return rects
}

// ScreenCount returns the number of logical X screens.
func (b *LinuxBackend) ScreenCount() int {
	return b.conn.ScreenCount()
}

func (b *LinuxBackend) DisplayWidth(screen int) (int, error) {
	return b.conn.DisplayWidth(screen)
}

func (b *LinuxBackend) DisplayHeight(screen int) (int, error) {
	return b.conn.DisplayHeight(screen)
}

// Outputs returns the RandR outputs sorted by ID, or nothing when RandR is
// unavailable.
func (b *LinuxBackend) Outputs() []Output {
	outs, err := b.conn.Outputs()
	if err != nil {
		return []Output{}
	}

	outputs := make([]Output, 0, len(outs))
	for _, o := range outs {
		outputs = append(outputs, Output{
			ID:     o.ID,
			Name:   o.Name,
			Bounds: rectFromHead(o.Bounds),
		})
	}
	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].ID < outputs[j].ID
	})
	return outputs
}

func (b *LinuxBackend) SetBorderWidth(windowID WindowID, width uint32) {
	b.conn.SetBorderWidth(xproto.Window(windowID), width)
}

func (b *LinuxBackend) SetBorderColor(windowID WindowID, color uint32) {
	b.conn.SetBorderColor(xproto.Window(windowID), color)
}

func (b *LinuxBackend) Resize(windowID WindowID, width, height int) {
	b.conn.Resize(xproto.Window(windowID), width, height)
}

func (b *LinuxBackend) MoveTo(windowID WindowID, x, y int) {
	b.conn.MoveTo(xproto.Window(windowID), x, y)
}

func (b *LinuxBackend) Show(windowID WindowID) {
	b.conn.Show(xproto.Window(windowID))
}

func rectFromHead(h x11.Head) Rect {
	return Rect{
		X:      h.X,
		Y:      h.Y,
		Width:  h.Width,
		Height: h.Height,
	}
}

func eventFromX11(ev x11.Event) Event {
	out := Event{Code: ev.Code}
	switch ev.Kind {
	case x11.EventWindowCreated:
		out.Kind = EventWindowCreated
	case x11.EventWindowDestroyed:
		out.Kind = EventWindowDestroyed
	case x11.EventEnter:
		out.Kind = EventEnter
	case x11.EventLeave:
		out.Kind = EventLeave
	default:
		return Event{Kind: EventUnknown, Code: ev.Code}
	}
	out.Window = WindowID(ev.Window)
	return out
}
