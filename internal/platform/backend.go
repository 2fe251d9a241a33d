package platform

import "context"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Output describes a named physical output and its bounds.
type Output struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Bounds Rect   `json:"bounds"`
}

// Backend is everything the window manager core needs from the display
// server. Mutations are fire-and-forget; queries degrade to fallback
// values instead of failing.
type Backend interface {
	// HasPendingEvent reports, without blocking, whether an event is queued.
	HasPendingEvent() bool
	// NextEvent blocks until the next event or until ctx is done.
	NextEvent(ctx context.Context) (Event, error)

	Root() WindowID
	Windows() []WindowID
	WindowName(windowID WindowID) string

	// Screens never returns an empty slice.
	Screens() []Rect
	ScreenCount() int
	DisplayWidth(screen int) (int, error)
	DisplayHeight(screen int) (int, error)
	Outputs() []Output

	SetBorderWidth(windowID WindowID, width uint32)
	SetBorderColor(windowID WindowID, color uint32)
	Resize(windowID WindowID, width, height int)
	MoveTo(windowID WindowID, x, y int)
	Show(windowID WindowID)

	Close()
}
