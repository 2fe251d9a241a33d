// Package x11test provides an in-memory X server for exercising
// x11.Connection without a display.
package x11test

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xwinsys/internal/x11"
)

// Defaults used by New.
const (
	RootWindow xproto.Window = 0x1ea
	WakeWindow xproto.Window = 0x1f1
	WakeAtom   xproto.Atom   = 0x1f0

	DefaultWidth  = 1920
	DefaultHeight = 1080
)

var errClosed = errors.New("x11test: server closed")

type queued struct {
	ev  xgb.Event
	err xgb.Error
}

// Server implements x11.Server. Requests are recorded so tests can assert
// on the resulting window state, and events are only delivered when the
// target window selected the matching mask.
type Server struct {
	mu sync.Mutex

	root     xproto.Window
	roots    []xproto.ScreenInfo
	heads    []xinerama.ScreenInfo
	headsErr error
	outputs  []x11.Output
	children []xproto.Window
	treeErr  error
	titles   map[xproto.Window]string

	selectErr map[xproto.Window]error
	masks     map[xproto.Window]uint32
	borders   map[xproto.Window]uint32
	pixels    map[xproto.Window]uint32
	positions map[xproto.Window][2]int
	sizes     map[xproto.Window][2]int
	mapped    map[xproto.Window]bool
	requests  []string

	syncs      int
	wakes      int
	closes     int
	closed     bool
	afterClose int
	hook       func(request string)
	queue      chan queued
}

var _ x11.Server = (*Server)(nil)

// New returns a server with one DefaultWidth x DefaultHeight screen and no
// Xinerama heads.
func New() *Server {
	return &Server{
		root: RootWindow,
		roots: []xproto.ScreenInfo{{
			Root:           RootWindow,
			WidthInPixels:  DefaultWidth,
			HeightInPixels: DefaultHeight,
		}},
		titles:    make(map[xproto.Window]string),
		selectErr: make(map[xproto.Window]error),
		masks:     make(map[xproto.Window]uint32),
		borders:   make(map[xproto.Window]uint32),
		pixels:    make(map[xproto.Window]uint32),
		positions: make(map[xproto.Window][2]int),
		sizes:     make(map[xproto.Window][2]int),
		mapped:    make(map[xproto.Window]bool),
		queue:     make(chan queued, 1024),
	}
}

// SetRoots replaces the logical screens. The first root keeps the root
// window id.
func (s *Server) SetRoots(sizes ...[2]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = s.roots[:0]
	for i, size := range sizes {
		root := s.root + xproto.Window(i)
		s.roots = append(s.roots, xproto.ScreenInfo{
			Root:           root,
			WidthInPixels:  uint16(size[0]),
			HeightInPixels: uint16(size[1]),
		})
	}
}

// SetHeads sets the Xinerama heads as x, y, width, height tuples.
func (s *Server) SetHeads(heads ...[4]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads = s.heads[:0]
	for _, h := range heads {
		s.heads = append(s.heads, xinerama.ScreenInfo{
			XOrg:   int16(h[0]),
			YOrg:   int16(h[1]),
			Width:  uint16(h[2]),
			Height: uint16(h[3]),
		})
	}
}

// FailHeads makes the Xinerama query fail with err.
func (s *Server) FailHeads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headsErr = err
}

// SetOutputs sets the RandR outputs.
func (s *Server) SetOutputs(outputs ...x11.Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = outputs
}

// SetChildren sets the reply of QueryTree on root.
func (s *Server) SetChildren(children ...xproto.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = children
}

// FailTree makes QueryTree fail with err.
func (s *Server) FailTree(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.treeErr = err
}

// SetTitle sets the title reported for win.
func (s *Server) SetTitle(win xproto.Window, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[win] = title
}

// FailSelectInput makes SelectInput on win fail with err.
func (s *Server) FailSelectInput(win xproto.Window, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectErr[win] = err
}

// EventMask returns the mask selected on win, if any.
func (s *Server) EventMask(win xproto.Window) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mask, ok := s.masks[win]
	return mask, ok
}

// BorderWidth returns the border width set on win, if any.
func (s *Server) BorderWidth(win xproto.Window) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.borders[win]
	return w, ok
}

// BorderPixel returns the border pixel set on win, if any.
func (s *Server) BorderPixel(win xproto.Window) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pixels[win]
	return p, ok
}

// Position returns the last requested position of win.
func (s *Server) Position(win xproto.Window) (x, y int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[win]
	return pos[0], pos[1], ok
}

// Size returns the last requested size of win.
func (s *Server) Size(win xproto.Window) (width, height int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.sizes[win]
	return size[0], size[1], ok
}

// Mapped reports whether win was mapped.
func (s *Server) Mapped(win xproto.Window) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapped[win]
}

// Requests returns the names of the requests received so far, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Syncs returns how many round trips were forced.
func (s *Server) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}

// Wakes returns how many wake messages were sent.
func (s *Server) Wakes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wakes
}

// Closes returns how many times Close was called.
func (s *Server) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// SetRequestHook installs fn to run at the start of every request, before
// the request takes effect. fn runs without the server lock held.
func (s *Server) SetRequestHook(fn func(request string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// RequestsAfterClose returns how many requests arrived after Close. A real
// xgb connection panics on those.
func (s *Server) RequestsAfterClose() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.afterClose
}

// Push queues ev regardless of event masks.
func (s *Server) Push(ev xgb.Event) {
	s.enqueue(queued{ev: ev})
}

// PushError queues an asynchronous request error.
func (s *Server) PushError(err xgb.Error) {
	s.enqueue(queued{err: err})
}

// Emit queues ev if the window it would be reported on selected the
// matching event mask, the way the X server routes events. It reports
// whether the event was delivered.
func (s *Server) Emit(ev xgb.Event) bool {
	win, mask, routed := route(ev)
	if routed {
		s.mu.Lock()
		selected := s.masks[win]
		s.mu.Unlock()
		if selected&mask == 0 {
			return false
		}
	}
	s.enqueue(queued{ev: ev})
	return true
}

func (s *Server) enqueue(q queued) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue <- q
}

// route returns the window an event is reported on and the mask it needs.
func route(ev xgb.Event) (xproto.Window, uint32, bool) {
	structural := func(event, window xproto.Window) (xproto.Window, uint32, bool) {
		if event == window {
			return window, xproto.EventMaskStructureNotify, true
		}
		return event, xproto.EventMaskSubstructureNotify, true
	}

	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		return e.Parent, xproto.EventMaskSubstructureRedirect, true
	case xproto.ConfigureRequestEvent:
		return e.Parent, xproto.EventMaskSubstructureRedirect, true
	case xproto.EnterNotifyEvent:
		return e.Event, xproto.EventMaskEnterWindow, true
	case xproto.LeaveNotifyEvent:
		return e.Event, xproto.EventMaskLeaveWindow, true
	case xproto.ConfigureNotifyEvent:
		return structural(e.Event, e.Window)
	case xproto.DestroyNotifyEvent:
		return structural(e.Event, e.Window)
	case xproto.UnmapNotifyEvent:
		return structural(e.Event, e.Window)
	case xproto.MapNotifyEvent:
		return structural(e.Event, e.Window)
	case xproto.PropertyNotifyEvent:
		return e.Window, xproto.EventMaskPropertyChange, true
	default:
		return 0, 0, false
	}
}

// enter runs the request hook and returns with s locked.
func (s *Server) enter(request string) {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(request)
	}

	s.mu.Lock()
	if s.closed {
		s.afterClose++
	}
}

func (s *Server) record(format string, args ...any) {
	s.requests = append(s.requests, fmt.Sprintf(format, args...))
}

func (s *Server) Root() xproto.Window {
	return s.root
}

func (s *Server) Roots() []xproto.ScreenInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]xproto.ScreenInfo(nil), s.roots...)
}

func (s *Server) SelectInput(win xproto.Window, mask uint32) error {
	s.enter("SelectInput")
	defer s.mu.Unlock()
	s.record("SelectInput %d %#x", win, mask)
	if err := s.selectErr[win]; err != nil {
		return err
	}
	s.masks[win] = mask
	return nil
}

func (s *Server) SetEventMask(win xproto.Window, mask uint32) {
	s.enter("SetEventMask")
	defer s.mu.Unlock()
	s.record("SetEventMask %d %#x", win, mask)
	s.masks[win] = mask
}

func (s *Server) QueryTree(win xproto.Window) ([]xproto.Window, error) {
	s.enter("QueryTree")
	defer s.mu.Unlock()
	s.record("QueryTree %d", win)
	if s.treeErr != nil {
		return nil, s.treeErr
	}
	if win != s.root {
		return nil, nil
	}
	return append([]xproto.Window(nil), s.children...), nil
}

func (s *Server) XineramaScreens() ([]xinerama.ScreenInfo, error) {
	s.enter("XineramaQueryScreens")
	defer s.mu.Unlock()
	s.record("XineramaQueryScreens")
	if s.headsErr != nil {
		return nil, s.headsErr
	}
	return append([]xinerama.ScreenInfo(nil), s.heads...), nil
}

func (s *Server) Outputs() ([]x11.Output, error) {
	s.enter("RandrOutputs")
	defer s.mu.Unlock()
	s.record("RandrOutputs")
	return append([]x11.Output(nil), s.outputs...), nil
}

func (s *Server) WindowTitle(win xproto.Window) (string, error) {
	s.enter("GetTitle")
	defer s.mu.Unlock()
	s.record("GetTitle %d", win)
	title, ok := s.titles[win]
	if !ok {
		return "", fmt.Errorf("x11test: window %d has no title", win)
	}
	return title, nil
}

func (s *Server) SetBorderWidth(win xproto.Window, width uint32) {
	s.enter("SetBorderWidth")
	defer s.mu.Unlock()
	s.record("SetBorderWidth %d %d", win, width)
	s.borders[win] = width
}

func (s *Server) SetBorderPixel(win xproto.Window, pixel uint32) {
	s.enter("SetBorderPixel")
	defer s.mu.Unlock()
	s.record("SetBorderPixel %d %#06x", win, pixel)
	s.pixels[win] = pixel
}

func (s *Server) Move(win xproto.Window, x, y int) {
	s.enter("Move")
	defer s.mu.Unlock()
	s.record("Move %d %d %d", win, x, y)
	s.positions[win] = [2]int{x, y}
}

func (s *Server) Resize(win xproto.Window, width, height int) {
	s.enter("Resize")
	defer s.mu.Unlock()
	s.record("Resize %d %d %d", win, width, height)
	s.sizes[win] = [2]int{width, height}
}

func (s *Server) Map(win xproto.Window) {
	s.enter("Map")
	defer s.mu.Unlock()
	s.record("Map %d", win)
	s.mapped[win] = true
}

func (s *Server) Sync() {
	s.enter("Sync")
	defer s.mu.Unlock()
	s.syncs++
}

func (s *Server) WaitForEvent() (xgb.Event, xgb.Error) {
	q, ok := <-s.queue
	if !ok {
		return nil, nil
	}
	return q.ev, q.err
}

func (s *Server) PollForEvent() (xgb.Event, xgb.Error) {
	select {
	case q, ok := <-s.queue:
		if !ok {
			return nil, nil
		}
		return q.ev, q.err
	default:
		return nil, nil
	}
}

func (s *Server) WakeAtom() xproto.Atom {
	return WakeAtom
}

func (s *Server) WakeWindow() xproto.Window {
	return WakeWindow
}

func (s *Server) Wake() error {
	s.enter("Wake")
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.wakes++
	s.queue <- queued{ev: x11.WakeMessage(WakeWindow, WakeAtom)}
	return nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}
