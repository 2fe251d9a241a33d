package x11

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// Event masks selected by the connection.
const (
	// RootEventMask lets the connection intercept map requests of top-level
	// windows and observe pointer crossings on root.
	RootEventMask uint32 = xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskEnterWindow |
		xproto.EventMaskLeaveWindow // 0x180030

	// ManagedEventMask replaces a window's subscription once it is managed.
	ManagedEventMask uint32 = xproto.EventMaskEnterWindow |
		xproto.EventMaskLeaveWindow // 0x30
)

var (
	// ErrAnotherWM is returned when root refuses SubstructureRedirect.
	ErrAnotherWM = errors.New("another window manager is already running")
	// ErrConnectionClosed is returned by operations on a closed connection.
	ErrConnectionClosed = errors.New("x11 connection closed")
	// ErrInvalidScreen is returned for a screen index the server does not have.
	ErrInvalidScreen = errors.New("invalid screen index")
)

// ConnectionError reports a failure to establish the display connection.
type ConnectionError struct {
	Display string
	Err     error
}

func (e *ConnectionError) Error() string {
	display := e.Display
	if display == "" {
		display = "$DISPLAY"
	}
	return fmt.Sprintf("cannot connect to display %s: %v", display, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Connection owns the link to the X server and the root window handle.
type Connection struct {
	srv  Server
	root xproto.Window

	// peeked holds an event fetched by HasPendingEvent until NextEvent
	// consumes it.
	mu     sync.Mutex
	peeked xgb.Event

	// reqMu is held shared around every request sent to srv and
	// exclusively by Close, so nothing is sent once srv is closed.
	reqMu     sync.RWMutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewConnection connects to display (empty means $DISPLAY) and subscribes
// the root window. Any failure is a *ConnectionError.
func NewConnection(display string) (*Connection, error) {
	srv, err := Dial(display)
	if err != nil {
		return nil, &ConnectionError{Display: display, Err: err}
	}

	conn, err := NewConnectionWithServer(srv)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			connErr.Display = display
		}
		return nil, err
	}
	return conn, nil
}

// NewConnectionWithServer wraps an established server. On failure the
// server is closed.
func NewConnectionWithServer(srv Server) (*Connection, error) {
	root := srv.Root()

	if err := srv.SelectInput(root, RootEventMask); err != nil {
		srv.Close()
		var access xproto.AccessError
		if errors.As(err, &access) {
			return nil, &ConnectionError{Err: ErrAnotherWM}
		}
		return nil, &ConnectionError{Err: fmt.Errorf("failed to select root events: %w", err)}
	}
	srv.Sync()

	return &Connection{
		srv:  srv,
		root: root,
	}, nil
}

// Root returns the root window of the default screen.
func (c *Connection) Root() xproto.Window {
	return c.root
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// Close disconnects from the X server. It waits for requests already in
// flight, and only the first call has an effect. A goroutine blocked in
// NextEvent returns ErrConnectionClosed.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.reqMu.Lock()
		c.closed.Store(true)
		c.reqMu.Unlock()
		c.srv.Close()
	})
}

// withServer runs fn unless the connection is closed, and reports whether
// it ran. Close cannot complete while fn is running.
func (c *Connection) withServer(fn func(srv Server)) bool {
	c.reqMu.RLock()
	defer c.reqMu.RUnlock()
	if c.closed.Load() {
		return false
	}
	fn(c.srv)
	return true
}
