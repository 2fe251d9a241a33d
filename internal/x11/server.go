package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// wakeAtomName names the private client message used to interrupt a
// blocked event wait.
const wakeAtomName = "_XWINSYS_WAKE"

// noEventMask sends an event to the client that created the destination
// window, which for the wake window is only us.
const noEventMask = 0

// Server is the subset of the X protocol the connection drives. The xgb
// backed implementation is returned by Dial; tests substitute an in-memory
// server from the x11test package.
type Server interface {
	Root() xproto.Window
	// Roots returns the screens from the connection setup; it sends no
	// request.
	Roots() []xproto.ScreenInfo

	// SelectInput replaces the event mask of win and waits for the result.
	SelectInput(win xproto.Window, mask uint32) error
	// SetEventMask replaces the event mask of win without a round trip.
	SetEventMask(win xproto.Window, mask uint32)
	QueryTree(win xproto.Window) ([]xproto.Window, error)
	XineramaScreens() ([]xinerama.ScreenInfo, error)
	Outputs() ([]Output, error)
	WindowTitle(win xproto.Window) (string, error)

	SetBorderWidth(win xproto.Window, width uint32)
	SetBorderPixel(win xproto.Window, pixel uint32)
	Move(win xproto.Window, x, y int)
	Resize(win xproto.Window, width, height int)
	Map(win xproto.Window)

	Sync()
	WaitForEvent() (xgb.Event, xgb.Error)
	PollForEvent() (xgb.Event, xgb.Error)
	WakeAtom() xproto.Atom
	// WakeWindow is the unmapped window wake messages are addressed to.
	WakeWindow() xproto.Window
	Wake() error

	Close()
}

type xgbServer struct {
	xu       *xgbutil.XUtil
	wakeAtom xproto.Atom
	wakeWin  xproto.Window
	xinerama error
}

var _ Server = (*xgbServer)(nil)

// Dial connects to the named display. An empty name uses $DISPLAY.
func Dial(display string) (Server, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	atom, err := xproto.InternAtom(xu.Conn(), false,
		uint16(len(wakeAtomName)), wakeAtomName).Reply()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to intern %s: %w", wakeAtomName, err)
	}

	wakeWin, err := createWakeWindow(xu)
	if err != nil {
		xu.Conn().Close()
		return nil, err
	}

	return &xgbServer{
		xu:       xu,
		wakeAtom: atom.Atom,
		wakeWin:  wakeWin,
		// Missing Xinerama is not fatal; Screens falls back to the root geometry.
		xinerama: xinerama.Init(xu.Conn()),
	}, nil
}

// createWakeWindow creates an unmapped 1x1 InputOnly child of root. It is
// destroyed with the connection.
func createWakeWindow(xu *xgbutil.XUtil) (xproto.Window, error) {
	wid, err := xproto.NewWindowId(xu.Conn())
	if err != nil {
		return 0, fmt.Errorf("failed to allocate wake window: %w", err)
	}
	err = xproto.CreateWindowChecked(xu.Conn(), 0, wid, xu.RootWin(),
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, 0, nil).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create wake window: %w", err)
	}
	return wid, nil
}

func (s *xgbServer) Root() xproto.Window {
	return s.xu.RootWin()
}

func (s *xgbServer) Roots() []xproto.ScreenInfo {
	setup := xproto.Setup(s.xu.Conn())
	if setup == nil {
		return nil
	}
	return setup.Roots
}

func (s *xgbServer) SelectInput(win xproto.Window, mask uint32) error {
	return xwindow.New(s.xu, win).Listen(int(mask))
}

func (s *xgbServer) SetEventMask(win xproto.Window, mask uint32) {
	xproto.ChangeWindowAttributes(s.xu.Conn(), win, xproto.CwEventMask, []uint32{mask})
}

func (s *xgbServer) QueryTree(win xproto.Window) ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(s.xu.Conn(), win).Reply()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil
	}
	return tree.Children, nil
}

func (s *xgbServer) XineramaScreens() ([]xinerama.ScreenInfo, error) {
	if s.xinerama != nil {
		return nil, fmt.Errorf("xinerama unavailable: %w", s.xinerama)
	}
	reply, err := xinerama.QueryScreens(s.xu.Conn()).Reply()
	if err != nil {
		return nil, err
	}
	return reply.ScreenInfo, nil
}

// Outputs lists connected RandR outputs that drive an enabled CRTC.
func (s *xgbServer) Outputs() ([]Output, error) {
	if err := randr.Init(s.xu.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(s.xu.Conn(), s.xu.RootWin()).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var outputs []Output
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(s.xu.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Output%d", i)
		outInfo, err := randr.GetOutputInfo(s.xu.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			name = string(outInfo.Name)
		}

		outputs = append(outputs, Output{
			ID:   i,
			Name: name,
			Bounds: Head{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	return outputs, nil
}

// WindowTitle prefers the UTF-8 _NET_WM_NAME and falls back to WM_NAME.
func (s *xgbServer) WindowTitle(win xproto.Window) (string, error) {
	title, err := ewmh.WmNameGet(s.xu, win)
	if err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title, nil
		}
	}

	title, err = icccm.WmNameGet(s.xu, win)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}

func (s *xgbServer) SetBorderWidth(win xproto.Window, width uint32) {
	xproto.ConfigureWindow(s.xu.Conn(), win, xproto.ConfigWindowBorderWidth, []uint32{width})
}

func (s *xgbServer) SetBorderPixel(win xproto.Window, pixel uint32) {
	xwindow.New(s.xu, win).Change(xproto.CwBorderPixel, pixel)
}

func (s *xgbServer) Move(win xproto.Window, x, y int) {
	xwindow.New(s.xu, win).Move(x, y)
}

func (s *xgbServer) Resize(win xproto.Window, width, height int) {
	xwindow.New(s.xu, win).Resize(width, height)
}

func (s *xgbServer) Map(win xproto.Window) {
	xwindow.New(s.xu, win).Map()
}

func (s *xgbServer) Sync() {
	s.xu.Conn().Sync()
}

func (s *xgbServer) WaitForEvent() (xgb.Event, xgb.Error) {
	return s.xu.Conn().WaitForEvent()
}

func (s *xgbServer) PollForEvent() (xgb.Event, xgb.Error) {
	return s.xu.Conn().PollForEvent()
}

func (s *xgbServer) WakeAtom() xproto.Atom {
	return s.wakeAtom
}

func (s *xgbServer) WakeWindow() xproto.Window {
	return s.wakeWin
}

// Wake sends the wake message to the private wake window, so no other
// client sees it. The send is unchecked; a failure arrives as an
// asynchronous error, which the event pump skips.
func (s *xgbServer) Wake() error {
	ev := WakeMessage(s.wakeWin, s.wakeAtom)
	xproto.SendEvent(s.xu.Conn(), false, s.wakeWin, noEventMask, string(ev.Bytes()))
	return nil
}

// WakeMessage builds the client message that interrupts a blocked event
// wait.
func WakeMessage(win xproto.Window, atom xproto.Atom) xproto.ClientMessageEvent {
	return xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{0, 0, 0, 0, 0}),
	}
}

func (s *xgbServer) Close() {
	s.xu.Conn().Close()
}
