package x11_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xwinsys/internal/x11/x11test"
)

func TestWindows_ExcludesRoot(t *testing.T) {
	conn, srv := newTestConnection(t)
	srv.SetChildren(0x400001, x11test.RootWindow, 0x400002, 0x400003)

	got := conn.Windows()
	want := []xproto.Window{0x400001, 0x400002, 0x400003}
	if len(got) != len(want) {
		t.Fatalf("Windows() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Windows()[%d] = %d, want %d", i, got[i], want[i])
		}
		if got[i] == conn.Root() {
			t.Fatal("Windows() must not contain root")
		}
	}
}

func TestWindows_RequeriesEveryCall(t *testing.T) {
	conn, srv := newTestConnection(t)
	srv.SetChildren(0x400001)
	if n := len(conn.Windows()); n != 1 {
		t.Fatalf("expected 1 window, got %d", n)
	}

	srv.SetChildren(0x400001, 0x400002)
	if n := len(conn.Windows()); n != 2 {
		t.Fatalf("expected 2 windows after change, got %d", n)
	}
}

func TestWindows_QueryFailureIsEmpty(t *testing.T) {
	conn, srv := newTestConnection(t)
	srv.SetChildren(0x400001)
	srv.FailTree(errors.New("bad window"))

	got := conn.Windows()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestWindowName(t *testing.T) {
	conn, srv := newTestConnection(t)
	srv.SetTitle(0x400001, "editor")
	srv.SetTitle(conn.Root(), "should not be read")

	if got := conn.WindowName(conn.Root()); got != "root" {
		t.Fatalf("WindowName(root) = %q, want root", got)
	}
	for _, req := range srv.Requests() {
		if strings.HasPrefix(req, "GetTitle") {
			t.Fatalf("root name must not query the server, saw %q", req)
		}
	}

	if got := conn.WindowName(0x400001); got != "editor" {
		t.Fatalf("WindowName = %q, want editor", got)
	}
	if got := conn.WindowName(0x400002); got != "" {
		t.Fatalf("WindowName of untitled window = %q, want empty", got)
	}
}

func TestBorders_RootIsNoop(t *testing.T) {
	conn, srv := newTestConnection(t)

	for i := 0; i < 3; i++ {
		conn.SetBorderWidth(conn.Root(), uint32(i+1))
		conn.SetBorderColor(conn.Root(), 0xff0000)
	}

	if _, ok := srv.BorderWidth(conn.Root()); ok {
		t.Fatal("root border width must not be set")
	}
	if _, ok := srv.BorderPixel(conn.Root()); ok {
		t.Fatal("root border pixel must not be set")
	}
	for _, req := range srv.Requests() {
		if strings.HasPrefix(req, "SetBorder") {
			t.Fatalf("root border setter reached the server: %q", req)
		}
	}
}

func TestBorders_ManagedWindow(t *testing.T) {
	conn, srv := newTestConnection(t)
	const win xproto.Window = 0x400001

	conn.SetBorderWidth(win, 3)
	conn.SetBorderColor(win, 0x5294e2)

	if w, ok := srv.BorderWidth(win); !ok || w != 3 {
		t.Fatalf("border width = %d (set=%v), want 3", w, ok)
	}
	if p, ok := srv.BorderPixel(win); !ok || p != 0x5294e2 {
		t.Fatalf("border pixel = %#x (set=%v), want 0x5294e2", p, ok)
	}
}

func TestGeometry(t *testing.T) {
	conn, srv := newTestConnection(t)
	const win xproto.Window = 0x400001

	conn.MoveTo(win, 1920, 40)
	conn.Resize(win, 800, 600)
	conn.Show(win)

	if x, y, ok := srv.Position(win); !ok || x != 1920 || y != 40 {
		t.Fatalf("position = (%d,%d) set=%v, want (1920,40)", x, y, ok)
	}
	if w, h, ok := srv.Size(win); !ok || w != 800 || h != 600 {
		t.Fatalf("size = %dx%d set=%v, want 800x600", w, h, ok)
	}
	if !srv.Mapped(win) {
		t.Fatal("expected window to be mapped")
	}
	if _, _, ok := srv.Position(win + 1); ok {
		t.Fatal("unexpected position for untouched window")
	}
}

func TestResize_ClampsToOne(t *testing.T) {
	conn, srv := newTestConnection(t)

	conn.Resize(0x400001, 0, -5)
	if w, h, _ := srv.Size(0x400001); w != 1 || h != 1 {
		t.Fatalf("size = %dx%d, want 1x1", w, h)
	}
}

func TestResize_AppliesToRoot(t *testing.T) {
	conn, srv := newTestConnection(t)

	conn.Resize(conn.Root(), 640, 480)
	conn.MoveTo(conn.Root(), 0, 0)
	if _, _, ok := srv.Size(conn.Root()); !ok {
		t.Fatal("resize of root must be forwarded")
	}
	if _, _, ok := srv.Position(conn.Root()); !ok {
		t.Fatal("move of root must be forwarded")
	}
}

func TestMutators_AfterCloseAreNoops(t *testing.T) {
	conn, srv := newTestConnection(t)
	srv.SetChildren(0x400001)
	conn.Close()

	before := len(srv.Requests())
	conn.SetBorderWidth(0x400001, 1)
	conn.SetBorderColor(0x400001, 1)
	conn.Resize(0x400001, 10, 10)
	conn.MoveTo(0x400001, 1, 1)
	conn.Show(0x400001)
	if got := conn.Windows(); len(got) != 0 {
		t.Fatalf("expected no windows after close, got %v", got)
	}
	if got := conn.WindowName(0x400001); got != "" {
		t.Fatalf("expected empty name after close, got %q", got)
	}
	if after := len(srv.Requests()); after != before {
		t.Fatalf("expected no requests after close, got %d new", after-before)
	}
}
