package x11_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xwinsys/internal/x11"
	"github.com/1broseidon/xwinsys/internal/x11/x11test"
)

func newTestConnection(t *testing.T) (*x11.Connection, *x11test.Server) {
	t.Helper()
	srv := x11test.New()
	conn, err := x11.NewConnectionWithServer(srv)
	if err != nil {
		t.Fatalf("NewConnectionWithServer: %v", err)
	}
	t.Cleanup(conn.Close)
	return conn, srv
}

func TestNewConnection_SubscribesRoot(t *testing.T) {
	conn, srv := newTestConnection(t)

	if conn.Root() != x11test.RootWindow {
		t.Fatalf("Root() = %d, want %d", conn.Root(), x11test.RootWindow)
	}
	mask, ok := srv.EventMask(x11test.RootWindow)
	if !ok {
		t.Fatal("expected root event mask to be selected")
	}
	if mask != 0x180030 {
		t.Fatalf("root mask = %#x, want 0x180030", mask)
	}
	if srv.Syncs() == 0 {
		t.Fatal("expected a sync after selecting root events")
	}
}

func TestNewConnection_AnotherWMIsConnectionError(t *testing.T) {
	srv := x11test.New()
	srv.FailSelectInput(x11test.RootWindow, xproto.AccessError{})

	_, err := x11.NewConnectionWithServer(srv)
	if err == nil {
		t.Fatal("expected error when root refuses SubstructureRedirect")
	}
	if !errors.Is(err, x11.ErrAnotherWM) {
		t.Fatalf("expected ErrAnotherWM, got %v", err)
	}
	var connErr *x11.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
	if srv.Closes() != 1 {
		t.Fatalf("expected server to be closed once, got %d", srv.Closes())
	}
}

func TestNewConnection_OtherSelectFailure(t *testing.T) {
	srv := x11test.New()
	srv.FailSelectInput(x11test.RootWindow, xproto.WindowError{})

	_, err := x11.NewConnectionWithServer(srv)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, x11.ErrAnotherWM) {
		t.Fatalf("did not expect ErrAnotherWM for a window error: %v", err)
	}
	var connErr *x11.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
}

func TestConnectionError_Message(t *testing.T) {
	err := &x11.ConnectionError{Display: ":3", Err: errors.New("refused")}
	if got, want := err.Error(), "cannot connect to display :3: refused"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	err = &x11.ConnectionError{Err: errors.New("refused")}
	if got, want := err.Error(), "cannot connect to display $DISPLAY: refused"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	conn, srv := newTestConnection(t)

	conn.Close()
	conn.Close()

	if !conn.Closed() {
		t.Fatal("expected Closed() after Close")
	}
	if srv.Closes() != 1 {
		t.Fatalf("server closed %d times, want 1", srv.Closes())
	}
}

func TestClose_WaitsForInFlightRequest(t *testing.T) {
	conn, srv := newTestConnection(t)
	const win xproto.Window = 0x400001

	started := make(chan struct{})
	var once sync.Once
	srv.SetRequestHook(func(req string) {
		if req == "Move" {
			once.Do(func() { close(started) })
			time.Sleep(20 * time.Millisecond)
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.MoveTo(win, 10, 20)
	}()

	<-started
	conn.Close()

	if n := srv.RequestsAfterClose(); n != 0 {
		t.Fatalf("%d request(s) reached the server after Close", n)
	}
	if x, y, ok := srv.Position(win); !ok || x != 10 || y != 20 {
		t.Fatalf("in-flight move not completed before Close: (%d, %d, %v)", x, y, ok)
	}

	conn.MoveTo(win, 30, 40)
	conn.Show(win)
	conn.Windows()
	if n := srv.RequestsAfterClose(); n != 0 {
		t.Fatalf("%d request(s) reached the server after Close", n)
	}
	<-done
}

func TestClose_WaitsForCancelWake(t *testing.T) {
	conn, srv := newTestConnection(t)
	baseSyncs := srv.Syncs()

	waking := make(chan struct{})
	var once sync.Once
	srv.SetRequestHook(func(req string) {
		if req == "Wake" {
			once.Do(func() { close(waking) })
			time.Sleep(20 * time.Millisecond)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		_, err := conn.NextEvent(ctx)
		errCh <- err
	}()

	// NextEvent syncs after arming the cancel hook.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Syncs() == baseSyncs {
		if time.Now().After(deadline) {
			t.Fatal("NextEvent never flushed")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-waking:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not send a wake")
	}
	conn.Close()

	if n := srv.RequestsAfterClose(); n != 0 {
		t.Fatalf("%d request(s) reached the server after Close", n)
	}
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("NextEvent did not return")
	}
}
