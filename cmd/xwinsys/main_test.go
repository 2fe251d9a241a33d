package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xwinsys/internal/api"
	"github.com/1broseidon/xwinsys/internal/config"
	"github.com/1broseidon/xwinsys/internal/platform"
	"github.com/1broseidon/xwinsys/internal/x11"
	"github.com/1broseidon/xwinsys/internal/x11/x11test"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"run", "-c", "/tmp/x.yaml", "-d", ":1", "-v", "-l", "127.0.0.1:9000"}, "c:d:l:v")
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	want := options{configPath: "/tmp/x.yaml", display: ":1", listen: "127.0.0.1:9000", verbose: true}
	if opts != want {
		t.Fatalf("got %+v, want %+v", opts, want)
	}
}

func TestParseOptions_Rejects(t *testing.T) {
	tests := [][]string{
		{"screens", "-v"},
		{"screens", "-c"},
		{"windows", "extra"},
	}
	for _, args := range tests {
		if _, err := parseOptions(args, "c:d:"); err == nil {
			t.Fatalf("expected %v to be rejected", args)
		}
	}
}

func TestLoadConfig_OptionsOverrideFile(t *testing.T) {
	cfg, err := loadConfig(options{configPath: t.TempDir() + "/missing.yaml", display: ":2", verbose: true})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Display != ":2" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestNewLogger_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, "warn", config.LogFormatAuto).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}

	newLogger(&buf, "debug", config.LogFormatAuto).Debug("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON when not a terminal, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "info", config.LogFormatText).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text handler output, got %q", buf.String())
	}

	if newLogger(&buf, "info", config.LogFormatJSON).Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug enabled at info level")
	}
}

func newTestBackend(t *testing.T, srv *x11test.Server) platform.Backend {
	t.Helper()
	conn, err := x11.NewConnectionWithServer(srv)
	if err != nil {
		t.Fatalf("NewConnectionWithServer: %v", err)
	}
	backend := platform.NewLinuxBackend(conn)
	t.Cleanup(backend.Close)
	return backend
}

func TestPrintScreens(t *testing.T) {
	srv := x11test.New()
	srv.SetHeads([4]int{0, 0, 1920, 1080}, [4]int{-1280, 0, 1280, 1024})
	srv.SetOutputs(x11.Output{ID: 66, Name: "eDP-1", Bounds: x11.Head{Width: 1920, Height: 1080}})

	var buf bytes.Buffer
	backend := newTestBackend(t, srv)
	printScreens(&buf, backend.Screens(), backend.Outputs(), backend.ScreenCount())

	want := "0: 1920x1080+0+0\n" +
		"1: 1280x1024-1280+0\n" +
		"output 66 eDP-1: 1920x1080+0+0\n" +
		"logical screens: 1\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrintWindows(t *testing.T) {
	var buf bytes.Buffer
	printWindows(&buf, []api.WindowInfo{{ID: 0x400001, Name: "editor"}, {ID: 0x600003}})

	want := "0x400001  editor\n0x600003  -\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

// startDaemonAPI serves the API over srv and returns a config file that
// points queries at it.
func startDaemonAPI(t *testing.T, srv *x11test.Server) string {
	t.Helper()
	ts := httptest.NewServer(api.NewServer(newTestBackend(t, srv), nil, nil))
	t.Cleanup(ts.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "api:\n  listen: " + strings.TrimPrefix(ts.URL, "http://") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunWindows_AsksDaemon(t *testing.T) {
	srv := x11test.New()
	srv.SetChildren(xproto.Window(0x400001), xproto.Window(0x600003))
	srv.SetTitle(0x400001, "editor")
	path := startDaemonAPI(t, srv)

	var buf bytes.Buffer
	if code := runWindows([]string{"windows", "-c", path}, &buf); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	want := "0x400001  editor\n0x600003  -\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestRunScreens_AsksDaemon(t *testing.T) {
	srv := x11test.New()
	srv.SetHeads([4]int{0, 0, 1920, 1080}, [4]int{1920, 0, 1280, 1024})
	path := startDaemonAPI(t, srv)

	var buf bytes.Buffer
	if code := runScreens([]string{"screens", "-c", path}, &buf); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	want := "0: 1920x1080+0+0\n1: 1280x1024+1920+0\nlogical screens: 1\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
