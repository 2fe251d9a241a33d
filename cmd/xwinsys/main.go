package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"git.sr.ht/~sircmpwn/getopt"
	"golang.org/x/term"

	"github.com/1broseidon/xwinsys/internal/api"
	"github.com/1broseidon/xwinsys/internal/config"
	"github.com/1broseidon/xwinsys/internal/daemon"
	"github.com/1broseidon/xwinsys/internal/mcp"
	"github.com/1broseidon/xwinsys/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runDaemon(os.Args[1:]))
	case "screens":
		os.Exit(runScreens(os.Args[1:], os.Stdout))
	case "windows":
		os.Exit(runWindows(os.Args[1:], os.Stdout))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: xwinsys <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run        Manage windows on the display (foreground)")
	fmt.Fprintln(w, "  screens    Print monitor geometry")
	fmt.Fprintln(w, "  windows    Print top-level windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "screens and windows ask a running daemon first and connect to the")
	fmt.Fprintln(w, "display directly only when none answers.")
	fmt.Fprintln(w, "  help       Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -c path    Config file (default ~/.config/xwinsys/config.yaml)")
	fmt.Fprintln(w, "  -d display X display, overrides config and $DISPLAY")
	fmt.Fprintln(w, "  -l addr    API listen address (run only; default unix socket)")
	fmt.Fprintln(w, "  -v         Debug logging (run only)")
}

// options are the flags shared by all subcommands.
type options struct {
	configPath string
	display    string
	listen     string
	verbose    bool
}

// parseOptions parses args, where args[0] is the subcommand name. Options
// outside allowed are rejected.
func parseOptions(args []string, allowed string) (options, error) {
	var opts options
	parsed, optind, err := getopt.Getopts(args, allowed)
	if err != nil {
		return opts, err
	}
	if optind < len(args) {
		return opts, fmt.Errorf("unexpected argument %q", args[optind])
	}
	for _, opt := range parsed {
		switch opt.Option {
		case 'c':
			opts.configPath = opt.Value
		case 'd':
			opts.display = opt.Value
		case 'l':
			opts.listen = opt.Value
		case 'v':
			opts.verbose = true
		}
	}
	return opts, nil
}

func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.display != "" {
		cfg.Display = opts.display
	}
	if opts.listen != "" {
		cfg.API.Listen = opts.listen
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger picks a text handler for terminals and JSON otherwise, unless
// the format is forced.
func newLogger(w io.Writer, level string, format config.LogFormat) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	text := format == config.LogFormatText
	if format == config.LogFormatAuto {
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			text = true
		}
	}
	if text {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func runDaemon(args []string) int {
	opts, err := parseOptions(args, "c:d:l:v")
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n\n", err)
		printMainUsage(os.Stderr)
		return 2
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer backend.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(api.DefaultHubBuffer)
	apiDone := make(chan error, 1)
	if cfg.API.Enabled {
		ln, err := api.Listen(cfg.API.Listen)
		if err != nil {
			logger.Error("failed to start api", "error", err)
			return 1
		}
		srv := api.NewServer(backend, hub, logger.With("component", "api"))
		if cfg.API.MCP {
			srv.Handle("/mcp", mcp.NewServer(backend, logger.With("component", "mcp")).Handler())
		}
		go func() { apiDone <- srv.Serve(ctx, ln) }()
	} else {
		apiDone <- nil
	}

	loop := daemon.New(daemon.Config{
		Backend:        backend,
		Publisher:      hub,
		Logger:         logger.With("component", "daemon"),
		BorderWidth:    cfg.Border.Width,
		FocusedColor:   cfg.FocusedPixel(),
		UnfocusedColor: cfg.UnfocusedPixel(),
	})

	runErr := loop.Run(ctx)
	if runErr != nil {
		logger.Error("event loop failed", "error", runErr)
	}
	stop()

	if err := <-apiDone; err != nil {
		logger.Error("api server failed", "error", err)
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func runScreens(args []string, out io.Writer) int {
	cfg, code := queryConfig("screens", args)
	if cfg == nil {
		return code
	}

	if cfg.API.Enabled {
		ctx := context.Background()
		c := api.NewClient(cfg.API.Listen)
		screens, err := c.Screens(ctx)
		if err == nil {
			outputs, err := c.Outputs(ctx)
			if err == nil {
				printScreens(out, screens.Items, outputs, screens.ScreenCount)
				return 0
			}
		}
	}

	backend, code := openDisplay(cfg)
	if backend == nil {
		return code
	}
	defer backend.Close()
	printScreens(out, backend.Screens(), backend.Outputs(), backend.ScreenCount())
	return 0
}

func runWindows(args []string, out io.Writer) int {
	cfg, code := queryConfig("windows", args)
	if cfg == nil {
		return code
	}

	if cfg.API.Enabled {
		if windows, err := api.NewClient(cfg.API.Listen).Windows(context.Background()); err == nil {
			printWindows(out, windows)
			return 0
		}
	}

	backend, code := openDisplay(cfg)
	if backend == nil {
		return code
	}
	defer backend.Close()
	wins := backend.Windows()
	windows := make([]api.WindowInfo, 0, len(wins))
	for _, id := range wins {
		windows = append(windows, api.WindowInfo{ID: id, Name: backend.WindowName(id)})
	}
	printWindows(out, windows)
	return 0
}

func queryConfig(name string, args []string) (*config.Config, int) {
	opts, err := parseOptions(args, "c:d:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n\n", name, err)
		printMainUsage(os.Stderr)
		return nil, 2
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return nil, 1
	}
	return cfg, 0
}

// openDisplay connects for a one-shot query when no daemon answered.
// Selecting the root substructure requires that no other window manager
// is running.
func openDisplay(cfg *config.Config) (platform.Backend, int) {
	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to display: %v\n", err)
		return nil, 1
	}
	return backend, 0
}

func printScreens(w io.Writer, screens []platform.Rect, outputs []platform.Output, screenCount int) {
	for i, r := range screens {
		fmt.Fprintf(w, "%d: %dx%d%+d%+d\n", i, r.Width, r.Height, r.X, r.Y)
	}
	for _, o := range outputs {
		b := o.Bounds
		fmt.Fprintf(w, "output %d %s: %dx%d%+d%+d\n", o.ID, o.Name, b.Width, b.Height, b.X, b.Y)
	}
	fmt.Fprintf(w, "logical screens: %d\n", screenCount)
}

func printWindows(w io.Writer, windows []api.WindowInfo) {
	for _, win := range windows {
		name := win.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%#x  %s\n", uint32(win.ID), name)
	}
}
