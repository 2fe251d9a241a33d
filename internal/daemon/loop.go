package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/1broseidon/xwinsys/internal/platform"
)

// Publisher receives every event the loop handles.
type Publisher interface {
	Publish(ev platform.Event)
}

// Config holds configuration for the event loop.
type Config struct {
	Backend platform.Backend
	// Publisher is optional.
	Publisher      Publisher
	Logger         *slog.Logger
	BorderWidth    uint32
	FocusedColor   uint32
	UnfocusedColor uint32
}

// Loop drives the backend event pump and applies border highlighting to
// windows as the pointer crosses them.
type Loop struct {
	backend   platform.Backend
	publisher Publisher
	logger    *slog.Logger

	borderWidth    uint32
	focusedColor   uint32
	unfocusedColor uint32
}

// New creates an event loop with the given configuration.
func New(cfg Config) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Loop{
		backend:        cfg.Backend,
		publisher:      cfg.Publisher,
		logger:         logger,
		borderWidth:    cfg.BorderWidth,
		focusedColor:   cfg.FocusedColor,
		unfocusedColor: cfg.UnfocusedColor,
	}
}

// Run pumps events until ctx is cancelled (returning nil) or the backend
// fails (returning its error).
func (l *Loop) Run(ctx context.Context) error {
	for i, screen := range l.backend.Screens() {
		l.logger.Info("screen",
			"index", i,
			"x", screen.X,
			"y", screen.Y,
			"width", screen.Width,
			"height", screen.Height)
	}
	l.logger.Info("event loop started", "logical_screens", l.backend.ScreenCount())

	burst := 0
	for {
		ev, err := l.backend.NextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				l.logger.Info("event loop stopped")
				return nil
			}
			return err
		}

		l.handle(ev)
		if l.publisher != nil {
			l.publisher.Publish(ev)
		}

		burst++
		if !l.backend.HasPendingEvent() {
			l.logger.Debug("event queue drained", "handled", burst)
			burst = 0
		}
	}
}

func (l *Loop) handle(ev platform.Event) {
	switch ev.Kind {
	case platform.EventWindowCreated:
		l.backend.SetBorderWidth(ev.Window, l.borderWidth)
		l.backend.SetBorderColor(ev.Window, l.unfocusedColor)
		l.backend.Show(ev.Window)
		l.logger.Info("window managed",
			"window", uint32(ev.Window),
			"name", l.backend.WindowName(ev.Window))
	case platform.EventEnter:
		l.backend.SetBorderColor(ev.Window, l.focusedColor)
		l.logger.Debug("pointer entered", "window", uint32(ev.Window))
	case platform.EventLeave:
		l.backend.SetBorderColor(ev.Window, l.unfocusedColor)
		l.logger.Debug("pointer left", "window", uint32(ev.Window))
	case platform.EventWindowDestroyed:
		l.logger.Debug("window destroyed", "window", uint32(ev.Window))
	default:
		l.logger.Debug("unhandled event", "code", ev.Code)
	}
}
