// Package api serves a small HTTP interface for inspecting and adjusting
// the managed windows, plus a websocket stream of window system events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/1broseidon/xwinsys/internal/platform"
	"github.com/1broseidon/xwinsys/internal/runtimepath"
)

// Server routes API requests to a backend.
type Server struct {
	backend platform.Backend
	hub     *Hub
	logger  *slog.Logger
	router  *mux.Router
}

// WindowInfo is the JSON form of a top-level window.
type WindowInfo struct {
	ID   platform.WindowID `json:"id"`
	Name string            `json:"name"`
}

// WindowUpdate is the body accepted by POST /windows/{id}.
type WindowUpdate = platform.WindowUpdate

// NewServer builds the router. hub may be nil, in which case /events is
// not served.
func NewServer(backend platform.Backend, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		backend: backend,
		hub:     hub,
		logger:  logger,
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/screens", s.handleScreens).Methods(http.MethodGet)
	s.router.HandleFunc("/outputs", s.handleOutputs).Methods(http.MethodGet)
	s.router.HandleFunc("/windows", s.handleWindows).Methods(http.MethodGet)
	s.router.HandleFunc("/windows/{id:[0-9]+}", s.handleWindow).Methods(http.MethodGet, http.MethodPost)
	if hub != nil {
		s.router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.jsonResponse(w, r, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	return s
}

// Handle mounts h under prefix, for any method.
func (s *Server) Handle(prefix string, h http.Handler) {
	s.router.PathPrefix(prefix).Handler(h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve handles connections on ln until ctx is done, then shuts the
// server down. Request contexts are derived from ctx so event streams end
// with it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 16,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}

// Listen opens the API listener. An empty addr means a unix socket at
// runtimepath.SocketPath, readable only by the current user.
func Listen(addr string) (net.Listener, error) {
	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		return ln, nil
	}

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API socket path: %w", err)
	}

	// Remove a stale socket left by a previous run.
	os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create API socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return ln, nil
}

func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	s.logger.Debug("api request", "method", r.Method, "path", r.URL.Path, "status", status)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.jsonResponse(w, r, status, map[string]string{"error": msg})
}

func (s *Server) handleScreens(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]any{
		"items":        s.backend.Screens(),
		"screen_count": s.backend.ScreenCount(),
	})
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]any{
		"items": s.backend.Outputs(),
	})
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	wins := s.backend.Windows()
	items := make([]WindowInfo, 0, len(wins))
	for _, id := range wins {
		items = append(items, s.windowInfo(id))
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupWindow(r)
	if !ok {
		s.errorResponse(w, r, http.StatusNotFound, "no such window")
		return
	}

	if r.Method == http.MethodPost {
		var update WindowUpdate
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&update); err != nil {
			s.errorResponse(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("invalid body: %v", err))
			return
		}
		if err := platform.ApplyUpdate(s.backend, id, update); err != nil {
			s.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Info("window updated", "window", uint32(id))
	}

	s.jsonResponse(w, r, http.StatusOK, map[string]any{"item": s.windowInfo(id)})
}

// lookupWindow resolves the {id} route variable to a listed top-level
// window.
func (s *Server) lookupWindow(r *http.Request) (platform.WindowID, bool) {
	raw, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	id := platform.WindowID(raw)
	return id, platform.HasWindow(s.backend, id)
}

func (s *Server) windowInfo(id platform.WindowID) WindowInfo {
	return WindowInfo{ID: id, Name: s.backend.WindowName(id)}
}
