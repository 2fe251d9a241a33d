// Package mcp exposes the window system to MCP clients as a set of tools
// over the same backend the daemon manages.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/xwinsys/internal/platform"
)

const (
	ServerName    = "xwinsys"
	ServerVersion = "0.1.0"
)

// Server is the MCP server for window inspection and placement.
type Server struct {
	mcpServer *mcpsdk.Server
	backend   platform.Backend
	logger    *slog.Logger
}

// NewServer creates an MCP server backed by backend.
func NewServer(backend platform.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		backend: backend,
		logger:  logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Handler serves the tools over the streamable HTTP transport. Every
// session shares this server and its backend.
func (s *Server) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.mcpServer
	}, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_screens",
		Description: "List monitor rectangles in screen coordinates. Always returns at least one rectangle; without Xinerama it is the whole display.",
	}, s.handleListScreens)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_outputs",
		Description: "List named RandR outputs with their bounds, sorted by name. Empty when RandR is unavailable.",
	}, s.handleListOutputs)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List top-level windows with their titles. The root window is never included.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Get a single top-level window by id.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "update_window",
		Description: "Move, resize, restyle the border of, or show a top-level window. The whole change is validated before anything is sent to the display.",
	}, s.handleUpdateWindow)
}

func (s *Server) handleListScreens(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListScreensInput) (*mcpsdk.CallToolResult, ListScreensOutput, error) {
	return nil, ListScreensOutput{
		Screens:     s.backend.Screens(),
		ScreenCount: s.backend.ScreenCount(),
	}, nil
}

func (s *Server) handleListOutputs(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListOutputsInput) (*mcpsdk.CallToolResult, ListOutputsOutput, error) {
	outputs := s.backend.Outputs()
	if outputs == nil {
		outputs = []platform.Output{}
	}
	return nil, ListOutputsOutput{Outputs: outputs}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	wins := s.backend.Windows()
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(wins))}
	for _, id := range wins {
		out.Windows = append(out.Windows, s.windowInfo(id))
	}
	return nil, out, nil
}

func (s *Server) handleGetWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args GetWindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	id := platform.WindowID(args.ID)
	if !platform.HasWindow(s.backend, id) {
		return nil, WindowOutput{}, fmt.Errorf("no top-level window %#x", args.ID)
	}
	return nil, WindowOutput{Window: s.windowInfo(id)}, nil
}

func (s *Server) handleUpdateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args UpdateWindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	id := platform.WindowID(args.ID)
	if !platform.HasWindow(s.backend, id) {
		return nil, WindowOutput{}, fmt.Errorf("no top-level window %#x", args.ID)
	}
	if err := platform.ApplyUpdate(s.backend, id, args.Changes); err != nil {
		return nil, WindowOutput{}, err
	}
	s.logger.Info("window updated", "window", args.ID, "via", "mcp")
	return nil, WindowOutput{Window: s.windowInfo(id)}, nil
}

func (s *Server) windowInfo(id platform.WindowID) WindowInfo {
	return WindowInfo{ID: uint32(id), Name: s.backend.WindowName(id)}
}
