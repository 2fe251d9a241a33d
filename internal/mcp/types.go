package mcp

import "github.com/1broseidon/xwinsys/internal/platform"

// ListScreensInput is the input for the list_screens tool.
type ListScreensInput struct{}

// ListScreensOutput is the output for the list_screens tool.
type ListScreensOutput struct {
	Screens     []platform.Rect `json:"screens"`
	ScreenCount int             `json:"screen_count"`
}

// ListOutputsInput is the input for the list_outputs tool.
type ListOutputsInput struct{}

// ListOutputsOutput is the output for the list_outputs tool.
type ListOutputsOutput struct {
	Outputs []platform.Output `json:"outputs"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowInfo describes a single top-level window.
type WindowInfo struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// GetWindowInput is the input for the get_window tool.
type GetWindowInput struct {
	ID uint32 `json:"id" jsonschema:"Window id as returned by list_windows"`
}

// UpdateWindowInput is the input for the update_window tool.
type UpdateWindowInput struct {
	ID      uint32                `json:"id" jsonschema:"Window id as returned by list_windows"`
	Changes platform.WindowUpdate `json:"changes" jsonschema:"Fields to change; x/y and width/height must be given as pairs"`
}

// WindowOutput is the output for the get_window and update_window tools.
type WindowOutput struct {
	Window WindowInfo `json:"window"`
}
