package platform

import (
	"errors"
	"fmt"

	"github.com/1broseidon/xwinsys/internal/config"
)

// WindowUpdate is a partial change to a top-level window. Every field is
// optional; position and size must be given as pairs.
type WindowUpdate struct {
	X           *int    `json:"x,omitempty" jsonschema:"Left edge in screen coordinates; requires y"`
	Y           *int    `json:"y,omitempty" jsonschema:"Top edge in screen coordinates; requires x"`
	Width       *int    `json:"width,omitempty" jsonschema:"Width in pixels, clamped to at least 1; requires height"`
	Height      *int    `json:"height,omitempty" jsonschema:"Height in pixels, clamped to at least 1; requires width"`
	BorderWidth *uint32 `json:"border_width,omitempty" jsonschema:"Border width in pixels"`
	BorderColor *string `json:"border_color,omitempty" jsonschema:"Border color as #rrggbb"`
	Show        *bool   `json:"show,omitempty" jsonschema:"When true, map the window"`
}

// HasWindow reports whether id is one of the listed top-level windows.
func HasWindow(b Backend, id WindowID) bool {
	for _, w := range b.Windows() {
		if w == id {
			return true
		}
	}
	return false
}

// ApplyUpdate validates the whole update before issuing any request.
func ApplyUpdate(b Backend, id WindowID, u WindowUpdate) error {
	if (u.X == nil) != (u.Y == nil) {
		return errors.New("x and y must be given together")
	}
	if (u.Width == nil) != (u.Height == nil) {
		return errors.New("width and height must be given together")
	}
	var pixel uint32
	if u.BorderColor != nil {
		p, err := config.ParseColor(*u.BorderColor)
		if err != nil {
			return fmt.Errorf("border_color: %w", err)
		}
		pixel = p
	}

	if u.X != nil {
		b.MoveTo(id, *u.X, *u.Y)
	}
	if u.Width != nil {
		b.Resize(id, *u.Width, *u.Height)
	}
	if u.BorderWidth != nil {
		b.SetBorderWidth(id, *u.BorderWidth)
	}
	if u.BorderColor != nil {
		b.SetBorderColor(id, pixel)
	}
	if u.Show != nil && *u.Show {
		b.Show(id)
	}
	return nil
}
