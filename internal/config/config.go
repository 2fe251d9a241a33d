package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatAuto LogFormat = "auto" // Text on a terminal, JSON otherwise.
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Border configures window decorations applied by the event loop.
type Border struct {
	Width     uint32 `yaml:"width"`
	Focused   string `yaml:"focused"`   // #rrggbb
	Unfocused string `yaml:"unfocused"` // #rrggbb
}

// API configures the inspection HTTP server.
type API struct {
	Enabled bool `yaml:"enabled"`
	// Listen is a host:port; empty means a unix socket in the runtime dir.
	Listen string `yaml:"listen"`
	// MCP serves the MCP tools at /mcp on the same listener.
	MCP bool `yaml:"mcp"`
}

// Config is the daemon configuration.
type Config struct {
	// Display is the X display to connect to; empty uses $DISPLAY.
	Display   string    `yaml:"display"`
	LogLevel  string    `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`
	Border    Border    `yaml:"border"`
	API       API       `yaml:"api"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: LogFormatAuto,
		Border: Border{
			Width:     2,
			Focused:   "#5294e2",
			Unfocused: "#2f343f",
		},
		API: API{
			Enabled: true,
			MCP:     true,
		},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("log_format must be one of auto, text, json (got %q)", c.LogFormat)
	}

	if c.Border.Width > 64 {
		return fmt.Errorf("border.width must be <= 64 (got %d)", c.Border.Width)
	}
	if _, err := ParseColor(c.Border.Focused); err != nil {
		return fmt.Errorf("border.focused: %w", err)
	}
	if _, err := ParseColor(c.Border.Unfocused); err != nil {
		return fmt.Errorf("border.unfocused: %w", err)
	}

	return nil
}

// FocusedPixel returns the focused border color as a pixel value.
// Validate must have succeeded.
func (c *Config) FocusedPixel() uint32 {
	p, _ := ParseColor(c.Border.Focused)
	return p
}

// UnfocusedPixel returns the unfocused border color as a pixel value.
// Validate must have succeeded.
func (c *Config) UnfocusedPixel() uint32 {
	p, _ := ParseColor(c.Border.Unfocused)
	return p
}

// ParseColor parses "#rrggbb" (the leading # is optional) into a 24-bit
// TrueColor pixel.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint32(v), nil
}
