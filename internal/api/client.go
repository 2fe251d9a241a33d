package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/1broseidon/xwinsys/internal/platform"
	"github.com/1broseidon/xwinsys/internal/runtimepath"
)

// Client queries a running daemon's API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for the API at addr. An empty addr means the
// unix socket at runtimepath.SocketPath.
func NewClient(addr string) *Client {
	timeout := 5 * time.Second
	if addr != "" {
		return &Client{
			http:    &http.Client{Timeout: timeout},
			baseURL: "http://" + addr,
		}
	}

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; requests surface connection errors.
		socketPath = ""
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
		},
		baseURL: "http://xwinsys",
	}
}

// ScreensResult is the body of GET /screens.
type ScreensResult struct {
	Items       []platform.Rect `json:"items"`
	ScreenCount int             `json:"screen_count"`
}

// Screens fetches the monitor rectangles and logical screen count.
func (c *Client) Screens(ctx context.Context) (ScreensResult, error) {
	var res ScreensResult
	err := c.get(ctx, "/screens", &res)
	return res, err
}

// Outputs fetches the RandR outputs.
func (c *Client) Outputs(ctx context.Context) ([]platform.Output, error) {
	var res struct {
		Items []platform.Output `json:"items"`
	}
	err := c.get(ctx, "/outputs", &res)
	return res.Items, err
}

// Windows fetches the top-level windows.
func (c *Client) Windows(ctx context.Context) ([]WindowInfo, error) {
	var res struct {
		Items []WindowInfo `json:"items"`
	}
	err := c.get(ctx, "/windows", &res)
	return res.Items, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("daemon error: %s %s: %d %s", http.MethodGet, path, resp.StatusCode, body.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
