package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xinerama"
)

// Head is a rectangle in root window coordinates.
type Head struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Output is a RandR output driving an enabled CRTC.
type Output struct {
	ID     int
	Name   string
	Bounds Head
}

// Screens returns the physical monitors reported by Xinerama, in server
// order. When Xinerama reports nothing it returns a single head covering
// screen 0, so the result is never empty.
func (c *Connection) Screens() []Head {
	var (
		infos []xinerama.ScreenInfo
		err   error
	)
	ok := c.withServer(func(srv Server) { infos, err = srv.XineramaScreens() })
	if ok && err == nil && len(infos) > 0 {
		heads := make([]Head, 0, len(infos))
		for _, info := range infos {
			heads = append(heads, Head{
				X:      int(info.XOrg),
				Y:      int(info.YOrg),
				Width:  int(info.Width),
				Height: int(info.Height),
			})
		}
		return heads
	}

	width, _ := c.DisplayWidth(0)
	height, _ := c.DisplayHeight(0)
	return []Head{{X: 0, Y: 0, Width: width, Height: height}}
}

// ScreenCount returns the number of logical X screens. This is unrelated to
// the number of heads returned by Screens.
func (c *Connection) ScreenCount() int {
	return len(c.srv.Roots())
}

// DisplayWidth returns the width in pixels of logical screen.
func (c *Connection) DisplayWidth(screen int) (int, error) {
	roots := c.srv.Roots()
	if screen < 0 || screen >= len(roots) {
		return 0, fmt.Errorf("%w: %d (have %d)", ErrInvalidScreen, screen, len(roots))
	}
	return int(roots[screen].WidthInPixels), nil
}

// DisplayHeight returns the height in pixels of logical screen.
func (c *Connection) DisplayHeight(screen int) (int, error) {
	roots := c.srv.Roots()
	if screen < 0 || screen >= len(roots) {
		return 0, fmt.Errorf("%w: %d (have %d)", ErrInvalidScreen, screen, len(roots))
	}
	return int(roots[screen].HeightInPixels), nil
}

// Outputs lists named RandR outputs. It is informational; Screens does not
// consult RandR.
func (c *Connection) Outputs() ([]Output, error) {
	var (
		outputs []Output
		err     error
	)
	if !c.withServer(func(srv Server) { outputs, err = srv.Outputs() }) {
		return nil, ErrConnectionClosed
	}
	return outputs, err
}
