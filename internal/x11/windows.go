package x11

import (
	"github.com/BurntSushi/xgb/xproto"
)

// rootName is reported for the root window without asking the server.
const rootName = "root"

// Windows returns the children of root in stacking order as reported by
// the server. Root itself is never included; a failed query yields an
// empty list.
func (c *Connection) Windows() []xproto.Window {
	var (
		children []xproto.Window
		err      error
	)
	if !c.withServer(func(srv Server) {
		children, err = srv.QueryTree(c.root)
	}) || err != nil {
		return []xproto.Window{}
	}

	windows := make([]xproto.Window, 0, len(children))
	for _, child := range children {
		if child == c.root {
			continue
		}
		windows = append(windows, child)
	}
	return windows
}

// WindowName returns the title of win, "root" for the root window, or ""
// when the window has no title or the lookup fails.
func (c *Connection) WindowName(win xproto.Window) string {
	if win == c.root {
		return rootName
	}

	var (
		title string
		err   error
	)
	if !c.withServer(func(srv Server) {
		title, err = srv.WindowTitle(win)
	}) || err != nil {
		return ""
	}
	return title
}

// SetBorderWidth sets the border width of win. Root is left alone.
func (c *Connection) SetBorderWidth(win xproto.Window, width uint32) {
	if win == c.root {
		return
	}
	c.withServer(func(srv Server) { srv.SetBorderWidth(win, width) })
}

// SetBorderColor sets the border pixel of win. Root is left alone.
func (c *Connection) SetBorderColor(win xproto.Window, pixel uint32) {
	if win == c.root {
		return
	}
	c.withServer(func(srv Server) { srv.SetBorderPixel(win, pixel) })
}

// Resize requests a new size for win. X has no zero-sized windows, so
// dimensions below one are raised to one.
func (c *Connection) Resize(win xproto.Window, width, height int) {
	c.withServer(func(srv Server) { srv.Resize(win, max(width, 1), max(height, 1)) })
}

// MoveTo requests a new position for win.
func (c *Connection) MoveTo(win xproto.Window, x, y int) {
	c.withServer(func(srv Server) { srv.Move(win, x, y) })
}

// Show maps win without touching its geometry or stacking.
func (c *Connection) Show(win xproto.Window) {
	c.withServer(func(srv Server) { srv.Map(win) })
}
