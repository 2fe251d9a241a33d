package api

import (
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleEvents streams published events as JSON messages until the client
// goes away or the server shuts down. Incoming messages are discarded.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so a client never misses
	// events published right after Dial returns.
	events, cancel := s.hub.Subscribe()
	defer cancel()

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	s.logger.Debug("event stream connected", "remote", r.RemoteAddr)
	defer s.logger.Debug("event stream disconnected", "remote", r.RemoteAddr)

	ctx := c.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, c, ev); err != nil {
				return
			}
		}
	}
}
