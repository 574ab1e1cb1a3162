package handlers

import (
	"net/http"

	"nhooyr.io/websocket"
)

// WSConnect upgrades the request and registers the connection with the hub.
// The stream is push-only: the server emits change events, the client only
// sends control frames.
func (a *App) WSConnect(w http.ResponseWriter, r *http.Request) {
	if a.Hub == nil {
		a.error(w, http.StatusServiceUnavailable, "ws_unavailable", "realtime channel not configured")
		return
	}
	userID := a.currentUserID(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept already wrote the error response
		return
	}
	conn.CloseRead(r.Context())

	client := a.Hub.AddClient(userID, conn)
	defer a.Hub.RemoveClient(client)

	<-r.Context().Done()
}
