package websocket

import (
	"net/http"
	"strings"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"

	"github.com/gorilla/websocket"
)

func (h *Hub) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{auth.ProtocolPrefix},
		CheckOrigin:     checkOrigin(h.opts.AllowedOrigins),
	}
}

// checkOrigin accepts configured origins and local development hosts.
// Requests without an Origin header come from non-browser clients.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(origin, a) {
				return true
			}
		}
		return strings.Contains(origin, "://localhost") || strings.Contains(origin, "://127.0.0.1")
	}
}

// ServeWS upgrades an already authenticated request. Identity verification
// happens before this call so a bad credential never reaches the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade WebSocket connection", "userID", identity.UserID, "error", err)
		return
	}

	c, err := h.Serve(r.Context(), conn, identity)
	if err != nil {
		h.log.Error("Failed to attach WebSocket connection", "userID", identity.UserID, "error", err)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, apperror.PublicMessage(err))
		conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	h.log.Info("New WebSocket connection established", "clientID", c.id, "userID", identity.UserID)
}
