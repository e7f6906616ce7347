package handlers

import (
	"civic-realtime/internal/api/middleware"
	"civic-realtime/internal/websocket"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish the realtime connection. The token may be sent as a bearer header, as "access_token, <jwt>" in Sec-WebSocket-Protocol, or as the token query parameter.
// @Tags websocket
// @Security BearerAuth
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request, middleware.Identity(c))
}
