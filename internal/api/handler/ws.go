package handler

import (
	"net/http"
	"slices"

	"wangsammo/backend/internal/livefeed"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ServeFeed upgrades the request to the officials' live feed websocket.
func (h *Handler) ServeFeed(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Warn("feed upgrade failed", zap.Error(err))
		return
	}

	client := livefeed.NewWebSocketClient(uuid.NewString(), conn, h.Hub, h.logger)
	if !h.Hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}
	client.Run()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.corsOrigins) == 0 {
		return true
	}
	return slices.Contains(h.corsOrigins, origin)
}
