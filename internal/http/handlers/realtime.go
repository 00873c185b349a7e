// internal/http/handlers/realtime.go
package handlers

import (
	"net/http"

	"github.com/v1kassh/escrawl-connect/internal/middleware"
	"github.com/v1kassh/escrawl-connect/internal/realtime"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
	"github.com/v1kassh/escrawl-connect/pkg/response"
)

type RealtimeHandler struct {
	server *realtime.Server
	logger *logger.Logger
}

func NewRealtimeHandler(server *realtime.Server, log *logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{server: server, logger: log}
}

// HandleWebSocket upgrades an authenticated request to the duplex
// connection. The Auth middleware has already verified the token; the
// socket is bound to that identity for its whole lifetime.
func (h *RealtimeHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r.Context())
	if actor.Username == "" {
		response.Unauthorized(w, "")
		return
	}

	conn, err := h.server.UpgradeConnection(w, r)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", "error", err)
		return
	}

	client := h.server.CreateClient(conn, actor)
	h.server.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}
