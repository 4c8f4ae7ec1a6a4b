// Package ws upgrades and drives websocket sessions against the hub.
package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"

	server "emberfall/server"
	"emberfall/server/internal/telemetry"
)

// HandlerConfig carries the websocket handler's collaborators.
type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades HTTP requests into player sessions.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler for the given hub.
func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{hub: hub, logger: logger, upgrader: upgrader}
}

// Handle upgrades the request and runs the session loop until the client
// disconnects.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	sub, ok := h.hub.Subscribe(playerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	h.serve(playerID, conn, sub)
}
