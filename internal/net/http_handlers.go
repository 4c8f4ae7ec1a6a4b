// Package net wires the hub's outward surface onto an HTTP mux: join,
// websocket upgrade, diagnostics, and health.
package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	server "emberfall/server"
	"emberfall/server/internal/net/proto"
	"emberfall/server/internal/net/ws"
	"emberfall/server/internal/telemetry"
)

// HTTPHandlerConfig carries the HTTP layer's collaborators.
type HTTPHandlerConfig struct {
	Logger telemetry.Logger
}

// NewHTTPHandler builds the full request mux for the server.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NopLogger()
	}

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: logger})
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string                     `json:"status"`
			ServerTime int64                      `json:"serverTime"`
			TickRate   int                        `json:"tickRate"`
			Heartbeat  int64                      `json:"heartbeatMillis"`
			Players    []server.DiagnosticsPlayer `json:"players"`
			Telemetry  server.TelemetrySnapshot   `json:"telemetry"`
			Invasion   *server.InvasionStatus     `json:"invasion,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   hub.TickRate(),
			Heartbeat:  hub.HeartbeatInterval().Milliseconds(),
			Players:    hub.DiagnosticsSnapshot(),
			Telemetry:  hub.TelemetrySnapshot(),
		}
		if status, ok := hub.Status(); ok {
			payload.Invasion = &status
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		info := hub.Join()
		data, err := proto.EncodeJoinResponse(joinResponse(info))
		if err != nil {
			logger.Printf("failed to encode join response: %v", err)
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}

func joinResponse(info server.JoinInfo) proto.JoinResponseV1 {
	shop := make([]proto.ShopItemV1, 0, len(info.Shop))
	for i, item := range info.Shop {
		shop = append(shop, proto.ShopItemV1{
			Index:       i,
			Name:        item.Name,
			Cost:        item.Cost,
			Description: item.Description,
		})
	}

	response := proto.JoinResponseV1{
		ID:             info.ID,
		Shop:           shop,
		Tokens:         info.Tokens,
		Participations: info.Participations,
	}
	if info.Invasion != nil {
		response.Invasion = &proto.InvasionSnapshotV1{
			InvasionID:      info.Invasion.ID,
			Archetype:       string(info.Invasion.Archetype),
			Name:            info.Invasion.Name,
			Phase:           string(info.Invasion.Phase),
			X:               info.Invasion.X,
			Y:               info.Invasion.Y,
			TotalKills:      info.Invasion.TotalKills,
			RemainingMillis: info.Invasion.Remaining.Milliseconds(),
		}
	}
	return response
}
