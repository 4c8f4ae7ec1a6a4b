package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	server "emberfall/server"
	"emberfall/server/internal/net/proto"
	loggnetwork "emberfall/server/logging/network"
)

// serve reads inbound frames for one player until the connection drops.
// Kill reports and purchase requests are handed to the hub synchronously;
// the hub pushes results and broadcasts back through the subscriber.
func (h *Handler) serve(playerID string, conn *websocket.Conn, sub *server.Subscriber) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(playerID, "connection closed")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			loggnetwork.PayloadRejected(context.Background(), h.hub.Publisher(), h.hub.Tick(), playerID, err.Error())
			continue
		}

		switch msg.Type {
		case proto.TypeKill:
			h.hub.RecordKill(playerID, server.MonsterTier(msg.Tier))

		case proto.TypeBuyItem:
			if msg.ItemIndex == nil {
				h.logger.Printf("buyItem without itemIndex from %s", playerID)
				continue
			}
			h.hub.PurchaseItem(playerID, *msg.ItemIndex)

		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(playerID, now, msg.SentAt)
			if !ok {
				continue
			}
			ack, err := proto.EncodeHeartbeat(proto.Heartbeat{
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			})
			if err != nil {
				h.logger.Printf("failed to encode heartbeat ack for %s: %v", playerID, err)
				continue
			}
			if err := sub.WriteMessage(websocket.TextMessage, ack); err != nil {
				h.hub.Disconnect(playerID, "write failure")
				return
			}

		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
		}
	}
}
