package proto

import (
	"encoding/json"
	"fmt"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeKill      = "kill"
	TypeBuyItem   = "buyItem"
	TypeHeartbeat = "heartbeat"
)

// Outbound message type identifiers.
const (
	TypeInvasionStarted = "invasionStarted"
	TypePhaseChanged    = "phaseChanged"
	TypeInvasionEnded   = "invasionEnded"
	TypeProgress        = "progress"
	TypeReward          = "reward"
	TypePurchaseResult  = "purchaseResult"
	typeHeartbeatAck    = "heartbeat"
)

// ClientMessage captures an inbound websocket message from the client. The
// transport layer supplies the sender identity; the payload never does.
type ClientMessage struct {
	Ver       int    `json:"ver,omitempty"`
	Type      string `json:"type"`
	Tier      string `json:"tier,omitempty"`
	ItemIndex *int   `json:"itemIndex,omitempty"`
	SentAt    int64  `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// InvasionStartedV1 announces a new invasion to every connected client.
type InvasionStartedV1 struct {
	Ver        int     `json:"ver"`
	Type       string  `json:"type"`
	InvasionID string  `json:"invasionId"`
	Archetype  string  `json:"archetype"`
	Name       string  `json:"name"`
	Modifier   string  `json:"modifier,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	ServerTime int64   `json:"serverTime"`
}

// EncodeInvasionStarted renders an invasion start broadcast.
func EncodeInvasionStarted(msg InvasionStartedV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeInvasionStarted
	return json.Marshal(msg)
}

// PhaseChangedV1 announces a phase transition of the active invasion.
type PhaseChangedV1 struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	InvasionID string `json:"invasionId"`
	Phase      string `json:"phase"`
	ServerTime int64  `json:"serverTime"`
}

// EncodePhaseChanged renders a phase change broadcast.
func EncodePhaseChanged(msg PhaseChangedV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypePhaseChanged
	return json.Marshal(msg)
}

// InvasionEndedV1 summarizes a finished invasion.
type InvasionEndedV1 struct {
	Ver          int    `json:"ver"`
	Type         string `json:"type"`
	InvasionID   string `json:"invasionId"`
	Archetype    string `json:"archetype"`
	TotalKills   int    `json:"totalKills"`
	Contributors int    `json:"contributors"`
	ServerTime   int64  `json:"serverTime"`
}

// EncodeInvasionEnded renders an end-of-invasion broadcast.
func EncodeInvasionEnded(msg InvasionEndedV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeInvasionEnded
	return json.Marshal(msg)
}

// ProgressV1 carries the periodic invasion progress broadcast.
type ProgressV1 struct {
	Ver             int     `json:"ver"`
	Type            string  `json:"type"`
	InvasionID      string  `json:"invasionId"`
	Phase           string  `json:"phase"`
	TotalKills      int     `json:"totalKills"`
	PhaseProgress   float64 `json:"phaseProgress"`
	RemainingMillis int64   `json:"remainingMillis"`
}

// EncodeProgress renders a progress broadcast.
func EncodeProgress(msg ProgressV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeProgress
	return json.Marshal(msg)
}

// RewardV1 is the private reward breakdown pushed to one player.
type RewardV1 struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Tokens  int    `json:"tokens"`
	Gold    int    `json:"gold"`
	Exp     int    `json:"exp"`
	Balance int    `json:"balance"`
}

// EncodeReward renders a private reward notification.
func EncodeReward(msg RewardV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeReward
	return json.Marshal(msg)
}

// PurchaseResultV1 is the private outcome of a shop purchase request.
type PurchaseResultV1 struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Item    string `json:"item,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Balance int    `json:"balance"`
}

// EncodePurchaseResult renders a private purchase outcome.
func EncodePurchaseResult(msg PurchaseResultV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypePurchaseResult
	return json.Marshal(msg)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeatAck,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// ShopItemV1 is one shop entry as rendered to clients.
type ShopItemV1 struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description,omitempty"`
}

// InvasionSnapshotV1 describes the active invasion in a join response.
type InvasionSnapshotV1 struct {
	InvasionID      string  `json:"invasionId"`
	Archetype       string  `json:"archetype"`
	Name            string  `json:"name"`
	Phase           string  `json:"phase"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	TotalKills      int     `json:"totalKills"`
	RemainingMillis int64   `json:"remainingMillis"`
}

// JoinResponseV1 captures the version 1 join response layout.
type JoinResponseV1 struct {
	Ver            int                 `json:"ver"`
	ID             string              `json:"id"`
	Shop           []ShopItemV1        `json:"shop"`
	Invasion       *InvasionSnapshotV1 `json:"invasion,omitempty"`
	Tokens         int                 `json:"tokens"`
	Participations int                 `json:"participations"`
}

// EncodeJoinResponse renders a versioned join response payload.
func EncodeJoinResponse(msg JoinResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}
