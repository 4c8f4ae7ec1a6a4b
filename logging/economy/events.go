package economy

import (
	"context"

	"emberfall/server/logging"
)

const (
	// EventRewardGranted is emitted when a contributor receives their payout.
	EventRewardGranted logging.EventType = "economy.reward_granted"
	// EventRewardSkipped is emitted when a contributor misses their payout.
	EventRewardSkipped logging.EventType = "economy.reward_skipped"
	// EventStatGrantFailed is emitted when the stats collaborator rejects a grant.
	EventStatGrantFailed logging.EventType = "economy.stat_grant_failed"
	// EventPurchase is emitted for every completed shop purchase.
	EventPurchase logging.EventType = "economy.purchase"
	// EventPurchaseRejected is emitted when a purchase request is refused.
	EventPurchaseRejected logging.EventType = "economy.purchase_rejected"
)

// RewardGrantedPayload describes one player's invasion payout.
type RewardGrantedPayload struct {
	Contribution int `json:"contribution"`
	Tokens       int `json:"tokens"`
	Gold         int `json:"gold"`
	Exp          int `json:"exp"`
	Balance      int `json:"balance"`
}

// RewardSkippedPayload explains a dropped payout.
type RewardSkippedPayload struct {
	Contribution int    `json:"contribution"`
	Reason       string `json:"reason"`
}

// StatGrantFailedPayload describes a failed stats collaborator call.
type StatGrantFailedPayload struct {
	Gold   int    `json:"gold"`
	Exp    int    `json:"exp"`
	Reason string `json:"reason"`
}

// PurchasePayload describes a completed purchase.
type PurchasePayload struct {
	Item    string `json:"item"`
	Cost    int    `json:"cost"`
	Balance int    `json:"balance"`
}

// PurchaseRejectedPayload describes a refused purchase request.
type PurchaseRejectedPayload struct {
	ItemIndex int    `json:"itemIndex"`
	Reason    string `json:"reason"`
}

// RewardGranted publishes a reward payout event.
func RewardGranted(ctx context.Context, pub logging.Publisher, tick uint64, playerID string, payload RewardGrantedPayload) {
	publish(ctx, pub, tick, playerID, logging.Event{
		Type:     EventRewardGranted,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// RewardSkipped publishes a dropped payout event.
func RewardSkipped(ctx context.Context, pub logging.Publisher, tick uint64, playerID string, payload RewardSkippedPayload) {
	publish(ctx, pub, tick, playerID, logging.Event{
		Type:     EventRewardSkipped,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// StatGrantFailed publishes a failed stats grant event.
func StatGrantFailed(ctx context.Context, pub logging.Publisher, tick uint64, playerID string, payload StatGrantFailedPayload) {
	publish(ctx, pub, tick, playerID, logging.Event{
		Type:     EventStatGrantFailed,
		Severity: logging.SeverityError,
		Payload:  payload,
	})
}

// Purchase publishes a completed purchase event.
func Purchase(ctx context.Context, pub logging.Publisher, tick uint64, playerID string, payload PurchasePayload) {
	publish(ctx, pub, tick, playerID, logging.Event{
		Type:     EventPurchase,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// PurchaseRejected publishes a refused purchase event.
func PurchaseRejected(ctx context.Context, pub logging.Publisher, tick uint64, playerID string, payload PurchaseRejectedPayload) {
	publish(ctx, pub, tick, playerID, logging.Event{
		Type:     EventPurchaseRejected,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, tick uint64, playerID string, event logging.Event) {
	if pub == nil {
		return
	}
	event.Tick = tick
	event.Actor = logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}
	event.Category = logging.CategoryEconomy
	pub.Publish(ctx, event)
}
