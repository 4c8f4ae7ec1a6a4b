package server

import (
	"context"
	"fmt"

	loggeconomy "emberfall/server/logging/economy"
)

// ShopPurchaseResult is the outcome of one purchase request.
type ShopPurchaseResult struct {
	ItemName string `json:"item,omitempty"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Balance  int    `json:"balance"`
}

// PurchaseItem validates and executes a purchase against the player's token
// balance. Validation and debit run as one uninterrupted unit under the hub
// mutex; no other request can interleave between the check and the debit.
func (h *Hub) PurchaseItem(playerID string, itemIndex int) ShopPurchaseResult {
	h.mu.Lock()
	result := h.purchaseLocked(playerID, itemIndex)
	h.mu.Unlock()
	h.flushOutbox()
	return result
}

func (h *Hub) purchaseLocked(playerID string, itemIndex int) ShopPurchaseResult {
	ctx := context.Background()
	tick := h.tick.Load()
	balance := h.ledger.tokenBalance(playerID)

	item, ok := h.catalog.ShopItemAt(itemIndex)
	if !ok {
		result := ShopPurchaseResult{Success: false, Message: "invalid item", Balance: balance}
		loggeconomy.PurchaseRejected(ctx, h.publisher, tick, playerID, loggeconomy.PurchaseRejectedPayload{
			ItemIndex: itemIndex,
			Reason:    "invalid item",
		})
		h.telemetry.IncrementPurchasesRejected()
		h.queuePurchaseResultLocked(playerID, result)
		return result
	}

	if balance < item.Cost {
		message := fmt.Sprintf("insufficient tokens, required %d, have %d", item.Cost, balance)
		result := ShopPurchaseResult{ItemName: item.Name, Success: false, Message: message, Balance: balance}
		loggeconomy.PurchaseRejected(ctx, h.publisher, tick, playerID, loggeconomy.PurchaseRejectedPayload{
			ItemIndex: itemIndex,
			Reason:    "insufficient tokens",
		})
		h.telemetry.IncrementPurchasesRejected()
		h.queuePurchaseResultLocked(playerID, result)
		return result
	}

	if !h.ledger.debitTokens(playerID, item.Cost) {
		// Unreachable after the balance check; kept as a hard guard so a
		// future refactor cannot silently overdraw.
		result := ShopPurchaseResult{ItemName: item.Name, Success: false, Message: "insufficient tokens", Balance: balance}
		h.queuePurchaseResultLocked(playerID, result)
		return result
	}

	remaining := h.ledger.tokenBalance(playerID)
	result := ShopPurchaseResult{
		ItemName: item.Name,
		Success:  true,
		Message:  fmt.Sprintf("purchased %s", item.Name),
		Balance:  remaining,
	}
	loggeconomy.Purchase(ctx, h.publisher, tick, playerID, loggeconomy.PurchasePayload{
		Item:    item.Name,
		Cost:    item.Cost,
		Balance: remaining,
	})
	h.telemetry.IncrementPurchases()
	h.queuePurchaseResultLocked(playerID, result)
	return result
}
