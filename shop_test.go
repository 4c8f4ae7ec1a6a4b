package server

import (
	"fmt"
	"testing"
)

// shopTestHub returns a hub with the default catalog and a seeded balance.
// The default shop's first item costs 50, the second 120.
func shopTestHub(t *testing.T, balance int) (*Hub, string, *fakeConn) {
	t.Helper()
	clock := newFakeClock(testEpoch)
	h := newTestHub(HubConfig{Config: testConfig()}, clock)
	id, conn := joinSubscribed(t, h)
	if balance > 0 {
		h.mu.Lock()
		h.ledger.creditTokens(id, balance)
		h.mu.Unlock()
	}
	return h, id, conn
}

func TestPurchaseSucceedsAndDebits(t *testing.T) {
	h, id, conn := shopTestHub(t, 100)

	result := h.PurchaseItem(id, 0)
	if !result.Success {
		t.Fatalf("purchase refused: %s", result.Message)
	}
	if result.Balance != 50 {
		t.Fatalf("balance after purchase: got %d, want 50", result.Balance)
	}
	if got := h.TokenBalance(id); got != 50 {
		t.Fatalf("ledger balance after purchase: got %d, want 50", got)
	}
	if result.ItemName == "" {
		t.Fatalf("successful purchase missing the item name")
	}
	if got := countFrames(t, conn, "purchaseResult"); got != 1 {
		t.Fatalf("expected one purchaseResult frame, got %d", got)
	}
}

func TestPurchaseInsufficientTokens(t *testing.T) {
	h, id, _ := shopTestHub(t, 100)

	items := h.ShopCatalog()
	if len(items) < 2 || items[1].Cost != 120 {
		t.Fatalf("unexpected default shop layout: %+v", items)
	}
	item := items[1]

	result := h.PurchaseItem(id, 1)
	if result.Success {
		t.Fatalf("purchase succeeded with insufficient tokens")
	}
	want := fmt.Sprintf("insufficient tokens, required %d, have %d", item.Cost, 100)
	if result.Message != want {
		t.Fatalf("rejection message %q, want %q", result.Message, want)
	}
	if got := h.TokenBalance(id); got != 100 {
		t.Fatalf("failed purchase mutated the balance: got %d, want 100", got)
	}
}

func TestPurchaseInvalidItemIndex(t *testing.T) {
	h, id, _ := shopTestHub(t, 500)

	for _, index := range []int{-1, len(h.ShopCatalog())} {
		result := h.PurchaseItem(id, index)
		if result.Success {
			t.Fatalf("purchase succeeded for invalid index %d", index)
		}
		if result.Message != "invalid item" {
			t.Fatalf("index %d message %q, want %q", index, result.Message, "invalid item")
		}
	}
	if got := h.TokenBalance(id); got != 500 {
		t.Fatalf("invalid purchases mutated the balance: got %d, want 500", got)
	}
}

func TestPurchaseExactBalance(t *testing.T) {
	h, id, _ := shopTestHub(t, 50)

	result := h.PurchaseItem(id, 0)
	if !result.Success {
		t.Fatalf("purchase at exact cost refused: %s", result.Message)
	}
	if got := h.TokenBalance(id); got != 0 {
		t.Fatalf("balance after exact purchase: got %d, want 0", got)
	}
}

func TestRepeatedPurchasesDrainBalance(t *testing.T) {
	h, id, _ := shopTestHub(t, 120)

	if result := h.PurchaseItem(id, 0); !result.Success {
		t.Fatalf("first purchase refused: %s", result.Message)
	}
	if result := h.PurchaseItem(id, 0); !result.Success {
		t.Fatalf("second purchase refused: %s", result.Message)
	}
	if result := h.PurchaseItem(id, 0); result.Success {
		t.Fatalf("third purchase succeeded on a balance of %d", result.Balance)
	}
	if got := h.TokenBalance(id); got != 20 {
		t.Fatalf("final balance: got %d, want 20", got)
	}
}

func TestPurchaseTelemetry(t *testing.T) {
	h, id, _ := shopTestHub(t, 50)

	h.PurchaseItem(id, 0)
	h.PurchaseItem(id, 0)

	snap := h.TelemetrySnapshot()
	if snap.Purchases != 1 {
		t.Fatalf("purchase counter: got %d, want 1", snap.Purchases)
	}
	if snap.PurchasesRejected != 1 {
		t.Fatalf("rejected counter: got %d, want 1", snap.PurchasesRejected)
	}
}
