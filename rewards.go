package server

import (
	"context"
	"sort"

	"emberfall/server/internal/telemetry"
	loggeconomy "emberfall/server/logging/economy"
)

// StatsSink is the external player stats collaborator. ApplyRewards grants
// gold and experience as one unit of work; an error means neither landed and
// the caller must not credit tokens either.
type StatsSink interface {
	ApplyRewards(playerID string, gold, exp int) error
}

// StatsSinkFunc adapts a function into a StatsSink.
type StatsSinkFunc func(playerID string, gold, exp int) error

// ApplyRewards implements StatsSink.
func (f StatsSinkFunc) ApplyRewards(playerID string, gold, exp int) error {
	if f == nil {
		return nil
	}
	return f(playerID, gold, exp)
}

// NewLoggingStatsSink returns the default stats collaborator used when no
// real stats service is wired: it records grants on the operational log and
// always succeeds.
func NewLoggingStatsSink(logger telemetry.Logger) StatsSink {
	return StatsSinkFunc(func(playerID string, gold, exp int) error {
		if logger != nil {
			logger.Printf("stats grant player=%s gold=%d exp=%d", playerID, gold, exp)
		}
		return nil
	})
}

// distributeRewardsLocked converts the invasion's contribution map into
// durable rewards. Runs exactly once, inside endInvasionLocked.
//
// Contributors without a live connection receive nothing: rewards are not
// queued for later delivery. This is a known limitation, kept intentionally.
func (h *Hub) distributeRewardsLocked() {
	contributions := h.ledger.contributions
	playerIDs := make([]string, 0, len(contributions))
	for playerID := range contributions {
		playerIDs = append(playerIDs, playerID)
	}
	sort.Strings(playerIDs)

	ctx := context.Background()
	tick := h.tick.Load()

	for _, playerID := range playerIDs {
		contribution := contributions[playerID]
		if contribution <= 0 {
			continue
		}
		if _, connected := h.subscribers[playerID]; !connected {
			loggeconomy.RewardSkipped(ctx, h.publisher, tick, playerID, loggeconomy.RewardSkippedPayload{
				Contribution: contribution,
				Reason:       "disconnected",
			})
			continue
		}

		tokens := contribution
		gold := int(float64(contribution) * h.cfg.GoldPerKill * h.cfg.KillMultiplier)
		exp := int(float64(contribution) * h.cfg.ExpPerKill * h.cfg.ExpMultiplier)

		// Gold and experience land first; if the stats collaborator cannot
		// be reached the whole per-player payout is abandoned so tokens are
		// never credited on their own.
		if err := h.stats.ApplyRewards(playerID, gold, exp); err != nil {
			loggeconomy.StatGrantFailed(ctx, h.publisher, tick, playerID, loggeconomy.StatGrantFailedPayload{
				Gold:   gold,
				Exp:    exp,
				Reason: err.Error(),
			})
			continue
		}

		h.ledger.creditTokens(playerID, tokens)
		h.ledger.incrementParticipation(playerID)
		balance := h.ledger.tokenBalance(playerID)

		loggeconomy.RewardGranted(ctx, h.publisher, tick, playerID, loggeconomy.RewardGrantedPayload{
			Contribution: contribution,
			Tokens:       tokens,
			Gold:         gold,
			Exp:          exp,
			Balance:      balance,
		})
		h.queueRewardLocked(playerID, tokens, gold, exp, balance)
		h.telemetry.RecordReward(tokens)
	}
}
