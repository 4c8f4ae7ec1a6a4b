package server

import "time"

// Config captures the tuning knobs for the invasion engine. Zero values are
// replaced by defaults through normalized, so a partially filled Config is
// always safe to hand to NewHub.
type Config struct {
	TickRate int `json:"tickRate"`

	// Scheduler window between invasions.
	MinInterval time.Duration `json:"minInterval"`
	MaxInterval time.Duration `json:"maxInterval"`

	// Hard ceiling on a single invasion, measured from its start.
	Duration time.Duration `json:"duration"`

	// Time gates for the first two phases. Scouts runs until ScoutsUntil,
	// MainForce until MainForceUntil, Boss until Duration expires.
	ScoutsUntil    time.Duration `json:"scoutsUntil"`
	MainForceUntil time.Duration `json:"mainForceUntil"`

	// Raw kill count that advances the current phase ahead of its time gate.
	PhaseKillThreshold int `json:"phaseKillThreshold"`

	// Reward formula constants. Token reward is always contribution 1:1;
	// gold and experience scale from contribution by rate * multiplier.
	GoldPerKill    float64 `json:"goldPerKill"`
	ExpPerKill     float64 `json:"expPerKill"`
	KillMultiplier float64 `json:"killMultiplier"`
	ExpMultiplier  float64 `json:"expMultiplier"`

	// Bounds for the random invasion site.
	WorldWidth  float64 `json:"worldWidth"`
	WorldHeight float64 `json:"worldHeight"`

	// Cadence for progress broadcasts while an invasion runs.
	ProgressInterval time.Duration `json:"progressInterval"`

	// Seed for the scheduler RNG. Zero seeds from the wall clock.
	Seed int64 `json:"seed,omitempty"`
}

// DefaultConfig returns the tuning used by the live server.
func DefaultConfig() Config {
	return Config{
		TickRate:           10,
		MinInterval:        10 * time.Minute,
		MaxInterval:        20 * time.Minute,
		Duration:           5 * time.Minute,
		ScoutsUntil:        2 * time.Minute,
		MainForceUntil:     4 * time.Minute,
		PhaseKillThreshold: 100,
		GoldPerKill:        25,
		ExpPerKill:         40,
		KillMultiplier:     1.5,
		ExpMultiplier:      2,
		WorldWidth:         4096,
		WorldHeight:        4096,
		ProgressInterval:   time.Second,
	}
}

// normalized returns a config with defaults applied to unset fields and the
// phase gates forced into a consistent order.
func (cfg Config) normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	if normalized.TickRate <= 0 {
		normalized.TickRate = defaults.TickRate
	}
	if normalized.MinInterval <= 0 {
		normalized.MinInterval = defaults.MinInterval
	}
	if normalized.MaxInterval < normalized.MinInterval {
		normalized.MaxInterval = normalized.MinInterval
	}
	if normalized.Duration <= 0 {
		normalized.Duration = defaults.Duration
	}
	if normalized.ScoutsUntil <= 0 {
		normalized.ScoutsUntil = defaults.ScoutsUntil
	}
	if normalized.MainForceUntil <= normalized.ScoutsUntil {
		normalized.MainForceUntil = normalized.ScoutsUntil + defaults.MainForceUntil - defaults.ScoutsUntil
	}
	if normalized.PhaseKillThreshold <= 0 {
		normalized.PhaseKillThreshold = defaults.PhaseKillThreshold
	}
	if normalized.GoldPerKill <= 0 {
		normalized.GoldPerKill = defaults.GoldPerKill
	}
	if normalized.ExpPerKill <= 0 {
		normalized.ExpPerKill = defaults.ExpPerKill
	}
	if normalized.KillMultiplier <= 0 {
		normalized.KillMultiplier = defaults.KillMultiplier
	}
	if normalized.ExpMultiplier <= 0 {
		normalized.ExpMultiplier = defaults.ExpMultiplier
	}
	if normalized.WorldWidth <= 0 {
		normalized.WorldWidth = defaults.WorldWidth
	}
	if normalized.WorldHeight <= 0 {
		normalized.WorldHeight = defaults.WorldHeight
	}
	if normalized.ProgressInterval <= 0 {
		normalized.ProgressInterval = defaults.ProgressInterval
	}
	return normalized
}
