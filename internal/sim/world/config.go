package world

import "proofline.ai/internal/sim/tuning"

type WorldConfig struct {
	ID    string
	RunID string

	TickRateHz int
	// TickDT is the simulated time advanced by one tick, in seconds.
	TickDT float64

	// Operational parameters. These are included in snapshots for deterministic replay/resume.
	SnapshotEveryTicks int
	ObserverEveryTicks int
	MaxLooseItems      int
}

// ConfigFromTuning maps tuning.yaml onto a world config.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                 id,
		TickRateHz:         t.TickRateHz,
		TickDT:             t.TickDT,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		ObserverEveryTicks: t.ObserverEveryTicks,
		MaxLooseItems:      t.MaxLooseItems,
	}
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "GRID"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.TickDT <= 0 {
		c.TickDT = 1.0 / float64(c.TickRateHz)
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 3000
	}
	if c.ObserverEveryTicks <= 0 {
		c.ObserverEveryTicks = 5
	}
	if c.MaxLooseItems <= 0 {
		c.MaxLooseItems = 1024
	}
}
