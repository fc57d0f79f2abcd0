package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	TickDT             float64 `yaml:"tick_dt" json:"tick_dt"`
	BeltSpeed          float64 `yaml:"belt_speed" json:"belt_speed"`
	GeneratorInterval  float64 `yaml:"generator_interval" json:"generator_interval"`
	LogicDuration      float64 `yaml:"logic_duration" json:"logic_duration"`
	SnapshotEveryTicks int     `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`
	ObserverEveryTicks int     `yaml:"observer_every_ticks" json:"observer_every_ticks"`
	MaxLooseItems      int     `yaml:"max_loose_items" json:"max_loose_items"`

	// Per-connection command cap on the websocket command endpoint.
	CommandRateWindowTicks int `yaml:"command_rate_window_ticks" json:"command_rate_window_ticks"`
	CommandRateMax         int `yaml:"command_rate_max" json:"command_rate_max"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		TickDT:             0.05,
		BeltSpeed:          1.0,
		GeneratorInterval:  2.0,
		LogicDuration:      3.0,
		SnapshotEveryTicks: 3000,
		ObserverEveryTicks: 5,
		MaxLooseItems:      1024,

		CommandRateWindowTicks: 20,
		CommandRateMax:         40,
	}
}

// Load reads path over Defaults; keys absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.TickDT <= 0:
		return fmt.Errorf("tick_dt must be > 0")
	case t.BeltSpeed <= 0:
		return fmt.Errorf("belt_speed must be > 0")
	case t.GeneratorInterval <= 0:
		return fmt.Errorf("generator_interval must be > 0")
	case t.LogicDuration <= 0:
		return fmt.Errorf("logic_duration must be > 0")
	case t.SnapshotEveryTicks < 0 || t.ObserverEveryTicks < 0 || t.MaxLooseItems < 0 ||
		t.CommandRateWindowTicks < 0 || t.CommandRateMax < 0:
		return fmt.Errorf("cadences and limits must be >= 0")
	}
	return nil
}
