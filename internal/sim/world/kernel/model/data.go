package model

import (
	"fmt"

	"proofline.ai/internal/sim/world/logic/dirs"
)

type ItemData struct {
	Formula string     `json:"formula"`
	Theorem bool       `json:"theorem,omitempty"`
	Pos     [2]float64 `json:"pos"`
}

func (d ItemData) Item() *Item {
	return &Item{Formula: d.Formula, Theorem: d.Theorem, Pos: d.Pos}
}

// Data is the persistable state of one machine. Which fields are set depends
// on the machine kind.
type Data struct {
	Type     string `json:"type"`
	Origin   [2]int `json:"origin"`
	Rotation int    `json:"rotation"`

	// Conveyor.
	Inputs   []string   `json:"inputs,omitempty"`
	Outputs  []string   `json:"outputs,omitempty"`
	Item     *ItemData  `json:"item,omitempty"`
	Progress float64    `json:"progress,omitempty"`
	Start    [2]float64 `json:"start,omitempty"`
	NextIn   int        `json:"next_in,omitempty"`
	NextOut  int        `json:"next_out,omitempty"`

	// Generator.
	Letter  string  `json:"letter,omitempty"`
	Elapsed float64 `json:"elapsed,omitempty"`

	// Logic machine.
	Rule   string           `json:"rule,omitempty"`
	Slots  map[int]ItemData `json:"slots,omitempty"`
	Output *ItemData        `json:"output,omitempty"`
	Timer  float64          `json:"timer,omitempty"`

	// Collector.
	Received map[string]int `json:"received,omitempty"`
}

func baseData(b *Base) Data {
	return Data{Type: b.Type, Origin: b.Origin.ToArray(), Rotation: b.Rotation}
}

func itemData(it *Item) *ItemData {
	if it == nil {
		return nil
	}
	return &ItemData{Formula: it.Formula, Theorem: it.Theorem, Pos: it.Pos}
}

// New builds an unplaced machine of the given spec at rotation rot.
func New(s Spec, rot int) (Machine, error) {
	switch s.Kind {
	case KindConveyor:
		b := NewBelt(s, rot)
		return b, nil
	case KindGenerator:
		return NewGenerator(s, rot), nil
	case KindCollector:
		return NewCollector(s, rot), nil
	case KindLogic:
		name := s.Rule
		if name == "" {
			name = "relay"
		}
		r, err := LookupRule(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Type, err)
		}
		return NewLogicMachine(s, rot, r), nil
	default:
		return nil, fmt.Errorf("%s: unknown machine kind %q", s.Type, s.Kind)
	}
}

// FromData rebuilds a machine from its persisted state. The machine is not
// placed; the caller places it at d.Origin.
func FromData(s Spec, d Data) (Machine, error) {
	if d.Type != s.Type {
		return nil, fmt.Errorf("data type %q does not match spec %q", d.Type, s.Type)
	}
	m, err := New(s, d.Rotation)
	if err != nil {
		return nil, err
	}
	switch mm := m.(type) {
	case *Belt:
		in, err := dirs.ParseSet(d.Inputs)
		if err != nil {
			return nil, fmt.Errorf("%s inputs: %w", s.Type, err)
		}
		out, err := dirs.ParseSet(d.Outputs)
		if err != nil {
			return nil, fmt.Errorf("%s outputs: %w", s.Type, err)
		}
		mm.Inputs, mm.Outputs = in, out
		mm.RebuildPorts()
		mm.In.Next, mm.Out.Next = d.NextIn, d.NextOut
		mm.In.Clamp(len(mm.InputPorts()))
		mm.Out.Clamp(len(mm.OutputPorts()))
		if d.Item != nil {
			mm.Item = d.Item.Item()
			mm.Progress = d.Progress
			mm.end = TileCenter(dirs.VecOf(d.Origin))
			mm.start = d.Start
		}
	case *Generator:
		mm.Letter = d.Letter
		mm.Elapsed = d.Elapsed
	case *LogicMachine:
		if d.Rule != "" && d.Rule != mm.Rule.Name() {
			r, err := LookupRule(d.Rule)
			if err != nil {
				return nil, err
			}
			mm.Rule = r
		}
		for i, it := range d.Slots {
			if i < 0 || i >= len(mm.Slots) {
				return nil, fmt.Errorf("%s: slot %d out of range", s.Type, i)
			}
			mm.Slots[i] = it.Item()
		}
		if d.Output != nil {
			mm.Output = d.Output.Item()
		}
		mm.Timer = d.Timer
	case *Collector:
		for k, v := range d.Received {
			mm.Received[k] = v
		}
	}
	return m, nil
}
