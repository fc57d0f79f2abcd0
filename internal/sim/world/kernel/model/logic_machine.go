package model

import (
	"fmt"
	"sort"
	"strings"
)

// Rule turns a full set of input items into one output item.
type Rule interface {
	Name() string
	// Accept reports whether it may enter input slot i.
	Accept(slot int, it *Item) bool
	// Apply combines the inputs. ok=false consumes the inputs without output.
	Apply(inputs []*Item) (out *Item, ok bool)
}

type relayRule struct{}

func (relayRule) Name() string                  { return "relay" }
func (relayRule) Accept(slot int, _ *Item) bool { return slot == 0 }
func (relayRule) Apply(in []*Item) (*Item, bool) {
	if len(in) == 0 || in[0] == nil {
		return nil, false
	}
	return &Item{Formula: in[0].Formula, Theorem: in[0].Theorem}, true
}

// joinRule lists all input formulas in slot order.
type joinRule struct{}

func (joinRule) Name() string           { return "join" }
func (joinRule) Accept(int, *Item) bool { return true }
func (joinRule) Apply(in []*Item) (*Item, bool) {
	parts := make([]string, 0, len(in))
	theorem := len(in) > 0
	for _, it := range in {
		if it == nil {
			return nil, false
		}
		parts = append(parts, it.Formula)
		theorem = theorem && it.Theorem
	}
	return &Item{Formula: "(" + strings.Join(parts, ", ") + ")", Theorem: theorem}, true
}

var rules = map[string]Rule{
	"relay": relayRule{},
	"join":  joinRule{},
}

func LookupRule(name string) (Rule, error) {
	r, ok := rules[name]
	if !ok {
		return nil, fmt.Errorf("unknown rule %q (known: %s)", name, strings.Join(RuleNames(), ", "))
	}
	return r, nil
}

func RuleNames() []string {
	out := make([]string, 0, len(rules))
	for n := range rules {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SlideSpeed is how fast, in world units per second, an input item slides
// into a logic machine.
const SlideSpeed = 16.0

// LogicMachine buffers one item per input port and emits Rule's result after
// Duration seconds once every slot is filled.
type LogicMachine struct {
	Base

	Rule     Rule
	Duration float64
	Timer    float64
	Slots    []*Item
	Output   *Item

	slide []float64
}

func NewLogicMachine(s Spec, rot int, rule Rule) *LogicMachine {
	m := &LogicMachine{Base: newBase(s, rot), Rule: rule, Duration: s.Duration}
	m.Kind = KindLogic
	if m.Duration <= 0 {
		m.Duration = 3.0
	}
	m.adopt(m, s.buildPorts())
	n := len(m.InputPorts())
	m.Slots = make([]*Item, n)
	m.slide = make([]float64, n)
	return m
}

func (m *LogicMachine) ready() bool {
	if len(m.Slots) == 0 {
		return false
	}
	for _, it := range m.Slots {
		if it == nil {
			return false
		}
	}
	return true
}

func (m *LogicMachine) Update(dt float64) {
	step := FromRotationVec(m.Rotation)
	for i, it := range m.Slots {
		if it == nil || m.slide[i] >= TileSize {
			continue
		}
		d := SlideSpeed * dt
		if m.slide[i]+d > TileSize {
			d = TileSize - m.slide[i]
		}
		it.Pos[0] += step[0] * d
		it.Pos[1] += step[1] * d
		m.slide[i] += d
	}
	if m.Output != nil || !m.ready() {
		return
	}
	m.Timer += dt
	if m.Timer < m.Duration {
		return
	}
	out, ok := m.Rule.Apply(m.Slots)
	for i := range m.Slots {
		m.Slots[i] = nil
		m.slide[i] = 0
	}
	m.Timer = 0
	if ok {
		out.Pos = m.Center()
		m.Output = out
	}
}

func (m *LogicMachine) ReceiveItem(p *Port, it *Item) bool {
	if p.Kind != PortInput || it == nil || m.Output != nil {
		return false
	}
	i := m.KindIndex(p)
	if i < 0 || i >= len(m.Slots) || m.Slots[i] != nil {
		return false
	}
	if m.Rule != nil && !m.Rule.Accept(i, it) {
		return false
	}
	m.Slots[i] = it
	m.slide[i] = 0
	if m.ready() {
		m.Timer = 0
	}
	return true
}

func (m *LogicMachine) ProvideItem(p *Port) *Item {
	if m.Output == nil || p.Kind != PortOutput {
		return nil
	}
	it := m.Output
	m.Output = nil
	return it
}

func (m *LogicMachine) HandleBackpressure(it *Item, p *Port) bool {
	if m.Output != nil {
		return false
	}
	m.Output = it
	return true
}

func (m *LogicMachine) ToData() Data {
	d := baseData(&m.Base)
	d.Rule = m.Rule.Name()
	d.Timer = m.Timer
	d.Output = itemData(m.Output)
	for i, it := range m.Slots {
		if it == nil {
			continue
		}
		if d.Slots == nil {
			d.Slots = map[int]ItemData{}
		}
		d.Slots[i] = *itemData(it)
	}
	return d
}

// FromRotationVec is the unit world-space step along a machine's forward axis.
func FromRotationVec(rot int) [2]float64 {
	switch rot & 3 {
	case 1:
		return [2]float64{0, 1}
	case 2:
		return [2]float64{-1, 0}
	case 3:
		return [2]float64{0, -1}
	default:
		return [2]float64{1, 0}
	}
}
