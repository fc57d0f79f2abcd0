package model

import (
	"proofline.ai/internal/sim/world/logic/dirs"
)

type Kind string

const (
	KindConveyor  Kind = "CONVEYOR"
	KindGenerator Kind = "GENERATOR"
	KindLogic     Kind = "LOGIC"
	KindCollector Kind = "COLLECTOR"
)

// Machine is anything that can be placed on the grid.
type Machine interface {
	Core() *Base
	ToData() Data
}

// Updatable machines advance internal timers once per tick, before transfers.
type Updatable interface {
	Update(dt float64)
}

// Provider machines hand items to linked input ports.
type Provider interface {
	// ProvideItem returns the item to offer through p, or nil.
	ProvideItem(p *Port) *Item
	// HandleBackpressure takes back an item that could not be delivered.
	// It returns false when the item could not be re-held.
	HandleBackpressure(it *Item, p *Port) bool
}

// Receiver machines accept items at their own input ports.
type Receiver interface {
	ReceiveItem(p *Port, it *Item) bool
}

// TransferObserver is notified once after every transfer pass.
type TransferObserver interface {
	EndTransfer()
}

// Base holds what every machine has: identity, footprint, rotation and ports.
type Base struct {
	ID       uint64
	Type     string
	Kind     Kind
	Origin   dirs.Vec
	BaseSize dirs.Vec
	Rotation int
	Ports    []*Port

	placed bool
}

func (b *Base) Core() *Base { return b }

func (b *Base) Placed() bool { return b.placed }

func (b *Base) Place(origin dirs.Vec) {
	b.Origin = origin
	b.placed = true
}

func (b *Base) Unplace() { b.placed = false }

// Size is the footprint after rotation.
func (b *Base) Size() dirs.Vec { return dirs.RotatedSize(b.BaseSize, b.Rotation) }

func (b *Base) Contains(p dirs.Vec) bool { return b.Size().Contains(p.Sub(b.Origin)) }

// Footprint lists every tile the machine covers, row by row.
func (b *Base) Footprint() []dirs.Vec {
	sz := b.Size()
	out := make([]dirs.Vec, 0, sz.X*sz.Y)
	for y := 0; y < sz.Y; y++ {
		for x := 0; x < sz.X; x++ {
			out = append(out, b.Origin.Add(dirs.Vec{X: x, Y: y}))
		}
	}
	return out
}

// Center is the world position of the footprint's center.
func (b *Base) Center() [2]float64 {
	sz := b.Size()
	return [2]float64{
		(float64(b.Origin.X) + float64(sz.X)/2) * TileSize,
		(float64(b.Origin.Y) + float64(sz.Y)/2) * TileSize,
	}
}

func (b *Base) portsOf(kind PortKind) []*Port {
	out := make([]*Port, 0, len(b.Ports))
	for _, p := range b.Ports {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func (b *Base) InputPorts() []*Port  { return b.portsOf(PortInput) }
func (b *Base) OutputPorts() []*Port { return b.portsOf(PortOutput) }

// KindIndex is the position of p among the machine's ports of the same kind, or -1.
func (b *Base) KindIndex(p *Port) int {
	i := 0
	for _, q := range b.Ports {
		if q.Kind != p.Kind {
			continue
		}
		if q == p {
			return i
		}
		i++
	}
	return -1
}

// Rotate turns the machine n quarter turns clockwise and re-derives every
// port. Links must be released by the caller first.
func (b *Base) Rotate(n int) {
	b.Rotation = dirs.NormalizeRotation(b.Rotation + n)
	for _, p := range b.Ports {
		p.rotate(b.BaseSize, b.Rotation)
	}
}

// adopt takes ownership of ports and orients them to the current rotation.
func (b *Base) adopt(owner Machine, ports []*Port) {
	for _, p := range ports {
		p.owner = owner
		p.rotate(b.BaseSize, b.Rotation)
	}
	b.Ports = ports
}

// PortSpec describes one port in a machine type's base orientation.
type PortSpec struct {
	Kind   PortKind
	Offset dirs.Vec
	Facing dirs.Dir
}

// Spec is the catalog description a machine is built from.
type Spec struct {
	Type  string
	Name  string
	Kind  Kind
	Size  dirs.Vec
	Ports []PortSpec

	Rule     string
	Interval float64
	Duration float64
	Speed    float64
}

func (s Spec) buildPorts() []*Port {
	out := make([]*Port, 0, len(s.Ports))
	for _, ps := range s.Ports {
		out = append(out, NewPort(ps.Kind, ps.Offset, ps.Facing))
	}
	return out
}

func newBase(s Spec, rot int) Base {
	size := s.Size
	if size.X <= 0 || size.Y <= 0 {
		size = dirs.Vec{X: 1, Y: 1}
	}
	return Base{Type: s.Type, Kind: s.Kind, BaseSize: size, Rotation: dirs.NormalizeRotation(rot)}
}
