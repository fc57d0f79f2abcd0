package model

import (
	"fmt"

	"proofline.ai/internal/sim/world/logic/dirs"
)

type PortKind uint8

const (
	PortInput PortKind = iota + 1
	PortOutput
)

func (k PortKind) String() string {
	switch k {
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	default:
		return fmt.Sprintf("PortKind(%d)", uint8(k))
	}
}

// PortID is a handle into the world's port table. Zero means "no port".
type PortID uint64

// Port is a typed, directional connection point owned by one machine.
//
// Offset and Facing describe the port in the owner's base orientation; Rel and
// Dir are derived from them and the owner's rotation.
type Port struct {
	ID   PortID
	Peer PortID
	Kind PortKind

	Offset dirs.Vec
	Facing dirs.Dir

	Rel dirs.Vec
	Dir dirs.Dir

	owner Machine
}

func NewPort(kind PortKind, offset dirs.Vec, facing dirs.Dir) *Port {
	return &Port{Kind: kind, Offset: offset, Facing: facing, Rel: offset, Dir: facing}
}

func (p *Port) Owner() Machine  { return p.owner }
func (p *Port) Connected() bool { return p.Peer != 0 }

// GridPos is the tile the port sits on.
func (p *Port) GridPos() dirs.Vec {
	if p.owner == nil {
		return p.Rel
	}
	return p.owner.Core().Origin.Add(p.Rel)
}

// ConnectionPos is the adjacent tile the port reaches into.
func (p *Port) ConnectionPos() dirs.Vec { return p.GridPos().Step(p.Dir) }

// CanConnectTo is the sole admission rule for linking two ports. It is symmetric.
func (p *Port) CanConnectTo(o *Port) bool {
	if p == nil || o == nil || p.Kind == o.Kind {
		return false
	}
	return p.ConnectionPos() == o.GridPos() && p.Dir == o.Dir.Opposite()
}

func (p *Port) String() string {
	return fmt.Sprintf("%s@%v->%v#%d", p.Kind, p.GridPos(), p.Dir, p.ID)
}

func (p *Port) rotate(size dirs.Vec, rot int) {
	p.Rel = dirs.RotateOffset(p.Offset, size, rot)
	p.Dir = p.Facing.Rotate(rot)
}
