package model

import (
	"proofline.ai/internal/sim/world/logic/beltconnect"
	"proofline.ai/internal/sim/world/logic/dirs"
	"proofline.ai/internal/sim/world/logic/roundrobin"
)

// Belt is a 1x1 conveyor holding at most one item. Inputs and Outputs are in
// the belt's unrotated frame; ports are regenerated from them.
type Belt struct {
	Base

	Inputs  dirs.Set
	Outputs dirs.Set

	Item     *Item
	Progress float64
	Speed    float64

	In  roundrobin.Cursor
	Out roundrobin.Cursor

	start, end [2]float64

	offered  dirs.Set
	accepted bool
}

func NewBelt(s Spec, rot int) *Belt {
	b := &Belt{Base: newBase(s, rot), Speed: s.Speed}
	b.Kind = KindConveyor
	b.BaseSize = dirs.Vec{X: 1, Y: 1}
	if b.Speed <= 0 {
		b.Speed = 1.0
	}
	return b
}

// State returns the belt's connectivity for the auto-connector.
func (b *Belt) State() beltconnect.State {
	st := beltconnect.State{Rotation: b.Rotation, Inputs: b.Inputs, Outputs: b.Outputs}
	for _, p := range b.Ports {
		if !p.Connected() {
			continue
		}
		if p.Kind == PortInput {
			st.LinkedIn = st.LinkedIn.Add(p.Facing)
		} else {
			st.LinkedOut = st.LinkedOut.Add(p.Facing)
		}
	}
	return st
}

func (b *Belt) SetState(st beltconnect.State) {
	b.Inputs, b.Outputs = st.Inputs, st.Outputs
}

func (b *Belt) Shape() beltconnect.Shape { return beltconnect.Classify(b.State()) }

// Neighbor describes this belt to an adjacent belt's recompute.
func (b *Belt) Neighbor() *beltconnect.Neighbor {
	return &beltconnect.Neighbor{Belt: true, Rotation: b.Rotation, Inputs: b.Inputs, Outputs: b.Outputs}
}

// RebuildPorts discards the current ports and builds new ones from the
// direction sets. Old ports must be released from the port table first.
func (b *Belt) RebuildPorts() {
	ports := make([]*Port, 0, b.Inputs.Len()+b.Outputs.Len())
	for _, d := range b.Inputs.Slice() {
		ports = append(ports, NewPort(PortInput, dirs.Vec{}, d))
	}
	for _, d := range b.Outputs.Slice() {
		ports = append(ports, NewPort(PortOutput, dirs.Vec{}, d))
	}
	b.adopt(b, ports)
	b.In.Clamp(b.Inputs.Len())
	b.Out.Clamp(b.Outputs.Len())
	b.offered = 0
}

// ResetDirections clears the direction sets so the next recompute starts fresh.
func (b *Belt) ResetDirections() {
	b.Inputs, b.Outputs = 0, 0
}

func (b *Belt) Update(dt float64) {
	if b.Item == nil {
		return
	}
	if b.Progress < 1 {
		b.Progress += dt * b.Speed
		if b.Progress > 1 {
			b.Progress = 1
		}
	}
	b.Item.Pos = lerp(b.start, b.end, b.Progress)
}

func linked(ports []*Port) func(int) bool {
	return func(i int) bool { return ports[i].Connected() }
}

func (b *Belt) ProvideItem(p *Port) *Item {
	if b.Item == nil || b.Progress < 1 || p.Kind != PortOutput {
		return nil
	}
	outs := b.OutputPorts()
	i := b.Out.Turn(len(outs), linked(outs))
	if i < 0 || outs[i] != p {
		return nil
	}
	it := b.Item
	b.Item = nil
	b.Progress = 0
	b.Out.Advance(i, len(outs))
	return it
}

func (b *Belt) HandleBackpressure(it *Item, p *Port) bool {
	if b.Item != nil {
		return false
	}
	b.Out.Rewind()
	b.Item = it
	b.Progress = 1
	b.start = b.end
	return true
}

func (b *Belt) ReceiveItem(p *Port, it *Item) bool {
	if p.Kind != PortInput || it == nil {
		return false
	}
	ins := b.InputPorts()
	idx := b.KindIndex(p)
	if idx < 0 {
		return false
	}
	b.offered = b.offered.Add(p.Facing)
	if b.Item != nil {
		return false
	}
	if b.In.Turn(len(ins), linked(ins)) != idx {
		return false
	}
	b.Item = it
	b.Progress = 0
	b.start = TileCenter(b.Origin.Step(p.Dir))
	b.end = TileCenter(b.Origin)
	it.Pos = b.start
	b.In.Advance(idx, len(ins))
	b.In.Commit()
	b.accepted = true
	return true
}

// EndTransfer applies the idle-advance policy to the input cursor.
func (b *Belt) EndTransfer() {
	ins := b.InputPorts()
	offered := func(i int) bool { return b.offered.Has(ins[i].Facing) }
	roundrobin.IdleAdvance(&b.In, len(ins), b.Item == nil && !b.accepted, offered, linked(ins))
	b.offered = 0
	b.accepted = false
	b.Out.Commit()
}

// Restash puts an item back on the belt as if it had just finished travelling.
func (b *Belt) Restash(it *Item, progress float64) {
	b.Item = it
	b.Progress = progress
	b.end = TileCenter(b.Origin)
	b.start = b.end
	if it != nil {
		it.Pos = b.end
	}
}

func (b *Belt) ToData() Data {
	d := baseData(&b.Base)
	d.Inputs = b.Inputs.Strings()
	d.Outputs = b.Outputs.Strings()
	d.Item = itemData(b.Item)
	d.Progress = b.Progress
	if b.Item != nil {
		d.Start = b.start
	}
	d.NextIn = b.In.Next
	d.NextOut = b.Out.Next
	return d
}
