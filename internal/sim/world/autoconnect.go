package world

import (
	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/beltconnect"
	"proofline.ai/internal/sim/world/logic/dirs"
)

// describe reports m the way an adjacent belt's recompute sees it.
func describe(m model.Machine) *beltconnect.Neighbor {
	if b, ok := m.(*model.Belt); ok {
		return b.Neighbor()
	}
	n := &beltconnect.Neighbor{}
	for _, p := range m.Core().OutputPorts() {
		n.Outlets = append(n.Outlets, beltconnect.Outlet{Pos: p.GridPos(), Dir: p.Dir})
	}
	return n
}

func (w *World) neighborSnapshot(b *model.Belt) beltconnect.Snapshot {
	var snap beltconnect.Snapshot
	for d, m := range w.grid.Neighbors(b.Origin) {
		if m != nil {
			snap[d] = describe(m)
		}
	}
	return snap
}

// configureBelt derives a freshly placed belt's shape from all its neighbors.
func (w *World) configureBelt(b *model.Belt) {
	st := beltconnect.Recompute(b.State(), b.Origin, w.neighborSnapshot(b))
	w.applyBeltState(b, st)
}

// configureNeighborWhenPlacing re-evaluates nb after placed appeared next to
// it. Only the relation to placed is considered; directions nb had without a
// link are dropped first so a stale default can give way.
func (w *World) configureNeighborWhenPlacing(nb *model.Belt, placed model.Machine) {
	var snap beltconnect.Snapshot
	desc := describe(placed)
	for d, m := range w.grid.Neighbors(nb.Origin) {
		if m == placed {
			snap[d] = desc
		}
	}
	st := beltconnect.Recompute(beltconnect.Strip(nb.State()), nb.Origin, snap)
	w.applyBeltState(nb, st)
}

// configureNeighborWhenRemoving drops the directions nb used to reach the
// removed machine and recomputes from nb's remaining neighbors.
func (w *World) configureNeighborWhenRemoving(nb *model.Belt, in, out dirs.Set) {
	st := nb.State()
	for _, d := range in.Slice() {
		st.Inputs = st.Inputs.Remove(d)
	}
	for _, d := range out.Slice() {
		st.Outputs = st.Outputs.Remove(d)
	}
	st = beltconnect.Recompute(st, nb.Origin, w.neighborSnapshot(nb))
	w.applyBeltState(nb, st)
}

// applyBeltState regenerates nb's ports from st and re-derives its links.
func (w *World) applyBeltState(b *model.Belt, st beltconnect.State) {
	hadPorts := len(b.Ports) > 0
	fromIn, fromOut := b.Inputs, b.Outputs

	w.ports.ReleaseAll(b)
	b.SetState(st)
	b.RebuildPorts()
	w.ports.RegisterAll(b)
	w.connectMachine(b)

	if hadPorts && (fromIn != b.Inputs || fromOut != b.Outputs) {
		w.auditEvent(w.tick.Load(), "SYSTEM", "BELT_RECONFIGURE", b.Origin, b.Type, "", map[string]any{
			"from_inputs":  fromIn.Strings(),
			"from_outputs": fromOut.Strings(),
			"to_inputs":    b.Inputs.Strings(),
			"to_outputs":   b.Outputs.Strings(),
			"shape":        b.Shape().String(),
		})
	}
}
