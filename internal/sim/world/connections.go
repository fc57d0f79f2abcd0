package world

import "proofline.ai/internal/sim/world/kernel/model"

// UpdateConnectionsAt links every unlinked port of the machine covering
// (x, y) to the first matching port of the machine it faces. Outputs are
// scanned before inputs. Calling it again without a topology change is a
// no-op.
func (w *World) UpdateConnectionsAt(x, y int) {
	m := w.grid.Get(x, y)
	if m == nil {
		return
	}
	w.connectMachine(m)
}

// ConnectAll re-derives links for every machine in placement order.
func (w *World) ConnectAll() {
	for _, m := range w.grid.Machines() {
		w.connectMachine(m)
	}
}

func (w *World) connectMachine(m model.Machine) {
	b := m.Core()
	w.connectPorts(m, b.OutputPorts())
	w.connectPorts(m, b.InputPorts())
}

func (w *World) connectPorts(m model.Machine, ps []*model.Port) {
	for _, p := range ps {
		if p.Connected() {
			continue
		}
		target := w.grid.At(p.ConnectionPos())
		if target == nil || target == m {
			continue
		}
		for _, q := range target.Core().Ports {
			if q.Connected() || !p.CanConnectTo(q) {
				continue
			}
			if err := w.ports.Link(p, q); err != nil {
				w.log.Printf("warning: %v", err)
				continue
			}
			break
		}
	}
}
