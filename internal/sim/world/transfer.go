package world

import "proofline.ai/internal/sim/world/kernel/model"

// transferPass offers one item through every linked output port, in machine
// placement order. A refused item goes back to its provider.
func (w *World) transferPass(machines []model.Machine) {
	for _, m := range machines {
		prov, ok := m.(model.Provider)
		if !ok {
			continue
		}
		for _, p := range m.Core().OutputPorts() {
			if !p.Connected() {
				continue
			}
			it := prov.ProvideItem(p)
			if it == nil {
				continue
			}
			if w.deliver(p, it) {
				w.counters.transfers++
				continue
			}
			w.counters.backpressure++
			if !prov.HandleBackpressure(it, p) {
				w.anomaly(m, p, it)
			}
		}
	}
}

func (w *World) deliver(p *model.Port, it *model.Item) bool {
	peer := w.ports.PeerOf(p)
	if peer == nil {
		return false
	}
	r, ok := peer.Owner().(model.Receiver)
	if !ok {
		return false
	}
	return r.ReceiveItem(peer, it)
}

func (w *World) anomaly(m model.Machine, p *model.Port, it *model.Item) {
	w.counters.anomalies++
	b := m.Core()
	w.log.Printf("warning: %s #%d at %v could not take back %q from %v; item is now loose", b.Type, b.ID, b.Origin, it.Formula, p)
	w.auditEvent(w.tick.Load(), "SYSTEM", "ITEM_ANOMALY", p.GridPos(), b.Type, "backpressure_rejected", map[string]any{
		"formula": it.Formula,
		"port":    p.String(),
	})
	w.addLoose(it)
}
