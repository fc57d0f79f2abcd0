package world

import "proofline.ai/internal/sim/world/kernel/model"

// Update advances the grid by dt seconds: every machine's own timers first,
// then one transfer pass, then the end-of-pass hooks.
func (w *World) Update(dt float64) {
	w.counters = tickCounters{}
	machines := w.grid.Machines()
	for _, m := range machines {
		if u, ok := m.(model.Updatable); ok {
			u.Update(dt)
		}
	}
	w.transferPass(machines)
	for _, m := range machines {
		if o, ok := m.(model.TransferObserver); ok {
			o.EndTransfer()
		}
	}
	w.totals.add(w.counters)
}
