package world

import "proofline.ai/internal/sim/world/kernel/model"

// heldItems lists the items a machine currently holds, without taking them.
func heldItems(m model.Machine) []*model.Item {
	var out []*model.Item
	switch mm := m.(type) {
	case *model.Belt:
		if mm.Item != nil {
			out = append(out, mm.Item)
		}
	case *model.LogicMachine:
		for _, it := range mm.Slots {
			if it != nil {
				out = append(out, it)
			}
		}
		if mm.Output != nil {
			out = append(out, mm.Output)
		}
	}
	return out
}

// takeHeldItems empties m and returns what it held.
func takeHeldItems(m model.Machine) []*model.Item {
	out := heldItems(m)
	switch mm := m.(type) {
	case *model.Belt:
		mm.Item = nil
		mm.Progress = 0
	case *model.LogicMachine:
		for i := range mm.Slots {
			mm.Slots[i] = nil
		}
		mm.Output = nil
		mm.Timer = 0
	}
	return out
}

// addLoose keeps an item that no machine holds. The oldest loose items are
// dropped beyond MaxLooseItems, each with a LOOSE_DROPPED audit.
func (w *World) addLoose(it *model.Item) {
	if it == nil {
		return
	}
	w.loose = append(w.loose, it)
	over := len(w.loose) - w.cfg.MaxLooseItems
	if over <= 0 {
		return
	}
	for _, d := range w.loose[:over] {
		w.auditEvent(w.tick.Load(), "SYSTEM", "LOOSE_DROPPED", model.TileOf(d.Pos), "", "loose_cap", map[string]any{
			"formula": d.Formula,
		})
	}
	w.loose = append([]*model.Item(nil), w.loose[over:]...)
}

// LooseItems returns copies of the items that fell off the grid.
func (w *World) LooseItems() []model.Item {
	out := make([]model.Item, 0, len(w.loose))
	for _, it := range w.loose {
		out = append(out, *it)
	}
	return out
}
