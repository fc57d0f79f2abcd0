package world

import (
	"fmt"

	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

// CheckInvariants verifies the structural invariants of the grid: footprint
// partition, link symmetry, port registration, belt port sets, and that no
// pair of facing unlinked ports was left unconnected.
func (w *World) CheckInvariants() error {
	if err := w.grid.CheckPartition(); err != nil {
		return fmt.Errorf("partition: %w", err)
	}
	if err := w.ports.CheckSymmetry(); err != nil {
		return fmt.Errorf("symmetry: %w", err)
	}
	registered := 0
	for _, m := range w.grid.Machines() {
		b := m.Core()
		for _, p := range b.Ports {
			if p.Owner() != m {
				return fmt.Errorf("port %v of %s #%d has another owner", p, b.Type, b.ID)
			}
			if p.ID == 0 || w.ports.Get(p.ID) != p {
				return fmt.Errorf("port %v of %s #%d is not registered", p, b.Type, b.ID)
			}
			registered++
			if q := w.ports.PeerOf(p); q != nil && !q.Owner().Core().Placed() {
				return fmt.Errorf("port %v linked to unplaced machine", p)
			}
		}
		if belt, ok := m.(*model.Belt); ok {
			if err := checkBelt(belt); err != nil {
				return err
			}
		}
		if err := w.checkNoMissedLink(m); err != nil {
			return err
		}
	}
	if registered != w.ports.Len() {
		return fmt.Errorf("port table holds %d ports, machines own %d", w.ports.Len(), registered)
	}
	return nil
}

func checkBelt(b *model.Belt) error {
	switch {
	case b.Inputs.Empty():
		return fmt.Errorf("belt #%d at %v has no inputs", b.ID, b.Origin)
	case !b.Outputs.Has(dirs.East):
		return fmt.Errorf("belt #%d at %v lost its forward output", b.ID, b.Origin)
	case len(b.InputPorts()) != b.Inputs.Len() || len(b.OutputPorts()) != b.Outputs.Len():
		return fmt.Errorf("belt #%d at %v ports do not match %v/%v", b.ID, b.Origin, b.Inputs, b.Outputs)
	}
	return nil
}

func (w *World) checkNoMissedLink(m model.Machine) error {
	for _, p := range m.Core().OutputPorts() {
		if p.Connected() {
			continue
		}
		target := w.grid.At(p.ConnectionPos())
		if target == nil || target == m {
			continue
		}
		for _, q := range target.Core().InputPorts() {
			if !q.Connected() && p.CanConnectTo(q) {
				return fmt.Errorf("ports %v and %v face each other but are not linked", p, q)
			}
		}
	}
	return nil
}
