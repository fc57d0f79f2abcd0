package world

import (
	"fmt"

	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

// AddBlock places m with its origin at (x, y), shapes it if it is a belt,
// links it, and lets every adjacent belt react to it.
func (w *World) AddBlock(x, y int, m model.Machine) error {
	if m == nil {
		return fmt.Errorf("add at (%d,%d): nil machine", x, y)
	}
	b := m.Core()
	if b.Placed() {
		return fmt.Errorf("add %s at (%d,%d): already placed at %v", b.Type, x, y, b.Origin)
	}
	if !w.grid.Add(x, y, m) {
		return fmt.Errorf("add %s at (%d,%d): %w", b.Type, x, y, ErrOccupied)
	}
	w.ports.RegisterAll(m)
	if belt, ok := m.(*model.Belt); ok {
		w.configureBelt(belt)
	}
	w.connectMachine(m)
	for _, nb := range w.grid.NeighborsOf(m) {
		if belt, ok := nb.(*model.Belt); ok {
			w.configureNeighborWhenPlacing(belt, m)
		}
	}
	w.connectMachine(m)
	return nil
}

// Place builds a machine of catalog type typ and adds it at (x, y).
func (w *World) Place(typ string, x, y, rot int) (model.Machine, error) {
	if _, ok := w.catalogs.Spec(typ); !ok {
		return nil, fmt.Errorf("place %q: %w", typ, ErrUnknownType)
	}
	m, err := w.catalogs.New(typ, rot)
	if err != nil {
		return nil, err
	}
	if err := w.AddBlock(x, y, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveBlock removes the machine covering (x, y). Items it held become
// loose items. Returns nil when the tile is empty.
func (w *World) RemoveBlock(x, y int) model.Machine {
	m := w.grid.Get(x, y)
	if m == nil {
		return nil
	}
	w.removeMachine(m)
	for _, it := range takeHeldItems(m) {
		w.addLoose(it)
	}
	return m
}

func (w *World) removeMachine(m model.Machine) {
	type gap struct {
		belt    *model.Belt
		in, out dirs.Set
	}
	var gaps []gap
	for _, nb := range w.grid.NeighborsOf(m) {
		belt, ok := nb.(*model.Belt)
		if !ok {
			continue
		}
		g := gap{belt: belt}
		for _, p := range belt.Ports {
			q := w.ports.PeerOf(p)
			if q == nil || q.Owner() != m {
				continue
			}
			if p.Kind == model.PortInput {
				g.in = g.in.Add(p.Facing)
			} else {
				g.out = g.out.Add(p.Facing)
			}
		}
		if !g.in.Empty() || !g.out.Empty() {
			gaps = append(gaps, g)
		}
	}

	w.ports.ReleaseAll(m)
	origin := m.Core().Origin
	w.grid.Remove(origin.X, origin.Y)

	for _, g := range gaps {
		w.configureNeighborWhenRemoving(g.belt, g.in, g.out)
	}
}

// RotateBlock turns the machine covering (x, y) by n quarter turns clockwise
// around its origin. A belt re-derives its shape from scratch. When the
// rotated footprint does not fit, the machine is put back unchanged.
func (w *World) RotateBlock(x, y, n int) error {
	m := w.grid.Get(x, y)
	if m == nil {
		return fmt.Errorf("rotate (%d,%d): %w", x, y, ErrNotFound)
	}
	n = dirs.NormalizeRotation(n)
	if n == 0 {
		return nil
	}
	b := m.Core()
	origin := b.Origin
	w.removeMachine(m)

	turn := func(k int) {
		b.Rotate(k)
		if belt, ok := m.(*model.Belt); ok {
			belt.ResetDirections()
			belt.Restash(belt.Item, belt.Progress)
		}
	}
	turn(n)
	err := w.AddBlock(origin.X, origin.Y, m)
	if err == nil {
		return nil
	}
	turn(-n)
	if err2 := w.AddBlock(origin.X, origin.Y, m); err2 != nil {
		w.log.Printf("warning: could not restore %s at %v after failed rotate: %v", b.Type, origin, err2)
		for _, it := range takeHeldItems(m) {
			w.addLoose(it)
		}
	}
	return fmt.Errorf("rotate %s at (%d,%d): %w", b.Type, x, y, err)
}

// SetLetter configures the generator covering (x, y).
func (w *World) SetLetter(x, y int, letter string) error {
	m := w.grid.Get(x, y)
	if m == nil {
		return fmt.Errorf("set letter (%d,%d): %w", x, y, ErrNotFound)
	}
	g, ok := m.(*model.Generator)
	if !ok {
		return fmt.Errorf("set letter (%d,%d) on %s: %w", x, y, m.Core().Type, errNotGenerator)
	}
	g.SetLetter(letter)
	return nil
}

func (w *World) GetBlock(x, y int) model.Machine { return w.grid.Get(x, y) }

func (w *World) IsEmpty(x, y int) bool { return w.grid.IsEmpty(x, y) }

// IsAreaEmpty reports whether the w×h rectangle at (x, y) is free.
func (w *World) IsAreaEmpty(x, y, width, height int) bool {
	return len(w.grid.BlocksAtArea(x, y, width, height)) == 0
}

func (w *World) GetBlocksAtArea(x, y, width, height int) []model.Machine {
	return w.grid.BlocksAtArea(x, y, width, height)
}

// Machines returns every placed machine in placement order.
func (w *World) Machines() []model.Machine { return w.grid.Machines() }
