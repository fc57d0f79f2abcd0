// Package grid is the spatial index of placed machines.
package grid

import (
	"fmt"
	"sort"

	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

// Index maps tiles to machines. Each machine is keyed once by its origin
// and once per covered tile.
type Index struct {
	blocks   map[dirs.Vec]model.Machine
	occupied map[dirs.Vec]model.Machine
	nextID   uint64
}

func New() *Index {
	return &Index{
		blocks:   map[dirs.Vec]model.Machine{},
		occupied: map[dirs.Vec]model.Machine{},
	}
}

// Fits reports whether m's footprint at origin is free of other machines.
func (g *Index) Fits(origin dirs.Vec, m model.Machine) bool {
	b := m.Core()
	sz := b.Size()
	for y := 0; y < sz.Y; y++ {
		for x := 0; x < sz.X; x++ {
			if o, ok := g.occupied[origin.Add(dirs.Vec{X: x, Y: y})]; ok && o != m {
				return false
			}
		}
	}
	return true
}

// Add places m with its origin at (x, y). It returns false, leaving the index
// untouched, when any tile of the footprint is taken.
func (g *Index) Add(x, y int, m model.Machine) bool {
	origin := dirs.Vec{X: x, Y: y}
	if !g.Fits(origin, m) {
		return false
	}
	b := m.Core()
	b.Place(origin)
	if b.ID == 0 {
		g.nextID++
		b.ID = g.nextID
	} else if b.ID > g.nextID {
		g.nextID = b.ID
	}
	g.blocks[origin] = m
	for _, p := range b.Footprint() {
		g.occupied[p] = m
	}
	return true
}

// Remove unindexes the machine covering (x, y) and returns it, or nil.
func (g *Index) Remove(x, y int) model.Machine {
	m, ok := g.occupied[dirs.Vec{X: x, Y: y}]
	if !ok {
		return nil
	}
	b := m.Core()
	delete(g.blocks, b.Origin)
	for _, p := range b.Footprint() {
		if g.occupied[p] == m {
			delete(g.occupied, p)
		}
	}
	b.Unplace()
	return m
}

// Get returns the machine covering (x, y).
func (g *Index) Get(x, y int) model.Machine {
	return g.occupied[dirs.Vec{X: x, Y: y}]
}

func (g *Index) At(p dirs.Vec) model.Machine { return g.occupied[p] }

func (g *Index) IsEmpty(x, y int) bool {
	_, ok := g.occupied[dirs.Vec{X: x, Y: y}]
	return !ok
}

// BlocksAtArea returns every distinct machine overlapping the w×h rectangle
// at (x, y), ordered by placement.
func (g *Index) BlocksAtArea(x, y, w, h int) []model.Machine {
	seen := map[model.Machine]bool{}
	var out []model.Machine
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			m, ok := g.occupied[dirs.Vec{X: x + dx, Y: y + dy}]
			if !ok || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sortByID(out)
	return out
}

// Neighbors returns the machines on the four tiles adjacent to p, indexed by
// world direction. The machine covering p itself is never reported.
func (g *Index) Neighbors(p dirs.Vec) [4]model.Machine {
	var out [4]model.Machine
	self := g.occupied[p]
	for _, d := range dirs.All {
		m, ok := g.occupied[p.Step(d)]
		if ok && m != self {
			out[d] = m
		}
	}
	return out
}

// NeighborsBySide returns the distinct machines touching each side of m's
// footprint, indexed by world direction and ordered by placement. It works
// for machines that are no longer indexed.
func (g *Index) NeighborsBySide(m model.Machine) [4][]model.Machine {
	b := m.Core()
	var out [4][]model.Machine
	for _, d := range dirs.All {
		seen := map[model.Machine]bool{m: true}
		for _, p := range b.Footprint() {
			q := p.Step(d)
			if b.Contains(q) {
				continue
			}
			n, ok := g.occupied[q]
			if !ok || seen[n] {
				continue
			}
			seen[n] = true
			out[d] = append(out[d], n)
		}
		sortByID(out[d])
	}
	return out
}

// NeighborsOf flattens NeighborsBySide into one placement-ordered list.
func (g *Index) NeighborsOf(m model.Machine) []model.Machine {
	seen := map[model.Machine]bool{}
	var out []model.Machine
	for _, side := range g.NeighborsBySide(m) {
		for _, n := range side {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sortByID(out)
	return out
}

// Machines returns every indexed machine in placement order.
func (g *Index) Machines() []model.Machine {
	out := make([]model.Machine, 0, len(g.blocks))
	for _, m := range g.blocks {
		out = append(out, m)
	}
	sortByID(out)
	return out
}

func (g *Index) Len() int { return len(g.blocks) }

// CheckPartition verifies that the origin keys and the tile keys describe the
// same set of machines and that every footprint tile maps to its owner.
func (g *Index) CheckPartition() error {
	tiles := 0
	for origin, m := range g.blocks {
		b := m.Core()
		if b.Origin != origin {
			return fmt.Errorf("machine %d indexed at %v but has origin %v", b.ID, origin, b.Origin)
		}
		if !b.Placed() {
			return fmt.Errorf("machine %d at %v is indexed but not placed", b.ID, origin)
		}
		for _, p := range b.Footprint() {
			if g.occupied[p] != m {
				return fmt.Errorf("tile %v of machine %d is owned by another entry", p, b.ID)
			}
			tiles++
		}
	}
	if tiles != len(g.occupied) {
		return fmt.Errorf("occupied tiles=%d but footprints cover %d", len(g.occupied), tiles)
	}
	return nil
}

func sortByID(ms []model.Machine) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Core().ID < ms[j].Core().ID })
}
