package grid

import (
	"testing"

	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

var (
	belt = model.Spec{Type: "conveyor", Kind: model.KindConveyor, Size: dirs.Vec{X: 1, Y: 1}}
	gen  = model.Spec{Type: "generator", Kind: model.KindGenerator, Size: dirs.Vec{X: 3, Y: 3},
		Ports: []model.PortSpec{{Kind: model.PortOutput, Offset: dirs.Vec{X: 1, Y: 2}, Facing: dirs.South}}}
	wide = model.Spec{Type: "wide", Kind: model.KindCollector, Size: dirs.Vec{X: 3, Y: 1}}
)

func mustNew(t *testing.T, s model.Spec, rot int) model.Machine {
	t.Helper()
	m, err := model.New(s, rot)
	if err != nil {
		t.Fatalf("New(%s): %v", s.Type, err)
	}
	return m
}

func TestAddRejectsOverlap(t *testing.T) {
	g := New()
	if !g.Add(0, 0, mustNew(t, gen, 0)) {
		t.Fatalf("first add failed")
	}
	if g.Add(2, 2, mustNew(t, belt, 0)) {
		t.Fatalf("belt placed inside generator footprint")
	}
	if g.Add(-2, -2, mustNew(t, gen, 0)) {
		t.Fatalf("overlapping generator accepted")
	}
	if !g.Add(3, 0, mustNew(t, belt, 0)) {
		t.Fatalf("adjacent belt rejected")
	}
	if g.Len() != 2 {
		t.Fatalf("Len=%d want 2", g.Len())
	}
	if err := g.CheckPartition(); err != nil {
		t.Fatalf("CheckPartition: %v", err)
	}
}

func TestGetCoversFootprint(t *testing.T) {
	g := New()
	m := mustNew(t, gen, 0)
	g.Add(-1, -1, m)
	for y := -1; y <= 1; y++ {
		for x := -1; x <= 1; x++ {
			if g.Get(x, y) != m || g.IsEmpty(x, y) {
				t.Fatalf("tile (%d,%d) not covered", x, y)
			}
		}
	}
	if !g.IsEmpty(2, 0) {
		t.Fatalf("(2,0) should be empty")
	}
}

func TestRemoveFromAnyTile(t *testing.T) {
	g := New()
	m := mustNew(t, gen, 0)
	g.Add(0, 0, m)
	if got := g.Remove(2, 1); got != m {
		t.Fatalf("Remove returned %v", got)
	}
	if m.Core().Placed() {
		t.Fatalf("removed machine still placed")
	}
	if g.Len() != 0 || !g.IsEmpty(0, 0) {
		t.Fatalf("index not empty after remove")
	}
	if g.Remove(0, 0) != nil {
		t.Fatalf("remove on empty tile returned a machine")
	}
	if err := g.CheckPartition(); err != nil {
		t.Fatalf("CheckPartition: %v", err)
	}
}

func TestRotatedFootprint(t *testing.T) {
	g := New()
	m := mustNew(t, wide, 1)
	g.Add(0, 0, m)
	if g.Get(0, 2) != m || !g.IsEmpty(1, 0) {
		t.Fatalf("rotated wide machine should cover a 1x3 column")
	}
}

func TestBlocksAtAreaDistinctInPlacementOrder(t *testing.T) {
	g := New()
	a := mustNew(t, gen, 0)
	b := mustNew(t, belt, 0)
	c := mustNew(t, belt, 0)
	g.Add(0, 0, a)
	g.Add(3, 1, b)
	g.Add(10, 10, c)
	got := g.BlocksAtArea(1, 0, 3, 3)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("BlocksAtArea=%v", got)
	}
	if len(g.BlocksAtArea(5, 5, 2, 2)) != 0 {
		t.Fatalf("expected empty area")
	}
}

func TestNeighbors(t *testing.T) {
	g := New()
	center := mustNew(t, belt, 0)
	east := mustNew(t, belt, 0)
	north := mustNew(t, gen, 0)
	g.Add(0, 0, center)
	g.Add(1, 0, east)
	g.Add(-1, -3, north)
	n := g.Neighbors(dirs.Vec{})
	if n[dirs.East] != east || n[dirs.North] != north || n[dirs.West] != nil || n[dirs.South] != nil {
		t.Fatalf("Neighbors=%v", n)
	}
	around := g.NeighborsOf(north)
	if len(around) != 2 || around[0] != center || around[1] != east {
		t.Fatalf("NeighborsOf(generator)=%v", around)
	}
	sides := g.NeighborsBySide(north)
	if len(sides[dirs.South]) != 2 || sides[dirs.South][0] != center || sides[dirs.South][1] != east {
		t.Fatalf("NeighborsBySide(generator)[SOUTH]=%v", sides[dirs.South])
	}
	for _, d := range []dirs.Dir{dirs.East, dirs.West, dirs.North} {
		if len(sides[d]) != 0 {
			t.Fatalf("NeighborsBySide(generator)[%v]=%v want none", d, sides[d])
		}
	}
	g.Remove(0, 0)
	if got := g.NeighborsOf(center); len(got) != 2 {
		t.Fatalf("NeighborsOf(removed)=%v want 2 machines", got)
	}
}

func TestMachinesKeepsIDAcrossReAdd(t *testing.T) {
	g := New()
	a := mustNew(t, belt, 0)
	b := mustNew(t, belt, 0)
	g.Add(0, 0, a)
	g.Add(1, 0, b)
	g.Remove(0, 0)
	g.Add(0, 0, a)
	ms := g.Machines()
	if len(ms) != 2 || ms[0] != a || ms[1] != b {
		t.Fatalf("Machines order=%v", ms)
	}
}

func TestNeighborsBySideOfWideMachine(t *testing.T) {
	g := New()
	w := mustNew(t, wide, 0)
	g.Add(0, 0, w)
	above := []model.Machine{mustNew(t, belt, 0), mustNew(t, belt, 0)}
	g.Add(0, -1, above[0])
	g.Add(2, -1, above[1])
	left := mustNew(t, belt, 0)
	g.Add(-1, 0, left)
	below := mustNew(t, gen, 0)
	g.Add(1, 1, below)

	got := g.NeighborsBySide(w)
	want := map[dirs.Dir][]model.Machine{
		dirs.North: above,
		dirs.West:  {left},
		dirs.South: {below},
		dirs.East:  nil,
	}
	for d, ms := range want {
		if len(got[d]) != len(ms) {
			t.Fatalf("side %v = %v want %v", d, got[d], ms)
		}
		for i := range ms {
			if got[d][i] != ms[i] {
				t.Fatalf("side %v = %v want %v", d, got[d], ms)
			}
		}
	}
	if all := g.NeighborsOf(w); len(all) != 4 {
		t.Fatalf("NeighborsOf(wide)=%v want 4 machines", all)
	}
}
