package world

import (
	"errors"
	"testing"

	"proofline.ai/internal/sim/world/kernel/model"
)

func TestAddBlockOntoOccupiedTile(t *testing.T) {
	w := newTestWorld(t)
	mustPlace(t, w, "generator", 0, 0, 0)
	_, err := w.Place("conveyor", 2, 2, 0)
	if !errors.Is(err, ErrOccupied) {
		t.Fatalf("err=%v want ErrOccupied", err)
	}
	if _, err := w.Place("nope", 5, 5, 0); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err=%v want ErrUnknownType", err)
	}
	if !w.IsEmpty(3, 0) || w.IsEmpty(1, 1) {
		t.Fatalf("IsEmpty disagrees with the generator footprint")
	}
	if w.IsAreaEmpty(2, 2, 2, 2) || !w.IsAreaEmpty(3, 3, 2, 2) {
		t.Fatalf("IsAreaEmpty disagrees with the generator footprint")
	}
	if got := w.GetBlocksAtArea(-1, -1, 5, 5); len(got) != 1 {
		t.Fatalf("blocks in area=%d want 1", len(got))
	}
	mustInvariants(t, w)
}

func TestRemoveEmptyTileIsNoop(t *testing.T) {
	w := newTestWorld(t)
	if m := w.RemoveBlock(4, 4); m != nil {
		t.Fatalf("remove on empty tile returned %v", m)
	}
}

func TestRemoveBeltDropsItsItem(t *testing.T) {
	w := newTestWorld(t)
	b := mustPlace(t, w, "conveyor", 0, 0, 0).(*model.Belt)
	b.Restash(&model.Item{Formula: "K"}, 0.5)
	w.RemoveBlock(0, 0)
	loose := w.LooseItems()
	if len(loose) != 1 || loose[0].Formula != "K" {
		t.Fatalf("loose=%v want [K]", loose)
	}
	if loose[0].Pos != model.TileCenter(b.Origin) {
		t.Fatalf("loose pos=%v want tile center", loose[0].Pos)
	}
}

func TestLooseItemsAreCapped(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.MaxLooseItems = 2
	rec := &recordingAudit{}
	w.SetAuditLogger(rec)
	for _, f := range []string{"a", "b", "c"} {
		w.addLoose(&model.Item{Formula: f, Pos: [2]float64{-1, 70}})
	}
	loose := w.LooseItems()
	if len(loose) != 2 || loose[0].Formula != "b" || loose[1].Formula != "c" {
		t.Fatalf("loose=%v want [b c]", loose)
	}
	if len(rec.entries) != 1 || rec.entries[0].Action != "LOOSE_DROPPED" || rec.entries[0].Pos != [2]int{-1, 2} {
		t.Fatalf("audits=%+v want one LOOSE_DROPPED at [-1 2]", rec.entries)
	}
}

func TestRotateBelt(t *testing.T) {
	w := newTestWorld(t)
	b := mustPlace(t, w, "conveyor", 0, 0, 0).(*model.Belt)
	it := &model.Item{Formula: "K", Pos: [2]float64{2, 3}}
	b.Restash(it, 0.5)
	b.Item.Pos = [2]float64{2, 3}

	if err := w.RotateBlock(0, 0, 1); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if b.Rotation != 1 {
		t.Fatalf("rotation=%d want 1", b.Rotation)
	}
	expectBelt(t, w, 0, 0, set(west), set(east))
	if b.Item != it || it.Pos != model.TileCenter(b.Origin) || b.Progress != 0.5 {
		t.Fatalf("item=%v progress=%v want the same item at the tile center", b.Item, b.Progress)
	}
	if d := b.OutputPorts()[0].Dir; d != south {
		t.Fatalf("output faces %v want SOUTH", d)
	}
	mustInvariants(t, w)
}

func TestRotateGeneratorAwayFromBelt(t *testing.T) {
	w := newTestWorld(t)
	mustPlace(t, w, "conveyor", 0, 0, 0)
	mustPlace(t, w, "generator", -1, -3, 0)
	expectBelt(t, w, 0, 0, set(north), set(east))

	if err := w.RotateBlock(0, -2, 2); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	expectBelt(t, w, 0, 0, set(west), set(east))
	mustInvariants(t, w)

	if err := w.RotateBlock(0, -2, 2); err != nil {
		t.Fatalf("rotate back: %v", err)
	}
	expectBelt(t, w, 0, 0, set(north), set(east))
	mustInvariants(t, w)
}

func TestRotateIntoOccupiedTileRestores(t *testing.T) {
	w := newTestWorld(t)
	m2 := mustPlace(t, w, "machine2", 0, 0, 0)
	mustPlace(t, w, "conveyor", 0, 2, 0)

	err := w.RotateBlock(1, 1, 1)
	if !errors.Is(err, ErrOccupied) {
		t.Fatalf("err=%v want ErrOccupied", err)
	}
	if m2.Core().Rotation != 0 || w.GetBlock(2, 1) != m2 {
		t.Fatalf("machine2 not restored: rotation=%d at (2,1)=%v", m2.Core().Rotation, w.GetBlock(2, 1))
	}
	expectBelt(t, w, 0, 2, set(west), set(east))
	mustInvariants(t, w)

	if err := w.RotateBlock(9, 9, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestReaddInSavedOrderReproducesLinks(t *testing.T) {
	w := newTestWorld(t)
	buildMergeLayout(t, w)
	mustPlace(t, w, "conveyor", 3, 3, 0)
	mustPlace(t, w, "conveyor", 4, 3, 1)
	want := linkSignature(w)

	w2 := newTestWorld(t)
	for _, d := range w.ExportMachines() {
		mustPlace(t, w2, d.Type, d.Origin[0], d.Origin[1], d.Rotation)
	}
	if got := linkSignature(w2); !equalStrings(got, want) {
		t.Fatalf("links=%v want %v", got, want)
	}
	for _, m := range w.Machines() {
		b, ok := m.(*model.Belt)
		if !ok {
			continue
		}
		expectBelt(t, w2, b.Origin.X, b.Origin.Y, b.Inputs, b.Outputs)
	}
	mustInvariants(t, w2)
}
