package world

import (
	"testing"

	"proofline.ai/internal/sim/world/kernel/model"
)

// buildMergeLayout feeds one belt at the origin from three saturated belts
// (west, north, south), each fed by its own generator, and drains it into a
// collector on the east.
func buildMergeLayout(t *testing.T, w *World) *model.Collector {
	t.Helper()
	col := mustPlace(t, w, "collector", 1, 0, 0).(*model.Collector)
	mustPlace(t, w, "conveyor", 0, 0, 0)
	mustPlace(t, w, "conveyor", -1, 0, 0)
	mustPlace(t, w, "conveyor", 0, -1, 1)
	mustPlace(t, w, "conveyor", 0, 1, 3)
	mustPlace(t, w, "generator", -1, -4, 0)
	mustPlace(t, w, "generator", -1, 2, 2)
	mustPlace(t, w, "generator", -4, -1, 3)
	for _, g := range []struct {
		x, y   int
		letter string
	}{{0, -3, "A"}, {0, 3, "B"}, {-3, 0, "C"}} {
		if err := w.SetLetter(g.x, g.y, g.letter); err != nil {
			t.Fatalf("set letter %s: %v", g.letter, err)
		}
	}
	return col
}

func TestMergeLayoutShape(t *testing.T) {
	w := newTestWorld(t)
	buildMergeLayout(t, w)
	expectBelt(t, w, 0, 0, set(west, north, south), set(east))
	expectBelt(t, w, -1, 0, set(west), set(east))
	expectBelt(t, w, 0, -1, set(west), set(east))
	expectBelt(t, w, 0, 1, set(west), set(east))
	// 3 generators -> feeders, 3 feeders -> merge, merge -> collector.
	if got := linkSignature(w); len(got) != 7 {
		t.Fatalf("links=%v want 7", got)
	}
	mustInvariants(t, w)
}

func TestRoundRobinFairness(t *testing.T) {
	w := newTestWorld(t)
	col := buildMergeLayout(t, w)
	for i := 0; i < 3000; i++ {
		w.StepOnce(nil)
	}
	total := col.Total()
	if total < 90 {
		t.Fatalf("collected %d items, want at least 90 (%v)", total, col.Received)
	}
	for _, letter := range []string{"A", "B", "C"} {
		if got := col.Received[letter]; got < total/3-1 {
			t.Fatalf("%s delivered %d of %d, want >= %d (%v)", letter, got, total, total/3-1, col.Received)
		}
	}
	if m := w.Metrics(); m.AnomaliesTotal != 0 || m.BackpressureTotal == 0 {
		t.Fatalf("metrics anomalies=%d backpressure=%d", m.AnomaliesTotal, m.BackpressureTotal)
	}
	mustInvariants(t, w)
}

func countHeld(w *World) int {
	n := 0
	for _, m := range w.Machines() {
		n += len(heldItems(m))
	}
	return n
}

func TestBackpressureConservesItems(t *testing.T) {
	w := newTestWorld(t)
	a := mustPlace(t, w, "conveyor", 0, 0, 0).(*model.Belt)
	b := mustPlace(t, w, "conveyor", 1, 0, 0).(*model.Belt)
	a.Restash(&model.Item{Formula: "X"}, 1)
	b.Restash(&model.Item{Formula: "Y"}, 1)

	for i := 0; i < 50; i++ {
		w.Update(0.05)
		if got := countHeld(w); got != 2 {
			t.Fatalf("tick %d: %d items held, want 2", i, got)
		}
	}
	if a.Item == nil || a.Item.Formula != "X" || b.Item == nil || b.Item.Formula != "Y" {
		t.Fatalf("items moved while blocked: a=%v b=%v", a.Item, b.Item)
	}
	if w.totals.backpressure == 0 {
		t.Fatalf("expected backpressure while the downstream belt is full")
	}

	col := mustPlace(t, w, "collector", 2, 0, 0).(*model.Collector)
	for i := 0; i < 100; i++ {
		w.Update(0.05)
		if got := countHeld(w) + col.Total(); got != 2 {
			t.Fatalf("tick %d: %d items in the system, want 2", i, got)
		}
	}
	if col.Received["X"] != 1 || col.Received["Y"] != 1 {
		t.Fatalf("received=%v want X:1 Y:1", col.Received)
	}
	if len(w.LooseItems()) != 0 || w.totals.anomalies != 0 {
		t.Fatalf("loose=%d anomalies=%d", len(w.LooseItems()), w.totals.anomalies)
	}
}

func TestGeneratorRetriesAfterBackpressure(t *testing.T) {
	w := newTestWorld(t)
	mustPlace(t, w, "generator", -1, -3, 0)
	belt := mustPlace(t, w, "conveyor", 0, 0, 0).(*model.Belt)
	if err := w.SetLetter(0, -2, "P"); err != nil {
		t.Fatal(err)
	}
	belt.Restash(&model.Item{Formula: "Q"}, 1)
	gen := w.GetBlock(0, -2).(*model.Generator)
	gen.Elapsed = gen.Interval

	w.Update(0)
	if belt.Item.Formula != "Q" {
		t.Fatalf("belt item=%q want Q", belt.Item.Formula)
	}
	if want := gen.Interval - 0.1; gen.Elapsed != want {
		t.Fatalf("elapsed=%v want %v", gen.Elapsed, want)
	}
}

func TestRelayPassesItemsThrough(t *testing.T) {
	w := newTestWorld(t)
	in := mustPlace(t, w, "conveyor", 0, 0, 0).(*model.Belt)
	mustPlace(t, w, "relay", 1, 0, 0)
	col := mustPlace(t, w, "collector", 3, 0, 0).(*model.Collector)
	mustInvariants(t, w)
	in.Restash(&model.Item{Formula: "R", Theorem: true}, 1)
	for i := 0; i < 60; i++ {
		w.Update(0.05)
	}
	if col.Received["R"] != 1 {
		t.Fatalf("received=%v want R:1", col.Received)
	}
}

func TestAnomalyBecomesLooseItem(t *testing.T) {
	w := newTestWorld(t)
	rec := &recordingAudit{}
	w.SetAuditLogger(rec)
	b := mustPlace(t, w, "conveyor", 0, 0, 0).(*model.Belt)

	w.anomaly(b, b.OutputPorts()[0], &model.Item{Formula: "Z", Pos: [2]float64{16, 16}})

	loose := w.LooseItems()
	if len(loose) != 1 || loose[0].Formula != "Z" {
		t.Fatalf("loose=%v want [Z]", loose)
	}
	if w.counters.anomalies != 1 {
		t.Fatalf("anomalies=%d want 1", w.counters.anomalies)
	}
	if got := rec.actions(); len(got) != 1 || got[0] != "ITEM_ANOMALY" {
		t.Fatalf("audits=%v want [ITEM_ANOMALY]", got)
	}
}
