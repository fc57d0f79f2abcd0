package world

import (
	"fmt"
	"sort"
	"testing"

	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs/machines.yaml", "")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := New(WorldConfig{ID: "test", TickRateHz: 20}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func mustPlace(t *testing.T, w *World, typ string, x, y, rot int) model.Machine {
	t.Helper()
	m, err := w.Place(typ, x, y, rot)
	if err != nil {
		t.Fatalf("place %s at (%d,%d) rot %d: %v", typ, x, y, rot, err)
	}
	return m
}

func mustBelt(t *testing.T, w *World, x, y int) *model.Belt {
	t.Helper()
	b, ok := w.GetBlock(x, y).(*model.Belt)
	if !ok {
		t.Fatalf("no belt at (%d,%d): %T", x, y, w.GetBlock(x, y))
	}
	return b
}

func mustInvariants(t *testing.T, w *World) {
	t.Helper()
	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func set(ds ...dirs.Dir) dirs.Set { return dirs.SetOf(ds...) }

func expectBelt(t *testing.T, w *World, x, y int, in, out dirs.Set) {
	t.Helper()
	b := mustBelt(t, w, x, y)
	if b.Inputs != in || b.Outputs != out {
		t.Fatalf("belt (%d,%d) inputs=%v outputs=%v want %v %v", x, y, b.Inputs, b.Outputs, in, out)
	}
}

// linkSignature lists every link as "from->to" by tile and facing, sorted.
func linkSignature(w *World) []string {
	var out []string
	for _, m := range w.Machines() {
		for _, p := range m.Core().OutputPorts() {
			q := w.ports.PeerOf(p)
			if q == nil {
				continue
			}
			out = append(out, fmt.Sprintf("%v%v->%v%v", p.GridPos(), p.Dir, q.GridPos(), q.Dir))
		}
	}
	sort.Strings(out)
	return out
}

type recordingAudit struct {
	entries []AuditEntry
}

func (r *recordingAudit) WriteAudit(e AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAudit) actions() []string {
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
