package worldtest

import (
	"testing"

	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/catalogs"
	world "proofline.ai/internal/sim/world"
)

// Harness drives a world through its exported API only:
// - Place/Remove/Rotate/SetLetter issue commands via StepOnce()
// - StepFor() advances idle ticks and records digests
//
// It intentionally avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	Digests []string
	ticks   tickRecorder
}

type tickRecorder struct {
	last world.TickLogEntry
}

func (r *tickRecorder) WriteTick(e world.TickLogEntry) error {
	r.last = e
	return nil
}

func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs/machines.yaml", "../../../schemas/machines.schema.json")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	w, err := world.New(cfg, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed world instance.
// This is useful for snapshot round-trip tests where the snapshot is imported first.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, Cats: cats, W: w}
	w.SetTickLogger(&h.ticks)
	return h
}

// Step applies cmds in one tick and fails the test on the first rejected command.
func (h *Harness) Step(cmds ...protocol.CommandMsg) {
	h.T.Helper()
	for i := range cmds {
		cmds[i].Type = protocol.TypeCommand
		cmds[i].ProtocolVersion = protocol.Version
	}
	_, d := h.W.StepOnce(cmds)
	h.Digests = append(h.Digests, d)
	for _, rec := range h.ticks.last.Commands {
		if !rec.OK {
			h.T.Fatalf("%s at (%d,%d): %s %s", rec.Cmd.Op, rec.Cmd.X, rec.Cmd.Y, rec.Code, rec.Reason)
		}
	}
}

func (h *Harness) StepFor(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

func (h *Harness) Place(typ string, x, y, rot int) {
	h.T.Helper()
	h.Step(protocol.CommandMsg{Op: protocol.OpPlace, MachineType: typ, X: x, Y: y, Rotation: rot})
}

func (h *Harness) SetLetter(x, y int, letter string) {
	h.T.Helper()
	h.Step(protocol.CommandMsg{Op: protocol.OpSetLetter, X: x, Y: y, Letter: letter})
}

func (h *Harness) Remove(x, y int) {
	h.T.Helper()
	h.Step(protocol.CommandMsg{Op: protocol.OpRemove, X: x, Y: y})
}

func (h *Harness) CheckInvariants() {
	h.T.Helper()
	if err := h.W.CheckInvariants(); err != nil {
		h.T.Fatalf("invariants: %v", err)
	}
}

func (h *Harness) Rotate(x, y, turns int) {
	h.T.Helper()
	h.Step(protocol.CommandMsg{Op: protocol.OpRotate, X: x, Y: y, Turns: turns})
}

// BuildFeedLine places a generator whose output feeds a row of belts running
// east from (x, y) into a collector. The generator covers (x-1..x+1, y-3..y-1).
func (h *Harness) BuildFeedLine(x, y, belts int, letter string) {
	h.T.Helper()
	h.Place("generator", x-1, y-3, 0)
	h.SetLetter(x, y-2, letter)
	for i := 0; i < belts; i++ {
		h.Place("conveyor", x+i, y, 0)
	}
	h.Place("collector", x+belts, y, 0)
}
