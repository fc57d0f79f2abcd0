package world

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"proofline.ai/internal/sim/world/io/digestcodec"
	"proofline.ai/internal/sim/world/kernel/model"
)

// stateDigest hashes everything that affects future ticks. Machines are keyed
// by their position in placement order rather than by ID, so a restored or
// replayed world hashes the same as the one it came from.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestcodec.WriteU64(h, &tmp, nowTick)

	machines := w.grid.Machines()
	ordinal := make(map[model.Machine]int, len(machines))
	for i, m := range machines {
		ordinal[m] = i
	}
	digestcodec.WriteU64(h, &tmp, uint64(len(machines)))
	for _, m := range machines {
		w.digestMachine(h, &tmp, m, ordinal)
	}

	digestcodec.WriteU64(h, &tmp, uint64(len(w.loose)))
	for _, it := range w.loose {
		digestItem(h, &tmp, it)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestMachine(h io.Writer, tmp *[8]byte, m model.Machine, ordinal map[model.Machine]int) {
	b := m.Core()
	digestcodec.WriteString(h, tmp, b.Type)
	digestcodec.WriteI64(h, tmp, int64(b.Origin.X))
	digestcodec.WriteI64(h, tmp, int64(b.Origin.Y))
	digestcodec.WriteI64(h, tmp, int64(b.Rotation))

	digestcodec.WriteU64(h, tmp, uint64(len(b.Ports)))
	for _, p := range b.Ports {
		digestcodec.WriteU64(h, tmp, uint64(p.Kind))
		digestcodec.WriteI64(h, tmp, int64(p.Rel.X))
		digestcodec.WriteI64(h, tmp, int64(p.Rel.Y))
		digestcodec.WriteU64(h, tmp, uint64(p.Dir))
		peer := w.ports.PeerOf(p)
		if peer == nil {
			digestcodec.WriteI64(h, tmp, -1)
			continue
		}
		digestcodec.WriteI64(h, tmp, int64(ordinal[peer.Owner()]))
		digestcodec.WriteU64(h, tmp, uint64(peer.Owner().Core().KindIndex(peer)))
	}

	switch mm := m.(type) {
	case *model.Belt:
		digestcodec.WriteU64(h, tmp, uint64(mm.Inputs))
		digestcodec.WriteU64(h, tmp, uint64(mm.Outputs))
		digestItem(h, tmp, mm.Item)
		digestcodec.WriteF64(h, tmp, mm.Progress)
		digestcodec.WriteI64(h, tmp, int64(mm.In.Next))
		digestcodec.WriteI64(h, tmp, int64(mm.Out.Next))
	case *model.Generator:
		digestcodec.WriteString(h, tmp, mm.Letter)
		digestcodec.WriteF64(h, tmp, mm.Elapsed)
	case *model.LogicMachine:
		digestcodec.WriteString(h, tmp, mm.Rule.Name())
		// Slot positions only animate the slide-in and are not persisted.
		for _, it := range mm.Slots {
			digestItemContent(h, tmp, it)
		}
		digestItemContent(h, tmp, mm.Output)
		digestcodec.WriteF64(h, tmp, mm.Timer)
	case *model.Collector:
		digestcodec.WriteSortedNonZeroIntMap(h, tmp, mm.Received)
	}
}

func digestItem(h io.Writer, tmp *[8]byte, it *model.Item) {
	digestItemContent(h, tmp, it)
	if it != nil {
		digestcodec.WriteF64(h, tmp, it.Pos[0])
		digestcodec.WriteF64(h, tmp, it.Pos[1])
	}
}

func digestItemContent(h io.Writer, tmp *[8]byte, it *model.Item) {
	if it == nil {
		digestcodec.WriteBool(h, false)
		return
	}
	digestcodec.WriteBool(h, true)
	digestcodec.WriteString(h, tmp, it.Formula)
	digestcodec.WriteBool(h, it.Theorem)
}

// StateDigest returns the digest of the current state at the current tick.
func (w *World) StateDigest() string { return w.stateDigest(w.tick.Load()) }
