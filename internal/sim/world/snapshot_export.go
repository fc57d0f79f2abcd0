package world

import (
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/world/io/snapshotcodec"
	"proofline.ai/internal/sim/world/kernel/model"
)

// ExportMachines returns the persistable state of every machine in placement order.
func (w *World) ExportMachines() []model.Data {
	machines := w.grid.Machines()
	out := make([]model.Data, 0, len(machines))
	for _, m := range machines {
		out = append(out, m.ToData())
	}
	return out
}

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	data := w.ExportMachines()
	machines := make([]snapshot.MachineV1, 0, len(data))
	for _, d := range data {
		machines = append(machines, machineToV1(d))
	}
	var loose []snapshot.ItemV1
	for _, it := range w.loose {
		loose = append(loose, snapshot.ItemV1{Formula: it.Formula, Theorem: it.Theorem, Pos: it.Pos})
	}
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:  snapshot.Version,
			WorldID:  w.cfg.ID,
			RunID:    w.cfg.RunID,
			Tick:     nowTick,
			Machines: len(machines),
		},
		TickRate:   w.cfg.TickRateHz,
		TickDT:     w.cfg.TickDT,
		CatalogRev: w.catalogs.Machines.Digest,
		Machines:   machines,
		Loose:      loose,
	}
}

func itemToV1(d *model.ItemData) *snapshot.ItemV1 {
	if d == nil {
		return nil
	}
	return &snapshot.ItemV1{Formula: d.Formula, Theorem: d.Theorem, Pos: d.Pos}
}

func machineToV1(d model.Data) snapshot.MachineV1 {
	return snapshot.MachineV1{
		Type:     d.Type,
		Origin:   d.Origin,
		Rotation: d.Rotation,
		Inputs:   d.Inputs,
		Outputs:  d.Outputs,
		Item:     itemToV1(d.Item),
		Progress: d.Progress,
		Start:    d.Start,
		NextIn:   d.NextIn,
		NextOut:  d.NextOut,
		Letter:   d.Letter,
		Elapsed:  d.Elapsed,
		Rule:     d.Rule,
		Output:   itemToV1(d.Output),
		Timer:    d.Timer,
		Received: snapshotcodec.PositiveMap(d.Received),
		Slots:    snapshotcodec.ConvertMap(d.Slots, func(it model.ItemData) snapshot.ItemV1 { return *itemToV1(&it) }),
	}
}
