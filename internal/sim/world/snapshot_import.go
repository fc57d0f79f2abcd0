package world

import (
	"fmt"

	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/world/io/snapshotcodec"
	"proofline.ai/internal/sim/world/kernel/grid"
	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/kernel/ports"
)

// RestoreMachines replaces the grid with machines rebuilt from data, in the
// given order. Belt shapes are taken as saved; no neighbor reacts to a
// restored machine. Links are re-derived afterwards with ConnectAll.
func (w *World) RestoreMachines(data []model.Data) error {
	built := make([]model.Machine, 0, len(data))
	for i, d := range data {
		m, err := w.catalogs.FromData(d)
		if err != nil {
			return fmt.Errorf("machine %d (%s at %v): %w", i, d.Type, d.Origin, err)
		}
		built = append(built, m)
	}

	g := grid.New()
	t := ports.NewTable()
	for i, m := range built {
		o := data[i].Origin
		if !g.Add(o[0], o[1], m) {
			return fmt.Errorf("machine %d (%s at %v): %w", i, m.Core().Type, o, ErrOccupied)
		}
		t.RegisterAll(m)
	}
	w.grid, w.ports = g, t
	w.ConnectAll()
	return nil
}

// ImportSnapshot restores a world from a snapshot. The world's tick is set
// to the tick after the snapshot.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if rev := w.catalogs.Machines.Digest; snap.CatalogRev != "" && rev != "" && snap.CatalogRev != rev {
		w.log.Printf("warning: snapshot catalog %s differs from loaded catalog %s", snap.CatalogRev, rev)
	}
	data := make([]model.Data, 0, len(snap.Machines))
	for _, m := range snap.Machines {
		data = append(data, machineFromV1(m))
	}
	if err := w.RestoreMachines(data); err != nil {
		return err
	}
	w.loose = w.loose[:0]
	for _, it := range snap.Loose {
		w.addLoose(&model.Item{Formula: it.Formula, Theorem: it.Theorem, Pos: it.Pos})
	}
	if snap.Header.WorldID != "" {
		w.cfg.ID = snap.Header.WorldID
	}
	if snap.TickRate > 0 {
		w.cfg.TickRateHz = snap.TickRate
	}
	if snap.TickDT > 0 {
		w.cfg.TickDT = snap.TickDT
	}
	w.tick.Store(snap.Header.Tick + 1)
	return nil
}

func itemFromV1(it *snapshot.ItemV1) *model.ItemData {
	if it == nil {
		return nil
	}
	return &model.ItemData{Formula: it.Formula, Theorem: it.Theorem, Pos: it.Pos}
}

func machineFromV1(m snapshot.MachineV1) model.Data {
	return model.Data{
		Type:     m.Type,
		Origin:   m.Origin,
		Rotation: m.Rotation,
		Inputs:   m.Inputs,
		Outputs:  m.Outputs,
		Item:     itemFromV1(m.Item),
		Progress: m.Progress,
		Start:    m.Start,
		NextIn:   m.NextIn,
		NextOut:  m.NextOut,
		Letter:   m.Letter,
		Elapsed:  m.Elapsed,
		Rule:     m.Rule,
		Output:   itemFromV1(m.Output),
		Timer:    m.Timer,
		Received: snapshotcodec.PositiveMap(m.Received),
		Slots:    snapshotcodec.ConvertMap(m.Slots, func(it snapshot.ItemV1) model.ItemData { return *itemFromV1(&it) }),
	}
}
