package worldtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/protocol"
	world "proofline.ai/internal/sim/world"
)

func TestRunLoopAppliesSubmittedCommands(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "loop", TickRateHz: 100}, LoadCatalogs(t))
	if err != nil {
		t.Fatal(err)
	}
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	callCtx, callCancel := context.WithTimeout(ctx, 5*time.Second)
	defer callCancel()

	res, err := w.Submit(callCtx, protocol.CommandMsg{
		Type:            protocol.TypeCommand,
		ProtocolVersion: protocol.Version,
		Op:              protocol.OpPlace,
		MachineType:     "conveyor",
	})
	if err != nil || !res.OK {
		t.Fatalf("submit: res=%+v err=%v", res, err)
	}
	res, err = w.Submit(callCtx, protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor"})
	if err != nil || res.OK || res.Code != protocol.ErrOccupied {
		t.Fatalf("second place: res=%+v err=%v", res, err)
	}

	st, err := w.RequestState(callCtx, nil, true)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(st.Machines) != 1 || st.Digest == "" {
		t.Fatalf("state=%+v", st)
	}

	tick, err := w.RequestSnapshot(callCtx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	snap := <-sink
	if snap.Header.Tick != tick || len(snap.Machines) != 1 {
		t.Fatalf("snapshot tick=%d machines=%d want tick %d", snap.Header.Tick, len(snap.Machines), tick)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestStopEndsRunAndRejectsSubmit(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "loop", TickRateHz: 100}, LoadCatalogs(t))
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if _, err := w.Submit(context.Background(), protocol.CommandMsg{Op: protocol.OpRemove}); !errors.Is(err, world.ErrStopped) {
		t.Fatalf("submit after stop: %v", err)
	}
}
