package world

import (
	"context"
	"errors"
	"time"

	"proofline.ai/internal/protocol"
)

var ErrStopped = errors.New("world stopped")

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingCommands []CommandRequest
	var pendingSnapshots []snapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.stateReq:
			w.handleStateReq(req)
		case req := <-w.snapshotReq:
			pendingSnapshots = append(pendingSnapshots, req)
		case req := <-w.inbox:
			pendingCommands = append(pendingCommands, req)
		case <-ticker.C:
			w.step(pendingCommands)
			w.handleSnapshotRequests(pendingSnapshots)
			pendingCommands = pendingCommands[:0]
			pendingSnapshots = pendingSnapshots[:0]
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (w *World) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stop)
	}
}

// Submit queues cmd and waits for its result. Commands are applied in
// receive order at the next tick boundary.
func (w *World) Submit(ctx context.Context, cmd protocol.CommandMsg) (protocol.ResultMsg, error) {
	if w.stopped.Load() {
		return protocol.ResultMsg{}, ErrStopped
	}
	resp := make(chan protocol.ResultMsg, 1)
	select {
	case w.inbox <- CommandRequest{Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return protocol.ResultMsg{}, ctx.Err()
	default:
		return protocol.ErrorResult(w.tick.Load(), protocol.ErrWorldBusy, "command inbox full"), nil
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return protocol.ResultMsg{}, ctx.Err()
	}
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(cmds []protocol.CommandMsg) (tick uint64, digest string) {
	reqs := make([]CommandRequest, 0, len(cmds))
	for _, c := range cmds {
		reqs = append(reqs, CommandRequest{Cmd: c})
	}
	tick = w.tick.Load()
	digest = w.step(reqs)
	return tick, digest
}

func (w *World) step(cmds []CommandRequest) string {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	// Reset per-tick observer audit buffer (filled by auditEvent).
	w.obsAuditsThisTick = w.obsAuditsThisTick[:0]

	// Topology changes happen here and never inside the transfer pass.
	recorded := make([]RecordedCommand, 0, len(cmds))
	for _, req := range cmds {
		res, rec := w.applyCommand(req.Cmd, nowTick)
		recorded = append(recorded, rec)
		if req.Resp != nil {
			select {
			case req.Resp <- res:
			default:
			}
		}
	}

	w.Update(w.cfg.TickDT)

	w.stepObservers(nowTick)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:     nowTick,
			Commands: recorded,
			Moved:    int(w.counters.transfers),
			Machines: w.grid.Len(),
			Digest:   digest,
		})
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishMetrics(nextTick, stepMS)
	return digest
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
