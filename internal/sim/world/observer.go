package world

import (
	"context"
	"encoding/json"
	"errors"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/sim/world/kernel/model"
)

// ObserverJoinRequest registers a read-only GRID_STATE stream.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte

	EveryTicks int
	// Area is [x, y, w, h]; empty means the whole grid.
	Area  []int
	Links bool
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID  string
	EveryTicks int
	Area       []int
	Links      bool
}

type observerClient struct {
	id  string
	out chan []byte

	every int
	area  []int
	links bool

	// Audits since the last message sent to this observer.
	audits []observerproto.AuditEntry
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func normalizeArea(a []int) []int {
	if len(a) != 4 || a[2] <= 0 || a[3] <= 0 {
		return nil
	}
	return append([]int(nil), a...)
}

func (w *World) observerEvery(n int) int {
	if n <= 0 {
		return w.cfg.ObserverEveryTicks
	}
	if n > 1000 {
		return 1000
	}
	return n
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.out)
	}
	w.observers[req.SessionID] = &observerClient{
		id:    req.SessionID,
		out:   req.Out,
		every: w.observerEvery(req.EveryTicks),
		area:  normalizeArea(req.Area),
		links: req.Links,
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.every = w.observerEvery(req.EveryTicks)
	c.area = normalizeArea(req.Area)
	c.links = req.Links
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.out)
}

func (w *World) stepObservers(nowTick uint64) {
	if len(w.observers) == 0 {
		return
	}
	var digest string
	for _, c := range w.observers {
		c.audits = append(c.audits, w.obsAuditsThisTick...)
		if nowTick%uint64(c.every) != 0 {
			continue
		}
		if digest == "" {
			digest = w.stateDigest(nowTick)
		}
		msg := w.GridState(nowTick, c.area, c.links)
		msg.Digest = digest
		msg.Audits = c.audits
		b, err := json.Marshal(msg)
		if err != nil {
			w.log.Printf("warning: observer %s: %v", c.id, err)
			continue
		}
		sendLatest(c.out, b)
		c.audits = nil
	}
}

// GridState renders the grid for observers. area is [x, y, w, h] or empty.
// It must be called from the world loop goroutine; see RequestState.
func (w *World) GridState(nowTick uint64, area []int, links bool) observerproto.GridStateMsg {
	msg := observerproto.GridStateMsg{
		Type:            observerproto.TypeGridState,
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Machines:        []observerproto.MachineState{},
	}
	var machines []model.Machine
	if a := normalizeArea(area); a != nil {
		machines = w.grid.BlocksAtArea(a[0], a[1], a[2], a[3])
	} else {
		machines = w.grid.Machines()
	}
	for _, m := range machines {
		msg.Machines = append(msg.Machines, machineState(m))
		if !links {
			continue
		}
		for _, p := range m.Core().OutputPorts() {
			peer := w.ports.PeerOf(p)
			if peer == nil {
				continue
			}
			msg.Links = append(msg.Links, observerproto.LinkState{
				From: p.GridPos().ToArray(),
				To:   peer.GridPos().ToArray(),
				Dir:  p.Dir.String(),
			})
		}
	}
	for _, it := range w.loose {
		msg.Loose = append(msg.Loose, itemState(it))
	}
	return msg
}

func itemState(it *model.Item) observerproto.ItemState {
	return observerproto.ItemState{Formula: it.Formula, Theorem: it.Theorem, Pos: it.Pos}
}

func machineState(m model.Machine) observerproto.MachineState {
	b := m.Core()
	st := observerproto.MachineState{
		ID:       b.ID,
		Type:     b.Type,
		Kind:     string(b.Kind),
		Origin:   b.Origin.ToArray(),
		Size:     b.Size().ToArray(),
		Rotation: b.Rotation,
	}
	switch mm := m.(type) {
	case *model.Belt:
		st.Shape = mm.Shape().String()
		st.Inputs = mm.Inputs.Strings()
		st.Outputs = mm.Outputs.Strings()
	case *model.Generator:
		st.Letter = mm.Letter
	}
	for _, it := range heldItems(m) {
		st.Items = append(st.Items, itemState(it))
	}
	return st
}

type stateReq struct {
	Area  []int
	Links bool
	Resp  chan observerproto.GridStateMsg
}

// RequestState asks the world loop goroutine for a GRID_STATE view.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestState(ctx context.Context, area []int, links bool) (observerproto.GridStateMsg, error) {
	resp := make(chan observerproto.GridStateMsg, 1)
	select {
	case w.stateReq <- stateReq{Area: area, Links: links, Resp: resp}:
	case <-ctx.Done():
		return observerproto.GridStateMsg{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return observerproto.GridStateMsg{}, ctx.Err()
	}
}

func (w *World) handleStateReq(req stateReq) {
	tick := w.tick.Load()
	msg := w.GridState(tick, req.Area, req.Links)
	msg.Digest = w.stateDigest(tick)
	select {
	case req.Resp <- msg:
	default:
	}
}

type snapshotReq struct {
	Resp chan snapshotResp
}

type snapshotResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the world loop goroutine to enqueue a snapshot.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestSnapshot(ctx context.Context) (tick uint64, err error) {
	resp := make(chan snapshotResp, 1)
	select {
	case w.snapshotReq <- snapshotReq{Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Tick, errors.New(r.Err)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) handleSnapshotRequests(reqs []snapshotReq) {
	if len(reqs) == 0 {
		return
	}
	cur := w.tick.Load()
	snapTick := uint64(0)
	if cur > 0 {
		snapTick = cur - 1
	}

	errStr := ""
	if w.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else {
		snap := w.ExportSnapshot(snapTick)
		select {
		case w.snapshotSink <- snap:
		default:
			errStr = "snapshot sink backpressure"
		}
	}

	resp := snapshotResp{Tick: snapTick, Err: errStr}
	for _, r := range reqs {
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}
