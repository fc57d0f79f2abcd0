package world

import (
	"encoding/json"
	"testing"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/protocol"
)

func TestObserverReceivesGridState(t *testing.T) {
	w := newTestWorld(t)
	out := make(chan []byte, 4)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", Out: out, EveryTicks: 1, Links: true})

	w.StepOnce([]protocol.CommandMsg{
		cmd(protocol.OpPlace, "conveyor", 0, 0),
		cmd(protocol.OpPlace, "conveyor", 1, 0),
	})

	var msg observerproto.GridStateMsg
	select {
	case b := <-out:
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	default:
		t.Fatalf("no GRID_STATE sent")
	}
	if msg.Type != observerproto.TypeGridState || msg.Tick != 0 || msg.Digest == "" {
		t.Fatalf("header=%s tick=%d digest=%q", msg.Type, msg.Tick, msg.Digest)
	}
	if len(msg.Machines) != 2 || msg.Machines[0].Shape != "STRAIGHT/straight" {
		t.Fatalf("machines=%+v", msg.Machines)
	}
	if len(msg.Links) != 1 || msg.Links[0].From != [2]int{0, 0} || msg.Links[0].To != [2]int{1, 0} {
		t.Fatalf("links=%+v", msg.Links)
	}
	var places int
	for _, a := range msg.Audits {
		if a.Action == "PLACE" {
			places++
		}
	}
	if places != 2 {
		t.Fatalf("audits=%+v want two PLACE", msg.Audits)
	}

	w.handleObserverLeave("s1")
	if _, ok := <-out; ok {
		t.Fatalf("observer channel not closed on leave")
	}
}

func TestGridStateArea(t *testing.T) {
	w := newTestWorld(t)
	mustPlace(t, w, "conveyor", 0, 0, 0)
	mustPlace(t, w, "generator", 5, 5, 0)
	st := w.GridState(w.CurrentTick(), []int{4, 4, 2, 2}, false)
	if len(st.Machines) != 1 || st.Machines[0].Type != "generator" || st.Machines[0].Size != [2]int{3, 3} {
		t.Fatalf("machines=%+v", st.Machines)
	}
	if st.Links != nil {
		t.Fatalf("links=%v want none", st.Links)
	}
}

func TestObserverEveryTicksAccumulatesAudits(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.ObserverEveryTicks = 2
	out := make(chan []byte, 4)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", Out: out})

	w.StepOnce(nil) // tick 0 sends
	<-out
	w.StepOnce([]protocol.CommandMsg{cmd(protocol.OpPlace, "conveyor", 0, 0)}) // tick 1 holds
	select {
	case <-out:
		t.Fatalf("sent on an odd tick")
	default:
	}
	w.StepOnce(nil) // tick 2 sends
	var msg observerproto.GridStateMsg
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatal(err)
	}
	if len(msg.Audits) != 1 || msg.Audits[0].Action != "PLACE" {
		t.Fatalf("audits=%+v want the PLACE from tick 1", msg.Audits)
	}
}
