package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/world"
)

func startWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs/machines.yaml", "../../../schemas/machines.schema.json")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "obs-test", TickRateHz: 100}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	t.Cleanup(cancel)
	return w
}

func TestBootstrapHandler(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).BootstrapHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.WorldID != "obs-test" || boot.WorldParams.TickRateHz != 100 || boot.CatalogDigest == "" {
		t.Fatalf("bootstrap = %+v", boot)
	}
	found := false
	for _, typ := range boot.MachineTypes {
		found = found || typ == "conveyor"
	}
	if !found {
		t.Fatalf("machine types %v missing conveyor", boot.MachineTypes)
	}
}

func TestWSHandler_StreamsGridState(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		EveryTicks:      1,
		Links:           true,
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := w.Submit(ctx, protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor", X: 1, Y: 1})
	if err != nil || !res.OK {
		t.Fatalf("place: %+v err=%v", res, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		var msg observerproto.GridStateMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != observerproto.TypeGridState {
			t.Fatalf("type=%q", msg.Type)
		}
		if len(msg.Machines) == 1 && msg.Machines[0].Origin == [2]int{1, 1} {
			if msg.Digest == "" {
				t.Fatalf("grid state without digest")
			}
			return
		}
	}
	t.Fatalf("never saw the placed conveyor")
}

func TestWSHandler_RejectsNonSubscribe(t *testing.T) {
	w := startWorld(t)
	srv := httptest.NewServer(NewServer(w, nil).WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v, want policy violation close", err)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for _, tc := range []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:5000", true},
		{"[::1]:80", true},
		{"10.0.0.4:80", false},
		{"nonsense", false},
	} {
		if got := IsLoopbackRemote(tc.addr); got != tc.want {
			t.Errorf("IsLoopbackRemote(%q)=%v want %v", tc.addr, got, tc.want)
		}
	}
}
