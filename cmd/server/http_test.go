package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/world"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not locate go.mod from %s", dir)
		}
		dir = parent
	}
}

type testServer struct {
	*httptest.Server
	World    *world.World
	WorldDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := findRepoRoot(t)
	cats, err := catalogs.Load(filepath.Join(root, "configs", "machines.yaml"), filepath.Join(root, "schemas", "machines.schema.json"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "srv-test", TickRateHz: 100}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	worldDir := t.TempDir()
	logger := log.New(io.Discard, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go snapshotWriter{worldDir: worldDir, log: logger}.run(ctx, snapCh)
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(newMux(httpDeps{World: w, WorldID: "srv-test", Log: logger, EnableAdmin: true}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &testServer{Server: srv, World: w, WorldDir: worldDir}
}

func (s *testServer) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(s.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func TestAdminCommands(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		name   string
		cmd    protocol.CommandMsg
		status int
		code   string
	}{
		{"place", protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor", X: 0, Y: 0}, http.StatusOK, ""},
		{"occupied", protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor", X: 0, Y: 0}, http.StatusConflict, protocol.ErrOccupied},
		{"unknown type", protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "teleporter", X: 5, Y: 5}, http.StatusBadRequest, protocol.ErrUnknownType},
		{"remove missing", protocol.CommandMsg{Op: protocol.OpRemove, X: 9, Y: 9}, http.StatusNotFound, protocol.ErrNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := s.post(t, "/admin/v1/commands", tc.cmd)
			if resp.StatusCode != tc.status {
				t.Fatalf("status=%d want %d body=%s", resp.StatusCode, tc.status, body)
			}
			var res protocol.ResultMsg
			if err := json.Unmarshal(body, &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Code != tc.code {
				t.Fatalf("code=%q want %q", res.Code, tc.code)
			}
		})
	}
}

func TestAdminGridAndMetrics(t *testing.T) {
	s := newTestServer(t)
	for _, x := range []int{0, 1} {
		if resp, body := s.post(t, "/admin/v1/commands", protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor", X: x, Y: 0}); resp.StatusCode != http.StatusOK {
			t.Fatalf("place: %d %s", resp.StatusCode, body)
		}
	}

	resp, err := http.Get(s.URL + "/admin/v1/grid?links=1")
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	var st observerproto.GridStateMsg
	err = json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	var origins [][2]int
	for _, m := range st.Machines {
		origins = append(origins, m.Origin)
	}
	if diff := cmp.Diff([][2]int{{0, 0}, {1, 0}}, origins); diff != "" {
		t.Fatalf("machines (-want +got):\n%s", diff)
	}
	if len(st.Links) != 1 || st.Links[0].From != [2]int{0, 0} || st.Links[0].To != [2]int{1, 0} {
		t.Fatalf("links = %+v", st.Links)
	}

	if resp, _ := http.Get(s.URL + "/admin/v1/grid?area=1,2"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad area status=%d", resp.StatusCode)
	}

	// Metrics are published after each tick.
	deadline := time.Now().Add(5 * time.Second)
	for s.World.Metrics().Machines != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	resp, err = http.Get(s.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		`proofline_world_machines{world="srv-test"} 2`,
		`proofline_world_belts{world="srv-test"} 2`,
		"# TYPE proofline_world_transfers_total counter",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestAdminSnapshotWritesFile(t *testing.T) {
	s := newTestServer(t)
	if resp, body := s.post(t, "/admin/v1/commands", protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor", X: 3, Y: 3}); resp.StatusCode != http.StatusOK {
		t.Fatalf("place: %d %s", resp.StatusCode, body)
	}
	resp, body := s.post(t, "/admin/v1/snapshot", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status=%d body=%s", resp.StatusCode, body)
	}
	var out struct {
		OK   bool   `json:"ok"`
		Tick uint64 `json:"tick"`
	}
	if err := json.Unmarshal(body, &out); err != nil || !out.OK {
		t.Fatalf("snapshot resp=%s err=%v", body, err)
	}

	path := snapshot.Path(s.WorldDir, out.Tick)
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := snapshot.ReadSnapshot(path)
		if err == nil {
			if len(snap.Machines) != 1 || snap.Header.Tick != out.Tick {
				t.Fatalf("snapshot = %+v", snap.Header)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot %s never appeared: %v", path, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := snapshot.Latest(s.WorldDir); got != path {
		t.Fatalf("Latest=%q want %q", got, path)
	}
}

func TestAdminRequiresPost(t *testing.T) {
	s := newTestServer(t)
	for _, p := range []string{"/admin/v1/commands", "/admin/v1/snapshot"} {
		resp, err := http.Get(s.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s status=%d", p, resp.StatusCode)
		}
	}
}

func TestLoopbackOnly(t *testing.T) {
	h := loopbackOnly(func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(http.StatusTeapot) })
	for _, tc := range []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:4000", http.StatusTeapot},
		{"192.168.1.9:4000", http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
		req.RemoteAddr = tc.remote
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.remote, rec.Code, tc.want)
		}
	}
}

func TestParseArea(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"1, 2, 3, 4", []int{1, 2, 3, 4}, false},
		{"1,2,3", nil, true},
		{"a,2,3,4", nil, true},
	} {
		got, err := parseArea(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseArea(%q) err=%v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("parseArea(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}
