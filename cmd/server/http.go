package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/world"
	"proofline.ai/internal/transport/observer"
	"proofline.ai/internal/transport/ws"
)

type httpDeps struct {
	World   *world.World
	WorldID string
	Index   runtimeIndex
	Log     *log.Logger

	EnableAdmin bool
	EnablePprof bool

	CommandRateWindowTicks uint64
	CommandRateMax         int
}

func newMux(d httpDeps) *http.ServeMux {
	w := d.World
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d.WorldID, w.Metrics(), w.CurrentTick(), d.Index)
	})

	obsSrv := observer.NewServer(w, d.Log)
	mux.HandleFunc("/v1/observe", obsSrv.WSHandler())
	mux.HandleFunc("/v1/observe/bootstrap", obsSrv.BootstrapHandler())
	cmdSrv := ws.NewServer(w, d.Log)
	cmdSrv.RateWindowTicks = d.CommandRateWindowTicks
	cmdSrv.RateMax = d.CommandRateMax
	mux.HandleFunc("/v1/commands", cmdSrv.Handler())

	if d.EnableAdmin {
		mux.HandleFunc("/admin/v1/state", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			resp := struct {
				WorldID string             `json:"world_id"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				WorldID: d.WorldID,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			writeJSON(rw, http.StatusOK, resp)
		}))
		mux.HandleFunc("/admin/v1/grid", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			area, err := parseArea(r.URL.Query().Get("area"))
			if err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			links := r.URL.Query().Get("links") == "1"
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			st, err := w.RequestState(ctx, area, links)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(rw, http.StatusOK, st)
		}))
		mux.HandleFunc("/admin/v1/commands", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			var cmd protocol.CommandMsg
			if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&cmd); err != nil {
				writeJSON(rw, http.StatusBadRequest, protocol.ErrorResult(w.CurrentTick(), protocol.ErrBadRequest, err.Error()))
				return
			}
			if cmd.Actor == "" {
				cmd.Actor = "ADMIN"
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			res, err := w.Submit(ctx, cmd)
			if err != nil {
				writeJSON(rw, http.StatusServiceUnavailable, protocol.ErrorResult(w.CurrentTick(), protocol.ErrWorldBusy, err.Error()))
				return
			}
			status := http.StatusOK
			if !res.OK {
				status = statusFor(res.Code)
			}
			writeJSON(rw, status, res)
		}))
		mux.HandleFunc("/admin/v1/snapshot", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			tick, err := w.RequestSnapshot(ctx)
			if err != nil {
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
		}))
	} else if d.Log != nil {
		d.Log.Printf("admin endpoints disabled (PL_ENABLE_ADMIN_HTTP=false)")
	}

	if d.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !observer.IsLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func statusFor(code string) int {
	switch code {
	case protocol.ErrBadRequest, protocol.ErrUnknownType:
		return http.StatusBadRequest
	case protocol.ErrNotFound:
		return http.StatusNotFound
	case protocol.ErrOccupied:
		return http.StatusConflict
	case protocol.ErrWorldBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseArea reads "x,y,w,h". An empty string means the whole grid.
func parseArea(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("area wants x,y,w,h")
	}
	out := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("area: %w", err)
		}
		out[i] = n
	}
	return out, nil
}

func writeMetrics(out io.Writer, worldID string, m world.WorldMetrics, tick uint64, idx runtimeIndex) {
	if m.Tick != 0 {
		tick = m.Tick
	}
	gauge := func(name, help string, v any) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s gauge\n", name)
		fmt.Fprintf(out, "%s{world=%q} %v\n", name, worldID, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s counter\n", name)
		fmt.Fprintf(out, "%s{world=%q} %d\n", name, worldID, v)
	}

	gauge("proofline_world_tick", "Current world tick.", tick)
	gauge("proofline_world_machines", "Placed machines.", m.Machines)
	gauge("proofline_world_belts", "Placed conveyors.", m.Belts)
	gauge("proofline_world_ports", "Registered ports.", m.Ports)
	gauge("proofline_world_links", "Linked output ports.", m.Links)
	gauge("proofline_world_items_in_flight", "Items held by machines.", m.ItemsInFlight)
	gauge("proofline_world_loose_items", "Items dropped outside any machine.", m.LooseItems)
	gauge("proofline_world_observers", "Connected observers.", m.Observers)
	gauge("proofline_world_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	counter("proofline_world_transfers_total", "Items handed from an output to a linked input.", m.TransfersTotal)
	counter("proofline_world_backpressure_total", "Transfers refused by a full receiver.", m.BackpressureTotal)
	counter("proofline_world_anomalies_total", "Items the provider could not take back.", m.AnomaliesTotal)

	fmt.Fprintf(out, "# HELP proofline_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(out, "# TYPE proofline_world_queue_depth gauge\n")
	fmt.Fprintf(out, "proofline_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(out, "proofline_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "observer_join", m.QueueDepths.ObserverJoin)
	fmt.Fprintf(out, "proofline_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "observer_leave", m.QueueDepths.ObserverLeave)

	if idx == nil {
		return
	}
	s := idx.Stats()
	gauge("proofline_index_queue_depth", "Index writer queue depth.", s.QueueDepth)
	counter("proofline_index_dropped_ticks_total", "Tick entries dropped by a full index queue.", s.DropTickTotal)
	counter("proofline_index_dropped_audits_total", "Audit entries dropped by a full index queue.", s.DropAuditTotal)
	counter("proofline_index_write_errors_total", "Failed index writes.", s.WriteErrorTotal)
}
