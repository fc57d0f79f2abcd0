package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	persistlog "proofline.ai/internal/persistence/log"
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/tuning"
	"proofline.ai/internal/sim/world"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "grid_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory (machines.yaml, tuning.yaml)")
		schemaDir  = flag.String("schemas", "./schemas", "json schema directory; empty skips catalog validation")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		tickHz     = flag.Int("tick_hz", 0, "override tick_rate_hz from tuning")
		snapEvery  = flag.Int("snapshot_every", 0, "override snapshot_every_ticks from tuning")
		archEvery  = flag.Uint64("archive_every", 0, "archive one snapshot per this many ticks (0 disables)")
		indexName  = flag.String("index", "", "index backend: sqlite|none (default: $PL_INDEX_BACKEND or sqlite)")

		snapPath = flag.String("snapshot", "", "path to snapshot to load (optional)")
		resume   = flag.Bool("resume", true, "load latest snapshot from the data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	schemaPath := ""
	if strings.TrimSpace(*schemaDir) != "" {
		schemaPath = filepath.Join(*schemaDir, "machines.schema.json")
	}
	cats, err := catalogs.Load(filepath.Join(*configDir, "machines.yaml"), schemaPath)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *resume {
		snapshotToLoad = snapshot.Latest(worldDir)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *tickHz > 0 {
		tune.TickRateHz = *tickHz
		tune.TickDT = 1.0 / float64(*tickHz)
	}
	if *snapEvery > 0 {
		tune.SnapshotEveryTicks = *snapEvery
	}
	cats.ApplyTuning(tune)

	idx, err := openRuntimeIndex(worldDir, *indexName)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	cfg := world.ConfigFromTuning(*worldID, tune)
	cfg.RunID = uuid.NewString()

	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		if snap.CatalogRev != "" && snap.CatalogRev != cats.Machines.Digest {
			logger.Printf("warning: snapshot catalog %s differs from loaded catalog %s", snap.CatalogRev, cats.Machines.Digest)
		}
		// Snapshot timing overrides tuning on resume.
		if snap.TickRate > 0 {
			cfg.TickRateHz = snap.TickRate
		}
		if snap.TickDT > 0 {
			cfg.TickDT = snap.TickDT
		}
		if w, err = world.New(cfg, cats); err != nil {
			logger.Fatalf("world: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		if w, err = world.New(cfg, cats); err != nil {
			logger.Fatalf("world: %v", err)
		}
	}
	w.SetLogger(log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	ticks := multiTickLogger{tickLog}
	audits := multiAuditLogger{auditLog}
	if idx != nil {
		ticks = append(ticks, idx)
		audits = append(audits, idx)
	}
	w.SetTickLogger(ticks)
	w.SetAuditLogger(audits)

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go snapshotWriter{worldDir: worldDir, archiveEvery: *archEvery, idx: idx, log: logger}.run(ctx, snapCh)

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := newMux(httpDeps{
		World:       w,
		WorldID:     *worldID,
		Index:       idx,
		Log:         logger,
		EnableAdmin: envBool("PL_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		EnablePprof: envBool("PL_ENABLE_PPROF_HTTP", false),

		CommandRateWindowTicks: uint64(tune.CommandRateWindowTicks),
		CommandRateMax:         tune.CommandRateMax,
	})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world=%s run=%s listening on %s", *worldID, cfg.RunID, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
