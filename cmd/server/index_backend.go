package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"proofline.ai/internal/persistence/indexdb"
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/tuning"
	"proofline.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.AuditLogger
	Close() error
	UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

// openRuntimeIndex opens the read-model index. backend falls back to
// PL_INDEX_BACKEND and then sqlite.
func openRuntimeIndex(worldDir, backend string) (runtimeIndex, error) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = strings.ToLower(strings.TrimSpace(os.Getenv("PL_INDEX_BACKEND")))
	}
	if backend == "" {
		backend = "sqlite"
	}
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}
