package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"proofline.ai/internal/persistence/snapshot"
)

// CheckpointMeta is written next to an archived snapshot.
type CheckpointMeta struct {
	Epoch      int    `json:"epoch"`
	Tick       uint64 `json:"tick"`
	WorldID    string `json:"world_id"`
	RunID      string `json:"run_id,omitempty"`
	CatalogRev string `json:"catalog_rev,omitempty"`
	Machines   int    `json:"machines"`
	Loose      int    `json:"loose"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// Checkpoint copies a snapshot into worldDir/archives/epoch_<NNN>/ when it
// closes an epoch of every ticks. Snapshots hold the last executed tick, so
// epoch k ends at tick every*k-1.
func Checkpoint(worldDir, snapshotPath string, snap snapshot.SnapshotV1, every uint64) (epoch int, archivedPath string, archived bool, err error) {
	if every == 0 {
		return 0, "", false, nil
	}
	if (snap.Header.Tick+1)%every != 0 {
		return 0, "", false, nil
	}
	epoch = int((snap.Header.Tick + 1) / every)
	if epoch <= 0 {
		return 0, "", false, nil
	}

	dir := filepath.Join(worldDir, "archives", fmt.Sprintf("epoch_%03d", epoch))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := CheckpointMeta{
		Epoch:      epoch,
		Tick:       snap.Header.Tick,
		WorldID:    snap.Header.WorldID,
		RunID:      snap.Header.RunID,
		CatalogRev: snap.CatalogRev,
		Machines:   len(snap.Machines),
		Loose:      len(snap.Loose),
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, "", false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return 0, "", false, err
	}
	return epoch, dst, true, nil
}

// ReadMeta loads the meta.json of one epoch directory.
func ReadMeta(epochDir string) (CheckpointMeta, error) {
	var m CheckpointMeta
	b, err := os.ReadFile(filepath.Join(epochDir, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
