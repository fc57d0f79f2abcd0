package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	RunID   string `json:"run_id,omitempty"`
	Tick    uint64 `json:"tick"`
	// Machines is repeated in the header so tools can size a snapshot
	// without decoding the body.
	Machines int `json:"machines"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate   int     `json:"tick_rate_hz"`
	TickDT     float64 `json:"tick_dt"`
	CatalogRev string  `json:"catalog_rev,omitempty"`

	// Machines are in placement order. Restoring them in this order
	// reproduces the same transfer iteration order.
	Machines []MachineV1 `json:"machines"`
	Loose    []ItemV1    `json:"loose,omitempty"`
}

type ItemV1 struct {
	Formula string     `json:"formula"`
	Theorem bool       `json:"theorem,omitempty"`
	Pos     [2]float64 `json:"pos"`
}

// MachineV1 is one placed machine. Kind-specific fields are zero for other kinds.
type MachineV1 struct {
	Type     string `json:"type"`
	Origin   [2]int `json:"origin"`
	Rotation int    `json:"rotation"`

	Inputs   []string   `json:"inputs,omitempty"`
	Outputs  []string   `json:"outputs,omitempty"`
	Item     *ItemV1    `json:"item,omitempty"`
	Progress float64    `json:"progress,omitempty"`
	Start    [2]float64 `json:"start,omitempty"`
	NextIn   int        `json:"next_in,omitempty"`
	NextOut  int        `json:"next_out,omitempty"`

	Letter  string  `json:"letter,omitempty"`
	Elapsed float64 `json:"elapsed,omitempty"`

	Rule   string         `json:"rule,omitempty"`
	Slots  map[int]ItemV1 `json:"slots,omitempty"`
	Output *ItemV1        `json:"output,omitempty"`
	Timer  float64        `json:"timer,omitempty"`

	Received map[string]int `json:"received,omitempty"`
}

// WriteSnapshot writes a JSON header line followed by the gob-encoded
// snapshot, zstd-compressed as a whole.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	snap.Header.Machines = len(snap.Machines)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	hl, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hl, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	hl, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(hl, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// Path is the conventional location of the snapshot taken at tick.
func Path(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

// Latest returns the path of the highest-tick snapshot under worldDir, or ""
// when there is none.
func Latest(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			best, bestTick = filepath.Join(dir, name), tick
		}
	}
	return best
}
