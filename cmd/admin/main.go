package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	persistlog "proofline.ai/internal/persistence/log"
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "grid":
			gridCmd(os.Args[2:])
			return
		case "cmd":
			commandCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	rect := fs.String("rect", "", "tile filter: x1,y1:x2,y2 (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	action := fs.String("action", "", "action filter, e.g. PLACE or ITEM_ANOMALY")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	f := auditFilter{Since: *sinceTick, To: *toTick, Action: strings.ToUpper(strings.TrimSpace(*action))}
	if strings.TrimSpace(*rect) != "" {
		min, max, err := parseRect(*rect)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -rect:", err)
			os.Exit(2)
		}
		f.Rect, f.Min, f.Max = true, min, max
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	n, err := readAudit(worldDir, f, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

type auditFilter struct {
	Since, To uint64
	Action    string
	Rect      bool
	Min, Max  [2]int
}

func (f auditFilter) match(e world.AuditEntry) bool {
	if e.Tick < f.Since || (f.To != 0 && e.Tick > f.To) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return !f.Rect || withinRect(e.Pos, f.Min, f.Max)
}

// readAudit prints matching audit entries in log order as JSON lines.
func readAudit(worldDir string, f auditFilter, out io.Writer) (int, error) {
	files, err := persistlog.ListFiles(filepath.Join(worldDir, "audit"), "audit")
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	n := 0
	for _, path := range files {
		err := persistlog.ScanJSONL(path, func(line []byte) error {
			var e world.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if !f.match(e) {
				return nil
			}
			n++
			return enc.Encode(e)
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -snapshot")
			os.Exit(2)
		}
		path = snapshot.Latest(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(summarize(snap))
}

type snapshotSummary struct {
	WorldID  string         `json:"world_id"`
	RunID    string         `json:"run_id,omitempty"`
	Tick     uint64         `json:"tick"`
	TickRate int            `json:"tick_rate_hz"`
	Catalog  string         `json:"catalog_rev,omitempty"`
	Machines int            `json:"machines"`
	ByType   map[string]int `json:"by_type"`
	Carried  int            `json:"items_carried"`
	Loose    int            `json:"loose"`
	Received map[string]int `json:"received,omitempty"`
}

func summarize(snap snapshot.SnapshotV1) snapshotSummary {
	s := snapshotSummary{
		WorldID:  snap.Header.WorldID,
		RunID:    snap.Header.RunID,
		Tick:     snap.Header.Tick,
		TickRate: snap.TickRate,
		Catalog:  snap.CatalogRev,
		Machines: len(snap.Machines),
		ByType:   map[string]int{},
		Loose:    len(snap.Loose),
	}
	for _, m := range snap.Machines {
		s.ByType[m.Type]++
		if m.Item != nil {
			s.Carried++
		}
		if m.Output != nil {
			s.Carried++
		}
		s.Carried += len(m.Slots)
		for f, n := range m.Received {
			if s.Received == nil {
				s.Received = map[string]int{}
			}
			s.Received[f] += n
		}
	}
	return s
}

func withinRect(pos, min, max [2]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1]
}

func parseRect(s string) (min, max [2]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1:x2,y2")
	}
	a, err := parseVec2(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec2(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 2; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec2(s string) ([2]int, error) {
	var v [2]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return v, fmt.Errorf("expected x,y")
	}
	for i := 0; i < 2; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}


func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
