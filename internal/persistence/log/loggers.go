package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"proofline.ai/internal/sim/world"
)

// LoggerOptions tunes the compressed JSONL writers. The zero value rotates
// hourly with the fastest zstd level.
type LoggerOptions struct {
	// RotateLayout is the time layout that names a file; a new file starts
	// whenever the formatted time changes.
	RotateLayout string
	Level        zstd.EncoderLevel
	Now          func() time.Time
}

func (o LoggerOptions) withDefaults() LoggerOptions {
	if o.RotateLayout == "" {
		o.RotateLayout = "2006-01-02-15"
	}
	if o.Level == 0 {
		o.Level = zstd.SpeedFastest
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	opts    LoggerOptions

	mu     sync.Mutex
	curKey string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, opts LoggerOptions) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		opts:    opts.withDefaults(),
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.opts.Now().UTC().Format(w.opts.RotateLayout)
	if key != w.curKey {
		if err := w.rotateLocked(key); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(w.opts.Level))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curKey = key
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curKey = ""
	return err1
}

func (w *JSONLZstdWriter) pathFor(key string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
}

// ListFiles returns the prefix-*.jsonl.zst files in dir in name order, which
// is also time order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ScanJSONL calls fn for every non-empty line of a compressed JSONL file.
func ScanJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// TickLogger writes one JSONL entry per tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return NewTickLoggerWithOptions(worldDir, LoggerOptions{})
}

func NewTickLoggerWithOptions(worldDir string, opts LoggerOptions) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "events"), "events", opts)}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// ReadTicks decodes every tick entry of one events file.
func ReadTicks(path string) ([]world.TickLogEntry, error) {
	var out []world.TickLogEntry
	err := ScanJSONL(path, func(line []byte) error {
		var e world.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// AuditLogger writes audit JSONL entries (compressed).
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(worldDir string) *AuditLogger {
	return NewAuditLoggerWithOptions(worldDir, LoggerOptions{})
}

func NewAuditLoggerWithOptions(worldDir string, opts LoggerOptions) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "audit"), "audit", opts)}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }
