package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/tuning"
	"proofline.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary copy of the tick and audit logs.
// Writes are queued and applied by one goroutine; when the queue is full the
// entry is dropped and counted. The JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db    *sql.DB
	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
	writeErrors  atomic.Uint64
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
	WriteErrorTotal   uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick     uint64
	Path     string
	WorldID  string
	Machines int
	Loose    int
	Items    int
}

const defaultQueue = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, runID: uuid.NewString(), ch: make(chan req, queue)}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('run_id',?)`, s.runID); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			moved INTEGER NOT NULL,
			machines INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			op TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			cmd_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_actor_tick ON commands(actor, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			type TEXT,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_tick ON audits(action, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, y, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			machines INTEGER NOT NULL,
			loose INTEGER NOT NULL,
			items INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RunID identifies this process's writes in meta.
func (s *SQLiteIndex) RunID() string { return s.runID }

// DB exposes the handle for read-only queries in tests and tools.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:     snap.Header.Tick,
		Path:     path,
		WorldID:  snap.Header.WorldID,
		Machines: len(snap.Machines),
		Loose:    len(snap.Loose),
	}
	for _, m := range snap.Machines {
		if m.Item != nil {
			r.Items++
		}
		if m.Output != nil {
			r.Items++
		}
		r.Items += len(m.Slots)
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshot)
}

// UpsertCatalogs stores the machine catalog and the applied tuning so a run
// can be queried against the exact definitions it used.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := json.Marshal(cats.Machines.Defs); err == nil {
		rows = append(rows, kv{name: "machines", digest: cats.Machines.Digest, json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,moved,machines,commands,raw_json) VALUES(?,?,?,?,?,?)`)
	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(tick,seq,actor,op,ok,code,cmd_json) VALUES(?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,type,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,world_id,machines,loose,items) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertCommand, insertAudit, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErrors.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	fail := func() {
		s.writeErrors.Add(1)
		if tx != nil {
			_ = tx.Rollback()
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			fail()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			raw, _ := json.Marshal(e)
			if !exec(insertTick, int64(e.Tick), e.Digest, e.Moved, e.Machines, len(e.Commands), string(raw)) {
				continue
			}
			for i, c := range e.Commands {
				cmdJSON, _ := json.Marshal(c.Cmd)
				if !exec(insertCommand, int64(e.Tick), i, c.Cmd.Actor, c.Cmd.Op, c.OK, c.Code, string(cmdJSON)) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.Pos[0], a.Pos[1], a.Type, a.Reason, string(raw))

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.WorldID, sn.Machines, sn.Loose, sn.Items)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
