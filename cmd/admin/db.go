package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type dbOpts struct {
	Limit  int
	Since  uint64
	Actor  string
	Action string
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	since := fs.Uint64("since", 0, "only rows at or after this tick")
	actor := fs.String("actor", "", "actor filter (commands, audits)")
	action := fs.String("action", "", "action filter (audits), e.g. ITEM_ANOMALY")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	err = runDBQuery(db, q, dbOpts{Limit: *limit, Since: *since, Actor: *actor, Action: *action}, os.Stdout)
	if err == errUnknownQuery {
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-since T] [-actor A] [-action X] snapshots|ticks|commands|audits|catalogs|meta")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

var errUnknownQuery = fmt.Errorf("unknown query")

type snapshotRow struct {
	Tick     int64  `json:"tick"`
	Path     string `json:"path"`
	WorldID  string `json:"world_id"`
	Machines int    `json:"machines"`
	Loose    int    `json:"loose"`
	Items    int    `json:"items"`
}

type tickRow struct {
	Tick     int64  `json:"tick"`
	Digest   string `json:"digest"`
	Moved    int    `json:"moved"`
	Machines int    `json:"machines"`
	Commands int    `json:"commands"`
}

type commandRow struct {
	Tick  int64           `json:"tick"`
	Seq   int             `json:"seq"`
	Actor string          `json:"actor"`
	Op    string          `json:"op"`
	OK    bool            `json:"ok"`
	Code  string          `json:"code,omitempty"`
	Cmd   json.RawMessage `json:"cmd"`
}

type auditRow struct {
	Tick   int64  `json:"tick"`
	Seq    int    `json:"seq"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type catalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

type metaRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// runDBQuery prints one JSON object per row of query q to out.
func runDBQuery(db *sql.DB, q string, o dbOpts, out io.Writer) error {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	var (
		rows *sql.Rows
		err  error
		scan func(*sql.Rows) (any, error)
	)
	switch q {
	case "snapshots":
		rows, err = db.Query(`SELECT tick,path,world_id,machines,loose,items FROM snapshots WHERE tick>=? ORDER BY tick DESC LIMIT ?`, o.Since, o.Limit)
		scan = func(rs *sql.Rows) (any, error) {
			var r snapshotRow
			err := rs.Scan(&r.Tick, &r.Path, &r.WorldID, &r.Machines, &r.Loose, &r.Items)
			return r, err
		}
	case "ticks":
		rows, err = db.Query(`SELECT tick,digest,moved,machines,commands FROM ticks WHERE tick>=? ORDER BY tick LIMIT ?`, o.Since, o.Limit)
		scan = func(rs *sql.Rows) (any, error) {
			var r tickRow
			err := rs.Scan(&r.Tick, &r.Digest, &r.Moved, &r.Machines, &r.Commands)
			return r, err
		}
	case "commands":
		rows, err = db.Query(`SELECT tick,seq,actor,op,ok,code,cmd_json FROM commands WHERE tick>=? AND (?='' OR actor=?) ORDER BY tick,seq LIMIT ?`, o.Since, o.Actor, o.Actor, o.Limit)
		scan = func(rs *sql.Rows) (any, error) {
			var r commandRow
			var code sql.NullString
			var raw string
			if err := rs.Scan(&r.Tick, &r.Seq, &r.Actor, &r.Op, &r.OK, &code, &raw); err != nil {
				return nil, err
			}
			r.Code = code.String
			r.Cmd = json.RawMessage(raw)
			return r, nil
		}
	case "audits":
		rows, err = db.Query(`SELECT tick,seq,actor,action,x,y,COALESCE(type,''),COALESCE(reason,'') FROM audits WHERE tick>=? AND (?='' OR actor=?) AND (?='' OR action=?) ORDER BY tick,seq LIMIT ?`,
			o.Since, o.Actor, o.Actor, o.Action, o.Action, o.Limit)
		scan = func(rs *sql.Rows) (any, error) {
			var r auditRow
			err := rs.Scan(&r.Tick, &r.Seq, &r.Actor, &r.Action, &r.X, &r.Y, &r.Type, &r.Reason)
			return r, err
		}
	case "catalogs":
		rows, err = db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		scan = func(rs *sql.Rows) (any, error) {
			var r catalogRow
			err := rs.Scan(&r.Name, &r.Digest, &r.UpdatedAt)
			return r, err
		}
	case "meta":
		rows, err = db.Query(`SELECT key,value FROM meta ORDER BY key`)
		scan = func(rs *sql.Rows) (any, error) {
			var r metaRow
			err := rs.Scan(&r.Key, &r.Value)
			return r, err
		}
	default:
		return errUnknownQuery
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return rows.Err()
}
