package world

import (
	"io"
	"log"
	"sync/atomic"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/world/kernel/grid"
	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/kernel/ports"
)

// CommandRequest carries one command into the world loop. Resp, when set,
// receives the result after the command was applied.
type CommandRequest struct {
	Cmd  protocol.CommandMsg
	Resp chan protocol.ResultMsg
}

type RecordedCommand struct {
	Cmd    protocol.CommandMsg `json:"cmd"`
	OK     bool                `json:"ok"`
	Code   string              `json:"code,omitempty"`
	Reason string              `json:"reason,omitempty"`
}

// World is a single-threaded authoritative grid simulation.
// All state must be accessed only from the world loop goroutine, or from the
// caller's goroutine when the loop is not running (tests, replay).
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *log.Logger

	tick atomic.Uint64

	grid  *grid.Index
	ports *ports.Table
	loose []*model.Item

	inbox         chan CommandRequest
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stateReq      chan stateReq
	snapshotReq   chan snapshotReq
	stop          chan struct{}
	stopped       atomic.Bool

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	observers         map[string]*observerClient
	obsAuditsThisTick []observerproto.AuditEntry

	counters tickCounters
	totals   tickCounters
	metrics  atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Moved    int               `json:"moved"`
	Machines int               `json:"machines"`
	Digest   string            `json:"digest"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "PLACE"
	Pos     [2]int         `json:"pos"`
	Type    string         `json:"type,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	if cats == nil {
		c, err := catalogs.FromDefs(nil)
		if err != nil {
			return nil, err
		}
		cats = c
	}
	w := &World{
		cfg:           cfg,
		catalogs:      cats,
		log:           log.New(io.Discard, "", 0),
		grid:          grid.New(),
		ports:         ports.NewTable(),
		inbox:         make(chan CommandRequest, 1024),
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerSub:   make(chan ObserverSubscribeRequest, 64),
		observerLeave: make(chan string, 64),
		stateReq:      make(chan stateReq, 16),
		snapshotReq:   make(chan snapshotReq, 4),
		stop:          make(chan struct{}),
		observers:     map[string]*observerClient{},
	}
	return w, nil
}

func (w *World) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	w.log = l
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Config() WorldConfig {
	if w == nil {
		return WorldConfig{}
	}
	return w.cfg
}

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
