package main

import (
	"context"
	"log"

	"proofline.ai/internal/persistence/archive"
	"proofline.ai/internal/persistence/snapshot"
	"proofline.ai/internal/sim/world"
)

type multiTickLogger []world.TickLogger

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteTick(entry)
		}
	}
	return nil
}

type multiAuditLogger []world.AuditLogger

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteAudit(entry)
		}
	}
	return nil
}

type snapshotWriter struct {
	worldDir     string
	archiveEvery uint64
	idx          runtimeIndex
	log          *log.Logger
}

// run writes every snapshot the world hands over until ctx is done.
func (s snapshotWriter) run(ctx context.Context, ch <-chan snapshot.SnapshotV1) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			s.write(snap)
		}
	}
}

func (s snapshotWriter) write(snap snapshot.SnapshotV1) string {
	path := snapshot.Path(s.worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		s.log.Printf("snapshot write: %v", err)
		return ""
	}
	if s.idx != nil {
		s.idx.RecordSnapshot(path, snap)
	}
	if epoch, archived, ok, err := archive.Checkpoint(s.worldDir, path, snap, s.archiveEvery); err != nil {
		s.log.Printf("archive checkpoint: %v", err)
	} else if ok {
		s.log.Printf("archived epoch %d to %s", epoch, archived)
	}
	return path
}
