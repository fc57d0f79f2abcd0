package main

import (
	"fmt"
	"path/filepath"

	persistlog "proofline.ai/internal/persistence/log"
	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/world"
)

type replayOptions struct {
	// VerifyFrom and ToTick bound the checked range; zero means unbounded.
	VerifyFrom uint64
	ToTick     uint64
	// CheckLinks runs the world invariant checks after every replayed tick.
	CheckLinks bool
}

type replayReport struct {
	StartTick uint64
	LastTick  uint64
	Stepped   uint64
	Checked   uint64
}

// replayFiles steps w through the tick entries in files and compares each
// digest against the recorded one. Entries before w's current tick are skipped.
func replayFiles(w *world.World, files []string, opts replayOptions) (replayReport, error) {
	rep := replayReport{StartTick: w.CurrentTick()}
	verifyFrom := opts.VerifyFrom
	if verifyFrom < rep.StartTick {
		verifyFrom = rep.StartTick
	}
	for _, path := range files {
		entries, err := persistlog.ReadTicks(path)
		if err != nil {
			return rep, err
		}
		for _, entry := range entries {
			if entry.Tick < rep.StartTick {
				continue
			}
			if opts.ToTick != 0 && entry.Tick > opts.ToTick {
				return rep, nil
			}
			if entry.Tick != w.CurrentTick() {
				return rep, fmt.Errorf("tick gap: want=%d got=%d (file=%s)", w.CurrentTick(), entry.Tick, filepath.Base(path))
			}

			cmds := make([]protocol.CommandMsg, 0, len(entry.Commands))
			for _, rc := range entry.Commands {
				cmds = append(cmds, rc.Cmd)
			}
			tick, digest := w.StepOnce(cmds)
			rep.Stepped++
			rep.LastTick = tick
			if tick != entry.Tick {
				return rep, fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
			}
			if opts.CheckLinks {
				if err := w.CheckInvariants(); err != nil {
					return rep, fmt.Errorf("tick %d: %w", tick, err)
				}
			}
			if tick >= verifyFrom {
				rep.Checked++
				if digest != entry.Digest {
					return rep, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
				}
			}
		}
	}
	return rep, nil
}
