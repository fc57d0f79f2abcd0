package world

import (
	"errors"
	"fmt"

	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

var errNotGenerator = errors.New("not a generator")

// applyCommand runs one queued command at a tick boundary.
func (w *World) applyCommand(cmd protocol.CommandMsg, nowTick uint64) (protocol.ResultMsg, RecordedCommand) {
	rec := RecordedCommand{Cmd: cmd}
	fail := func(code string, err error) (protocol.ResultMsg, RecordedCommand) {
		rec.Code = code
		rec.Reason = err.Error()
		return protocol.ErrorResult(nowTick, code, err.Error()), rec
	}
	if err := cmd.Validate(); err != nil {
		return fail(protocol.ErrBadRequest, err)
	}
	actor := cmd.Actor
	if actor == "" {
		actor = "ADMIN"
	}
	pos := dirs.Vec{X: cmd.X, Y: cmd.Y}

	var (
		m   model.Machine
		err error
	)
	switch cmd.Op {
	case protocol.OpPlace:
		m, err = w.placeCommand(cmd)
		if err == nil {
			w.auditEvent(nowTick, actor, "PLACE", pos, m.Core().Type, "", map[string]any{
				"rotation": m.Core().Rotation,
			})
		}
	case protocol.OpRemove:
		m = w.RemoveBlock(cmd.X, cmd.Y)
		if m == nil {
			err = fmt.Errorf("remove (%d,%d): %w", cmd.X, cmd.Y, ErrNotFound)
		} else {
			w.auditEvent(nowTick, actor, "REMOVE", m.Core().Origin, m.Core().Type, "", nil)
		}
	case protocol.OpRotate:
		err = w.RotateBlock(cmd.X, cmd.Y, cmd.Turns)
		m = w.grid.Get(cmd.X, cmd.Y)
		if err == nil && m != nil {
			w.auditEvent(nowTick, actor, "ROTATE", m.Core().Origin, m.Core().Type, "", map[string]any{
				"turns":    cmd.Turns,
				"rotation": m.Core().Rotation,
			})
		}
	case protocol.OpSetLetter:
		err = w.SetLetter(cmd.X, cmd.Y, cmd.Letter)
		m = w.grid.Get(cmd.X, cmd.Y)
		if err == nil {
			w.auditEvent(nowTick, actor, "SET_LETTER", m.Core().Origin, m.Core().Type, "", map[string]any{
				"letter": cmd.Letter,
			})
		}
	}
	if err != nil {
		return fail(errorCode(err), err)
	}
	rec.OK = true
	var id uint64
	if m != nil {
		id = m.Core().ID
	}
	return protocol.OKResult(nowTick, id), rec
}

// placeCommand places a machine. A conveyor placed onto a conveyor with a
// different rotation replaces it and keeps the item it was carrying.
func (w *World) placeCommand(cmd protocol.CommandMsg) (model.Machine, error) {
	spec, ok := w.catalogs.Spec(cmd.MachineType)
	if !ok {
		return nil, fmt.Errorf("place %q: %w", cmd.MachineType, ErrUnknownType)
	}
	rot := dirs.NormalizeRotation(cmd.Rotation)
	if spec.Kind == model.KindConveyor {
		if old, ok := w.grid.Get(cmd.X, cmd.Y).(*model.Belt); ok && old.Rotation != rot {
			it, progress := old.Item, old.Progress
			old.Item, old.Progress = nil, 0
			w.removeMachine(old)
			m, err := w.Place(cmd.MachineType, cmd.X, cmd.Y, rot)
			if err != nil {
				return nil, err
			}
			if it != nil {
				m.(*model.Belt).Restash(it, progress)
			}
			return m, nil
		}
	}
	return w.Place(cmd.MachineType, cmd.X, cmd.Y, rot)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownType):
		return protocol.ErrUnknownType
	case errors.Is(err, ErrOccupied):
		return protocol.ErrOccupied
	case errors.Is(err, ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, errNotGenerator):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}

// ApplyCommand applies cmd immediately. It must not be called while Run is
// active; use Submit from other goroutines.
func (w *World) ApplyCommand(cmd protocol.CommandMsg) protocol.ResultMsg {
	res, _ := w.applyCommand(cmd, w.tick.Load())
	return res
}
