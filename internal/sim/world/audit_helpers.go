package world

import (
	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/sim/world/logic/dirs"
)

func (w *World) auditEvent(tick uint64, actor string, action string, pos dirs.Vec, typ string, reason string, details map[string]any) {
	entry := AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Action:  action,
		Pos:     pos.ToArray(),
		Type:    typ,
		Reason:  reason,
		Details: details,
	}
	if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(entry)
	}
	if len(w.observers) > 0 {
		w.obsAuditsThisTick = append(w.obsAuditsThisTick, observerproto.AuditEntry{
			Tick:   entry.Tick,
			Actor:  entry.Actor,
			Action: entry.Action,
			Pos:    entry.Pos,
			Type:   entry.Type,
			Reason: entry.Reason,
		})
	}
}
