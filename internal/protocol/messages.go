package protocol

import (
	"fmt"
	"strings"
)

// CommandMsg is one topology or configuration change. Commands are queued
// and applied by the world loop at the next tick boundary.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Op          string `json:"op"`
	MachineType string `json:"machine_type,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	// Rotation is the placement rotation in quarter turns or degrees.
	Rotation int    `json:"rotation,omitempty"`
	Turns    int    `json:"turns,omitempty"`
	Letter   string `json:"letter,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

// Validate checks fields that do not need world state.
func (c CommandMsg) Validate() error {
	if c.Type != "" && c.Type != TypeCommand {
		return fmt.Errorf("unexpected type %q", c.Type)
	}
	switch c.Op {
	case OpPlace:
		if strings.TrimSpace(c.MachineType) == "" {
			return fmt.Errorf("%s needs machine_type", c.Op)
		}
	case OpRemove:
	case OpRotate:
		if c.Turns == 0 {
			return fmt.Errorf("%s needs non-zero turns", c.Op)
		}
	case OpSetLetter:
		if len([]rune(c.Letter)) != 1 {
			return fmt.Errorf("%s needs a single letter", c.Op)
		}
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}
	return nil
}

// ResultMsg answers a CommandMsg.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	OK      bool   `json:"ok"`
	Tick    uint64 `json:"tick"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	// MachineID is the placement ID of the machine the command touched.
	MachineID uint64 `json:"machine_id,omitempty"`
}

func OKResult(tick, id uint64) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, OK: true, Tick: tick, MachineID: id}
}

func ErrorResult(tick uint64, code, msg string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, Tick: tick, Code: code, Message: msg}
}
