package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"proofline.ai/internal/observerproto"
	"proofline.ai/internal/protocol"
	"proofline.ai/internal/sim/catalogs"
	"proofline.ai/internal/sim/world"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asJSON round-trips v through encoding/json so the validator sees plain values.
func asJSON(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	cmdSchema := compile(t, "command.schema.json")
	resSchema := compile(t, "result.schema.json")
	subSchema := compile(t, "subscribe.schema.json")

	for _, tc := range []struct {
		name string
		s    *jsonschema.Schema
		doc  string
		ok   bool
	}{
		{"place", cmdSchema, `{"type":"COMMAND","protocol_version":"1.0","op":"PLACE","machine_type":"conveyor","x":1,"y":2,"rotation":90}`, true},
		{"place without type", cmdSchema, `{"type":"COMMAND","protocol_version":"1.0","op":"PLACE","x":1,"y":2}`, false},
		{"rotate", cmdSchema, `{"type":"COMMAND","protocol_version":"1.0","op":"ROTATE","x":0,"y":0,"turns":-1}`, true},
		{"unknown op", cmdSchema, `{"type":"COMMAND","protocol_version":"1.0","op":"MOVE","x":0,"y":0}`, false},
		{"set letter", cmdSchema, `{"type":"COMMAND","protocol_version":"1.0","op":"SET_LETTER","x":3,"y":3,"letter":"P"}`, true},
		{"error result", resSchema, `{"type":"RESULT","protocol_version":"1.0","ok":false,"tick":4,"code":"E_OCCUPIED","message":"tile occupied"}`, true},
		{"bad code", resSchema, `{"type":"RESULT","protocol_version":"1.0","ok":false,"tick":4,"code":"occupied"}`, false},
		{"subscribe", subSchema, `{"type":"SUBSCRIBE","protocol_version":"0.2","every_ticks":2,"area":[0,0,10,10],"links":true}`, true},
		{"subscribe short area", subSchema, `{"type":"SUBSCRIBE","protocol_version":"0.2","area":[0,0]}`, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var v any
			if err := json.Unmarshal([]byte(tc.doc), &v); err != nil {
				t.Fatalf("sample: %v", err)
			}
			err := tc.s.Validate(v)
			if (err == nil) != tc.ok {
				t.Fatalf("validate err=%v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestSchemas_GoTypesConform(t *testing.T) {
	cmdSchema := compile(t, "command.schema.json")
	resSchema := compile(t, "result.schema.json")

	cmd := protocol.CommandMsg{
		Type: protocol.TypeCommand, ProtocolVersion: protocol.Version,
		Op: protocol.OpRotate, X: 4, Y: 5, Turns: 1,
	}
	if err := cmdSchema.Validate(asJSON(t, cmd)); err != nil {
		t.Fatalf("command: %v", err)
	}
	for _, r := range []protocol.ResultMsg{
		protocol.OKResult(9, 3),
		protocol.ErrorResult(9, protocol.ErrNotFound, "no machine at tile"),
	} {
		if err := resSchema.Validate(asJSON(t, r)); err != nil {
			t.Fatalf("result %+v: %v", r, err)
		}
	}
}

func TestSchemas_GridStateFromWorld(t *testing.T) {
	gsSchema := compile(t, "grid_state.schema.json")

	cats, err := catalogs.Load("../../configs/machines.yaml", "../../schemas/machines.schema.json")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "schema"}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	for _, x := range []int{0, 1, 2} {
		if res := w.ApplyCommand(protocol.CommandMsg{Op: protocol.OpPlace, MachineType: "conveyor", X: x, Y: 0}); !res.OK {
			t.Fatalf("place %d: %+v", x, res)
		}
	}
	for i := 0; i < 10; i++ {
		w.StepOnce(nil)
	}

	msg := w.GridState(w.CurrentTick(), nil, true)
	msg.Digest = w.StateDigest()
	if msg.Type != observerproto.TypeGridState {
		t.Fatalf("type=%q", msg.Type)
	}
	if err := gsSchema.Validate(asJSON(t, msg)); err != nil {
		t.Fatalf("grid state: %v", err)
	}
}
