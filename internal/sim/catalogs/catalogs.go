package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"proofline.ai/internal/sim/tuning"
	"proofline.ai/internal/sim/world/kernel/model"
	"proofline.ai/internal/sim/world/logic/dirs"
)

// Catalogs is the machine catalog: one definition per placeable type.
type Catalogs struct {
	Machines MachineCatalog
}

type MachineCatalog struct {
	Defs   []MachineDef
	ByID   map[string]MachineDef
	Digest string

	specs map[string]model.Spec
}

type MachineDef struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Kind     string    `yaml:"kind" json:"kind"`
	Size     [2]int    `yaml:"size" json:"size"`
	Ports    []PortDef `yaml:"ports,omitempty" json:"ports,omitempty"`
	Rule     string    `yaml:"rule,omitempty" json:"rule,omitempty"`
	Interval float64   `yaml:"interval,omitempty" json:"interval,omitempty"`
	Duration float64   `yaml:"duration,omitempty" json:"duration,omitempty"`
	Speed    float64   `yaml:"speed,omitempty" json:"speed,omitempty"`
}

type PortDef struct {
	Kind   string `yaml:"kind" json:"kind"`
	Offset [2]int `yaml:"offset" json:"offset"`
	Facing string `yaml:"facing" json:"facing"`
}

type file struct {
	Machines []MachineDef `yaml:"machines"`
}

// Load reads a machines.yaml. When schemaPath is set, the document is first
// validated against that JSON schema.
func Load(path, schemaPath string) (*Catalogs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if schemaPath != "" {
		if err := validate(raw, schemaPath); err != nil {
			return nil, fmt.Errorf("machines.yaml: %w", err)
		}
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("machines.yaml: %w", err)
	}
	c, err := FromDefs(f.Machines)
	if err != nil {
		return nil, fmt.Errorf("machines.yaml: %w", err)
	}
	return c, nil
}

// validate checks the YAML document against a JSON schema. YAML is decoded
// generically and re-read as JSON so numbers arrive as json.Number.
func validate(raw []byte, schemaPath string) error {
	sch, err := jsonschema.Compile(schemaPath)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return sch.Validate(v)
}

// FromDefs builds a catalog from already decoded definitions.
func FromDefs(defs []MachineDef) (*Catalogs, error) {
	mc := MachineCatalog{
		ByID:  make(map[string]MachineDef, len(defs)),
		specs: make(map[string]model.Spec, len(defs)),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("empty id")
		}
		if _, dup := mc.ByID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate id %q", d.ID)
		}
		s, err := d.spec()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.ID, err)
		}
		mc.ByID[d.ID] = d
		mc.specs[d.ID] = s
		mc.Defs = append(mc.Defs, d)
	}
	sort.Slice(mc.Defs, func(i, j int) bool { return mc.Defs[i].ID < mc.Defs[j].ID })
	canon, _ := json.Marshal(mc.Defs)
	mc.Digest = sha256Hex(canon)
	return &Catalogs{Machines: mc}, nil
}

func (d MachineDef) spec() (model.Spec, error) {
	s := model.Spec{
		Type:     d.ID,
		Name:     d.Name,
		Kind:     model.Kind(strings.ToUpper(d.Kind)),
		Size:     dirs.VecOf(d.Size),
		Rule:     d.Rule,
		Interval: d.Interval,
		Duration: d.Duration,
		Speed:    d.Speed,
	}
	if s.Size.X <= 0 || s.Size.Y <= 0 {
		return s, fmt.Errorf("size %v must be positive", d.Size)
	}
	for i, p := range d.Ports {
		ps, err := p.spec()
		if err != nil {
			return s, fmt.Errorf("port %d: %w", i, err)
		}
		if !s.Size.Contains(ps.Offset) {
			return s, fmt.Errorf("port %d: offset %v outside %dx%d footprint", i, p.Offset, s.Size.X, s.Size.Y)
		}
		s.Ports = append(s.Ports, ps)
	}
	count := func(k model.PortKind) int {
		n := 0
		for _, p := range s.Ports {
			if p.Kind == k {
				n++
			}
		}
		return n
	}
	switch s.Kind {
	case model.KindConveyor:
		if s.Size != (dirs.Vec{X: 1, Y: 1}) || len(s.Ports) != 0 {
			return s, fmt.Errorf("conveyor must be 1x1 with derived ports")
		}
	case model.KindGenerator:
		if count(model.PortOutput) == 0 || count(model.PortInput) != 0 {
			return s, fmt.Errorf("generator needs output ports only")
		}
	case model.KindLogic:
		if count(model.PortInput) == 0 || count(model.PortOutput) == 0 {
			return s, fmt.Errorf("logic machine needs inputs and an output")
		}
		rule := s.Rule
		if rule == "" {
			rule = "relay"
		}
		if _, err := model.LookupRule(rule); err != nil {
			return s, err
		}
	case model.KindCollector:
		if count(model.PortOutput) != 0 {
			return s, fmt.Errorf("collector cannot have outputs")
		}
	default:
		return s, fmt.Errorf("unknown kind %q", d.Kind)
	}
	return s, nil
}

func (p PortDef) spec() (model.PortSpec, error) {
	var ps model.PortSpec
	switch strings.ToLower(p.Kind) {
	case "input":
		ps.Kind = model.PortInput
	case "output":
		ps.Kind = model.PortOutput
	default:
		return ps, fmt.Errorf("unknown port kind %q", p.Kind)
	}
	f, err := dirs.Parse(p.Facing)
	if err != nil {
		return ps, err
	}
	ps.Facing = f
	ps.Offset = dirs.VecOf(p.Offset)
	return ps, nil
}

// ApplyTuning fills per-type timing left unset in the catalog.
func (c *Catalogs) ApplyTuning(t tuning.Tuning) {
	for id, s := range c.Machines.specs {
		switch s.Kind {
		case model.KindConveyor:
			if s.Speed <= 0 {
				s.Speed = t.BeltSpeed
			}
		case model.KindGenerator:
			if s.Interval <= 0 {
				s.Interval = t.GeneratorInterval
			}
		case model.KindLogic:
			if s.Duration <= 0 {
				s.Duration = t.LogicDuration
			}
		}
		c.Machines.specs[id] = s
	}
}

func (c *Catalogs) Spec(id string) (model.Spec, bool) {
	if c == nil {
		return model.Spec{}, false
	}
	s, ok := c.Machines.specs[id]
	return s, ok
}

// New builds an unplaced machine of catalog type id.
func (c *Catalogs) New(id string, rot int) (model.Machine, error) {
	s, ok := c.Spec(id)
	if !ok {
		return nil, fmt.Errorf("unknown machine type %q", id)
	}
	return model.New(s, rot)
}

// FromData rebuilds a persisted machine using its catalog type.
func (c *Catalogs) FromData(d model.Data) (model.Machine, error) {
	s, ok := c.Spec(d.Type)
	if !ok {
		return nil, fmt.Errorf("unknown machine type %q", d.Type)
	}
	return model.FromData(s, d)
}

// IDs lists catalog types in sorted order.
func (c *Catalogs) IDs() []string {
	out := make([]string, 0, len(c.Machines.Defs))
	for _, d := range c.Machines.Defs {
		out = append(out, d.ID)
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
