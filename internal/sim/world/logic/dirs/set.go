package dirs

import "strings"

// Set is a set of directions stored as a 4-bit mask.
type Set uint8

func SetOf(ds ...Dir) Set {
	var s Set
	for _, d := range ds {
		s = s.Add(d)
	}
	return s
}

func (s Set) Add(d Dir) Set    { return s | 1<<d }
func (s Set) Remove(d Dir) Set { return s &^ (1 << d) }
func (s Set) Has(d Dir) bool   { return s&(1<<d) != 0 }
func (s Set) Empty() bool      { return s&0xF == 0 }

func (s Set) Len() int {
	n := 0
	for _, d := range All {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Rotate turns every member by n quarter turns clockwise.
func (s Set) Rotate(n int) Set {
	var out Set
	for _, d := range All {
		if s.Has(d) {
			out = out.Add(d.Rotate(n))
		}
	}
	return out
}

func (s Set) Union(o Set) Set     { return (s | o) & 0xF }
func (s Set) Intersect(o Set) Set { return s & o & 0xF }

// Slice returns the members in clockwise order starting at East.
func (s Set) Slice() []Dir {
	out := make([]Dir, 0, 4)
	for _, d := range All {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s Set) String() string {
	parts := make([]string, 0, 4)
	for _, d := range s.Slice() {
		parts = append(parts, d.String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Strings is the stable string form used in snapshots and observer messages.
func (s Set) Strings() []string {
	out := make([]string, 0, 4)
	for _, d := range s.Slice() {
		out = append(out, d.String())
	}
	return out
}

func ParseSet(names []string) (Set, error) {
	var s Set
	for _, n := range names {
		d, err := Parse(n)
		if err != nil {
			return 0, err
		}
		s = s.Add(d)
	}
	return s, nil
}
