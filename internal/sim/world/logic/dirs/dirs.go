package dirs

import "fmt"

// Dir is one of the four grid directions. Screen coordinates: y grows downward.
type Dir uint8

const (
	East Dir = iota
	South
	West
	North
)

// All lists the directions in clockwise order starting at East.
var All = [4]Dir{East, South, West, North}

var dirNames = [4]string{"EAST", "SOUTH", "WEST", "NORTH"}

var dirVecs = [4]Vec{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

func (d Dir) Valid() bool { return d <= North }

func (d Dir) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Dir(%d)", uint8(d))
	}
	return dirNames[d]
}

// Vec returns the unit step toward d.
func (d Dir) Vec() Vec {
	if !d.Valid() {
		panic(fmt.Sprintf("dirs: invalid direction %d", uint8(d)))
	}
	return dirVecs[d]
}

func (d Dir) Opposite() Dir { return d.Rotate(2) }

// Rotate turns d by n quarter turns clockwise (E->S->W->N). n may be negative.
func (d Dir) Rotate(n int) Dir {
	return Dir((int(d) + NormalizeRotation(n)) % 4)
}

// FromRotation is the direction a default west-to-east belt outputs to at rotation r.
func FromRotation(r int) Dir { return East.Rotate(r) }

// Parse accepts the upper-case names produced by String, plus the single letters N/S/E/W.
func Parse(s string) (Dir, error) {
	switch s {
	case "EAST", "E":
		return East, nil
	case "SOUTH", "S":
		return South, nil
	case "WEST", "W":
		return West, nil
	case "NORTH", "N":
		return North, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// NormalizeRotation converts a rotation value into a quarter-turn count in [0,3].
//
// Either quarter-turns or degrees (multiples of 90) are accepted.
func NormalizeRotation(r int) int {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}
