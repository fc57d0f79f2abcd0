package dirs

import "fmt"

// Vec is a signed integer grid coordinate or offset.
type Vec struct {
	X int
	Y int
}

func (v Vec) Add(o Vec) Vec       { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec) Step(d Dir) Vec      { return v.Add(d.Vec()) }
func (v Vec) ToArray() [2]int     { return [2]int{v.X, v.Y} }
func (v Vec) String() string      { return fmt.Sprintf("(%d,%d)", v.X, v.Y) }
func VecOf(a [2]int) Vec          { return Vec{X: a[0], Y: a[1]} }
func (v Vec) Swap() Vec           { return Vec{X: v.Y, Y: v.X} }
func (v Vec) Contains(p Vec) bool { return p.X >= 0 && p.Y >= 0 && p.X < v.X && p.Y < v.Y }

// RotatedSize is the footprint of a base w×h size after rot quarter turns.
func RotatedSize(size Vec, rot int) Vec {
	if NormalizeRotation(rot)%2 == 1 {
		return size.Swap()
	}
	return size
}

// RotateOffset maps an offset inside a base-orientation footprint of the given
// size to the offset it occupies after rot clockwise quarter turns. The result
// always lies inside RotatedSize(size, rot).
func RotateOffset(off Vec, size Vec, rot int) Vec {
	w, h := size.X, size.Y
	switch NormalizeRotation(rot) {
	case 1:
		return Vec{X: h - 1 - off.Y, Y: off.X}
	case 2:
		return Vec{X: w - 1 - off.X, Y: h - 1 - off.Y}
	case 3:
		return Vec{X: off.Y, Y: w - 1 - off.X}
	default:
		return off
	}
}
