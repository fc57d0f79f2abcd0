package beltconnect

import "proofline.ai/internal/sim/world/logic/dirs"

// State is a belt's connectivity in its own unrotated frame: a default belt
// takes from WEST and delivers to EAST regardless of rotation.
type State struct {
	Rotation int
	Inputs   dirs.Set
	Outputs  dirs.Set

	// Directions whose port currently has a peer.
	LinkedIn  dirs.Set
	LinkedOut dirs.Set
}

// Outlet is the world geometry of a non-belt machine's output port.
type Outlet struct {
	Pos dirs.Vec
	Dir dirs.Dir
}

// Neighbor is what the recompute needs to know about an adjacent machine.
type Neighbor struct {
	Belt bool

	// Belt neighbors.
	Rotation int
	Inputs   dirs.Set
	Outputs  dirs.Set

	// Non-belt neighbors.
	Outlets []Outlet
}

// Snapshot holds the neighbor in each world direction (nil when empty or not considered).
type Snapshot [4]*Neighbor

// Recompute derives a belt's input/output directions from its neighbors.
//
// It starts from the sets already in s, so directions acquired earlier survive
// an update seeded with a single neighbor.
func Recompute(s State, origin dirs.Vec, snap Snapshot) State {
	in, out := s.Inputs, s.Outputs
	var feeders dirs.Set

	for _, wd := range dirs.All {
		n := snap[wd]
		if n == nil {
			continue
		}
		d := wd.Rotate(-s.Rotation)
		if n.Belt {
			delta := n.Rotation - s.Rotation
			nOut := n.Outputs.Rotate(delta)
			nIn := n.Inputs.Rotate(delta)
			if nOut.Has(d.Opposite()) {
				feeders = feeders.Add(d)
				// EAST is the forward output; a belt pushing into it head-on is a collision.
				if d != dirs.East {
					in = in.Add(d)
				}
			}
			if nIn.Has(d.Opposite()) && d != dirs.West {
				out = out.Add(d)
			}
			continue
		}
		if d != dirs.North && d != dirs.South {
			continue
		}
		if outletReaches(n.Outlets, origin, wd) || outletReaches(n.Outlets, origin, wd.Opposite()) {
			feeders = feeders.Add(d)
			in = in.Add(d)
		}
	}

	if in.Empty() {
		in = dirs.SetOf(dirs.West)
	}
	out = out.Add(dirs.East)

	switch {
	case !in.Has(dirs.West):
		if out.Len() > 1 || in.Len() > 1 {
			in = in.Add(dirs.West)
		}
	case in.Len() == 2 && out.Len() == 1 && (in.Has(dirs.North) || in.Has(dirs.South)):
		if !s.LinkedIn.Has(dirs.West) && !feeders.Has(dirs.West) {
			in = in.Remove(dirs.West)
		}
	}

	s.Inputs, s.Outputs = in, out
	return s
}

// Strip drops every direction whose port is not linked. Used before
// re-evaluating a neighbor after something was placed next to it.
func Strip(s State) State {
	s.Inputs = s.Inputs.Intersect(s.LinkedIn)
	s.Outputs = s.Outputs.Intersect(s.LinkedOut)
	return s
}

// outletReaches reports whether any outlet could link to an input port at
// origin facing facing.
func outletReaches(outlets []Outlet, origin dirs.Vec, facing dirs.Dir) bool {
	for _, o := range outlets {
		if o.Dir == facing.Opposite() && o.Pos.Step(o.Dir) == origin {
			return true
		}
	}
	return false
}

// World converts a local direction of a belt at rotation rot to world terms.
func World(local dirs.Dir, rot int) dirs.Dir { return local.Rotate(rot) }

// Local converts a world direction to a belt's local frame.
func Local(world dirs.Dir, rot int) dirs.Dir { return world.Rotate(-rot) }
