package beltconnect

import "proofline.ai/internal/sim/world/logic/dirs"

type Kind string

const (
	KindStraight  Kind = "STRAIGHT"
	KindCurve     Kind = "CURVE"
	KindMerge     Kind = "MERGE"
	KindSplit     Kind = "SPLIT"
	KindCross     Kind = "CROSS"
	KindIrregular Kind = "IRREGULAR"
)

// Shape is the presentation class of a belt. Routing never reads it.
type Shape struct {
	Kind    Kind
	Variant string
	Mirror  bool

	// Directions (local frame) whose port has no peer.
	DanglingIn  dirs.Set
	DanglingOut dirs.Set
}

type shapeKey struct {
	in  dirs.Set
	out dirs.Set
}

const (
	dW = dirs.West
	dN = dirs.North
	dS = dirs.South
	dE = dirs.East
)

func key(in []dirs.Dir, out []dirs.Dir) shapeKey {
	return shapeKey{in: dirs.SetOf(in...), out: dirs.SetOf(out...)}
}

// shapes is keyed by the local (inputs, outputs) pair. Mirrored entries reuse
// the same sprite flipped across the belt axis.
var shapes = map[shapeKey]Shape{
	// (1,1)
	key([]dirs.Dir{dW}, []dirs.Dir{dE}): {Kind: KindStraight, Variant: "straight"},
	key([]dirs.Dir{dN}, []dirs.Dir{dE}): {Kind: KindCurve, Variant: "curve"},
	key([]dirs.Dir{dS}, []dirs.Dir{dE}): {Kind: KindCurve, Variant: "curve", Mirror: true},

	// (2,1)
	key([]dirs.Dir{dW, dN}, []dirs.Dir{dE}): {Kind: KindMerge, Variant: "merge_side"},
	key([]dirs.Dir{dW, dS}, []dirs.Dir{dE}): {Kind: KindMerge, Variant: "merge_side", Mirror: true},
	key([]dirs.Dir{dN, dS}, []dirs.Dir{dE}): {Kind: KindMerge, Variant: "merge_tee"},

	// (1,2)
	key([]dirs.Dir{dW}, []dirs.Dir{dE, dN}): {Kind: KindSplit, Variant: "split_side"},
	key([]dirs.Dir{dW}, []dirs.Dir{dE, dS}): {Kind: KindSplit, Variant: "split_side", Mirror: true},
	key([]dirs.Dir{dN}, []dirs.Dir{dE, dS}): {Kind: KindSplit, Variant: "split_through"},
	key([]dirs.Dir{dS}, []dirs.Dir{dE, dN}): {Kind: KindSplit, Variant: "split_through", Mirror: true},

	// (3,1), (1,3), (2,2)
	key([]dirs.Dir{dW, dN, dS}, []dirs.Dir{dE}): {Kind: KindCross, Variant: "cross_merge"},
	key([]dirs.Dir{dW}, []dirs.Dir{dE, dN, dS}): {Kind: KindCross, Variant: "cross_split"},
	key([]dirs.Dir{dW, dN}, []dirs.Dir{dE, dS}): {Kind: KindCross, Variant: "cross"},
	key([]dirs.Dir{dW, dS}, []dirs.Dir{dE, dN}): {Kind: KindCross, Variant: "cross", Mirror: true},
}

// Classify looks up the shape for the given local direction sets.
func Classify(st State) Shape {
	sh, ok := shapes[shapeKey{in: st.Inputs, out: st.Outputs}]
	if !ok {
		sh = Shape{Kind: KindIrregular, Variant: "irregular"}
	}
	sh.DanglingIn = st.Inputs &^ st.LinkedIn
	sh.DanglingOut = st.Outputs &^ st.LinkedOut
	return sh
}

// String is the compact form used by observers, e.g. "CURVE/curve~".
func (sh Shape) String() string {
	v := string(sh.Kind) + "/" + sh.Variant
	if sh.Mirror {
		v += "~"
	}
	return v
}
