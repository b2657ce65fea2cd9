package field

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Octree is a coarse spatial index over a Field's signed distance,
// built by recursive cube subdivision in the manner of a marching-cubes
// renderer: a cube is evaluated at its center, and subdivided only while
// the surface might still pass through it (the sampled distance is
// smaller than the cube's half-diagonal) down to a minimum cell size.
type Octree struct {
	root *octNode
	min  float64 // smallest cell half-size reached
}

type octNode struct {
	center r3.Vec
	half   float64
	dist   float64 // field.Evaluate(center)
	kids   [8]*octNode
}

// BuildOctree samples f over the cube centered at center with half-width
// half, subdividing cells whose sampled distance is smaller than the
// cell's half-diagonal (the surface may pass through) until cells reach
// minHalf.
func BuildOctree(f *Field, center r3.Vec, half, minHalf float64) *Octree {
	return &Octree{root: buildNode(f, center, half, minHalf), min: minHalf}
}

func buildNode(f *Field, center r3.Vec, half, minHalf float64) *octNode {
	n := &octNode{center: center, half: half, dist: f.Evaluate(center)}
	if half <= minHalf {
		return n
	}
	diag := half * 1.7320508075688772 // sqrt(3)
	if absf(n.dist) >= diag {
		// cube is entirely inside or entirely outside the surface.
		return n
	}
	childHalf := half / 2
	for i := 0; i < 8; i++ {
		sx, sy, sz := 1.0, 1.0, 1.0
		if i&1 == 0 {
			sx = -1
		}
		if i&2 == 0 {
			sy = -1
		}
		if i&4 == 0 {
			sz = -1
		}
		c := r3.Add(center, r3.Vec{X: sx * childHalf, Y: sy * childHalf, Z: sz * childHalf})
		n.kids[i] = buildNode(f, c, childHalf, minHalf)
	}
	return n
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// IsEmpty reports whether the cube centered at p with half-width half is
// known, from the octree's sampling, to lie entirely outside the
// surface (field value strictly positive everywhere in the cube). For a
// cube inside the root cell with half at least the octree's minHalf it
// is a conservative query: a false negative (reporting non-empty when
// the cube is in fact empty) is possible near unsampled detail, never a
// false positive. A leaf is judged by its center sample against the
// query's half-diagonal, so a smaller query cube can be reported empty
// while part of it lies inside; a cube wholly outside the root cell is
// reported empty.
func (o *Octree) IsEmpty(p r3.Vec, half float64) bool {
	return nodeEmpty(o.root, p, half)
}

func nodeEmpty(n *octNode, p r3.Vec, half float64) bool {
	if n == nil {
		return false
	}
	d := r3.Sub(p, n.center)
	if absf(d.X) > n.half+half || absf(d.Y) > n.half+half || absf(d.Z) > n.half+half {
		return true // disjoint cubes; query region not covered, assume no overlap with surface here
	}
	if n.kids[0] == nil {
		return n.dist > half*1.7320508075688772
	}
	for _, k := range n.kids {
		if !nodeEmpty(k, p, half) {
			return false
		}
	}
	return true
}
