// Package field provides a signed-distance query over a triangle mesh,
// backed by a kd-tree nearest-triangle search, together with an octree
// used to cull empty space and a line-of-sight visibility tester used
// during heat-weight attachment.
package field

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/mesh"
)

// Field answers nearest-point and signed-distance queries against a
// mesh surface.
type Field struct {
	tree *kdtree.Tree
	tris kdTriangles
	log  *zap.Logger
}

// New builds a Field over m's triangulated surface.
func New(m *mesh.Mesh, log *zap.Logger) *Field {
	if log == nil {
		log = zap.NewNop()
	}
	tris := meshTriangles(m)
	tree := kdtree.New(tris, false)
	return &Field{tree: tree, tris: tris, log: log}
}

func meshTriangles(m *mesh.Mesh) kdTriangles {
	var out kdTriangles
	for e := 0; e < len(m.Edges); e += 3 {
		v0 := m.Edges[e].Vertex
		v1 := m.Edges[e+1].Vertex
		v2 := m.Edges[e+2].Vertex
		out = append(out, kdTriangle{V: [3]r3.Vec{m.Vertices[v0].Pos, m.Vertices[v1].Pos, m.Vertices[v2].Pos}})
	}
	return out
}

// Nearest returns the closest point to p on the triangle whose centroid
// is nearest to p, and that triangle's outward normal. The kd-tree ranks
// triangles by centroid distance, so a large triangle whose surface is
// closer than another triangle's centroid is not guaranteed to win.
func (f *Field) Nearest(p r3.Vec) (point, normal r3.Vec) {
	query := kdTriangle{V: [3]r3.Vec{p, p, p}}
	got, _ := f.tree.Nearest(query)
	if got == nil {
		return p, r3.Vec{}
	}
	bestTri := got.(kdTriangle)
	return bestTri.closestPoint(p), bestTri.normal()
}

// Evaluate returns the signed distance from p to the surface: negative
// inside, positive outside, sign determined by the nearest triangle's
// outward-facing normal.
func (f *Field) Evaluate(p r3.Vec) float64 {
	point, normal := f.Nearest(p)
	d := r3.Norm(r3.Sub(p, point))
	if r3.Dot(r3.Sub(p, point), normal) < 0 {
		return -d
	}
	return d
}

// Bounds returns the axis-aligned bounding box of the underlying mesh
// surface.
func (f *Field) Bounds() (lo, hi r3.Vec) {
	b := f.tris.Bounds()
	lo, hi = b.Min.(kdTriangle).V[0], b.Max.(kdTriangle).V[0]
	return lo, hi
}
