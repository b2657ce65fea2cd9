// Package mesh builds and validates half-edge triangle meshes from several
// ASCII formats.
package mesh

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vertex is a mesh vertex: position, unit normal, and one outgoing
// half-edge index.
type Vertex struct {
	Pos    r3.Vec
	Normal r3.Vec
	Edge   int
}

// HalfEdge is a directed edge belonging to exactly one triangle. Next
// within the triangle is always Prev.Prev since every face is a triangle.
type HalfEdge struct {
	Vertex int // target vertex
	Prev   int
	Twin   int
}

// Mesh is an arena-indexed half-edge mesh plus the normalization applied
// to the originally-read coordinates.
type Mesh struct {
	Vertices []Vertex
	Edges    []HalfEdge

	// Scale and Offset record the normalization applied by
	// NormalizeBoundingBox: normalized = Offset + Scale*original.
	Scale  float64
	Offset r3.Vec

	log *zap.Logger
}

// New returns an empty mesh with the given logger (nil is treated as a
// no-op logger).
func New(log *zap.Logger) *Mesh {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mesh{Scale: 1, log: log}
}

// UnnormalizePoint maps a point in the normalized [0.05,0.95]^3 frame back
// to the original coordinate frame the mesh was read in.
func (m *Mesh) UnnormalizePoint(p r3.Vec) r3.Vec {
	return r3.Scale(1/m.Scale, r3.Sub(p, m.Offset))
}

// NormalizePoint maps a point from the original coordinate frame into the
// normalized frame, mirroring NormalizeBoundingBox.
func (m *Mesh) NormalizePoint(p r3.Vec) r3.Vec {
	return r3.Add(m.Offset, r3.Scale(m.Scale, p))
}

// addTriangle appends three half-edges for a triangle referencing vertex
// indices a, b, c (0-based).
func (m *Mesh) addTriangle(a, b, c int) {
	first := len(m.Edges)
	m.Edges = append(m.Edges, HalfEdge{Vertex: a}, HalfEdge{Vertex: b}, HalfEdge{Vertex: c})
	_ = first
}

// ComputeTopology assigns Prev/Twin indices and each vertex's outgoing
// Edge, given Edges already populated with one triangle's three vertices
// per group of three. Fails with ErrDuplicateEdge if the same directed
// (u,v) pair appears twice.
func (m *Mesh) ComputeTopology() error {
	for i := range m.Edges {
		tri := i - i%3
		m.Edges[i].Prev = tri + (i+2)%3
	}

	type key struct{ u, v int }
	halfEdgeMap := make(map[key]int, len(m.Edges))
	for i := range m.Edges {
		v1 := m.Edges[i].Vertex
		v2 := m.Edges[m.Edges[i].Prev].Vertex

		m.Vertices[v1].Edge = m.Edges[m.Edges[i].Prev].Prev

		k := key{v1, v2}
		if _, dup := halfEdgeMap[k]; dup {
			m.log.Error("duplicate half-edge", zap.Int("from", v1), zap.Int("to", v2))
			return fmt.Errorf("%w: %d -> %d", ErrDuplicateEdge, v1, v2)
		}
		halfEdgeMap[k] = i
		if twin, ok := halfEdgeMap[key{v2, v1}]; ok {
			m.Edges[twin].Twin = i
			m.Edges[i].Twin = twin
		}
	}
	return nil
}

// ComputeVertexNormals recomputes every vertex normal as the unit-length
// sum of incident, unweighted face normals. Deliberately not area- or
// angle-weighted.
func (m *Mesh) ComputeVertexNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = r3.Vec{}
	}
	for i := 0; i < len(m.Edges); i += 3 {
		i1 := m.Edges[i].Vertex
		i2 := m.Edges[i+1].Vertex
		i3 := m.Edges[i+2].Vertex
		n := r3.Unit(r3.Cross(
			r3.Sub(m.Vertices[i2].Pos, m.Vertices[i1].Pos),
			r3.Sub(m.Vertices[i3].Pos, m.Vertices[i1].Pos),
		))
		m.Vertices[i1].Normal = r3.Add(m.Vertices[i1].Normal, n)
		m.Vertices[i2].Normal = r3.Add(m.Vertices[i2].Normal, n)
		m.Vertices[i3].Normal = r3.Add(m.Vertices[i3].Normal, n)
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = r3.Unit(m.Vertices[i].Normal)
	}
}

// NormalizeBoundingBox scales and translates the mesh so it lies in
// [0.05,0.95]^3, accumulating the transform into Scale/Offset.
func (m *Mesh) NormalizeBoundingBox() {
	if len(m.Vertices) == 0 {
		return
	}
	lo, hi := m.Vertices[0].Pos, m.Vertices[0].Pos
	for _, v := range m.Vertices {
		lo = r3.Vec{X: min(lo.X, v.Pos.X), Y: min(lo.Y, v.Pos.Y), Z: min(lo.Z, v.Pos.Z)}
		hi = r3.Vec{X: max(hi.X, v.Pos.X), Y: max(hi.Y, v.Pos.Y), Z: max(hi.Z, v.Pos.Z)}
	}
	size := r3.Sub(hi, lo)
	maxExtent := max(size.X, max(size.Y, size.Z))
	cscale := 0.9 / maxExtent
	center := r3.Scale(0.5, r3.Add(lo, hi))
	cToAdd := r3.Sub(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Scale(cscale, center))

	for i := range m.Vertices {
		m.Vertices[i].Pos = r3.Add(cToAdd, r3.Scale(cscale, m.Vertices[i].Pos))
	}
	m.Offset = r3.Add(cToAdd, r3.Scale(cscale, m.Offset))
	m.Scale *= cscale
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

type mface [3]int

func sortedFace(a, b, c int) mface {
	f := mface{a, b, c}
	sort.Ints(f[:])
	return f
}

// FixDupFaces removes pairwise-duplicate triangles (as unordered vertex
// triples) and compacts away any now-unreferenced vertices.
func (m *Mesh) FixDupFaces() {
	seen := make(map[mface]int) // value -1 marks "removed", else holds edge index
	for i := 0; i < len(m.Edges); i += 3 {
		cur := sortedFace(m.Edges[i].Vertex, m.Edges[i+1].Vertex, m.Edges[i+2].Vertex)
		oth, ok := seen[cur]
		if !ok {
			seen[cur] = i
			continue
		}
		if oth == -1 {
			seen[cur] = i
			continue
		}
		seen[cur] = -1
		newOth := len(m.Edges) - 6
		newCur := len(m.Edges) - 3

		copy(m.Edges[oth:oth+3], m.Edges[newOth:newOth+3])
		copy(m.Edges[i:i+3], m.Edges[newCur:newCur+3])

		newOthF := sortedFace(m.Edges[newOth].Vertex, m.Edges[newOth+1].Vertex, m.Edges[newOth+2].Vertex)
		seen[newOthF] = newOth

		m.Edges = m.Edges[:len(m.Edges)-6]
		i -= 3
	}

	referenced := make(map[int]bool)
	for _, e := range m.Edges {
		if e.Vertex >= 0 && e.Vertex < len(m.Vertices) {
			referenced[e.Vertex] = true
		}
	}
	newIdx := make([]int, len(m.Vertices))
	for i := range newIdx {
		newIdx[i] = -1
	}
	cur := 0
	for i := range m.Vertices {
		if referenced[i] {
			newIdx[i] = cur
			cur++
		}
	}
	for i := range m.Edges {
		if m.Edges[i].Vertex >= 0 && m.Edges[i].Vertex < len(newIdx) {
			m.Edges[i].Vertex = newIdx[m.Edges[i].Vertex]
		}
	}
	compact := make([]Vertex, cur)
	for i, v := range m.Vertices {
		if newIdx[i] >= 0 {
			compact[newIdx[i]] = v
		}
	}
	m.Vertices = compact
}

// Ring returns vertex i's 1-ring neighbors in order, walking outgoing
// half-edges the same way IsConnected does.
func (m *Mesh) Ring(i int) []int {
	start := m.Vertices[i].Edge
	cur := start
	var out []int
	for {
		cur = m.Edges[m.Edges[cur].Prev].Twin
		out = append(out, m.Edges[cur].Vertex)
		if cur == start {
			break
		}
	}
	return out
}

// IsConnected reports whether every vertex is reachable from vertex 0 by
// walking half-edges.
func (m *Mesh) IsConnected() bool {
	if len(m.Vertices) == 0 {
		return false
	}
	reached := make([]bool, len(m.Vertices))
	todo := []int{0}
	reached[0] = true
	count := 1
	for i := 0; i < len(todo); i++ {
		start := m.Vertices[todo[i]].Edge
		cur := start
		for {
			cur = m.Edges[m.Edges[cur].Prev].Twin
			v := m.Edges[cur].Vertex
			if !reached[v] {
				reached[v] = true
				count++
				todo = append(todo, v)
			}
			if cur == start {
				break
			}
		}
	}
	return count == len(m.Vertices)
}

// IntegrityCheck verifies all half-edge invariants from the data model:
// index ranges, triangle 3-cycles, twin consistency, and that edges
// walking around each vertex form a single manifold cycle.
func (m *Mesh) IntegrityCheck() error {
	vs, es := len(m.Vertices), len(m.Edges)
	if vs == 0 {
		if es != 0 {
			return fmt.Errorf("%w: no vertices but %d edges", ErrNonManifold, es)
		}
		return nil
	}
	if es == 0 {
		return fmt.Errorf("%w: vertices but no edges", ErrNonManifold)
	}

	check := func(pred bool, msg string) error {
		if !pred {
			m.log.Error("mesh integrity error", zap.String("predicate", msg))
			return fmt.Errorf("%w: %s", ErrNonManifold, msg)
		}
		return nil
	}

	for i, v := range m.Vertices {
		if err := check(v.Edge >= 0 && v.Edge < es, fmt.Sprintf("vertex %d edge in range", i)); err != nil {
			return err
		}
	}
	for i, e := range m.Edges {
		if err := check(e.Vertex >= 0 && e.Vertex < vs, fmt.Sprintf("edge %d vertex in range", i)); err != nil {
			return err
		}
		if err := check(e.Prev >= 0 && e.Prev < es, fmt.Sprintf("edge %d prev in range", i)); err != nil {
			return err
		}
		if err := check(e.Twin >= 0 && e.Twin < es, fmt.Sprintf("edge %d twin in range", i)); err != nil {
			return err
		}
	}
	for i, e := range m.Edges {
		if err := check(e.Prev != i, "no self-loops"); err != nil {
			return err
		}
		if err := check(m.Edges[m.Edges[e.Prev].Prev].Prev == i, "triangles only"); err != nil {
			return err
		}
		if err := check(e.Twin != i, "no self-twins"); err != nil {
			return err
		}
		if err := check(m.Edges[e.Twin].Twin == i, "twins are mutual"); err != nil {
			return err
		}
		if err := check(m.Edges[e.Twin].Vertex == m.Edges[e.Prev].Vertex, "twin/prev vertex match"); err != nil {
			return err
		}
	}
	for i := range m.Vertices {
		if err := check(m.Edges[m.Edges[m.Vertices[i].Edge].Prev].Vertex == i, "vertex edge pointer correct"); err != nil {
			return err
		}
	}

	edgeCount := make([]int, vs)
	for _, e := range m.Edges {
		edgeCount[e.Vertex]++
	}
	for i := range m.Vertices {
		start := m.Vertices[i].Edge
		cur := start
		count := 0
		for {
			cur = m.Edges[m.Edges[cur].Prev].Twin
			count++
			if cur == start || count > edgeCount[i] {
				break
			}
		}
		if err := check(count == edgeCount[i], "non-manifold vertex"); err != nil {
			return err
		}
	}
	return nil
}
