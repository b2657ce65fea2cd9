// Package skeleton builds full and reduced joint-tree skeletons used to
// template an embedding.
package skeleton

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Graph is a simple undirected adjacency-list graph over joint positions,
// shared by the full and reduced representations.
type Graph struct {
	Verts []r3.Vec
	Edges [][]int
}

// Skeleton holds a full joint tree and its reduced (chain-compressed)
// counterpart, plus the maps between them.
type Skeleton struct {
	// full graph: one vertex per named joint.
	fGraph Graph
	fPrev  []int
	fSym   []int

	// reduced ("compressed") graph: chains of degree-2 joints collapsed,
	// one edge per bone.
	cGraph Graph
	cPrev  []int
	cSym   []int
	cFeet  []bool
	cFat   []bool

	cfMap      []int     // full index -> reduced index, or -1
	fcMap      []int     // reduced index -> full index
	fcFraction []float64 // full vertex's share of its containing bone's length
	cLength    []float64 // reduced bone length

	jointNames map[string]int
}

func newSkeleton() *Skeleton {
	return &Skeleton{jointNames: make(map[string]int)}
}

// FullGraph returns the full joint tree.
func (s *Skeleton) FullGraph() Graph { return s.fGraph }

// FullParent returns the parent full-joint index, or -1 for the root.
func (s *Skeleton) FullParent(i int) int { return s.fPrev[i] }

// FullSymmetry returns the symmetric partner full-joint index, or -1.
func (s *Skeleton) FullSymmetry(i int) int { return s.fSym[i] }

// ReducedGraph returns the chain-compressed joint tree; each edge is a
// bone.
func (s *Skeleton) ReducedGraph() Graph { return s.cGraph }

// ReducedParent returns the parent reduced-joint index, or -1 for the root.
func (s *Skeleton) ReducedParent(i int) int { return s.cPrev[i] }

// ReducedSymmetry returns the symmetric partner reduced-joint index, or -1.
func (s *Skeleton) ReducedSymmetry(i int) int { return s.cSym[i] }

// IsFoot reports whether reduced joint i is tagged "foot".
func (s *Skeleton) IsFoot(i int) bool { return s.cFeet[i] }

// IsFat reports whether reduced joint i is tagged "fat".
func (s *Skeleton) IsFat(i int) bool { return s.cFat[i] }

// NumBones is the number of bones (reduced-graph non-root joints).
func (s *Skeleton) NumBones() int { return len(s.cGraph.Verts) - 1 }

// FullToReduced maps a full-joint index to its reduced-joint index, or -1
// if the joint is interior to a collapsed chain.
func (s *Skeleton) FullToReduced(full int) int { return s.cfMap[full] }

// ReducedToFull maps a reduced-joint index to its full-joint index.
func (s *Skeleton) ReducedToFull(reduced int) int { return s.fcMap[reduced] }

// FullFraction returns the full joint's share of its containing bone's
// total length.
func (s *Skeleton) FullFraction(full int) float64 { return s.fcFraction[full] }

// BoneLength returns the reduced bone's length (cLength).
func (s *Skeleton) BoneLength(reduced int) float64 { return s.cLength[reduced] }

// makeJoint adds a named full joint at pos (halved on insert, since
// skeletons are specified in [-1,1] and fit to an object normalized to
// [0,1]), with an optional parent name ("" for the root).
func (s *Skeleton) makeJoint(name string, pos r3.Vec, parent string) {
	cur := len(s.fSym)
	s.fSym = append(s.fSym, -1)
	s.fGraph.Verts = append(s.fGraph.Verts, r3.Scale(0.5, pos))
	s.fGraph.Edges = append(s.fGraph.Edges, nil)
	s.jointNames[name] = cur

	if parent == "" {
		s.fPrev = append(s.fPrev, -1)
		return
	}
	prev, ok := s.jointNames[parent]
	if !ok {
		panic(fmt.Sprintf("skeleton: unknown parent joint %q", parent))
	}
	s.fGraph.Edges[cur] = append(s.fGraph.Edges[cur], prev)
	s.fGraph.Edges[prev] = append(s.fGraph.Edges[prev], cur)
	s.fPrev = append(s.fPrev, prev)
}

// makeSymmetric marks two full joints as mirror partners; the partner
// with the smaller index is recorded on the larger.
func (s *Skeleton) makeSymmetric(name1, name2 string) {
	i1, i2 := s.jointNames[name1], s.jointNames[name2]
	if i1 > i2 {
		i1, i2 = i2, i1
	}
	s.fSym[i2] = i1
}

func (s *Skeleton) setFoot(name string) {
	s.cFeet[s.cfMap[s.jointNames[name]]] = true
}

func (s *Skeleton) setFat(name string) {
	s.cFat[s.cfMap[s.jointNames[name]]] = true
}

// initCompressed builds the reduced graph by collapsing maximal chains of
// degree-2 non-root joints, computing bone lengths and each full vertex's
// fractional position along its containing bone.
func (s *Skeleton) initCompressed() {
	n := len(s.fPrev)
	s.cfMap = make([]int, n)
	s.fcFraction = make([]float64, n)
	for i := range s.cfMap {
		s.cfMap[i] = -1
		s.fcFraction[i] = -1
	}

	for i := 0; i < n; i++ {
		if len(s.fGraph.Edges[i]) == 2 && i != 0 {
			continue
		}
		s.cfMap[i] = len(s.fcMap)
		s.fcMap = append(s.fcMap, i)
	}

	nc := len(s.fcMap)
	s.cPrev = make([]int, nc)
	s.cSym = make([]int, nc)
	s.cGraph.Edges = make([][]int, nc)
	s.cFeet = make([]bool, nc)
	s.cFat = make([]bool, nc)
	for i := range s.cPrev {
		s.cPrev[i] = -1
		s.cSym[i] = -1
	}

	for i := 0; i < nc; i++ {
		s.cGraph.Verts = append(s.cGraph.Verts, s.fGraph.Verts[s.fcMap[i]])

		if sym := s.fSym[s.fcMap[i]]; sym >= 0 {
			s.cSym[i] = s.cfMap[sym]
		}

		if i > 0 {
			curPrev := s.fPrev[s.fcMap[i]]
			for s.cfMap[curPrev] < 0 {
				curPrev = s.fPrev[curPrev]
			}
			s.cPrev[i] = s.cfMap[curPrev]
		}
	}

	for i := 1; i < nc; i++ {
		s.cGraph.Edges[i] = append(s.cGraph.Edges[i], s.cPrev[i])
		s.cGraph.Edges[s.cPrev[i]] = append(s.cGraph.Edges[s.cPrev[i]], i)
	}

	s.cLength = make([]float64, nc)
	for i := 1; i < nc; i++ {
		cur := s.fcMap[i]
		lengths := make(map[int]float64)
		for {
			lengths[cur] = r3.Norm(r3.Sub(s.fGraph.Verts[cur], s.fGraph.Verts[s.fPrev[cur]]))
			s.cLength[i] += lengths[cur]
			cur = s.fPrev[cur]
			if s.cfMap[cur] != -1 {
				break
			}
		}
		for v, l := range lengths {
			s.fcFraction[v] = l / s.cLength[i]
		}
	}
}

// ApplyRotation maps every full- and reduced-graph joint position through
// rotate (a length-preserving map, such as a rotation about the origin);
// bone lengths are unaffected.
func (s *Skeleton) ApplyRotation(rotate func(r3.Vec) r3.Vec) {
	for i := range s.fGraph.Verts {
		s.fGraph.Verts[i] = rotate(s.fGraph.Verts[i])
	}
	for i := range s.cGraph.Verts {
		s.cGraph.Verts[i] = rotate(s.cGraph.Verts[i])
	}
}

// Scale multiplies all joint positions and bone lengths by factor.
func (s *Skeleton) Scale(factor float64) {
	for i := range s.fGraph.Verts {
		s.fGraph.Verts[i] = r3.Scale(factor, s.fGraph.Verts[i])
	}
	for i := range s.cGraph.Verts {
		s.cGraph.Verts[i] = r3.Scale(factor, s.cGraph.Verts[i])
		s.cLength[i] *= factor
	}
}
