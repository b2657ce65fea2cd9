// Package pack implements greedy largest-sphere-first packing of a
// mesh's interior, producing a weighted proximity graph of sphere
// centers used as the candidate site set for skeleton embedding.
//
// No third-party sphere-packing or proximity-graph library exists in
// the pack this was grounded on; the candidate-site sampling follows
// the same regular-grid-over-a-bounding-box idiom used by
// soypat-sdf/render/octree_renderer.go for surface sampling, generalized
// from "sample the surface" to "sample the interior".
package pack

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/field"
)

// Sphere is one packed sphere: a candidate joint site.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

// Edge connects two sphere indices whose spheres nearly touch, weighted
// by the Euclidean distance between their centers.
type Edge struct {
	A, B   int
	Length float64
}

// Graph is the packed-sphere proximity graph: vertices are candidate
// embedding sites, edges exist between spheres within slack of
// touching.
type Graph struct {
	Spheres []Sphere
	Edges   []Edge
	adj     [][]int // adj[i] lists edge indices incident to sphere i
}

// Neighbors returns the sphere indices adjacent to sphere i.
func (g *Graph) Neighbors(i int) []int {
	out := make([]int, 0, len(g.adj[i]))
	for _, ei := range g.adj[i] {
		e := g.Edges[ei]
		if e.A == i {
			out = append(out, e.B)
		} else {
			out = append(out, e.A)
		}
	}
	return out
}

// Options configures the packing search.
type Options struct {
	CellSize  float64 // candidate grid spacing
	MinRadius float64 // stop packing once the best candidate radius falls below this
	Slack     float64 // extra clearance allowed when connecting near-touching spheres
	MaxSpheres int
}

// DefaultOptions returns packing parameters scaled for a mesh normalized
// into [0.05, 0.95]^3.
func DefaultOptions() Options {
	return Options{CellSize: 0.02, MinRadius: 0.01, Slack: 0.05, MaxSpheres: 1000}
}

type candidate struct {
	center r3.Vec
	toSurf float64 // distance to surface, fixed
	free   float64 // current available radius given placed spheres, toSurf initially
}

func maxOf(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// Pack greedily places largest-possible spheres inside f's interior
// (Evaluate < 0), starting from a regular grid of candidate sites within
// [lo, hi], until the best remaining candidate's free radius falls below
// opt.MinRadius or opt.MaxSpheres is reached. A coarse octree over the
// same bounding box fast-rejects grid cells already known to lie outside
// the surface, skipping their Evaluate call entirely.
func Pack(f *field.Field, lo, hi r3.Vec, opt Options, log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	cellHalf := opt.CellSize / 2
	center := r3.Scale(0.5, r3.Add(lo, hi))
	reach := r3.Sub(hi, lo)
	rootHalf := maxOf(reach.X, reach.Y, reach.Z) / 2
	oct := field.BuildOctree(f, center, rootHalf, cellHalf)

	var cands []*candidate
	for x := lo.X; x <= hi.X; x += opt.CellSize {
		for y := lo.Y; y <= hi.Y; y += opt.CellSize {
			for z := lo.Z; z <= hi.Z; z += opt.CellSize {
				p := r3.Vec{X: x, Y: y, Z: z}
				if oct.IsEmpty(p, cellHalf) {
					continue // octree already proves this cell is outside; skip the Evaluate call
				}
				d := f.Evaluate(p)
				if d >= -opt.MinRadius {
					continue // outside, or too close to the surface to seed a sphere
				}
				cands = append(cands, &candidate{center: p, toSurf: -d, free: -d})
			}
		}
	}

	var spheres []Sphere
	for len(spheres) < opt.MaxSpheres {
		bi, bv := -1, opt.MinRadius
		for i, c := range cands {
			if c.free > bv {
				bv = c.free
				bi = i
			}
		}
		if bi < 0 {
			break
		}
		chosen := cands[bi]
		s := Sphere{Center: chosen.center, Radius: chosen.free}
		idx := len(spheres)
		spheres = append(spheres, s)

		cands[bi] = cands[len(cands)-1]
		cands = cands[:len(cands)-1]
		for _, c := range cands {
			d := r3.Norm(r3.Sub(c.center, s.Center)) - s.Radius
			if d < c.free {
				c.free = d
			}
		}
		log.Debug("packed sphere", zap.Int("index", idx), zap.Float64("radius", s.Radius))
	}

	g := &Graph{Spheres: spheres, adj: make([][]int, len(spheres))}
	for i := range spheres {
		for j := i + 1; j < len(spheres); j++ {
			d := r3.Norm(r3.Sub(spheres[i].Center, spheres[j].Center))
			if d <= spheres[i].Radius+spheres[j].Radius+opt.Slack {
				ei := len(g.Edges)
				g.Edges = append(g.Edges, Edge{A: i, B: j, Length: d})
				g.adj[i] = append(g.adj[i], ei)
				g.adj[j] = append(g.adj[j], ei)
			}
		}
	}
	log.Info("packed spheres", zap.Int("spheres", len(spheres)), zap.Int("edges", len(g.Edges)))
	return g
}
