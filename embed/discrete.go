// Package embed assigns 3D positions to skeleton joints inside a packed
// sphere graph: a bottom-up dynamic-programming discrete step followed
// by a continuous local refinement.
//
// No discretization/refinement source exists among the available
// reference material (the original Pinocchio sources available here stop
// at mesh, skeleton, attachment, intersector, lsqSolver and point
// projection), so this package builds the cost model directly, the way
// the rest of this module builds graph and optimization code: gonum's
// shortest-path and optimization packages rather than a hand-rolled
// Dijkstra or gradient descent.
package embed

import (
	"errors"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/pack"
	"github.com/pmolodo/Pinocchio/skeleton"
)

// ErrNoEmbedding is returned when no assignment of packed-sphere sites
// to skeleton joints satisfies the visibility constraint end-to-end.
var ErrNoEmbedding = errors.New("embed: no discrete embedding satisfies visibility")

// Cost is the lexicographic (total, length-term) pair the discrete
// search minimizes: ties in total cost are broken in favor of the
// assignment whose bone lengths best match the template.
type Cost struct {
	Total  float64
	Length float64
}

func (c Cost) less(o Cost) bool {
	if c.Total != o.Total {
		return c.Total < o.Total
	}
	return c.Length < o.Length
}

func addCost(a, b Cost) Cost { return Cost{Total: a.Total + b.Total, Length: a.Length + b.Length} }

// Result is the discrete embedding: one packed-sphere site index per
// reduced-skeleton joint, and the resulting positions.
type Result struct {
	Site      []int
	Positions []r3.Vec
	Cost      Cost
}

// Discrete performs a bottom-up dynamic-programming search over skel's
// reduced joint tree: vertices of g are candidate joint sites; for each
// subtree, the best site for its root is tabulated jointly with its
// children's best sites, summing length, orientation, feet, fat and
// visibility terms along each bone. Orientation is scored against the
// template skeleton's best-fit rotation onto an initial nearest-site
// correspondence (fitRotation), not its raw rest-pose orientation, so an
// arbitrarily rotated mesh doesn't get penalized for not matching the
// template's default facing. Symmetry cost is not decomposable along
// parent-child edges (it couples arbitrary joint pairs across the tree),
// so it is not part of the per-candidate DP objective; it is folded into
// Result.Cost.Total as a fixed post-hoc addition once the tree
// assignment is chosen, reported for the caller's diagnostics rather
// than optimized over.
func Discrete(skel *skeleton.Skeleton, g *pack.Graph, vis *field.VisibilityTester, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	n := len(g.Spheres)
	if n == 0 {
		return nil, ErrNoEmbedding
	}
	reduced := skel.ReducedGraph()
	numJoints := len(reduced.Verts)

	all := path.DijkstraAllPaths(g.ToWeighted())

	sitePts := make([]r3.Vec, n)
	for i, s := range g.Spheres {
		sitePts[i] = s.Center
	}
	_, matched := initialCorrespondence(reduced.Verts, sitePts)
	rot := fitRotation(reduced.Verts, matched)

	children := make([][]int, numJoints)
	root := -1
	for j := 0; j < numJoints; j++ {
		p := skel.ReducedParent(j)
		if p < 0 {
			root = j
			continue
		}
		children[p] = append(children[p], j)
	}
	if root < 0 {
		return nil, errors.New("embed: reduced skeleton has no root")
	}

	totalLength := 0.0
	for j := 0; j < numJoints; j++ {
		if j != root {
			totalLength += skel.BoneLength(j)
		}
	}
	if totalLength <= 0 {
		totalLength = 1
	}

	best := make([][]Cost, numJoints)
	arg := make([][][]int, numJoints) // arg[j][v][k] = site chosen for children[j][k] when j is at site v
	for j := range best {
		best[j] = make([]Cost, n)
		arg[j] = make([][]int, n)
	}

	var order []int
	var visit func(j int)
	visit = func(j int) {
		for _, c := range children[j] {
			visit(c)
		}
		order = append(order, j)
	}
	visit(root)

	for _, j := range order {
		local := localCost(skel, j, g)
		for v := 0; v < n; v++ {
			c := local[v]
			choice := make([]int, len(children[j]))
			feasible := !math.IsInf(c.Total, 1)
			for ci, child := range children[j] {
				bestChild, bestW := Cost{Total: math.Inf(1)}, -1
				for w := 0; w < n; w++ {
					if math.IsInf(best[child][w].Total, 1) {
						continue
					}
					edge := boneCost(skel, child, g, all, v, w, vis, totalLength, rot)
					cand := addCost(edge, best[child][w])
					if bestW < 0 || cand.less(bestChild) {
						bestChild, bestW = cand, w
					}
				}
				if bestW < 0 {
					feasible = false
					break
				}
				choice[ci] = bestW
				c = addCost(c, bestChild)
			}
			if !feasible {
				c = Cost{Total: math.Inf(1)}
			}
			best[j][v] = c
			arg[j][v] = choice
		}
	}

	bestRoot, bestV := Cost{Total: math.Inf(1)}, -1
	for v := 0; v < n; v++ {
		if bestV < 0 || best[root][v].less(bestRoot) {
			bestRoot, bestV = best[root][v], v
		}
	}
	if bestV < 0 || math.IsInf(bestRoot.Total, 1) {
		return nil, ErrNoEmbedding
	}

	site := make([]int, numJoints)
	var assign func(j, v int)
	assign = func(j, v int) {
		site[j] = v
		for ci, child := range children[j] {
			assign(child, arg[j][v][ci])
		}
	}
	assign(root, bestV)

	positions := make([]r3.Vec, numJoints)
	for j, v := range site {
		positions[j] = g.Spheres[v].Center
	}

	total := addCost(bestRoot, Cost{Total: symmetryCost(skel, positions)})
	log.Info("discrete embedding", zap.Float64("cost", total.Total), zap.Int("joints", numJoints))
	return &Result{Site: site, Positions: positions, Cost: total}, nil
}

// localCost returns, for each candidate site, the feet/fat terms for
// joint j (no bone/edge terms — those are added by the caller once a
// parent site is also fixed).
func localCost(skel *skeleton.Skeleton, j int, g *pack.Graph) []Cost {
	out := make([]Cost, len(g.Spheres))
	for v, s := range g.Spheres {
		var total float64
		if skel.IsFoot(j) {
			total += s.Center.Y * s.Center.Y
		}
		if skel.IsFat(j) {
			total -= s.Radius
		}
		out[v] = Cost{Total: total}
	}
	return out
}

// boneCost is the length + orientation + visibility penalty for placing
// the bone from joint parent (at site u) to joint child (at site v). rot
// is the best-fit rotation of the template skeleton onto the candidate
// site cloud (see fitRotation); orientation is scored against the
// rotated template direction, not the template's raw rest orientation.
func boneCost(skel *skeleton.Skeleton, child int, g *pack.Graph, all path.AllShortest, u, v int, vis *field.VisibilityTester, totalLength float64, rot *mat.Dense) Cost {
	if u == v {
		return Cost{Total: math.Inf(1)}
	}
	graphDist := all.Weight(int64(u), int64(v))
	if math.IsInf(graphDist, 1) {
		return Cost{Total: math.Inf(1)}
	}
	templateLen := skel.BoneLength(child)
	lengthTerm := sq(graphDist/totalLength - templateLen/totalLength)

	reduced := skel.ReducedGraph()
	parent := skel.ReducedParent(child)
	templateDir := r3.Unit(rotate(rot, r3.Sub(reduced.Verts[child], reduced.Verts[parent])))
	cand := r3.Sub(g.Spheres[v].Center, g.Spheres[u].Center)
	candDir := r3.Unit(cand)
	cosA := clamp(r3.Dot(templateDir, candDir), -1, 1)
	orientationTerm := sq(math.Acos(cosA))

	if vis != nil && !vis.CanSee(g.Spheres[u].Center, g.Spheres[v].Center) {
		return Cost{Total: math.Inf(1)}
	}

	return Cost{Total: lengthTerm + orientationTerm, Length: lengthTerm}
}

// symmetryCost sums, over every symmetric reduced-joint pair, the
// squared distance between one joint's position and the other's
// sagittal-plane (x=0) mirror.
func symmetryCost(skel *skeleton.Skeleton, positions []r3.Vec) float64 {
	total := 0.0
	seen := make(map[int]bool)
	for j := range positions {
		k := skel.ReducedSymmetry(j)
		if k < 0 || k == j || seen[j] || seen[k] {
			continue
		}
		seen[j], seen[k] = true, true
		mirrored := r3.Vec{X: -positions[k].X, Y: positions[k].Y, Z: positions[k].Z}
		total += r3.Norm2(r3.Sub(positions[j], mirrored))
	}
	return total
}

func sq(x float64) float64 { return x * x }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
