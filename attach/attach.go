// Package attach computes per-vertex bone-weight attachments by solving
// a sparse heat-diffusion system on the mesh's cotangent Laplacian, and
// applies them (linear blend skinning) to deform a mesh under a pose.
//
// Grounded line-for-line on original_source/Pinocchio/attachment.cpp's
// AttachmentPrivate1 constructor and deform().
package attach

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/internal/xform"
	"github.com/pmolodo/Pinocchio/mesh"
	"github.com/pmolodo/Pinocchio/skeleton"
	"github.com/pmolodo/Pinocchio/spd"
)

// initialHeatWeight scales the heat-source term; matches the constant
// used throughout the original heat-weight construction.
const initialHeatWeight = 1.0

// distEpsilon avoids a zero-length bone distance blowing up 1/d^2.
const distEpsilon = 1e-8

// visTolerance admits bones within this factor of the nearest bone's
// distance as candidates for the normal/visibility test.
const visTolerance = 1.0001

// heatTolerance is the stricter band, applied after the visibility test,
// that actually gates heat-source and rhs contribution.
const heatTolerance = 1.00001

// Weight is one (bone, weight) pair for a vertex's sparse attachment.
type Weight struct {
	Bone   int
	Weight float64
}

// Attachment holds, per mesh vertex, the sparse bone-weight pairs with
// weight above 1e-8, already renormalized to sum to 1.
type Attachment struct {
	Weights [][]Weight
}

// Bone is one skeleton bone's embedded endpoints, parent then child.
type Bone struct {
	Parent, Child r3.Vec
}

// Build assembles the cotangent-Laplacian heat system over m, solves it
// once per bone against a single SPD factorization, and returns the
// resulting sparse, renormalized attachment.
func Build(m *mesh.Mesh, bones []Bone, vis *field.VisibilityTester, log *zap.Logger) (*Attachment, error) {
	if log == nil {
		log = zap.NewNop()
	}
	n := len(m.Vertices)
	nb := len(bones)
	if nb == 0 {
		return nil, fmt.Errorf("attach: no bones")
	}

	H := make([]float64, n)
	invD := make([]float64, n) // 1/D[i]
	nearest := make([][]int, n)
	rows := make([]map[int]float64, n)
	for i := range rows {
		rows[i] = make(map[int]float64)
	}

	for i := 0; i < n; i++ {
		ring := m.Ring(i)
		k := len(ring)
		pos := m.Vertices[i].Pos

		dists := make([]float64, nb)
		dMin := math.Inf(1)
		for b, bone := range bones {
			dists[b] = distToSegment(pos, bone.Parent, bone.Child)
			if dists[b] < dMin {
				dMin = dists[b]
			}
		}

		var close []int
		for b, d := range dists {
			if d <= visTolerance*dMin {
				close = append(close, b)
			}
		}

		avgNormal := m.Vertices[i].Normal
		var visible []int
		for _, b := range close {
			np := nearestOnSegment(pos, bones[b].Parent, bones[b].Child)
			dir := r3.Sub(np, pos)
			if r3.Norm(dir) > 1e-12 {
				dir = r3.Unit(dir)
				if r3.Dot(dir, avgNormal) <= 0.5 {
					continue
				}
			}
			if vis != nil && !vis.CanSee(pos, np) {
				continue
			}
			visible = append(visible, b)
		}

		var heatSource []int
		for _, b := range visible {
			if dists[b] <= heatTolerance*dMin {
				heatSource = append(heatSource, b)
			}
		}
		nearest[i] = heatSource

		for range heatSource {
			// Every qualifying bone uses the closest bone's own distance in
			// the denominator (not its own), so two equally-close bones get
			// equal weight instead of whichever is marginally nearer.
			H[i] += initialHeatWeight / sq(distEpsilon+dMin)
		}

		areaSum := 0.0
		for t := 0; t < k; t++ {
			n0 := ring[t]
			n1 := ring[(t+1)%k]
			e0 := r3.Sub(m.Vertices[n0].Pos, pos)
			e1 := r3.Sub(m.Vertices[n1].Pos, pos)
			areaSum += r3.Norm(r3.Cross(e0, e1))

			cotAtN0 := cotangent(pos, m.Vertices[n0].Pos, m.Vertices[n1].Pos)
			cotAtN1 := cotangent(pos, m.Vertices[n1].Pos, m.Vertices[n0].Pos)
			rows[i][n1] += cotAtN0
			rows[i][n0] += cotAtN1
		}
		invD[i] = areaSum + 1e-10
	}

	D := make([]float64, n)
	for i := range D {
		D[i] = 1 / invD[i]
	}

	spdRows := make([][]spd.Entry, n)
	for i := 0; i < n; i++ {
		diag := H[i] / D[i]
		entries := map[int]float64{i: diag}
		for j, w := range rows[i] {
			entries[i] += w
			entries[j] -= w
		}
		var cols []int
		for c := range entries {
			if c <= i {
				cols = append(cols, c)
			}
		}
		sort.Ints(cols)
		row := make([]spd.Entry, 0, len(cols))
		for _, c := range cols {
			row = append(row, spd.Entry{Col: c, Val: entries[c]})
		}
		spdRows[i] = row
	}

	factored, err := spd.Factor(spdRows)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, nb)
	}
	for b := 0; b < nb; b++ {
		rhs := make([]float64, n)
		for i := 0; i < n; i++ {
			for _, nb2 := range nearest[i] {
				if nb2 == b {
					rhs[i] = H[i] / D[i]
					break
				}
			}
		}
		if err := factored.Solve(rhs); err != nil {
			return nil, fmt.Errorf("attach: bone %d: %w", b, err)
		}
		for i := 0; i < n; i++ {
			weights[i][b] = clamp01(rhs[i])
		}
	}

	a := &Attachment{Weights: make([][]Weight, n)}
	for i := 0; i < n; i++ {
		sum := floats.Sum(weights[i])
		if sum <= 0 {
			continue
		}
		var ws []Weight
		for b, w := range weights[i] {
			w /= sum
			if w > 1e-8 {
				ws = append(ws, Weight{Bone: b, Weight: w})
			}
		}
		a.Weights[i] = ws
	}
	log.Info("built attachment", zap.Int("vertices", n), zap.Int("bones", nb))
	return a, nil
}

func sq(x float64) float64 { return x * x }

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// cotangent returns cot of the angle at vertex b in triangle a-b-c.
func cotangent(a, b, c r3.Vec) float64 {
	u := r3.Sub(a, b)
	v := r3.Sub(c, b)
	cross := r3.Norm(r3.Cross(u, v))
	if cross < 1e-12 {
		return 0
	}
	return r3.Dot(u, v) / cross
}

// nearestOnSegment returns the closest point to p on segment a-b.
func nearestOnSegment(p, a, b r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 < 1e-18 {
		return a
	}
	t := r3.Dot(r3.Sub(p, a), ab) / l2
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return r3.Add(a, r3.Scale(t, ab))
}

func distToSegment(p, a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, nearestOnSegment(p, a, b)))
}

// BonesFromSkeleton pairs embedded reduced-joint positions into bones,
// parent then child, indexed the same way skeleton.Skeleton numbers
// reduced joints (skipping the root, which has no incoming bone).
func BonesFromSkeleton(skel *skeleton.Skeleton, positions []r3.Vec) []Bone {
	var bones []Bone
	for j := 0; j < len(positions); j++ {
		p := skel.ReducedParent(j)
		if p < 0 {
			continue
		}
		bones = append(bones, Bone{Parent: positions[p], Child: positions[j]})
	}
	return bones
}

// Deform applies a per-bone transform to m's vertices by weighted
// blending, then recomputes vertex normals.
func Deform(m *mesh.Mesh, a *Attachment, transforms []xform.Transform) *mesh.Mesh {
	out := mesh.New(nil)
	out.Vertices = make([]mesh.Vertex, len(m.Vertices))
	out.Edges = m.Edges
	out.Scale = m.Scale
	out.Offset = m.Offset

	for i, v := range m.Vertices {
		var p r3.Vec
		for _, w := range a.Weights[i] {
			p = r3.Add(p, r3.Scale(w.Weight, transforms[w.Bone].Apply(v.Pos)))
		}
		out.Vertices[i] = mesh.Vertex{Pos: p, Edge: v.Edge}
	}
	out.ComputeVertexNormals()
	return out
}
