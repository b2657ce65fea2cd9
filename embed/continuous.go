package embed

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/skeleton"
)

// RefineOptions bounds the continuous local search.
type RefineOptions struct {
	MaxIterations int
	BarrierScale  float64 // steepness of the smooth visibility barrier
}

// DefaultRefineOptions returns the continuous refiner's step-count cap
// and barrier steepness.
func DefaultRefineOptions() RefineOptions {
	return RefineOptions{MaxIterations: 200, BarrierScale: 40}
}

// Refine performs bounded local descent on the discrete result's
// positions, minimizing the same cost terms with the hard visibility
// constraint replaced by a smooth barrier (an exponentiated
// distance-to-surface penalty). Orientation terms are scored against the
// template skeleton's best-fit rotation onto the current candidate pose
// (fitRotation), recomputed at every evaluation since the candidate
// positions move.
//
// No analytic gradient of the cost is available from field.Field (it is
// a nearest-triangle kd-tree query, not a closed-form expression), so
// the gradient handed to gonum/optimize's GradientDescent is a
// central-difference approximation, one coordinate at a time, the same
// technique Normal3 uses to turn a bare Evaluate call into a usable
// derivative.
func Refine(skel *skeleton.Skeleton, f *field.Field, start []r3.Vec, opt RefineOptions, log *zap.Logger) ([]r3.Vec, error) {
	if log == nil {
		log = zap.NewNop()
	}
	n := len(start)
	reduced := skel.ReducedGraph()

	x0 := make([]float64, 3*n)
	for i, p := range start {
		x0[3*i], x0[3*i+1], x0[3*i+2] = p.X, p.Y, p.Z
	}

	totalLength := 0.0
	for j := 0; j < n; j++ {
		if skel.ReducedParent(j) >= 0 {
			totalLength += skel.BoneLength(j)
		}
	}
	if totalLength <= 0 {
		totalLength = 1
	}

	fn := func(x []float64) float64 {
		pos := unflatten(x)
		rot := fitRotation(reduced.Verts, pos)
		total := 0.0
		for j := 0; j < n; j++ {
			if skel.IsFoot(j) {
				total += sq(pos[j].Y)
			}
			if skel.IsFat(j) {
				total -= barrierRadius(f, pos[j])
			}
			parent := skel.ReducedParent(j)
			if parent < 0 {
				continue
			}
			bone := r3.Sub(pos[j], pos[parent])
			length := r3.Norm(bone)
			templateLen := skel.BoneLength(j)
			total += sq(length/totalLength - templateLen/totalLength)

			templateDir := r3.Unit(rotate(rot, r3.Sub(reduced.Verts[j], reduced.Verts[parent])))
			if length > 1e-12 {
				candDir := r3.Scale(1/length, bone)
				cosA := clamp(r3.Dot(templateDir, candDir), -1, 1)
				total += sq(math.Acos(cosA))
			}
			total += opt.BarrierScale * smoothBarrier(f, pos[j], pos[parent])
		}
		total += symmetryCost(skel, pos)
		return total
	}

	grad := func(g, x []float64) {
		const eps = 1e-5
		for i := range x {
			orig := x[i]
			x[i] = orig + eps
			fPlus := fn(x)
			x[i] = orig - eps
			fMinus := fn(x)
			x[i] = orig
			g[i] = (fPlus - fMinus) / (2 * eps)
		}
	}

	problem := optimize.Problem{Func: fn, Grad: grad}
	method := &optimize.GradientDescent{Linesearcher: &optimize.Backtracking{}}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{MajorIterations: opt.MaxIterations}, method)
	if err != nil && result == nil {
		return nil, err
	}

	out := unflatten(result.X)
	log.Info("continuous refinement", zap.Float64("cost", result.F), zap.Int("iterations", result.Stats.MajorIterations))
	return out, nil
}

func unflatten(x []float64) []r3.Vec {
	n := len(x) / 3
	out := make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		out[i] = r3.Vec{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]}
	}
	return out
}

// smoothBarrier penalizes a bone segment straying outside the surface:
// it samples the field along the segment and exponentiates the worst
// (most-outside) sample, giving descent a strong gradient pushing the
// segment back inside rather than a flat hard-constraint cliff.
func smoothBarrier(f *field.Field, a, b r3.Vec) float64 {
	const steps = 10
	worst := math.Inf(-1)
	diff := r3.Sub(b, a)
	for i := 1; i < steps; i++ {
		frac := float64(i) / float64(steps)
		p := r3.Add(a, r3.Scale(frac, diff))
		if d := f.Evaluate(p); d > worst {
			worst = d
		}
	}
	if worst <= 0 {
		return 0
	}
	return math.Exp(worst*30) - 1
}

func barrierRadius(f *field.Field, p r3.Vec) float64 {
	d := f.Evaluate(p)
	if d >= 0 {
		return 0
	}
	return -d
}
