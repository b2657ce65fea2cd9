package skeleton_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/skeleton"
)

// The human table's joint order is fixed by builtin.go, so the reduced
// graph's shape (which full joints survive chain collapsing, and their
// reduced parents) is deterministic: shoulders, hips, head, lfoot,
// rfoot, lhand, rhand, in that order.
func TestHumanReducedGraphShape(t *testing.T) {
	s := skeleton.Human()

	if got, want := s.NumBones(), 6; got != want {
		t.Fatalf("NumBones() = %d, want %d", got, want)
	}
	if got, want := len(s.ReducedGraph().Verts), 7; got != want {
		t.Fatalf("len(ReducedGraph().Verts) = %d, want %d", got, want)
	}

	wantParent := []int{-1, 0, 0, 1, 1, 0, 0}
	for i, want := range wantParent {
		if got := s.ReducedParent(i); got != want {
			t.Fatalf("ReducedParent(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestHumanFeetAndFatTags(t *testing.T) {
	s := skeleton.Human()

	for _, i := range []int{3, 4} {
		if !s.IsFoot(i) {
			t.Fatalf("reduced joint %d should be tagged foot", i)
		}
	}
	for _, i := range []int{0, 1, 2} {
		if !s.IsFat(i) {
			t.Fatalf("reduced joint %d should be tagged fat", i)
		}
	}
	for _, i := range []int{3, 4, 5, 6} {
		if s.IsFat(i) {
			t.Fatalf("reduced joint %d should not be tagged fat", i)
		}
	}
}

func TestHumanSymmetryPairs(t *testing.T) {
	s := skeleton.Human()
	if got, want := s.ReducedSymmetry(4), 3; got != want {
		t.Fatalf("ReducedSymmetry(rfoot=4) = %d, want %d (lfoot)", got, want)
	}
	if got, want := s.ReducedSymmetry(6), 5; got != want {
		t.Fatalf("ReducedSymmetry(rhand=6) = %d, want %d (lhand)", got, want)
	}
}

func TestFullReducedMapsInvert(t *testing.T) {
	s := skeleton.Human()
	n := len(s.ReducedGraph().Verts)
	for i := 0; i < n; i++ {
		full := s.ReducedToFull(i)
		if got := s.FullToReduced(full); got != i {
			t.Fatalf("FullToReduced(ReducedToFull(%d)) = %d, want %d", i, got, i)
		}
	}
}

func TestBoneLengthsPositive(t *testing.T) {
	s := skeleton.Human()
	for i := 1; i <= s.NumBones(); i++ {
		if l := s.BoneLength(i); l <= 0 {
			t.Fatalf("BoneLength(%d) = %v, want > 0", i, l)
		}
	}
}

func TestScaleMultipliesLengths(t *testing.T) {
	s := skeleton.Human()
	before := make([]float64, s.NumBones()+1)
	for i := 1; i <= s.NumBones(); i++ {
		before[i] = s.BoneLength(i)
	}
	s.Scale(2)
	for i := 1; i <= s.NumBones(); i++ {
		if got, want := s.BoneLength(i), before[i]*2; math.Abs(got-want) > 1e-9 {
			t.Fatalf("BoneLength(%d) after Scale(2) = %v, want %v", i, got, want)
		}
	}
}

func TestApplyRotationPreservesLengths(t *testing.T) {
	s := skeleton.Human()
	before := make([]float64, s.NumBones()+1)
	for i := 1; i <= s.NumBones(); i++ {
		before[i] = s.BoneLength(i)
	}

	// negating X is an isometry (a reflection), so bone lengths and the
	// reduced joint tree's shape are unaffected.
	s.ApplyRotation(func(v r3.Vec) r3.Vec { return r3.Vec{X: -v.X, Y: v.Y, Z: v.Z} })

	for i := 1; i <= s.NumBones(); i++ {
		if got, want := s.BoneLength(i), before[i]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("BoneLength(%d) after ApplyRotation = %v, want unchanged %v", i, got, want)
		}
	}
}

func TestAllBuiltinsProduceConnectedTrees(t *testing.T) {
	for name, s := range map[string]*skeleton.Skeleton{
		"human":   skeleton.Human(),
		"quad":    skeleton.Quad(),
		"horse":   skeleton.Horse(),
		"centaur": skeleton.Centaur(),
	} {
		g := s.ReducedGraph()
		n := len(g.Verts)
		if n == 0 {
			t.Fatalf("%s: empty reduced graph", name)
		}
		// A tree over n nodes has exactly n-1 edges; Edges stores each
		// undirected edge from both endpoints.
		total := 0
		for _, adj := range g.Edges {
			total += len(adj)
		}
		if got, want := total, 2*(n-1); got != want {
			t.Fatalf("%s: reduced graph has %d directed adjacency entries, want %d", name, got, want)
		}
	}
}
