package attach_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/attach"
	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/internal/xform"
	"github.com/pmolodo/Pinocchio/mesh"
)

const tetOBJ = `
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
f 1 2 4
f 1 4 3
f 4 2 3
f 1 3 2
`

func loadTet(t *testing.T) *mesh.Mesh {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tet.obj")
	if err := os.WriteFile(path, []byte(tetOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := mesh.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBuildSingleBoneWeightsSumToOne(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	vis := field.NewVisibilityTester(f)

	bones := []attach.Bone{{Parent: r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, Child: r3.Vec{X: 0.2, Y: 0.1, Z: 0.1}}}
	a, err := attach.Build(m, bones, vis, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(a.Weights) != len(m.Vertices) {
		t.Fatalf("got %d weight rows, want %d", len(a.Weights), len(m.Vertices))
	}
	for i, ws := range a.Weights {
		if len(ws) == 0 {
			continue // a vertex with no reachable bone is left unweighted
		}
		sum := 0.0
		for _, w := range ws {
			if w.Weight < 0 || w.Weight > 1 {
				t.Fatalf("vertex %d has out-of-range weight %v", i, w.Weight)
			}
			if w.Bone != 0 {
				t.Fatalf("vertex %d references unknown bone %d", i, w.Bone)
			}
			sum += w.Weight
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("vertex %d weights sum to %v, want 1", i, sum)
		}
	}
}

func TestBuildRejectsNoBones(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	vis := field.NewVisibilityTester(f)
	if _, err := attach.Build(m, nil, vis, nil); err == nil {
		t.Fatal("expected an error building an attachment with no bones")
	}
}

func TestDeformIdentityTransformPreservesPositions(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	vis := field.NewVisibilityTester(f)

	bones := []attach.Bone{{Parent: r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, Child: r3.Vec{X: 0.2, Y: 0.1, Z: 0.1}}}
	a, err := attach.Build(m, bones, vis, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := attach.Deform(m, a, []xform.Transform{xform.Identity()})
	for i := range m.Vertices {
		want := m.Vertices[i].Pos
		got := out.Vertices[i].Pos
		sumW := 0.0
		for _, w := range a.Weights[i] {
			sumW += w.Weight
		}
		if sumW < 0.999 {
			continue // unweighted vertices aren't reconstructed by a single-bone blend
		}
		if r3.Norm(r3.Sub(got, want)) > 1e-6 {
			t.Fatalf("vertex %d moved under the identity transform: got %v, want %v", i, got, want)
		}
	}
}
