package pack_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/mesh"
	"github.com/pmolodo/Pinocchio/pack"
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

func loadTetField(t *testing.T) *field.Field {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tet.obj")
	if err := os.WriteFile(path, []byte(tetOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := mesh.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return field.New(m, nil)
}

func TestPackProducesSpheresWithinBounds(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	opt := pack.Options{CellSize: 0.1, MinRadius: 0.02, Slack: 0.05, MaxSpheres: 20}

	g := pack.Pack(f, lo, hi, opt, nil)
	if len(g.Spheres) == 0 {
		t.Fatal("expected at least one packed sphere inside the tetrahedron")
	}
	for i, s := range g.Spheres {
		if s.Radius <= opt.MinRadius {
			t.Fatalf("sphere %d radius = %v, want > %v", i, s.Radius, opt.MinRadius)
		}
		if f.Evaluate(s.Center) >= 0 {
			t.Fatalf("sphere %d center is not inside the surface", i)
		}
	}
}

func TestPackEdgesAreSymmetricAndBounded(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	opt := pack.Options{CellSize: 0.1, MinRadius: 0.02, Slack: 0.05, MaxSpheres: 20}

	g := pack.Pack(f, lo, hi, opt, nil)
	for _, e := range g.Edges {
		d := r3.Norm(r3.Sub(g.Spheres[e.A].Center, g.Spheres[e.B].Center))
		if math.Abs(d-e.Length) > 1e-9 {
			t.Fatalf("edge (%d,%d) length = %v, want %v", e.A, e.B, e.Length, d)
		}
		if d > g.Spheres[e.A].Radius+g.Spheres[e.B].Radius+opt.Slack+1e-9 {
			t.Fatalf("edge (%d,%d) centers farther apart than radii+slack allow", e.A, e.B)
		}

		found := false
		for _, n := range g.Neighbors(e.A) {
			if n == e.B {
				found = true
			}
		}
		if !found {
			t.Fatalf("Neighbors(%d) missing %d", e.A, e.B)
		}
	}
}

func TestToWeightedHasOneNodePerSphere(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	opt := pack.Options{CellSize: 0.1, MinRadius: 0.02, Slack: 0.05, MaxSpheres: 20}

	g := pack.Pack(f, lo, hi, opt, nil)
	wg := g.ToWeighted()
	if got, want := wg.Nodes().Len(), len(g.Spheres); got != want {
		t.Fatalf("weighted graph has %d nodes, want %d", got, want)
	}
}

func TestPackRespectsMaxSpheres(t *testing.T) {
	f := loadTetField(t)
	lo, hi := f.Bounds()
	opt := pack.Options{CellSize: 0.05, MinRadius: 0.01, Slack: 0.05, MaxSpheres: 3}

	g := pack.Pack(f, lo, hi, opt, nil)
	if len(g.Spheres) > opt.MaxSpheres {
		t.Fatalf("got %d spheres, want at most %d", len(g.Spheres), opt.MaxSpheres)
	}
}
