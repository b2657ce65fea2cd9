package field_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pmolodo/Pinocchio/field"
	"github.com/pmolodo/Pinocchio/mesh"
)

// tetOBJ is a closed, outward-oriented unit tetrahedron with vertices at
// the origin and the three unit axis points.
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

func TestEvaluateSignsInsideOutside(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)

	centroid := r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}
	if v := f.Evaluate(centroid); v >= 0 {
		t.Fatalf("Evaluate(centroid) = %v, want negative (inside)", v)
	}

	outside := r3.Vec{X: -5, Y: -5, Z: -5}
	if v := f.Evaluate(outside); v <= 0 {
		t.Fatalf("Evaluate(far outside point) = %v, want positive", v)
	}
}

func TestEvaluateMagnitudeMatchesDistance(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)

	// The point (2,0,0) is 1 unit past vertex B=(1,0,0) along the x axis;
	// the nearest surface point is B itself, so |Evaluate| == 1.
	p := r3.Vec{X: 2, Y: 0, Z: 0}
	if got, want := math.Abs(f.Evaluate(p)), 1.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("|Evaluate((2,0,0))| = %v, want %v", got, want)
	}
}

func TestNearestReturnsUnitNormal(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)

	_, normal := f.Nearest(r3.Vec{X: -5, Y: -5, Z: -5})
	if got, want := r3.Norm(normal), 1.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("|normal| = %v, want %v", got, want)
	}
}

func TestBoundsMatchesVertexExtent(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	lo, hi := f.Bounds()
	if lo != (r3.Vec{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("Bounds() lo = %v, want (0,0,0)", lo)
	}
	if hi != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Fatalf("Bounds() hi = %v, want (1,1,1)", hi)
	}
}

// CanSee models a bone-to-surface sightline staying within flesh: it
// answers true only while the sampled field stays at or below the
// surface (inside the volume), not the open-space visibility a ray
// tracer would compute.
func TestVisibilityTesterSeesWithinSolid(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	vis := field.NewVisibilityTester(f)

	a := r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}
	b := r3.Vec{X: 0.2, Y: 0.1, Z: 0.1}
	if !vis.CanSee(a, b) {
		t.Fatal("expected a segment between two interior points of a convex solid to stay inside")
	}
}

func TestVisibilityTesterBlockedLeavingSolid(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	vis := field.NewVisibilityTester(f)

	a := r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}
	b := r3.Vec{X: 5, Y: 5, Z: 5}
	if vis.CanSee(a, b) {
		t.Fatal("expected a segment leaving the solid into open space to fail visibility")
	}
}

func TestOctreeIsEmptyFarFromSurface(t *testing.T) {
	m := loadTet(t)
	f := field.New(m, nil)
	oct := field.BuildOctree(f, r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, 8, 0.25)

	if oct.IsEmpty(r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}, 0.01) {
		t.Fatal("a tiny cube deep inside the solid should not be reported empty")
	}
	if !oct.IsEmpty(r3.Vec{X: 5, Y: 5, Z: 5}, 0.1) {
		t.Fatal("a small cube far from the solid, within the sampled octree, should be empty")
	}
}
