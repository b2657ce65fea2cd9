package mesh_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmolodo/Pinocchio/mesh"
)

// icosahedronOBJ is a unit icosahedron: 12 vertices, 20 triangles,
// matching the first end-to-end scenario in the testable properties.
const icosahedronOBJ = `
v -1.000000 1.618034 0.000000
v 1.000000 1.618034 0.000000
v -1.000000 -1.618034 0.000000
v 1.000000 -1.618034 0.000000
v 0.000000 -1.000000 1.618034
v 0.000000 1.000000 1.618034
v 0.000000 -1.000000 -1.618034
v 0.000000 1.000000 -1.618034
v 1.618034 0.000000 -1.000000
v 1.618034 0.000000 1.000000
v -1.618034 0.000000 -1.000000
v -1.618034 0.000000 1.000000
f 1 12 6
f 1 6 2
f 1 2 8
f 1 8 11
f 1 11 12
f 2 6 10
f 6 12 5
f 12 11 3
f 11 8 7
f 8 2 9
f 4 10 5
f 4 5 3
f 4 3 7
f 4 7 9
f 4 9 10
f 5 10 6
f 3 5 12
f 7 3 11
f 9 7 8
f 10 9 2
`

func loadString(t *testing.T, ext, content string) *mesh.Mesh {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in"+ext)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := mesh.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestLoadOBJIntegrityAndConnectivity(t *testing.T) {
	m := loadString(t, ".obj", icosahedronOBJ)
	if err := m.IntegrityCheck(); err != nil {
		t.Fatalf("integrity check: %v", err)
	}
	if !m.IsConnected() {
		t.Fatal("expected mesh to be connected")
	}
}

func TestNormalizeBoundingBox(t *testing.T) {
	m := loadString(t, ".obj", icosahedronOBJ)
	m.NormalizeBoundingBox()

	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for _, v := range m.Vertices {
		p := v.Pos
		for _, c := range []float64{p.X, p.Y, p.Z} {
			if c < 0.05-1e-9 || c > 0.95+1e-9 {
				t.Fatalf("coordinate %v out of [0.05,0.95]", c)
			}
		}
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		minZ, maxZ = math.Min(minZ, p.Z), math.Max(maxZ, p.Z)
	}
	extent := maxX - minX
	if e := maxY - minY; e > extent {
		extent = e
	}
	if e := maxZ - minZ; e > extent {
		extent = e
	}
	if math.Abs(extent-0.9) > 1e-9 {
		t.Fatalf("dominant-axis extent = %v, want 0.9", extent)
	}
}

func TestVertexNormalsUnitLength(t *testing.T) {
	m := loadString(t, ".obj", icosahedronOBJ)
	for i, v := range m.Vertices {
		n := v.Normal.X*v.Normal.X + v.Normal.Y*v.Normal.Y + v.Normal.Z*v.Normal.Z
		if math.Abs(n-1) > 1e-6 {
			t.Fatalf("vertex %d normal not unit length: |n|^2=%v", i, n)
		}
	}
}

func TestOBJRoundTrip(t *testing.T) {
	m := loadString(t, ".obj", icosahedronOBJ)

	var buf strings.Builder
	if err := mesh.WriteOBJ(&buf, m); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "rt.obj")
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	m2, err := mesh.Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Vertices) != len(m2.Vertices) {
		t.Fatalf("vertex count mismatch: %d vs %d", len(m.Vertices), len(m2.Vertices))
	}
	for i := range m.Vertices {
		d, d2 := m.Vertices[i].Pos, m2.Vertices[i].Pos
		if math.Abs(d.X-d2.X) > 1e-12 || math.Abs(d.Y-d2.Y) > 1e-12 || math.Abs(d.Z-d2.Z) > 1e-12 {
			t.Fatalf("vertex %d position mismatch after round trip", i)
		}
	}
}

// TestDisconnectedMeshFailsConnectivity loads two disjoint closed
// tetrahedra: each passes the integrity check on its own, but vertex 0
// cannot reach the second one.
func TestDisconnectedMeshFailsConnectivity(t *testing.T) {
	const twoBlobsOBJ = `
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
v 10 10 10
v 11 10 10
v 10 11 10
v 10 10 11
f 1 2 4
f 1 4 3
f 4 2 3
f 1 3 2
f 5 6 8
f 5 8 7
f 8 6 7
f 5 7 6
`
	m := loadString(t, ".obj", twoBlobsOBJ)
	if m.IsConnected() {
		t.Fatal("expected disconnected mesh to report not connected")
	}
}

// TestSTLDuplicateTriangleDedup loads a closed tetrahedron (A=origin,
// B,C,D the unit axis points) whose first face appears three times, and
// checks that FixDupFaces cancels one duplicate pair, keeps the unpaired
// copy, and leaves a valid 4-face manifold.
func TestSTLDuplicateTriangleDedup(t *testing.T) {
	const stl = `solid tet
facet normal 0 0 0
outer loop
vertex 0 0 0
vertex 0 1 0
vertex 1 0 0
endloop
endfacet
facet normal 0 0 0
outer loop
vertex 0 0 0
vertex 0 1 0
vertex 1 0 0
endloop
endfacet
facet normal 0 0 0
outer loop
vertex 0 0 0
vertex 0 1 0
vertex 1 0 0
endloop
endfacet
facet normal 0 0 0
outer loop
vertex 0 0 0
vertex 1 0 0
vertex 0 0 1
endloop
endfacet
facet normal 0 0 0
outer loop
vertex 1 0 0
vertex 0 1 0
vertex 0 0 1
endloop
endfacet
facet normal 0 0 0
outer loop
vertex 0 0 0
vertex 0 0 1
vertex 0 1 0
endloop
endfacet
endsolid
`
	m := loadString(t, ".stl", stl)
	if err := m.IntegrityCheck(); err != nil {
		t.Fatalf("integrity check: %v", err)
	}
	if got, want := len(m.Edges)/3, 4; got != want {
		t.Fatalf("triangle count after dedup = %d, want %d", got, want)
	}
}
