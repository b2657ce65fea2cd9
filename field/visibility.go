package field

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// visSteps and visMaxVal mirror the original stepped line-of-sight walk:
// a segment is visible only if it never strays far outside the mesh
// volume, sampled at a fixed number of interior points.
const (
	visSteps  = 100
	visMaxVal = 0.002
)

// VisibilityTester answers whether two points can "see" each other
// through a mesh volume, by walking a sampled signed-distance field
// along the segment between them and failing as soon as the field rises
// too far above the surface (the segment has left the interior).
type VisibilityTester struct {
	field *Field
}

// NewVisibilityTester wraps f for line-of-sight queries.
func NewVisibilityTester(f *Field) *VisibilityTester {
	return &VisibilityTester{field: f}
}

// CanSee reports whether the open segment from p1 to p2 stays inside
// the surface (or within visMaxVal of it) at every one of visSteps
// evenly spaced interior samples, stopping at the first violation.
func (v *VisibilityTester) CanSee(p1, p2 r3.Vec) bool {
	diff := r3.Sub(p2, p1)
	for i := 1; i < visSteps; i++ {
		frac := float64(i) / float64(visSteps)
		pos := r3.Add(p1, r3.Scale(frac, diff))
		if v.field.Evaluate(pos) > visMaxVal {
			return false
		}
	}
	return true
}
