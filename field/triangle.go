package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// kdTriangle is a triangle usable as a gonum kdtree.Comparable, adapted
// from the nearest-triangle query pattern used to realize "ray-hierarchy
// nearest-point query over simple primitives".
type kdTriangle struct {
	V [3]r3.Vec
}

func (t kdTriangle) normal() r3.Vec {
	return r3.Unit(r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0])))
}

func (t kdTriangle) centroid() r3.Vec {
	return r3.Scale(1.0/3.0, r3.Add(t.V[0], r3.Add(t.V[1], t.V[2])))
}

// closestPoint returns the closest point on triangle t to p.
func (t kdTriangle) closestPoint(p r3.Vec) r3.Vec {
	a, b, c := t.V[0], t.V[1], t.V[2]
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ap := r3.Sub(p, a)

	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := r3.Sub(p, b)
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}

	cp := r3.Sub(p, c)
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		return r3.Add(b, r3.Scale((d4-d3)/((d4-d3)+(d5-d6)), r3.Sub(c, b)))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

func (t kdTriangle) Bounds() *kdtree.Bounding {
	lo, hi := t.V[0], t.V[0]
	for _, v := range t.V[1:] {
		lo = minElem(lo, v)
		hi = maxElem(hi, v)
	}
	return &kdtree.Bounding{Min: kdTriangle{[3]r3.Vec{lo, lo, lo}}, Max: kdTriangle{[3]r3.Vec{hi, hi, hi}}}
}

func (t kdTriangle) Dims() int { return 3 }

func (t kdTriangle) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	o := c.(kdTriangle)
	return (component(t.centroid(), int(d)) - component(o.centroid(), int(d)))
}

// Distance returns the squared Euclidean distance between triangle
// centroids, used by kdtree.Tree.Nearest to rank candidates against a
// query point encoded as a degenerate triangle with all three vertices
// equal to that point.
func (t kdTriangle) Distance(c kdtree.Comparable) float64 {
	o := c.(kdTriangle)
	return r3.Norm2(r3.Sub(t.centroid(), o.centroid()))
}

func component(v r3.Vec, d int) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func minElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func maxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

type kdTriangles []kdTriangle

func (k kdTriangles) Index(i int) kdtree.Comparable { return k[i] }
func (k kdTriangles) Len() int                       { return len(k) }

func (k kdTriangles) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), tris: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (k kdTriangles) Slice(start, end int) kdtree.Interface { return k[start:end] }

func (k kdTriangles) Bounds() *kdtree.Bounding {
	if len(k) == 0 {
		return &kdtree.Bounding{Min: kdTriangle{}, Max: kdTriangle{}}
	}
	lo, hi := k[0].V[0], k[0].V[0]
	for _, t := range k {
		for _, v := range t.V {
			lo = minElem(lo, v)
			hi = maxElem(hi, v)
		}
	}
	return &kdtree.Bounding{Min: kdTriangle{[3]r3.Vec{lo, lo, lo}}, Max: kdTriangle{[3]r3.Vec{hi, hi, hi}}}
}

type kdPlane struct {
	dim  int
	tris kdTriangles
}

func (p kdPlane) Less(i, j int) bool {
	return component(p.tris[i].centroid(), p.dim) < component(p.tris[j].centroid(), p.dim)
}
func (p kdPlane) Swap(i, j int) { p.tris[i], p.tris[j] = p.tris[j], p.tris[i] }
func (p kdPlane) Len() int      { return len(p.tris) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.tris = p.tris[start:end]
	return p
}
