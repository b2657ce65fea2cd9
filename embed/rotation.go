package embed

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// fitRotation finds the rotation R minimizing sum |R*template[i] -
// candidate[i]|^2 (the orthogonal Procrustes / Kabsch problem), so that
// bone-orientation costs compare candidate directions against the
// template skeleton's best-fit pose rather than its raw, arbitrarily
// rotated rest orientation. template and candidate must be the same
// length and are matched index-for-index.
//
// Grounded on cogentcore-core/tensor/matrix/eigen.go's mat.SVD usage
// (Factorize with mat.SVDFull, then UTo/VTo), applied here to the 3x3
// cross-covariance matrix instead of a tensor-wide symmetric eigensolve.
func fitRotation(template, candidate []r3.Vec) *mat.Dense {
	n := len(template)
	if n == 0 {
		return identity3()
	}

	var ct, cc r3.Vec
	for i := 0; i < n; i++ {
		ct = r3.Add(ct, template[i])
		cc = r3.Add(cc, candidate[i])
	}
	ct = r3.Scale(1/float64(n), ct)
	cc = r3.Scale(1/float64(n), cc)

	cov := mat.NewDense(3, 3, nil)
	for i := 0; i < n; i++ {
		t := r3.Sub(template[i], ct)
		c := r3.Sub(candidate[i], cc)
		tv := [3]float64{t.X, t.Y, t.Z}
		cv := [3]float64{c.X, c.Y, c.Z}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				cov.Set(a, b, cov.At(a, b)+cv[a]*tv[b])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDFull) {
		return identity3()
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := new(mat.Dense)
	r.Mul(&u, v.T())
	if mat.Det(r) < 0 {
		// candidate rotation is a reflection; flip the smallest-singular-value
		// axis (U's last column) and recompute, per the standard Kabsch fix.
		u.Set(0, 2, -u.At(0, 2))
		u.Set(1, 2, -u.At(1, 2))
		u.Set(2, 2, -u.At(2, 2))
		r.Mul(&u, v.T())
	}
	return r
}

// initialCorrespondence pairs each template joint with the nearest site,
// comparing both clouds after demeaning and scaling to unit RMS radius
// so the template's rest-pose units (skeleton-file coordinates) don't
// bias the match against the candidate sites' normalized-mesh units.
// Returns template unchanged alongside the matched site per joint, ready
// to feed fitRotation.
func initialCorrespondence(template, sites []r3.Vec) ([]r3.Vec, []r3.Vec) {
	normTemplate := normalizeCloud(template)
	normSites := normalizeCloud(sites)
	matched := make([]r3.Vec, len(template))
	for i, t := range normTemplate {
		best, bestD := 0, math.Inf(1)
		for j, s := range normSites {
			if d := r3.Norm2(r3.Sub(t, s)); d < bestD {
				best, bestD = j, d
			}
		}
		matched[i] = sites[best]
	}
	return template, matched
}

func normalizeCloud(pts []r3.Vec) []r3.Vec {
	var centroid r3.Vec
	for _, p := range pts {
		centroid = r3.Add(centroid, p)
	}
	centroid = r3.Scale(1/float64(len(pts)), centroid)

	centered := make([]r3.Vec, len(pts))
	sumSq := 0.0
	for i, p := range pts {
		centered[i] = r3.Sub(p, centroid)
		sumSq += r3.Norm2(centered[i])
	}
	rms := math.Sqrt(sumSq / float64(len(pts)))
	if rms < 1e-12 {
		rms = 1
	}
	out := make([]r3.Vec, len(pts))
	for i, p := range centered {
		out[i] = r3.Scale(1/rms, p)
	}
	return out
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// rotate applies the 3x3 rotation r to v.
func rotate(r *mat.Dense, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: r.At(0, 0)*v.X + r.At(0, 1)*v.Y + r.At(0, 2)*v.Z,
		Y: r.At(1, 0)*v.X + r.At(1, 1)*v.Y + r.At(1, 2)*v.Z,
		Z: r.At(2, 0)*v.X + r.At(2, 1)*v.Y + r.At(2, 2)*v.Z,
	}
}
