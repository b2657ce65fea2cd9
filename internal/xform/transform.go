// Package xform implements the rigid+scale spatial transform used to pose
// bones and to rotate the template skeleton.
package xform

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform represents v ↦ rot·(scale·v) + trans as a 4x4 affine matrix.
// The zero value is the identity transform: elements are stored as
// (matrix value - identity value) so that Transform{} acts as identity.
type Transform struct {
	d00, x01, x02, x03 float64
	x10, d11, x12, x13 float64
	x20, x21, d22, x23 float64
	x30, x31, x32, d33 float64
}

var zero = Transform{d00: -1, d11: -1, d22: -1, d33: -1}

// Identity returns the identity transform.
func Identity() Transform { return Transform{} }

// Apply transforms v by t.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	w := 1 / (t.x30*v.X + t.x31*v.Y + t.x32*v.Z + t.d33 + 1)
	return r3.Vec{
		X: ((t.d00+1)*v.X + t.x01*v.Y + t.x02*v.Z + t.x03) * w,
		Y: (t.x10*v.X + (t.d11+1)*v.Y + t.x12*v.Z + t.x13) * w,
		Z: (t.x20*v.X + t.x21*v.Y + (t.d22+1)*v.Z + t.x23) * w,
	}
}

// New builds a Transform from 16 row-major values.
func New(a []float64) Transform {
	if len(a) != 16 {
		panic("xform: New requires 16 values")
	}
	return Transform{
		d00: a[0] - 1, x01: a[1], x02: a[2], x03: a[3],
		x10: a[4], d11: a[5] - 1, x12: a[6], x13: a[7],
		x20: a[8], x21: a[9], d22: a[10] - 1, x23: a[11],
		x30: a[12], x31: a[13], x32: a[14], d33: a[15] - 1,
	}
}

// Compose builds a Transform from a translation, a per-axis scale and a
// unit quaternion rotation, realizing v ↦ rot·(scale·v) + trans.
func Compose(position, scale r3.Vec, q r3.Rotation) Transform {
	x2 := q.Imag + q.Imag
	y2 := q.Jmag + q.Jmag
	z2 := q.Kmag + q.Kmag
	xx := q.Imag * x2
	yy := q.Jmag * y2
	zz := q.Kmag * z2
	xy := q.Imag * y2
	xz := q.Imag * z2
	yz := q.Jmag * z2
	wx := q.Real * x2
	wy := q.Real * y2
	wz := q.Real * z2

	var t Transform
	t.d00 = (1-(yy+zz))*scale.X - 1
	t.x10 = (xy + wz) * scale.X
	t.x20 = (xz - wy) * scale.X

	t.x01 = (xy - wz) * scale.Y
	t.d11 = (1-(xx+zz))*scale.Y - 1
	t.x21 = (yz + wx) * scale.Y

	t.x02 = (xz + wy) * scale.Z
	t.x12 = (yz - wx) * scale.Z
	t.d22 = (1-(xx+yy))*scale.Z - 1

	t.x03 = position.X
	t.x13 = position.Y
	t.x23 = position.Z
	return t
}

// Translation builds a pure-translation transform.
func Translation(v r3.Vec) Transform {
	return Transform{x03: v.X, x13: v.Y, x23: v.Z}
}

// UniformScale builds a pure uniform-scale transform.
func UniformScale(s float64) Transform {
	return Transform{d00: s - 1, d11: s - 1, d22: s - 1}
}

// Mul returns the matrix product t·b: (t.Mul(b)).Apply(v) ==
// t.Apply(b.Apply(v)), so b is applied first.
func (t Transform) Mul(b Transform) Transform {
	if t == (Transform{}) {
		return b
	}
	if b == (Transform{}) {
		return t
	}
	x00 := t.d00 + 1
	x11 := t.d11 + 1
	x22 := t.d22 + 1
	x33 := t.d33 + 1
	y00 := b.d00 + 1
	y11 := b.d11 + 1
	y22 := b.d22 + 1
	y33 := b.d33 + 1
	var m Transform
	m.d00 = x00*y00 + t.x01*b.x10 + t.x02*b.x20 + t.x03*b.x30 - 1
	m.x10 = t.x10*y00 + x11*b.x10 + t.x12*b.x20 + t.x13*b.x30
	m.x20 = t.x20*y00 + t.x21*b.x10 + x22*b.x20 + t.x23*b.x30
	m.x30 = t.x30*y00 + t.x31*b.x10 + t.x32*b.x20 + x33*b.x30
	m.x01 = x00*b.x01 + t.x01*y11 + t.x02*b.x21 + t.x03*b.x31
	m.d11 = t.x10*b.x01 + x11*y11 + t.x12*b.x21 + t.x13*b.x31 - 1
	m.x21 = t.x20*b.x01 + t.x21*y11 + x22*b.x21 + t.x23*b.x31
	m.x31 = t.x30*b.x01 + t.x31*y11 + t.x32*b.x21 + x33*b.x31
	m.x02 = x00*b.x02 + t.x01*b.x12 + t.x02*y22 + t.x03*b.x32
	m.x12 = t.x10*b.x02 + x11*b.x12 + t.x12*y22 + t.x13*b.x32
	m.d22 = t.x20*b.x02 + t.x21*b.x12 + x22*y22 + t.x23*b.x32 - 1
	m.x32 = t.x30*b.x02 + t.x31*b.x12 + t.x32*y22 + x33*b.x32
	m.x03 = x00*b.x03 + t.x01*b.x13 + t.x02*b.x23 + t.x03*y33
	m.x13 = t.x10*b.x03 + x11*b.x13 + t.x12*b.x23 + t.x13*y33
	m.x23 = t.x20*b.x03 + t.x21*b.x13 + x22*b.x23 + t.x23*y33
	m.d33 = t.x30*b.x03 + t.x31*b.x13 + t.x32*b.x23 + x33*y33 - 1
	return m
}

// LinearApply applies only the linear (rotation+scale) part of t, ignoring
// translation. Used to transform direction vectors and normals.
func (t Transform) LinearApply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: (t.d00+1)*v.X + t.x01*v.Y + t.x02*v.Z,
		Y: t.x10*v.X + (t.d11+1)*v.Y + t.x12*v.Z,
		Z: t.x20*v.X + t.x21*v.Y + (t.d22+1)*v.Z,
	}
}

// Equal reports whether t and b are equal within tolerance.
func (t Transform) Equal(b Transform, tol float64) bool {
	return math.Abs(t.d00-b.d00) < tol && math.Abs(t.x01-b.x01) < tol &&
		math.Abs(t.x02-b.x02) < tol && math.Abs(t.x03-b.x03) < tol &&
		math.Abs(t.x10-b.x10) < tol && math.Abs(t.d11-b.d11) < tol &&
		math.Abs(t.x12-b.x12) < tol && math.Abs(t.x13-b.x13) < tol &&
		math.Abs(t.x20-b.x20) < tol && math.Abs(t.x21-b.x21) < tol &&
		math.Abs(t.d22-b.d22) < tol && math.Abs(t.x23-b.x23) < tol &&
		math.Abs(t.x30-b.x30) < tol && math.Abs(t.x31-b.x31) < tol &&
		math.Abs(t.x32-b.x32) < tol && math.Abs(t.d33-b.d33) < tol
}

// IsIdentity reports whether t is exactly the identity transform.
func (t Transform) IsIdentity() bool { return t == (Transform{}) }
