package vmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Vec3 is the value type used for positions, velocities and aim vectors.
// Operations (Add, Sub, Mul, Cross, Dot, Len) come from mgl64 and return new values.
type Vec3 = mgl64.Vec3

// Zero is the zero vector.
var Zero = Vec3{}

// Up is the world up axis.
var Up = Vec3{0, 1, 0}

// New returns the vector (x, y, z).
func New(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// Normalize returns v scaled to unit length. The zero vector (or anything too short to
// divide by) is returned unchanged instead of producing NaNs.
func Normalize(v Vec3) Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return v
	}
	return v.Mul(1 / l)
}

// IsZero reports whether all components are exactly zero.
func IsZero(v Vec3) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Lerp interpolates from a (t=0) to b (t=1).
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// PlanarLenSq is the squared length of v projected onto the XZ (floor) plane.
func PlanarLenSq(v Vec3) float64 {
	return v[0]*v[0] + v[2]*v[2]
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
