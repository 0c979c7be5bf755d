package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RotationOperation rotates world space by Angle radians about the line
// through Center along Axis, counter-clockwise when looking down the axis.
type RotationOperation struct {
	Center r3.Vec
	Axis   r3.Vec
	Angle  float64
}

// IsIdentity reports whether applying the operation leaves every point in place.
func (op RotationOperation) IsIdentity() bool {
	return op.Angle == 0 || r3.Norm(op.Axis) == 0 || math.IsNaN(op.Angle)
}

// Inverse returns the operation that undoes op.
func (op RotationOperation) Inverse() RotationOperation {
	return RotationOperation{Center: op.Center, Axis: op.Axis, Angle: -op.Angle}
}

func (op RotationOperation) rotation() (r3.Rotation, bool) {
	if op.IsIdentity() {
		return r3.Rotation{}, false
	}
	return r3.NewRotation(op.Angle, r3.Unit(op.Axis)), true
}

// Apply rotates the point p about the operation's centre.
func (op RotationOperation) Apply(p r3.Vec) r3.Vec {
	rot, ok := op.rotation()
	if !ok {
		return p
	}
	return r3.Add(op.Center, rot.Rotate(r3.Sub(p, op.Center)))
}

// ApplyVector rotates the free vector v; the centre is irrelevant.
func (op RotationOperation) ApplyVector(v r3.Vec) r3.Vec {
	rot, ok := op.rotation()
	if !ok {
		return v
	}
	return rot.Rotate(v)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Angle returns the unsigned angle between u and v in radians. It returns 0
// if either vector has zero length.
func Angle(u, v r3.Vec) float64 {
	if r3.Norm(u) == 0 || r3.Norm(v) == 0 {
		return 0
	}
	return math.Atan2(r3.Norm(r3.Cross(u, v)), r3.Dot(u, v))
}

// SignedAngle returns the angle that rotates from toward to about axis, in
// (-π, π]. The sign follows the right-hand rule around axis.
func SignedAngle(from, to, axis r3.Vec) float64 {
	c := r3.Cross(from, to)
	sin := r3.Norm(c)
	if r3.Dot(c, axis) < 0 {
		sin = -sin
	}
	return math.Atan2(sin, r3.Dot(from, to))
}
