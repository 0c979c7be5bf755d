package geometry

import "gonum.org/v1/gonum/spatial/r3"

// Line3D is an infinite line through Point along Direction.
type Line3D struct {
	Point     r3.Vec
	Direction r3.Vec
}

// IsValid reports whether the line has a usable direction.
func (l Line3D) IsValid() bool {
	return r3.Norm(l.Direction) > Eps*Eps
}

// Distance returns the perpendicular distance from p to the line.
func (l Line3D) Distance(p r3.Vec) float64 {
	if !l.IsValid() {
		return r3.Norm(r3.Sub(p, l.Point))
	}
	return r3.Norm(r3.Cross(r3.Sub(p, l.Point), r3.Unit(l.Direction)))
}

// Project returns the point on the line closest to p.
func (l Line3D) Project(p r3.Vec) r3.Vec {
	if !l.IsValid() {
		return l.Point
	}
	u := r3.Unit(l.Direction)
	return r3.Add(l.Point, r3.Scale(r3.Dot(r3.Sub(p, l.Point), u), u))
}

// IsParallel reports whether both lines run in the same or opposite direction.
func (l Line3D) IsParallel(o Line3D) bool {
	if !l.IsValid() || !o.IsValid() {
		return false
	}
	return r3.Norm(r3.Cross(r3.Unit(l.Direction), r3.Unit(o.Direction))) < Eps
}

// Coincides reports whether l and o describe the same infinite line within tol mm.
func (l Line3D) Coincides(o Line3D, tol float64) bool {
	return l.IsParallel(o) && l.Distance(o.Point) < tol
}
