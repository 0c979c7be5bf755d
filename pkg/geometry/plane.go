package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ViewDirection names the standard anatomical orientations of a plane.
type ViewDirection int

const (
	Axial ViewDirection = iota
	Sagittal
	Coronal
)

func (d ViewDirection) String() string {
	switch d {
	case Axial:
		return "axial"
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	}
	return fmt.Sprintf("ViewDirection(%d)", int(d))
}

// ParseViewDirection accepts the names returned by ViewDirection.String.
func ParseViewDirection(s string) (ViewDirection, error) {
	for _, d := range []ViewDirection{Axial, Sagittal, Coronal} {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown view direction %q", s)
}

// PlaneGeometry is a bounded 2D plane embedded in world space. Axis 0 and
// axis 1 span the plane (right and bottom), axis 2 is along the normal.
type PlaneGeometry struct {
	Geometry3D
}

var errDegeneratePlane = errors.New("plane edges are parallel or zero length")

// NewPlaneGeometry returns the plane with corner origin spanned by the edge
// vectors right and bottom, sampled with the given in-plane spacing in mm.
func NewPlaneGeometry(origin, right, bottom r3.Vec, spacing float64) (*PlaneGeometry, error) {
	normal := r3.Cross(right, bottom)
	if r3.Norm(normal) < Eps*Eps {
		return nil, errDegeneratePlane
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("invalid spacing %g", spacing)
	}

	p := &PlaneGeometry{}
	p.origin = origin
	p.axes = [3]r3.Vec{
		r3.Scale(spacing, r3.Unit(right)),
		r3.Scale(spacing, r3.Unit(bottom)),
		r3.Scale(spacing, r3.Unit(normal)),
	}
	// zero thickness keeps Center on the plane
	p.bounds = [6]float64{0, r3.Norm(right) / spacing, 0, r3.Norm(bottom) / spacing, 0, 0}
	return p, nil
}

// StandardPlane returns a square plane of the given size in mm, centred on
// center and oriented along dir.
func StandardPlane(dir ViewDirection, center r3.Vec, size, spacing float64) *PlaneGeometry {
	if size <= 0 {
		size = 1
	}
	if spacing <= 0 {
		spacing = 1
	}
	var right, bottom r3.Vec
	switch dir {
	case Sagittal:
		right, bottom = r3.Vec{Y: size}, r3.Vec{Z: size}
	case Coronal:
		right, bottom = r3.Vec{X: size}, r3.Vec{Z: size}
	default:
		right, bottom = r3.Vec{X: size}, r3.Vec{Y: size}
	}
	origin := r3.Sub(center, r3.Scale(0.5, r3.Add(right, bottom)))
	p, _ := NewPlaneGeometry(origin, right, bottom, spacing)
	return p
}

// Clone returns a deep copy.
func (p *PlaneGeometry) Clone() *PlaneGeometry {
	c := *p
	return &c
}

// Normal returns the unit normal.
func (p *PlaneGeometry) Normal() r3.Vec {
	return r3.Unit(p.axes[2])
}

// Right returns the unit in-plane direction of index axis 0.
func (p *PlaneGeometry) Right() r3.Vec { return r3.Unit(p.axes[0]) }

// Bottom returns the unit in-plane direction of index axis 1.
func (p *PlaneGeometry) Bottom() r3.Vec { return r3.Unit(p.axes[1]) }

// PixelSpacing returns the in-plane spacing along axis 0 in mm.
func (p *PlaneGeometry) PixelSpacing() float64 { return r3.Norm(p.axes[0]) }

// SignedDistance is positive on the side the normal points to.
func (p *PlaneGeometry) SignedDistance(pt r3.Vec) float64 {
	return r3.Dot(p.Normal(), r3.Sub(pt, p.origin))
}

// Distance returns the unsigned distance from pt to the infinite plane.
func (p *PlaneGeometry) Distance(pt r3.Vec) float64 {
	return math.Abs(p.SignedDistance(pt))
}

// Project returns the orthogonal projection of pt onto the plane.
func (p *PlaneGeometry) Project(pt r3.Vec) r3.Vec {
	return r3.Sub(pt, r3.Scale(p.SignedDistance(pt), p.Normal()))
}

// Map returns the in-plane coordinates of pt in mm relative to the origin,
// measured along Right and Bottom.
func (p *PlaneGeometry) Map(pt r3.Vec) (u, v float64) {
	d := r3.Sub(pt, p.origin)
	return r3.Dot(d, p.Right()), r3.Dot(d, p.Bottom())
}

// IsParallel reports whether the normals of p and o are parallel or anti-parallel.
func (p *PlaneGeometry) IsParallel(o *PlaneGeometry) bool {
	return r3.Norm(r3.Cross(p.Normal(), o.Normal())) < Eps
}

// ContainsPoint reports whether pt lies on the infinite plane.
func (p *PlaneGeometry) ContainsPoint(pt r3.Vec) bool {
	return p.Distance(pt) < Eps
}

// SamePlane reports whether o describes the same infinite plane as p.
func (p *PlaneGeometry) SamePlane(o *PlaneGeometry) bool {
	return p.IsParallel(o) && p.ContainsPoint(o.Origin())
}

// IntersectionLine returns the line where p and o meet. It reports false for
// parallel planes.
func (p *PlaneGeometry) IntersectionLine(o *PlaneGeometry) (Line3D, bool) {
	n1, n2 := p.Normal(), o.Normal()
	dir := r3.Cross(n1, n2)
	if r3.Norm2(dir) < Eps*Eps {
		return Line3D{}, false
	}

	// the point c1*n1 + c2*n2 satisfies both plane equations n·x = d
	n1n2 := r3.Dot(n1, n2)
	a := mat.NewDense(2, 2, []float64{1, n1n2, n1n2, 1})
	b := mat.NewVecDense(2, []float64{r3.Dot(n1, p.origin), r3.Dot(n2, o.origin)})
	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return Line3D{}, false
	}
	pt := r3.Add(r3.Scale(c.AtVec(0), n1), r3.Scale(c.AtVec(1), n2))
	return Line3D{Point: pt, Direction: dir}, true
}

// IntersectionPoint returns the point where line crosses p. It reports false
// when the line is parallel to the plane or has no direction.
func (p *PlaneGeometry) IntersectionPoint(line Line3D) (r3.Vec, bool) {
	if !line.IsValid() {
		return r3.Vec{}, false
	}
	n := p.Normal()
	dir := r3.Unit(line.Direction)
	t := r3.Dot(n, dir)
	if math.Abs(t) < Eps {
		return r3.Vec{}, false
	}
	t = r3.Dot(n, r3.Sub(p.origin, line.Point)) / t
	return r3.Add(line.Point, r3.Scale(t, dir)), true
}

// MoveTo translates the plane along its normal so that it passes through pt.
func (p *PlaneGeometry) MoveTo(pt r3.Vec) {
	p.origin = r3.Add(p.origin, r3.Scale(p.SignedDistance(pt), p.Normal()))
}
