// Package geometry provides the world-space geometry used by the slice
// navigation core: oriented boxes, planes embedded in 3D, infinite lines and
// rotations about an arbitrary axis.
//
// All coordinates are in millimetres. Points and vectors are gonum r3.Vec
// values; geometric failures (parallel planes, zero-length vectors, singular
// systems) are reported through boolean results rather than errors.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Eps is the distance tolerance in mm used for identity tests between
// points, lines and planes.
const Eps = 1e-6

// Geometry3D is an oriented box in world space. Index coordinates are mapped
// to world coordinates by origin + axes * index, where the length of each
// axis is the spacing along that direction.
type Geometry3D struct {
	origin r3.Vec

	// axes are the columns of the index-to-world matrix
	axes [3]r3.Vec

	// bounds holds xmin, xmax, ymin, ymax, zmin, zmax in index units
	bounds [6]float64
}

// NewGeometry3D returns a unit cube at the world origin with identity axes.
func NewGeometry3D() *Geometry3D {
	return &Geometry3D{
		axes:   [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}},
		bounds: [6]float64{0, 1, 0, 1, 0, 1},
	}
}

// Origin returns the world position of index (0,0,0).
func (g *Geometry3D) Origin() r3.Vec { return g.origin }

// SetOrigin moves the geometry without changing its orientation.
func (g *Geometry3D) SetOrigin(origin r3.Vec) { g.origin = origin }

// Axis returns column i of the index-to-world matrix.
func (g *Geometry3D) Axis(i int) r3.Vec { return g.axes[i] }

// SetAxes replaces the index-to-world matrix columns.
func (g *Geometry3D) SetAxes(a0, a1, a2 r3.Vec) { g.axes = [3]r3.Vec{a0, a1, a2} }

// Bounds returns the index bounds as xmin, xmax, ymin, ymax, zmin, zmax.
func (g *Geometry3D) Bounds() [6]float64 { return g.bounds }

// SetBounds replaces the index bounds.
func (g *Geometry3D) SetBounds(bounds [6]float64) { g.bounds = bounds }

// Spacing returns the length of each axis, i.e. the size of one index step
// in mm along each direction.
func (g *Geometry3D) Spacing() r3.Vec {
	return r3.Vec{X: r3.Norm(g.axes[0]), Y: r3.Norm(g.axes[1]), Z: r3.Norm(g.axes[2])}
}

// Extent returns the size of the bounds along direction d in index units.
func (g *Geometry3D) Extent(d int) float64 {
	return g.bounds[2*d+1] - g.bounds[2*d]
}

// ExtentInMM returns the size of the bounds along direction d in mm.
func (g *Geometry3D) ExtentInMM(d int) float64 {
	return g.Extent(d) * r3.Norm(g.axes[d])
}

// IndexToWorld maps a continuous index to a world position.
func (g *Geometry3D) IndexToWorld(index r3.Vec) r3.Vec {
	p := g.origin
	p = r3.Add(p, r3.Scale(index.X, g.axes[0]))
	p = r3.Add(p, r3.Scale(index.Y, g.axes[1]))
	p = r3.Add(p, r3.Scale(index.Z, g.axes[2]))
	return p
}

// WorldToIndex maps a world position to a continuous index. It reports false
// when the axes are linearly dependent.
func (g *Geometry3D) WorldToIndex(p r3.Vec) (r3.Vec, bool) {
	m := mat.NewDense(3, 3, []float64{
		g.axes[0].X, g.axes[1].X, g.axes[2].X,
		g.axes[0].Y, g.axes[1].Y, g.axes[2].Y,
		g.axes[0].Z, g.axes[1].Z, g.axes[2].Z,
	})
	d := r3.Sub(p, g.origin)
	var x mat.VecDense
	if err := x.SolveVec(m, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z})); err != nil {
		return r3.Vec{}, false
	}
	return r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, true
}

// Center returns the world position of the centre of the bounds.
func (g *Geometry3D) Center() r3.Vec {
	b := g.bounds
	return g.IndexToWorld(r3.Vec{
		X: (b[0] + b[1]) / 2,
		Y: (b[2] + b[3]) / 2,
		Z: (b[4] + b[5]) / 2,
	})
}

// IsInside reports whether p lies within the bounds.
func (g *Geometry3D) IsInside(p r3.Vec) bool {
	idx, ok := g.WorldToIndex(p)
	if !ok {
		return false
	}
	b := g.bounds
	return idx.X >= b[0]-Eps && idx.X <= b[1]+Eps &&
		idx.Y >= b[2]-Eps && idx.Y <= b[3]+Eps &&
		idx.Z >= b[4]-Eps && idx.Z <= b[5]+Eps
}

// IsValid reports whether the geometry has finite, non-degenerate axes.
func (g *Geometry3D) IsValid() bool {
	for _, a := range g.axes {
		n := r3.Norm(a)
		if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return false
		}
	}
	return r3.Norm(r3.Cross(g.axes[0], g.axes[1])) > 0
}

// Clone returns a deep copy.
func (g *Geometry3D) Clone() *Geometry3D {
	c := *g
	return &c
}

// Rotate applies op to the origin and the axes in place.
func (g *Geometry3D) Rotate(op RotationOperation) {
	g.origin = op.Apply(g.origin)
	for i := range g.axes {
		g.axes[i] = op.ApplyVector(g.axes[i])
	}
}
