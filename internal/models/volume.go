package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"slicenav/pkg/geometry"
)

// Volume is a scalar voxel grid with intensities in [0,1].
type Volume struct {
	// Data is the 3D volume data as a 1D array, x fastest then y then z
	Data []float64

	// Width, Height, Depth are the dimensions in voxels
	Width, Height, Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}

	// Origin is the world position of the centre of voxel (0,0,0)
	Origin r3.Vec
}

// NewVolume allocates a zero volume with the given voxel size.
func NewVolume(width, height, depth int, voxelSize r3.Vec) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got %dx%dx%d", width, height, depth)
	}
	if voxelSize.X <= 0 || voxelSize.Y <= 0 || voxelSize.Z <= 0 {
		return nil, fmt.Errorf("voxel size must be positive, got %v", voxelSize)
	}
	v := &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = voxelSize.X, voxelSize.Y, voxelSize.Z
	return v, nil
}

// VolumeFromSlices stacks equally sized slices along z. Pixels are 1 mm
// apart in-plane and slices are sliceGap mm apart.
func VolumeFromSlices(slices []Slice, sliceGap float64) (*Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices to stack")
	}
	size := slices[0].Image.Bounds().Size()
	v, err := NewVolume(size.X, size.Y, len(slices), r3.Vec{X: 1, Y: 1, Z: sliceGap})
	if err != nil {
		return nil, err
	}
	for z, s := range slices {
		b := s.Image.Bounds()
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				r, _, _, _ := s.Image.At(b.Min.X+x, b.Min.Y+y).RGBA()
				v.Set(x, y, z, float64(r)/65535.0)
			}
		}
	}
	return v, nil
}

// NewPhantom returns a cube volume of size voxels with a bright sphere in
// the middle and a gradient along x, which makes every reslice orientation
// distinguishable.
func NewPhantom(size int) *Volume {
	v, _ := NewVolume(size, size, size, r3.Vec{X: 1, Y: 1, Z: 1})
	c := float64(size-1) / 2
	radius := float64(size) / 4
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				d := math.Sqrt((float64(x)-c)*(float64(x)-c) + (float64(y)-c)*(float64(y)-c) + (float64(z)-c)*(float64(z)-c))
				value := 0.5 * float64(x) / float64(size)
				if d <= radius {
					value = 1
				}
				v.Set(x, y, z, value)
			}
		}
	}
	return v
}

func (v *Volume) index(x, y, z int) int { return z*v.Width*v.Height + y*v.Width + x }

// At returns the voxel value, or 0 outside the grid.
func (v *Volume) At(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= v.Width || y >= v.Height || z >= v.Depth {
		return 0
	}
	return v.Data[v.index(x, y, z)]
}

// Set stores a voxel value; out of range writes are dropped.
func (v *Volume) Set(x, y, z int, value float64) {
	if x < 0 || y < 0 || z < 0 || x >= v.Width || y >= v.Height || z >= v.Depth {
		return
	}
	v.Data[v.index(x, y, z)] = value
}

// Geometry returns the world box covered by the voxel grid.
func (v *Volume) Geometry() *geometry.Geometry3D {
	g := geometry.NewGeometry3D()
	g.SetOrigin(v.Origin)
	g.SetAxes(r3.Vec{X: v.VoxelSize.X}, r3.Vec{Y: v.VoxelSize.Y}, r3.Vec{Z: v.VoxelSize.Z})
	g.SetBounds([6]float64{0, float64(v.Width - 1), 0, float64(v.Height - 1), 0, float64(v.Depth - 1)})
	return g
}

// Center returns the world position of the middle of the grid.
func (v *Volume) Center() r3.Vec { return v.Geometry().Center() }

// Sample trilinearly interpolates the volume at a world position. It
// reports false outside the grid or for non-finite positions.
func (v *Volume) Sample(p r3.Vec) (float64, bool) {
	// the grid is axis aligned, so the index is a per-axis scale
	idx := r3.Vec{
		X: (p.X - v.Origin.X) / v.VoxelSize.X,
		Y: (p.Y - v.Origin.Y) / v.VoxelSize.Y,
		Z: (p.Z - v.Origin.Z) / v.VoxelSize.Z,
	}
	if !inRange(idx.X, v.Width) || !inRange(idx.Y, v.Height) || !inRange(idx.Z, v.Depth) {
		return 0, false
	}

	x0, y0, z0 := int(math.Floor(idx.X)), int(math.Floor(idx.Y)), int(math.Floor(idx.Z))
	fx, fy, fz := idx.X-float64(x0), idx.Y-float64(y0), idx.Z-float64(z0)

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	c00 := lerp(v.At(x0, y0, z0), v.At(x0+1, y0, z0), fx)
	c10 := lerp(v.At(x0, y0+1, z0), v.At(x0+1, y0+1, z0), fx)
	c01 := lerp(v.At(x0, y0, z0+1), v.At(x0+1, y0, z0+1), fx)
	c11 := lerp(v.At(x0, y0+1, z0+1), v.At(x0+1, y0+1, z0+1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz), true
}

// inRange reports whether the continuous index i lies in [0, n-1]. NaN fails.
func inRange(i float64, n int) bool {
	return i >= -geometry.Eps && i <= float64(n-1)+geometry.Eps
}
