// Package visualization renders controller planes out of a voxel volume.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"slicenav/internal/models"
	"slicenav/pkg/geometry"
	"slicenav/pkg/navigation"
	"slicenav/pkg/timegeom"
)

// Viewer reslices a volume along arbitrary planes.
type Viewer struct {
	volume *models.Volume

	// resolution is the number of output pixels along the longer plane side
	resolution int

	// quality is the JPEG encoder quality
	quality int
}

// NewViewer creates a viewer over volume. Non-positive resolution and
// quality fall back to 256 pixels and 90.
func NewViewer(volume *models.Volume, resolution, quality int) *Viewer {
	if resolution <= 0 {
		resolution = 256
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Viewer{volume: volume, resolution: resolution, quality: quality}
}

// ExtractPlane samples the volume across the bounds of plane. Pixel (0,0)
// is at the plane origin; x runs along the right axis and y along the
// bottom axis. Points outside the volume render black.
func (v *Viewer) ExtractPlane(plane *geometry.PlaneGeometry) (image.Image, error) {
	if v.volume == nil {
		return nil, fmt.Errorf("viewer has no volume")
	}
	if plane == nil || !plane.IsValid() {
		return nil, fmt.Errorf("invalid plane geometry")
	}
	wmm, hmm := plane.ExtentInMM(0), plane.ExtentInMM(1)
	if wmm <= 0 || hmm <= 0 {
		return nil, fmt.Errorf("plane has empty extent %gx%g mm", wmm, hmm)
	}

	// keep the aspect ratio of the plane
	step := math.Max(wmm, hmm) / float64(v.resolution)
	w := max(1, int(math.Round(wmm/step)))
	h := max(1, int(math.Round(hmm/step)))

	right, bottom := plane.Right(), plane.Bottom()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := plane.Origin()
			p = r3.Add(p, r3.Scale((float64(x)+0.5)*wmm/float64(w), right))
			p = r3.Add(p, r3.Scale((float64(y)+0.5)*hmm/float64(h), bottom))
			value, ok := v.volume.Sample(p)
			if !ok {
				continue
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value*65535)))})
		}
	}
	return img, nil
}

// ExtractSlice extracts an axis-aligned slice through voxel position along
// axis x, y or z.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if v.volume == nil {
		return nil, fmt.Errorf("viewer has no volume")
	}
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	g := v.volume.Geometry()
	var dir geometry.ViewDirection
	var limit int
	idx := g.Center()
	switch axis {
	case "x", "X":
		dir, limit = geometry.Sagittal, v.volume.Width
	case "y", "Y":
		dir, limit = geometry.Coronal, v.volume.Height
	case "z", "Z":
		dir, limit = geometry.Axial, v.volume.Depth
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	if position >= limit {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", position, axis, limit)
	}

	world := g.IndexToWorld(r3.Vec{X: float64(position), Y: float64(position), Z: float64(position)})
	switch dir {
	case geometry.Sagittal:
		idx.X = world.X
	case geometry.Coronal:
		idx.Y = world.Y
	default:
		idx.Z = world.Z
	}

	size := math.Max(g.ExtentInMM(0), math.Max(g.ExtentInMM(1), g.ExtentInMM(2)))
	return v.ExtractPlane(geometry.StandardPlane(dir, idx, size, 1))
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: v.quality})
}

// SavePlane renders plane and writes it to filename.
func (v *Viewer) SavePlane(plane *geometry.PlaneGeometry, filename string) error {
	img, err := v.ExtractPlane(plane)
	if err != nil {
		return err
	}
	return v.SaveSlice(img, filename)
}

// SaveController writes the current plane of ctrl to outputDir as
// <id>.jpg.
func (v *Viewer) SaveController(ctrl *navigation.SliceNavigationController, outputDir string) (string, error) {
	plane := ctrl.CurrentPlaneGeometry()
	if plane == nil {
		return "", fmt.Errorf("controller %s has no plane", ctrl.ID())
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := filepath.Join(outputDir, ctrl.ID()+".jpg")
	if err := v.SavePlane(plane, filename); err != nil {
		return "", fmt.Errorf("rendering %s: %w", ctrl.ID(), err)
	}
	return filename, nil
}

// SaveTimeSteps writes one image per time step of world, named
// <prefix>_<step>.jpg.
func (v *Viewer) SaveTimeSteps(world *navigation.WorldGeometry, prefix, outputDir string) error {
	if world == nil || !world.IsValid() {
		return fmt.Errorf("no time steps to render")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var firstErr error
	world.Each(func(s timegeom.TimeStep, plane *geometry.PlaneGeometry, _ timegeom.TimeBounds) {
		if firstErr != nil {
			return
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%03d.jpg", prefix, s))
		if err := v.SavePlane(plane, filename); err != nil {
			firstErr = fmt.Errorf("time step %d: %w", s, err)
		}
	})
	return firstErr
}
