package models

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Slice represents a single image of an axial stack with metadata
type Slice struct {
	// Image is the decoded slice image
	Image image.Image

	// Index is the position of this slice in the sequence
	Index int

	// Filename is the original filename of the slice
	Filename string

	// Position is the physical position of the slice along z in mm
	Position float64
}

// LoadSlices reads every JPEG in dir, ordered by the number embedded in its
// file name, and places consecutive slices sliceGap mm apart.
func LoadSlices(dir string, sliceGap float64) ([]Slice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading slice directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no JPG images found in %s", dir)
	}

	// slice order follows the file numbering, not the lexical order
	sort.SliceStable(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	slices := make([]Slice, 0, len(names))
	for i, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		if i > 0 && img.Bounds().Size() != slices[0].Image.Bounds().Size() {
			return nil, fmt.Errorf("image %s is %v, expected %v", name, img.Bounds().Size(), slices[0].Image.Bounds().Size())
		}
		slices = append(slices, Slice{
			Image:    img,
			Index:    i,
			Filename: name,
			Position: float64(i) * sliceGap,
		})
	}
	return slices, nil
}

// extractNumber returns the digits of a file name as a number, 0 if none.
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return jpeg.Decode(file)
}
