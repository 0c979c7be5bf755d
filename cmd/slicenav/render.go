package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"slicenav/internal/models"
	"slicenav/pkg/navigation"
	"slicenav/pkg/visualization"
)

// renderAll writes every view in parallel; failures are reported as warnings.
// Views with several time steps also get one image per step.
func renderAll(viewer *visualization.Viewer, views []*navigation.SliceNavigationController, dir string) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, v := range views {
		wg.Add(1)
		go func(v *navigation.SliceNavigationController) {
			defer wg.Done()
			filename, err := viewer.SaveController(v, dir)
			var stepErr error
			steps := 0
			if world := v.WorldGeometry(); err == nil && world != nil && world.CountTimeSteps() > 1 {
				steps = world.CountTimeSteps()
				stepErr = viewer.SaveTimeSteps(world, v.ID(), filepath.Join(dir, "timesteps"))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Warning: %v", err)
				return
			}
			fmt.Printf("Rendered %s to %s\n", v.ID(), filename)
			if stepErr != nil {
				log.Printf("Warning: %s time steps: %v", v.ID(), stepErr)
			} else if steps > 0 {
				fmt.Printf("Rendered %d time steps of %s\n", steps, v.ID())
			}
		}(v)
	}
	wg.Wait()
}

// saveCenterSlices writes the axis-aligned slices through the middle of the
// volume as x.jpg, y.jpg and z.jpg.
func saveCenterSlices(viewer *visualization.Viewer, volume *models.Volume, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating slices directory: %w", err)
	}

	middle := map[string]int{"x": volume.Width / 2, "y": volume.Height / 2, "z": volume.Depth / 2}
	var files []string
	for _, axis := range []string{"x", "y", "z"} {
		img, err := viewer.ExtractSlice(axis, middle[axis])
		if err != nil {
			return files, fmt.Errorf("extracting %s slice: %w", axis, err)
		}
		filename := filepath.Join(dir, axis+".jpg")
		if err := viewer.SaveSlice(img, filename); err != nil {
			return files, fmt.Errorf("saving %s slice: %w", axis, err)
		}
		files = append(files, filename)
	}
	return files, nil
}
