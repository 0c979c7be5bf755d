package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	"slicenav/internal/models"
	"slicenav/pkg/config"
	"slicenav/pkg/slices"
	"slicenav/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "slicenav.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	scriptPath := flag.String("script", "", "YAML gesture script to replay")
	inputDir := flag.String("input", "", "Directory of JPEG slices (default: synthetic phantom)")
	sliceGap := flag.Float64("gap", 1.0, "Inter-slice gap in mm for -input")
	phantomSize := flag.Int("phantom", 64, "Edge length in voxels of the synthetic phantom")
	timeSteps := flag.Int("timesteps", 1, "Number of time steps per view")
	renderDir := flag.String("render", "", "Directory to render the final planes to (overrides output.renderDir)")
	viewList := flag.String("views", "axial,sagittal,coronal", "Comma separated view directions to create")
	extractSlices := flag.Bool("extract-slices", false, "Save the centre x, y and z slices of the volume")
	slicesDir := flag.String("slices-dir", "slices", "Directory for -extract-slices output")
	verbose := flag.Bool("verbose", false, "Log rotation decisions")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose || cfg.Output.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if *renderDir != "" {
		cfg.Output.RenderDir = *renderDir
	}

	volume, err := loadVolume(*inputDir, *sliceGap, *phantomSize)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	fmt.Printf("Volume: %dx%dx%d voxels\n", volume.Width, volume.Height, volume.Depth)

	dirs, err := parseViews(*viewList)
	if err != nil {
		log.Fatalf("Invalid -views: %v", err)
	}

	g := volume.Geometry()
	size := math.Max(g.ExtentInMM(0), math.Max(g.ExtentInMM(1), g.ExtentInMM(2)))
	views, err := buildViews(dirs, volume.Center(), size, *timeSteps, cfg.Time.StepDurationMs)
	if err != nil {
		log.Fatalf("Failed to build views: %v", err)
	}

	rotator := slices.NewRotator(append(cfg.RotatorOptions(), slices.WithLogger(slog.Default()))...)
	for _, v := range views {
		rotator.AddSliceController(v)
	}

	if *scriptPath != "" {
		script, err := LoadScript(*scriptPath)
		if err != nil {
			log.Fatalf("Failed to load script: %v", err)
		}
		if script.TimePoint != nil {
			for _, v := range views {
				if !v.SetTimePoint(*script.TimePoint) {
					log.Printf("Warning: time point %g is outside view %s", *script.TimePoint, v.ID())
				}
			}
		}

		actions, err := Replay(rotator, script.Events)
		if err != nil {
			log.Fatalf("Replay failed: %v", err)
		}
		for i, a := range actions {
			fmt.Printf("%3d %-7s %-9s %s\n", i, script.Events[i].Kind, script.Events[i].View, a)
		}
	}

	fmt.Println("\nFinal planes:")
	for _, v := range views {
		p := v.CurrentPlaneGeometry()
		n, c := p.Normal(), p.Center()
		fmt.Printf("%-9s step %d  normal (%.4f, %.4f, %.4f)  centre (%.2f, %.2f, %.2f)\n",
			v.ID(), v.TimeStep(), n.X, n.Y, n.Z, c.X, c.Y, c.Z)
	}

	viewer := visualization.NewViewer(volume, cfg.Viewer.Resolution, cfg.Viewer.JPEGQuality)
	if *extractSlices {
		files, err := saveCenterSlices(viewer, volume, *slicesDir)
		if err != nil {
			log.Printf("Warning: %v", err)
		}
		fmt.Printf("Saved %d centre slices to %s\n", len(files), *slicesDir)
	}
	if cfg.Output.RenderDir != "" {
		renderAll(viewer, views, cfg.Output.RenderDir)
	}
}

func loadVolume(inputDir string, sliceGap float64, phantomSize int) (*models.Volume, error) {
	if inputDir == "" {
		if phantomSize < 2 {
			return nil, fmt.Errorf("phantom size must be at least 2, got %d", phantomSize)
		}
		return models.NewPhantom(phantomSize), nil
	}
	stack, err := models.LoadSlices(inputDir, sliceGap)
	if err != nil {
		return nil, err
	}
	return models.VolumeFromSlices(stack, sliceGap)
}
