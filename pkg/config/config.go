// Package config provides configuration loading and management for slicenav.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"slicenav/pkg/slices"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Rotation parameters
	Rotation struct {
		// LinkPlanes rotates every crossing plane together with the grabbed one
		LinkPlanes bool `yaml:"linkPlanes"`

		// ThresholdPixels is how close the cursor must be to an intersection line to grab it
		ThresholdPixels float64 `yaml:"thresholdPixels"`

		// SwivelThresholdPixels is the dead zone around the crosshair centre in swivel mode
		SwivelThresholdPixels float64 `yaml:"swivelThresholdPixels"`

		// LineTolerance is the distance in mm below which two lines are the same line
		LineTolerance float64 `yaml:"lineTolerance"`

		// Mode is either "rotate" or "swivel"
		Mode string `yaml:"mode"`
	} `yaml:"rotation"`

	// Time parameters
	Time struct {
		// StepDurationMs is the length of each time step of a generated time geometry
		StepDurationMs float64 `yaml:"stepDurationMs"`
	} `yaml:"time"`

	// Viewer parameters
	Viewer struct {
		// Resolution is the number of pixels per side of a rendered plane
		Resolution int `yaml:"resolution"`

		// JPEGQuality is passed to the JPEG encoder
		JPEGQuality int `yaml:"jpegQuality"`
	} `yaml:"viewer"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging of rotation decisions
		Verbose bool `yaml:"verbose"`

		// RenderDir receives the rendered planes; empty disables rendering
		RenderDir string `yaml:"renderDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Rotation.LinkPlanes = true
	cfg.Rotation.ThresholdPixels = slices.DefaultThresholdPixels
	cfg.Rotation.SwivelThresholdPixels = slices.DefaultSwivelThresholdPixels
	cfg.Rotation.LineTolerance = 1e-6
	cfg.Rotation.Mode = "rotate"

	cfg.Time.StepDurationMs = 1000

	cfg.Viewer.Resolution = 256
	cfg.Viewer.JPEGQuality = 90

	cfg.Output.Verbose = false
	cfg.Output.RenderDir = ""

	return cfg
}

// Validate checks value ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Rotation.ThresholdPixels <= 0:
		return fmt.Errorf("%w: rotation.thresholdPixels must be positive, got %g", ErrInvalidConfig, c.Rotation.ThresholdPixels)
	case c.Rotation.SwivelThresholdPixels <= 0:
		return fmt.Errorf("%w: rotation.swivelThresholdPixels must be positive, got %g", ErrInvalidConfig, c.Rotation.SwivelThresholdPixels)
	case c.Rotation.LineTolerance <= 0:
		return fmt.Errorf("%w: rotation.lineTolerance must be positive, got %g", ErrInvalidConfig, c.Rotation.LineTolerance)
	case c.Time.StepDurationMs <= 0:
		return fmt.Errorf("%w: time.stepDurationMs must be positive, got %g", ErrInvalidConfig, c.Time.StepDurationMs)
	case c.Viewer.Resolution <= 0:
		return fmt.Errorf("%w: viewer.resolution must be positive, got %d", ErrInvalidConfig, c.Viewer.Resolution)
	case c.Viewer.JPEGQuality < 1 || c.Viewer.JPEGQuality > 100:
		return fmt.Errorf("%w: viewer.jpegQuality must be in [1,100], got %d", ErrInvalidConfig, c.Viewer.JPEGQuality)
	}
	if _, err := slices.ParseMode(c.Rotation.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RotatorOptions maps the rotation section onto rotator options.
// Call Validate first; an unknown mode falls back to rotate.
func (c *Config) RotatorOptions() []slices.Option {
	mode, _ := slices.ParseMode(c.Rotation.Mode)
	return []slices.Option{
		slices.WithLinkPlanes(c.Rotation.LinkPlanes),
		slices.WithThresholdPixels(c.Rotation.ThresholdPixels),
		slices.WithSwivelThresholdPixels(c.Rotation.SwivelThresholdPixels),
		slices.WithLineTolerance(c.Rotation.LineTolerance),
		slices.WithMode(mode),
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
