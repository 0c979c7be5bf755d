package main

import (
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"slicenav/pkg/geometry"
	"slicenav/pkg/navigation"
	"slicenav/pkg/slices"
	"slicenav/pkg/timegeom"
)

// Script is a recorded sequence of pointer events.
type Script struct {
	// TimePoint, when set, is selected on every view before replay
	TimePoint *float64 `yaml:"timePoint"`

	Events []ScriptEvent `yaml:"events"`
}

// ScriptEvent is one pointer event in world coordinates.
type ScriptEvent struct {
	Kind       string    `yaml:"kind"`
	View       string    `yaml:"view"`
	Position   []float64 `yaml:"position"`
	MMPerPixel float64   `yaml:"mmPerPixel"`
}

// Event converts the scripted event for the rotator.
func (e ScriptEvent) Event() (slices.Event, error) {
	kind, err := slices.ParseEventKind(e.Kind)
	if err != nil {
		return slices.Event{}, err
	}
	if len(e.Position) != 3 {
		return slices.Event{}, fmt.Errorf("position needs 3 coordinates, got %d", len(e.Position))
	}
	return slices.Event{
		Kind:       kind,
		View:       e.View,
		Position:   r3.Vec{X: e.Position[0], Y: e.Position[1], Z: e.Position[2]},
		MMPerPixel: e.MMPerPixel,
	}, nil
}

// LoadScript reads a YAML gesture script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing script: %w", err)
	}
	return &s, nil
}

// Replay feeds every event to the rotator and returns what each one did.
// Conversion errors stop the replay.
func Replay(r *slices.Rotator, events []ScriptEvent) ([]slices.Action, error) {
	actions := make([]slices.Action, 0, len(events))
	for i, e := range events {
		ev, err := e.Event()
		if err != nil {
			return actions, fmt.Errorf("event %d: %w", i, err)
		}
		actions = append(actions, r.HandleEvent(ev))
	}
	return actions, nil
}

// parseViews reads a comma separated list of view directions.
func parseViews(list string) ([]geometry.ViewDirection, error) {
	var dirs []geometry.ViewDirection
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		d, err := geometry.ParseViewDirection(name)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no views in %q", list)
	}
	return dirs, nil
}

// buildViews returns one controller per direction crossing at center, each
// with timeSteps steps of stepMs milliseconds. A direction listed twice gets
// a numbered id.
func buildViews(dirs []geometry.ViewDirection, center r3.Vec, size float64, timeSteps int, stepMs float64) ([]*navigation.SliceNavigationController, error) {
	if timeSteps < 1 {
		timeSteps = 1
	}
	seen := make(map[geometry.ViewDirection]int)
	var views []*navigation.SliceNavigationController
	for _, dir := range dirs {
		plane := geometry.StandardPlane(dir, center, size, 1)
		world := timegeom.New(func() *geometry.PlaneGeometry { return geometry.StandardPlane(dir, center, size, 1) })
		for s := 0; s < timeSteps; s++ {
			bounds := timegeom.TimeBounds{Min: float64(s) * stepMs, Max: float64(s+1) * stepMs}
			if err := world.AppendTimeStepClone(plane, bounds); err != nil {
				return nil, fmt.Errorf("building %s time geometry: %w", dir, err)
			}
		}

		id := dir.String()
		if n := seen[dir]; n > 0 {
			id = fmt.Sprintf("%s-%d", id, n+1)
		}
		seen[dir]++
		ctrl := navigation.New(id, dir)
		ctrl.SetWorldGeometry(world)
		views = append(views, ctrl)
	}
	return views, nil
}
