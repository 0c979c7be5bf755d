// Package navigation holds the per-view navigation state: which plane a
// render view currently displays, at which time step, and who must be told
// when that plane changes.
package navigation

import (
	"gonum.org/v1/gonum/spatial/r3"

	"slicenav/pkg/geometry"
	"slicenav/pkg/timegeom"
)

// WorldGeometry is the time-resolved sequence of planes a controller shows.
type WorldGeometry = timegeom.ArbitraryTimeGeometry[*geometry.PlaneGeometry]

// NewWorldGeometry returns a single-step world geometry holding a copy of
// plane for [0, 1], or an empty one for a nil plane.
func NewWorldGeometry(plane *geometry.PlaneGeometry) *WorldGeometry {
	if plane == nil {
		return timegeom.New(defaultPlane)
	}
	wg, err := timegeom.NewSingleStep(defaultPlane, plane.Clone(), timegeom.TimeBounds{Min: 0, Max: 1})
	if err != nil {
		return timegeom.New(defaultPlane)
	}
	return wg
}

func defaultPlane() *geometry.PlaneGeometry {
	return geometry.StandardPlane(geometry.Axial, r3.Vec{}, 1, 1)
}

// SliceNavigationController owns the plane displayed by one render view.
type SliceNavigationController struct {
	id        string
	direction geometry.ViewDirection

	world    *WorldGeometry
	timeStep timegeom.TimeStep

	sliceLocked         bool
	sliceRotationLocked bool

	observers map[int]func(id string)
	nextTag   int
}

// New returns a controller without a world geometry.
func New(id string, direction geometry.ViewDirection) *SliceNavigationController {
	return &SliceNavigationController{
		id:        id,
		direction: direction,
		observers: make(map[int]func(string)),
	}
}

// ID returns the identity the controller is registered under.
func (c *SliceNavigationController) ID() string { return c.id }

// DefaultViewDirection returns the orientation the controller was created for.
func (c *SliceNavigationController) DefaultViewDirection() geometry.ViewDirection { return c.direction }

// WorldGeometry returns the created world geometry, nil if none exists.
func (c *SliceNavigationController) WorldGeometry() *WorldGeometry { return c.world }

// SetWorldGeometry replaces the created world geometry. The current time
// step is clamped to the new sequence.
func (c *SliceNavigationController) SetWorldGeometry(world *WorldGeometry) {
	c.world = world
	if c.world == nil || !c.world.IsValidTimeStep(c.timeStep) {
		c.timeStep = 0
	}
	c.notify()
}

// ClearWorldGeometry removes the plane; CurrentPlaneGeometry returns nil afterwards.
func (c *SliceNavigationController) ClearWorldGeometry() {
	c.SetWorldGeometry(nil)
}

// CurrentPlaneGeometry returns the plane of the current time step, or nil.
func (c *SliceNavigationController) CurrentPlaneGeometry() *geometry.PlaneGeometry {
	if c.world == nil {
		return nil
	}
	p, ok := c.world.GeometryForTimeStep(c.timeStep)
	if !ok {
		return nil
	}
	return p
}

// SetPlaneGeometry replaces the plane of the current time step with a copy of
// plane, creating a single-step world geometry if none exists. Each
// controller owns its planes even when callers pass the same one to several.
func (c *SliceNavigationController) SetPlaneGeometry(plane *geometry.PlaneGeometry) {
	if plane == nil {
		return
	}
	if c.world == nil || !c.world.IsValid() {
		c.world = NewWorldGeometry(plane)
		c.timeStep = 0
	} else {
		c.world.SetTimeStepGeometry(plane.Clone(), c.timeStep)
	}
	c.notify()
}

// TimeStep returns the current time step.
func (c *SliceNavigationController) TimeStep() timegeom.TimeStep { return c.timeStep }

// SetTimeStep selects the displayed time step. It reports false and keeps
// the current step for an invalid step.
func (c *SliceNavigationController) SetTimeStep(s timegeom.TimeStep) bool {
	if c.world == nil || !c.world.IsValidTimeStep(s) {
		return false
	}
	if s != c.timeStep {
		c.timeStep = s
		c.notify()
	}
	return true
}

// SetTimePoint selects the step containing t. It reports false for a time
// point outside the world geometry.
func (c *SliceNavigationController) SetTimePoint(t timegeom.TimePoint) bool {
	if c.world == nil || !c.world.IsValidTimePoint(t) {
		return false
	}
	return c.SetTimeStep(c.world.TimePointToTimeStep(t))
}

// SliceLocked reports whether slice selection is disabled.
func (c *SliceNavigationController) SliceLocked() bool { return c.sliceLocked }

// SetSliceLocked enables or disables slice selection.
func (c *SliceNavigationController) SetSliceLocked(locked bool) { c.sliceLocked = locked }

// SliceRotationLocked reports whether rotations are ignored.
func (c *SliceNavigationController) SliceRotationLocked() bool { return c.sliceRotationLocked }

// SetSliceRotationLocked enables or disables rotations.
func (c *SliceNavigationController) SetSliceRotationLocked(locked bool) {
	c.sliceRotationLocked = locked
}

// SelectSliceByPoint moves every time step's plane along its normal so that
// it passes through p.
func (c *SliceNavigationController) SelectSliceByPoint(p r3.Vec) {
	if c.sliceLocked || c.world == nil || !c.world.IsValid() {
		return
	}
	c.world.Each(func(_ timegeom.TimeStep, plane *geometry.PlaneGeometry, _ timegeom.TimeBounds) {
		plane.MoveTo(p)
	})
	c.notify()
}

// Rotate applies op to the plane of every time step.
func (c *SliceNavigationController) Rotate(op geometry.RotationOperation) {
	if c.sliceRotationLocked || c.world == nil || !c.world.IsValid() || op.IsIdentity() {
		return
	}
	c.world.Each(func(_ timegeom.TimeStep, plane *geometry.PlaneGeometry, _ timegeom.TimeBounds) {
		plane.Rotate(op)
	})
	c.notify()
}

// ConnectGeometryEvents registers fn to be called with the controller's ID
// after every geometry change and returns a tag for disconnecting it.
func (c *SliceNavigationController) ConnectGeometryEvents(fn func(id string)) int {
	c.nextTag++
	c.observers[c.nextTag] = fn
	return c.nextTag
}

// DisconnectGeometryEvents removes the observer registered under tag.
func (c *SliceNavigationController) DisconnectGeometryEvents(tag int) {
	delete(c.observers, tag)
}

func (c *SliceNavigationController) notify() {
	for _, fn := range c.observers {
		fn(c.id)
	}
}
