// Package slices coordinates the planes shown by several render views. The
// Coordinator keeps the set of registered slice navigation controllers; the
// Rotator decides for every pointer gesture whether it selects a slice or
// rotates the linked planes.
package slices

import (
	"gonum.org/v1/gonum/spatial/r3"

	"slicenav/pkg/geometry"
)

// Controller is the capability set the coordinator needs from a slice
// navigation controller. The application owns controller lifetimes.
type Controller interface {
	ID() string

	// CurrentPlaneGeometry returns nil while the view shows no plane.
	CurrentPlaneGeometry() *geometry.PlaneGeometry
	SetPlaneGeometry(*geometry.PlaneGeometry)
}

// Rotatable controllers apply rotations themselves, e.g. to every time step.
type Rotatable interface {
	Rotate(geometry.RotationOperation)
}

// RotationLocker controllers may refuse to be rotated.
type RotationLocker interface {
	SliceRotationLocked() bool
}

// PointSelector controllers can move their slice to pass through a point.
type PointSelector interface {
	SelectSliceByPoint(r3.Vec)
}

// GeometryNotifier controllers report geometry changes to subscribers.
type GeometryNotifier interface {
	ConnectGeometryEvents(fn func(id string)) int
	DisconnectGeometryEvents(tag int)
}

// Listener receives registration and geometry notifications.
type Listener interface {
	OnSliceControllerAdded(Controller)
	OnSliceControllerRemoved(Controller)

	// SetGeometry is called when an observed controller's geometry changed.
	SetGeometry(id string)
}

// Coordinator maintains the registered controllers. Registration order is
// kept for deterministic iteration; identity is the controller ID.
type Coordinator struct {
	listener   Listener
	registered []Controller
	tags       map[string]int
}

// NewCoordinator returns an empty coordinator reporting to listener, which
// may be nil.
func NewCoordinator(listener Listener) *Coordinator {
	return &Coordinator{listener: listener, tags: make(map[string]int)}
}

func (c *Coordinator) indexOf(id string) int {
	for i, ctrl := range c.registered {
		if ctrl.ID() == id {
			return i
		}
	}
	return -1
}

// AddSliceController registers ctrl. It reports false and does nothing if a
// controller with the same ID is already registered.
func (c *Coordinator) AddSliceController(ctrl Controller) bool {
	if ctrl == nil || c.indexOf(ctrl.ID()) >= 0 {
		return false
	}
	c.registered = append(c.registered, ctrl)
	if n, ok := ctrl.(GeometryNotifier); ok && c.listener != nil {
		l := c.listener
		c.tags[ctrl.ID()] = n.ConnectGeometryEvents(func(id string) { l.SetGeometry(id) })
	}
	if c.listener != nil {
		c.listener.OnSliceControllerAdded(ctrl)
	}
	return true
}

// RemoveSliceController unregisters ctrl. It reports false if ctrl was not registered.
func (c *Coordinator) RemoveSliceController(ctrl Controller) bool {
	if ctrl == nil {
		return false
	}
	i := c.indexOf(ctrl.ID())
	if i < 0 {
		return false
	}
	removed := c.registered[i]
	c.registered = append(c.registered[:i], c.registered[i+1:]...)
	if tag, ok := c.tags[removed.ID()]; ok {
		if n, ok := removed.(GeometryNotifier); ok {
			n.DisconnectGeometryEvents(tag)
		}
		delete(c.tags, removed.ID())
	}
	if c.listener != nil {
		c.listener.OnSliceControllerRemoved(removed)
	}
	return true
}

// Controllers returns the registered controllers in registration order.
func (c *Coordinator) Controllers() []Controller {
	out := make([]Controller, len(c.registered))
	copy(out, c.registered)
	return out
}

// Controller looks up a registered controller by ID.
func (c *Coordinator) Controller(id string) (Controller, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.registered[i], true
	}
	return nil, false
}

// Len returns the number of registered controllers.
func (c *Coordinator) Len() int { return len(c.registered) }
