package slices

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"slicenav/pkg/geometry"
)

// State is the gesture state of a Rotator.
type State int

const (
	Idle State = iota
	Deciding
	Rotating
	Swivelling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Deciding:
		return "deciding"
	case Rotating:
		return "rotating"
	case Swivelling:
		return "swivelling"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Mode selects what a drag on a plane intersection does.
type Mode int

const (
	// ModeRotate turns the dragged intersection line about the centre of rotation.
	ModeRotate Mode = iota
	// ModeSwivel tilts the planes about the crosshair centre.
	ModeSwivel
)

func (m Mode) String() string {
	if m == ModeSwivel {
		return "swivel"
	}
	return "rotate"
}

// ParseMode accepts "rotate" and "swivel".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "rotate", "":
		return ModeRotate, nil
	case "swivel":
		return ModeSwivel, nil
	}
	return 0, fmt.Errorf("unknown rotation mode %q", s)
}

// Action reports what HandleEvent did with an event.
type Action int

const (
	// Ignored events changed nothing and were not consumed.
	Ignored Action = iota
	SliceSelected
	RotationStarted
	Rotated
	RotationEnded
)

func (a Action) String() string {
	switch a {
	case Ignored:
		return "ignored"
	case SliceSelected:
		return "slice-selected"
	case RotationStarted:
		return "rotation-started"
	case Rotated:
		return "rotated"
	case RotationEnded:
		return "rotation-ended"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

const (
	DefaultThresholdPixels       = 12.0
	DefaultSwivelThresholdPixels = 6.0
)

// Option configures a Rotator.
type Option func(*Rotator)

// WithLinkPlanes sets whether a rotation moves every eligible plane (true)
// or only the plane under the cursor (false).
func WithLinkPlanes(link bool) Option { return func(r *Rotator) { r.linkPlanes = link } }

// WithThresholdPixels sets how close, in display pixels, the cursor must be
// to an intersection line to grab it.
func WithThresholdPixels(px float64) Option {
	return func(r *Rotator) {
		if px > 0 {
			r.thresholdPixels = px
		}
	}
}

// WithSwivelThresholdPixels sets the radius around the crosshair centre in
// which a swivel gesture falls back to slice selection.
func WithSwivelThresholdPixels(px float64) Option {
	return func(r *Rotator) {
		if px > 0 {
			r.swivelThresholdPixels = px
		}
	}
}

// WithLineTolerance sets the distance in mm below which two intersection
// lines count as the same line.
func WithLineTolerance(mm float64) Option {
	return func(r *Rotator) {
		if mm > 0 {
			r.lineTolerance = mm
		}
	}
}

// WithMode selects rotate or swivel gestures.
func WithMode(m Mode) Option { return func(r *Rotator) { r.mode = m } }

// WithViewResolver sets how event views map to controllers. By default a
// view resolves to the registered controller with the same ID.
func WithViewResolver(v ViewResolver) Option { return func(r *Rotator) { r.resolver = v } }

// WithSliceSelector sets where non-consumed presses go. By default a
// CrosshairSelector over the rotator's own controllers is used.
func WithSliceSelector(s SliceSelector) Option { return func(r *Rotator) { r.selector = s } }

// WithLogger sets the logger for decision tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rotator) {
		if l != nil {
			r.logger = l
		}
	}
}

// Rotator decides per pointer gesture between slice selection and plane
// rotation and applies rotation increments while the pointer is dragged.
// It is not safe for concurrent use; all calls are expected on the UI thread.
type Rotator struct {
	*Coordinator

	linkPlanes            bool
	thresholdPixels       float64
	swivelThresholdPixels float64
	lineTolerance         float64
	mode                  Mode
	resolver              ViewResolver
	selector              SliceSelector
	logger                *slog.Logger

	rotatable []Controller
	state     State

	// gesture scratch, valid while rotating or swivelling
	toBeRotated []Controller
	lastCursor  r3.Vec
	center      r3.Vec
	axis        r3.Vec

	swivel swivelState
}

type swivelState struct {
	normal, xAxis, yAxis r3.Vec
	reference            r3.Vec
	mmPerPixel           float64
	previous             geometry.RotationOperation
}

// NewRotator returns an idle rotator with no registered controllers.
func NewRotator(opts ...Option) *Rotator {
	r := &Rotator{
		linkPlanes:            true,
		thresholdPixels:       DefaultThresholdPixels,
		swivelThresholdPixels: DefaultSwivelThresholdPixels,
		lineTolerance:         geometry.Eps,
		logger:                slog.Default(),
	}
	r.Coordinator = NewCoordinator(r)
	for _, opt := range opts {
		opt(r)
	}
	if r.selector == nil {
		r.selector = CrosshairSelector{Coordinator: r.Coordinator}
	}
	return r
}

// LinkPlanes reports whether rotations propagate to all eligible planes.
func (r *Rotator) LinkPlanes() bool { return r.linkPlanes }

// SetLinkPlanes changes propagation for subsequent gestures.
func (r *Rotator) SetLinkPlanes(link bool) { r.linkPlanes = link }

// State returns the current gesture state.
func (r *Rotator) State() State { return r.state }

// OnSliceControllerAdded implements Listener.
func (r *Rotator) OnSliceControllerAdded(Controller) { r.UpdateRotatableSNCs() }

// OnSliceControllerRemoved implements Listener. A controller removed during
// a gesture stops receiving rotation increments.
func (r *Rotator) OnSliceControllerRemoved(ctrl Controller) {
	r.UpdateRotatableSNCs()
	r.toBeRotated = without(r.toBeRotated, ctrl.ID())
}

// SetGeometry implements Listener.
func (r *Rotator) SetGeometry(string) { r.UpdateRotatableSNCs() }

// UpdateRotatableSNCs recomputes the controllers that currently show a plane.
func (r *Rotator) UpdateRotatableSNCs() {
	r.rotatable = r.rotatable[:0]
	for _, ctrl := range r.registered {
		if ctrl.CurrentPlaneGeometry() != nil {
			r.rotatable = append(r.rotatable, ctrl)
		}
	}
}

// RotatableControllers returns the controllers eligible for rotation as of
// the last UpdateRotatableSNCs.
func (r *Rotator) RotatableControllers() []Controller {
	out := make([]Controller, len(r.rotatable))
	copy(out, r.rotatable)
	return out
}

// ControllersToBeRotated returns the IDs rotated by the current gesture.
func (r *Rotator) ControllersToBeRotated() []string {
	ids := make([]string, len(r.toBeRotated))
	for i, c := range r.toBeRotated {
		ids[i] = c.ID()
	}
	return ids
}

// CenterOfRotation returns the centre of the current gesture.
func (r *Rotator) CenterOfRotation() (r3.Vec, bool) {
	if r.state != Rotating && r.state != Swivelling {
		return r3.Vec{}, false
	}
	return r.center, true
}

// HandleEvent advances the gesture state machine by one event.
func (r *Rotator) HandleEvent(ev Event) Action {
	// a release still ends the gesture; anything else needs a usable position
	if ev.Kind != Release && !isFinite(ev.Position) {
		r.logger.Debug("ignoring event with non-finite position", "view", ev.View, "kind", ev.Kind)
		return Ignored
	}
	switch r.state {
	case Idle:
		if ev.Kind != Press {
			return Ignored
		}
		return r.press(ev)
	case Rotating:
		switch ev.Kind {
		case Move:
			r.rotate(ev)
			return Rotated
		case Release:
			r.endGesture()
			return RotationEnded
		}
	case Swivelling:
		switch ev.Kind {
		case Move:
			r.swivelTo(ev)
			return Rotated
		case Release:
			r.endGesture()
			return RotationEnded
		}
	}
	return Ignored
}

func (r *Rotator) resolve(view string) (Controller, bool) {
	if r.resolver != nil {
		ctrl, ok := r.resolver.ControllerForView(view)
		if !ok || ctrl == nil {
			return nil, false
		}
		// only registered controllers take part in gestures
		return r.Controller(ctrl.ID())
	}
	return r.Controller(view)
}

func (r *Rotator) press(ev Event) Action {
	clicked, ok := r.resolve(ev.View)
	if !ok {
		r.logger.Debug("ignoring press from unknown view", "view", ev.View)
		return Ignored
	}

	r.state = Deciding
	var start bool
	if r.mode == ModeSwivel {
		start = r.decideSwivel(ev, clicked)
	} else {
		start = r.decideRotation(ev, clicked)
	}
	if start {
		if r.mode == ModeSwivel {
			r.state = Swivelling
		} else {
			r.state = Rotating
		}
		r.logger.Debug("rotation started", "view", ev.View, "mode", r.mode,
			"center", r.center, "rotating", r.ControllersToBeRotated())
		return RotationStarted
	}

	r.endGesture()
	r.selector.SelectSlice(clicked, ev)
	return SliceSelected
}

func (r *Rotator) endGesture() {
	r.state = Idle
	r.toBeRotated = nil
	r.lastCursor = r3.Vec{}
	r.center = r3.Vec{}
	r.axis = r3.Vec{}
	r.swivel = swivelState{}
}

// lineGroup is one distinguishable intersection line in the clicked view
// together with every controller whose plane produces it.
type lineGroup struct {
	line        geometry.Line3D
	near        bool
	controllers []Controller
	planes      []*geometry.PlaneGeometry
}

// distinguishableLines intersects every other rotatable plane with the view
// plane and merges coinciding lines. Parallel planes yield no line.
func (r *Rotator) distinguishableLines(view *geometry.PlaneGeometry, clicked Controller, cursor r3.Vec, mmPerPixel float64) []*lineGroup {
	var groups []*lineGroup
	for _, ctrl := range r.rotatable {
		if ctrl.ID() == clicked.ID() {
			continue
		}
		plane := ctrl.CurrentPlaneGeometry()
		if plane == nil {
			continue
		}
		line, ok := view.IntersectionLine(plane)
		if !ok {
			continue
		}

		var group *lineGroup
		for _, g := range groups {
			if g.line.Coincides(line, r.lineTolerance) {
				group = g
				break
			}
		}
		if group == nil {
			group = &lineGroup{
				line: line,
				near: line.Distance(cursor)/mmPerPixel <= r.thresholdPixels,
			}
			groups = append(groups, group)
		}
		group.controllers = append(group.controllers, ctrl)
		group.planes = append(group.planes, plane)
	}
	return groups
}

// NearLineCount returns the number of distinguishable intersection lines
// within the grab threshold of the event's cursor, or -1 if the event's view
// cannot be resolved or shows no plane.
func (r *Rotator) NearLineCount(ev Event) int {
	clicked, ok := r.resolve(ev.View)
	if !ok {
		return -1
	}
	view := clicked.CurrentPlaneGeometry()
	if view == nil {
		return -1
	}
	n := 0
	for _, g := range r.distinguishableLines(view, clicked, view.Project(ev.Position), r.mmPerPixel(ev, view)) {
		if g.near {
			n++
		}
	}
	return n
}

func (r *Rotator) mmPerPixel(ev Event, view *geometry.PlaneGeometry) float64 {
	if ev.MMPerPixel > 0 {
		return ev.MMPerPixel
	}
	if s := view.PixelSpacing(); s > 0 {
		return s
	}
	return 1
}

func (r *Rotator) viewNormal(ev Event, view *geometry.PlaneGeometry) r3.Vec {
	if r3.Norm(ev.ViewNormal) > geometry.Eps {
		return r3.Unit(ev.ViewNormal)
	}
	return view.Normal()
}

// decideRotation prepares a rotate gesture. It returns false when the press
// should select a slice instead.
func (r *Rotator) decideRotation(ev Event, clicked Controller) bool {
	view := clicked.CurrentPlaneGeometry()
	if view == nil {
		return false
	}
	cursor := view.Project(ev.Position)
	groups := r.distinguishableLines(view, clicked, cursor, r.mmPerPixel(ev, view))

	var grabbed *lineGroup
	nearCount := 0
	for _, g := range groups {
		if g.near {
			nearCount++
			grabbed = g
		}
	}
	r.logger.Debug("rotation decision", "view", ev.View, "lines", len(groups), "near", nearCount)
	if nearCount != 1 {
		return false
	}

	center, ok := r.centerOfRotation(grabbed, groups)
	if !ok {
		r.logger.Debug("no centre of rotation, selecting slice", "view", ev.View)
		return false
	}

	r.toBeRotated = r.toBeRotated[:0]
	for _, g := range groups {
		if g == grabbed || r.linkPlanes {
			r.toBeRotated = append(r.toBeRotated, g.controllers...)
		}
	}
	r.center = center
	r.axis = r.viewNormal(ev, view)
	r.lastCursor = grabbed.line.Project(cursor)
	return true
}

// centerOfRotation intersects the grabbed line with the plane of another
// line group. Without such a plane there is no centre and the press selects
// a slice instead.
func (r *Rotator) centerOfRotation(grabbed *lineGroup, groups []*lineGroup) (r3.Vec, bool) {
	if !grabbed.line.IsValid() {
		return r3.Vec{}, false
	}
	for _, g := range groups {
		if g == grabbed {
			continue
		}
		for _, plane := range g.planes {
			if p, ok := plane.IntersectionPoint(grabbed.line); ok && isFinite(p) {
				return p, true
			}
		}
	}
	return r3.Vec{}, false
}

func (r *Rotator) rotate(ev Event) {
	// keep the cursor in the rotation plane through the centre
	cursor := ev.Position
	cursor = r3.Sub(cursor, r3.Scale(r3.Dot(r3.Sub(cursor, r.center), r.axis), r.axis))

	from := r3.Sub(r.lastCursor, r.center)
	to := r3.Sub(cursor, r.center)
	if r3.Norm(from) < geometry.Eps || r3.Norm(to) < geometry.Eps {
		r.lastCursor = cursor
		return
	}

	op := geometry.RotationOperation{
		Center: r.center,
		Axis:   r.axis,
		Angle:  geometry.SignedAngle(from, to, r.axis),
	}
	r.apply(op)
	r.lastCursor = cursor
}

// RotateToPoint turns the plane of rotated about the normal of rotationPlane
// until their intersection line passes through the projection of point onto
// rotationPlane. With linked set, every other rotatable plane that crosses
// rotationPlane receives the same rotation. It reports whether a rotation
// was applied.
//
// Deprecated: gestures go through HandleEvent.
func (r *Rotator) RotateToPoint(rotationPlane, rotated Controller, point r3.Vec, linked bool) bool {
	if rotationPlane == nil || rotated == nil || r.state != Idle || !isFinite(point) {
		return false
	}
	view := rotationPlane.CurrentPlaneGeometry()
	plane := rotated.CurrentPlaneGeometry()
	if view == nil || plane == nil {
		return false
	}
	line, ok := view.IntersectionLine(plane)
	if !ok {
		return false
	}

	target := view.Project(point)
	grabbed := &lineGroup{line: line, controllers: []Controller{rotated}, planes: []*geometry.PlaneGeometry{plane}}
	groups := []*lineGroup{grabbed}
	for _, ctrl := range r.rotatable {
		if ctrl.ID() == rotationPlane.ID() || ctrl.ID() == rotated.ID() {
			continue
		}
		other := ctrl.CurrentPlaneGeometry()
		if other == nil {
			continue
		}
		if l, ok := view.IntersectionLine(other); ok {
			groups = append(groups, &lineGroup{line: l, controllers: []Controller{ctrl}, planes: []*geometry.PlaneGeometry{other}})
		}
	}
	center, ok := r.centerOfRotation(grabbed, groups)
	if !ok {
		return false
	}

	to := r3.Sub(target, center)
	if r3.Norm(to) < geometry.Eps {
		return false
	}
	// either direction of the line may be turned onto the target
	from := line.Direction
	if r3.Dot(from, to) < 0 {
		from = r3.Scale(-1, from)
	}
	axis := view.Normal()
	op := geometry.RotationOperation{Center: center, Axis: axis, Angle: geometry.SignedAngle(from, to, axis)}

	r.toBeRotated = []Controller{rotated}
	if linked {
		for _, g := range groups[1:] {
			r.toBeRotated = append(r.toBeRotated, g.controllers...)
		}
	}
	r.apply(op)
	r.toBeRotated = nil
	return !op.IsIdentity()
}

func (r *Rotator) apply(op geometry.RotationOperation) {
	if op.IsIdentity() {
		return
	}
	for _, ctrl := range r.toBeRotated {
		if l, ok := ctrl.(RotationLocker); ok && l.SliceRotationLocked() {
			continue
		}
		if rot, ok := ctrl.(Rotatable); ok {
			rot.Rotate(op)
			continue
		}
		plane := ctrl.CurrentPlaneGeometry()
		if plane == nil {
			continue
		}
		rotated := plane.Clone()
		rotated.Rotate(op)
		ctrl.SetPlaneGeometry(rotated)
	}
}

// decideSwivel prepares a swivel gesture about the point where the clicked
// plane and two other planes meet.
func (r *Rotator) decideSwivel(ev Event, clicked Controller) bool {
	view := clicked.CurrentPlaneGeometry()
	if view == nil {
		return false
	}

	var others []*geometry.PlaneGeometry
	r.toBeRotated = append(r.toBeRotated[:0], clicked)
	for _, ctrl := range r.rotatable {
		if ctrl.ID() == clicked.ID() {
			continue
		}
		plane := ctrl.CurrentPlaneGeometry()
		if plane == nil {
			continue
		}
		others = append(others, plane)
		if r.linkPlanes {
			r.toBeRotated = append(r.toBeRotated, ctrl)
		}
	}

	center, ok := crosshairCenter(view, others)
	if !ok {
		r.logger.Debug("no crosshair centre, selecting slice", "view", ev.View)
		return false
	}
	mmPerPixel := r.mmPerPixel(ev, view)
	cursor := view.Project(ev.Position)
	if r3.Norm(r3.Sub(cursor, center))/mmPerPixel < r.swivelThresholdPixels {
		return false
	}

	r.center = center
	r.axis = view.Normal()
	r.swivel = swivelState{
		normal:     view.Normal(),
		xAxis:      view.Right(),
		yAxis:      view.Bottom(),
		reference:  cursor,
		mmPerPixel: mmPerPixel,
	}
	return true
}

// crosshairCenter returns the point shared by view and two of the others.
func crosshairCenter(view *geometry.PlaneGeometry, others []*geometry.PlaneGeometry) (r3.Vec, bool) {
	for i, a := range others {
		line, ok := view.IntersectionLine(a)
		if !ok {
			continue
		}
		for j, b := range others {
			if i == j {
				continue
			}
			if p, ok := b.IntersectionPoint(line); ok && isFinite(p) {
				return p, true
			}
		}
	}
	return r3.Vec{}, false
}

func (r *Rotator) swivelTo(ev Event) {
	s := &r.swivel
	d := r3.Sub(ev.Position, s.reference)
	u := r3.Dot(d, s.xAxis) / s.mmPerPixel
	v := r3.Dot(d, s.yAxis) / s.mmPerPixel

	relative := r3.Add(r3.Scale(u, s.xAxis), r3.Scale(v, s.yAxis))
	next := geometry.RotationOperation{
		Center: r.center,
		Axis:   r3.Cross(s.normal, relative),
		Angle:  geometry.Radians(math.Hypot(u, v) / 2),
	}

	// every step restarts from the pose at gesture start
	r.apply(s.previous.Inverse())
	r.apply(next)
	s.previous = next
}

func without(ctrls []Controller, id string) []Controller {
	out := ctrls[:0]
	for _, c := range ctrls {
		if c.ID() != id {
			out = append(out, c)
		}
	}
	return out
}

func isFinite(p r3.Vec) bool {
	for _, f := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
