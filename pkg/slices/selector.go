package slices

// SliceSelector receives the presses the rotator does not consume.
type SliceSelector interface {
	SelectSlice(hit Controller, ev Event)
}

// SliceSelectorFunc adapts a function to SliceSelector.
type SliceSelectorFunc func(hit Controller, ev Event)

// SelectSlice calls f(hit, ev).
func (f SliceSelectorFunc) SelectSlice(hit Controller, ev Event) { f(hit, ev) }

// CrosshairSelector moves every registered controller except the hit one so
// that its plane passes through the cursor, which places the crosshair of
// all views at the clicked point.
type CrosshairSelector struct {
	Coordinator *Coordinator
}

// SelectSlice implements SliceSelector.
func (s CrosshairSelector) SelectSlice(hit Controller, ev Event) {
	if s.Coordinator == nil || !isFinite(ev.Position) {
		return
	}
	for _, ctrl := range s.Coordinator.Controllers() {
		if hit != nil && ctrl.ID() == hit.ID() {
			continue
		}
		if ps, ok := ctrl.(PointSelector); ok {
			ps.SelectSliceByPoint(ev.Position)
			continue
		}
		plane := ctrl.CurrentPlaneGeometry()
		if plane == nil {
			continue
		}
		moved := plane.Clone()
		moved.MoveTo(ev.Position)
		ctrl.SetPlaneGeometry(moved)
	}
}

// ViewResolver maps a render view to the controller that owns its plane.
type ViewResolver interface {
	ControllerForView(view string) (Controller, bool)
}

// ViewResolverFunc adapts a function to ViewResolver.
type ViewResolverFunc func(view string) (Controller, bool)

// ControllerForView calls f(view).
func (f ViewResolverFunc) ControllerForView(view string) (Controller, bool) { return f(view) }
