package slices

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"slicenav/pkg/geometry"
	"slicenav/pkg/navigation"
)

const viewSize = 200.0

func newView(id string, dir geometry.ViewDirection) *navigation.SliceNavigationController {
	c := navigation.New(id, dir)
	c.SetPlaneGeometry(geometry.StandardPlane(dir, r3.Vec{}, viewSize, 1))
	return c
}

// orthogonalViews registers axial, sagittal and coronal views crossing at the origin
func orthogonalViews(t *testing.T, opts ...Option) (*Rotator, map[string]*navigation.SliceNavigationController) {
	t.Helper()
	r := NewRotator(opts...)
	views := map[string]*navigation.SliceNavigationController{
		"axial":    newView("axial", geometry.Axial),
		"sagittal": newView("sagittal", geometry.Sagittal),
		"coronal":  newView("coronal", geometry.Coronal),
	}
	for _, id := range []string{"axial", "sagittal", "coronal"} {
		require.True(t, r.AddSliceController(views[id]))
	}
	return r, views
}

func normals(views map[string]*navigation.SliceNavigationController) map[string]r3.Vec {
	out := make(map[string]r3.Vec, len(views))
	for id, v := range views {
		out[id] = v.CurrentPlaneGeometry().Normal()
	}
	return out
}

func ids(ctrls []Controller) []string {
	out := make([]string, len(ctrls))
	for i, c := range ctrls {
		out[i] = c.ID()
	}
	return out
}

// TestRotatableControllersTrackPlanes verifies the rotatable set follows geometry changes
func TestRotatableControllersTrackPlanes(t *testing.T) {
	r := NewRotator()
	withPlane := newView("a", geometry.Axial)
	withoutPlane := navigation.New("b", geometry.Sagittal)
	r.AddSliceController(withPlane)
	r.AddSliceController(withoutPlane)
	assert.Equal(t, []string{"a"}, ids(r.RotatableControllers()))

	withoutPlane.SetPlaneGeometry(geometry.StandardPlane(geometry.Sagittal, r3.Vec{}, 10, 1))
	assert.ElementsMatch(t, []string{"a", "b"}, ids(r.RotatableControllers()))

	withPlane.ClearWorldGeometry()
	assert.Equal(t, []string{"b"}, ids(r.RotatableControllers()))

	r.RemoveSliceController(withoutPlane)
	assert.Empty(t, r.RotatableControllers())

	// repeated updates are harmless
	r.UpdateRotatableSNCs()
	r.SetGeometry("a")
	assert.Empty(t, r.RotatableControllers())
}

// TestRotatableSubsetOfRegistered checks the subset invariant after mixed changes
func TestRotatableSubsetOfRegistered(t *testing.T) {
	r, views := orthogonalViews(t)
	extra := navigation.New("extra", geometry.Axial)
	r.AddSliceController(extra)
	r.RemoveSliceController(views["coronal"])
	views["coronal"].SetPlaneGeometry(geometry.StandardPlane(geometry.Coronal, r3.Vec{Y: 5}, 10, 1))

	registered := ids(r.Controllers())
	for _, c := range r.RotatableControllers() {
		assert.Contains(t, registered, c.ID())
		assert.NotNil(t, c.CurrentPlaneGeometry())
	}
	assert.ElementsMatch(t, []string{"axial", "sagittal"}, ids(r.RotatableControllers()))
}

// TestPressOnSingleLineStartsRotation covers the one-near-line case
func TestPressOnSingleLineStartsRotation(t *testing.T) {
	r, _ := orthogonalViews(t)

	press := PressAt("axial", r3.Vec{X: 50})
	assert.Equal(t, 1, r.NearLineCount(press))
	assert.Equal(t, RotationStarted, r.HandleEvent(press))
	assert.Equal(t, Rotating, r.State())

	center, ok := r.CenterOfRotation()
	require.True(t, ok)
	assert.InDelta(t, 0, r3.Norm(center), 1e-9)
	assert.ElementsMatch(t, []string{"sagittal", "coronal"}, r.ControllersToBeRotated())

	assert.Equal(t, RotationEnded, r.HandleEvent(ReleaseAt("axial", r3.Vec{X: 50})))
	assert.Equal(t, Idle, r.State())
	assert.Empty(t, r.ControllersToBeRotated())
	_, ok = r.CenterOfRotation()
	assert.False(t, ok)
}

// TestPressAtCrosshairSelectsSlice covers the multiple-near-lines case
func TestPressAtCrosshairSelectsSlice(t *testing.T) {
	r, views := orthogonalViews(t)

	press := PressAt("axial", r3.Vec{X: 3, Y: 4})
	assert.Equal(t, 2, r.NearLineCount(press))
	assert.Equal(t, SliceSelected, r.HandleEvent(press))
	assert.Equal(t, Idle, r.State())

	// crosshair moves to the clicked point in the other views
	assert.InDelta(t, 3, views["sagittal"].CurrentPlaneGeometry().Origin().X, 1e-9)
	assert.InDelta(t, 4, views["coronal"].CurrentPlaneGeometry().Origin().Y, 1e-9)
	assert.InDelta(t, 0, views["axial"].CurrentPlaneGeometry().Origin().Z, 1e-9)
}

// TestPressAwayFromLinesSelectsSlice covers the no-near-line case
func TestPressAwayFromLinesSelectsSlice(t *testing.T) {
	var selected []string
	r, _ := orthogonalViews(t, WithSliceSelector(SliceSelectorFunc(func(hit Controller, ev Event) {
		selected = append(selected, hit.ID())
	})))

	press := PressAt("axial", r3.Vec{X: 60, Y: 70})
	assert.Equal(t, 0, r.NearLineCount(press))
	assert.Equal(t, SliceSelected, r.HandleEvent(press))
	assert.Equal(t, []string{"axial"}, selected)

	// moves and releases without a rotation are ignored
	assert.Equal(t, Ignored, r.HandleEvent(MoveTo("axial", r3.Vec{X: 61})))
	assert.Equal(t, Ignored, r.HandleEvent(ReleaseAt("axial", r3.Vec{X: 61})))
}

// TestThresholdUsesDisplayScale verifies the pixel tolerance scales with zoom
func TestThresholdUsesDisplayScale(t *testing.T) {
	r, _ := orthogonalViews(t)
	press := PressAt("axial", r3.Vec{X: 50, Y: 20})
	assert.Equal(t, 0, r.NearLineCount(press))

	press.MMPerPixel = 2
	assert.Equal(t, 1, r.NearLineCount(press))
}

// TestUnknownViewIsIgnored verifies unresolvable views leave the rotator idle
func TestUnknownViewIsIgnored(t *testing.T) {
	r, views := orthogonalViews(t)
	before := normals(views)

	assert.Equal(t, Ignored, r.HandleEvent(PressAt("3d", r3.Vec{X: 50})))
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, -1, r.NearLineCount(PressAt("3d", r3.Vec{})))
	assert.Equal(t, before, normals(views))
}

// TestViewResolver verifies events can name views distinct from controller IDs
func TestViewResolver(t *testing.T) {
	var r *Rotator
	r, _ = orthogonalViews(t, WithViewResolver(ViewResolverFunc(func(view string) (Controller, bool) {
		if view == "window-1" {
			return r.Controller("axial")
		}
		return nil, false
	})))

	assert.Equal(t, RotationStarted, r.HandleEvent(PressAt("window-1", r3.Vec{X: 50})))
	r.HandleEvent(ReleaseAt("window-1", r3.Vec{X: 50}))
	assert.Equal(t, Ignored, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
}

// TestDuplicateViewsMergeLines verifies identical planes count as one line
func TestDuplicateViewsMergeLines(t *testing.T) {
	r := NewRotator(WithLinkPlanes(false))
	first := newView("axial-1", geometry.Axial)
	second := newView("axial-2", geometry.Axial)
	sagittal := newView("sagittal", geometry.Sagittal)
	coronal := newView("coronal", geometry.Coronal)
	for _, v := range []Controller{first, second, sagittal, coronal} {
		r.AddSliceController(v)
	}

	// in the sagittal view both axial planes produce the line z = 0
	press := PressAt("sagittal", r3.Vec{Y: 30})
	assert.Equal(t, 1, r.NearLineCount(press))
	assert.Equal(t, RotationStarted, r.HandleEvent(press))
	assert.ElementsMatch(t, []string{"axial-1", "axial-2"}, r.ControllersToBeRotated())

	theta := geometry.Radians(20)
	r.HandleEvent(MoveTo("sagittal", r3.Vec{Y: 30 * math.Cos(theta), Z: 30 * math.Sin(theta)}))
	r.HandleEvent(ReleaseAt("sagittal", r3.Vec{}))

	n1 := first.CurrentPlaneGeometry().Normal()
	n2 := second.CurrentPlaneGeometry().Normal()
	assert.InDelta(t, theta, geometry.Angle(r3.Vec{Z: 1}, n1), 1e-9)
	assert.True(t, first.CurrentPlaneGeometry().SamePlane(second.CurrentPlaneGeometry()), "%v vs %v", n1, n2)
	assert.InDelta(t, 1, sagittal.CurrentPlaneGeometry().Normal().X, 1e-12)

	// in an axial view the duplicate is parallel and ignored
	assert.Equal(t, 1, r.NearLineCount(PressAt("axial-1", r3.Vec{Y: 50})))
}

// TestSharedPlaneRotatesOnce verifies views created from one plane each turn by the drag angle
func TestSharedPlaneRotatesOnce(t *testing.T) {
	r := NewRotator(WithLinkPlanes(false))
	shared := geometry.StandardPlane(geometry.Axial, r3.Vec{}, viewSize, 1)
	first := navigation.New("axial-1", geometry.Axial)
	second := navigation.New("axial-2", geometry.Axial)
	first.SetPlaneGeometry(shared)
	second.SetPlaneGeometry(shared)
	for _, v := range []Controller{first, second, newView("sagittal", geometry.Sagittal), newView("coronal", geometry.Coronal)} {
		r.AddSliceController(v)
	}

	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("sagittal", r3.Vec{Y: 30})))
	assert.ElementsMatch(t, []string{"axial-1", "axial-2"}, r.ControllersToBeRotated())
	theta := geometry.Radians(20)
	r.HandleEvent(MoveTo("sagittal", r3.Vec{Y: 30 * math.Cos(theta), Z: 30 * math.Sin(theta)}))
	r.HandleEvent(ReleaseAt("sagittal", r3.Vec{}))

	assert.InDelta(t, theta, geometry.Angle(r3.Vec{Z: 1}, first.CurrentPlaneGeometry().Normal()), 1e-9)
	assert.InDelta(t, theta, geometry.Angle(r3.Vec{Z: 1}, second.CurrentPlaneGeometry().Normal()), 1e-9)
	assert.InDelta(t, 1, shared.Normal().Z, 1e-12)
}

// TestNoCrossingPlaneSelectsSlice verifies a grabbed line needs another plane for its centre
func TestNoCrossingPlaneSelectsSlice(t *testing.T) {
	r := NewRotator()
	axial := newView("axial", geometry.Axial)
	sagittal := newView("sagittal", geometry.Sagittal)
	r.AddSliceController(axial)
	r.AddSliceController(sagittal)

	press := PressAt("axial", r3.Vec{Y: 40})
	assert.Equal(t, 1, r.NearLineCount(press))
	assert.Equal(t, SliceSelected, r.HandleEvent(press))
	assert.Equal(t, Idle, r.State())
	_, ok := r.CenterOfRotation()
	assert.False(t, ok)
	assert.InDelta(t, 1, sagittal.CurrentPlaneGeometry().Normal().X, 1e-12)
}

// TestNonFinitePositionIgnored verifies NaN and Inf positions never reach the planes
func TestNonFinitePositionIgnored(t *testing.T) {
	r, views := orthogonalViews(t)
	origin := views["sagittal"].CurrentPlaneGeometry().Origin()

	assert.Equal(t, Ignored, r.HandleEvent(PressAt("axial", r3.Vec{X: math.NaN()})))
	assert.Equal(t, Ignored, r.HandleEvent(PressAt("axial", r3.Vec{Y: math.Inf(1)})))
	assert.Equal(t, origin, views["sagittal"].CurrentPlaneGeometry().Origin())

	// the selector refuses them too when called directly
	CrosshairSelector{Coordinator: r.Coordinator}.SelectSlice(views["axial"], PressAt("axial", r3.Vec{Z: math.NaN()}))
	assert.Equal(t, origin, views["sagittal"].CurrentPlaneGeometry().Origin())

	// during a rotation bad moves are dropped and release still ends it
	before := normals(views)
	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
	assert.Equal(t, Ignored, r.HandleEvent(MoveTo("axial", r3.Vec{X: math.NaN()})))
	assert.Equal(t, before, normals(views))
	assert.Equal(t, RotationEnded, r.HandleEvent(ReleaseAt("axial", r3.Vec{X: math.NaN()})))
	assert.Equal(t, Idle, r.State())
}

// TestRotationAppliesAngle verifies the rotation angle and excluded parallel planes
func TestRotationAppliesAngle(t *testing.T) {
	r, views := orthogonalViews(t)
	before := normals(views)

	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
	theta := geometry.Radians(30)
	// two moves adding up to theta
	r.HandleEvent(MoveTo("axial", r3.Vec{X: 50 * math.Cos(theta/2), Y: 50 * math.Sin(theta/2)}))
	assert.Equal(t, Rotated, r.HandleEvent(MoveTo("axial", r3.Vec{X: 80 * math.Cos(theta), Y: 80 * math.Sin(theta)})))
	r.HandleEvent(ReleaseAt("axial", r3.Vec{}))

	after := normals(views)
	assert.InDelta(t, theta, geometry.Angle(before["coronal"], after["coronal"]), 1e-9)
	assert.InDelta(t, theta, geometry.Angle(before["sagittal"], after["sagittal"]), 1e-9)
	assert.InDelta(t, 0, geometry.Angle(before["axial"], after["axial"]), 1e-12)

	// counter-clockwise about the axial normal
	assert.InDelta(t, math.Cos(theta), after["sagittal"].X, 1e-9)
	assert.InDelta(t, math.Sin(theta), after["sagittal"].Y, 1e-9)

	// the crosshair centre stays on every rotated plane
	for _, id := range []string{"sagittal", "coronal"} {
		assert.True(t, views[id].CurrentPlaneGeometry().ContainsPoint(r3.Vec{}), id)
	}
}

// TestRotationWithoutLinkedPlanes verifies only the grabbed plane turns
func TestRotationWithoutLinkedPlanes(t *testing.T) {
	r, views := orthogonalViews(t, WithLinkPlanes(false))
	assert.False(t, r.LinkPlanes())
	before := normals(views)

	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
	assert.Equal(t, []string{"coronal"}, r.ControllersToBeRotated())
	theta := geometry.Radians(-25)
	r.HandleEvent(MoveTo("axial", r3.Vec{X: 50 * math.Cos(theta), Y: 50 * math.Sin(theta)}))
	r.HandleEvent(ReleaseAt("axial", r3.Vec{}))

	after := normals(views)
	assert.InDelta(t, math.Abs(theta), geometry.Angle(before["coronal"], after["coronal"]), 1e-9)
	assert.Equal(t, before["sagittal"], after["sagittal"])
	assert.Equal(t, before["axial"], after["axial"])
}

// TestRotationLockedControllerIsSkipped verifies locked planes keep their pose
func TestRotationLockedControllerIsSkipped(t *testing.T) {
	r, views := orthogonalViews(t)
	views["sagittal"].SetSliceRotationLocked(true)
	before := normals(views)

	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
	r.HandleEvent(MoveTo("axial", r3.Vec{Y: 50}))
	r.HandleEvent(ReleaseAt("axial", r3.Vec{Y: 50}))

	after := normals(views)
	assert.Equal(t, before["sagittal"], after["sagittal"])
	assert.InDelta(t, math.Pi/2, geometry.Angle(before["coronal"], after["coronal"]), 1e-9)
}

// stubController implements only the minimal Controller interface
type stubController struct {
	id    string
	plane *geometry.PlaneGeometry
	sets  int
}

func (s *stubController) ID() string {
	return s.id
}

func (s *stubController) CurrentPlaneGeometry() *geometry.PlaneGeometry {
	return s.plane
}

func (s *stubController) SetPlaneGeometry(p *geometry.PlaneGeometry) {
	s.plane = p
	s.sets++
}

// TestMinimalControllers verifies rotation through SetPlaneGeometry only
func TestMinimalControllers(t *testing.T) {
	r := NewRotator()
	axial := &stubController{id: "axial", plane: geometry.StandardPlane(geometry.Axial, r3.Vec{}, viewSize, 1)}
	sagittal := &stubController{id: "sagittal", plane: geometry.StandardPlane(geometry.Sagittal, r3.Vec{}, viewSize, 1)}
	coronal := &stubController{id: "coronal", plane: geometry.StandardPlane(geometry.Coronal, r3.Vec{}, viewSize, 1)}
	for _, c := range []Controller{axial, sagittal, coronal} {
		r.AddSliceController(c)
	}

	// grab the sagittal line (x = 0) in the coronal view
	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("coronal", r3.Vec{Z: 40})))
	original := sagittal.plane
	r.HandleEvent(MoveTo("coronal", r3.Vec{X: 40}))
	r.HandleEvent(ReleaseAt("coronal", r3.Vec{X: 40}))

	assert.Equal(t, 1, sagittal.sets)
	assert.NotSame(t, original, sagittal.plane)
	assert.InDelta(t, math.Pi/2, geometry.Angle(r3.Vec{X: 1}, sagittal.plane.Normal()), 1e-9)
	assert.Equal(t, 0, coronal.sets)
}

// TestRemovedDuringGestureStopsRotating verifies removal drops a controller from the gesture
func TestRemovedDuringGestureStopsRotating(t *testing.T) {
	r, views := orthogonalViews(t)
	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
	r.RemoveSliceController(views["sagittal"])
	assert.Equal(t, []string{"coronal"}, r.ControllersToBeRotated())

	before := views["sagittal"].CurrentPlaneGeometry().Normal()
	r.HandleEvent(MoveTo("axial", r3.Vec{Y: 50}))
	assert.Equal(t, before, views["sagittal"].CurrentPlaneGeometry().Normal())
}

// TestParallelOnlyViewsSelect verifies a lone parallel plane yields no rotation
func TestParallelOnlyViewsSelect(t *testing.T) {
	r := NewRotator()
	r.AddSliceController(newView("a", geometry.Axial))
	b := navigation.New("b", geometry.Axial)
	b.SetPlaneGeometry(geometry.StandardPlane(geometry.Axial, r3.Vec{Z: 10}, viewSize, 1))
	r.AddSliceController(b)

	assert.Equal(t, 0, r.NearLineCount(PressAt("a", r3.Vec{})))
	assert.Equal(t, SliceSelected, r.HandleEvent(PressAt("a", r3.Vec{})))
	assert.InDelta(t, 0, b.CurrentPlaneGeometry().Origin().Z, 1e-9)
}

// TestSwivel verifies the swivel gesture tilts the planes and restores on return
func TestSwivel(t *testing.T) {
	r, views := orthogonalViews(t, WithMode(ModeSwivel))
	before := normals(views)

	assert.Equal(t, SliceSelected, r.HandleEvent(PressAt("axial", r3.Vec{X: 2})))

	require.Equal(t, RotationStarted, r.HandleEvent(PressAt("axial", r3.Vec{X: 50})))
	assert.Equal(t, Swivelling, r.State())
	assert.ElementsMatch(t, []string{"axial", "sagittal", "coronal"}, r.ControllersToBeRotated())

	r.HandleEvent(MoveTo("axial", r3.Vec{X: 50, Y: 20}))
	after := normals(views)
	assert.InDelta(t, geometry.Radians(10), geometry.Angle(before["axial"], after["axial"]), 1e-9)

	r.HandleEvent(MoveTo("axial", r3.Vec{X: 50}))
	after = normals(views)
	for id := range views {
		assert.InDelta(t, 0, geometry.Angle(before[id], after[id]), 1e-9, id)
	}
	assert.Equal(t, RotationEnded, r.HandleEvent(ReleaseAt("axial", r3.Vec{X: 50})))
	assert.Equal(t, Idle, r.State())
}

// TestParseNames checks the string forms used by configuration and scripts
func TestParseNames(t *testing.T) {
	m, err := ParseMode("swivel")
	require.NoError(t, err)
	assert.Equal(t, ModeSwivel, m)
	_, err = ParseMode("spin")
	assert.Error(t, err)

	k, err := ParseEventKind("release")
	require.NoError(t, err)
	assert.Equal(t, Release, k)
	assert.Equal(t, "rotation-started", RotationStarted.String())
	assert.Equal(t, "deciding", Deciding.String())
}

// TestRotateToPoint verifies the programmatic rotation onto a point
func TestRotateToPoint(t *testing.T) {
	r, views := orthogonalViews(t)

	theta := geometry.Radians(40)
	target := r3.Vec{X: 30 * math.Cos(theta), Y: 30 * math.Sin(theta), Z: 12}
	require.True(t, r.RotateToPoint(views["axial"], views["coronal"], target, false))

	coronal := views["coronal"].CurrentPlaneGeometry()
	assert.True(t, coronal.ContainsPoint(r3.Vec{X: target.X, Y: target.Y}))
	assert.True(t, coronal.ContainsPoint(r3.Vec{}))
	assert.InDelta(t, 1, views["sagittal"].CurrentPlaneGeometry().Normal().X, 1e-12)
	assert.Empty(t, r.ControllersToBeRotated())

	// linked rotation carries the sagittal plane along
	require.True(t, r.RotateToPoint(views["axial"], views["coronal"], r3.Vec{X: 30}, true))
	assert.InDelta(t, geometry.Radians(40), geometry.Angle(r3.Vec{X: 1}, views["sagittal"].CurrentPlaneGeometry().Normal()), 1e-9)

	// parallel planes have no line to turn
	assert.False(t, r.RotateToPoint(views["axial"], views["axial"], target, false))
}
