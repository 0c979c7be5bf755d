// Package timegeom maps between discrete time steps and continuous time
// points for a sequence of per-step geometries with non-uniform durations.
package timegeom

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ErrInvalidArgument marks calls that violate a documented precondition.
// It indicates a bug in the caller, not a runtime condition.
var ErrInvalidArgument = errors.New("invalid argument")

// TimePoint is a continuous time in milliseconds.
type TimePoint = float64

// TimeStep is an index into the step sequence.
type TimeStep = int

// TimeBounds is a closed interval of time points.
type TimeBounds struct {
	Min, Max TimePoint
}

// Geometry is the constraint on stored geometries: they must be able to
// produce an independent deep copy of themselves.
type Geometry[G any] interface {
	Clone() G
}

type step[G any] struct {
	geometry G
	bounds   TimeBounds
}

// ArbitraryTimeGeometry is an ordered sequence of geometries, each valid for
// its own time interval. Lower bounds are strictly increasing.
type ArbitraryTimeGeometry[G Geometry[G]] struct {
	steps       []step[G]
	newGeometry func() G
}

// New returns an empty time geometry. newGeometry produces the default
// geometry used by Initialize and Expand; when it is nil, Initialize leaves
// the sequence empty and Expand fails.
func New[G Geometry[G]](newGeometry func() G) *ArbitraryTimeGeometry[G] {
	return &ArbitraryTimeGeometry[G]{newGeometry: newGeometry}
}

// NewSingleStep returns a time geometry holding geometry for the given bounds.
func NewSingleStep[G Geometry[G]](newGeometry func() G, geometry G, bounds TimeBounds) (*ArbitraryTimeGeometry[G], error) {
	tg := New(newGeometry)
	if err := tg.AppendTimeStep(geometry, bounds); err != nil {
		return nil, err
	}
	return tg, nil
}

// Initialize resets the sequence to a single default geometry valid for [0, 1].
func (tg *ArbitraryTimeGeometry[G]) Initialize() {
	if tg.newGeometry == nil {
		tg.steps = nil
		return
	}
	tg.steps = []step[G]{{geometry: tg.newGeometry(), bounds: TimeBounds{Min: 0, Max: 1}}}
}

// CountTimeSteps returns the number of steps.
func (tg *ArbitraryTimeGeometry[G]) CountTimeSteps() int { return len(tg.steps) }

// IsValid reports whether at least one step exists.
func (tg *ArbitraryTimeGeometry[G]) IsValid() bool { return len(tg.steps) > 0 }

// MinimumTimePoint returns the lower bound of the first step, or 0 if empty.
func (tg *ArbitraryTimeGeometry[G]) MinimumTimePoint() TimePoint {
	if len(tg.steps) == 0 {
		return 0
	}
	return tg.steps[0].bounds.Min
}

// MaximumTimePoint returns the upper bound of the last step, or 0 if empty.
func (tg *ArbitraryTimeGeometry[G]) MaximumTimePoint() TimePoint {
	if len(tg.steps) == 0 {
		return 0
	}
	return tg.steps[len(tg.steps)-1].bounds.Max
}

// TimeBounds returns the interval covered by the whole sequence.
func (tg *ArbitraryTimeGeometry[G]) TimeBounds() TimeBounds {
	return TimeBounds{Min: tg.MinimumTimePoint(), Max: tg.MaximumTimePoint()}
}

// TimeBoundsForStep returns the interval of step, or the zero interval for an
// invalid step.
func (tg *ArbitraryTimeGeometry[G]) TimeBoundsForStep(s TimeStep) TimeBounds {
	if !tg.IsValidTimeStep(s) {
		return TimeBounds{}
	}
	return tg.steps[s].bounds
}

// MinimumTimePointForStep returns the lower bound of step s, 0 if invalid.
func (tg *ArbitraryTimeGeometry[G]) MinimumTimePointForStep(s TimeStep) TimePoint {
	return tg.TimeBoundsForStep(s).Min
}

// MaximumTimePointForStep returns the upper bound of step s, 0 if invalid.
func (tg *ArbitraryTimeGeometry[G]) MaximumTimePointForStep(s TimeStep) TimePoint {
	return tg.TimeBoundsForStep(s).Max
}

// IsValidTimeStep reports whether s indexes an existing step.
func (tg *ArbitraryTimeGeometry[G]) IsValidTimeStep(s TimeStep) bool {
	return s >= 0 && s < len(tg.steps)
}

// IsValidTimePoint reports whether t lies within [MinimumTimePoint, MaximumTimePoint].
// An empty sequence has no valid time points.
func (tg *ArbitraryTimeGeometry[G]) IsValidTimePoint(t TimePoint) bool {
	if len(tg.steps) == 0 || math.IsNaN(t) {
		return false
	}
	return t >= tg.MinimumTimePoint() && t <= tg.MaximumTimePoint()
}

// TimeStepToTimePoint returns the lower bound of step s. For an invalid step
// it returns +Inf, which IsValidTimePoint always rejects.
func (tg *ArbitraryTimeGeometry[G]) TimeStepToTimePoint(s TimeStep) TimePoint {
	if !tg.IsValidTimeStep(s) {
		return math.Inf(1)
	}
	return tg.steps[s].bounds.Min
}

// TimePointToTimeStep returns the last step whose lower bound is <= t, or 0
// when t precedes the first step, is NaN or the sequence is empty.
func (tg *ArbitraryTimeGeometry[G]) TimePointToTimeStep(t TimePoint) TimeStep {
	if math.IsNaN(t) {
		return 0
	}
	// first index whose lower bound exceeds t
	i := sort.Search(len(tg.steps), func(i int) bool { return tg.steps[i].bounds.Min > t })
	if i == 0 {
		return 0
	}
	return i - 1
}

// GeometryForTimeStep returns the stored geometry of step s. The result
// aliases the stored value.
func (tg *ArbitraryTimeGeometry[G]) GeometryForTimeStep(s TimeStep) (G, bool) {
	if !tg.IsValidTimeStep(s) {
		var zero G
		return zero, false
	}
	return tg.steps[s].geometry, true
}

// GeometryForTimePoint returns the stored geometry of the step containing t.
func (tg *ArbitraryTimeGeometry[G]) GeometryForTimePoint(t TimePoint) (G, bool) {
	if !tg.IsValidTimePoint(t) {
		var zero G
		return zero, false
	}
	return tg.GeometryForTimeStep(tg.TimePointToTimeStep(t))
}

// GeometryCloneForTimeStep returns a deep copy of the geometry of step s.
func (tg *ArbitraryTimeGeometry[G]) GeometryCloneForTimeStep(s TimeStep) (G, bool) {
	g, ok := tg.GeometryForTimeStep(s)
	if !ok {
		return g, false
	}
	return g.Clone(), true
}

// SetTimeStepGeometry replaces the geometry of step s and keeps its bounds.
// It is a no-op for an invalid step.
func (tg *ArbitraryTimeGeometry[G]) SetTimeStepGeometry(geometry G, s TimeStep) {
	if !tg.IsValidTimeStep(s) {
		return
	}
	tg.steps[s].geometry = geometry
}

// SetTimeStep replaces geometry and bounds of step s. Predecessors whose
// lower bound is not below the new one, and successors whose lower bound is
// not above it, are removed so that lower bounds stay strictly increasing.
// It returns the index the replaced step ends up at, or -1 (no-op) for an
// invalid step.
func (tg *ArbitraryTimeGeometry[G]) SetTimeStep(geometry G, bounds TimeBounds, s TimeStep) (TimeStep, error) {
	if !tg.IsValidTimeStep(s) {
		return -1, nil
	}
	if isNil(geometry) {
		return -1, fmt.Errorf("%w: nil geometry", ErrInvalidArgument)
	}
	if bounds.Max < bounds.Min || math.IsNaN(bounds.Min) || math.IsNaN(bounds.Max) {
		return -1, fmt.Errorf("%w: time bounds [%g, %g]", ErrInvalidArgument, bounds.Min, bounds.Max)
	}

	kept := make([]step[G], 0, len(tg.steps))
	for _, st := range tg.steps[:s] {
		if st.bounds.Min < bounds.Min {
			kept = append(kept, st)
		}
	}
	at := len(kept)
	kept = append(kept, step[G]{geometry: geometry, bounds: bounds})
	for _, st := range tg.steps[s+1:] {
		if st.bounds.Min > bounds.Min {
			kept = append(kept, st)
		}
	}
	tg.steps = kept
	return at, nil
}

// AppendTimeStep appends geometry for bounds. The lower bound must exceed
// the lower bound of the current last step.
func (tg *ArbitraryTimeGeometry[G]) AppendTimeStep(geometry G, bounds TimeBounds) error {
	if isNil(geometry) {
		return fmt.Errorf("%w: nil geometry", ErrInvalidArgument)
	}
	if bounds.Max < bounds.Min || math.IsNaN(bounds.Min) || math.IsNaN(bounds.Max) {
		return fmt.Errorf("%w: time bounds [%g, %g]", ErrInvalidArgument, bounds.Min, bounds.Max)
	}
	if n := len(tg.steps); n > 0 && bounds.Min <= tg.steps[n-1].bounds.Min {
		return fmt.Errorf("%w: lower bound %g does not exceed lower bound %g of step %d",
			ErrInvalidArgument, bounds.Min, tg.steps[n-1].bounds.Min, n-1)
	}
	tg.steps = append(tg.steps, step[G]{geometry: geometry, bounds: bounds})
	return nil
}

// AppendTimeStepClone appends a deep copy of geometry.
func (tg *ArbitraryTimeGeometry[G]) AppendTimeStepClone(geometry G, bounds TimeBounds) error {
	if isNil(geometry) {
		return fmt.Errorf("%w: nil geometry", ErrInvalidArgument)
	}
	return tg.AppendTimeStep(geometry.Clone(), bounds)
}

// Expand grows the sequence to size steps. New steps hold default
// geometries; each new step starts at the previous upper bound and lasts one
// millisecond. Shrinking is rejected and leaves the sequence unchanged.
func (tg *ArbitraryTimeGeometry[G]) Expand(size int) error {
	if size < len(tg.steps) {
		return fmt.Errorf("%w: cannot shrink from %d to %d time steps", ErrInvalidArgument, len(tg.steps), size)
	}
	if size > len(tg.steps) && tg.newGeometry == nil {
		return fmt.Errorf("%w: no default geometry to expand with", ErrInvalidArgument)
	}
	for len(tg.steps) < size {
		var bounds TimeBounds
		if n := len(tg.steps); n > 0 {
			last := tg.steps[n-1].bounds
			start := last.Max
			if start <= last.Min {
				start = last.Min + 1
			}
			bounds = TimeBounds{Min: start, Max: start + 1}
		} else {
			bounds = TimeBounds{Min: 0, Max: 1}
		}
		tg.steps = append(tg.steps, step[G]{geometry: tg.newGeometry(), bounds: bounds})
	}
	return nil
}

// ReplaceTimeStepGeometries replaces every step's geometry with a clone of
// geometry, keeping all time bounds.
func (tg *ArbitraryTimeGeometry[G]) ReplaceTimeStepGeometries(geometry G) {
	for i := range tg.steps {
		tg.steps[i].geometry = geometry.Clone()
	}
}

// ClearAllGeometries empties the sequence.
func (tg *ArbitraryTimeGeometry[G]) ClearAllGeometries() {
	tg.steps = nil
}

// Each calls fn for every step in order.
func (tg *ArbitraryTimeGeometry[G]) Each(fn func(s TimeStep, geometry G, bounds TimeBounds)) {
	for i, st := range tg.steps {
		fn(i, st.geometry, st.bounds)
	}
}

// Clone returns a deep copy including every stored geometry.
func (tg *ArbitraryTimeGeometry[G]) Clone() *ArbitraryTimeGeometry[G] {
	c := &ArbitraryTimeGeometry[G]{newGeometry: tg.newGeometry, steps: make([]step[G], len(tg.steps))}
	for i, st := range tg.steps {
		c.steps[i] = step[G]{geometry: st.geometry.Clone(), bounds: st.bounds}
	}
	return c
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	}
	return false
}
