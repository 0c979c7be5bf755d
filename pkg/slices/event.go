package slices

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// EventKind discriminates pointer events.
type EventKind int

const (
	Press EventKind = iota
	Move
	Release
)

func (k EventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind accepts the names returned by EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	for _, k := range []EventKind{Press, Move, Release} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is one pointer interaction delivered by a render view.
type Event struct {
	Kind EventKind

	// Position is the cursor in world coordinates.
	Position r3.Vec

	// ViewNormal is the normal of the view plane; zero means use the
	// normal of the view's current plane.
	ViewNormal r3.Vec

	// View identifies the render view the event came from.
	View string

	// MMPerPixel is the display scale of the view; zero means one pixel
	// per in-plane voxel.
	MMPerPixel float64
}

// PressAt returns a press event for view at world position p.
func PressAt(view string, p r3.Vec) Event { return Event{Kind: Press, View: view, Position: p} }

// MoveTo returns a move event for view at world position p.
func MoveTo(view string, p r3.Vec) Event { return Event{Kind: Move, View: view, Position: p} }

// ReleaseAt returns a release event for view at world position p.
func ReleaseAt(view string, p r3.Vec) Event { return Event{Kind: Release, View: view, Position: p} }
