// Package grid implements the configurable dashboard layout: the set of placed
// panels, their undo/redo history, auto-placement of new panels and the
// locked/edit mode.
package grid

import (
	"fmt"
	"slices"
)

// ViewKind identifies which visualization a panel shows.
type ViewKind uint8

const (
	FieldView ViewKind = iota
	GraphView
	ConfigView
	TelemetryView
	CameraView
	OpModeView
	numViewKinds
)

var viewTags = [numViewKinds]string{
	FieldView:     "FIELD_VIEW",
	GraphView:     "GRAPH_VIEW",
	ConfigView:    "CONFIG_VIEW",
	TelemetryView: "TELEMETRY_VIEW",
	CameraView:    "CAMERA_VIEW",
	OpModeView:    "OPMODE_VIEW",
}

var viewTitles = [numViewKinds]string{
	FieldView:     "Field",
	GraphView:     "Graph",
	ConfigView:    "Configuration",
	TelemetryView: "Telemetry",
	CameraView:    "Camera",
	OpModeView:    "Op Mode",
}

// ViewKinds lists every panel kind in picker order.
func ViewKinds() []ViewKind {
	kinds := make([]ViewKind, 0, numViewKinds)
	for k := ViewKind(0); k < numViewKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the persisted tag of the kind.
func (v ViewKind) String() string {
	if v >= numViewKinds {
		return "UNKNOWN_VIEW"
	}
	return viewTags[v]
}

// Title returns a human readable name for the kind.
func (v ViewKind) Title() string {
	if v >= numViewKinds {
		return "Unknown"
	}
	return viewTitles[v]
}

// ParseViewKind maps a persisted tag back to its kind.
func ParseViewKind(tag string) (ViewKind, error) {
	for i, t := range viewTags {
		if t == tag {
			return ViewKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown view tag %q", tag)
}

// Rect is a rectangle measured in grid cells.
type Rect struct {
	X, Y, W, H int
}

// Overlaps reports whether r and o share any cell.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Panel is one placed visualization.
type Panel struct {
	ID        string
	View      ViewKind
	Rect      Rect
	Draggable bool
	Resizable bool
}

// Snapshot is one full arrangement of panels. Snapshots stored in a History
// are never mutated; every transition builds a new one.
type Snapshot []Panel

// Clone returns an independent copy of s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return slices.Clone(s)
}

// Equal reports whether s and o hold the same panels in the same order.
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s, o)
}

// Index returns the position of the panel with the given id, or -1.
func (s Snapshot) Index(id string) int {
	return slices.IndexFunc(s, func(p Panel) bool { return p.ID == id })
}
