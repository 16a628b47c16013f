package grid

const (
	// Columns is the width of the dashboard grid in cells.
	Columns = 6
	// NewPanelW and NewPanelH are the footprint of a freshly added panel.
	NewPanelW = 2
	NewPanelH = 4
)

// bottomEdge returns the lowest edge of the arrangement and the right edge of
// the right-most panel touching it. Both are zero when there are no panels.
func bottomEdge(panels Snapshot) (bottom, right int) {
	for _, p := range panels {
		pBottom := p.Rect.Y + p.Rect.H
		pRight := p.Rect.X + p.Rect.W
		switch {
		case pBottom > bottom:
			bottom = pBottom
			right = pRight
		case pBottom == bottom:
			right = max(right, pRight)
		}
	}
	return bottom, right
}

// Place finds a position for a w×h panel in an arrangement that is cols cells
// wide. Panels are packed greedily to the right of the bottom row, wrapping to
// a new row when they would not fit, then raised to the highest row that does
// not collide with anything under their column span.
func Place(panels Snapshot, cols, w, h int) Rect {
	bottom, right := bottomEdge(panels)
	r := Rect{X: right, Y: bottom, W: w, H: h}
	if right+w > cols {
		r.X = 0
		r.Y = bottom + h
	}

	floor := 0
	for _, p := range panels {
		if p.Rect.X < r.X+r.W && r.X < p.Rect.X+p.Rect.W {
			floor = max(floor, p.Rect.Y+p.Rect.H)
		}
	}
	r.Y = min(r.Y, floor)
	return r
}
