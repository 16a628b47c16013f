package main

import (
	"image"
	"math"

	"gioui.org/f32"
	"gioui.org/io/key"

	"git.sr.ht/~whereswaldon/robodash/grid"
)

// cellGeometry converts between grid cells and pixels for one frame. Cells are
// separated, and surrounded, by margin pixels.
type cellGeometry struct {
	cols      int
	colWidth  float32
	rowHeight float32
	margin    float32
}

func newCellGeometry(width, cols, rowHeight, margin int) cellGeometry {
	colWidth := float32(width-margin*(cols+1)) / float32(cols)
	return cellGeometry{
		cols:      cols,
		colWidth:  max(colWidth, 1),
		rowHeight: float32(rowHeight),
		margin:    float32(margin),
	}
}

func (g cellGeometry) colPitch() float32 { return g.colWidth + g.margin }
func (g cellGeometry) rowPitch() float32 { return g.rowHeight + g.margin }

func roundPx(v float32) int {
	return int(math.Round(float64(v)))
}

// bounds returns the pixel rectangle covered by r.
func (g cellGeometry) bounds(r grid.Rect) image.Rectangle {
	x := g.margin + float32(r.X)*g.colPitch()
	y := g.margin + float32(r.Y)*g.rowPitch()
	w := float32(r.W)*g.colWidth + float32(max(r.W-1, 0))*g.margin
	h := float32(r.H)*g.rowHeight + float32(max(r.H-1, 0))*g.margin
	return image.Rect(roundPx(x), roundPx(y), roundPx(x+w), roundPx(y+h))
}

// cells converts a pixel distance into the nearest whole number of cells.
func cells(px, pitch float32) int {
	return int(math.Round(float64(px / pitch)))
}

// move returns r dragged by delta pixels, snapped to the nearest cell and kept
// within the columns.
func (g cellGeometry) move(r grid.Rect, delta f32.Point) grid.Rect {
	r.X = max(0, min(r.X+cells(delta.X, g.colPitch()), g.cols-r.W))
	r.Y = max(0, r.Y+cells(delta.Y, g.rowPitch()))
	return r
}

// resize returns r with its bottom right corner dragged by delta pixels. The
// result is at least one cell in each direction.
func (g cellGeometry) resize(r grid.Rect, delta f32.Point) grid.Rect {
	r.W = max(1, min(r.W+cells(delta.X, g.colPitch()), g.cols-r.X))
	r.H = max(1, r.H+cells(delta.Y, g.rowPitch()))
	return r
}

// contentHeight returns the pixel height needed to show every panel of s.
func (g cellGeometry) contentHeight(s grid.Snapshot) int {
	bottom := 0
	for _, p := range s {
		bottom = max(bottom, p.Rect.Y+p.Rect.H)
	}
	return roundPx(g.margin + float32(bottom)*g.rowPitch())
}

// keyPress translates a Gio key event for the board shortcuts.
func keyPress(e key.Event) grid.KeyPress {
	return grid.KeyPress{
		Name: string(e.Name),
		Modifiers: grid.Modifiers{
			Ctrl:    e.Modifiers.Contain(key.ModCtrl),
			Command: e.Modifiers.Contain(key.ModCommand),
			Shift:   e.Modifiers.Contain(key.ModShift),
		},
	}
}
