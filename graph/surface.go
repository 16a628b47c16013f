package graph

import "image/color"

// TextAlign is the horizontal anchor of drawn text relative to its x position.
type TextAlign uint8

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextBaseline is the vertical anchor of drawn text relative to its y position.
type TextBaseline uint8

const (
	BaselineAlphabetic TextBaseline = iota
	BaselineTop
	BaselineMiddle
	BaselineBottom
)

// Surface is an immediate-mode 2D drawing target. Coordinates grow rightwards
// and downwards and are affected by Scale and Translate. Save and Restore push
// and pop the transform, clip and style state.
type Surface interface {
	// Size returns the drawable area in device pixels.
	Size() (width, height float64)
	// PixelRatio returns device pixels per logical unit.
	PixelRatio() float64
	Clear()
	Save()
	Restore()
	Scale(sx, sy float64)
	Translate(dx, dy float64)
	// ClipRect intersects the clip region with the given rectangle.
	ClipRect(x, y, w, h float64)
	SetStrokeColor(c color.NRGBA)
	SetFillColor(c color.NRGBA)
	SetLineWidth(w float64)
	// SetFont sets the text size in logical units.
	SetFont(size float64)
	SetTextAlign(a TextAlign)
	SetTextBaseline(b TextBaseline)
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Stroke outlines the current path with the stroke color and line width.
	Stroke()
	// FillText draws s with the fill color.
	FillText(s string, x, y float64)
	// MeasureText returns the width of s in the current font.
	MeasureText(s string) float64
}
