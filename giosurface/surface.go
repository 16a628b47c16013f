// Package giosurface implements graph.Surface on top of a Gio layout context.
package giosurface

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"

	"git.sr.ht/~whereswaldon/robodash/graph"
)

type state struct {
	// Device coordinates are p*scale + offset.
	scale, offset f32.Point
	clips         int
	stroke, fill  color.NRGBA
	lineWidth     float32
	fontSize      float32
	align         graph.TextAlign
	baseline      graph.TextBaseline
}

// Surface draws into the ops of a layout context, filling its maximum
// constraints. A Surface is only valid for the frame it was created in.
type Surface struct {
	gtx    layout.Context
	shaper *text.Shaper
	// Background is painted by Clear when non-zero.
	Background color.NRGBA

	state state
	saved []state
	clips []clip.Stack
	path  [][]f32.Point
}

var _ graph.Surface = (*Surface)(nil)

// New returns a surface covering gtx.Constraints.Max.
func New(gtx layout.Context, shaper *text.Shaper) *Surface {
	s := &Surface{
		gtx:    gtx,
		shaper: shaper,
	}
	s.state = state{
		scale:     f32.Pt(1, 1),
		lineWidth: 1,
		fontSize:  12,
		stroke:    color.NRGBA{A: 255},
		fill:      color.NRGBA{A: 255},
	}
	return s
}

// Close pops any clip left open by unbalanced Save calls.
func (s *Surface) Close() {
	for len(s.clips) > 0 {
		s.popClip()
	}
	s.saved = s.saved[:0]
}

func (s *Surface) device(x, y float64) f32.Point {
	return f32.Pt(
		float32(x)*s.state.scale.X+s.state.offset.X,
		float32(y)*s.state.scale.Y+s.state.offset.Y,
	)
}

func (s *Surface) Size() (float64, float64) {
	return float64(s.gtx.Constraints.Max.X), float64(s.gtx.Constraints.Max.Y)
}

func (s *Surface) PixelRatio() float64 {
	return float64(s.gtx.Metric.PxPerDp)
}

func (s *Surface) Clear() {
	s.path = nil
	if s.Background == (color.NRGBA{}) {
		return
	}
	defer clip.Rect{Max: s.gtx.Constraints.Max}.Push(s.gtx.Ops).Pop()
	paint.Fill(s.gtx.Ops, s.Background)
}

func (s *Surface) Save() {
	s.saved = append(s.saved, s.state)
}

func (s *Surface) Restore() {
	n := len(s.saved)
	if n == 0 {
		return
	}
	prev := s.saved[n-1]
	s.saved = s.saved[:n-1]
	for s.state.clips > prev.clips {
		s.popClip()
		s.state.clips--
	}
	s.state = prev
}

func (s *Surface) popClip() {
	n := len(s.clips)
	s.clips[n-1].Pop()
	s.clips = s.clips[:n-1]
}

func (s *Surface) Scale(sx, sy float64) {
	s.state.scale.X *= float32(sx)
	s.state.scale.Y *= float32(sy)
}

func (s *Surface) Translate(dx, dy float64) {
	s.state.offset = s.device(dx, dy)
}

func (s *Surface) ClipRect(x, y, w, h float64) {
	min := s.device(x, y)
	max := s.device(x+w, y+h)
	r := image.Rect(
		int(math.Floor(float64(min.X))), int(math.Floor(float64(min.Y))),
		int(math.Ceil(float64(max.X))), int(math.Ceil(float64(max.Y))),
	)
	s.clips = append(s.clips, clip.Rect(r).Push(s.gtx.Ops))
	s.state.clips++
}

func (s *Surface) SetStrokeColor(c color.NRGBA)         { s.state.stroke = c }
func (s *Surface) SetFillColor(c color.NRGBA)           { s.state.fill = c }
func (s *Surface) SetLineWidth(w float64)               { s.state.lineWidth = float32(w) }
func (s *Surface) SetFont(size float64)                 { s.state.fontSize = float32(size) }
func (s *Surface) SetTextAlign(a graph.TextAlign)       { s.state.align = a }
func (s *Surface) SetTextBaseline(b graph.TextBaseline) { s.state.baseline = b }

func (s *Surface) BeginPath() {
	s.path = s.path[:0]
}

func (s *Surface) MoveTo(x, y float64) {
	s.path = append(s.path, []f32.Point{s.device(x, y)})
}

func (s *Surface) LineTo(x, y float64) {
	if len(s.path) == 0 {
		s.MoveTo(x, y)
		return
	}
	last := len(s.path) - 1
	s.path[last] = append(s.path[last], s.device(x, y))
}

func (s *Surface) Stroke() {
	var p clip.Path
	p.Begin(s.gtx.Ops)
	segments := 0
	for _, sub := range s.path {
		if len(sub) < 2 {
			continue
		}
		p.MoveTo(sub[0])
		for _, pt := range sub[1:] {
			p.LineTo(pt)
		}
		segments += len(sub) - 1
	}
	spec := p.End()
	if segments == 0 {
		return
	}
	paint.FillShape(s.gtx.Ops, s.state.stroke, clip.Stroke{
		Path:  spec,
		Width: s.state.lineWidth * s.state.scale.X,
	}.Op())
}

// label lays out txt at the device font size and returns the recorded call.
func (s *Surface) label(txt string, c color.NRGBA) (layout.Dimensions, op.CallOp) {
	gtx := s.gtx
	// Sizes are already in device pixels.
	gtx.Metric = unit.Metric{PxPerDp: 1, PxPerSp: 1}
	gtx.Constraints = layout.Constraints{Max: image.Pt(math.MaxInt32, math.MaxInt32)}

	colorMacro := op.Record(gtx.Ops)
	paint.ColorOp{Color: c}.Add(gtx.Ops)
	material := colorMacro.Stop()

	macro := op.Record(gtx.Ops)
	dims := widget.Label{MaxLines: 1}.Layout(gtx, s.shaper, font.Font{}, unit.Sp(s.state.fontSize*s.state.scale.Y), txt, material)
	return dims, macro.Stop()
}

func (s *Surface) FillText(txt string, x, y float64) {
	dims, call := s.label(txt, s.state.fill)
	pos := s.device(x, y)
	w, h := float32(dims.Size.X), float32(dims.Size.Y)
	switch s.state.align {
	case graph.AlignCenter:
		pos.X -= w / 2
	case graph.AlignRight:
		pos.X -= w
	}
	switch s.state.baseline {
	case graph.BaselineAlphabetic:
		pos.Y -= h - float32(dims.Baseline)
	case graph.BaselineMiddle:
		pos.Y -= h / 2
	case graph.BaselineBottom:
		pos.Y -= h
	}
	defer op.Affine(f32.Affine2D{}.Offset(pos)).Push(s.gtx.Ops).Pop()
	call.Add(s.gtx.Ops)
}

func (s *Surface) MeasureText(txt string) float64 {
	dims, _ := s.label(txt, s.state.fill)
	if s.state.scale.X == 0 {
		return 0
	}
	return float64(dims.Size.X) / float64(s.state.scale.X)
}
