package graph

import "image/color"

type point struct{ X, Y float64 }

type stroke struct {
	Color   color.NRGBA
	Width   float64
	Points  []point
	Clipped bool
}

type text struct {
	S     string
	At    point
	Align TextAlign
	Color color.NRGBA
}

type surfaceState struct {
	scale, offset point
	clips         int
	stroke, fill  color.NRGBA
	width, font   float64
	align         TextAlign
	baseline      TextBaseline
}

// recordingSurface captures drawing in device coordinates.
type recordingSurface struct {
	w, h, ratio float64
	state       surfaceState
	stack       []surfaceState
	path        []point

	Clears  int
	Strokes []stroke
	Texts   []text
	Clips   [][4]float64
}

func newRecordingSurface(w, h, ratio float64) *recordingSurface {
	return &recordingSurface{
		w: w, h: h, ratio: ratio,
		state: surfaceState{scale: point{1, 1}, width: 1, font: 10},
	}
}

func (r *recordingSurface) device(x, y float64) point {
	return point{x*r.state.scale.X + r.state.offset.X, y*r.state.scale.Y + r.state.offset.Y}
}

func (r *recordingSurface) Size() (float64, float64) { return r.w, r.h }
func (r *recordingSurface) PixelRatio() float64      { return r.ratio }

func (r *recordingSurface) Clear() {
	r.Clears++
	r.Strokes = nil
	r.Texts = nil
	r.Clips = nil
}

func (r *recordingSurface) Save() { r.stack = append(r.stack, r.state) }

func (r *recordingSurface) Restore() {
	if n := len(r.stack); n > 0 {
		r.state = r.stack[n-1]
		r.stack = r.stack[:n-1]
	}
}

func (r *recordingSurface) Scale(sx, sy float64) {
	r.state.scale.X *= sx
	r.state.scale.Y *= sy
}

func (r *recordingSurface) Translate(dx, dy float64) {
	r.state.offset = r.device(dx, dy)
}

func (r *recordingSurface) ClipRect(x, y, w, h float64) {
	p := r.device(x, y)
	r.Clips = append(r.Clips, [4]float64{p.X, p.Y, w * r.state.scale.X, h * r.state.scale.Y})
	r.state.clips++
}

func (r *recordingSurface) SetStrokeColor(c color.NRGBA)   { r.state.stroke = c }
func (r *recordingSurface) SetFillColor(c color.NRGBA)     { r.state.fill = c }
func (r *recordingSurface) SetLineWidth(w float64)         { r.state.width = w }
func (r *recordingSurface) SetFont(size float64)           { r.state.font = size }
func (r *recordingSurface) SetTextAlign(a TextAlign)       { r.state.align = a }
func (r *recordingSurface) SetTextBaseline(b TextBaseline) { r.state.baseline = b }
func (r *recordingSurface) BeginPath()                     { r.path = nil }
func (r *recordingSurface) MoveTo(x, y float64)            { r.path = append(r.path, r.device(x, y)) }
func (r *recordingSurface) LineTo(x, y float64)            { r.path = append(r.path, r.device(x, y)) }
func (r *recordingSurface) MeasureText(s string) float64   { return float64(len(s)) * r.state.font / 2 }

func (r *recordingSurface) Stroke() {
	r.Strokes = append(r.Strokes, stroke{
		Color:   r.state.stroke,
		Width:   r.state.width * r.state.scale.X,
		Points:  r.path,
		Clipped: r.state.clips > 0,
	})
}

func (r *recordingSurface) FillText(s string, x, y float64) {
	r.Texts = append(r.Texts, text{S: s, At: r.device(x, y), Align: r.state.align, Color: r.state.fill})
}

func (r *recordingSurface) textStrings() []string {
	out := make([]string, len(r.Texts))
	for i, t := range r.Texts {
		out[i] = t.S
	}
	return out
}

// seriesStrokes returns the clipped strokes, i.e. the plotted lines.
func (r *recordingSurface) seriesStrokes() []stroke {
	var out []stroke
	for _, s := range r.Strokes {
		if s.Clipped {
			out = append(out, s)
		}
	}
	return out
}

var _ Surface = (*recordingSurface)(nil)
