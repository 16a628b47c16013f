// Package graph renders streamed numeric samples as a scrolling, multi-series
// line plot with an auto-scaled Y axis and a fixed-duration X window.
package graph

import (
	"image/color"
	"math"
	"time"

	"go.uber.org/zap"
)

// TimeKey is the reserved entry name carrying a sample's timestamp in
// milliseconds.
const TimeKey = "time"

// lagMs compensates for transmission delay when anchoring the clock, and is
// the slack kept past the left edge of the window before samples are evicted.
const lagMs = 250

// verticalDivisions is the number of vertical gridlines.
const verticalDivisions = 5

// Entry is one named value of a sample.
type Entry struct {
	Name  string
	Value float64
}

// Sample is a set of entries sharing one timestamp, carried by the entry
// named TimeKey.
type Sample []Entry

// Time returns the timestamp entry of the sample.
func (s Sample) Time() (ms float64, ok bool) {
	for _, e := range s {
		if e.Name == TimeKey && !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0) {
			return e.Value, true
		}
	}
	return 0, false
}

// Batch is an ordered group of samples delivered together.
type Batch []Sample

// Options configure the look and timing of a Graph. Zero fields take the
// defaults noted below.
type Options struct {
	// Window is the visible time span. Default 5s.
	Window time.Duration
	// Colors is the series palette. Default DefaultColors.
	Colors []color.NRGBA
	// LineWidth of series lines. Default 2.
	LineWidth float64
	// Padding around the plot and axis labels. Default 15.
	Padding float64
	// KeySpacing between legend rows and between swatch and label. Default 4.
	KeySpacing float64
	// KeyLineLength is the width of legend swatches. Default 12.
	KeyLineLength float64
	// GridLineWidth in device pixels. Default 1.
	GridLineWidth float64
	GridLineColor color.NRGBA
	// FontSize for the legend and axis labels. Default 14.
	FontSize  float64
	TextColor color.NRGBA
	// MaxTicks bounds the number of Y axis ticks. Default 7.
	MaxTicks int
	// Now returns the wall clock. Default time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = 5 * time.Second
	}
	if len(o.Colors) == 0 {
		o.Colors = DefaultColors
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 2
	}
	if o.Padding <= 0 {
		o.Padding = 15
	}
	if o.KeySpacing <= 0 {
		o.KeySpacing = 4
	}
	if o.KeyLineLength <= 0 {
		o.KeyLineLength = 12
	}
	if o.GridLineWidth <= 0 {
		o.GridLineWidth = 1
	}
	if o.GridLineColor == (color.NRGBA{}) {
		o.GridLineColor = color.NRGBA{R: 120, G: 120, B: 120, A: 255}
	}
	if o.FontSize <= 0 {
		o.FontSize = 14
	}
	if o.TextColor == (color.NRGBA{}) {
		o.TextColor = color.NRGBA{R: 50, G: 50, B: 50, A: 255}
	}
	if o.MaxTicks < 2 {
		o.MaxTicks = 7
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Graph buffers samples per series and paints them. It is not safe for
// concurrent use; Add and Render are expected to run on the same goroutine.
type Graph struct {
	opts   Options
	series []*series
	byName map[string]*series

	// The first batch fixes the mapping from sample time to wall time; it is
	// never re-synchronised.
	anchored       bool
	anchorSampleMs float64
	anchorWallMs   float64
}

// New creates an empty graph.
func New(opts Options) *Graph {
	return &Graph{
		opts:   opts.withDefaults(),
		byName: make(map[string]*series),
	}
}

func wallMs(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

func (g *Graph) windowMs() float64 {
	return float64(g.opts.Window) / float64(time.Millisecond)
}

// Names returns the series names in order of first appearance.
func (g *Graph) Names() []string {
	names := make([]string, len(g.series))
	for i, s := range g.series {
		names[i] = s.name
	}
	return names
}

// Len returns the number of buffered samples of the named series.
func (g *Graph) Len(name string) int {
	if s, ok := g.byName[name]; ok {
		return len(s.timestamps)
	}
	return 0
}

// Color returns the color assigned to the named series.
func (g *Graph) Color(name string) (color.NRGBA, bool) {
	if s, ok := g.byName[name]; ok {
		return s.color, true
	}
	return color.NRGBA{}, false
}

func (g *Graph) seriesFor(name string) *series {
	if s, ok := g.byName[name]; ok {
		return s
	}
	s := &series{
		name:  name,
		color: g.opts.Colors[len(g.series)%len(g.opts.Colors)],
	}
	g.series = append(g.series, s)
	g.byName[name] = s
	return s
}

// Add buffers a batch. Samples without a timestamp and non-finite values are
// dropped. It returns the number of values buffered.
func (g *Graph) Add(batch Batch) (added int) {
	var (
		lastTime float64
		timed    bool
	)
	for _, sample := range batch {
		t, ok := sample.Time()
		if !ok {
			g.opts.Logger.Debug("Dropping sample without timestamp", zap.Int("entries", len(sample)))
			continue
		}
		lastTime, timed = t, true
		for _, e := range sample {
			if e.Name == TimeKey || math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
				continue
			}
			g.seriesFor(e.Name).insert(t, e.Value)
			added++
		}
	}
	if !g.anchored && timed {
		g.anchored = true
		g.anchorSampleMs = lastTime - lagMs
		g.anchorWallMs = wallMs(g.opts.Now())
		g.opts.Logger.Debug("Anchored graph clock", zap.Float64("sampleMs", g.anchorSampleMs))
	}
	return added
}

// Now returns the sample-time at the right edge of the plot. ok is false until
// the first batch arrives.
func (g *Graph) Now() (ms float64, ok bool) {
	if !g.anchored {
		return 0, false
	}
	return g.anchorSampleMs + (wallMs(g.opts.Now()) - g.anchorWallMs), true
}

// Render paints the current window onto s and reports whether anything was
// drawn. It is cheap to call every frame.
func (g *Graph) Render(s Surface) bool {
	s.Clear()
	now, ok := g.Now()
	if !ok {
		return false
	}
	cutoff := now - g.windowMs() - lagMs
	hasData := false
	for _, sr := range g.series {
		sr.prune(cutoff)
		hasData = hasData || !sr.empty()
	}
	if !hasData {
		return false
	}

	ratio := s.PixelRatio()
	if ratio <= 0 {
		ratio = 1
	}
	width, height := s.Size()
	width /= ratio
	height /= ratio

	s.Save()
	defer s.Restore()
	s.Scale(ratio, ratio)
	s.SetFont(g.opts.FontSize)
	s.SetTextBaseline(BaselineMiddle)
	s.SetTextAlign(AlignLeft)

	keyHeight := g.renderKey(s, 0, 0, width)
	g.renderGraph(s, 0, keyHeight, width, height-keyHeight, now, ratio)
	return true
}

// renderKey draws the legend centered in width and returns its height.
func (g *Graph) renderKey(s Surface, x, y, width float64) float64 {
	o := g.opts
	lineHeight := o.FontSize + o.KeySpacing
	labelWidth := 0.0
	for _, sr := range g.series {
		labelWidth = max(labelWidth, s.MeasureText(sr.name))
	}
	keyWidth := o.KeyLineLength + o.KeySpacing + labelWidth
	keyX := x + (width-keyWidth)/2

	s.SetLineWidth(o.LineWidth)
	s.SetFillColor(o.TextColor)
	s.SetTextAlign(AlignLeft)
	for i, sr := range g.series {
		lineY := y + o.Padding + float64(i)*lineHeight + o.FontSize/2
		s.SetStrokeColor(sr.color)
		s.BeginPath()
		s.MoveTo(keyX, lineY)
		s.LineTo(keyX+o.KeyLineLength, lineY)
		s.Stroke()
		s.FillText(sr.name, keyX+o.KeyLineLength+o.KeySpacing, lineY)
	}
	return o.Padding + float64(len(g.series))*lineHeight
}

func (g *Graph) renderGraph(s Surface, x, y, width, height, now, ratio float64) {
	o := g.opts
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, sr := range g.series {
		if sLo, sHi, ok := sr.valueRange(); ok {
			lo = min(lo, sLo)
			hi = max(hi, sHi)
		}
	}
	axis := GetAxisScaling(lo, hi, o.MaxTicks)
	ticks := axis.Ticks()

	plotY := y + o.Padding
	plotHeight := height - 2*o.Padding
	if plotHeight <= 0 {
		return
	}
	axisWidth := g.renderAxisLabels(s, x+o.Padding, plotY, plotHeight, axis, ticks)
	plotX := x + o.Padding + axisWidth + o.Padding
	plotWidth := width - (plotX - x) - o.Padding
	if plotWidth <= 0 {
		return
	}
	g.renderGridLines(s, plotX, plotY, plotWidth, plotHeight, len(ticks), ratio)
	g.renderLines(s, plotX, plotY, plotWidth, plotHeight, axis, now)
}

// renderAxisLabels draws the right-aligned tick labels and returns their width.
func (g *Graph) renderAxisLabels(s Surface, x, y, height float64, axis AxisScaling, ticks []float64) float64 {
	labels := FormatTicks(ticks)
	width := 0.0
	for _, l := range labels {
		width = max(width, s.MeasureText(l))
	}
	s.SetFillColor(g.opts.TextColor)
	s.SetTextAlign(AlignRight)
	s.SetTextBaseline(BaselineMiddle)
	span := axis.Max - axis.Min
	for i, tick := range ticks {
		ty := y + height - (tick-axis.Min)/span*height
		s.FillText(labels[i], x+width, ty)
	}
	return width
}

func (g *Graph) renderGridLines(s Surface, x, y, width, height float64, horizontal int, ratio float64) {
	s.SetStrokeColor(g.opts.GridLineColor)
	s.SetLineWidth(g.opts.GridLineWidth / ratio)
	s.BeginPath()
	for i := 0; i < verticalDivisions; i++ {
		lx := x + float64(i)*width/(verticalDivisions-1)
		s.MoveTo(lx, y)
		s.LineTo(lx, y+height)
	}
	if horizontal > 1 {
		for i := 0; i < horizontal; i++ {
			ly := y + float64(i)*height/float64(horizontal-1)
			s.MoveTo(x, ly)
			s.LineTo(x+width, ly)
		}
	}
	s.Stroke()
}

func (g *Graph) renderLines(s Surface, x, y, width, height float64, axis AxisScaling, now float64) {
	window := g.windowMs()
	start := now - window
	span := axis.Max - axis.Min

	s.Save()
	defer s.Restore()
	s.ClipRect(x, y, width, height)
	s.Translate(x, y)
	s.SetLineWidth(g.opts.LineWidth)
	for _, sr := range g.series {
		if sr.empty() {
			continue
		}
		s.SetStrokeColor(sr.color)
		s.BeginPath()
		for i, t := range sr.timestamps {
			px := (t - start) / window * width
			py := height - (sr.values[i]-axis.Min)/span*height
			if i == 0 {
				s.MoveTo(px, py)
			} else {
				s.LineTo(px, py)
			}
		}
		s.Stroke()
	}
}
