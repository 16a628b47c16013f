package graph

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGraph(t *testing.T) (*Graph, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	g := New(Options{Now: clock.Now, Logger: zaptest.NewLogger(t)})
	return g, clock
}

func sample(ts float64, kv ...any) Sample {
	s := Sample{{Name: TimeKey, Value: ts}}
	for i := 0; i+1 < len(kv); i += 2 {
		s = append(s, Entry{Name: kv[i].(string), Value: kv[i+1].(float64)})
	}
	return s
}

func TestRenderWithoutData(t *testing.T) {
	g, _ := newTestGraph(t)
	s := newRecordingSurface(400, 300, 1)
	assert.False(t, g.Render(s))
	assert.Equal(t, 1, s.Clears)
	assert.Empty(t, s.Strokes)
	assert.Empty(t, s.Texts)
}

func TestAddDropsInvalid(t *testing.T) {
	g, _ := newTestGraph(t)
	added := g.Add(Batch{
		{{Name: "a", Value: 1}},
		sample(0, "a", 1.0, "b", math.NaN(), "c", math.Inf(1)),
		sample(math.NaN(), "a", 2.0),
	})
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"a"}, g.Names())
	assert.Equal(t, 1, g.Len("a"))

	now, ok := g.Now()
	require.True(t, ok)
	assert.Equal(t, -250.0, now)
}

func TestBatchWithoutTimestampsDoesNotAnchor(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Add(Batch{{{Name: "a", Value: 1}}})
	g.Add(Batch{})
	_, ok := g.Now()
	assert.False(t, ok)
}

func TestColorsFollowFirstAppearance(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Add(Batch{sample(0, "c", 1.0, "a", 1.0)})
	g.Add(Batch{sample(1, "b", 1.0, "a", 2.0, "d", 1.0, "e", 1.0, "f", 1.0)})
	assert.Equal(t, []string{"c", "a", "b", "d", "e", "f"}, g.Names())
	for i, name := range g.Names() {
		c, ok := g.Color(name)
		require.True(t, ok)
		assert.Equal(t, DefaultColors[i%len(DefaultColors)], c, name)
	}
}

func TestRenderTwoBatches(t *testing.T) {
	g, clock := newTestGraph(t)
	g.Add(Batch{sample(0, "a", 1.0)})
	clock.Advance(time.Second)
	g.Add(Batch{sample(300, "a", 3.0)})

	s := newRecordingSurface(600, 400, 1)
	require.True(t, g.Render(s))

	// Legend entry plus the axis labels.
	texts := s.textStrings()
	assert.Equal(t, "a", texts[0])
	assert.Equal(t, []string{"1.0", "1.5", "2.0", "2.5", "3.0"}, texts[1:])
	for _, tx := range s.Texts[1:] {
		assert.Equal(t, AlignRight, tx.Align)
	}

	lines := s.seriesStrokes()
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, DefaultColors[0], line.Color)
	require.Len(t, line.Points, 2)

	require.Len(t, s.Clips, 1)
	clip := s.Clips[0]
	left, top, width, height := clip[0], clip[1], clip[2], clip[3]

	// now = -250 + 1000; the window starts 5s earlier.
	start := 750.0 - 5000
	assert.InDelta(t, left+(0-start)/5000*width, line.Points[0].X, 1e-9)
	assert.InDelta(t, left+(300-start)/5000*width, line.Points[1].X, 1e-9)
	// The axis spans exactly [1, 3].
	assert.InDelta(t, top+height, line.Points[0].Y, 1e-9)
	assert.InDelta(t, top, line.Points[1].Y, 1e-9)
}

func TestRenderPrunesAndKeepsLegend(t *testing.T) {
	g, clock := newTestGraph(t)
	g.Add(Batch{sample(0, "a", 1.0, "b", 2.0)})
	g.Add(Batch{sample(5000, "a", 2.0)})

	clock.Advance(6 * time.Second)
	s := newRecordingSurface(600, 400, 1)
	require.True(t, g.Render(s))
	assert.Equal(t, 1, g.Len("a"))
	assert.Zero(t, g.Len("b"))
	// b is kept in the legend but not drawn.
	assert.Equal(t, []string{"a", "b"}, s.textStrings()[:2])
	assert.Len(t, s.seriesStrokes(), 1)

	clock.Advance(10 * time.Second)
	assert.False(t, g.Render(s))
	assert.Zero(t, g.Len("a"))
	assert.Equal(t, []string{"a", "b"}, g.Names())
}

func TestRenderExtremeValues(t *testing.T) {
	for _, values := range [][2]float64{{0, 1.7e308}, {-1e308, 1e308}} {
		g, _ := newTestGraph(t)
		g.Add(Batch{sample(0, "a", values[0]), sample(10, "a", values[1])})
		s := newRecordingSurface(400, 300, 1)
		require.NotPanics(t, func() { g.Render(s) }, "values %v", values)
		assert.NotEmpty(t, s.Texts)
	}
}

func TestRenderPixelRatio(t *testing.T) {
	g, _ := newTestGraph(t)
	g.Add(Batch{sample(0, "a", 1.0), sample(100, "a", 4.0)})

	s := newRecordingSurface(800, 600, 2)
	require.True(t, g.Render(s))

	require.Len(t, s.Clips, 1)
	clip := s.Clips[0]
	assert.Greater(t, clip[0], 0.0)
	assert.LessOrEqual(t, clip[0]+clip[2], 800.0)
	assert.LessOrEqual(t, clip[1]+clip[3], 600.0)

	var grid []stroke
	for _, st := range s.Strokes {
		if st.Color == g.opts.GridLineColor {
			grid = append(grid, st)
		}
	}
	require.Len(t, grid, 1)
	// Gridlines are one device pixel wide regardless of the ratio.
	assert.InDelta(t, 1.0, grid[0].Width, 1e-9)
	assert.Len(t, grid[0].Points, 2*(verticalDivisions+len(GetAxisScaling(1, 4, 7).Ticks())))

	// Legend text is scaled along with everything else.
	assert.InDelta(t, 2*(g.opts.Padding+g.opts.FontSize/2), s.Texts[0].At.Y, 1e-9)
}
