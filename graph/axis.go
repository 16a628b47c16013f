package graph

import (
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// maxTickDecimals bounds the precision of axis labels.
const maxTickDecimals = 20

// AxisScaling is a linear axis snapped to human friendly tick positions.
type AxisScaling struct {
	Min, Max float64
	Spacing  float64
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

func floor[T constraints.Integer | constraints.Float](a T) T {
	return T(math.Floor(float64(a)))
}

func ceil[T constraints.Integer | constraints.Float](a T) T {
	return T(math.Ceil(float64(a)))
}

// niceNum rounds x to 1, 2, 5 or 10 times a power of ten. With round set the
// nearest such value is picked, otherwise the smallest one not below x.
func niceNum(x float64, round bool) float64 {
	exp := floor(math.Log10(x))
	pow := math.Pow(10, exp)
	fraction := x / pow
	var nice float64
	if round {
		switch {
		case fraction < 1.5:
			nice = 1
		case fraction < 3:
			nice = 2
		case fraction < 7:
			nice = 5
		default:
			nice = 10
		}
	} else {
		switch {
		case fraction <= 1:
			nice = 1
		case fraction <= 2:
			nice = 2
		case fraction <= 5:
			nice = 5
		default:
			nice = 10
		}
	}
	return nice * pow
}

// GetAxisScaling computes an axis covering [min, max] with at most roughly
// maxTicks ticks. Degenerate ranges are padded by one unit on each side.
func GetAxisScaling(min, max float64, maxTicks int) AxisScaling {
	if math.Abs(max-min) < 1e-6 {
		min--
		max++
	}
	maxTicks = clamp(maxTicks, 2, math.MaxInt32)
	a, ok := axisScaling(min, max, maxTicks)
	if !ok {
		// The rounded range overflows float64; pad the midpoint instead.
		mid := min/2 + max/2
		pad := math.Max(1, math.Abs(mid)*1e-3)
		if a, ok = axisScaling(mid-pad, mid+pad, maxTicks); !ok {
			a = AxisScaling{Min: -1, Max: 1, Spacing: 1}
		}
	}
	return a
}

func axisScaling(min, max float64, maxTicks int) (AxisScaling, bool) {
	span := niceNum(max-min, false)
	spacing := niceNum(span/float64(maxTicks-1), true)
	a := AxisScaling{
		Min:     floor(min/spacing) * spacing,
		Max:     ceil(max/spacing) * spacing,
		Spacing: spacing,
	}
	return a, a.finite() && spacing > 0
}

func (a AxisScaling) finite() bool {
	for _, v := range []float64{a.Min, a.Max, a.Spacing} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// maxTickCount bounds the slice returned by Ticks for hand built scalings.
const maxTickCount = 1024

// Ticks returns the tick values of the axis from Min to Max inclusive.
func (a AxisScaling) Ticks() []float64 {
	if !a.finite() || a.Spacing <= 0 {
		return []float64{a.Min}
	}
	steps := math.Round((a.Max - a.Min) / a.Spacing)
	if math.IsNaN(steps) || math.IsInf(steps, 0) || steps < 0 {
		return []float64{a.Min}
	}
	n := int(min(steps, maxTickCount))
	ticks := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		ticks = append(ticks, a.Min+float64(i)*a.Spacing)
	}
	return ticks
}

// FormatTicks renders tick labels. Each label gets just enough decimals to
// distinguish it from its neighbour; zero is always "0".
func FormatTicks(ticks []float64) []string {
	labels := make([]string, len(ticks))
	for i, v := range ticks {
		var delta float64
		switch {
		case i+1 < len(ticks):
			delta = ticks[i+1] - v
		case i > 0:
			delta = v - ticks[i-1]
		}
		delta = math.Abs(delta)
		if delta != 0 && math.Abs(v) < delta*1e-9 {
			// Accumulated rounding around zero.
			v = 0
		}
		if v == 0 {
			labels[i] = "0"
			continue
		}
		digits := 0
		if delta > 0 {
			digits = clamp(int(ceil(-math.Log10(delta)-1e-9)), 0, maxTickDecimals)
		}
		labels[i] = strconv.FormatFloat(v, 'f', digits, 64)
	}
	return labels
}
