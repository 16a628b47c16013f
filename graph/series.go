package graph

import (
	"image/color"
	"slices"
)

// series is one named data set in the plot, ordered by time.
type series struct {
	name       string
	color      color.NRGBA
	timestamps []float64
	values     []float64
}

// insert appends a sample. Samples older than the newest one are placed in
// order so the timestamps stay non-decreasing.
func (s *series) insert(t, v float64) {
	if n := len(s.timestamps); n == 0 || s.timestamps[n-1] <= t {
		s.timestamps = append(s.timestamps, t)
		s.values = append(s.values, v)
		return
	}
	index, _ := slices.BinarySearch(s.timestamps, t)
	for index < len(s.timestamps) && s.timestamps[index] == t {
		index++
	}
	s.timestamps = slices.Insert(s.timestamps, index, t)
	s.values = slices.Insert(s.values, index, v)
}

// prune drops every sample with a timestamp before cutoff.
func (s *series) prune(cutoff float64) {
	index, _ := slices.BinarySearch(s.timestamps, cutoff)
	if index == 0 {
		return
	}
	s.timestamps = slices.Delete(s.timestamps, 0, index)
	s.values = slices.Delete(s.values, 0, index)
}

// valueRange returns the extrema of the series. ok is false when it is empty.
func (s *series) valueRange() (lo, hi float64, ok bool) {
	if len(s.values) == 0 {
		return 0, 0, false
	}
	return slices.Min(s.values), slices.Max(s.values), true
}

func (s *series) empty() bool {
	return len(s.timestamps) == 0
}
