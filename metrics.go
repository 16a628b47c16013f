package main

import "github.com/prometheus/client_golang/prometheus"

// renderMetrics count dashboard frames.
type renderMetrics struct {
	frames      prometheus.Counter
	graphFrames *prometheus.CounterVec
}

func newRenderMetrics() *renderMetrics {
	return &renderMetrics{
		frames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "robodash",
				Subsystem: "ui",
				Name:      "frames_total",
				Help:      "Total number of laid out frames.",
			},
		),
		graphFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "robodash",
				Subsystem: "ui",
				Name:      "graph_renders_total",
				Help:      "Total number of graph panel renders.",
			},
			[]string{"result"},
		),
	}
}

func (m *renderMetrics) graphRendered(drawn bool) {
	if drawn {
		m.graphFrames.WithLabelValues("drawn").Inc()
		return
	}
	m.graphFrames.WithLabelValues("empty").Inc()
}

// Describe implements prometheus.Collector.
func (m *renderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.frames.Describe(ch)
	m.graphFrames.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *renderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.frames.Collect(ch)
	m.graphFrames.Collect(ch)
}

var _ prometheus.Collector = (*renderMetrics)(nil)
