package backend

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "robodash"
	subsystem = "datasource"
)

// Metrics represents data source metrics.
type Metrics struct {
	dials    *prometheus.CounterVec
	messages *prometheus.CounterVec
	dropped  prometheus.Counter
	batches  prometheus.Counter
}

// NewMetrics creates new data source metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		dials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dials_total",
				Help:      "Total number of telemetry connection attempts.",
			},
			[]string{"result"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_total",
				Help:      "Total number of received telemetry messages or replayed rows.",
			},
			[]string{"result"},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dropped_values_total",
				Help:      "Total number of sample values dropped for being missing or non-numeric.",
			},
		),
		batches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "batches_total",
				Help:      "Total number of batches handed to the dashboard.",
			},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.dials.Describe(ch)
	m.messages.Describe(ch)
	m.dropped.Describe(ch)
	m.batches.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.dials.Collect(ch)
	m.messages.Collect(ch)
	m.dropped.Collect(ch)
	m.batches.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*Metrics)(nil)
)
