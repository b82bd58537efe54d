package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Metrics exports pipeline counters in Prometheus format. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	agentRuns      *prometheus.CounterVec
	records        *prometheus.CounterVec
	recordDuration prometheus.Histogram
	fieldsFound    *prometheus.CounterVec
}

// NewMetrics creates collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		agentRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_agent_runs_total",
				Help: "Stage agent outcomes by agent",
			},
			[]string{"agent", "outcome"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_records_total",
				Help: "Processed organization records by status",
			},
			[]string{"status"},
		),
		recordDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "enrich_record_duration_seconds",
				Help:    "Time to run one organization through the pipeline",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
			},
		),
		fieldsFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_fields_found_total",
				Help: "Contact fields present on completed records",
			},
			[]string{"field"},
		),
	}
	m.registry.MustRegister(m.agentRuns, m.records, m.recordDuration, m.fieldsFound)
	return m
}

// Registry returns the registry holding the pipeline collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) agent(name, outcome string) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) record(status string, elapsed time.Duration, fields []string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(status).Inc()
	m.recordDuration.Observe(elapsed.Seconds())
	for _, f := range fields {
		m.fieldsFound.WithLabelValues(f).Inc()
	}
}

// WriteTextfile writes the current values for the node exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "pipeline: write metrics to %s", path)
	}
	return nil
}
