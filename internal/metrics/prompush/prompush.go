// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch job has no scrape endpoint, so collected metrics
// are pushed once per run when the run is committed.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/metrics"
)

// Config configures the Pushgateway backend.
type Config struct {
	URL string // e.g. http://pushgateway:9091
	// Job is the Pushgateway "job" grouping key; defaults to "etl".
	Job       string
	Namespace string
	// Instance, when set, is added as an "instance" grouping label, e.g. the
	// run id.
	Instance string
}

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	cfg Config
	reg *prometheus.Registry

	steps    *prometheus.CounterVec   // etl_step_total{step,status}
	duration *prometheus.HistogramVec // etl_step_duration_seconds{step,status}
	rows     *prometheus.CounterVec   // etl_records_total{kind}
}

var _ metrics.Backend = (*Backend)(nil)

// New registers the collectors on a private registry.
func New(cfg Config) (*Backend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if cfg.Job == "" {
		cfg.Job = "etl"
	}

	b := &Backend{
		cfg: cfg,
		reg: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      metrics.StepTotal,
			Help:      "Pipeline stage executions by step and status.",
		}, []string{"step", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      metrics.StepDuration,
			Help:      "Pipeline stage duration in seconds by step and status.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"step", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      metrics.RecordsTotal,
			Help:      "Rows by kind (raw, valid, invalid, ri_dropped, inserted, updated).",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{b.steps, b.duration, b.rows} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.steps != nil {
			b.steps.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.rows != nil {
			b.rows.WithLabelValues(labels["kind"]).Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush replaces this job's group on the Pushgateway with the registry.
func (b *Backend) Flush() error {
	p := push.New(b.cfg.URL, b.cfg.Job).Gatherer(b.reg)
	if b.cfg.Instance != "" {
		p = p.Grouping("instance", b.cfg.Instance)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
