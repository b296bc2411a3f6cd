package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"eliwatch/internal/checks"
	"eliwatch/internal/report"
)

// MetricsSink writes a Prometheus textfile-collector file for the run.
type MetricsSink struct {
	path   string
	mu     sync.Mutex
	report *report.Report
}

func NewMetricsSink(path string) (*MetricsSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("metrics path required")
	}
	return &MetricsSink{path: path}, nil
}

func (s *MetricsSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := v.(*report.Report); ok {
		s.report = r
	}
	return nil
}

func (s *MetricsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return nil
	}
	reg, err := NewMetricsRegistry(s.report)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(s.path, reg); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", s.path, err)
	}
	return nil
}

// NewMetricsRegistry builds a registry holding the gauges of one report.
func NewMetricsRegistry(r *report.Report) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	outcomes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eliwatch",
		Name:      "check_outcomes",
		Help:      "Number of sources per check and status in the last run.",
	}, []string{"check", "status"})
	sources := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "eliwatch",
		Name:      "sources",
		Help:      "Number of sources checked in the last run.",
	})
	brokenRegion := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eliwatch",
		Name:      "broken_imagery_sources",
		Help:      "Number of sources with broken imagery per region.",
	}, []string{"region"})
	changes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eliwatch",
		Name:      "delta_sources",
		Help:      "Sources that changed since the previous run.",
	}, []string{"change"})
	generated := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "eliwatch",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	})

	for _, c := range []prometheus.Collector{outcomes, sources, brokenRegion, changes, generated} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	sum := report.Summarize(r)
	sources.Set(float64(sum.Sources))
	generated.Set(float64(r.GeneratedAt.Unix()))
	for _, id := range r.Checks {
		c := sum.PerCheck[id]
		outcomes.WithLabelValues(id, string(checks.StatusGood)).Set(float64(c.Good))
		outcomes.WithLabelValues(id, string(checks.StatusWarning)).Set(float64(c.Warning))
		outcomes.WithLabelValues(id, string(checks.StatusError)).Set(float64(c.Error))
	}
	for _, rs := range sum.Regions {
		brokenRegion.WithLabelValues(rs.Region).Set(float64(len(rs.Broken)))
	}
	if d := r.Delta; d != nil && !d.FirstRun {
		changes.WithLabelValues("newly_broken").Set(float64(len(d.NewlyBroken)))
		changes.WithLabelValues("recovered").Set(float64(len(d.Recovered)))
		changes.WithLabelValues("added").Set(float64(len(d.Added)))
		changes.WithLabelValues("removed").Set(float64(len(d.Removed)))
	}
	return reg, nil
}
