// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes per-run counters in the Prometheus text format.
//
// A run owns a private registry; nothing is served over HTTP. The counters
// are written once, after the report, to a node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/flowtag/internal/aggregate"
	"grimm.is/flowtag/internal/brand"
	"grimm.is/flowtag/internal/errors"
)

// Line results, used as the "result" label of lines_total.
const (
	ResultClassified = "classified"
	ResultSkipped    = "skipped"
	ResultHeader     = "header"
	ResultBlank      = "blank"
)

// Table row results, used as the "result" label of table_rows_total.
const (
	RowLoaded     = "loaded"
	RowInvalid    = "invalid"
	RowOverridden = "overridden"
)

// Registry holds the Prometheus collectors for one run.
// All methods are no-ops on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	Lines       *prometheus.CounterVec
	Tagged      *prometheus.CounterVec
	TableRows   *prometheus.CounterVec
	RunDuration prometheus.Gauge
	LineRate    prometheus.Gauge
}

// NewRegistry creates the run collectors on a fresh registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: brand.MetricsNamespace,
			Name:      "lines_total",
			Help:      "Flow-log lines read, by outcome",
		}, []string{"result"}),
		Tagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: brand.MetricsNamespace,
			Name:      "tagged_total",
			Help:      "Classified flow-log lines, by tag",
		}, []string{"tag"}),
		TableRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: brand.MetricsNamespace,
			Name:      "table_rows_total",
			Help:      "Lookup table rows read at load time, by table and outcome",
		}, []string{"table", "result"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: brand.MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		LineRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: brand.MetricsNamespace,
			Name:      "lines_per_second",
			Help:      "Average line throughput of the last run",
		}),
	}
	r.reg.MustRegister(r.Lines, r.Tagged, r.TableRows, r.RunDuration, r.LineRate)
	return r
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// ObserveTable records the outcome of loading a lookup table.
func (r *Registry) ObserveTable(table string, loaded, invalid, overridden int) {
	if r == nil {
		return
	}
	r.TableRows.WithLabelValues(table, RowLoaded).Add(float64(loaded))
	r.TableRows.WithLabelValues(table, RowInvalid).Add(float64(invalid))
	if overridden > 0 {
		r.TableRows.WithLabelValues(table, RowOverridden).Add(float64(overridden))
	}
}

// ObserveReport adds a finished run's counts.
func (r *Registry) ObserveReport(rep *aggregate.Report) {
	if r == nil || rep == nil {
		return
	}
	s := rep.Stats
	r.Lines.WithLabelValues(ResultClassified).Add(float64(s.Classified))
	r.Lines.WithLabelValues(ResultSkipped).Add(float64(s.Skipped))
	r.Lines.WithLabelValues(ResultHeader).Add(float64(s.Headers))
	r.Lines.WithLabelValues(ResultBlank).Add(float64(s.Blank))
	for _, t := range rep.Tags {
		r.Tagged.WithLabelValues(t.Tag).Add(float64(t.Count))
	}
}

// ObserveDuration records the run's wall time and derived throughput.
func (r *Registry) ObserveDuration(d time.Duration, lines int64) {
	if r == nil {
		return
	}
	r.RunDuration.Set(d.Seconds())
	r.LineRate.Set(calculateRate(lines, d.Seconds()))
}

// WriteTextfile writes every collector to path in the text exposition
// format. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindInternal, "failed to write metrics textfile"), "file", path)
	}
	return nil
}

func calculateRate(count int64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 || count <= 0 {
		return 0
	}
	return float64(count) / elapsedSeconds
}
