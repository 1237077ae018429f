// Package metrics exposes run-level observability for the incremental
// loader as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/dvloznov/retail-etl/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the loader's collectors behind its own Prometheus
// registry. It implements the ETL runner's reporter contract.
type Registry struct {
	reg *prometheus.Registry

	RunsSucceeded prometheus.Counter
	RunsFailed    prometheus.Counter
	Extracted     prometheus.Counter
	Loaded        prometheus.Counter
	Duplicates    prometheus.Counter
	Errored       *prometheus.CounterVec
	RunDuration   prometheus.Histogram
}

// NewRegistry creates and registers all loader collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runsSucceeded := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_runs_succeeded_total"})
	runsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_runs_failed_total"})
	extracted := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_records_extracted_total"})
	loaded := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_records_loaded_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "etl_records_duplicate_total"})
	errored := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "etl_records_errored_total"}, []string{"kind"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "etl_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(runsSucceeded, runsFailed, extracted, loaded, duplicates, errored, runDuration)

	return &Registry{
		reg:           r,
		RunsSucceeded: runsSucceeded,
		RunsFailed:    runsFailed,
		Extracted:     extracted,
		Loaded:        loaded,
		Duplicates:    duplicates,
		Errored:       errored,
		RunDuration:   runDuration,
	}
}

// RecordRun tallies the summary of one successful run.
func (r *Registry) RecordRun(summary domain.RunSummary, duration time.Duration) {
	r.RunsSucceeded.Inc()
	r.Extracted.Add(float64(summary.Extracted))
	r.Loaded.Add(float64(summary.Loaded))
	r.Duplicates.Add(float64(summary.Duplicates))
	r.RunDuration.Observe(duration.Seconds())
}

// RecordRunFailure counts a run aborted by a collaborator failure.
func (r *Registry) RecordRunFailure() {
	r.RunsFailed.Inc()
}

// RecordError counts one quarantined record by error kind.
func (r *Registry) RecordError(kind domain.ErrorKind) {
	r.Errored.WithLabelValues(string(kind)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
