// Package metrics exposes engine counters through Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements the engine's Collector interface on top of a private
// Prometheus registry, so repeated runs in one process (and tests) never
// collide on global registration.
type Recorder struct {
	registry *prometheus.Registry

	samples       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	aggregate     prometheus.Gauge
}

// NewRecorder creates a Recorder with all engine metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotmean_samples_total",
			Help: "Successful price observations per worker.",
		}, []string{"worker"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spotmean_fetch_failures_total",
			Help: "Skipped price observations per worker.",
		}, []string{"worker"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotmean_fetch_duration_seconds",
			Help:    "Wall time of individual fetch attempts.",
			Buckets: prometheus.DefBuckets,
		}),
		aggregate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spotmean_final_aggregate",
			Help: "Final mean-of-means of the last completed run.",
		}),
	}

	r.registry.MustRegister(r.samples, r.failures, r.fetchDuration, r.aggregate)
	return r
}

// Registry returns the private registry for HTTP exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SampleCollected records one successful observation for a worker.
func (r *Recorder) SampleCollected(workerID int) {
	r.samples.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

// SampleFailed records one skipped observation for a worker.
func (r *Recorder) SampleFailed(workerID int) {
	r.failures.WithLabelValues(strconv.Itoa(workerID)).Inc()
}

// ObserveFetchDuration records the wall time of one fetch attempt.
func (r *Recorder) ObserveFetchDuration(d time.Duration) {
	r.fetchDuration.Observe(d.Seconds())
}

// FinalAggregate records the reduced mean-of-means of a run. NaN is a valid
// gauge value and is exposed as such.
func (r *Recorder) FinalAggregate(v float64) {
	r.aggregate.Set(v)
}
