package sampling

import "time"

// Collector receives engine events for metrics reporting. The engine calls
// it from multiple goroutines; implementations must be safe for concurrent
// use.
type Collector interface {
	// SampleCollected records one successful observation for a worker.
	SampleCollected(workerID int)
	// SampleFailed records one skipped observation for a worker.
	SampleFailed(workerID int)
	// ObserveFetchDuration records the wall time of one fetch attempt.
	ObserveFetchDuration(d time.Duration)
	// FinalAggregate records the reduced mean-of-means of a run.
	FinalAggregate(v float64)
}

// NopCollector discards all engine events. It is the default when no
// metrics backend is wired in.
type NopCollector struct{}

func (NopCollector) SampleCollected(int)                { /* no-op */ }
func (NopCollector) SampleFailed(int)                   { /* no-op */ }
func (NopCollector) ObserveFetchDuration(time.Duration) { /* no-op */ }
func (NopCollector) FinalAggregate(float64)             { /* no-op */ }
