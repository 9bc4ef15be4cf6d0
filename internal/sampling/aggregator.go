package sampling

import "sync"

// Aggregator is a concurrency-safe, append-only collection of per-worker
// averages. Appends may happen concurrently from any number of workers;
// Reduce must only be called after all appenders have finished, a
// precondition the orchestrator enforces with its join barrier.
type Aggregator struct {
	mu       sync.Mutex
	averages []float64
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append adds one worker average to the collection. Safe for concurrent use.
func (a *Aggregator) Append(average float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.averages = append(a.averages, average)
}

// Reduce returns the arithmetic mean of all appended averages, or 0.0 when
// nothing was appended. NaN contributions propagate into the result.
// The fold is commutative, so insertion order never affects the outcome
// beyond floating-point rounding.
func (a *Aggregator) Reduce() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.averages) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, avg := range a.averages {
		sum += avg
	}
	return sum / float64(len(a.averages))
}

// Len returns the number of appended averages.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.averages)
}

// Values returns a copy of the appended averages in insertion order.
func (a *Aggregator) Values() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.averages))
	copy(out, a.averages)
	return out
}
