package sampling

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clavet/spotmean/internal/feed"
	"github.com/clavet/spotmean/internal/logging"
)

// tracer emits spans through the global provider; without an installed SDK
// every span is a no-op.
var tracer = otel.Tracer("github.com/clavet/spotmean/internal/sampling")

// Result holds the outcome of a single worker's observation window.
type Result struct {
	// WorkerID identifies the worker (1..N).
	WorkerID int
	// Average is the worker's local mean. NaN when Samples is zero.
	Average float64
	// Samples is the number of successful observations.
	Samples int
	// Failures is the number of skipped observations.
	Failures int
}

// worker owns a private running sum over its observation window and
// contributes exactly one average to the shared aggregator when it
// finalizes. All workers compare against the same deadline instant, so
// their windows stay synchronized regardless of individual fetch latency.
type worker struct {
	id           int
	sampler      feed.Sampler
	deadline     time.Time
	pollInterval time.Duration
	agg          *Aggregator
	collector    Collector
	logger       logging.Logger
}

// run executes the worker's sampling loop until the shared deadline passes,
// then finalizes and contributes the local average. Fetch failures are
// skipped silently; the loop may overrun the deadline by up to one poll
// interval plus one fetch latency, which is acceptable for an advisory
// sampling duration.
func (w *worker) run(ctx context.Context) Result {
	var sum float64
	var count, failures int

loop:
	for time.Now().Before(w.deadline) {
		price, err := w.fetch(ctx)
		if err != nil {
			failures++
			w.collector.SampleFailed(w.id)
			w.logger.Debug("sample skipped",
				logging.Int("worker", w.id),
				logging.Err(err))
		} else {
			sum += price
			count++
			w.collector.SampleCollected(w.id)
		}

		select {
		case <-time.After(w.pollInterval):
		case <-ctx.Done():
			// An interrupted worker finalizes with whatever it collected.
			break loop
		}
	}

	// count == 0 yields NaN, preserved all the way into the final mean.
	average := sum / float64(count)
	w.agg.Append(average)

	w.logger.Info("worker finished",
		logging.Int("worker", w.id),
		logging.Float64("average", average),
		logging.Int("samples", count),
		logging.Int("failures", failures))

	return Result{WorkerID: w.id, Average: average, Samples: count, Failures: failures}
}

// fetch performs a single traced and timed sampler call.
func (w *worker) fetch(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "feed.fetch",
		trace.WithAttributes(attribute.Int("worker.id", w.id)))
	defer span.End()

	start := time.Now()
	price, err := w.sampler.FetchOne(ctx)
	w.collector.ObserveFetchDuration(time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return 0, err
	}
	span.SetAttributes(attribute.Float64("price", price))
	return price, nil
}
