package sampling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/clavet/spotmean/internal/errors"
	"github.com/clavet/spotmean/internal/feed"
	"github.com/clavet/spotmean/internal/logging"
)

// Params configures an Orchestrator.
type Params struct {
	// Sampler is the shared price feed; it must be safe for concurrent use.
	Sampler feed.Sampler
	// Workers is the number of concurrent sampling workers (>= 1).
	Workers int
	// Duration is the length of the shared observation window.
	Duration time.Duration
	// PollInterval is the fixed delay between a worker's fetch attempts.
	PollInterval time.Duration
	// Collector receives metrics events; nil means no metrics.
	Collector Collector
	// Logger receives structured engine logs; nil means the default logger.
	Logger logging.Logger
}

// RunSummary is the outcome of one complete sampling run.
type RunSummary struct {
	// RunID uniquely identifies the run in logs and traces.
	RunID string
	// Results holds one entry per worker, indexed by spawn order.
	Results []Result
	// Contributions is the number of averages the aggregator received.
	// It always equals the worker count after a successful run.
	Contributions int
	// Aggregate is the mean of all worker averages.
	Aggregate float64
	// Started is the shared start instant all deadlines derive from.
	Started time.Time
	// Elapsed is the wall time of the whole run including the join.
	Elapsed time.Duration
}

// Orchestrator coordinates a sampling run: it spawns the workers, waits for
// every one of them to finish, and reduces their contributions.
type Orchestrator struct {
	p Params
}

// New creates an Orchestrator, filling in the nil collaborators.
func New(p Params) *Orchestrator {
	if p.Collector == nil {
		p.Collector = NopCollector{}
	}
	if p.Logger == nil {
		p.Logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{p: p}
}

// Run executes one complete sampling run.
//
// The shared deadline is computed once from a single start instant, so all
// workers measure the same window even though their fetch latencies differ.
// The join barrier (errgroup.Wait) is the only synchronization point beyond
// the aggregator's internal lock: Reduce is called strictly after it, which
// guarantees it observes every contribution.
//
// A worker that panics aborts the run with a WorkerError; transient fetch
// failures never reach this level. Cancellation also aborts the run: the
// workers finalize early and contribute their partial averages, but the run
// returns the context error instead of a completed summary.
func (o *Orchestrator) Run(ctx context.Context) (RunSummary, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "sampling.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("workers", o.p.Workers)))
	defer span.End()

	start := time.Now()
	deadline := start.Add(o.p.Duration)
	agg := NewAggregator()
	results := make([]Result, o.p.Workers)

	o.p.Logger.Info("sampling run started",
		logging.String("run_id", runID),
		logging.Int("workers", o.p.Workers),
		logging.String("window", o.p.Duration.String()))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < o.p.Workers; i++ {
		idx := i
		w := &worker{
			id:           idx + 1,
			sampler:      o.p.Sampler,
			deadline:     deadline,
			pollInterval: o.p.PollInterval,
			agg:          agg,
			collector:    o.p.Collector,
			logger:       o.p.Logger,
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = apperrors.WorkerError{WorkerID: w.id, Cause: fmt.Errorf("panic: %v", r)}
				}
			}()
			results[idx] = w.run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return RunSummary{}, apperrors.WrapError(err, "sampling run %s", runID)
	}

	// Workers swallow the cancellation to finalize cleanly, so it must be
	// surfaced here: an interrupted window is not a completed run.
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return RunSummary{}, apperrors.WrapError(err, "sampling run %s interrupted", runID)
	}

	aggregate := agg.Reduce()
	o.p.Collector.FinalAggregate(aggregate)
	elapsed := time.Since(start)

	o.p.Logger.Info("sampling run finished",
		logging.String("run_id", runID),
		logging.Float64("aggregate", aggregate),
		logging.Int("contributions", agg.Len()),
		logging.String("elapsed", elapsed.String()))

	return RunSummary{
		RunID:         runID,
		Results:       results,
		Contributions: agg.Len(),
		Aggregate:     aggregate,
		Started:       start,
		Elapsed:       elapsed,
	}, nil
}
