package app

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"

	apperrors "github.com/clavet/spotmean/internal/errors"
	"github.com/clavet/spotmean/internal/logging"
	"github.com/clavet/spotmean/internal/metrics"
	"github.com/clavet/spotmean/internal/sampling"
	"github.com/clavet/spotmean/internal/server"
	"github.com/clavet/spotmean/internal/sysmon"
)

// runCache executes one sampling run and persists the final aggregate.
func (a *Application) runCache(ctx context.Context, out io.Writer) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	fmt.Fprintln(out, "Selected mode: Cache")

	recorder := metrics.NewRecorder()
	if a.Config.MetricsEnabled {
		metricsSrv := server.New(a.Config.MetricsAddr, recorder.Registry(), a.Logger)
		if err := metricsSrv.Start(); err != nil {
			a.Logger.Error("metrics server failed to start", err,
				logging.String("addr", a.Config.MetricsAddr))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(shutdownCtx)
			}()
		}
	}

	var spin *spinner.Spinner
	if !a.Config.Quiet {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.ErrWriter))
		spin.Suffix = fmt.Sprintf(" sampling BTC spot prices for %s...", a.Duration())
		spin.Start()
	}

	orch := sampling.New(sampling.Params{
		Sampler:      a.Sampler,
		Workers:      a.Config.Workers,
		Duration:     a.Duration(),
		PollInterval: a.Config.PollInterval,
		Collector:    recorder,
		Logger:       a.Logger,
	})
	summary, err := orch.Run(ctx)

	if spin != nil {
		spin.Stop()
	}

	if err != nil {
		a.Logger.Error("sampling run aborted", err)
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		if apperrors.IsContextError(err) {
			return apperrors.ExitErrorCanceled
		}
		return apperrors.ExitErrorGeneric
	}

	for _, r := range summary.Results {
		fmt.Fprintf(out, "Worker %d: average USD price of BTC is: %v (%d samples, %d skipped)\n",
			r.WorkerID, r.Average, r.Samples, r.Failures)
	}
	fmt.Fprintf(out, "Final aggregate of USD prices of BTC: %v\n", summary.Aggregate)

	if err := a.Store.WriteAggregate(summary.Aggregate); err != nil {
		a.Logger.Error("persisting aggregate failed", err,
			logging.String("path", a.Store.Path()))
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorStore
	}

	snap := sysmon.Take()
	a.Logger.Info("cache run complete",
		logging.String("run_id", summary.RunID),
		logging.Float64("aggregate", summary.Aggregate),
		logging.String("elapsed", summary.Elapsed.String()),
		logging.String("result_file", a.Store.Path()),
		logging.Float64("cpu_percent", snap.CPUPercent),
		logging.Float64("mem_percent", snap.MemPercent),
		logging.Int("goroutines", snap.Goroutines))

	return apperrors.ExitSuccess
}
