// Package pipeline fans out one backtest per basin and variable over a bounded number of
// goroutines. A failing or panicking job only loses its own result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aouyang1/basinflag/backtest"
	"github.com/aouyang1/basinflag/metrics"
	"github.com/aouyang1/basinflag/observation"
	"github.com/aouyang1/basinflag/plot"
	"golang.org/x/sync/semaphore"
)

const DefaultParallelism = 8

var (
	ErrPanic              = errors.New("job panicked")
	ErrNoBacktester       = errors.New("no backtester")
	ErrInvalidParallelism = errors.New("parallelism must be positive")
)

// Outcome of one basin variable job. Result is only set when the status is ok.
type Outcome struct {
	BasinID   string
	GaugeName string
	Variable  string
	Status    string
	Result    *backtest.Result
	Err       error
	Elapsed   time.Duration
}

type Options struct {
	Parallelism int

	// Plotter renders each successful result when set
	Plotter *plot.Plotter

	// Metrics counts job outcomes when set
	Metrics *metrics.Metrics

	// ModelDir receives the final fold model of every described result when set
	ModelDir string
}

type Runner struct {
	bt  *backtest.Backtester
	opt Options
}

func New(bt *backtest.Backtester, opt Options) (*Runner, error) {
	if bt == nil {
		return nil, ErrNoBacktester
	}
	if opt.Parallelism == 0 {
		opt.Parallelism = DefaultParallelism
	}
	if opt.Parallelism < 0 {
		return nil, fmt.Errorf("%d, %w", opt.Parallelism, ErrInvalidParallelism)
	}
	if opt.ModelDir != "" {
		if err := os.MkdirAll(opt.ModelDir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create model directory, %w", err)
		}
	}
	return &Runner{bt: bt, opt: opt}, nil
}

// Run submits a job per basin and variable in table order and waits for all of them. Outcomes
// are returned in submission order. Jobs not started before the context is done are marked
// canceled and the context error is returned with the outcomes.
func (r *Runner) Run(ctx context.Context, tbl *observation.Table) ([]Outcome, error) {
	var series []*observation.Series
	for _, b := range tbl.Basins {
		for _, v := range tbl.Variables {
			s, err := b.Series(v)
			if err != nil {
				return nil, err
			}
			series = append(series, s)
		}
	}
	slog.Info("starting backtests", "jobs", len(series), "parallelism", r.opt.Parallelism)

	outcomes := make([]Outcome, len(series))
	sem := semaphore.NewWeighted(int64(r.opt.Parallelism))
	var wg sync.WaitGroup
	for i, s := range series {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(series); j++ {
				outcomes[j] = newOutcome(series[j])
				outcomes[j].Status = metrics.StatusCanceled
				outcomes[j].Err = err
				r.record(outcomes[j])
			}
			break
		}
		wg.Add(1)
		go func(i int, s *observation.Series) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = r.runJob(ctx, s)
		}(i, s)
	}
	wg.Wait()

	return outcomes, ctx.Err()
}

func newOutcome(s *observation.Series) Outcome {
	return Outcome{
		BasinID:   s.BasinID,
		GaugeName: s.GaugeName,
		Variable:  s.Variable,
	}
}

func (r *Runner) runJob(ctx context.Context, s *observation.Series) (out Outcome) {
	out = newOutcome(s)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("recovered job panic", "basin", s.BasinID, "variable", s.Variable, "panic", p, "stack", string(debug.Stack()))
			out.Status = metrics.StatusFailed
			out.Result = nil
			out.Err = fmt.Errorf("%v, %w", p, ErrPanic)
		}
		out.Elapsed = time.Since(start)
		r.record(out)
	}()

	res, err := r.bt.Run(ctx, s)
	switch {
	case err == nil:
		out.Status = metrics.StatusOK
		out.Result = res
	case errors.Is(err, backtest.ErrInsufficientHistory):
		out.Status = metrics.StatusSkipped
		out.Err = err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.Status = metrics.StatusCanceled
		out.Err = err
	default:
		out.Status = metrics.StatusFailed
		out.Err = err
	}

	if out.Result != nil && r.opt.Plotter != nil {
		r.plot(out.Result)
	}
	if out.Result != nil && r.opt.ModelDir != "" {
		r.saveModel(out.Result)
	}
	return out
}

// plot failures are logged only
func (r *Runner) plot(res *backtest.Result) {
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("recovered plot panic", "basin", res.BasinID, "variable", res.Variable, "panic", p)
		}
	}()
	if _, err := r.opt.Plotter.Plot(res); err != nil {
		slog.Warn("unable to plot", "basin", res.BasinID, "variable", res.Variable, "error", err)
	}
}

// saveModel failures are logged only
func (r *Runner) saveModel(res *backtest.Result) {
	if res.LastFit == nil {
		return
	}
	base := filepath.Join(r.opt.ModelDir, plot.FileName(res, ""))
	if err := res.LastFit.Model.WriteFiles(base); err != nil {
		slog.Warn("unable to save model", "basin", res.BasinID, "variable", res.Variable, "error", err)
	}
}

func (r *Runner) record(out Outcome) {
	switch out.Status {
	case metrics.StatusOK:
		slog.Info("backtest finished",
			"basin", out.BasinID,
			"variable", out.Variable,
			"folds", len(out.Result.Folds),
			"anomalies", out.Result.NumAnomalies(),
			"elapsed", out.Elapsed,
		)
	case metrics.StatusSkipped:
		slog.Info("skipping series", "basin", out.BasinID, "variable", out.Variable, "reason", out.Err)
	case metrics.StatusCanceled:
		slog.Warn("backtest canceled", "basin", out.BasinID, "variable", out.Variable)
	default:
		slog.Error("backtest failed", "basin", out.BasinID, "variable", out.Variable, "error", out.Err)
	}

	if r.opt.Metrics == nil {
		return
	}
	r.opt.Metrics.JobFinished(out.Variable, out.Status)
	if out.Result != nil {
		r.opt.Metrics.ObserveResult(out.Result)
	}
}

// Results returns the results of the successful outcomes in order
func Results(outcomes []Outcome) []*backtest.Result {
	var res []*backtest.Result
	for _, o := range outcomes {
		if o.Result != nil {
			res = append(res, o.Result)
		}
	}
	return res
}
