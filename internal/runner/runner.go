// Package runner drives an optimizer lifecycle to termination with
// cancellation, stall detection and tracing layered on top.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwbudde/dfopt/internal/bench"
	"github.com/cwbudde/dfopt/internal/opt"
	"github.com/cwbudde/dfopt/internal/store"
)

// StopReason names why a run ended
type StopReason string

const (
	StopConverged StopReason = "converged"
	StopExhausted StopReason = "exhausted"
	StopStalled   StopReason = "stalled"
	StopCancelled StopReason = "cancelled"
)

// TraceSink receives progress entries. store.TraceWriter implements it.
type TraceSink interface {
	Write(entry store.TraceEntry) error
}

// Options configures a run
type Options struct {
	Stall StallConfig

	// Trace receives an entry every TraceEvery generations and once at the
	// end. Nil disables tracing.
	Trace      TraceSink
	TraceEvery int

	// TracePoints includes the best point in every trace entry
	TracePoints bool
}

// DefaultOptions enables stall detection and disables tracing
func DefaultOptions() Options {
	return Options{
		Stall:      DefaultStallConfig(),
		TraceEvery: 100,
	}
}

// Result is the outcome of Run
type Result struct {
	Solution   *opt.Solution
	Iterations int
	StopReason StopReason
	Elapsed    time.Duration
}

// Run initializes l on p and iterates until the optimizer terminates, the
// run stalls or ctx is cancelled. On cancellation the partial result is
// returned together with ctx.Err().
func Run(ctx context.Context, l opt.Lifecycle, p *bench.Problem, opts Options) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil problem", opt.ErrInvalidArgument)
	}

	start := time.Now()
	if err := l.Initialize(p.Func, p.Lower, p.Upper, p.Guess); err != nil {
		return nil, err
	}
	slog.Info("Run started", "function", p.Name, "dimension", len(p.Guess), "evaluations", l.Evaluations())

	tr := &tracer{sink: opts.Trace, every: opts.TraceEvery, points: opts.TracePoints}
	stall := NewStallTracker(opts.Stall)
	res := &Result{}

	for !l.Done() {
		if err := ctx.Err(); err != nil {
			res.StopReason = StopCancelled
			finish(res, l, tr, start)
			slog.Info("Run cancelled", "iterations", res.Iterations, "best", res.Solution.Value)
			return res, err
		}

		l.Iterate()
		res.Iterations++

		_, best := l.Best()
		tr.maybe(res.Iterations, l)
		if stall.Update(best) {
			res.StopReason = StopStalled
			break
		}
	}

	if res.StopReason == "" {
		if l.Converged() {
			res.StopReason = StopConverged
		} else {
			res.StopReason = StopExhausted
		}
	}
	finish(res, l, tr, start)

	slog.Info("Run finished",
		"reason", res.StopReason,
		"iterations", res.Iterations,
		"evaluations", res.Solution.Evaluations,
		"best", res.Solution.Value,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func finish(res *Result, l opt.Lifecycle, tr *tracer, start time.Time) {
	x, fx := l.Best()
	res.Solution = &opt.Solution{
		Point:       x,
		Value:       fx,
		Evaluations: l.Evaluations(),
		Converged:   l.Converged(),
	}
	tr.emit(res.Iterations, l)
	res.Elapsed = time.Since(start)
}

type tracer struct {
	sink   TraceSink
	every  int
	points bool
	last   int
}

func (t *tracer) maybe(iteration int, l opt.Lifecycle) {
	if t.every > 0 && iteration%t.every == 0 {
		t.emit(iteration, l)
	}
}

// emit writes one entry. A failing sink is logged and dropped so the run
// itself is not lost.
func (t *tracer) emit(iteration int, l opt.Lifecycle) {
	if t.sink == nil || (iteration == t.last && iteration > 0) {
		return
	}
	x, fx := l.Best()
	entry := store.TraceEntry{
		Iteration:   iteration,
		Evaluations: l.Evaluations(),
		Best:        fx,
		Timestamp:   time.Now(),
	}
	if t.points {
		entry.Point = x
	}
	if err := t.sink.Write(entry); err != nil {
		slog.Warn("Trace write failed, disabling trace", "error", err)
		t.sink = nil
		return
	}
	t.last = iteration
}

// Solve runs the algorithm named by s on p. One-shot algorithms ignore the
// stall and trace options and always report StopExhausted.
func Solve(ctx context.Context, s Settings, p *bench.Problem, opts Options) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil problem", opt.ErrInvalidArgument)
	}
	if !s.IsOneShot() {
		l, err := NewLifecycle(s)
		if err != nil {
			return nil, err
		}
		return Run(ctx, l, p, opts)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	sol, err := NewMayfly(s).Optimize(p.Func, p.Lower, p.Upper, p.Guess)
	if err != nil {
		return nil, err
	}
	return &Result{Solution: sol, StopReason: StopExhausted, Elapsed: time.Since(start)}, nil
}

// Record converts the result into a persistable run record
func (r *Result) Record(id string, s Settings, p *bench.Problem) *store.RunRecord {
	return store.NewRunRecord(id, r.Solution.Point, r.Solution.Value,
		r.Solution.Evaluations, r.Iterations, r.Solution.Converged, string(r.StopReason),
		store.RunConfig{
			Algorithm:      strings.ToLower(s.Algorithm),
			Function:       p.Name,
			Dimension:      len(p.Guess),
			MaxEvaluations: s.MaxEvaluations,
			PopSize:        s.PopSize,
			MaxMutations:   s.MaxMutations,
			TolX:           s.TolX,
			TolF:           s.TolF,
			Seed:           s.Seed,
			Lower:          p.Lower,
			Upper:          p.Upper,
		})
}
