package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/dfopt/internal/bench"
	"github.com/cwbudde/dfopt/internal/runner"
	"github.com/cwbudde/dfopt/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runRequest is everything one invocation of the run command needs
type runRequest struct {
	runner.Settings
	Function    string
	Dimension   int
	Patience    int
	TraceEvery  int
	TracePoints bool
	DataDir     string
	StoreKind   string
	NoSave      bool
}

var req = runRequest{
	Settings:   runner.DefaultSettings(),
	Function:   "sphere",
	Dimension:  2,
	TraceEvery: 100,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Minimize a benchmark function",
	Long: `Runs one optimizer on a named benchmark function, prints the best point
and saves a run record (plus a trace of the best value) to the data directory.`,
	RunE: runOptimization,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&req.Algorithm, "algo", req.Algorithm, "Algorithm: crs, cso, esch, mayfly")
	f.StringVar(&req.Function, "func", req.Function, "Benchmark function (see bench names)")
	f.IntVar(&req.Dimension, "dim", req.Dimension, "Problem dimension (ignored by fixed-dimension functions)")
	f.IntVar(&req.MaxEvaluations, "max-evals", req.MaxEvaluations, "Maximum number of objective evaluations (mayfly always runs at least one iteration)")
	f.Uint64Var(&req.Seed, "seed", 0, "Random seed (0 = random)")
	f.Float64Var(&req.TolX, "tol-x", req.TolX, "Tolerance on the best point movement (CRS) or radius spread (CSO)")
	f.Float64Var(&req.TolF, "tol-f", req.TolF, "Tolerance on the best value change (CRS) or fitness spread (CSO)")
	f.IntVar(&req.PopSize, "pop", 0, "Population size (0 = algorithm default)")
	f.IntVar(&req.MaxMutations, "mutations", req.MaxMutations, "CRS mutation attempts per trial")
	f.IntVar(&req.Patience, "patience", 0, "Stop after N generations without improvement (0 = off)")
	f.IntVar(&req.TraceEvery, "trace-every", req.TraceEvery, "Trace the best value every N generations (0 = off)")
	f.BoolVar(&req.TracePoints, "trace-points", false, "Include the best point in trace entries")
	f.BoolVar(&req.NoSave, "no-save", false, "Do not save a run record")

	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	req.DataDir = dataDir
	req.StoreKind = storeKind

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := execute(ctx, req, cmd.OutOrStdout())
	return err
}

// execute performs one run and reports it to out. A cancelled run is still
// recorded and reported before the cancellation error is returned.
func execute(ctx context.Context, r runRequest, out io.Writer) (*store.RunRecord, error) {
	problem, err := bench.Lookup(r.Function, r.Dimension)
	if err != nil {
		return nil, err
	}
	if r.Seed == 0 {
		r.Seed = rand.Uint64()
	}

	runID := uuid.NewString()
	slog.Info("Starting optimization",
		"run_id", runID,
		"algo", r.Algorithm,
		"func", problem.Name,
		"dim", len(problem.Guess),
		"max_evals", r.MaxEvaluations,
		"seed", r.Seed,
	)

	var runs store.Store
	if !r.NoSave {
		runs, err = store.NewStore(r.StoreKind, r.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.CloseIfSupported(runs)
	}

	res, runErr := optimize(ctx, r, problem, runID)
	if res == nil {
		return nil, runErr
	}

	record := res.Record(runID, r.Settings, problem)

	if runs != nil {
		if err := runs.SaveRun(record); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
	}

	report(out, problem, res, record, runs != nil)
	return record, runErr
}

// optimize runs the requested algorithm, tracing into the data directory
// when a record will be saved.
func optimize(ctx context.Context, r runRequest, problem *bench.Problem, runID string) (*runner.Result, error) {
	opts := runner.DefaultOptions()
	opts.Stall = runner.DisabledStallConfig()
	if r.Patience > 0 {
		opts.Stall.Enabled = true
		opts.Stall.Patience = r.Patience
		opts.Stall.Threshold = runner.DefaultStallConfig().Threshold
	}
	opts.TraceEvery = r.TraceEvery
	opts.TracePoints = r.TracePoints

	if !r.NoSave && r.TraceEvery > 0 && !r.IsOneShot() {
		tw, err := store.NewTraceWriter(r.DataDir, runID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := tw.Close(); err != nil {
				slog.Warn("Failed to close trace", "run_id", runID, "error", err)
			}
		}()
		opts.Trace = tw
	}

	res, err := runner.Solve(ctx, r.Settings, problem, opts)
	if err != nil && (res == nil || ctx.Err() == nil) {
		return nil, err
	}
	return res, err
}

func report(out io.Writer, problem *bench.Problem, res *runner.Result, record *store.RunRecord, saved bool) {
	fmt.Fprintln(out, res.Solution)
	fmt.Fprintf(out, "f(x*): %.10g\n", res.Solution.Value)
	if gap := problem.Gap(res.Solution.Value); !math.IsNaN(gap) {
		fmt.Fprintf(out, "gap to known minimum: %.3g\n", gap)
	}
	fmt.Fprintf(out, "stopped: %s after %s evaluations, %s generations (%s)\n",
		res.StopReason,
		humanize.Comma(int64(res.Solution.Evaluations)),
		humanize.Comma(int64(res.Iterations)),
		res.Elapsed.Round(time.Microsecond),
	)
	if saved {
		fmt.Fprintf(out, "run: %s\n", record.ID)
	}
}
