package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/dfopt/internal/bench"
	"github.com/cwbudde/dfopt/internal/runner"
	"github.com/cwbudde/dfopt/internal/store"
)

// progressSink turns trace entries into job updates and progress events,
// forwarding each entry to the run's trace file when one is open
type progressSink struct {
	jm    *JobManager
	jobID string
	next  runner.TraceSink
}

func (p *progressSink) Write(entry store.TraceEntry) error {
	var event ProgressEvent
	err := p.jm.UpdateJob(p.jobID, func(j *Job) {
		j.Iterations = entry.Iteration
		j.Evaluations = entry.Evaluations
		j.setBest(entry.Point, entry.Best)
		event = eventFor(j)
	})
	if err != nil {
		return err
	}
	p.jm.broadcaster.Broadcast(event)

	if p.next != nil {
		return p.next.Write(entry)
	}
	return nil
}

// runJob executes an optimization job. When runs is not nil the result is
// saved as a run record and the progress is traced under dataDir.
func runJob(ctx context.Context, jm *JobManager, runs store.Store, dataDir string, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	req := job.Request

	if err := ctx.Err(); err != nil {
		markJobCancelled(jm, jobID)
		return err
	}

	problem, err := bench.Lookup(req.Function, req.Dimension)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	slog.Info("Starting job", "job_id", jobID, "algo", req.Algorithm, "func", problem.Name, "dim", len(problem.Guess))

	opts := runner.Options{
		Stall:       runner.DisabledStallConfig(),
		TraceEvery:  req.ProgressEvery,
		TracePoints: true,
	}
	if req.Patience > 0 {
		opts.Stall = runner.DefaultStallConfig()
		opts.Stall.Patience = req.Patience
	}

	sink := &progressSink{jm: jm, jobID: jobID}
	if runs != nil && !req.IsOneShot() {
		tw, err := store.NewTraceWriter(dataDir, jobID)
		if err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
		defer func() {
			if err := tw.Close(); err != nil {
				slog.Warn("Failed to close trace", "job_id", jobID, "error", err)
			}
		}()
		sink.next = tw
	}
	opts.Trace = sink

	res, err := runner.Solve(ctx, req.Settings, problem, opts)
	if res == nil {
		if errors.Is(err, context.Canceled) {
			markJobCancelled(jm, jobID)
		} else {
			markJobFailed(jm, jobID, err)
		}
		return err
	}

	if runs != nil {
		if err := runs.SaveRun(res.Record(jobID, req.Settings, problem)); err != nil {
			slog.Error("Failed to save run", "job_id", jobID, "error", err)
		}
	}

	state := StateCompleted
	if res.StopReason == runner.StopCancelled {
		state = StateCancelled
	}
	var final ProgressEvent
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = state
		j.setBest(res.Solution.Point, res.Solution.Value)
		j.Evaluations = res.Solution.Evaluations
		j.Iterations = res.Iterations
		j.StopReason = string(res.StopReason)
		j.EndTime = &endTime
		final = eventFor(j)
	})
	jm.broadcaster.Broadcast(final)

	slog.Info("Job finished",
		"job_id", jobID,
		"state", state,
		"reason", res.StopReason,
		"elapsed", res.Elapsed,
		"evaluations", res.Solution.Evaluations,
		"best", res.Solution.Value,
	)
	return err
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	finish(jm, jobID, StateFailed, func(j *Job) {
		j.Error = err.Error()
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	finish(jm, jobID, StateCancelled, func(*Job) {})
	slog.Info("Job cancelled", "job_id", jobID)
}

func finish(jm *JobManager, jobID string, state JobState, fn func(*Job)) {
	var final ProgressEvent
	endTime := time.Now()
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = state
		j.EndTime = &endTime
		fn(j)
		final = eventFor(j)
	})
	if err == nil {
		jm.broadcaster.Broadcast(final)
	}
}
