package server

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/dfopt/internal/opt"
	"github.com/cwbudde/dfopt/internal/runner"
)

func sphereRequest() JobRequest {
	req := JobRequest{Settings: runner.DefaultSettings(), Function: "sphere", Dimension: 2}
	req.MaxEvaluations = 2000
	req.Seed = 3
	return req
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(sphereRequest())

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Expected state pending, got %s", job.State)
	}
	if job.Request.Function != "sphere" {
		t.Errorf("Expected request to be kept, got %+v", job.Request)
	}
	if job.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestJobManager_GetJobReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(sphereRequest())

	jm.UpdateJob(job.ID, func(j *Job) { j.setBest([]float64{1, 2}, 5) })

	snap, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}
	snap.BestPoint[0] = 99
	*snap.BestValue = -1
	snap.State = StateFailed

	again, _ := jm.GetJob(job.ID)
	if again.BestPoint[0] != 1 || *again.BestValue != 5 || again.State != StatePending {
		t.Errorf("Mutating a snapshot changed the job: %+v", again)
	}

	if _, exists := jm.GetJob("nonexistent"); exists {
		t.Error("Nonexistent job should not be found")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	first := jm.CreateJob(sphereRequest())
	time.Sleep(2 * time.Millisecond)
	second := jm.CreateJob(sphereRequest())

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(sphereRequest())

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 50
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning || updated.Iterations != 50 {
		t.Errorf("Update not applied: %+v", updated)
	}
	if len(jm.GetRunningJobs()) != 1 {
		t.Error("Expected one running job")
	}

	if err := jm.UpdateJob("nonexistent", func(j *Job) {}); err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_Cancel(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(sphereRequest())

	ctx := jm.attach(t.Context(), job.ID)
	if err := jm.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("Job context should be cancelled")
	}

	jm.detach(job.ID)
	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCancelled })
	if err := jm.Cancel(job.ID); err == nil {
		t.Error("Cancelling a finished job should fail")
	}
	if err := jm.Cancel("nonexistent"); err == nil {
		t.Error("Cancelling a nonexistent job should fail")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(sphereRequest())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(iteration int) {
			defer wg.Done()
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Iterations = iteration
				j.setBest([]float64{float64(iteration)}, float64(iteration))
			})
		}(i)
		go func() {
			defer wg.Done()
			jm.ListJobs()
		}()
	}
	wg.Wait()

	if _, exists := jm.GetJob(job.ID); !exists {
		t.Error("Job should still exist after concurrent updates")
	}
}

func TestJob_SetBestSkipsNonFinite(t *testing.T) {
	var j Job
	j.setBest([]float64{1}, math.Inf(1))
	if j.BestValue != nil {
		t.Error("Infinite best should not be stored")
	}
	j.setBest([]float64{1}, 2)
	if j.BestValue == nil || *j.BestValue != 2 {
		t.Error("Finite best should be stored")
	}
}

func TestJobRequest_Normalize(t *testing.T) {
	req := JobRequest{Function: "beale"}
	req.Algorithm = "ESCH"
	if err := req.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	defaults := runner.DefaultSettings()
	if req.Algorithm != "esch" || req.MaxEvaluations != defaults.MaxEvaluations || req.ProgressEvery != 50 {
		t.Errorf("Defaults not applied: %+v", req)
	}
	if req.TolX != defaults.TolX || req.TolF != defaults.TolF {
		t.Errorf("Tolerances not defaulted: %+v", req)
	}

	tests := []struct {
		name string
		req  JobRequest
	}{
		{name: "missing function", req: JobRequest{}},
		{name: "unknown function", req: JobRequest{Function: "nope", Dimension: 2}},
		{name: "dimension mismatch", req: JobRequest{Function: "beale", Dimension: 3}},
		{name: "unknown algorithm", req: JobRequest{Settings: runner.Settings{Algorithm: "simplex"}, Function: "sphere", Dimension: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.normalize()
			if !errors.Is(err, opt.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
