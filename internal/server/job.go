package server

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/dfopt/internal/bench"
	"github.com/cwbudde/dfopt/internal/opt"
	"github.com/cwbudde/dfopt/internal/runner"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether no further updates will follow
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// JobRequest describes the run a client asks for
type JobRequest struct {
	runner.Settings
	Function  string `json:"function"`
	Dimension int    `json:"dimension,omitempty"`

	// Patience enables stall detection after this many flat generations
	Patience int `json:"patience,omitempty"`

	// ProgressEvery is the number of generations between progress events
	ProgressEvery int `json:"progressEvery,omitempty"`
}

// normalize fills defaults and rejects requests that cannot run
func (r *JobRequest) normalize() error {
	defaults := runner.DefaultSettings()
	r.Algorithm = strings.ToLower(r.Algorithm)
	if r.Algorithm == "" {
		r.Algorithm = defaults.Algorithm
	}
	if !slices.Contains(runner.Algorithms, r.Algorithm) {
		return fmt.Errorf("%w: unknown algorithm %q", opt.ErrInvalidArgument, r.Algorithm)
	}
	if r.Function == "" {
		return fmt.Errorf("%w: function is required", opt.ErrInvalidArgument)
	}
	if _, err := bench.Lookup(r.Function, r.Dimension); err != nil {
		return fmt.Errorf("%w: %v", opt.ErrInvalidArgument, err)
	}
	if r.MaxEvaluations <= 0 {
		r.MaxEvaluations = defaults.MaxEvaluations
	}
	if r.MaxMutations <= 0 {
		r.MaxMutations = defaults.MaxMutations
	}
	// both tolerances zero means unset
	if r.TolX == 0 && r.TolF == 0 {
		r.TolX, r.TolF = defaults.TolX, defaults.TolF
	}
	if r.ProgressEvery <= 0 {
		r.ProgressEvery = 50
	}
	return nil
}

// Job represents an optimization job
type Job struct {
	ID          string     `json:"id"`
	State       JobState   `json:"state"`
	Request     JobRequest `json:"request"`
	BestPoint   []float64  `json:"bestPoint,omitempty"`
	BestValue   *float64   `json:"bestValue,omitempty"`
	Evaluations int        `json:"evaluations"`
	Iterations  int        `json:"iterations"`
	StopReason  string     `json:"stopReason,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// setBest records a best value; non-finite values cannot be encoded as JSON
// and are left out
func (j *Job) setBest(x []float64, fx float64) {
	j.BestPoint = slices.Clone(x)
	if math.IsInf(fx, 0) || math.IsNaN(fx) {
		j.BestValue = nil
		return
	}
	j.BestValue = &fx
}

func (j *Job) clone() *Job {
	c := *j
	c.BestPoint = slices.Clone(j.BestPoint)
	if j.BestValue != nil {
		v := *j.BestValue
		c.BestValue = &v
	}
	if j.EndTime != nil {
		t := *j.EndTime
		c.EndTime = &t
	}
	return &c
}

// JobManager manages the lifecycle of jobs. Getters return snapshots, so
// callers never observe a job while a worker updates it.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job for req
func (jm *JobManager) CreateJob(req JobRequest) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		State:     StatePending,
		Request:   req,
		StartTime: time.Now(),
	}
	jm.jobs[job.ID] = job
	return job.clone()
}

// GetJob retrieves a snapshot of a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.clone(), true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.clone())
	}
	slices.SortFunc(jobs, func(a, b *Job) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	running := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			running = append(running, job.clone())
		}
	}
	return running
}

// attach derives the job's context from parent and remembers its cancel
// function until detach
func (jm *JobManager) attach(parent context.Context, id string) context.Context {
	ctx, cancel := context.WithCancel(parent)
	jm.mu.Lock()
	jm.cancels[id] = cancel
	jm.mu.Unlock()
	return ctx
}

func (jm *JobManager) detach(id string) {
	jm.mu.Lock()
	cancel := jm.cancels[id]
	delete(jm.cancels, id)
	jm.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancel stops a pending or running job
func (jm *JobManager) Cancel(id string) error {
	jm.mu.RLock()
	job, exists := jm.jobs[id]
	var state JobState
	if exists {
		state = job.State
	}
	cancel := jm.cancels[id]
	jm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if state.Terminal() {
		return fmt.Errorf("job %s already %s", id, state)
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// CancelAll stops every job that still holds a context
func (jm *JobManager) CancelAll() {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	for _, cancel := range jm.cancels {
		cancel()
	}
}
