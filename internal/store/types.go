package store

import (
	"fmt"
	"time"
)

// RunConfig holds the settings a run was started with
type RunConfig struct {
	Algorithm      string    `json:"algorithm"` // crs, cso, esch, mayfly
	Function       string    `json:"function"`
	Dimension      int       `json:"dimension"`
	MaxEvaluations int       `json:"maxEvaluations"`
	PopSize        int       `json:"popSize"`
	MaxMutations   int       `json:"maxMutations,omitempty"`
	TolX           float64   `json:"tolX"`
	TolF           float64   `json:"tolF"`
	Seed           uint64    `json:"seed"`
	Lower          []float64 `json:"lower,omitempty"`
	Upper          []float64 `json:"upper,omitempty"`
}

// RunRecord is the persisted outcome of one optimization run.
//
// Only the result is saved, not the population: population layouts differ
// between algorithms and a rerun with the same seed reproduces them anyway.
type RunRecord struct {
	// ID is the unique identifier of the run
	ID string `json:"id"`

	// BestPoint is the best point found
	BestPoint []float64 `json:"bestPoint"`

	// BestValue is the objective value at BestPoint
	BestValue float64 `json:"bestValue"`

	// Evaluations is the number of objective calls consumed
	Evaluations int `json:"evaluations"`

	// Iterations is the number of generations run
	Iterations int `json:"iterations"`

	// Converged is true when a tolerance test ended the run
	Converged bool `json:"converged"`

	// StopReason is converged, exhausted, stalled or cancelled
	StopReason string `json:"stopReason"`

	// Timestamp records when the run finished
	Timestamp time.Time `json:"timestamp"`

	// Config holds the settings the run was started with
	Config RunConfig `json:"config"`
}

// RunInfo contains metadata about a run without the point data.
type RunInfo struct {
	ID          string    `json:"id"`
	Algorithm   string    `json:"algorithm"`
	Function    string    `json:"function"`
	Dimension   int       `json:"dimension"`
	BestValue   float64   `json:"bestValue"`
	Evaluations int       `json:"evaluations"`
	StopReason  string    `json:"stopReason"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRunRecord creates a record stamped with the current time.
func NewRunRecord(id string, bestPoint []float64, bestValue float64, evaluations, iterations int, converged bool, stopReason string, config RunConfig) *RunRecord {
	return &RunRecord{
		ID:          id,
		BestPoint:   bestPoint,
		BestValue:   bestValue,
		Evaluations: evaluations,
		Iterations:  iterations,
		Converged:   converged,
		StopReason:  stopReason,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		ID:          r.ID,
		Algorithm:   r.Config.Algorithm,
		Function:    r.Config.Function,
		Dimension:   r.Config.Dimension,
		BestValue:   r.BestValue,
		Evaluations: r.Evaluations,
		StopReason:  r.StopReason,
		Timestamp:   r.Timestamp,
	}
}

// Validate checks that the record has valid data.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if len(r.BestPoint) == 0 {
		return &ValidationError{Field: "BestPoint", Reason: "cannot be empty"}
	}
	if r.Evaluations < 0 {
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.Algorithm == "" {
		return &ValidationError{Field: "Config.Algorithm", Reason: "cannot be empty"}
	}
	if r.Config.Dimension <= 0 {
		return &ValidationError{Field: "Config.Dimension", Reason: "must be positive"}
	}
	if len(r.BestPoint) != r.Config.Dimension {
		return &ValidationError{
			Field:  "BestPoint",
			Reason: fmt.Sprintf("length mismatch: expected %d coordinates", r.Config.Dimension),
		}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
