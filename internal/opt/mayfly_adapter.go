package opt

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyConfig holds the parameters passed through to the mayfly library
type MayflyConfig struct {
	MaxIterations int
	PopSize       int
	Seed          int64
}

// DefaultMayflyConfig returns the settings used when nothing is tuned
func DefaultMayflyConfig() MayflyConfig {
	return MayflyConfig{
		MaxIterations: 100,
		PopSize:       20,
		Seed:          42,
	}
}

// offspring returns the number of children bred per iteration. Parents are
// paired by rank, so it never exceeds the population.
func (c MayflyConfig) offspring() int {
	return c.PopSize / 2 * 2
}

// mutants returns the number of mutated children per iteration, 5% of the
// population.
func (c MayflyConfig) mutants() int {
	return int(math.Round(0.05 * float64(c.PopSize)))
}

// InitialEvaluations is the cost of seeding the male and female populations.
func (c MayflyConfig) InitialEvaluations() int {
	return 2 * c.PopSize
}

// IterationEvaluations is the number of objective calls one iteration makes:
// every male and female moves, then the offspring and mutants are scored.
func (c MayflyConfig) IterationEvaluations() int {
	return 2*c.PopSize + c.offspring() + c.mutants()
}

// IterationsWithin returns the most iterations that fit into budget
// evaluations, and at least one.
func (c MayflyConfig) IterationsWithin(budget int) int {
	if c.PopSize < 1 {
		return 1
	}
	return max((budget-c.InitialEvaluations())/c.IterationEvaluations(), 1)
}

// MayflyAdapter wraps the external Mayfly metaheuristic as a one-shot
// Optimizer. It runs to completion in a single call and has no Lifecycle.
type MayflyAdapter struct {
	config MayflyConfig
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(config MayflyConfig) *MayflyAdapter {
	return &MayflyAdapter{config: config}
}

// Optimize runs the external optimizer. The library only supports a single
// scalar box, so the bounds are widened to the smallest box containing every
// dimension and the result is clamped back into the caller's bounds. The
// guess only fixes the dimension; the library does not accept a start point.
func (m *MayflyAdapter) Optimize(f Objective, lower, upper, guess []float64) (*Solution, error) {
	bounds, err := newBounds(lower, upper, guess)
	if err != nil {
		return nil, err
	}
	if m.config.PopSize < 1 || m.config.MaxIterations < 1 {
		return nil, fmt.Errorf("%w: mayfly needs positive PopSize and MaxIterations", ErrInvalidArgument)
	}

	lo, hi := bounds.Lower[0], bounds.Upper[0]
	for i := 1; i < bounds.Dim(); i++ {
		lo = min(lo, bounds.Lower[i])
		hi = max(hi, bounds.Upper[i])
	}

	evals := 0
	x := make([]float64, bounds.Dim())
	objective := func(p []float64) float64 {
		evals++
		copy(x, p)
		bounds.Clamp(x)
		return f(x)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = objective
	config.ProblemSize = bounds.Dim()
	config.MaxIterations = m.config.MaxIterations
	// both sexes share one size; mating pairs males[k] with females[k]
	config.NPop = m.config.PopSize
	config.NPopF = m.config.PopSize
	config.NC = m.config.offspring()
	config.NM = m.config.mutants()
	config.LowerBound = lo
	config.UpperBound = hi
	config.Rand = rand.New(rand.NewSource(m.config.Seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	best := append([]float64(nil), result.GlobalBest.Position...)
	bounds.Clamp(best)
	return &Solution{
		Point:       best,
		Value:       result.GlobalBest.Cost,
		Evaluations: evals,
	}, nil
}
