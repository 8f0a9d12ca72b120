package opt

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// CRSConfig holds the parameters of the controlled random search
type CRSConfig struct {
	// TolX stops the run when the best point moves less than this (Euclidean)
	TolX float64

	// TolF stops the run when the best value improves by less than this,
	// absolutely or relative to the new best value
	TolF float64

	// MaxEvaluations is the objective evaluation budget
	MaxEvaluations int

	// PopulationSize is the number of points; 0 selects 10*(n+1)
	PopulationSize int

	// MaxMutations is the number of local mutation retries before a fresh
	// random trial is drawn
	MaxMutations int

	// Rand is the random source; nil draws a randomly seeded one
	Rand *rand.Rand
}

// DefaultCRSConfig returns the settings used when nothing is tuned
func DefaultCRSConfig() CRSConfig {
	return CRSConfig{
		TolX:           1e-6,
		TolF:           1e-6,
		MaxEvaluations: 10000,
		PopulationSize: 0,
		MaxMutations:   1,
	}
}

// CRS is the controlled random search with local mutation (CRS2-LM) of
// Kaelo and Ali, following the NLopt formulation.
//
// Each iteration reflects the best point through a random simplex drawn from
// the population and replaces the worst point with the trial once a trial
// beats it.
type CRS struct {
	config CRSConfig
	rng    *rand.Rand

	f       Objective
	bounds  Bounds
	n       int
	pop     *Population
	sampler *ReservoirSampler
	trial   []float64
	evals   int

	x     []float64
	minF  float64
	state State
}

// NewCRS creates a controlled random search optimizer
func NewCRS(config CRSConfig) *CRS {
	return &CRS{
		config: config,
		rng:    ownRand(config.Rand),
		minF:   math.Inf(1),
		state:  StateCreated,
	}
}

// Initialize validates the problem and evaluates the initial population: the
// guess in slot 0 plus npts-1 uniform random points inside the bounds.
func (c *CRS) Initialize(f Objective, lower, upper, guess []float64) error {
	if err := validateTolerances(map[string]float64{"TolX": c.config.TolX, "TolF": c.config.TolF}); err != nil {
		return err
	}
	if c.config.MaxEvaluations <= 0 {
		return fmt.Errorf("%w: MaxEvaluations must be positive", ErrInvalidArgument)
	}
	if c.config.PopulationSize < 0 || c.config.MaxMutations < 0 {
		return fmt.Errorf("%w: PopulationSize and MaxMutations must be non-negative", ErrInvalidArgument)
	}
	bounds, err := newBounds(lower, upper, guess)
	if err != nil {
		return err
	}
	n := len(guess)

	npts := c.config.PopulationSize
	if npts == 0 {
		npts = 10 * (n + 1)
	}
	// the population must hold a simplex
	if npts < n+1 {
		return fmt.Errorf("%w: population of %d cannot hold a simplex in %d dimensions",
			ErrInvalidArgument, npts, n)
	}

	c.f = f
	c.bounds = bounds
	c.n = n
	c.evals = 0
	c.pop = NewPopulation(npts, n)
	c.sampler = NewReservoirSampler(c.rng)
	c.trial = make([]float64, n)
	c.x = make([]float64, n)

	copy(c.trial, guess)
	bounds.Clamp(c.trial)
	c.pop.Set(0, c.trial, c.eval(c.trial))
	for i := 1; i < npts; i++ {
		bounds.Sample(c.rng, c.trial)
		c.pop.Set(i, c.trial, c.eval(c.trial))
	}

	best := c.pop.Min()
	c.minF = best.Value
	copy(c.x, best.Point)
	c.state = StateInitialized

	if c.evals >= c.config.MaxEvaluations {
		c.state = StateExhausted
		slog.Debug("CRS budget exhausted by initial population", "evaluations", c.evals, "population", npts)
	}
	return nil
}

// Iterate produces one accepted offspring, then tests for convergence
func (c *CRS) Iterate() {
	if c.state == StateCreated || c.state.Terminal() {
		return
	}
	c.state = StateIterating

	c.trialStep()

	best := c.pop.Min()
	if best.Value < c.minF {
		df := math.Abs(best.Value - c.minF)
		if df <= c.config.TolF || df <= c.config.TolF*math.Abs(best.Value) {
			c.state = StateConverged
		}
		if floats.Distance(best.Point, c.x, 2) <= c.config.TolX {
			c.state = StateConverged
		}
		c.minF = best.Value
		copy(c.x, best.Point)
	}
	if c.evals >= c.config.MaxEvaluations {
		c.state = StateExhausted
	}

	if c.state.Terminal() {
		slog.Debug("CRS finished", "state", c.state, "evaluations", c.evals, "best", c.minF)
	}
}

// trialStep keeps proposing trials until one beats the worst point or the
// budget runs out. An accepted trial replaces the worst point.
func (c *CRS) trialStep() {
	best := c.pop.Min()
	worst := c.pop.Max()
	mutations := c.config.MaxMutations

	c.randomTrial(best)
	for {
		fx := c.eval(c.trial)
		if fx < worst.Value {
			c.pop.Replace(worst, c.trial, fx)
			return
		}
		if c.evals >= c.config.MaxEvaluations {
			return
		}
		if mutations > 0 {
			c.mutate(best)
			mutations--
		} else {
			c.randomTrial(best)
			mutations = c.config.MaxMutations
		}
	}
}

// randomTrial reflects one random population point through the centroid of
// the best point and n-1 further random points:
//
//	trial = 2/n * (best + sum(others)) - pivot
func (c *CRS) randomTrial(best *Candidate) {
	n := c.n
	copy(c.trial, best.Point)
	c.sampler.Sample(c.pop.Cap(), n, best.Slot, func(i int, pivot bool) {
		if pivot {
			floats.AddScaled(c.trial, -0.5*float64(n), c.pop.Slot(i).Point)
		} else {
			floats.Add(c.trial, c.pop.Slot(i).Point)
		}
	})
	floats.Scale(2.0/float64(n), c.trial)
	c.bounds.Clamp(c.trial)
}

// mutate pulls the trial towards (and past) the best point by a random
// per-coordinate weight
func (c *CRS) mutate(best *Candidate) {
	for i := range c.trial {
		w := c.rng.Float64()
		c.trial[i] = c.bounds.ClampAt(i, best.Point[i]*(1+w)-w*c.trial[i])
	}
}

func (c *CRS) eval(x []float64) float64 {
	c.evals++
	return c.f(x)
}

// Optimize runs Initialize and Iterate until a terminal state
func (c *CRS) Optimize(f Objective, lower, upper, guess []float64) (*Solution, error) {
	return drive(c, f, lower, upper, guess)
}

// Done reports whether the run has converged or exhausted its budget
func (c *CRS) Done() bool {
	return c.state.Terminal()
}

// Converged reports whether a tolerance test ended the run
func (c *CRS) Converged() bool {
	return c.state == StateConverged
}

// State returns the current lifecycle state
func (c *CRS) State() State {
	return c.state
}

// Best returns a copy of the best point and its value
func (c *CRS) Best() ([]float64, float64) {
	return append([]float64(nil), c.x...), c.minF
}

// Evaluations returns the number of objective calls so far
func (c *CRS) Evaluations() int {
	return c.evals
}

// Population exposes the ordered population for inspection
func (c *CRS) Population() *Population {
	return c.pop
}
