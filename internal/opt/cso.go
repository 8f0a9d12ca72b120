package opt

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// machEps is the unit roundoff used to scale the fitness spread test
const machEps = 0x1p-52

// CSOConfig holds the parameters of the competitive swarm optimizer
type CSOConfig struct {
	// Tol bounds the spread between best and worst fitness at convergence
	Tol float64

	// SigmaTol bounds the standard deviation of particle distances from the
	// origin at convergence
	SigmaTol float64

	// SwarmSize is rounded up to the next even number
	SwarmSize int

	// MaxEvaluations is the objective evaluation budget
	MaxEvaluations int

	// Phi weights the attraction towards the neighborhood mean.
	// Negative selects PhiForSwarmSize.
	Phi float64

	// RingTopology averages each particle with its two ring neighbors instead
	// of the whole swarm
	RingTopology bool

	// CorrectInBox clamps positions into the bounds after each move
	CorrectInBox bool

	// Rand is the random source; nil draws a randomly seeded one
	Rand *rand.Rand
}

// DefaultCSOConfig returns the settings used when nothing is tuned
func DefaultCSOConfig() CSOConfig {
	return CSOConfig{
		Tol:            1e-6,
		SigmaTol:       1e-6,
		SwarmSize:      40,
		MaxEvaluations: 10000,
		Phi:            -1,
	}
}

// PhiForSwarmSize picks the social factor from the swarm size, taking the
// midpoint of the ranges recommended by Cheng and Jin (2014), eq. 25-26.
func PhiForSwarmSize(m int) float64 {
	switch {
	case m <= 100:
		return 0
	case m <= 200:
		return 0.5 * (0 + 0.1)
	case m <= 600:
		return 0.5 * (0.1 + 0.2)
	default:
		return 0.5 * (0.1 + 0.3)
	}
}

type particle struct {
	pos  []float64
	vel  []float64
	mean []float64
	fit  float64
}

// CSO is the competitive swarm optimizer of Cheng and Jin (2014).
//
// Particles are paired at random each generation; only the loser of each
// pair moves, learning from the winner, so a generation costs half a swarm
// of evaluations.
type CSO struct {
	config CSOConfig
	rng    *rand.Rand
	size   int
	phi    float64

	f      Objective
	bounds Bounds
	d      int
	swarm  []particle
	order  []int
	mean   []float64
	radii  []float64
	evals  int

	best, worst int
	state       State
}

// NewCSO creates a competitive swarm optimizer. An odd swarm size is
// incremented so that every particle has a competitor.
func NewCSO(config CSOConfig) *CSO {
	size := config.SwarmSize
	if size&1 == 1 {
		size++
	}
	phi := config.Phi
	if phi < 0 {
		phi = PhiForSwarmSize(size)
	}
	return &CSO{
		config: config,
		rng:    ownRand(config.Rand),
		size:   size,
		phi:    phi,
		state:  StateCreated,
	}
}

// SwarmSize returns the (even) number of particles
func (c *CSO) SwarmSize() int {
	return c.size
}

// Initialize scatters the swarm uniformly inside the bounds with zero
// velocity. The guess becomes the first particle.
func (c *CSO) Initialize(f Objective, lower, upper, guess []float64) error {
	if err := validateTolerances(map[string]float64{"Tol": c.config.Tol, "SigmaTol": c.config.SigmaTol}); err != nil {
		return err
	}
	if c.size < 2 {
		return fmt.Errorf("%w: swarm needs at least 2 particles, got %d", ErrInvalidArgument, c.size)
	}
	if c.config.MaxEvaluations <= 0 {
		return fmt.Errorf("%w: MaxEvaluations must be positive", ErrInvalidArgument)
	}
	bounds, err := newBounds(lower, upper, guess)
	if err != nil {
		return err
	}

	c.f = f
	c.bounds = bounds
	c.d = len(guess)
	c.evals = 0
	c.swarm = make([]particle, c.size)
	c.order = make([]int, c.size)
	c.radii = make([]float64, c.size)
	c.mean = make([]float64, c.d)

	for i := range c.swarm {
		p := &c.swarm[i]
		p.pos = make([]float64, c.d)
		// zero initial velocity keeps early moves inside the box
		p.vel = make([]float64, c.d)
		if i == 0 {
			copy(p.pos, guess)
			bounds.Clamp(p.pos)
		} else {
			bounds.Sample(c.rng, p.pos)
		}
		p.fit = c.eval(p.pos)
		c.order[i] = i
	}

	for i := range c.swarm {
		if c.config.RingTopology {
			c.swarm[i].mean = make([]float64, c.d)
		} else {
			c.swarm[i].mean = c.mean
		}
	}
	c.updateMeans()
	c.rank()

	c.state = StateInitialized
	if c.evals >= c.config.MaxEvaluations {
		c.state = StateExhausted
	}
	return nil
}

// Iterate runs one generation of pairwise competitions
func (c *CSO) Iterate() {
	if c.state == StateCreated || c.state.Terminal() {
		return
	}
	c.state = StateIterating

	c.rng.Shuffle(len(c.order), func(i, j int) {
		c.order[i], c.order[j] = c.order[j], c.order[i]
	})
	half := c.size / 2
	for i := 0; i < half; i++ {
		c.compete(c.order[i], c.order[i+half])
	}

	c.updateMeans()
	c.rank()

	if c.converged() {
		c.state = StateConverged
	}
	if c.evals >= c.config.MaxEvaluations {
		c.state = StateExhausted
	}
	if c.state.Terminal() {
		slog.Debug("CSO finished", "state", c.state, "evaluations", c.evals, "best", c.swarm[c.best].fit)
	}
}

// compete moves the loser of the pair (a, b) towards the winner and the
// neighborhood mean, then re-evaluates the loser only
func (c *CSO) compete(a, b int) {
	loser, winner := &c.swarm[b], &c.swarm[a]
	if c.swarm[a].fit > c.swarm[b].fit {
		loser, winner = &c.swarm[a], &c.swarm[b]
	}

	for i := 0; i < c.d; i++ {
		r1 := c.rng.Float64()
		r2 := c.rng.Float64()
		r3 := c.rng.Float64()
		v := r1*loser.vel[i] +
			r2*(winner.pos[i]-loser.pos[i]) +
			c.phi*r3*(loser.mean[i]-loser.pos[i])

		maxv := 0.2 * c.bounds.Width(i)
		loser.vel[i] = clamp(v, -maxv, maxv)
		loser.pos[i] += loser.vel[i]
	}
	if c.config.CorrectInBox {
		c.bounds.Clamp(loser.pos)
	}

	loser.fit = c.eval(loser.pos)
}

// updateMeans recomputes the neighborhood means from current positions
func (c *CSO) updateMeans() {
	m := c.size
	if c.config.RingTopology {
		for i := range c.swarm {
			left := c.swarm[(i-1+m)%m].pos
			right := c.swarm[(i+1)%m].pos
			p := &c.swarm[i]
			for k := range p.mean {
				p.mean[k] = (left[k] + p.pos[k] + right[k]) / 3
			}
		}
		return
	}
	for k := range c.mean {
		c.mean[k] = 0
	}
	for i := range c.swarm {
		floats.AddScaled(c.mean, 1/float64(m), c.swarm[i].pos)
	}
}

// rank finds the best and worst particles
func (c *CSO) rank() {
	c.best, c.worst = 0, 0
	for i := range c.swarm {
		if c.swarm[i].fit <= c.swarm[c.best].fit {
			c.best = i
		}
		if c.swarm[i].fit >= c.swarm[c.worst].fit {
			c.worst = i
		}
	}
}

// converged applies the two-stage test: the fitness spread must be within
// tolerance, then the spread of particle radii must be too
func (c *CSO) converged() bool {
	fb, fw := c.swarm[c.best].fit, c.swarm[c.worst].fit
	if math.Abs(fb-fw) > c.config.Tol+machEps*math.Abs(0.5*(fb+fw)) {
		return false
	}
	for i := range c.swarm {
		c.radii[i] = floats.Norm(c.swarm[i].pos, 2)
	}
	return stat.StdDev(c.radii, nil) <= c.config.SigmaTol
}

func (c *CSO) eval(x []float64) float64 {
	c.evals++
	return c.f(x)
}

// Optimize runs Initialize and Iterate until a terminal state
func (c *CSO) Optimize(f Objective, lower, upper, guess []float64) (*Solution, error) {
	return drive(c, f, lower, upper, guess)
}

// Done reports whether the run has converged or exhausted its budget
func (c *CSO) Done() bool {
	return c.state.Terminal()
}

// Converged reports whether the swarm collapsed within tolerance
func (c *CSO) Converged() bool {
	return c.state == StateConverged
}

// State returns the current lifecycle state
func (c *CSO) State() State {
	return c.state
}

// Best returns a copy of the best particle's position and its fitness
func (c *CSO) Best() ([]float64, float64) {
	if c.swarm == nil {
		return nil, math.Inf(1)
	}
	p := c.swarm[c.best]
	return append([]float64(nil), p.pos...), p.fit
}

// Evaluations returns the number of objective calls so far
func (c *CSO) Evaluations() int {
	return c.evals
}
