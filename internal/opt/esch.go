package opt

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
)

// ESCHConfig holds the parameters of the evolution strategy
type ESCHConfig struct {
	// MaxEvaluations is the objective evaluation budget and the only stop
	// criterion
	MaxEvaluations int

	// Parents is the number of individuals surviving each generation
	Parents int

	// Offspring is the number of individuals bred each generation
	Offspring int

	// Cauchy generates initial genes and mutations
	Cauchy TruncatedCauchy

	// Rand is the random source; nil draws a randomly seeded one
	Rand *rand.Rand
}

// DefaultESCHConfig returns the settings used when nothing is tuned
func DefaultESCHConfig() ESCHConfig {
	return ESCHConfig{
		MaxEvaluations: 10000,
		Parents:        40,
		Offspring:      60,
		Cauchy:         DefaultCauchy,
	}
}

type individual struct {
	x   []float64
	fit float64
}

// ESCH is an elitist (mu+lambda) evolution strategy with single-point
// crossover and Cauchy mutation, after the ESCH algorithm of da Silva Santos
// et al. as distributed with NLopt.
type ESCH struct {
	config ESCHConfig
	rng    *rand.Rand

	f         Objective
	bounds    Bounds
	d         int
	parents   []*individual
	offspring []*individual
	pool      []*individual
	evals     int
	state     State
}

// NewESCH creates an evolution strategy optimizer
func NewESCH(config ESCHConfig) *ESCH {
	if config.Cauchy == (TruncatedCauchy{}) {
		config.Cauchy = DefaultCauchy
	}
	return &ESCH{
		config: config,
		rng:    ownRand(config.Rand),
		state:  StateCreated,
	}
}

// Initialize draws parents and offspring gene by gene from the Cauchy
// generator, places the guess as the first parent and evaluates the parents.
func (e *ESCH) Initialize(f Objective, lower, upper, guess []float64) error {
	np, no := e.config.Parents, e.config.Offspring
	if np < 1 || no < 1 {
		return fmt.Errorf("%w: need at least one parent and one offspring, got %d/%d",
			ErrInvalidArgument, np, no)
	}
	if e.config.MaxEvaluations <= 0 {
		return fmt.Errorf("%w: MaxEvaluations must be positive", ErrInvalidArgument)
	}
	if err := e.config.Cauchy.Validate(); err != nil {
		return err
	}
	bounds, err := newBounds(lower, upper, guess)
	if err != nil {
		return err
	}

	e.f = f
	e.bounds = bounds
	e.d = len(guess)
	e.evals = 0
	e.parents = e.spawn(np)
	e.offspring = e.spawn(no)
	e.pool = make([]*individual, np+no)

	copy(e.parents[0].x, guess)
	bounds.Clamp(e.parents[0].x)
	for _, p := range e.parents {
		p.fit = e.eval(p.x)
	}
	slices.SortStableFunc(e.parents, byFitness)

	e.state = StateInitialized
	if e.evals >= e.config.MaxEvaluations {
		e.state = StateExhausted
	}
	return nil
}

func (e *ESCH) spawn(count int) []*individual {
	out := make([]*individual, count)
	for i := range out {
		ind := &individual{x: make([]float64, e.d), fit: math.Inf(1)}
		for j := range ind.x {
			ind.x[j] = e.gene(j)
		}
		out[i] = ind
	}
	return out
}

// gene draws coordinate j from the Cauchy generator, kept inside the bounds
func (e *ESCH) gene(j int) float64 {
	return e.bounds.ClampAt(j, e.config.Cauchy.Sample(e.rng, e.bounds.Lower[j], e.bounds.Upper[j]))
}

// Iterate breeds, mutates and evaluates a generation of offspring, then keeps
// the best individuals of parents and offspring combined
func (e *ESCH) Iterate() {
	if e.state == StateCreated || e.state.Terminal() {
		return
	}
	e.state = StateIterating
	np, no := len(e.parents), len(e.offspring)

	// single-point crossover
	for _, child := range e.offspring {
		p1 := e.parents[e.rng.IntN(np)]
		p2 := e.parents[e.rng.IntN(np)]
		cut := e.rng.IntN(e.d)
		copy(child.x[:cut], p1.x[:cut])
		copy(child.x[cut:], p2.x[cut:])
	}

	// mutate about a tenth of all offspring genes
	mutations := max(int(float64(no*e.d)*0.1), 1)
	for range mutations {
		j := e.rng.IntN(e.d)
		e.offspring[e.rng.IntN(no)].x[j] = e.gene(j)
	}

	for _, child := range e.offspring {
		child.fit = e.eval(child.x)
	}

	// truncation selection over the merged pool
	copy(e.pool, e.parents)
	copy(e.pool[np:], e.offspring)
	slices.SortStableFunc(e.pool, byFitness)
	copy(e.parents, e.pool[:np])
	copy(e.offspring, e.pool[np:])

	if e.evals >= e.config.MaxEvaluations {
		e.state = StateExhausted
		slog.Debug("ESCH finished", "evaluations", e.evals, "best", e.parents[0].fit)
	}
}

func byFitness(a, b *individual) int {
	return cmp.Compare(a.fit, b.fit)
}

func (e *ESCH) eval(x []float64) float64 {
	e.evals++
	return e.f(x)
}

// Optimize runs Initialize and Iterate until the budget is spent
func (e *ESCH) Optimize(f Objective, lower, upper, guess []float64) (*Solution, error) {
	return drive(e, f, lower, upper, guess)
}

// Done reports whether the evaluation budget is spent
func (e *ESCH) Done() bool {
	return e.state.Terminal()
}

// Converged is always false: the strategy has no convergence test
func (e *ESCH) Converged() bool {
	return false
}

// State returns the current lifecycle state
func (e *ESCH) State() State {
	return e.state
}

// Best returns a copy of the fittest parent and its fitness
func (e *ESCH) Best() ([]float64, float64) {
	if len(e.parents) == 0 {
		return nil, math.Inf(1)
	}
	p := e.parents[0]
	return append([]float64(nil), p.x...), p.fit
}

// Evaluations returns the number of objective calls so far
func (e *ESCH) Evaluations() int {
	return e.evals
}
