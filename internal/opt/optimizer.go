package opt

// Objective maps a point to the scalar value being minimized.
// Evaluations are assumed expensive; every algorithm budgets against them.
type Objective func(x []float64) float64

// Optimizer defines a one-shot optimization algorithm
type Optimizer interface {
	// Optimize minimizes f inside [lower, upper] starting from guess.
	// Nil bounds are derived as guess +/- DefaultRadius.
	Optimize(f Objective, lower, upper, guess []float64) (*Solution, error)
}

// Lifecycle is the three-phase contract shared by the population based
// optimizers: Initialize once, then Iterate until Done.
type Lifecycle interface {
	Optimizer

	// Initialize validates the problem, builds the initial population and
	// evaluates it. It must be called before Iterate.
	Initialize(f Objective, lower, upper, guess []float64) error

	// Iterate performs one generation. It is a no-op once Done reports true.
	Iterate()

	// Done reports whether a terminal state has been reached
	Done() bool

	// Converged reports whether termination was caused by a convergence test
	// rather than by the evaluation budget
	Converged() bool

	// Best returns the best point found so far and its value
	Best() ([]float64, float64)

	// Evaluations returns the number of objective calls consumed so far
	Evaluations() int
}

// State is the lifecycle state of an optimizer instance
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateIterating
	StateConverged
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further iterations will run
func (s State) Terminal() bool {
	return s == StateConverged || s == StateExhausted
}

// drive runs a Lifecycle to termination and packages the result
func drive(l Lifecycle, f Objective, lower, upper, guess []float64) (*Solution, error) {
	if err := l.Initialize(f, lower, upper, guess); err != nil {
		return nil, err
	}
	for !l.Done() {
		l.Iterate()
	}
	x, fx := l.Best()
	return &Solution{
		Point:       x,
		Value:       fx,
		Evaluations: l.Evaluations(),
		Converged:   l.Converged(),
	}, nil
}
