package opt

import (
	"fmt"
	"strings"
)

// Solution is the outcome of a complete optimization run
type Solution struct {
	// Point is the best point found (a copy owned by the caller)
	Point []float64

	// Value is the objective value at Point
	Value float64

	// Evaluations counts calls to the objective
	Evaluations int

	// DerivativeEvaluations is always zero for derivative-free methods
	DerivativeEvaluations int

	// Converged is true when a convergence test stopped the run,
	// false when the evaluation budget ran out
	Converged bool
}

func (s *Solution) String() string {
	var b strings.Builder
	b.WriteString("x*: [")
	for i, v := range s.Point {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.6f", v)
	}
	b.WriteString("]\n")
	fmt.Fprintf(&b, "calls to f: %d\n", s.Evaluations)
	fmt.Fprintf(&b, "calls to df/dx: %d\n", s.DerivativeEvaluations)
	fmt.Fprintf(&b, "converged: %t", s.Converged)
	return b.String()
}
