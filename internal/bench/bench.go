// Package bench provides named test objectives with default search boxes,
// mostly drawn from gonum's optimize/functions collection.
package bench

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cwbudde/dfopt/internal/opt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize/functions"
)

// Problem is an objective together with its default search box and start
type Problem struct {
	Name  string
	Func  opt.Objective
	Lower []float64
	Upper []float64
	Guess []float64

	// Minimum is the known global minimum value, NaN if unknown
	Minimum float64
}

type problemDef struct {
	// fixed dimension, 0 for any
	dim     int
	radius  float64
	start   float64
	minimum float64
	fn      func(x []float64) float64
}

var problems = map[string]problemDef{
	"sphere": {
		radius: 10, start: 5, minimum: 0,
		fn: func(x []float64) float64 { return floats.Dot(x, x) },
	},
	"rastrigin": {
		radius: 5.12, start: 3, minimum: 0,
		fn: rastrigin,
	},
	"rosenbrock": {
		radius: 5, start: -1.2, minimum: 0,
		fn: functions.ExtendedRosenbrock{}.Func,
	},
	"beale": {
		dim: 2, radius: 4.5, start: 1, minimum: 0,
		fn: functions.Beale{}.Func,
	},
	"branin": {
		dim: 2, radius: 10, start: 0, minimum: 0.397887,
		fn: functions.BraninHoo{}.Func,
	},
	"helical": {
		dim: 3, radius: 10, start: -1, minimum: 0,
		fn: functions.HelicalValley{}.Func,
	},
	"wood": {
		dim: 4, radius: 10, start: -2, minimum: 0,
		fn: functions.Wood{}.Func,
	},
	"trigonometric": {
		radius: 1, start: 0.5, minimum: 0,
		fn: functions.Trigonometric{}.Func,
	},
}

// Names lists the registered problems in sorted order
func Names() []string {
	names := make([]string, 0, len(problems))
	for name := range problems {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup builds the named problem in dim dimensions. Problems with a fixed
// dimension ignore dim <= 0 and reject any other mismatch.
func Lookup(name string, dim int) (*Problem, error) {
	s, ok := problems[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown function %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if s.dim > 0 {
		if dim > 0 && dim != s.dim {
			return nil, fmt.Errorf("function %s is defined in %d dimensions, got %d", name, s.dim, dim)
		}
		dim = s.dim
	}
	if dim <= 0 {
		return nil, fmt.Errorf("function %s needs a positive dimension", name)
	}

	guess := make([]float64, dim)
	for i := range guess {
		guess[i] = s.start
	}
	box := opt.BoundsAround(make([]float64, dim), s.radius)
	return &Problem{
		Name:    name,
		Func:    s.fn,
		Lower:   box.Lower,
		Upper:   box.Upper,
		Guess:   guess,
		Minimum: s.minimum,
	}, nil
}

// Gap returns how far value lies above the known minimum
func (p *Problem) Gap(value float64) float64 {
	if math.IsNaN(p.Minimum) {
		return math.NaN()
	}
	return value - p.Minimum
}

func rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}
