package opt

import (
	"fmt"
	"math/rand/v2"

	"golang.org/x/exp/constraints"
)

// DefaultRadius is the half-width of the box derived around a guess when the
// caller supplies no bounds.
const DefaultRadius = 4.0

// Bounds defines per-dimension parameter ranges
type Bounds struct {
	Lower []float64
	Upper []float64
}

// BoundsAround returns the box guess[i] +/- radius in every dimension
func BoundsAround(guess []float64, radius float64) Bounds {
	b := Bounds{
		Lower: make([]float64, len(guess)),
		Upper: make([]float64, len(guess)),
	}
	for i, g := range guess {
		b.Lower[i] = g - radius
		b.Upper[i] = g + radius
	}
	return b
}

// newBounds validates the caller's bounds against the guess. Both bounds nil
// means "derive from guess". The returned slices are private copies.
func newBounds(lower, upper, guess []float64) (Bounds, error) {
	n := len(guess)
	if n == 0 {
		return Bounds{}, fmt.Errorf("%w: empty starting point", ErrInvalidArgument)
	}
	if lower == nil && upper == nil {
		return BoundsAround(guess, DefaultRadius), nil
	}
	if len(lower) != n || len(upper) != n {
		return Bounds{}, fmt.Errorf("%w: bounds have length %d/%d, expected %d",
			ErrInvalidArgument, len(lower), len(upper), n)
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return Bounds{}, fmt.Errorf("%w: lower[%d]=%g exceeds upper[%d]=%g",
				ErrInvalidArgument, i, lower[i], i, upper[i])
		}
	}
	return Bounds{
		Lower: append([]float64(nil), lower...),
		Upper: append([]float64(nil), upper...),
	}, nil
}

// Dim returns the dimensionality of the box
func (b Bounds) Dim() int {
	return len(b.Lower)
}

// Width returns upper[i]-lower[i]
func (b Bounds) Width(i int) float64 {
	return b.Upper[i] - b.Lower[i]
}

// Clamp moves every coordinate of x into the box, in place
func (b Bounds) Clamp(x []float64) {
	for i := range x {
		x[i] = clamp(x[i], b.Lower[i], b.Upper[i])
	}
}

// ClampAt clamps a single coordinate
func (b Bounds) ClampAt(i int, v float64) float64 {
	return clamp(v, b.Lower[i], b.Upper[i])
}

// Contains reports whether every coordinate of x lies in the box
func (b Bounds) Contains(x []float64) bool {
	for i, v := range x {
		if v < b.Lower[i] || v > b.Upper[i] {
			return false
		}
	}
	return true
}

// Sample fills x with a uniformly random point inside the box
func (b Bounds) Sample(rng *rand.Rand, x []float64) {
	for i := range x {
		x[i] = b.Lower[i] + b.Width(i)*rng.Float64()
	}
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}

// validateTolerances rejects negative tolerances
func validateTolerances(tols map[string]float64) error {
	for name, tol := range tols {
		if tol < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidArgument, name, tol)
		}
	}
	return nil
}
