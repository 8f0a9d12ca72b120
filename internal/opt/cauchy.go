package opt

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// TruncatedCauchy draws Cauchy variates restricted to a symmetric window
// around Location and folds them onto [0, 1]; Sample then maps that onto a
// parameter range.
type TruncatedCauchy struct {
	Location float64
	Scale    float64
	Window   float64
}

// DefaultCauchy is the standard Cauchy truncated to [-5, 5]
var DefaultCauchy = TruncatedCauchy{Location: 0, Scale: 1, Window: 10}

// Validate rejects parameters for which Unit would never accept a draw.
func (tc TruncatedCauchy) Validate() error {
	if !(tc.Scale > 0) || math.IsInf(tc.Scale, 0) {
		return fmt.Errorf("%w: Cauchy scale must be positive and finite, got %g", ErrInvalidArgument, tc.Scale)
	}
	if !(tc.Window > 0) || math.IsInf(tc.Window, 0) {
		return fmt.Errorf("%w: Cauchy window must be positive and finite, got %g", ErrInvalidArgument, tc.Window)
	}
	if math.IsNaN(tc.Location) || math.IsInf(tc.Location, 0) {
		return fmt.Errorf("%w: Cauchy location must be finite, got %g", ErrInvalidArgument, tc.Location)
	}
	return nil
}

// Unit returns a value in [0, 1]. Negative draws are reflected onto the
// lower half, non-negative ones shifted onto the upper half, so mass
// concentrates near both ends and the middle of the unit interval.
func (tc TruncatedCauchy) Unit(rng *rand.Rand) float64 {
	lo := tc.Location - 0.5*tc.Window
	hi := tc.Location + 0.5*tc.Window
	var c float64
	for {
		u := rng.Float64()
		c = tc.Scale*math.Tan((u-0.5)*math.Pi) + tc.Location
		if c >= lo && c <= hi {
			break
		}
	}
	if c < 0 {
		c = -c
	} else {
		c += 0.5 * tc.Window
	}
	// an off-centre location can push the upper half past 1
	return min(c/tc.Window, 1)
}

// Sample maps a Unit draw onto [lower, upper]
func (tc TruncatedCauchy) Sample(rng *rand.Rand, lower, upper float64) float64 {
	return lower + (upper-lower)*tc.Unit(rng)
}
