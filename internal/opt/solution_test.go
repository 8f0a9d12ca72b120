package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolutionString(t *testing.T) {
	sol := &Solution{
		Point:       []float64{1, -0.5, 0.25},
		Value:       1.3125,
		Evaluations: 321,
		Converged:   true,
	}

	want := "x*: [1.000000 -0.500000 0.250000]\n" +
		"calls to f: 321\n" +
		"calls to df/dx: 0\n" +
		"converged: true"
	assert.Equal(t, want, sol.String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateConverged.Terminal())
	assert.False(t, StateIterating.Terminal())
}

func TestBoundsAround(t *testing.T) {
	b := BoundsAround([]float64{1, -2}, DefaultRadius)
	assert.Equal(t, []float64{-3, -6}, b.Lower)
	assert.Equal(t, []float64{5, 2}, b.Upper)
	assert.Equal(t, 2, b.Dim())

	x := []float64{10, -10}
	b.Clamp(x)
	assert.Equal(t, []float64{5, -6}, x)
	assert.True(t, b.Contains(x))
}
