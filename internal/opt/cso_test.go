package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSOOddSwarmSizeIsMadeEven(t *testing.T) {
	cfg := DefaultCSOConfig()
	cfg.SwarmSize = 21
	cso := NewCSO(cfg)
	assert.Equal(t, 22, cso.SwarmSize())

	cfg.SwarmSize = 30
	assert.Equal(t, 30, NewCSO(cfg).SwarmSize())
}

func TestCSOBestNeverWorseThanInitialSwarm(t *testing.T) {
	cfg := DefaultCSOConfig()
	cfg.SwarmSize = 21
	cfg.MaxEvaluations = 3000
	cfg.Rand = NewRand(4)
	cso := NewCSO(cfg)

	lower := []float64{-5, -5, -5}
	upper := []float64{5, 5, 5}
	require.NoError(t, cso.Initialize(sphere, lower, upper, []float64{4, 4, 4}))
	assert.Equal(t, 22, cso.Evaluations())

	_, initial := cso.Best()
	prev := initial
	for !cso.Done() {
		cso.Iterate()
		_, best := cso.Best()
		require.LessOrEqual(t, best, prev)
		prev = best
	}
	assert.LessOrEqual(t, prev, initial)
	assert.Less(t, prev, 1.0)
}

func TestCSOGenerationCostsHalfASwarm(t *testing.T) {
	cfg := DefaultCSOConfig()
	cfg.SwarmSize = 10
	cfg.Rand = NewRand(12)
	cso := NewCSO(cfg)

	require.NoError(t, cso.Initialize(sphere, nil, nil, []float64{1, 1}))
	for gen := 1; gen <= 5; gen++ {
		cso.Iterate()
		assert.Equal(t, 10+5*gen, cso.Evaluations())
	}
}

func TestCSOCorrectInBoxKeepsParticlesInside(t *testing.T) {
	for _, ring := range []bool{false, true} {
		cfg := DefaultCSOConfig()
		cfg.SwarmSize = 16
		cfg.MaxEvaluations = 2000
		cfg.CorrectInBox = true
		cfg.RingTopology = ring
		cfg.Rand = NewRand(21)
		cso := NewCSO(cfg)

		lower := []float64{-1, 0}
		upper := []float64{1, 2}
		// minimum lies outside the box, so particles are pushed into the walls
		f := boundsChecker(t, lower, upper, func(x []float64) float64 {
			return sphere([]float64{x[0] - 3, x[1] + 3})
		})
		sol, err := cso.Optimize(f, lower, upper, []float64{0, 1})
		require.NoError(t, err)

		assert.InDelta(t, 1, sol.Point[0], 0.05, "ring=%v", ring)
		assert.InDelta(t, 0, sol.Point[1], 0.05, "ring=%v", ring)
	}
}

func TestCSOConvergesOnSphere(t *testing.T) {
	cfg := DefaultCSOConfig()
	cfg.SwarmSize = 20
	cfg.MaxEvaluations = 200000
	cfg.Tol = 1e-4
	cfg.SigmaTol = 1e-3
	cfg.CorrectInBox = true
	cfg.Rand = NewRand(99)
	cso := NewCSO(cfg)

	sol, err := cso.Optimize(sphere, []float64{-3, -3}, []float64{3, 3}, []float64{2, -2})
	require.NoError(t, err)

	assert.True(t, sol.Converged)
	assert.Equal(t, StateConverged, cso.State())
	assert.Less(t, sol.Evaluations, cfg.MaxEvaluations)
	assert.Less(t, sol.Value, sphere([]float64{2, -2}))
}

func TestCSOIterateAfterTerminationIsNoop(t *testing.T) {
	cfg := DefaultCSOConfig()
	cfg.MaxEvaluations = 100
	cfg.Rand = NewRand(6)
	cso := NewCSO(cfg)

	_, err := cso.Optimize(sphere, nil, nil, []float64{1, -1, 0})
	require.NoError(t, err)
	evals := cso.Evaluations()
	_, fx := cso.Best()

	cso.Iterate()
	_, fx2 := cso.Best()
	assert.Equal(t, evals, cso.Evaluations())
	assert.Equal(t, fx, fx2)
}

func TestCSOInitializeRejectsInvalidArguments(t *testing.T) {
	cfg := DefaultCSOConfig()
	cfg.SwarmSize = 0
	err := NewCSO(cfg).Initialize(sphere, nil, nil, []float64{0})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	cfg = DefaultCSOConfig()
	cfg.SigmaTol = -1
	err = NewCSO(cfg).Initialize(sphere, nil, nil, []float64{0})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	cfg = DefaultCSOConfig()
	err = NewCSO(cfg).Initialize(sphere, []float64{1}, []float64{0}, []float64{0.5})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCSOBestBeforeInitialize(t *testing.T) {
	x, fx := NewCSO(DefaultCSOConfig()).Best()
	assert.Nil(t, x)
	assert.True(t, math.IsInf(fx, 1))
}

func TestPhiForSwarmSize(t *testing.T) {
	tests := []struct {
		m    int
		want float64
	}{
		{m: 40, want: 0},
		{m: 100, want: 0},
		{m: 150, want: 0.05},
		{m: 400, want: 0.15},
		{m: 600, want: 0.15},
		{m: 1000, want: 0.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, PhiForSwarmSize(tt.m), 1e-12, "m=%d", tt.m)
	}
}
