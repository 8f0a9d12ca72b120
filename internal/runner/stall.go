package runner

import (
	"log/slog"
	"math"
)

// StallConfig defines when a run counts as stalled
type StallConfig struct {
	// Enabled controls whether stall detection is active
	Enabled bool

	// Patience is the number of consecutive generations without a
	// significant improvement before the run is stopped
	Patience int

	// Threshold is the minimum relative improvement of the best value,
	// (last - best) / |last|, that resets the patience counter
	Threshold float64
}

// DefaultStallConfig returns sensible defaults for stall detection
func DefaultStallConfig() StallConfig {
	return StallConfig{
		Enabled:   true,
		Patience:  2000,
		Threshold: 1e-9,
	}
}

// DisabledStallConfig returns a config with stall detection disabled
func DisabledStallConfig() StallConfig {
	return StallConfig{Enabled: false}
}

// StallTracker follows the best value across generations and reports when
// progress has stopped
type StallTracker struct {
	config          StallConfig
	updates         int
	best            float64
	lastSignificant float64
	staleCount      int
}

// NewStallTracker creates a tracker with the given config
func NewStallTracker(config StallConfig) *StallTracker {
	return &StallTracker{
		config:          config,
		best:            math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records the best value after a generation and returns true once
// the run has stalled
func (s *StallTracker) Update(value float64) bool {
	if !s.config.Enabled {
		return false
	}

	s.updates++
	if value < s.best {
		s.best = value
	}
	if s.updates == 1 {
		s.lastSignificant = value
		return false
	}

	if s.significant(value) {
		s.lastSignificant = value
		s.staleCount = 0
		return false
	}

	s.staleCount++
	if s.staleCount >= s.config.Patience {
		slog.Info("Stall detected, stopping early",
			"stale_count", s.staleCount,
			"patience", s.config.Patience,
			"best", s.best,
		)
		return true
	}
	return false
}

// significant reports whether value improves on the last significant value
// by at least the relative threshold. A zero reference only accepts values
// below zero since no relative measure exists there.
func (s *StallTracker) significant(value float64) bool {
	delta := s.lastSignificant - value
	if delta <= 0 {
		return false
	}
	if math.IsInf(s.lastSignificant, 1) {
		return true
	}
	scale := math.Abs(s.lastSignificant)
	if scale == 0 {
		return value < 0
	}
	return delta/scale >= s.config.Threshold
}

// Best returns the best value seen so far
func (s *StallTracker) Best() float64 {
	return s.best
}

// StaleCount returns the current number of generations without improvement
func (s *StallTracker) StaleCount() int {
	return s.staleCount
}

// Reset clears the tracker's state
func (s *StallTracker) Reset() {
	s.updates = 0
	s.best = math.Inf(1)
	s.lastSignificant = math.Inf(1)
	s.staleCount = 0
}
