package runner

import (
	"fmt"
	"strings"

	"github.com/cwbudde/dfopt/internal/opt"
)

// Algorithms lists the names accepted by Settings.Algorithm
var Algorithms = []string{"crs", "cso", "esch", "mayfly"}

// Settings collects the tunables shared by all algorithms. A zero PopSize
// selects each algorithm's own default.
type Settings struct {
	Algorithm      string  `json:"algorithm"`
	MaxEvaluations int     `json:"maxEvaluations"`
	PopSize        int     `json:"popSize,omitempty"`
	MaxMutations   int     `json:"maxMutations,omitempty"`
	TolX           float64 `json:"tolX"`
	TolF           float64 `json:"tolF"`
	Seed           uint64  `json:"seed"`
}

// DefaultSettings runs CRS with its default configuration
func DefaultSettings() Settings {
	crs := opt.DefaultCRSConfig()
	return Settings{
		Algorithm:      "crs",
		MaxEvaluations: crs.MaxEvaluations,
		MaxMutations:   crs.MaxMutations,
		TolX:           crs.TolX,
		TolF:           crs.TolF,
	}
}

// IsOneShot reports whether the algorithm only supports a single Optimize
// call and cannot be driven by Run
func (s Settings) IsOneShot() bool {
	return strings.EqualFold(s.Algorithm, "mayfly")
}

// NewLifecycle builds the stepwise optimizer named by s.Algorithm.
func NewLifecycle(s Settings) (opt.Lifecycle, error) {
	switch strings.ToLower(s.Algorithm) {
	case "crs":
		cfg := opt.DefaultCRSConfig()
		cfg.TolX = s.TolX
		cfg.TolF = s.TolF
		cfg.MaxEvaluations = s.MaxEvaluations
		cfg.PopulationSize = s.PopSize
		cfg.MaxMutations = s.MaxMutations
		cfg.Rand = opt.NewRand(s.Seed)
		return opt.NewCRS(cfg), nil

	case "cso":
		cfg := opt.DefaultCSOConfig()
		cfg.Tol = s.TolF
		cfg.SigmaTol = s.TolX
		cfg.MaxEvaluations = s.MaxEvaluations
		if s.PopSize > 0 {
			cfg.SwarmSize = s.PopSize
		}
		cfg.Rand = opt.NewRand(s.Seed)
		return opt.NewCSO(cfg), nil

	case "esch":
		cfg := opt.DefaultESCHConfig()
		cfg.MaxEvaluations = s.MaxEvaluations
		if s.PopSize > 0 {
			cfg.Parents = s.PopSize
			cfg.Offspring = s.PopSize * 3 / 2
		}
		cfg.Rand = opt.NewRand(s.Seed)
		return opt.NewESCH(cfg), nil

	case "mayfly":
		return nil, fmt.Errorf("%w: mayfly runs in one shot and has no stepwise lifecycle", opt.ErrInvalidArgument)

	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q (available: %s)",
			opt.ErrInvalidArgument, s.Algorithm, strings.Join(Algorithms, ", "))
	}
}

// NewMayfly maps the shared settings onto the mayfly library. Its budget is
// counted in iterations, so MaxEvaluations becomes the number of whole
// iterations that fit after the initial populations. A budget smaller than
// the initial populations plus one iteration still runs one iteration.
func NewMayfly(s Settings) *opt.MayflyAdapter {
	cfg := opt.DefaultMayflyConfig()
	if s.PopSize > 0 {
		cfg.PopSize = s.PopSize
	}
	cfg.MaxIterations = cfg.IterationsWithin(s.MaxEvaluations)
	cfg.Seed = int64(s.Seed >> 1)
	return opt.NewMayfly(cfg)
}
