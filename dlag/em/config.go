package em

import (
	"io"
	"log"
	"math"
	"math/rand"
	"os"
)

// Config holds all options of a fitting session. It is constructed
// once per session via ApplyOptions.
type Config struct {
	// MaxIters bounds the number of EM iterations. The default is
	// effectively unbounded.
	MaxIters int
	// TolLL is the likelihood-convergence tolerance.
	TolLL float64
	// TolParam is the parameter-convergence tolerance. Zero disables
	// the parameter criterion.
	TolParam float64
	// FreqLL is the likelihood-evaluation interval in iterations.
	FreqLL int
	// FreqParam is the checkpoint interval for parameter snapshots.
	FreqParam int
	// Verbose enables progress logging. Callers running many sessions
	// in parallel keep it off; it has no effect on scheduling.
	Verbose bool
	// MaxDelayFrac bounds delay magnitudes to this fraction of the
	// shortest trial length.
	MaxDelayFrac float64
	// MinVarFrac sets the noise-variance floor as a fraction of each
	// dimension's empirical variance.
	MinVarFrac float64
	// MaxTauFrac bounds GP timescales to this fraction of the shortest
	// trial length.
	MaxTauFrac float64
	// LearnDelays enables delay optimization in the across-group fit.
	LearnDelays bool
	// LearnObs enables the closed-form observation-model update.
	LearnObs bool
	// LearnKernelParams enables the kernel hyperparameter fits.
	LearnKernelParams bool
	// LearnGPNoise requests GP noise variance learning. Not
	// implemented; accepted and ignored (known limitation).
	LearnGPNoise bool
	// HaltOnDecrease stops the session when the likelihood decreases
	// instead of warning and continuing.
	HaltOnDecrease bool
	// KernelMaxIter bounds the optimizer iterations per kernel fit.
	KernelMaxIter int
	// Logger receives progress output when Verbose is set.
	Logger *log.Logger
	// Rand is the source for domain-boundary reprojection draws.
	Rand *rand.Rand
	// Resume seeds the session from a prior run's history instead of
	// starting fresh.
	Resume *History
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxIters:          math.MaxInt32,
		TolLL:             1e-8,
		TolParam:          0,
		FreqLL:            10,
		FreqParam:         100,
		MaxDelayFrac:      0.5,
		MinVarFrac:        0.01,
		MaxTauFrac:        1.0,
		LearnDelays:       true,
		LearnObs:          true,
		LearnKernelParams: true,
		KernelMaxIter:     50,
	}
}

// WithMaxIters sets the iteration budget.
func WithMaxIters(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxIters = n
		}
	}
}

// WithTolLL sets the likelihood-convergence tolerance.
func WithTolLL(tol float64) Option {
	return func(cfg *Config) {
		if tol > 0 {
			cfg.TolLL = tol
		}
	}
}

// WithTolParam sets the parameter-convergence tolerance; zero disables
// the criterion.
func WithTolParam(tol float64) Option {
	return func(cfg *Config) {
		if tol >= 0 {
			cfg.TolParam = tol
		}
	}
}

// WithFreqLL sets the likelihood-evaluation interval.
func WithFreqLL(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.FreqLL = n
		}
	}
}

// WithFreqParam sets the checkpoint interval.
func WithFreqParam(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.FreqParam = n
		}
	}
}

// WithVerbose enables progress logging.
func WithVerbose(v bool) Option {
	return func(cfg *Config) { cfg.Verbose = v }
}

// WithMaxDelayFrac sets the delay bound fraction.
func WithMaxDelayFrac(frac float64) Option {
	return func(cfg *Config) {
		if frac > 0 {
			cfg.MaxDelayFrac = frac
		}
	}
}

// WithMinVarFrac sets the noise-variance floor fraction.
func WithMinVarFrac(frac float64) Option {
	return func(cfg *Config) {
		if frac >= 0 {
			cfg.MinVarFrac = frac
		}
	}
}

// WithMaxTauFrac sets the timescale bound fraction.
func WithMaxTauFrac(frac float64) Option {
	return func(cfg *Config) {
		if frac > 0 {
			cfg.MaxTauFrac = frac
		}
	}
}

// WithLearnDelays toggles delay learning.
func WithLearnDelays(v bool) Option {
	return func(cfg *Config) { cfg.LearnDelays = v }
}

// WithLearnObs toggles the observation-model update.
func WithLearnObs(v bool) Option {
	return func(cfg *Config) { cfg.LearnObs = v }
}

// WithLearnKernelParams toggles the kernel hyperparameter fits.
func WithLearnKernelParams(v bool) Option {
	return func(cfg *Config) { cfg.LearnKernelParams = v }
}

// WithLearnGPNoise records a request for GP noise learning. The update
// is not implemented and the request has no effect beyond being
// accepted.
func WithLearnGPNoise(v bool) Option {
	return func(cfg *Config) { cfg.LearnGPNoise = v }
}

// WithHaltOnDecrease switches the likelihood-decrease policy from
// warn-and-continue to halt.
func WithHaltOnDecrease(v bool) Option {
	return func(cfg *Config) { cfg.HaltOnDecrease = v }
}

// WithKernelMaxIter bounds the optimizer iterations per kernel fit.
func WithKernelMaxIter(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.KernelMaxIter = n
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithRand sets the random source for boundary reprojection.
func WithRand(r *rand.Rand) Option {
	return func(cfg *Config) {
		if r != nil {
			cfg.Rand = r
		}
	}
}

// WithHistory resumes the session from a prior run's history.
func WithHistory(h *History) Option {
	return func(cfg *Config) { cfg.Resume = h }
}

// ApplyOptions applies zero or more options to the default config and
// fills the remaining runtime fields.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.Logger == nil {
		if cfg.Verbose {
			cfg.Logger = log.New(os.Stderr, "dlag: ", log.LstdFlags)
		} else {
			cfg.Logger = log.New(io.Discard, "", 0)
		}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return cfg
}
