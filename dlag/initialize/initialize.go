// Package initialize produces valid random starting parameters for a
// DLAG fit: loading and noise scaled to a per-group signal-to-noise
// target, GP hyperparameters and delays drawn uniformly within caller
// bounds, and the reference group's delay row fixed at zero.
package initialize

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
)

// Config holds the sampling bounds for random initialization.
type Config struct {
	// SNR is the per-group signal-to-noise target; a single-element
	// slice applies to all groups.
	SNR []float64
	// TauRange bounds the GP timescales in time steps.
	TauRange [2]float64
	// EtaRange bounds the GP noise variances.
	EtaRange [2]float64
	// DelayRange bounds the initial delays in time steps.
	DelayRange [2]float64
	// NuRange bounds the center frequencies (SpectralGaussian only),
	// in cycles per time step.
	NuRange [2]float64
	// Rand is the sampling source; a default source is used when nil.
	Rand *rand.Rand
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns sensible sampling bounds.
func DefaultConfig() Config {
	return Config{
		SNR:        []float64{1.0},
		TauRange:   [2]float64{5, 20},
		EtaRange:   [2]float64{1e-3, 1e-3},
		DelayRange: [2]float64{-5, 5},
		NuRange:    [2]float64{0.05, 0.25},
	}
}

// WithSNR sets the per-group signal-to-noise target.
func WithSNR(snr ...float64) Option {
	return func(cfg *Config) {
		if len(snr) > 0 {
			cfg.SNR = snr
		}
	}
}

// WithTauRange bounds the initial GP timescales.
func WithTauRange(lo, hi float64) Option {
	return func(cfg *Config) {
		if lo > 0 && hi >= lo {
			cfg.TauRange = [2]float64{lo, hi}
		}
	}
}

// WithEtaRange bounds the initial GP noise variances.
func WithEtaRange(lo, hi float64) Option {
	return func(cfg *Config) {
		if lo > 0 && hi >= lo {
			cfg.EtaRange = [2]float64{lo, hi}
		}
	}
}

// WithDelayRange bounds the initial delays.
func WithDelayRange(lo, hi float64) Option {
	return func(cfg *Config) {
		if hi >= lo {
			cfg.DelayRange = [2]float64{lo, hi}
		}
	}
}

// WithNuRange bounds the initial center frequencies.
func WithNuRange(lo, hi float64) Option {
	return func(cfg *Config) {
		if lo >= 0 && hi >= lo {
			cfg.NuRange = [2]float64{lo, hi}
		}
	}
}

// WithRand sets the sampling source.
func WithRand(r *rand.Rand) Option {
	return func(cfg *Config) {
		if r != nil {
			cfg.Rand = r
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return cfg
}

// Random returns a valid random parameter set for the given model
// shape. The reference group is group zero.
func Random(dims model.GroupDims, fam model.CovarianceFamily, opts ...Option) (*model.Params, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	cfg := ApplyOptions(opts...)
	rng := cfg.Rand

	snr := make([]float64, dims.NumGroups())
	for g := range snr {
		switch {
		case len(cfg.SNR) == 1:
			snr[g] = cfg.SNR[0]
		case len(cfg.SNR) == dims.NumGroups():
			snr[g] = cfg.SNR[g]
		default:
			return nil, fmt.Errorf("initialize: %d SNR targets for %d groups", len(cfg.SNR), dims.NumGroups())
		}
		if snr[g] <= 0 {
			return nil, fmt.Errorf("initialize: non-positive SNR target for group %d", g)
		}
	}

	q := dims.TotalY()
	x := dims.TotalLatent()

	p := &model.Params{
		Family: fam,
		Dims:   dims,
		D:      make([]float64, q),
		R:      make([]float64, q),
		C:      mat.NewDense(q, x, nil),
	}

	p.Across = randomKernel(fam, dims.XDimAcross, cfg, rng)
	p.Within = make([]model.GPParams, dims.NumGroups())
	for g := range p.Within {
		p.Within[g] = randomKernel(fam, dims.XDimWithin[g], cfg, rng)
	}

	if dims.XDimAcross > 0 {
		p.Delays = mat.NewDense(dims.NumGroups(), dims.XDimAcross, nil)
		lo, hi := cfg.DelayRange[0], cfg.DelayRange[1]
		for g := 0; g < dims.NumGroups(); g++ {
			if g == p.RefGroup {
				continue
			}
			for j := 0; j < dims.XDimAcross; j++ {
				p.Delays.Set(g, j, uniform(rng, lo, hi))
			}
		}
	}

	// Loading entries are standard normal; each group's noise level is
	// then set so that signal power over noise power hits the target.
	for g := 0; g < dims.NumGroups(); g++ {
		rowLo := dims.YOffset(g)
		cols := dims.GroupLatents(g)
		for r := rowLo; r < rowLo+dims.YDims[g]; r++ {
			power := 0.0
			for _, c := range cols {
				v := rng.NormFloat64()
				p.C.Set(r, c, v)
				power += v * v
			}
			p.R[r] = power / snr[g]
			if p.R[r] == 0 {
				p.R[r] = 1
			}
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func randomKernel(fam model.CovarianceFamily, n int, cfg Config, rng *rand.Rand) model.GPParams {
	k := model.GPParams{
		Gamma: make([]float64, n),
		Eta:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		tau := uniform(rng, cfg.TauRange[0], cfg.TauRange[1])
		k.Gamma[i] = 1 / (tau * tau)
		k.Eta[i] = uniform(rng, cfg.EtaRange[0], cfg.EtaRange[1])
	}
	if fam == model.SpectralGaussian {
		k.Nu = make([]float64, n)
		for i := 0; i < n; i++ {
			k.Nu[i] = uniform(rng, cfg.NuRange[0], cfg.NuRange[1])
		}
	}
	return k
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi == lo {
		return lo
	}
	return lo + (hi-lo)*rng.Float64()
}
