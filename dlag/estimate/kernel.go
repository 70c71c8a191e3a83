package estimate

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// KernelConfig controls the gradient-based kernel fits.
type KernelConfig struct {
	// LearnDelays enables joint optimization of the inter-group delays
	// in the across-group fit. When false the delay matrix is held
	// fixed and only kernel hyperparameters move.
	LearnDelays bool
	// LearnGPNoise requests GP noise variance learning. The update is
	// not implemented; the flag is accepted for interface compatibility
	// and the noise variances are left untouched (see the package
	// comment).
	LearnGPNoise bool
	// MaxIter bounds the optimizer's major iterations.
	MaxIter int
}

// DefaultKernelConfig returns the defaults used by the EM driver.
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		LearnDelays: true,
		MaxIter:     50,
	}
}

// minimize runs a local L-BFGS descent of fn from theta0. The gradient
// is estimated by finite differences. The returned point never has a
// higher objective value than theta0: if the optimizer fails or ends
// above the start, the start is returned, so an M-step can only
// improve the expected log-likelihood.
func minimize(fn func([]float64) float64, theta0 []float64, maxIter int) []float64 {
	if maxIter <= 0 {
		maxIter = DefaultKernelConfig().MaxIter
	}
	f0 := fn(theta0)

	problem := optimize.Problem{
		Func: fn,
		// L-BFGS requires a gradient; estimate it by finite differences.
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, fn, x, nil)
		},
	}
	settings := &optimize.Settings{MajorIterations: maxIter}

	result, err := optimize.Minimize(problem, theta0, settings, &optimize.LBFGS{})
	if err != nil && result == nil {
		return theta0
	}
	if result == nil || math.IsNaN(result.F) || result.F >= f0 {
		return theta0
	}
	return result.X
}
