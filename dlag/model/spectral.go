package model

import "math"

// SpectralDensity evaluates the discrete-time spectral density of a
// unit-variance GP kernel at frequency f (cycles per time step,
// typically wrapped to [-1/2, 1/2)).
//
// RadialBasis:
//
//	s(f) = (1-eta) * sqrt(2*pi/gamma) * exp(-2*pi^2*f^2/gamma) + eta
//
// SpectralGaussian splits the Gaussian bump symmetrically around the
// center frequency +/- nu:
//
//	s(f) = (1-eta)/2 * sqrt(2*pi/gamma) *
//	       [exp(-2*pi^2*(f-nu)^2/gamma) + exp(-2*pi^2*(f+nu)^2/gamma)] + eta
//
// Both densities are even in f and strictly positive for eta > 0.
func SpectralDensity(fam CovarianceFamily, gamma, eta, nu, f float64) float64 {
	scale := math.Sqrt(2 * math.Pi / gamma)
	switch fam {
	case RadialBasis:
		return (1-eta)*scale*math.Exp(-2*math.Pi*math.Pi*f*f/gamma) + eta
	case SpectralGaussian:
		lo := f - nu
		hi := f + nu
		bump := math.Exp(-2*math.Pi*math.Pi*lo*lo/gamma) + math.Exp(-2*math.Pi*math.Pi*hi*hi/gamma)
		return (1-eta)/2*scale*bump + eta
	default:
		return math.NaN()
	}
}

// LatentDensity evaluates the spectral density of the latent at full
// column index j (across block first, then per-group within blocks).
func (p *Params) LatentDensity(j int, f float64) float64 {
	gamma, eta, nu := p.KernelAt(j)
	return SpectralDensity(p.Family, gamma, eta, nu, f)
}
