package model

import (
	"math"
	"testing"
)

func TestSpectralDensity_RadialBasisShape(t *testing.T) {
	gamma, eta := 0.04, 1e-3

	// Even in f, positive, and peaked at zero frequency.
	for _, f := range []float64{0, 0.05, 0.1, 0.25, 0.49} {
		sPos := SpectralDensity(RadialBasis, gamma, eta, 0, f)
		sNeg := SpectralDensity(RadialBasis, gamma, eta, 0, -f)
		if sPos <= 0 {
			t.Errorf("density at f=%g is non-positive: %g", f, sPos)
		}
		if !almostEqual(sPos, sNeg, 1e-14) {
			t.Errorf("density not even at f=%g: %g vs %g", f, sPos, sNeg)
		}
	}
	peak := SpectralDensity(RadialBasis, gamma, eta, 0, 0)
	tail := SpectralDensity(RadialBasis, gamma, eta, 0, 0.4)
	if peak <= tail {
		t.Errorf("density not peaked at zero: s(0)=%g, s(0.4)=%g", peak, tail)
	}
}

func TestSpectralDensity_RadialBasisUnitVariance(t *testing.T) {
	// The kernel has unit marginal variance, so the density integrates
	// to ~1 over one period when the bump fits well inside it.
	gamma, eta := 0.25, 1e-3
	n := 4096
	sum := 0.0
	for k := 0; k < n; k++ {
		f := float64(k)/float64(n) - 0.5
		sum += SpectralDensity(RadialBasis, gamma, eta, 0, f) / float64(n)
	}
	if !almostEqual(sum, 1, 1e-3) {
		t.Errorf("density integral: got %g, want ~1", sum)
	}
}

func TestSpectralDensity_SpectralGaussianCenter(t *testing.T) {
	gamma, eta, nu := 0.04, 1e-3, 0.15

	// Even in f and peaked near the center frequency.
	for _, f := range []float64{0.05, 0.15, 0.3} {
		sPos := SpectralDensity(SpectralGaussian, gamma, eta, nu, f)
		sNeg := SpectralDensity(SpectralGaussian, gamma, eta, nu, -f)
		if !almostEqual(sPos, sNeg, 1e-14) {
			t.Errorf("density not even at f=%g: %g vs %g", f, sPos, sNeg)
		}
	}
	atCenter := SpectralDensity(SpectralGaussian, gamma, eta, nu, nu)
	atZero := SpectralDensity(SpectralGaussian, gamma, eta, nu, 0)
	atEdge := SpectralDensity(SpectralGaussian, gamma, eta, nu, 0.45)
	if atCenter <= atZero || atCenter <= atEdge {
		t.Errorf("density not peaked at nu: s(nu)=%g, s(0)=%g, s(0.45)=%g", atCenter, atZero, atEdge)
	}
}

func TestSpectralDensity_EtaFloor(t *testing.T) {
	// Far in the tail the density approaches the GP noise level.
	gamma, eta := 100.0, 0.05
	s := SpectralDensity(RadialBasis, gamma, eta, 0, 0.5)
	if s < eta {
		t.Errorf("tail density %g below GP noise level %g", s, eta)
	}
}

func TestSpectralDensity_UnknownFamily(t *testing.T) {
	if !math.IsNaN(SpectralDensity(CovarianceFamily(99), 1, 0, 0, 0)) {
		t.Error("unknown family did not return NaN")
	}
}

func TestLatentDensity_Dispatch(t *testing.T) {
	p := testParams(SpectralGaussian)

	want0 := SpectralDensity(SpectralGaussian, 0.01, 1e-3, 0.1, 0.1)
	want1 := SpectralDensity(SpectralGaussian, 0.04, 1e-3, 0.2, 0.1)
	if got := p.LatentDensity(0, 0.1); !almostEqual(got, want0, 1e-14) {
		t.Errorf("LatentDensity(0): got %g, want %g", got, want0)
	}
	if got := p.LatentDensity(1, 0.1); !almostEqual(got, want1, 1e-14) {
		t.Errorf("LatentDensity(1): got %g, want %g", got, want1)
	}
}
