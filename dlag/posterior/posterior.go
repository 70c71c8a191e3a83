package posterior

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/freq"
	"github.com/cwbudde/algo-dlag/dlag/model"
	"github.com/cwbudde/algo-dlag/internal/cmat"
)

// Spectral holds the per-frequency latent posterior covariance for one
// distinct trial length. Under the stationary-GP model the posterior
// covariance depends on the trial only through its length, so one
// Spectral value is shared by reference across all trials of equal T.
type Spectral struct {
	// T is the trial length this entry applies to.
	T int
	// Freqs is the wrapped frequency grid, length T.
	Freqs []float64
	// NTrials counts the trials of this length.
	NTrials int
	// Cov[k] is the totalLatent x totalLatent posterior covariance of
	// the latent spectral coefficients at frequency Freqs[k].
	Cov []*mat.CDense
}

// Result is the output of one E-step call.
type Result struct {
	// ByLength maps each distinct trial length to its shared spectral
	// posterior.
	ByLength map[int]*Spectral
	// LL is the Whittle log-likelihood of the data under the current
	// parameters; valid only when LLValid is set.
	LL      float64
	LLValid bool
}

// Infer runs the exact E-step: it fills each sequence's posterior-mean
// latent trajectory (frequency and time domain) and returns the
// spectral posterior grouped by distinct trial length. When computeLL
// is set the Whittle log-likelihood is evaluated as well; this costs a
// determinant and an extra quadratic form per frequency and trial, so
// callers skip it on most iterations.
//
// Infer never mutates the parameters.
func Infer(p *model.Params, seqs []*model.Sequence, computeLL bool) (*Result, error) {
	if err := model.ValidateSequences(seqs, p.Dims); err != nil {
		return nil, err
	}

	q := p.Dims.TotalY()
	x := p.Dims.TotalLatent()

	w := make([]float64, q) // R^{-1} diagonal
	logDetR := 0.0
	for i, r := range p.R {
		w[i] = 1 / r
		logDetR += math.Log(r)
	}

	res := &Result{ByLength: make(map[int]*Spectral)}

	byLen := make(map[int][]*model.Sequence)
	for _, s := range seqs {
		byLen[s.T] = append(byLen[s.T], s)
	}

	for _, t := range model.DistinctLengths(seqs) {
		group := byLen[t]
		sp := &Spectral{
			T:       t,
			Freqs:   freq.Grid(t),
			NTrials: len(group),
			Cov:     make([]*mat.CDense, t),
		}
		res.ByLength[t] = sp

		for _, s := range group {
			s.Xfft = mat.NewCDense(x, t, nil)
		}

		sDiag := make([]float64, x)
		b := make([]complex128, x)
		mu := make([]complex128, x)
		yk := make([]complex128, q)
		wck := mat.NewCDense(q, x, nil)

		for k := 0; k < t; k++ {
			f := sp.Freqs[k]
			logDetS := 0.0
			for j := 0; j < x; j++ {
				sDiag[j] = p.LatentDensity(j, f)
				logDetS += math.Log(sDiag[j])
			}

			ck := model.PhaseLoading(p, p.Delays, f)

			// A = S^{-1} + Ck^H R^{-1} Ck; the posterior covariance is
			// its inverse.
			for r := 0; r < q; r++ {
				for j := 0; j < x; j++ {
					wck.Set(r, j, complex(w[r], 0)*ck.At(r, j))
				}
			}
			a := mat.NewCDense(x, x, nil)
			if err := cmat.MulHermTo(a, ck, wck); err != nil {
				return nil, fmt.Errorf("posterior: E-step failed at T=%d, bin %d: %w", t, k, err)
			}
			for j := 0; j < x; j++ {
				a.Set(j, j, a.At(j, j)+complex(1/sDiag[j], 0))
			}

			var ch cmat.Cholesky
			if err := ch.Factorize(a); err != nil {
				return nil, fmt.Errorf("posterior: E-step failed at T=%d, bin %d: %w", t, k, err)
			}

			cov := mat.NewCDense(x, x, nil)
			if err := ch.InverseTo(cov); err != nil {
				return nil, fmt.Errorf("posterior: E-step failed at T=%d, bin %d: %w", t, k, err)
			}
			sp.Cov[k] = cov

			for _, s := range group {
				for r := 0; r < q; r++ {
					yk[r] = s.Yfft.At(r, k)
					if k == 0 {
						yk[r] -= complex(math.Sqrt(float64(t))*p.D[r], 0)
					}
				}

				// b = Ck^H R^{-1} y', mu = A^{-1} b.
				quadY := 0.0
				for j := 0; j < x; j++ {
					var acc complex128
					for r := 0; r < q; r++ {
						acc += cmplx.Conj(ck.At(r, j)) * complex(w[r], 0) * yk[r]
					}
					b[j] = acc
				}
				if computeLL {
					for r := 0; r < q; r++ {
						re, im := real(yk[r]), imag(yk[r])
						quadY += w[r] * (re*re + im*im)
					}
				}
				if err := ch.SolveVecTo(mu, b); err != nil {
					return nil, fmt.Errorf("posterior: E-step failed at T=%d, bin %d: %w", t, k, err)
				}
				for j := 0; j < x; j++ {
					s.Xfft.Set(j, k, mu[j])
				}

				if computeLL {
					// log|V| = log|R| + log|S| + log|A| by the matrix
					// determinant lemma; quad = y'^H R^{-1} y' - b^H mu.
					var bm complex128
					for j := 0; j < x; j++ {
						bm += cmplx.Conj(b[j]) * mu[j]
					}
					quad := quadY - real(bm)
					logDetV := logDetR + logDetS + ch.LogDet()
					res.LL -= 0.5 * (float64(q)*math.Log(2*math.Pi) + logDetV + quad)
				}
			}
		}

		for _, s := range group {
			xt, err := freq.InverseTransform(s.Xfft)
			if err != nil {
				return nil, fmt.Errorf("posterior: trajectory transform failed for sequence %d: %w", s.ID, err)
			}
			s.X = xt
		}
	}

	res.LLValid = computeLL
	return res, nil
}
