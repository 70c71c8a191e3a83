package estimate

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
	"github.com/cwbudde/algo-dlag/dlag/partition"
)

// AcrossUpdate holds the across-group kernel hyperparameters and delay
// matrix produced by one M-step. Range enforcement on the returned
// values is the caller's responsibility.
type AcrossUpdate struct {
	Gamma []float64
	// Nu is present only for the SpectralGaussian family. Center
	// frequencies are returned non-negative: the sign is not
	// identifiable, so the absolute value is taken.
	Nu     []float64
	Delays *mat.Dense
}

// FitAcross locally maximizes the expected complete-data
// log-likelihood over the across-group kernel hyperparameters and,
// when cfg.LearnDelays is set, the inter-group delays. The reference
// group's delay row stays zero.
//
// The objective separates: timescales and center frequencies enter
// only through the GP prior term, delays only through the data term,
// so the data term is skipped entirely when delays are held fixed.
func FitAcross(p *model.Params, av *partition.Across, cfg KernelConfig) (*AcrossUpdate, error) {
	nA := len(av.Idx)
	if nA == 0 {
		return nil, fmt.Errorf("estimate: across-group fit with no across-group latents")
	}

	nGroups := p.Dims.NumGroups()
	theta0 := make([]float64, 0, 2*nA+(nGroups-1)*nA)
	for _, g := range p.Across.Gamma {
		theta0 = append(theta0, math.Log(g))
	}
	sg := p.Family == model.SpectralGaussian
	if sg {
		theta0 = append(theta0, p.Across.Nu...)
	}
	if cfg.LearnDelays {
		for g := 0; g < nGroups; g++ {
			if g == p.RefGroup {
				continue
			}
			for j := 0; j < nA; j++ {
				theta0 = append(theta0, p.Delays.At(g, j))
			}
		}
	}

	w := make([]float64, len(p.R))
	for i, r := range p.R {
		w[i] = 1 / r
	}

	unpackDelays := func(theta []float64) *mat.Dense {
		d := mat.DenseCopyOf(p.Delays)
		if !cfg.LearnDelays {
			return d
		}
		off := nA
		if sg {
			off = 2 * nA
		}
		for g := 0; g < nGroups; g++ {
			if g == p.RefGroup {
				continue
			}
			for j := 0; j < nA; j++ {
				d.Set(g, j, theta[off])
				off++
			}
		}
		return d
	}

	obj := func(theta []float64) float64 {
		total := 0.0
		for j := 0; j < nA; j++ {
			gamma := math.Exp(theta[j])
			nu := 0.0
			if sg {
				nu = theta[nA+j]
			}
			col := av.Idx[j]
			for _, st := range av.Stats {
				n := float64(st.NTrials)
				for k := 0; k < st.T; k++ {
					s := model.SpectralDensity(p.Family, gamma, p.Across.Eta[j], nu, st.Freqs[k])
					total += n*math.Log(s) + real(st.P[k].At(col, col))/s
				}
			}
		}
		if !cfg.LearnDelays {
			return total
		}

		delays := unpackDelays(theta)
		for _, st := range av.Stats {
			for k := 0; k < st.T; k++ {
				ck := model.PhaseLoading(p, delays, st.Freqs[k])
				total += dataTerm(ck, st.M[k], st.P[k], w)
			}
		}
		return total
	}

	best := minimize(obj, theta0, cfg.MaxIter)

	up := &AcrossUpdate{Gamma: make([]float64, nA)}
	for j := 0; j < nA; j++ {
		up.Gamma[j] = math.Exp(best[j])
	}
	if sg {
		up.Nu = make([]float64, nA)
		for j := 0; j < nA; j++ {
			up.Nu[j] = math.Abs(best[nA+j])
		}
	}
	up.Delays = unpackDelays(best)
	return up, nil
}

// dataTerm evaluates -2 Re tr(Ck M W) + Re tr(W Ck P Ck^H), the
// delay-dependent part of the expected negative log-likelihood at one
// frequency. W is the diagonal of R^{-1}.
func dataTerm(ck, m, pk *mat.CDense, w []float64) float64 {
	q, x := ck.Dims()
	total := 0.0
	row := make([]complex128, x)
	for r := 0; r < q; r++ {
		var cross complex128
		for j := 0; j < x; j++ {
			cross += ck.At(r, j) * m.At(j, r)
		}
		// row = Ck[r,:] P
		for l := 0; l < x; l++ {
			var acc complex128
			for j := 0; j < x; j++ {
				acc += ck.At(r, j) * pk.At(j, l)
			}
			row[l] = acc
		}
		var quad complex128
		for l := 0; l < x; l++ {
			quad += row[l] * cmplx.Conj(ck.At(r, l))
		}
		total += w[r] * (-2*real(cross) + real(quad))
	}
	return total
}
