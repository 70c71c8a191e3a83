package estimate

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
	"github.com/cwbudde/algo-dlag/dlag/posterior"
)

// ObservationUpdate holds the closed-form M-step update of the
// observation model.
type ObservationUpdate struct {
	C *mat.Dense
	D []float64
	R []float64
}

// UpdateObservation maximizes the expected complete-data
// log-likelihood over the loading matrix, mean offset, and diagonal
// noise covariance in closed form. Each group's rows are regressed on
// that group's delayed latent moments; the mean offset rides along as
// an extra regressor active at the zero-frequency bin.
//
// floor is the per-dimension minimum noise variance; any diagonal
// entry of R falling below it is clamped.
func UpdateObservation(p *model.Params, seqs []*model.Sequence, post map[int]*posterior.Spectral, floor []float64) (*ObservationUpdate, error) {
	q := p.Dims.TotalY()
	x := p.Dims.TotalLatent()
	if len(floor) != q {
		return nil, fmt.Errorf("estimate: noise floor has length %d, want %d", len(floor), q)
	}

	byLen := make(map[int][]*model.Sequence)
	for _, s := range seqs {
		if s.Xfft == nil {
			return nil, fmt.Errorf("estimate: sequence %d has no posterior mean; run inference first", s.ID)
		}
		byLen[s.T] = append(byLen[s.T], s)
	}

	out := &ObservationUpdate{
		C: mat.NewDense(q, x, nil),
		D: make([]float64, q),
		R: make([]float64, q),
	}

	totalSteps := 0
	for _, s := range seqs {
		totalSteps += s.T
	}

	for g := 0; g < p.Dims.NumGroups(); g++ {
		rows := p.Dims.YDims[g]
		rowOff := p.Dims.YOffset(g)
		cols := p.Dims.GroupLatents(g)
		m := len(cols)

		// Augmented regressor u = [z; e], z the group's delayed
		// latents, e = sqrt(T) at bin 0 and 0 elsewhere. All summed
		// cross products are real up to Hermitian-symmetry dust, so
		// real accumulators suffice.
		syu := mat.NewDense(rows, m+1, nil)
		suu := mat.NewDense(m+1, m+1, nil)
		syy := make([]float64, rows)

		zmu := make([]complex128, m)
		for _, t := range model.DistinctLengths(seqs) {
			group := byLen[t]
			sp, ok := post[t]
			if !ok {
				return nil, fmt.Errorf("estimate: no spectral posterior for trial length %d", t)
			}
			sqrtT := math.Sqrt(float64(t))

			for k := 0; k < t; k++ {
				f := sp.Freqs[k]
				phases := groupPhases(p, g, f, cols)

				// Covariance part of E[z z^H], shared by trials of this length.
				for i := 0; i < m; i++ {
					for j := 0; j < m; j++ {
						v := phases[i] * sp.Cov[k].At(cols[i], cols[j]) * cmplx.Conj(phases[j])
						suu.Set(i, j, suu.At(i, j)+float64(len(group))*real(v))
					}
				}

				for _, s := range group {
					for i := 0; i < m; i++ {
						zmu[i] = phases[i] * s.Xfft.At(cols[i], k)
					}
					for i := 0; i < m; i++ {
						for j := 0; j < m; j++ {
							suu.Set(i, j, suu.At(i, j)+real(zmu[i]*cmplx.Conj(zmu[j])))
						}
					}
					for r := 0; r < rows; r++ {
						y := s.Yfft.At(rowOff+r, k)
						re, im := real(y), imag(y)
						syy[r] += re*re + im*im
						for i := 0; i < m; i++ {
							syu.Set(r, i, syu.At(r, i)+real(y*cmplx.Conj(zmu[i])))
						}
					}
					if k == 0 {
						for i := 0; i < m; i++ {
							suu.Set(i, m, suu.At(i, m)+sqrtT*real(zmu[i]))
							suu.Set(m, i, suu.At(m, i)+sqrtT*real(zmu[i]))
						}
						suu.Set(m, m, suu.At(m, m)+float64(t))
						for r := 0; r < rows; r++ {
							syu.Set(r, m, syu.At(r, m)+sqrtT*real(s.Yfft.At(rowOff+r, 0)))
						}
					}
				}
			}
		}

		// [C_g d_g] = Syu Suu^{-1}, solved as Suu X = Syu^T.
		var sol mat.Dense
		if err := sol.Solve(suu, syu.T()); err != nil {
			return nil, fmt.Errorf("estimate: observation update for group %d is singular: %w", g, err)
		}

		for r := 0; r < rows; r++ {
			for i := 0; i < m; i++ {
				out.C.Set(rowOff+r, cols[i], sol.At(i, r))
			}
			out.D[rowOff+r] = sol.At(m, r)
		}

		// OLS residual identity: R = diag(Syy - G Syu^T) / totalSteps.
		for r := 0; r < rows; r++ {
			resid := syy[r]
			for i := 0; i <= m; i++ {
				resid -= sol.At(i, r) * syu.At(r, i)
			}
			v := resid / float64(totalSteps)
			if v < floor[rowOff+r] {
				v = floor[rowOff+r]
			}
			out.R[rowOff+r] = v
		}
	}

	return out, nil
}

// groupPhases returns the per-latent delay phase factors of group g at
// frequency f for the given latent columns; within-group latents carry
// unit phase.
func groupPhases(p *model.Params, g int, f float64, cols []int) []complex128 {
	out := make([]complex128, len(cols))
	for i, col := range cols {
		if col < p.Dims.XDimAcross {
			out[i] = cmplx.Exp(complex(0, -2*math.Pi*f*p.Delays.At(g, col)))
		} else {
			out[i] = 1
		}
	}
	return out
}
