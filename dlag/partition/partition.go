// Package partition splits the joint spectral posterior into the
// across-group block and per-group within-group blocks.
//
// Across- and within-group kernel hyperparameters are conditionally
// independent given the posterior, so their re-estimation decomposes
// into independent problems. The split is a pure projection: it
// computes per-frequency sufficient statistics from the posterior and
// the original frequency-domain observations without mutating either.
package partition

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
	"github.com/cwbudde/algo-dlag/dlag/posterior"
)

// Stats holds, for one distinct trial length, the per-frequency
// sufficient statistics the across-group estimator needs. Delays enter
// the likelihood through the data term, so the across view keeps the
// full-latent moments together with the data cross-moment.
type Stats struct {
	// T is the trial length, Freqs its wrapped frequency grid.
	T     int
	Freqs []float64
	// NTrials counts trials of this length.
	NTrials int
	// M[k] = sum over trials of mu_k y'_k^H (totalLatent x totalY),
	// where y' is the observation with the mean offset removed at the
	// zero-frequency bin.
	M []*mat.CDense
	// P[k] = NTrials * Cov_k + sum over trials of mu_k mu_k^H
	// (totalLatent x totalLatent), the summed posterior second moment.
	P []*mat.CDense
}

// Across is the across-group view of the partitioned posterior.
type Across struct {
	// Idx lists the across-group latent columns (the leading block).
	Idx []int
	// Stats holds one entry per distinct trial length.
	Stats []*Stats
}

// WithinStats holds the per-frequency marginal posterior second
// moments of one group's within-group latents for one trial length.
// The within-group objective involves only the GP prior term, so the
// diagonal moments are all it needs.
type WithinStats struct {
	T       int
	Freqs   []float64
	NTrials int
	// Moment[k][j] is the summed posterior second moment of the j-th
	// within-group latent of this group at frequency Freqs[k].
	Moment [][]float64
}

// Within is one group's within-group view.
type Within struct {
	// Group is the observed group index.
	Group int
	// Idx lists the group's within-group latent columns in the full
	// latent layout.
	Idx []int
	// Stats holds one entry per distinct trial length.
	Stats []*WithinStats
}

// Split partitions the posterior into the across-group view and one
// within-group view per group with nonzero within-group
// dimensionality. With zero across-group latents the across view is
// nil.
func Split(p *model.Params, seqs []*model.Sequence, post map[int]*posterior.Spectral) (*Across, []*Within, error) {
	q := p.Dims.TotalY()
	x := p.Dims.TotalLatent()

	byLen := make(map[int][]*model.Sequence)
	for _, s := range seqs {
		if s.Xfft == nil {
			return nil, nil, fmt.Errorf("partition: sequence %d has no posterior mean; run inference first", s.ID)
		}
		byLen[s.T] = append(byLen[s.T], s)
	}

	lengths := model.DistinctLengths(seqs)
	full := make([]*Stats, 0, len(lengths))
	for _, t := range lengths {
		sp, ok := post[t]
		if !ok {
			return nil, nil, fmt.Errorf("partition: no spectral posterior for trial length %d", t)
		}
		group := byLen[t]

		st := &Stats{
			T:       t,
			Freqs:   sp.Freqs,
			NTrials: len(group),
			M:       make([]*mat.CDense, t),
			P:       make([]*mat.CDense, t),
		}

		sqrtT := math.Sqrt(float64(t))
		for k := 0; k < t; k++ {
			m := mat.NewCDense(x, q, nil)
			pk := mat.NewCDense(x, x, nil)

			// Start from the shared covariance scaled by the trial count.
			n := complex(float64(len(group)), 0)
			for i := 0; i < x; i++ {
				for j := 0; j < x; j++ {
					pk.Set(i, j, n*sp.Cov[k].At(i, j))
				}
			}

			for _, s := range group {
				for i := 0; i < x; i++ {
					mu := s.Xfft.At(i, k)
					for r := 0; r < q; r++ {
						y := s.Yfft.At(r, k)
						if k == 0 {
							y -= complex(sqrtT*p.D[r], 0)
						}
						m.Set(i, r, m.At(i, r)+mu*cmplx.Conj(y))
					}
					for j := 0; j < x; j++ {
						pk.Set(i, j, pk.At(i, j)+mu*cmplx.Conj(s.Xfft.At(j, k)))
					}
				}
			}
			st.M[k] = m
			st.P[k] = pk
		}
		full = append(full, st)
	}

	var across *Across
	if p.Dims.XDimAcross > 0 {
		idx := make([]int, p.Dims.XDimAcross)
		for j := range idx {
			idx[j] = j
		}
		across = &Across{Idx: idx, Stats: full}
	}

	var withins []*Within
	for g := 0; g < p.Dims.NumGroups(); g++ {
		wDim := p.Dims.XDimWithin[g]
		if wDim == 0 {
			continue
		}
		off := p.Dims.WithinOffset(g)
		idx := make([]int, wDim)
		for j := range idx {
			idx[j] = off + j
		}

		wv := &Within{Group: g, Idx: idx}
		for _, st := range full {
			ws := &WithinStats{
				T:       st.T,
				Freqs:   st.Freqs,
				NTrials: st.NTrials,
				Moment:  make([][]float64, st.T),
			}
			for k := 0; k < st.T; k++ {
				row := make([]float64, wDim)
				for j, col := range idx {
					row[j] = real(st.P[k].At(col, col))
				}
				ws.Moment[k] = row
			}
			wv.Stats = append(wv.Stats, ws)
		}
		withins = append(withins, wv)
	}

	return across, withins, nil
}
