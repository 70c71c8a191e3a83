// Package testutil generates deterministic synthetic data for tests:
// stationary latent trajectories sampled at a model's spectral
// densities and observed trials drawn through its observation model.
package testutil

import (
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/freq"
	"github.com/cwbudde/algo-dlag/dlag/model"
)

// SampleLatents draws one set of latent trajectories (totalLatent x
// tLen) by sampling Hermitian-symmetric spectral coefficients at the
// model's per-latent densities and transforming back to time.
func SampleLatents(rng *rand.Rand, p *model.Params, tLen int) *mat.Dense {
	x := p.Dims.TotalLatent()
	grid := freq.Grid(tLen)
	xf := mat.NewCDense(x, tLen, nil)
	for j := 0; j < x; j++ {
		xf.Set(j, 0, complex(rng.NormFloat64()*math.Sqrt(p.LatentDensity(j, grid[0])), 0))
		for k := 1; k <= tLen/2; k++ {
			s := p.LatentDensity(j, grid[k])
			if k == tLen-k {
				xf.Set(j, k, complex(rng.NormFloat64()*math.Sqrt(s), 0))
				continue
			}
			a := complex(rng.NormFloat64(), rng.NormFloat64()) * complex(math.Sqrt(s/2), 0)
			xf.Set(j, k, a)
			xf.Set(j, tLen-k, cmplx.Conj(a))
		}
	}
	xt, err := freq.InverseTransform(xf)
	if err != nil {
		panic(err)
	}
	return xt
}

// Trial generates one observed trial from the model: latents sampled
// by SampleLatents pushed through the loading, offset, and diagonal
// noise.
func Trial(rng *rand.Rand, p *model.Params, id, tLen int) *model.Sequence {
	xt := SampleLatents(rng, p, tLen)
	q := p.Dims.TotalY()
	x := p.Dims.TotalLatent()
	y := mat.NewDense(q, tLen, nil)
	for r := 0; r < q; r++ {
		for k := 0; k < tLen; k++ {
			v := p.D[r] + math.Sqrt(p.R[r])*rng.NormFloat64()
			for j := 0; j < x; j++ {
				v += p.C.At(r, j) * xt.At(j, k)
			}
			y.Set(r, k, v)
		}
	}
	s, err := freq.NewSequence(id, y)
	if err != nil {
		panic(err)
	}
	return s
}

// Trials generates n equal-length trials from a fixed seed.
func Trials(seed int64, p *model.Params, n, tLen int) []*model.Sequence {
	rng := rand.New(rand.NewSource(seed))
	seqs := make([]*model.Sequence, n)
	for i := range seqs {
		seqs[i] = Trial(rng, p, i, tLen)
	}
	return seqs
}
