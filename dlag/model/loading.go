package model

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// PhaseLoading builds the effective complex loading matrix at
// frequency f: the real loading C with each group's across-group
// columns rotated by that group's delay, exp(-2*pi*i*f*D[g,j]).
// Within-group columns carry no delay.
//
// delays may differ from p.Delays so that candidate delay matrices can
// be evaluated during optimization; pass p.Delays for the current
// parameters. With zero across-group latents delays is ignored and may
// be nil.
func PhaseLoading(p *Params, delays *mat.Dense, f float64) *mat.CDense {
	q := p.Dims.TotalY()
	x := p.Dims.TotalLatent()
	ck := mat.NewCDense(q, x, nil)

	for g := 0; g < p.Dims.NumGroups(); g++ {
		rowLo := p.Dims.YOffset(g)
		rowHi := rowLo + p.Dims.YDims[g]
		for j := 0; j < p.Dims.XDimAcross; j++ {
			phase := cmplx.Exp(complex(0, -2*math.Pi*f*delays.At(g, j)))
			for r := rowLo; r < rowHi; r++ {
				ck.Set(r, j, complex(p.C.At(r, j), 0)*phase)
			}
		}
	}
	for j := p.Dims.XDimAcross; j < x; j++ {
		for r := 0; r < q; r++ {
			v := p.C.At(r, j)
			if v != 0 {
				ck.Set(r, j, complex(v, 0))
			}
		}
	}
	return ck
}
