package em

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-dlag/dlag/model"
)

// enforceBounds applies the domain-boundary corrections of the driver:
// delay magnitudes at or beyond maxDelayFrac*minT are replaced by an
// independent uniform draw on [0,1) time steps, and any gamma whose
// timescale would exceed maxTauFrac*minT is clamped to the
// corresponding floor. Applied at initialization and after every
// kernel update, before the values feed the next iteration.
//
// Returns the number of corrected entries.
func enforceBounds(p *model.Params, cfg *Config, minT int, rng *rand.Rand) int {
	corrected := 0

	if p.Delays != nil {
		limit := cfg.MaxDelayFrac * float64(minT)
		r, c := p.Delays.Dims()
		for g := 0; g < r; g++ {
			if g == p.RefGroup {
				continue
			}
			for j := 0; j < c; j++ {
				if math.Abs(p.Delays.At(g, j)) >= limit {
					p.Delays.Set(g, j, rng.Float64())
					corrected++
				}
			}
		}
	}

	maxTau := cfg.MaxTauFrac * float64(minT)
	gammaFloor := 1 / (maxTau * maxTau)
	corrected += clampGamma(p.Across.Gamma, gammaFloor)
	for g := range p.Within {
		corrected += clampGamma(p.Within[g].Gamma, gammaFloor)
	}
	return corrected
}

func clampGamma(gamma []float64, floor float64) int {
	n := 0
	for i, g := range gamma {
		if g < floor {
			gamma[i] = floor
			n++
		}
	}
	return n
}
