package estimate

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dlag/dlag/model"
	"github.com/cwbudde/algo-dlag/dlag/partition"
)

// WithinUpdate holds one group's within-group kernel hyperparameters
// produced by one M-step.
type WithinUpdate struct {
	Group int
	Gamma []float64
	// Nu is present only for the SpectralGaussian family, returned
	// non-negative.
	Nu []float64
}

// FitWithin locally maximizes the expected complete-data
// log-likelihood over one group's within-group kernel hyperparameters.
// Within-group latents have no cross-group signal path, so there is no
// delay parameter and the objective reduces to the GP prior term over
// the group's marginal posterior moments.
func FitWithin(p *model.Params, wv *partition.Within, cfg KernelConfig) (*WithinUpdate, error) {
	nW := len(wv.Idx)
	if nW == 0 {
		return nil, fmt.Errorf("estimate: within-group fit for group %d with no within-group latents", wv.Group)
	}
	kern := p.Within[wv.Group]

	sg := p.Family == model.SpectralGaussian
	theta0 := make([]float64, 0, 2*nW)
	for _, g := range kern.Gamma {
		theta0 = append(theta0, math.Log(g))
	}
	if sg {
		theta0 = append(theta0, kern.Nu...)
	}

	obj := func(theta []float64) float64 {
		total := 0.0
		for j := 0; j < nW; j++ {
			gamma := math.Exp(theta[j])
			nu := 0.0
			if sg {
				nu = theta[nW+j]
			}
			for _, st := range wv.Stats {
				n := float64(st.NTrials)
				for k := 0; k < st.T; k++ {
					s := model.SpectralDensity(p.Family, gamma, kern.Eta[j], nu, st.Freqs[k])
					total += n*math.Log(s) + st.Moment[k][j]/s
				}
			}
		}
		return total
	}

	best := minimize(obj, theta0, cfg.MaxIter)

	up := &WithinUpdate{Group: wv.Group, Gamma: make([]float64, nW)}
	for j := 0; j < nW; j++ {
		up.Gamma[j] = math.Exp(best[j])
	}
	if sg {
		up.Nu = make([]float64, nW)
		for j := 0; j < nW; j++ {
			up.Nu[j] = math.Abs(best[nW+j])
		}
	}
	return up, nil
}
