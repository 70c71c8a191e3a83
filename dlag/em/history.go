package em

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
)

// Snapshot records the delay matrix and GP hyperparameters at one
// checkpoint iteration.
type Snapshot struct {
	// Iter is the iteration the snapshot was taken at.
	Iter int
	// Delays is a copy of the delay matrix; nil with zero across-group
	// latents.
	Delays *mat.Dense
	// TauAcross and TauWithin are the GP timescales (1/sqrt(gamma)).
	TauAcross []float64
	TauWithin [][]float64
	// NuAcross and NuWithin are the center frequencies; nil for the
	// RadialBasis family.
	NuAcross []float64
	NuWithin [][]float64
}

// History is the resumable state of a fitting session: an explicit
// iteration counter plus append-only traces. Passing a History back
// via WithHistory continues the run as if it had never stopped.
type History struct {
	// Iter is the last completed iteration.
	Iter int
	// LL is the likelihood trace; one entry per iteration on which the
	// likelihood was evaluated.
	LL []float64
	// IterTime is the wall time of each iteration in seconds.
	IterTime []float64
	// Snapshots holds the parameter checkpoints, in iteration order.
	Snapshots []Snapshot
}

// takeSnapshot appends a checkpoint of the current parameters.
func (h *History) takeSnapshot(iter int, p *model.Params) {
	snap := Snapshot{
		Iter:      iter,
		TauAcross: p.Across.Timescales(),
	}
	if p.Delays != nil {
		snap.Delays = mat.DenseCopyOf(p.Delays)
	}
	for _, w := range p.Within {
		snap.TauWithin = append(snap.TauWithin, w.Timescales())
	}
	if p.Family == model.SpectralGaussian {
		snap.NuAcross = append([]float64(nil), p.Across.Nu...)
		for _, w := range p.Within {
			snap.NuWithin = append(snap.NuWithin, append([]float64(nil), w.Nu...))
		}
	}
	h.Snapshots = append(h.Snapshots, snap)
}

// ParamDelta reports the maximum absolute change in the delay matrix
// and in the across-group timescales between the two most recent
// checkpoints. ok is false when fewer than two checkpoints exist; the
// quantities are then not evaluated and must not be used.
func (h *History) ParamDelta() (delayDelta, tauDelta float64, ok bool) {
	n := len(h.Snapshots)
	if n < 2 {
		return 0, 0, false
	}
	prev, cur := h.Snapshots[n-2], h.Snapshots[n-1]

	if cur.Delays != nil && prev.Delays != nil {
		r, c := cur.Delays.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				d := math.Abs(cur.Delays.At(i, j) - prev.Delays.At(i, j))
				if d > delayDelta {
					delayDelta = d
				}
			}
		}
	}
	if len(cur.TauAcross) > 0 {
		tauDelta = floats.Distance(cur.TauAcross, prev.TauAcross, math.Inf(1))
	}
	return delayDelta, tauDelta, true
}
