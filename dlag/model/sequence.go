package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Sequence is one observed trial in its frequency-domain
// representation, plus the posterior-mean latent trajectory filled in
// by the inference engine.
type Sequence struct {
	// ID identifies the trial.
	ID int
	// T is the trial length in time steps.
	T int
	// Yfft is the unitary DFT of the observed signal, yDim x T.
	// Immutable input.
	Yfft *mat.CDense

	// Xfft is the posterior-mean latent trajectory in the frequency
	// domain, totalLatent x T. Overwritten every E-step.
	Xfft *mat.CDense
	// X is the time-domain posterior-mean latent trajectory,
	// totalLatent x T. Overwritten every E-step.
	X *mat.Dense
}

// ValidateSequences checks every trial against the declared observed
// dimensionality before any fitting work starts.
func ValidateSequences(seqs []*Sequence, dims GroupDims) error {
	if len(seqs) == 0 {
		return fmt.Errorf("model: no sequences supplied")
	}
	q := dims.TotalY()
	for _, s := range seqs {
		if s.T <= 0 {
			return fmt.Errorf("model: sequence %d has non-positive length %d", s.ID, s.T)
		}
		r, c := s.Yfft.Dims()
		if r != q || c != s.T {
			return fmt.Errorf("model: sequence %d spectrum is %dx%d, want %dx%d", s.ID, r, c, q, s.T)
		}
	}
	return nil
}

// MinT returns the shortest trial length.
func MinT(seqs []*Sequence) int {
	minT := seqs[0].T
	for _, s := range seqs[1:] {
		if s.T < minT {
			minT = s.T
		}
	}
	return minT
}

// DistinctLengths returns the sorted distinct trial lengths.
func DistinctLengths(seqs []*Sequence) []int {
	seen := map[int]bool{}
	var out []int
	for _, s := range seqs {
		if !seen[s.T] {
			seen[s.T] = true
			out = append(out, s.T)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
