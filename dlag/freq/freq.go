package freq

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
)

// Grid returns the T DFT frequencies in cycles per time step, wrapped
// to [-1/2, 1/2): bin k maps to k/T for k < ceil(T/2) and to k/T - 1
// above.
func Grid(t int) []float64 {
	out := make([]float64, t)
	for k := range out {
		f := float64(k) / float64(t)
		if f >= 0.5 {
			f -= 1
		}
		out[k] = f
	}
	return out
}

// Transform computes the unitary DFT of each row of y (dims x T) along
// the time axis.
func Transform(y *mat.Dense) (*mat.CDense, error) {
	q, t := y.Dims()
	if t == 0 {
		return nil, fmt.Errorf("freq: transform of empty signal")
	}

	plan, err := algofft.NewPlan64(t)
	if err != nil {
		return nil, fmt.Errorf("freq: failed to create FFT plan for length %d: %w", t, err)
	}

	in := make([]complex128, t)
	out := make([]complex128, t)
	scale := complex(1/math.Sqrt(float64(t)), 0)

	yf := mat.NewCDense(q, t, nil)
	for i := 0; i < q; i++ {
		for k := 0; k < t; k++ {
			in[k] = complex(y.At(i, k), 0)
		}
		if err := plan.Forward(out, in); err != nil {
			return nil, fmt.Errorf("freq: forward transform failed: %w", err)
		}
		for k := 0; k < t; k++ {
			yf.Set(i, k, out[k]*scale)
		}
	}
	return yf, nil
}

// InverseTransform computes the inverse unitary DFT of each row of yf
// and returns the real part. The input is expected to carry Hermitian
// symmetry (the transform of a real signal); any numerically tiny
// imaginary residue is discarded.
func InverseTransform(yf *mat.CDense) (*mat.Dense, error) {
	q, t := yf.Dims()
	if t == 0 {
		return nil, fmt.Errorf("freq: inverse transform of empty spectrum")
	}

	plan, err := algofft.NewPlan64(t)
	if err != nil {
		return nil, fmt.Errorf("freq: failed to create FFT plan for length %d: %w", t, err)
	}

	in := make([]complex128, t)
	out := make([]complex128, t)
	// The backend's inverse includes the 1/T normalization; the unitary
	// inverse only divides by sqrt(T).
	scale := math.Sqrt(float64(t))

	y := mat.NewDense(q, t, nil)
	for i := 0; i < q; i++ {
		for k := 0; k < t; k++ {
			in[k] = yf.At(i, k)
		}
		if err := plan.Inverse(out, in); err != nil {
			return nil, fmt.Errorf("freq: inverse transform failed: %w", err)
		}
		for k := 0; k < t; k++ {
			y.Set(i, k, real(out[k])*scale)
		}
	}
	return y, nil
}

// NewSequence transforms one time-domain trial (yDim x T) into a
// frequency-domain Sequence ready for fitting.
func NewSequence(id int, y *mat.Dense) (*model.Sequence, error) {
	yf, err := Transform(y)
	if err != nil {
		return nil, err
	}
	_, t := y.Dims()
	return &model.Sequence{ID: id, T: t, Yfft: yf}, nil
}

// RowPower returns |X_k|^2 per bin of one spectrum row.
//
// Real and imaginary parts are unpacked once so the element kernel can
// run vectorized.
func RowPower(row []complex128) []float64 {
	if len(row) == 0 {
		return nil
	}
	re := make([]float64, len(row))
	im := make([]float64, len(row))
	for i, c := range row {
		re[i] = real(c)
		im[i] = imag(c)
	}
	out := make([]float64, len(row))
	vecmath.Power(out, re, im)
	return out
}

// RowMagnitude returns |X_k| per bin of one spectrum row.
func RowMagnitude(row []complex128) []float64 {
	if len(row) == 0 {
		return nil
	}
	re := make([]float64, len(row))
	im := make([]float64, len(row))
	for i, c := range row {
		re[i] = real(c)
		im[i] = imag(c)
	}
	out := make([]float64, len(row))
	vecmath.Magnitude(out, re, im)
	return out
}

// EmpiricalVariance returns the per-dimension empirical variance of
// the observed signal across all trials, computed from the unitary
// spectra via Parseval: the zero-frequency bin carries the mean, the
// remaining bins the centered power.
func EmpiricalVariance(seqs []*model.Sequence) []float64 {
	q, _ := seqs[0].Yfft.Dims()
	out := make([]float64, q)
	row := make([]complex128, 0)
	total := 0
	for _, s := range seqs {
		total += s.T
		for i := 0; i < q; i++ {
			row = row[:0]
			for k := 0; k < s.T; k++ {
				row = append(row, s.Yfft.At(i, k))
			}
			p := RowPower(row)
			// Skip bin 0: it holds sqrt(T) times the trial mean.
			for k := 1; k < s.T; k++ {
				out[i] += p[k]
			}
		}
	}
	for i := range out {
		out[i] /= float64(total)
	}
	return out
}
