package freq

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/model"
)

const tolerance = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func randomSignal(rng *rand.Rand, q, t int) *mat.Dense {
	y := mat.NewDense(q, t, nil)
	for i := 0; i < q; i++ {
		for k := 0; k < t; k++ {
			y.Set(i, k, rng.NormFloat64())
		}
	}
	return y
}

func TestGrid_Wrapping(t *testing.T) {
	g := Grid(8)
	want := []float64{0, 0.125, 0.25, 0.375, -0.5, -0.375, -0.25, -0.125}
	if len(g) != len(want) {
		t.Fatalf("Grid(8): got %d frequencies, want %d", len(g), len(want))
	}
	for i := range want {
		if !almostEqual(g[i], want[i], 1e-15) {
			t.Errorf("Grid(8)[%d]: got %g, want %g", i, g[i], want[i])
		}
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	y := randomSignal(rng, 3, 16)

	yf, err := Transform(y)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	back, err := InverseTransform(yf)
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}

	for i := 0; i < 3; i++ {
		for k := 0; k < 16; k++ {
			if !almostEqual(back.At(i, k), y.At(i, k), tolerance) {
				t.Fatalf("round trip at (%d,%d): got %g, want %g", i, k, back.At(i, k), y.At(i, k))
			}
		}
	}
}

func TestTransform_Parseval(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	y := randomSignal(rng, 2, 32)

	yf, err := Transform(y)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	for i := 0; i < 2; i++ {
		timePower := 0.0
		for k := 0; k < 32; k++ {
			timePower += y.At(i, k) * y.At(i, k)
		}
		freqPower := 0.0
		for k := 0; k < 32; k++ {
			freqPower += cmplx.Abs(yf.At(i, k)) * cmplx.Abs(yf.At(i, k))
		}
		if !almostEqual(timePower, freqPower, 1e-8) {
			t.Errorf("row %d: time power %g != freq power %g", i, timePower, freqPower)
		}
	}
}

func TestTransform_DCBin(t *testing.T) {
	// Bin 0 of the unitary transform holds sqrt(T) times the mean.
	y := mat.NewDense(1, 8, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	yf, err := Transform(y)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := math.Sqrt(8)
	if !almostEqual(real(yf.At(0, 0)), want, tolerance) || !almostEqual(imag(yf.At(0, 0)), 0, tolerance) {
		t.Errorf("DC bin: got %v, want %g", yf.At(0, 0), want)
	}
	for k := 1; k < 8; k++ {
		if cmplx.Abs(yf.At(0, k)) > tolerance {
			t.Errorf("bin %d of constant signal not zero: %v", k, yf.At(0, k))
		}
	}
}

func TestNewSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	y := randomSignal(rng, 4, 8)

	s, err := NewSequence(7, y)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if s.ID != 7 || s.T != 8 {
		t.Errorf("sequence identity: got ID=%d T=%d", s.ID, s.T)
	}
	r, c := s.Yfft.Dims()
	if r != 4 || c != 8 {
		t.Errorf("spectrum dims: got %dx%d, want 4x8", r, c)
	}
}

func TestRowPowerAndMagnitude(t *testing.T) {
	row := []complex128{3 + 4i, 0, -2i, 1}
	p := RowPower(row)
	m := RowMagnitude(row)

	wantP := []float64{25, 0, 4, 1}
	wantM := []float64{5, 0, 2, 1}
	for i := range row {
		if !almostEqual(p[i], wantP[i], tolerance) {
			t.Errorf("RowPower[%d]: got %g, want %g", i, p[i], wantP[i])
		}
		if !almostEqual(m[i], wantM[i], tolerance) {
			t.Errorf("RowMagnitude[%d]: got %g, want %g", i, m[i], wantM[i])
		}
	}
	if RowPower(nil) != nil || RowMagnitude(nil) != nil {
		t.Error("empty rows should return nil")
	}
}

func TestEmpiricalVariance(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	y1 := randomSignal(rng, 2, 16)
	y2 := randomSignal(rng, 2, 8)

	s1, err := NewSequence(0, y1)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	s2, err := NewSequence(1, y2)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}

	got := EmpiricalVariance([]*model.Sequence{s1, s2})

	// Direct computation: per-trial mean removed, pooled over trials.
	want := make([]float64, 2)
	for i := 0; i < 2; i++ {
		total := 0.0
		for _, y := range []*mat.Dense{y1, y2} {
			_, tn := y.Dims()
			mean := 0.0
			for k := 0; k < tn; k++ {
				mean += y.At(i, k)
			}
			mean /= float64(tn)
			for k := 0; k < tn; k++ {
				d := y.At(i, k) - mean
				total += d * d
			}
		}
		want[i] = total / float64(16+8)
	}

	for i := range want {
		if !almostEqual(got[i], want[i], 1e-8) {
			t.Errorf("variance dim %d: got %g, want %g", i, got[i], want[i])
		}
	}
}
