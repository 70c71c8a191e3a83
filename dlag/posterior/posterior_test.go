package posterior

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-dlag/dlag/freq"
	"github.com/cwbudde/algo-dlag/dlag/model"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func randomSeq(rng *rand.Rand, id, q, t int) *model.Sequence {
	y := mat.NewDense(q, t, nil)
	for i := 0; i < q; i++ {
		for k := 0; k < t; k++ {
			y.Set(i, k, rng.NormFloat64())
		}
	}
	s, err := freq.NewSequence(id, y)
	if err != nil {
		panic(err)
	}
	return s
}

// twoGroupParams builds a 2+2 dimensional two-group model with one
// across-group latent and one within-group latent in group 0.
func twoGroupParams() *model.Params {
	dims := model.GroupDims{
		YDims:      []int{2, 2},
		XDimAcross: 1,
		XDimWithin: []int{1, 0},
	}
	return &model.Params{
		Family: model.RadialBasis,
		Dims:   dims,
		Across: model.GPParams{Gamma: []float64{0.04}, Eta: []float64{1e-3}},
		Within: []model.GPParams{
			{Gamma: []float64{0.1}, Eta: []float64{1e-3}},
			{Gamma: []float64{}, Eta: []float64{}},
		},
		Delays: mat.NewDense(2, 1, []float64{0, 1.5}),
		C:      mat.NewDense(4, 2, []float64{1, 0.4, -0.8, 0.2, 0.6, 0, -0.5, 0}),
		D:      []float64{0.1, -0.2, 0.3, 0},
		R:      []float64{0.5, 0.4, 0.6, 0.3},
	}
}

func TestInfer_SharedPosteriorPerLength(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	p := twoGroupParams()
	seqs := []*model.Sequence{
		randomSeq(rng, 0, 4, 8),
		randomSeq(rng, 1, 4, 8),
		randomSeq(rng, 2, 4, 16),
	}

	res, err := Infer(p, seqs, false)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(res.ByLength) != 2 {
		t.Fatalf("ByLength: got %d entries, want 2", len(res.ByLength))
	}

	sp8 := res.ByLength[8]
	if sp8 == nil || sp8.NTrials != 2 || len(sp8.Cov) != 8 {
		t.Fatalf("T=8 posterior malformed: %+v", sp8)
	}
	sp16 := res.ByLength[16]
	if sp16 == nil || sp16.NTrials != 1 || len(sp16.Cov) != 16 {
		t.Fatalf("T=16 posterior malformed: %+v", sp16)
	}

	// Both trials of length 8 share the same covariance objects; their
	// posterior means differ.
	for k := 0; k < 8; k++ {
		if sp8.Cov[k] == nil {
			t.Fatalf("missing covariance at bin %d", k)
		}
	}
	if seqs[0].Xfft == nil || seqs[1].Xfft == nil {
		t.Fatal("posterior means not filled in")
	}
	same := true
	for k := 0; k < 8 && same; k++ {
		for j := 0; j < 2; j++ {
			if seqs[0].Xfft.At(j, k) != seqs[1].Xfft.At(j, k) {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different trials produced identical posterior means")
	}

	if res.LLValid {
		t.Error("LLValid set without likelihood evaluation")
	}
}

func TestInfer_ZeroLoadingGivesPrior(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := twoGroupParams()
	p.C = mat.NewDense(4, 2, nil)
	p.D = []float64{0, 0, 0, 0}

	seqs := []*model.Sequence{randomSeq(rng, 0, 4, 8)}
	res, err := Infer(p, seqs, true)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	sp := res.ByLength[8]
	for k := 0; k < 8; k++ {
		f := sp.Freqs[k]
		for j := 0; j < 2; j++ {
			want := p.LatentDensity(j, f)
			got := real(sp.Cov[k].At(j, j))
			if !almostEqual(got, want, 1e-10) {
				t.Errorf("bin %d latent %d: covariance %g, want prior density %g", k, j, got, want)
			}
		}
		if cmplx.Abs(sp.Cov[k].At(0, 1)) > 1e-12 {
			t.Errorf("bin %d: nonzero cross covariance with zero loading", k)
		}
	}

	for k := 0; k < 8; k++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(seqs[0].Xfft.At(j, k)) > 1e-12 {
				t.Errorf("bin %d latent %d: nonzero posterior mean with zero loading", k, j)
			}
		}
	}

	// With zero loading the model is pure noise and the Whittle
	// likelihood reduces to independent Gaussians per bin.
	want := 0.0
	for k := 0; k < 8; k++ {
		for r := 0; r < 4; r++ {
			y := seqs[0].Yfft.At(r, k)
			re, im := real(y), imag(y)
			want -= 0.5 * (math.Log(2*math.Pi) + math.Log(p.R[r]) + (re*re+im*im)/p.R[r])
		}
	}
	if !res.LLValid {
		t.Fatal("LLValid not set")
	}
	if !almostEqual(res.LL, want, 1e-8) {
		t.Errorf("LL: got %g, want %g", res.LL, want)
	}
}

func TestInfer_MatchesScalarFormulas(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	dims := model.GroupDims{YDims: []int{1}, XDimAcross: 1, XDimWithin: []int{0}}
	p := &model.Params{
		Family: model.RadialBasis,
		Dims:   dims,
		Across: model.GPParams{Gamma: []float64{0.05}, Eta: []float64{1e-3}},
		Within: []model.GPParams{{Gamma: []float64{}, Eta: []float64{}}},
		Delays: mat.NewDense(1, 1, nil),
		C:      mat.NewDense(1, 1, []float64{0.9}),
		D:      []float64{2},
		R:      []float64{0.25},
	}

	tLen := 8
	s := randomSeq(rng, 0, 1, tLen)
	res, err := Infer(p, []*model.Sequence{s}, true)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	sp := res.ByLength[tLen]
	c, r := 0.9, 0.25
	wantLL := 0.0
	for k := 0; k < tLen; k++ {
		sk := p.LatentDensity(0, sp.Freqs[k])
		a := 1/sk + c*c/r

		if !almostEqual(real(sp.Cov[k].At(0, 0)), 1/a, 1e-10) {
			t.Errorf("bin %d: covariance %g, want %g", k, real(sp.Cov[k].At(0, 0)), 1/a)
		}

		y := s.Yfft.At(0, k)
		if k == 0 {
			y -= complex(math.Sqrt(float64(tLen))*p.D[0], 0)
		}
		wantMu := complex(c/r, 0) * y / complex(a, 0)
		if cmplx.Abs(s.Xfft.At(0, k)-wantMu) > 1e-10 {
			t.Errorf("bin %d: mean %v, want %v", k, s.Xfft.At(0, k), wantMu)
		}

		v := c*c*sk + r
		re, im := real(y), imag(y)
		wantLL -= 0.5 * (math.Log(2*math.Pi) + math.Log(v) + (re*re+im*im)/v)
	}
	if !almostEqual(res.LL, wantLL, 1e-8) {
		t.Errorf("LL: got %g, want %g", res.LL, wantLL)
	}
}

func TestInfer_TrajectoryIsRealAndHermitian(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	p := twoGroupParams()
	seqs := []*model.Sequence{randomSeq(rng, 0, 4, 16)}

	if _, err := Infer(p, seqs, false); err != nil {
		t.Fatalf("Infer: %v", err)
	}

	s := seqs[0]
	rows, cols := s.X.Dims()
	if rows != 2 || cols != 16 {
		t.Fatalf("trajectory dims: got %dx%d, want 2x16", rows, cols)
	}

	// The posterior mean of a real-valued process is Hermitian in
	// frequency: X[k] = conj(X[T-k]). The self-paired Nyquist bin is
	// exempt: a fractional delay makes its phase factor complex.
	for k := 1; k < 16; k++ {
		if k == 8 {
			continue
		}
		for j := 0; j < 2; j++ {
			a := s.Xfft.At(j, k)
			b := cmplx.Conj(s.Xfft.At(j, 16-k))
			if cmplx.Abs(a-b) > 1e-9 {
				t.Errorf("Hermitian symmetry broken at bin %d latent %d", k, j)
			}
		}
	}
}

func TestInfer_DimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	p := twoGroupParams()
	seqs := []*model.Sequence{randomSeq(rng, 0, 3, 8)}
	if _, err := Infer(p, seqs, false); err == nil {
		t.Fatal("dimension mismatch accepted")
	}
}
