package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CovarianceFamily selects the GP kernel shape for all latents of a
// model. It is a closed set; components switch exhaustively on it.
type CovarianceFamily uint8

// RadialBasis and SpectralGaussian are the supported kernel families.
const (
	// RadialBasis is the squared-exponential kernel.
	RadialBasis CovarianceFamily = iota
	// SpectralGaussian is the Gauss-cosine kernel, which adds a center
	// frequency parameter per latent.
	SpectralGaussian
)

// String returns the canonical family name.
func (f CovarianceFamily) String() string {
	switch f {
	case RadialBasis:
		return "rbf"
	case SpectralGaussian:
		return "sg"
	default:
		return fmt.Sprintf("CovarianceFamily(%d)", uint8(f))
	}
}

// GPParams holds the kernel hyperparameters for one block of latents
// (either the across-group block or one group's within-group block).
type GPParams struct {
	// Gamma is the inverse squared timescale per latent: gamma = 1/tau^2
	// in time-step units.
	Gamma []float64
	// Eta is the GP noise variance per latent. The kernel estimators do
	// not update it (known limitation); it still shapes the spectral
	// density.
	Eta []float64
	// Nu is the center frequency per latent in cycles per time step.
	// Present only for the SpectralGaussian family; nil otherwise.
	Nu []float64
}

// Dim returns the number of latents described by the block.
func (g GPParams) Dim() int { return len(g.Gamma) }

// Clone returns a deep copy.
func (g GPParams) Clone() GPParams {
	out := GPParams{}
	if g.Gamma != nil {
		out.Gamma = append([]float64(nil), g.Gamma...)
	}
	if g.Eta != nil {
		out.Eta = append([]float64(nil), g.Eta...)
	}
	if g.Nu != nil {
		out.Nu = append([]float64(nil), g.Nu...)
	}
	return out
}

// Timescales returns tau = 1/sqrt(gamma) per latent.
func (g GPParams) Timescales() []float64 {
	out := make([]float64, len(g.Gamma))
	for i, gam := range g.Gamma {
		out[i] = 1 / math.Sqrt(gam)
	}
	return out
}

// GroupDims declares the observed and latent dimensionalities of a
// multi-group model.
type GroupDims struct {
	// YDims is the number of observed dimensions per group.
	YDims []int
	// XDimAcross is the number of across-group latents.
	XDimAcross int
	// XDimWithin is the number of within-group latents per group.
	XDimWithin []int
}

// NumGroups returns the number of observed groups.
func (d GroupDims) NumGroups() int { return len(d.YDims) }

// TotalY returns the stacked observed dimensionality.
func (d GroupDims) TotalY() int {
	t := 0
	for _, q := range d.YDims {
		t += q
	}
	return t
}

// TotalLatent returns the full latent dimensionality: across-group
// latents followed by each group's within-group block.
func (d GroupDims) TotalLatent() int {
	t := d.XDimAcross
	for _, w := range d.XDimWithin {
		t += w
	}
	return t
}

// YOffset returns the first stacked observation row of group g.
func (d GroupDims) YOffset(g int) int {
	off := 0
	for h := 0; h < g; h++ {
		off += d.YDims[h]
	}
	return off
}

// WithinOffset returns the first latent column of group g's
// within-group block. Latent columns are laid out as
// [across | within group 0 | within group 1 | ...].
func (d GroupDims) WithinOffset(g int) int {
	off := d.XDimAcross
	for h := 0; h < g; h++ {
		off += d.XDimWithin[h]
	}
	return off
}

// GroupLatents returns the latent column indices visible to group g:
// the across-group block followed by group g's within-group block.
func (d GroupDims) GroupLatents(g int) []int {
	idx := make([]int, 0, d.XDimAcross+d.XDimWithin[g])
	for j := 0; j < d.XDimAcross; j++ {
		idx = append(idx, j)
	}
	off := d.WithinOffset(g)
	for j := 0; j < d.XDimWithin[g]; j++ {
		idx = append(idx, off+j)
	}
	return idx
}

// Validate checks internal consistency of the declared dimensions.
func (d GroupDims) Validate() error {
	if len(d.YDims) == 0 {
		return fmt.Errorf("model: no observed groups declared")
	}
	if len(d.XDimWithin) != len(d.YDims) {
		return fmt.Errorf("model: %d groups but %d within-group latent counts", len(d.YDims), len(d.XDimWithin))
	}
	for g, q := range d.YDims {
		if q <= 0 {
			return fmt.Errorf("model: group %d has non-positive observed dimension %d", g, q)
		}
	}
	if d.XDimAcross < 0 {
		return fmt.Errorf("model: negative across-group latent count %d", d.XDimAcross)
	}
	for g, w := range d.XDimWithin {
		if w < 0 {
			return fmt.Errorf("model: group %d has negative within-group latent count %d", g, w)
		}
	}
	if d.TotalLatent() == 0 {
		return fmt.Errorf("model: model has no latents")
	}
	return nil
}

// Params is the full parameter set of a DLAG model. It is owned
// exclusively by the fitting driver for the duration of a fit.
type Params struct {
	Family CovarianceFamily
	Dims   GroupDims

	// Across holds the across-group kernel hyperparameters
	// (Dims.XDimAcross latents).
	Across GPParams
	// Within holds one kernel block per group; a group with zero
	// within-group latents has an empty block.
	Within []GPParams

	// Delays is the numGroups x XDimAcross delay matrix in time-step
	// units. The row of the reference group is identically zero. Nil
	// when XDimAcross is zero.
	Delays *mat.Dense
	// RefGroup is the index of the zero-delay reference group.
	RefGroup int

	// C is the TotalY x TotalLatent loading matrix. Columns of the
	// across block are shared by all group row-blocks; within columns
	// are nonzero only in their group's rows.
	C *mat.Dense
	// D is the mean offset, length TotalY.
	D []float64
	// R is the diagonal of the observation noise covariance,
	// length TotalY.
	R []float64
}

// Validate checks the structural invariants of the parameter set.
func (p *Params) Validate() error {
	if err := p.Dims.Validate(); err != nil {
		return err
	}
	q := p.Dims.TotalY()
	x := p.Dims.TotalLatent()

	cr, cc := p.C.Dims()
	if cr != q || cc != x {
		return fmt.Errorf("model: loading matrix is %dx%d, want %dx%d", cr, cc, q, x)
	}
	if len(p.D) != q {
		return fmt.Errorf("model: mean offset has length %d, want %d", len(p.D), q)
	}
	if len(p.R) != q {
		return fmt.Errorf("model: noise diagonal has length %d, want %d", len(p.R), q)
	}
	for i, r := range p.R {
		if r <= 0 {
			return fmt.Errorf("model: noise variance %d is non-positive (%g)", i, r)
		}
	}

	if err := p.validateKernel("across", p.Across, p.Dims.XDimAcross); err != nil {
		return err
	}
	if len(p.Within) != p.Dims.NumGroups() {
		return fmt.Errorf("model: %d within-group kernel blocks, want %d", len(p.Within), p.Dims.NumGroups())
	}
	for g, w := range p.Within {
		if err := p.validateKernel(fmt.Sprintf("within group %d", g), w, p.Dims.XDimWithin[g]); err != nil {
			return err
		}
	}

	if p.Dims.XDimAcross == 0 {
		if p.Delays != nil {
			return fmt.Errorf("model: delay matrix present with zero across-group latents")
		}
		return nil
	}
	dr, dc := p.Delays.Dims()
	if dr != p.Dims.NumGroups() || dc != p.Dims.XDimAcross {
		return fmt.Errorf("model: delay matrix is %dx%d, want %dx%d", dr, dc, p.Dims.NumGroups(), p.Dims.XDimAcross)
	}
	if p.RefGroup < 0 || p.RefGroup >= p.Dims.NumGroups() {
		return fmt.Errorf("model: reference group %d out of range", p.RefGroup)
	}
	for j := 0; j < dc; j++ {
		if p.Delays.At(p.RefGroup, j) != 0 {
			return fmt.Errorf("model: reference group delay row is not zero at latent %d", j)
		}
	}
	return nil
}

func (p *Params) validateKernel(name string, g GPParams, want int) error {
	if len(g.Gamma) != want {
		return fmt.Errorf("model: %s kernel has %d timescales, want %d", name, len(g.Gamma), want)
	}
	if len(g.Eta) != want {
		return fmt.Errorf("model: %s kernel has %d noise variances, want %d", name, len(g.Eta), want)
	}
	for i, gam := range g.Gamma {
		if gam <= 0 {
			return fmt.Errorf("model: %s kernel gamma %d is non-positive (%g)", name, i, gam)
		}
	}
	for i, e := range g.Eta {
		if e < 0 || e >= 1 {
			return fmt.Errorf("model: %s kernel eta %d is outside [0,1) (%g)", name, i, e)
		}
	}
	switch p.Family {
	case SpectralGaussian:
		if len(g.Nu) != want {
			return fmt.Errorf("model: %s kernel has %d center frequencies, want %d", name, len(g.Nu), want)
		}
	case RadialBasis:
		if g.Nu != nil {
			return fmt.Errorf("model: %s kernel has center frequencies but family is %s", name, p.Family)
		}
	default:
		return fmt.Errorf("model: unknown covariance family %d", p.Family)
	}
	return nil
}

// Clone returns a deep copy of the parameter set.
func (p *Params) Clone() *Params {
	out := &Params{
		Family:   p.Family,
		Dims:     p.Dims,
		Across:   p.Across.Clone(),
		RefGroup: p.RefGroup,
		D:        append([]float64(nil), p.D...),
		R:        append([]float64(nil), p.R...),
	}
	out.Dims.YDims = append([]int(nil), p.Dims.YDims...)
	out.Dims.XDimWithin = append([]int(nil), p.Dims.XDimWithin...)
	out.Within = make([]GPParams, len(p.Within))
	for g, w := range p.Within {
		out.Within[g] = w.Clone()
	}
	if p.Delays != nil {
		out.Delays = mat.DenseCopyOf(p.Delays)
	}
	out.C = mat.DenseCopyOf(p.C)
	return out
}

// KernelAt returns the covariance hyperparameters of the latent at
// full-model column j: gamma, eta and nu (nu is zero for the
// RadialBasis family).
func (p *Params) KernelAt(j int) (gamma, eta, nu float64) {
	if j < p.Dims.XDimAcross {
		return kernelEntry(p.Family, p.Across, j)
	}
	off := p.Dims.XDimAcross
	for g, w := range p.Within {
		if j < off+p.Dims.XDimWithin[g] {
			return kernelEntry(p.Family, w, j-off)
		}
		off += p.Dims.XDimWithin[g]
	}
	panic(fmt.Sprintf("model: latent index %d out of range", j))
}

func kernelEntry(fam CovarianceFamily, g GPParams, i int) (gamma, eta, nu float64) {
	gamma = g.Gamma[i]
	eta = g.Eta[i]
	if fam == SpectralGaussian {
		nu = g.Nu[i]
	}
	return gamma, eta, nu
}
