// Package cmat provides complex Hermitian linear algebra on top of
// gonum's CDense type.
//
// gonum/mat ships factorizations for real matrices only; the spectral
// posterior works with small complex Hermitian positive definite
// matrices per frequency bin, so this package supplies the Cholesky
// factorization, solves, inversion, and log-determinant for that case.
package cmat

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Cholesky holds the lower-triangular factor L of a Hermitian positive
// definite matrix A, with A = L L^H.
type Cholesky struct {
	l *mat.CDense
	n int
}

// Factorize computes the Cholesky factorization of a. Only the lower
// triangle of a is read; the strict upper triangle is assumed to be the
// conjugate transpose of the lower one.
func (ch *Cholesky) Factorize(a *mat.CDense) error {
	n, c := a.Dims()
	if n != c {
		return fmt.Errorf("cmat: cholesky of non-square matrix %dx%d", n, c)
	}

	l := mat.NewCDense(n, n, nil)
	for j := 0; j < n; j++ {
		d := real(a.At(j, j))
		for k := 0; k < j; k++ {
			v := l.At(j, k)
			d -= real(v)*real(v) + imag(v)*imag(v)
		}
		if d <= 0 || math.IsNaN(d) {
			return fmt.Errorf("cmat: matrix is not positive definite at pivot %d", j)
		}

		ljj := math.Sqrt(d)
		l.Set(j, j, complex(ljj, 0))

		for i := j + 1; i < n; i++ {
			s := a.At(i, j)
			for k := 0; k < j; k++ {
				s -= l.At(i, k) * cmplx.Conj(l.At(j, k))
			}
			l.Set(i, j, s/complex(ljj, 0))
		}
	}

	ch.l = l
	ch.n = n
	return nil
}

// Order returns the dimension of the factorized matrix.
func (ch *Cholesky) Order() int { return ch.n }

// SolveVecTo solves A x = b into dst. dst and b must have length
// Order; dst and b may alias.
func (ch *Cholesky) SolveVecTo(dst, b []complex128) error {
	n := ch.n
	if len(b) != n || len(dst) != n {
		return fmt.Errorf("cmat: solve dimension mismatch: order %d, len(b)=%d, len(dst)=%d", n, len(b), len(dst))
	}

	// Forward substitution: L y = b.
	y := make([]complex128, n)
	for i := 0; i < n; i++ {
		s := b[i]
		for k := 0; k < i; k++ {
			s -= ch.l.At(i, k) * y[k]
		}
		y[i] = s / ch.l.At(i, i)
	}

	// Back substitution: L^H x = y.
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for k := i + 1; k < n; k++ {
			s -= cmplx.Conj(ch.l.At(k, i)) * dst[k]
		}
		dst[i] = s / ch.l.At(i, i)
	}
	return nil
}

// InverseTo computes A^{-1} into dst, which must be Order x Order.
func (ch *Cholesky) InverseTo(dst *mat.CDense) error {
	n := ch.n
	r, c := dst.Dims()
	if r != n || c != n {
		return fmt.Errorf("cmat: inverse destination is %dx%d, want %dx%d", r, c, n, n)
	}

	e := make([]complex128, n)
	x := make([]complex128, n)
	for j := 0; j < n; j++ {
		for i := range e {
			e[i] = 0
		}
		e[j] = 1
		if err := ch.SolveVecTo(x, e); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			dst.Set(i, j, x[i])
		}
	}
	return nil
}

// LogDet returns log det A. The determinant of a Hermitian positive
// definite matrix is real and positive.
func (ch *Cholesky) LogDet() float64 {
	d := 0.0
	for i := 0; i < ch.n; i++ {
		d += math.Log(real(ch.l.At(i, i)))
	}
	return 2 * d
}

// MulHermTo computes dst = a^H * b for dense complex matrices.
// a is m x n, b is m x p, dst must be n x p.
func MulHermTo(dst, a, b *mat.CDense) error {
	am, an := a.Dims()
	bm, bp := b.Dims()
	dn, dp := dst.Dims()
	if am != bm || dn != an || dp != bp {
		return fmt.Errorf("cmat: hermitian multiply dimension mismatch: a %dx%d, b %dx%d, dst %dx%d", am, an, bm, bp, dn, dp)
	}
	for i := 0; i < an; i++ {
		for j := 0; j < bp; j++ {
			var s complex128
			for k := 0; k < am; k++ {
				s += cmplx.Conj(a.At(k, i)) * b.At(k, j)
			}
			dst.Set(i, j, s)
		}
	}
	return nil
}
