// SPDX-License-Identifier: MIT

// Package ds: shared dense kernels. Thin helpers over gonum's BLAS/LAPACK
// implementation used by every variant: block views, products, norms,
// inverses and the 2×2 eigenvalue primitives of the hand-written
// iterations.
package ds

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
	lapackgonum "gonum.org/v1/gonum/lapack/gonum"
)

// lp is the dense backend. All LAPACK-level calls in the package go
// through this single value so swapping the implementation stays a
// one-line change.
var lp lapackgonum.Implementation

// general views the leading rows×cols block of a full slot as a
// blas64.General with the DS row stride.
func (d *DS) general(s Slot, rows, cols int) blas64.General {
	return blas64.General{Rows: rows, Cols: cols, Stride: d.ld, Data: d.allocateMat(s)}
}

// gemmInto computes c = op(a)·op(b) over blas64.General views.
func gemmInto(c blas64.General, tA, tB blas.Transpose, a, b blas64.General) {
	blas64.Gemm(tA, tB, 1, a, b, 0, c)
}

// lworkQuery runs a LAPACK workspace query and returns the optimal size.
func lworkQuery(call func(work []float64)) int {
	var query [1]float64
	call(query[:])

	return int(query[0])
}

// invertInPlace replaces the leading n×n block of a (stride lda) by its
// inverse via LU with partial pivoting. Returns ErrSingular on an exactly
// singular factor.
func (d *DS) invertInPlace(a []float64, n, lda int) error {
	rwork, iwork := d.ensureWork(n, n)
	ipiv := iwork[:n]
	if ok := lp.Dgetrf(n, n, a, lda, ipiv); !ok {
		return ErrSingular
	}
	lwork := lworkQuery(func(w []float64) { lp.Dgetri(n, a, lda, ipiv, w, -1) })
	if lwork > len(rwork) {
		rwork, _ = d.ensureWork(lwork, n)
	}
	if ok := lp.Dgetri(n, a, lda, ipiv, rwork[:lwork], lwork); !ok {
		return ErrSingular
	}

	return nil
}

// norm1 returns the 1-norm (maximum column sum) of the leading rows×cols
// block.
func (d *DS) norm1(a []float64, rows, cols int) float64 {
	rwork, _ := d.ensureWork(rows, 0)

	return lp.Dlange(lapack.MaxColumnSum, rows, cols, a, d.ld, rwork)
}

// normFro returns the Frobenius norm of the leading rows×cols block.
func (d *DS) normFro(a []float64, rows, cols int) float64 {
	rwork, _ := d.ensureWork(rows, 0)

	return lp.Dlange(lapack.Frobenius, rows, cols, a, d.ld, rwork)
}

// eig2x2 returns the eigenvalues of [[a11,a12],[a21,a22]] as two
// (re, im) pairs, conjugates ordered positive-imaginary first.
func eig2x2(a11, a12, a21, a22 float64) (r1, i1, r2, i2 float64) {
	tr := 0.5 * (a11 + a22)
	det := a11*a22 - a12*a21
	disc := tr*tr - det
	if disc >= 0 {
		s := math.Sqrt(disc)
		// order by magnitude-stable formulas to avoid cancellation
		if tr >= 0 {
			r1 = tr + s
		} else {
			r1 = tr - s
		}
		if r1 != 0 {
			r2 = det / r1
		} else {
			r2 = tr - math.Copysign(s, tr)
		}

		return r1, 0, r2, 0
	}
	s := math.Sqrt(-disc)

	return tr, s, tr, -s
}

// machEps is the double-precision unit roundoff.
const machEps = 2.220446049250313e-16

// tolFor returns the deflation/convergence threshold for dimension n.
func tolFor(n int) float64 { return EpsTol * float64(maxInt(n, 1)) * machEps }

// colNorm2 returns the Euclidean norm of rows [0,n) of column j in a
// row-major block with stride ld.
func colNorm2(a []float64, n, ld, j int) float64 {
	var s float64
	for i := 0; i < n; i++ {
		v := a[i*ld+j]
		s += v * v
	}

	return math.Sqrt(s)
}

// scaleCol multiplies rows [0,n) of column j by f.
func scaleCol(a []float64, n, ld, j int, f float64) {
	for i := 0; i < n; i++ {
		a[i*ld+j] *= f
	}
}

// swapCols exchanges columns p and q over rows [0,n).
func swapCols(a []float64, n, ld, p, q int) {
	for i := 0; i < n; i++ {
		a[i*ld+p], a[i*ld+q] = a[i*ld+q], a[i*ld+p]
	}
}
