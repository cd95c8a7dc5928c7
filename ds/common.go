// SPDX-License-Identifier: MIT

// Package ds: operations shared by several variant vtables — condition
// estimation and Euclidean column normalisation.
package ds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/lapack"
)

// condViaLU estimates the 1-norm condition number κ₁ of the eigenvector
// basis: slot Q when the variant declares one (≈1 after any orthogonal
// condensation, large when a non-orthogonal basis degenerates), the
// leading n×n block of slot X for the quadratic variant, which carries no
// Q. LU with partial pivoting plus the LAPACK reciprocal-condition
// estimator; a numerically singular factor yields +Inf rather than an
// error so outer solvers can treat it as "restart now". Clobbers slot W.
func condViaLU(d *DS) (float64, error) {
	src := MatQ
	if !d.ops.declares(MatQ) {
		src = MatX
	}
	d.copyMat(MatW, src, d.n, d.n)

	return d.condOfW()
}

// condProblemViaLU estimates κ₁ of the leading n×n block of the problem
// matrix itself. Clobbers slot W.
func condProblemViaLU(d *DS) (float64, error) {
	if d.compact {
		d.fullFromCompact(MatW)
	} else {
		d.copyMat(MatW, MatA, d.n, d.n)
	}

	return d.condOfW()
}

func (d *DS) condOfW() (float64, error) {
	w := d.allocateMat(MatW)
	anorm := d.norm1(w, d.n, d.n)
	rwork, iwork := d.ensureWork(4*d.n, 2*d.n)
	if ok := lp.Dgetrf(d.n, d.n, w, d.ld, iwork[:d.n]); !ok {
		return math.Inf(1), nil
	}
	rcond := lp.Dgecon(lapack.MaxColumnSum, d.n, w, d.ld, anorm, rwork[:4*d.n], iwork[d.n:2*d.n])
	if rcond == 0 {
		return math.Inf(1), nil
	}

	return 1 / rcond, nil
}

// normalizeEuclid rescales eigenvector columns to unit Euclidean norm.
// A 2×2 complex-conjugate pair — detected through the sub-diagonal of the
// condensed quasi-triangular factor — is normalised jointly, treating the
// two columns as the real and imaginary part of one complex vector.
func normalizeEuclid(d *DS, s Slot, col int) error {
	if s == MatT || s == MatD || !d.ops.declares(s) {
		return fmt.Errorf("normalize %v: %w", s, ErrUnknownSlot)
	}
	a := d.allocateMat(s)
	lo, hi := d.l, d.n
	if col >= 0 {
		if col < d.l || col >= d.n {
			return fmt.Errorf("normalize column %d: %w", col, ErrBadDimension)
		}
		lo, hi = col, col+1
		if d.pairSecond(col) {
			lo = col - 1
			hi = col + 1
		} else if d.pairFirst(col) {
			hi = col + 2
		}
	}
	for j := lo; j < hi; j++ {
		if d.pairFirst(j) && j+1 < hi {
			n1 := colNorm2(a, d.n, d.ld, j)
			n2 := colNorm2(a, d.n, d.ld, j+1)
			norm := math.Hypot(n1, n2)
			if norm > 0 {
				scaleCol(a, d.n, d.ld, j, 1/norm)
				scaleCol(a, d.n, d.ld, j+1, 1/norm)
			}
			j++

			continue
		}
		if norm := colNorm2(a, d.n, d.ld, j); norm > 0 {
			scaleCol(a, d.n, d.ld, j, 1/norm)
		}
	}

	return nil
}

// updateExtraRowThroughQ propagates the residual row of a full-storage
// decomposition: row n of A is replaced by (row n)·Q over the active
// columns, so it describes the residual in the condensed basis.
func updateExtraRowThroughQ(d *DS) error {
	a := d.allocateMat(MatA)
	q := d.allocateMat(MatQ)
	rwork, _ := d.ensureWork(d.n, 0)
	row := rwork[:d.n]
	copy(row, a[d.n*d.ld:d.n*d.ld+d.n])
	for j := d.l; j < d.n; j++ {
		var v float64
		for i := d.l; i < d.n; i++ {
			v += row[i] * q[i*d.ld+j]
		}
		a[d.n*d.ld+j] = v
	}

	return nil
}

// pairFirst reports whether column j opens a 2×2 block of the condensed
// quasi-triangular factor (full storage only; compact variants have real
// spectra or handle pairs themselves).
func (d *DS) pairFirst(j int) bool {
	if d.compact || d.mat[MatA] == nil || j+1 >= d.n {
		return false
	}

	return d.mat[MatA][(j+1)*d.ld+j] != 0
}

// pairSecond reports whether column j closes a 2×2 block.
func (d *DS) pairSecond(j int) bool {
	if d.compact || d.mat[MatA] == nil || j <= d.l {
		return false
	}

	return d.mat[MatA][j*d.ld+j-1] != 0
}
