// SPDX-License-Identifier: MIT

// Package ds: svd variant — singular value decomposition of the projected
// n×m factor. Method 0 runs the full dense SVD (Dgesvd) on the active
// block; method 1 expects compact storage holding an upper bidiagonal in
// the T bands and runs the implicit-shift QR iteration (Dbdsqr) directly
// on it. Singular values land in wr in decreasing LAPACK order, left
// vectors in U, right ones as rows of VT.
package ds

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/lapack"
)

func init() {
	registerVariant(SVD, &variantOps{
		methods:   2,
		slots:     []Slot{MatA, MatT, MatU, MatVT, MatW},
		solve:     svdSolve,
		sort:      svdSort,
		truncate:  svdTruncate,
		cond:      svdCond,
		normalize: normalizeEuclid,
		vectors:   svdVectors,
	})
}

func svdSolve(d *DS, wr, wi []float64) error {
	var err error
	switch {
	case d.method == 1 || d.compact:
		err = svdSolveBidiagonal(d)
	default:
		err = svdSolveFull(d)
	}
	if err != nil {
		return err
	}
	for i := d.l; i < d.n; i++ {
		if d.compact {
			wr[i] = d.mat[MatT][i]
		} else {
			wr[i] = d.mat[MatA][i*d.ld+i]
		}
		if wi != nil {
			wi[i] = 0
		}
	}

	return nil
}

// svdSolveFull is method 0: dense SVD of the active block. The condensed
// factor is Σ on the diagonal of A; U and VT absorb the singular bases.
func svdSolveFull(d *DS) error {
	if d.compact {
		return fmt.Errorf("dense svd needs full storage: %w", ErrUnsupported)
	}
	m := d.m
	if m == 0 {
		m = d.n
	}
	nl, ml := d.n-d.l, m-d.l
	a := d.allocateMat(MatA)
	u := d.allocateMat(MatU)
	vt := d.allocateMat(MatVT)
	d.setIdentity(MatU, d.n)
	d.setIdentity(MatVT, m)
	if nl == 0 || ml == 0 {
		return nil
	}
	w := d.allocateMat(MatW)
	for i := 0; i < nl; i++ {
		copy(w[i*d.ld:i*d.ld+ml], a[(d.l+i)*d.ld+d.l:(d.l+i)*d.ld+d.l+ml])
	}
	mn := minInt(nl, ml)
	rwork, _ := d.ensureWork(d.n, 0)
	sigma := rwork[:mn]
	usub := u[d.l*d.ld+d.l:]
	vtsub := vt[d.l*d.ld+d.l:]
	lwork := lworkQuery(func(wk []float64) {
		lp.Dgesvd(lapack.SVDAll, lapack.SVDAll, nl, ml, w, d.ld, sigma, usub, d.ld, vtsub, d.ld, wk, -1)
	})
	work := make([]float64, lwork)
	if ok := lp.Dgesvd(lapack.SVDAll, lapack.SVDAll, nl, ml, w, d.ld, sigma, usub, d.ld, vtsub, d.ld, work, lwork); !ok {
		return fmt.Errorf("svd iteration: %w", ErrNotConverged)
	}
	for i := d.l; i < d.n; i++ {
		for j := d.l; j < d.n; j++ {
			a[i*d.ld+j] = 0
		}
		if i-d.l < mn {
			a[i*d.ld+i] = sigma[i-d.l]
		}
	}

	return nil
}

// svdSolveBidiagonal is method 1: QR iteration on the stored bidiagonal.
// Band 0 carries the diagonal, band 1 the superdiagonal of the projected
// factor (square, m = n).
func svdSolveBidiagonal(d *DS) error {
	if !d.compact {
		return fmt.Errorf("bidiagonal svd needs compact storage: %w", ErrUnsupported)
	}
	nl := d.n - d.l
	t := d.allocateMat(MatT)
	u := d.allocateMat(MatU)
	vt := d.allocateMat(MatVT)
	d.setIdentity(MatU, d.n)
	d.setIdentity(MatVT, d.n)
	if nl == 0 {
		return nil
	}
	rwork, _ := d.ensureWork(6*d.n, 0)
	diag := rwork[:nl]
	off := rwork[nl : 2*nl]
	copy(diag, t[d.l:d.n])
	copy(off[:nl-1], t[d.ld+d.l:d.ld+d.n-1])
	work := rwork[2*d.n : 6*d.n]
	if ok := lp.Dbdsqr(blas.Upper, nl, nl, nl, 0,
		diag, off, vt[d.l*d.ld+d.l:], d.ld, u[d.l*d.ld+d.l:], d.ld, nil, 1, work); !ok {
		return fmt.Errorf("bidiagonal qr iteration: %w", ErrNotConverged)
	}
	copy(t[d.l:d.n], diag)
	for i := d.l; i < d.n-1; i++ {
		t[d.ld+i] = 0
	}
	for i := d.l; i < d.k; i++ {
		t[2*d.ld+i] = 0
	}
	d.k = d.l

	return nil
}

// svdSort permutes the singular triplets: values, the diagonal factor,
// columns of U and rows of VT move together.
func svdSort(d *DS, wr, wi, rr, ri []float64) (int, error) {
	kr := wr
	if rr != nil {
		kr = rr
	}
	perm, selected := d.sortPerm(kr, nil)
	d.permuteVals(perm, wr)
	if rr != nil {
		d.permuteVals(perm, rr)
	}
	d.permuteDiagonal(perm)
	d.permuteColumns(MatU, d.n, perm)
	cols := d.m
	if cols == 0 {
		cols = d.n
	}
	d.permuteRows(MatVT, cols, perm)

	return selected, nil
}

func svdTruncate(d *DS, keep int) error {
	if d.k > keep {
		d.k = keep
	}
	d.t = d.n
	d.n = keep
	if d.m > keep {
		d.m = keep
	}

	return nil
}

// svdCond is σ₁/σₘᵢₙ read off the condensed diagonal.
func svdCond(d *DS) (float64, error) {
	if d.state < StateCondensed {
		return condProblemViaLU(d)
	}
	var hi, lo float64
	for i := d.l; i < d.n; i++ {
		var s float64
		if d.compact {
			s = d.mat[MatT][i]
		} else {
			s = d.mat[MatA][i*d.ld+i]
		}
		if i == d.l || s > hi {
			hi = s
		}
		if i == d.l || s < lo {
			lo = s
		}
	}
	if lo == 0 {
		return 0, fmt.Errorf("zero singular value: %w", ErrSingular)
	}

	return hi / lo, nil
}

// svdVectors: the singular bases are materialised by Solve; requesting
// them is a no-op kept for driver symmetry.
func svdVectors(d *DS, s Slot, col int) (float64, error) {
	if s != MatU && s != MatVT {
		return 0, fmt.Errorf("vectors into %v: %w", s, ErrUnknownSlot)
	}

	return 0, nil
}
