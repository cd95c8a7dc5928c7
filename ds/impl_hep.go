// SPDX-License-Identifier: MIT

// Package ds: hep variant — the standard symmetric eigenproblem. Two solve
// methods: 0 reduces to tridiagonal form and runs the implicit QL/QR
// iteration (Dsytrd/Dorgtr/Dsteqr), 1 runs cyclic Jacobi sweeps on the
// full block. Compact storage solves the stored (arrow-)tridiagonal
// directly after eliminating the arrow.
package ds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/lapack"
)

func init() {
	registerVariant(HEP, &variantOps{
		methods:       2,
		slots:         []Slot{MatA, MatT, MatQ, MatX, MatY, MatW},
		solve:         hepSolve,
		sort:          hepSort,
		truncate:      hepTruncate,
		updateExtra:   hepUpdateExtraRow,
		cond:          condViaLU,
		translateHarm: harmonicTranslate,
		translateRKS:  rksShiftDiagonal,
		normalize:     normalizeEuclid,
		vectors:       hepVectors,
		function:      evalFunction,
	})
}

// hepSolve dispatches on the selected method. Both methods leave the
// eigenvalues on the diagonal (band 0 when compact) in ascending LAPACK
// order, Q orthogonal, and wr[l:n] filled; wi, when non-nil, is zeroed —
// the symmetric spectrum is real.
func hepSolve(d *DS, wr, wi []float64) error {
	nl := d.n - d.l
	if nl == 0 {
		return nil
	}
	var err error
	switch d.method {
	case 0:
		err = hepSolveQL(d)
	default:
		err = hepSolveJacobi(d)
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

// hepSolveQL is method 0: tridiagonalise, then Dsteqr accumulating the
// orthogonal transform into the trailing block of Q.
func hepSolveQL(d *DS) error {
	nl := d.n - d.l
	q := d.allocateMat(MatQ)
	d.setIdentity(MatQ, d.n)
	var alpha, beta []float64
	if d.compact {
		if err := d.reduceToTridiagonal(nil); err != nil {
			return err
		}
		t := d.mat[MatT]
		alpha = t[d.l:d.n]
		beta = t[d.ld+d.l : d.ld+d.n-1]
		if nl == 1 {
			beta = t[d.ld+d.l : d.ld+d.l] // empty off-diagonal
		}
	} else {
		// reduce the trailing block of A inside Q's storage, then form the
		// orthogonal factor there so Dsteqr can accumulate into it
		a := d.allocateMat(MatA)
		for i := d.l; i < d.n; i++ {
			copy(q[i*d.ld+d.l:i*d.ld+d.n], a[i*d.ld+d.l:i*d.ld+d.n])
		}
		rwork, _ := d.ensureWork(4*d.n, 0)
		alpha = rwork[:nl]
		beta = rwork[nl : 2*nl]
		tau := rwork[2*nl : 3*nl]
		sub := q[d.l*d.ld+d.l:]
		lwork := lworkQuery(func(w []float64) { lp.Dsytrd(blas.Lower, nl, sub, d.ld, alpha, beta, tau, w, -1) })
		work := make([]float64, lwork)
		lp.Dsytrd(blas.Lower, nl, sub, d.ld, alpha, beta, tau, work, lwork)
		lwork = lworkQuery(func(w []float64) { lp.Dorgtr(blas.Lower, nl, sub, d.ld, tau, w, -1) })
		if lwork > len(work) {
			work = make([]float64, lwork)
		}
		lp.Dorgtr(blas.Lower, nl, sub, d.ld, tau, work, lwork)
	}
	steqrWork := make([]float64, maxInt(1, 2*nl-2))
	if ok := lp.Dsteqr(lapack.EVOrig, nl, alpha, beta, q[d.l*d.ld+d.l:], d.ld, steqrWork); !ok {
		return fmt.Errorf("steqr on %d values: %w", nl, ErrNotConverged)
	}
	hepWriteDiagonal(d, alpha)

	return nil
}

// hepSolveJacobi is method 1: cyclic Jacobi on the full trailing block.
func hepSolveJacobi(d *DS) error {
	nl := d.n - d.l
	d.setIdentity(MatQ, d.n)
	w := d.allocateMat(MatW)
	if d.compact {
		d.fullFromCompact(MatW)
	} else {
		d.copyMat(MatW, MatA, d.n, d.n)
	}
	q := d.mat[MatQ]
	tol := tolFor(d.n) * math.Max(d.normFro(w, d.n, d.n), 1)
	maxIter := MaxIterFactor * nl
	var iter int
	for iter = 0; iter < maxIter; iter++ {
		// locate the dominant off-diagonal element of the active block
		var p, r int
		var off float64
		for i := d.l; i < d.n; i++ {
			for j := i + 1; j < d.n; j++ {
				if v := math.Abs(w[i*d.ld+j]); v > off {
					off, p, r = v, i, j
				}
			}
		}
		if off <= tol {
			break
		}
		app := w[p*d.ld+p]
		arr := w[r*d.ld+r]
		apr := w[p*d.ld+r]
		theta := (arr - app) / (2 * apr)
		t := math.Copysign(1/(math.Abs(theta)+math.Sqrt(theta*theta+1)), theta)
		c := 1 / math.Sqrt(t*t+1)
		rot := jRotation{c: c, s: -t * c}
		rot.applySym(w, d.n, d.ld, p, r)
		rot.applyCols(q, d.n, d.ld, p, r)
		w[p*d.ld+r], w[r*d.ld+p] = 0, 0
	}
	if iter == maxIter {
		return fmt.Errorf("jacobi, %d sweeps: %w", maxIter, ErrNotConverged)
	}
	rwork, _ := d.ensureWork(d.n, 0)
	diag := rwork[:d.n]
	for i := d.l; i < d.n; i++ {
		diag[i] = w[i*d.ld+i]
	}
	hepWriteDiagonal(d, diag[d.l:d.n])

	return nil
}

// hepWriteDiagonal installs eigenvalues vals (length n−l) as the condensed
// diagonal factor, clearing the off-diagonal remnants.
func hepWriteDiagonal(d *DS, vals []float64) {
	if d.compact {
		t := d.mat[MatT]
		copy(t[d.l:d.n], vals)
		for i := d.l; i < d.n-1; i++ {
			t[d.ld+i] = 0
		}
		for i := d.l; i < d.k; i++ {
			t[2*d.ld+i] = 0
		}
		d.k = d.l

		return
	}
	a := d.allocateMat(MatA)
	for i := d.l; i < d.n; i++ {
		for j := d.l; j < d.n; j++ {
			a[i*d.ld+j] = 0
		}
		a[i*d.ld+i] = vals[i-d.l]
	}
}

// hepSort permutes the diagonal factor, the eigenvalue arrays and the
// columns of Q with the driver's stable permutation.
func hepSort(d *DS, wr, wi, rr, ri []float64) (int, error) {
	kr, ki := wr, wi
	if rr != nil {
		kr, ki = rr, ri
	}
	perm, selected := d.sortPerm(kr, ki)
	d.permuteVals(perm, wr)
	d.permuteVals(perm, wi)
	if rr != nil {
		d.permuteVals(perm, rr)
		d.permuteVals(perm, ri)
	}
	d.permuteDiagonal(perm)
	d.permuteColumns(MatQ, d.n, perm)
	if d.extrarow {
		d.permuteResidualRow(perm)
	}

	return selected, nil
}

// permuteDiagonal reorders the condensed diagonal under perm.
func (d *DS) permuteDiagonal(perm []int) {
	rwork, _ := d.ensureWork(2*d.n, 0)
	tmp := rwork[d.n : 2*d.n]
	if d.compact {
		t := d.mat[MatT]
		copy(tmp[:d.n], t[:d.n])
		for i := d.l; i < d.n; i++ {
			t[i] = tmp[perm[i]]
		}

		return
	}
	a := d.mat[MatA]
	for i := 0; i < d.n; i++ {
		tmp[i] = a[i*d.ld+i]
	}
	for i := d.l; i < d.n; i++ {
		a[i*d.ld+i] = tmp[perm[i]]
	}
}

// permuteResidualRow reorders the propagated extra-row coefficients.
func (d *DS) permuteResidualRow(perm []int) {
	rwork, _ := d.ensureWork(2*d.n, 0)
	tmp := rwork[d.n : 2*d.n]
	if d.compact {
		t := d.mat[MatT]
		copy(tmp[:d.n], t[2*d.ld:2*d.ld+d.n])
		for i := d.l; i < d.n; i++ {
			t[2*d.ld+i] = tmp[perm[i]]
		}

		return
	}
	a := d.mat[MatA]
	copy(tmp[:d.n], a[d.n*d.ld:d.n*d.ld+d.n])
	for i := d.l; i < d.n; i++ {
		a[d.n*d.ld+i] = tmp[perm[i]]
	}
}

// hepUpdateExtraRow propagates the residual coefficients through Q. For
// compact storage the raw residual is the single β stored past the active
// off-diagonal; the propagated row lands in band 2 (full storage: row n).
func hepUpdateExtraRow(d *DS) error {
	q := d.allocateMat(MatQ)
	if d.compact {
		t := d.mat[MatT]
		beta := t[d.ld+d.n-1]
		for j := d.l; j < d.n; j++ {
			t[2*d.ld+j] = beta * q[(d.n-1)*d.ld+j]
		}

		return nil
	}

	return updateExtraRowThroughQ(d)
}

// hepTruncate keeps the leading keep−l active columns. The propagated
// residual row moves to the new boundary and becomes the arrow of the next
// restart cycle (k = keep).
func hepTruncate(d *DS, keep int) error {
	if d.extrarow {
		if d.compact {
			// band-2 entries [l,keep) already sit at the right place; the
			// trailing β of the truncated problem is the norm convention of
			// the outer solver, keep the stored one
			t := d.mat[MatT]
			t[d.ld+keep-1] = t[d.ld+d.n-1]
		} else {
			a := d.mat[MatA]
			copy(a[keep*d.ld:keep*d.ld+keep], a[d.n*d.ld:d.n*d.ld+keep])
		}
		d.k = keep
	} else if d.k > keep {
		d.k = keep
	}
	d.t = d.n
	d.n = keep

	return nil
}

// hepVectors copies eigenvector columns out of Q. The residual estimate of
// a single requested column is the magnitude of its extra-row coefficient.
func hepVectors(d *DS, s Slot, col int) (float64, error) {
	if s != MatX && s != MatY && s != MatQ {
		return 0, fmt.Errorf("vectors into %v: %w", s, ErrUnknownSlot)
	}
	if s != MatQ {
		lo, hi := d.l, d.n
		if col >= 0 {
			lo, hi = col, col+1
		}
		q := d.allocateMat(MatQ)
		x := d.allocateMat(s)
		for i := 0; i < d.n; i++ {
			for j := lo; j < hi; j++ {
				x[i*d.ld+j] = q[i*d.ld+j]
			}
		}
	}
	if d.extrarow && col >= 0 {
		if d.compact {
			return math.Abs(d.mat[MatT][2*d.ld+col]), nil
		}

		return math.Abs(d.mat[MatA][d.n*d.ld+col]), nil
	}

	return 0, nil
}
