// SPDX-License-Identifier: MIT

// Package ds: nhep variant — the standard non-symmetric eigenproblem.
// Solve reduces the active block to upper Hessenberg form and runs the
// multishift QR iteration (Dgehrd/Dorghr/Dhseqr), condensing A to real
// Schur form. Sorting moves 2×2 blocks atomically with Dtrexc; vectors
// come out of the quasi-triangular factor through Dtrevc3, optionally
// refined through an SVD of the bordered shifted factor.
package ds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/lapack"
)

func init() {
	registerVariant(NHEP, &variantOps{
		methods:       1,
		slots:         []Slot{MatA, MatQ, MatX, MatY, MatW},
		solve:         nhepSolve,
		sort:          nhepSort,
		truncate:      nhepTruncate,
		updateExtra:   updateExtraRowThroughQ,
		cond:          condViaLU,
		translateHarm: harmonicTranslate,
		translateRKS:  rksTranslateNHEP,
		normalize:     normalizeEuclid,
		vectors:       nhepVectors,
		function:      evalFunction,
	})
}

// nhepSolve condenses the trailing block of A to real Schur form, Q
// orthogonal, eigenvalues in wr/wi ([l,n), conjugate pairs adjacent with
// the positive imaginary part first). The coupling block A[0:l, l:n) is
// post-multiplied by the accumulated transform so the similarity holds on
// the whole leading matrix.
func nhepSolve(d *DS, wr, wi []float64) error {
	if wi == nil {
		return fmt.Errorf("non-symmetric spectrum needs wi: %w", ErrShortSlice)
	}
	nl := d.n - d.l
	a := d.allocateMat(MatA)
	q := d.allocateMat(MatQ)
	d.setIdentity(MatQ, d.n)
	if nl == 0 {
		return nil
	}
	if nl == 1 {
		wr[d.l], wi[d.l] = a[d.l*d.ld+d.l], 0

		return nil
	}
	sub := a[d.l*d.ld+d.l:]
	qsub := q[d.l*d.ld+d.l:]
	rwork, _ := d.ensureWork(d.n, 0)
	tau := rwork[:nl-1]
	lwork := lworkQuery(func(w []float64) { lp.Dgehrd(nl, 0, nl-1, sub, d.ld, tau, w, -1) })
	work := make([]float64, lwork)
	lp.Dgehrd(nl, 0, nl-1, sub, d.ld, tau, work, lwork)
	// materialise the orthogonal factor in Q before the reflectors are
	// overwritten by the QR iteration
	for i := 0; i < nl; i++ {
		copy(qsub[i*d.ld:i*d.ld+nl], sub[i*d.ld:i*d.ld+nl])
	}
	lwork = lworkQuery(func(w []float64) { lp.Dorghr(nl, 0, nl-1, qsub, d.ld, tau, w, -1) })
	if lwork > len(work) {
		work = make([]float64, lwork)
	}
	lp.Dorghr(nl, 0, nl-1, qsub, d.ld, tau, work, lwork)
	for i := 2; i < nl; i++ { // clear the reflector storage below the Hessenberg band
		for j := 0; j < i-1; j++ {
			sub[i*d.ld+j] = 0
		}
	}
	lwork = lworkQuery(func(w []float64) {
		lp.Dhseqr(lapack.EigenvaluesAndSchur, lapack.SchurOrig, nl, 0, nl-1, sub, d.ld, wr[d.l:d.n], wi[d.l:d.n], qsub, d.ld, w, -1)
	})
	if lwork > len(work) {
		work = make([]float64, lwork)
	}
	unconv := lp.Dhseqr(lapack.EigenvaluesAndSchur, lapack.SchurOrig, nl, 0, nl-1,
		sub, d.ld, wr[d.l:d.n], wi[d.l:d.n], qsub, d.ld, work, lwork)
	if unconv > 0 {
		return fmt.Errorf("qr iteration, %d unconverged: %w", unconv, ErrNotConverged)
	}
	if d.l > 0 {
		d.coupleLockedBlock(MatA, MatQ)
	}

	return nil
}

// coupleLockedBlock post-multiplies the locked-rows × active-columns block
// of slot s by the sub-transform accumulated in slot trans, completing the
// (generalized) similarity on the whole leading matrix.
func (d *DS) coupleLockedBlock(s, trans Slot) {
	a := d.mat[s]
	q := d.mat[trans]
	nl := d.n - d.l
	rwork, _ := d.ensureWork(nl, 0)
	tmp := rwork[:nl]
	for i := 0; i < d.l; i++ {
		for j := 0; j < nl; j++ {
			var v float64
			for p := 0; p < nl; p++ {
				v += a[i*d.ld+d.l+p] * q[(d.l+p)*d.ld+d.l+j]
			}
			tmp[j] = v
		}
		copy(a[i*d.ld+d.l:i*d.ld+d.n], tmp)
	}
}

// blockAt returns the size of the condensed block opening at column j.
func (d *DS) blockAt(j int) int {
	if d.pairFirst(j) {
		return 2
	}

	return 1
}

// rotateSeg realises a Dtrexc block move on a parallel value array: the
// size entries at ifst drop to position ilst, shifting [ilst,ifst) right.
func rotateSeg(v []float64, ilst, ifst, size int) {
	if v == nil || ifst <= ilst {
		return
	}
	var hold [2]float64
	copy(hold[:size], v[ifst:ifst+size])
	copy(v[ilst+size:ifst+size], v[ilst:ifst])
	copy(v[ilst:ilst+size], hold[:size])
}

// schurValues refreshes wr/wi from the diagonal blocks of the condensed
// quasi-triangular factor over [l,n).
func (d *DS) schurValues(wr, wi []float64) {
	a := d.mat[MatA]
	for j := d.l; j < d.n; {
		if d.pairFirst(j) {
			r1, i1, r2, i2 := eig2x2(a[j*d.ld+j], a[j*d.ld+j+1], a[(j+1)*d.ld+j], a[(j+1)*d.ld+j+1])
			wr[j], wr[j+1] = r1, r2
			if wi != nil {
				wi[j], wi[j+1] = i1, i2
			}
			j += 2

			continue
		}
		wr[j] = a[j*d.ld+j]
		if wi != nil {
			wi[j] = 0
		}
		j++
	}
}

// nhepSort reorders the Schur form through the shared selection engine,
// realising each block move with Dtrexc (updates A and Q in one call).
// Row n is untouched by Dtrexc: the raw residual coefficients stay put and
// UpdateExtraRow propagates them through the reordered Q afterwards. wr/wi
// are refreshed from the reordered factor at the end.
func nhepSort(d *DS, wr, wi, rr, ri []float64) (int, error) {
	a := d.allocateMat(MatA)
	q := d.allocateMat(MatQ)
	rwork, _ := d.ensureWork(d.n, 0)
	work := rwork[:d.n]
	selected, err := d.reorderCondensed(wr, wi, rr, ri, func(ifst, ilst int) (int, int, error) {
		fo, lo, ok := lp.Dtrexc(lapack.UpdateSchur, d.n, a, d.ld, q, d.ld, ifst, ilst, work)
		if !ok {
			return fo, lo, fmt.Errorf("schur reordering at block %d: %w", ifst, ErrBreakdown)
		}

		return fo, lo, nil
	})
	if err != nil {
		return selected, err
	}
	d.schurValues(wr, wi)

	return selected, nil
}

// nhepTruncate keeps the leading keep active columns of the Schur form,
// widening by one when the boundary would split a conjugate pair.
func nhepTruncate(d *DS, keep int) error {
	a := d.allocateMat(MatA)
	if keep > d.l && keep < d.n && a[keep*d.ld+keep-1] != 0 {
		keep++
	}
	if d.extrarow {
		copy(a[keep*d.ld:keep*d.ld+keep], a[d.n*d.ld:d.n*d.ld+keep])
		d.k = keep
	} else if d.k > keep {
		d.k = keep
	}
	d.t = d.n
	d.n = keep

	return nil
}

// nhepVectors extracts eigenvectors of the condensed factor. MatX yields
// right eigenvectors, MatY left ones, both back-transformed by Q into the
// original basis. col < 0 computes every active column; a conjugate pair
// occupies two columns holding real and imaginary part. With refined
// extraction active, right vectors come from the smallest singular triplet
// of the bordered shifted factor instead.
func nhepVectors(d *DS, s Slot, col int) (float64, error) {
	switch s {
	case MatX:
		if d.refined {
			return d.nhepRefined(col)
		}

		return d.nhepTrevc(lapack.EVRight, MatX, col)
	case MatY:
		return d.nhepTrevc(lapack.EVLeft, MatY, col)
	}

	return 0, fmt.Errorf("vectors into %v: %w", s, ErrUnknownSlot)
}

// nhepTrevc runs Dtrevc3 for one side. All-column requests use the
// back-transforming mode with Q preloaded into the destination; single
// columns go through selected mode on scratch and are projected by hand.
func (d *DS) nhepTrevc(side lapack.EVSide, dst Slot, col int) (float64, error) {
	a := d.allocateMat(MatA)
	v := d.allocateMat(dst)
	if col < 0 {
		d.copyMat(dst, MatQ, d.n, d.n)
		var vl, vr []float64
		ldvl, ldvr := 1, 1
		if side == lapack.EVLeft {
			vl, ldvl = v, d.ld
		} else {
			vr, ldvr = v, d.ld
		}
		lwork := lworkQuery(func(w []float64) {
			lp.Dtrevc3(side, lapack.EVAllMulQ, nil, d.n, a, d.ld, vl, ldvl, vr, ldvr, d.n, w, -1)
		})
		work := make([]float64, lwork)
		lp.Dtrevc3(side, lapack.EVAllMulQ, nil, d.n, a, d.ld, vl, ldvl, vr, ldvr, d.n, work, lwork)

		return 0, nil
	}
	if col < d.l || col >= d.n {
		return 0, fmt.Errorf("vector column %d: %w", col, ErrBadDimension)
	}
	first := col
	if d.pairSecond(col) {
		first = col - 1
	}
	pair := d.pairFirst(first)
	sel := make([]bool, d.n)
	sel[first] = true
	w := d.allocateMat(MatW)
	d.zeroMat(MatW, d.n, 2)
	var vl, vr []float64
	ldvl, ldvr := 1, 1
	if side == lapack.EVLeft {
		vl, ldvl = w, d.ld
	} else {
		vr, ldvr = w, d.ld
	}
	lwork := lworkQuery(func(wk []float64) {
		lp.Dtrevc3(side, lapack.EVSelected, sel, d.n, a, d.ld, vl, ldvl, vr, ldvr, 2, wk, -1)
	})
	work := make([]float64, lwork)
	lp.Dtrevc3(side, lapack.EVSelected, sel, d.n, a, d.ld, vl, ldvl, vr, ldvr, 2, work, lwork)
	// back-transform the Schur-basis coefficients by Q into columns
	// first(, first+1) of the destination
	q := d.mat[MatQ]
	width := 1
	if pair {
		width = 2
	}
	for i := 0; i < d.n; i++ {
		for c := 0; c < width; c++ {
			var acc float64
			for p := 0; p < d.n; p++ {
				acc += q[i*d.ld+p] * w[p*d.ld+c]
			}
			v[i*d.ld+first+c] = acc
		}
	}
	var rnorm float64
	if d.extrarow && side == lapack.EVRight {
		var re, im float64
		for p := d.l; p < d.n; p++ {
			re += a[d.n*d.ld+p] * w[p*d.ld]
			if pair {
				im += a[d.n*d.ld+p] * w[p*d.ld+1]
			}
		}
		rnorm = math.Hypot(re, im)
	}

	return rnorm, nil
}

// nhepRefined computes the refined eigenvector for a real Ritz value θ:
// the right singular vector of the bordered shifted factor [T−θI; r] with
// smallest singular value, back-transformed by Q. The singular value is
// the exact residual norm of the refined pair.
func (d *DS) nhepRefined(col int) (float64, error) {
	if col < 0 {
		for j := d.l; j < d.n; j++ {
			if d.pairFirst(j) || d.pairSecond(j) {
				continue
			}
			if _, err := d.nhepRefined(j); err != nil {
				return 0, err
			}
		}

		return 0, nil
	}
	if col < d.l || col >= d.n {
		return 0, fmt.Errorf("vector column %d: %w", col, ErrBadDimension)
	}
	if d.pairFirst(col) || d.pairSecond(col) {
		return 0, fmt.Errorf("refined extraction of a complex pair: %w", ErrUnsupported)
	}
	a := d.allocateMat(MatA)
	nl := d.n - d.l
	theta := a[col*d.ld+col]
	rows := nl
	if d.extrarow {
		rows = nl + 1
	}
	w := d.allocateMat(MatW)
	for i := 0; i < nl; i++ {
		for j := 0; j < nl; j++ {
			w[i*d.ld+j] = a[(d.l+i)*d.ld+d.l+j]
		}
		w[i*d.ld+i] -= theta
	}
	if d.extrarow {
		copy(w[nl*d.ld:nl*d.ld+nl], a[d.n*d.ld+d.l:d.n*d.ld+d.n])
	}
	sigma := make([]float64, nl)
	vt := make([]float64, nl*nl)
	lwork := lworkQuery(func(wk []float64) {
		lp.Dgesvd(lapack.SVDNone, lapack.SVDAll, rows, nl, w, d.ld, sigma, nil, 1, vt, nl, wk, -1)
	})
	work := make([]float64, lwork)
	if ok := lp.Dgesvd(lapack.SVDNone, lapack.SVDAll, rows, nl, w, d.ld, sigma, nil, 1, vt, nl, work, lwork); !ok {
		return 0, fmt.Errorf("refined svd at theta=%g: %w", theta, ErrNotConverged)
	}
	// smallest triplet is the last row of VT (singular values descend)
	q := d.mat[MatQ]
	x := d.allocateMat(MatX)
	for i := 0; i < d.n; i++ {
		var acc float64
		for p := 0; p < nl; p++ {
			acc += q[i*d.ld+d.l+p] * vt[(nl-1)*nl+p]
		}
		x[i*d.ld+col] = acc
	}

	return sigma[nl-1], nil
}
