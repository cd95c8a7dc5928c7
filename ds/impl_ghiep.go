// SPDX-License-Identifier: MIT

// Package ds: ghiep variant — the generalized symmetric-indefinite pencil
// (A, Ω) with Ω = diag(±1). The solvers work with signature-preserving
// congruences, so the accumulated basis satisfies QᵀΩQ = Ω̃ rather than
// QᵀQ = I; pairs of signature entries with opposite signs can glue into
// irreducible 2×2 blocks carrying complex-conjugate eigenvalues, and the
// condensed form is block diagonal instead of diagonal. Method 0 is the
// implicit HZ iteration, method 1 the qd/dqds recurrence with inverse
// iteration for the vectors.
package ds

import (
	"fmt"
	"math"
)

func init() {
	registerVariant(GHIEP, &variantOps{
		methods:     2,
		slots:       []Slot{MatA, MatB, MatT, MatD, MatQ, MatX, MatY, MatW},
		solve:       ghiepSolve,
		sort:        ghiepSort,
		truncate:    hepTruncate,
		updateExtra: hepUpdateExtraRow,
		cond:        ghiepCond,
		normalize:   ghiepNormalize,
		vectors:     ghiepVectors,
	})
}

// fullFromCompact materialises the compact band representation as a full
// symmetric matrix in slot dst: diagonal from band 0, the arrow row k
// coupling columns [l,k) from band 2, and the tridiagonal coupling from
// band 1 past the arrow head. The locked range contributes its diagonal
// only.
func (d *DS) fullFromCompact(dst Slot) {
	w := d.allocateMat(dst)
	d.zeroMat(dst, d.n, d.n)
	t := d.allocateMat(MatT)
	for i := 0; i < d.n; i++ {
		w[i*d.ld+i] = t[i]
	}
	for i := d.l; i < d.k; i++ {
		w[d.k*d.ld+i] = t[2*d.ld+i]
		w[i*d.ld+d.k] = t[2*d.ld+i]
	}
	for i := d.k; i < d.n-1; i++ {
		w[(i+1)*d.ld+i] = t[d.ld+i]
		w[i*d.ld+i+1] = t[d.ld+i]
	}
}

// reduceToTridiagonal eliminates the arrow of the compact representation
// with signature-preserving rotations, accumulating into the existing Q.
// sig is the ±1 metric (nil for the Euclidean case); it is permuted in
// place when hyperbolic pivoting swaps index pairs. On return the bands
// hold a plain tridiagonal and the arrow head has collapsed (k = l).
func (d *DS) reduceToTridiagonal(sig []float64) error {
	w := d.allocateMat(MatW)
	d.fullFromCompact(MatW)
	q := d.allocateMat(MatQ)
	if sig == nil {
		rwork, _ := d.ensureWork(d.n, 0)
		sig = rwork[:d.n]
		for i := range sig {
			sig[i] = 1
		}
	}
	if err := d.reduceFullTridiag(w, q, sig); err != nil {
		return err
	}
	t := d.mat[MatT]
	for i := d.l; i < d.n; i++ {
		t[i] = w[i*d.ld+i]
	}
	for i := d.l; i < d.n-1; i++ {
		t[d.ld+i] = w[(i+1)*d.ld+i]
	}
	for i := d.l; i < d.k; i++ {
		t[2*d.ld+i] = 0
	}
	d.k = d.l

	return nil
}

// reduceFullTridiag reduces the active block of the full symmetric matrix
// w to tridiagonal form by a column sweep of zeroing congruences, chasing
// no fill: entry (i, j) is annihilated against the pivot (j+1, j), working
// bottom-up so earlier zeros survive. Rotations accumulate into q and the
// signature travels with hyperbolic pre-swaps.
func (d *DS) reduceFullTridiag(w, q, sig []float64) error {
	for j := d.l; j < d.n-2; j++ {
		for i := d.n - 1; i > j+1; i-- {
			g := w[i*d.ld+j]
			if g == 0 {
				continue
			}
			f := w[(j+1)*d.ld+j]
			r, swap, err := zeroingRotation(f, g, sig[j+1], sig[i])
			if swap {
				swapPair(w, d.n, d.ld, q, d.n, sig, j+1, i)
				f, g = w[(j+1)*d.ld+j], w[i*d.ld+j]
				r, _, err = zeroingRotation(f, g, sig[j+1], sig[i])
			}
			if err != nil {
				return err
			}
			r.applySym(w, d.n, d.ld, j+1, i)
			r.applyCols(q, d.n, d.ld, j+1, i)
			w[i*d.ld+j], w[j*d.ld+i] = 0, 0
		}
	}

	return nil
}

// signature returns the active ±1 metric in slot D, syncing it from the
// diagonal of B under full storage. An all-zero (never set) metric
// defaults to the definite one; anything other than ±1 entries is
// rejected.
func (d *DS) signature() ([]float64, error) {
	sg := d.allocateMat(MatD)
	if !d.compact {
		b := d.allocateMat(MatB)
		for i := 0; i < d.n; i++ {
			sg[i] = b[i*d.ld+i]
		}
	}
	allZero := true
	for i := 0; i < d.n; i++ {
		if sg[i] != 0 {
			allZero = false

			break
		}
	}
	if allZero {
		for i := 0; i < d.n; i++ {
			sg[i] = 1
		}
	}
	for i := 0; i < d.n; i++ {
		if sg[i] != 1 && sg[i] != -1 {
			return nil, fmt.Errorf("signature[%d]=%v: %w", i, sg[i], ErrZeroSignature)
		}
	}

	return sg, nil
}

// ghiepSolve condenses the active pencil to block-diagonal form. The
// matrix is materialised in W, reduced to tridiagonal by congruences, and
// handed to the method-specific iteration; eigenvalues are then read off
// the 1×1 and 2×2 blocks of the result.
func ghiepSolve(d *DS, wr, wi []float64) error {
	if wi == nil {
		return fmt.Errorf("indefinite spectrum needs wi: %w", ErrShortSlice)
	}
	sig, err := d.signature()
	if err != nil {
		return err
	}
	q := d.allocateMat(MatQ)
	d.setIdentity(MatQ, d.n)
	w := d.allocateMat(MatW)
	if d.compact {
		d.fullFromCompact(MatW)
	} else {
		d.copyMat(MatW, MatA, d.n, d.n)
	}
	orig := make([]float64, d.n)
	copy(orig, sig[:d.n])
	if err := d.reduceFullTridiag(w, q, sig); err != nil {
		return err
	}
	switch d.method {
	case 0:
		err = d.hzIteration(w, q, sig)
	default:
		err = d.dqdsSolve(w, q, sig, orig)
	}
	if err != nil {
		return err
	}
	d.ghiepCondense(w, sig)
	d.ghiepValues(wr, wi)

	return nil
}

// ghiepCondense writes the block-diagonal result back to the condensed
// storage: bands 0/1 plus the signature under compact layout, the active
// blocks of A and B otherwise. Slot D carries the final signature in both
// layouts.
func (d *DS) ghiepCondense(w, sig []float64) {
	if d.compact {
		t := d.mat[MatT]
		for i := d.l; i < d.n; i++ {
			t[i] = w[i*d.ld+i]
		}
		for i := d.l; i < d.n-1; i++ {
			t[d.ld+i] = w[(i+1)*d.ld+i]
		}
		for i := d.l; i < d.k; i++ {
			t[2*d.ld+i] = 0
		}
		d.k = d.l

		return
	}
	a := d.mat[MatA]
	b := d.mat[MatB]
	for i := d.l; i < d.n; i++ {
		for j := d.l; j < d.n; j++ {
			a[i*d.ld+j] = 0
			b[i*d.ld+j] = 0
		}
		a[i*d.ld+i] = w[i*d.ld+i]
		b[i*d.ld+i] = sig[i]
	}
	for i := d.l; i < d.n-1; i++ {
		a[(i+1)*d.ld+i] = w[(i+1)*d.ld+i]
		a[i*d.ld+i+1] = w[i*d.ld+i+1]
	}
}

// ghiepPairFirst reports whether column j opens an irreducible 2×2 block
// of the condensed pencil. The compact check stops short of index n−1,
// where band 1 stores the residual coupling, not a block entry.
func (d *DS) ghiepPairFirst(j int) bool {
	if j+1 >= d.n || j < d.l {
		return false
	}
	if d.compact {
		return d.mat[MatT][d.ld+j] != 0
	}

	return d.mat[MatA][(j+1)*d.ld+j] != 0
}

// ghiepBlock reads the 2×2 condensed block opening at j together with its
// signature pair.
func (d *DS) ghiepBlock(j int) (a1, b, a2, d1, d2 float64) {
	sg := d.mat[MatD]
	d1, d2 = sg[j], sg[j+1]
	if d.compact {
		t := d.mat[MatT]

		return t[j], t[d.ld+j], t[j+1], d1, d2
	}
	a := d.mat[MatA]

	return a[j*d.ld+j], a[(j+1)*d.ld+j], a[(j+1)*d.ld+j+1], d1, d2
}

// ghiepValues reads the spectrum off the condensed blocks: λ = d·α for
// 1×1 blocks, the eigenvalues of Ω₂ₓ₂⁻¹S₂ₓ₂ for pairs.
func (d *DS) ghiepValues(wr, wi []float64) {
	sg := d.mat[MatD]
	for j := d.l; j < d.n; {
		if d.ghiepPairFirst(j) {
			a1, b, a2, d1, d2 := d.ghiepBlock(j)
			r1, i1, r2, i2 := eig2x2(d1*a1, d1*b, d2*b, d2*a2)
			wr[j], wr[j+1] = r1, r2
			wi[j], wi[j+1] = i1, i2
			j += 2

			continue
		}
		var diag float64
		if d.compact {
			diag = d.mat[MatT][j]
		} else {
			diag = d.mat[MatA][j*d.ld+j]
		}
		wr[j], wi[j] = sg[j]*diag, 0
		j++
	}
}

// ghiepSort permutes the block-diagonal condensed pencil: eigenvalues,
// diagonal blocks, signature and the columns of Q move together; 2×2
// blocks stay atomic through the pair structure of the imaginary parts.
func ghiepSort(d *DS, wr, wi, rr, ri []float64) (int, error) {
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
	d.permuteBlockDiagonal(perm)
	d.permuteColumns(MatQ, d.n, perm)
	if d.extrarow {
		d.permuteResidualRow(perm)
	}

	return selected, nil
}

// permuteBlockDiagonal reorders the 1×1/2×2 blocks and the signature of
// the condensed pencil under perm (blocks are never split by the sort
// driver, so the permutation is a congruence).
func (d *DS) permuteBlockDiagonal(perm []int) {
	sg := d.allocateMat(MatD)
	rwork, _ := d.ensureWork(4*d.n, 0)
	diag := rwork[:d.n]
	off := rwork[d.n : 2*d.n]
	tsig := rwork[2*d.n : 3*d.n]
	copy(tsig[:d.n], sg[:d.n])
	if d.compact {
		t := d.mat[MatT]
		copy(diag[:d.n], t[:d.n])
		copy(off[:d.n], t[d.ld:d.ld+d.n])
		for i := d.l; i < d.n; i++ {
			t[i] = diag[perm[i]]
			sg[i] = tsig[perm[i]]
		}
		for i := d.l; i < d.n-1; i++ {
			t[d.ld+i] = 0
			if perm[i+1] == perm[i]+1 && off[perm[i]] != 0 {
				t[d.ld+i] = off[perm[i]]
			}
		}

		return
	}
	a := d.mat[MatA]
	b := d.mat[MatB]
	for i := 0; i < d.n; i++ {
		diag[i] = a[i*d.ld+i]
		if i+1 < d.n {
			off[i] = a[(i+1)*d.ld+i]
		}
	}
	for i := d.l; i < d.n; i++ {
		for j := d.l; j < d.n; j++ {
			a[i*d.ld+j] = 0
		}
	}
	for i := d.l; i < d.n; i++ {
		a[i*d.ld+i] = diag[perm[i]]
		sg[i] = tsig[perm[i]]
		b[i*d.ld+i] = sg[i]
		if i+1 < d.n && perm[i+1] == perm[i]+1 && off[perm[i]] != 0 {
			a[(i+1)*d.ld+i] = off[perm[i]]
			a[i*d.ld+i+1] = off[perm[i]]
		}
	}
}

// ghiepCond bounds the conditioning of the accumulated congruence: Q is
// Ω-orthogonal, so Q⁻¹ = Ω̃QᵀΩ and κ₂(Q) ≤ ‖Q‖²_F.
func ghiepCond(d *DS) (float64, error) {
	q := d.allocateMat(MatQ)
	f := d.normFro(q, d.n, d.n)

	return f * f, nil
}

// ghiepNormalize rescales columns of s to unit indefinite norm magnitude,
// pairs jointly in the Euclidean sense.
func ghiepNormalize(d *DS, s Slot, col int) error {
	if s != MatQ && s != MatX && s != MatY {
		return fmt.Errorf("normalize %v: %w", s, ErrUnknownSlot)
	}
	a := d.allocateMat(s)
	lo, hi := d.l, d.n
	if col >= 0 {
		if col < d.l || col >= d.n {
			return fmt.Errorf("normalize column %d: %w", col, ErrBadDimension)
		}
		lo, hi = col, col+1
		if d.ghiepPairFirst(col - 1) {
			lo = col - 1
			hi = col + 1
		} else if d.ghiepPairFirst(col) {
			hi = col + 2
		}
	}
	for j := lo; j < hi; j++ {
		if d.ghiepPairFirst(j) && j+1 < hi {
			norm := math.Hypot(colNorm2(a, d.n, d.ld, j), colNorm2(a, d.n, d.ld, j+1))
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

// ghiepVectors assembles eigenvectors from the block-diagonal condensed
// form: a 1×1 block contributes its Q column directly; an irreducible 2×2
// block with eigenvalues p ± iq contributes the real and imaginary part of
// Q_blk·[b, μ−m₁₁]ᵀ in its two columns. The residual estimate of a single
// column is the magnitude of its extra-row coefficient (pairs jointly).
func ghiepVectors(d *DS, s Slot, col int) (float64, error) {
	if s != MatX && s != MatY {
		return 0, fmt.Errorf("vectors into %v: %w", s, ErrUnknownSlot)
	}
	lo, hi := d.l, d.n
	if col >= 0 {
		if col < d.l || col >= d.n {
			return 0, fmt.Errorf("vector column %d: %w", col, ErrBadDimension)
		}
		lo, hi = col, col+1
		if d.ghiepPairFirst(col - 1) {
			lo = col - 1
			hi = col + 1
		} else if d.ghiepPairFirst(col) {
			hi = col + 2
		}
	}
	q := d.allocateMat(MatQ)
	x := d.allocateMat(s)
	for j := lo; j < hi; j++ {
		if d.ghiepPairFirst(j) && j+1 < hi {
			a1, b, a2, d1, d2 := d.ghiepBlock(j)
			m11, m12 := d1*a1, d1*b
			r1, i1, _, _ := eig2x2(m11, m12, d2*b, d2*a2)
			vre0, vre1 := m12, r1-m11
			vim1 := i1
			for i := 0; i < d.n; i++ {
				x[i*d.ld+j] = q[i*d.ld+j]*vre0 + q[i*d.ld+j+1]*vre1
				x[i*d.ld+j+1] = q[i*d.ld+j+1] * vim1
			}
			j++

			continue
		}
		for i := 0; i < d.n; i++ {
			x[i*d.ld+j] = q[i*d.ld+j]
		}
	}
	if err := ghiepNormalize(d, s, col); err != nil {
		return 0, err
	}
	if d.extrarow && col >= 0 {
		var re, im float64
		if d.compact {
			t := d.mat[MatT]
			re = t[2*d.ld+lo]
			if hi == lo+2 {
				im = t[2*d.ld+lo+1]
			}
		} else {
			a := d.mat[MatA]
			re = a[d.n*d.ld+lo]
			if hi == lo+2 {
				im = a[d.n*d.ld+lo+1]
			}
		}

		return math.Hypot(re, im), nil
	}

	return 0, nil
}
