// SPDX-License-Identifier: MIT

// Package ds: gnhep variant — the generalized non-symmetric pencil (A, B)
// with no structure assumed. Solve runs the QZ iteration of qz.go,
// condensing A to quasi-triangular and B to triangular form with two
// orthogonal bases: Q holds the right Schur vectors, Z the left ones.
// Sorting moves pencil blocks with the direct-swap kernel, vectors come
// from the complex back-substitution in qz_vectors.go.
package ds

import (
	"fmt"
	"math"
)

func init() {
	registerVariant(GNHEP, &variantOps{
		methods:   1,
		slots:     []Slot{MatA, MatB, MatQ, MatZ, MatX, MatY, MatW},
		solve:     gnhepSolve,
		sort:      gnhepSort,
		truncate:  gnhepTruncate,
		cond:      condViaLU,
		normalize: normalizeEuclid,
		vectors:   gnhepVectors,
	})
}

// pencilValue maps one generalized eigenvalue triple (αr, αi, β) to a
// (re, im) pair. β = 0 is an infinite eigenvalue, reported as ±Inf so the
// sort comparators can push it wherever the caller wants it.
func pencilValue(ar, ai, bet float64) (float64, float64) {
	if bet != 0 {
		return ar / bet, ai / bet
	}
	if ar < 0 {
		return math.Inf(-1), 0
	}

	return math.Inf(1), 0
}

// gnhepSolve condenses the active pencil to generalized real Schur form.
func gnhepSolve(d *DS, wr, wi []float64) error {
	if d.compact {
		return fmt.Errorf("generalized pencil needs full storage: %w", ErrUnsupported)
	}
	if wi == nil {
		return fmt.Errorf("non-symmetric spectrum needs wi: %w", ErrShortSlice)
	}
	nl := d.n - d.l
	a := d.allocateMat(MatA)
	b := d.allocateMat(MatB)
	q := d.allocateMat(MatQ)
	z := d.allocateMat(MatZ)
	d.setIdentity(MatQ, d.n)
	d.setIdentity(MatZ, d.n)
	if nl == 0 {
		return nil
	}
	asub := a[d.l*d.ld+d.l:]
	bsub := b[d.l*d.ld+d.l:]
	rwork, _ := d.ensureWork(3*d.n, 0)
	alphar := rwork[:nl]
	alphai := rwork[nl : 2*nl]
	beta := rwork[2*nl : 3*nl]
	if err := qzFactor(asub, bsub, d.ld, nl,
		z[d.l*d.ld+d.l:], q[d.l*d.ld+d.l:], alphar, alphai, beta); err != nil {
		return fmt.Errorf("qz iteration: %w", err)
	}
	for i := 0; i < nl; i++ {
		wr[d.l+i], wi[d.l+i] = pencilValue(alphar[i], alphai[i], beta[i])
	}
	if d.l > 0 {
		d.coupleLockedBlock(MatA, MatQ)
		d.coupleLockedBlock(MatB, MatQ)
	}

	return nil
}

// gnhepSort reorders the generalized Schur form through the shared
// selection engine. Each block move applies its orthogonal transforms
// directly to the condensed factors and the stored bases, so repeated
// moves compose without any intermediate accumulators. wr/wi are
// refreshed from the reordered pencil blocks at the end.
func gnhepSort(d *DS, wr, wi, rr, ri []float64) (int, error) {
	a := d.allocateMat(MatA)
	b := d.allocateMat(MatB)
	q := d.allocateMat(MatQ)
	z := d.allocateMat(MatZ)
	selected, err := d.reorderCondensed(wr, wi, rr, ri, func(ifst, ilst int) (int, int, error) {
		fo, lo, ok := qzMoveBlock(a, b, d.ld, d.n, z, q, ifst, ilst)
		if !ok {
			return fo, lo, fmt.Errorf("pencil reordering at block %d: %w", ifst, ErrBreakdown)
		}

		return fo, lo, nil
	})
	if err != nil {
		return selected, err
	}
	d.pencilValues(wr, wi)

	return selected, nil
}

// pencilValues refreshes wr/wi from the diagonal blocks of the condensed
// pencil: λ = s/p for 1×1 blocks, eigenvalues of S₂ₓ₂·P₂ₓ₂⁻¹ for pairs.
func (d *DS) pencilValues(wr, wi []float64) {
	a := d.mat[MatA]
	b := d.mat[MatB]
	for j := d.l; j < d.n; {
		if d.pairFirst(j) {
			s11, s12 := a[j*d.ld+j], a[j*d.ld+j+1]
			s21, s22 := a[(j+1)*d.ld+j], a[(j+1)*d.ld+j+1]
			p11, p12 := b[j*d.ld+j], b[j*d.ld+j+1]
			p22 := b[(j+1)*d.ld+j+1]
			det := p11 * p22
			// M = S·P⁻¹ with P upper triangular 2×2
			m11 := s11 * p22 / det
			m12 := (s12*p11 - s11*p12) / det
			m21 := s21 * p22 / det
			m22 := (s22*p11 - s21*p12) / det
			r1, i1, r2, i2 := eig2x2(m11, m12, m21, m22)
			wr[j], wr[j+1] = r1, r2
			wi[j], wi[j+1] = i1, i2
			j += 2

			continue
		}
		wr[j], wi[j] = pencilValue(a[j*d.ld+j], 0, b[j*d.ld+j])
		j++
	}
}

// gnhepTruncate keeps the leading keep active columns, widening by one
// when the boundary would split a conjugate pair.
func gnhepTruncate(d *DS, keep int) error {
	a := d.allocateMat(MatA)
	if keep > d.l && keep < d.n && a[keep*d.ld+keep-1] != 0 {
		keep++
	}
	if d.k > keep {
		d.k = keep
	}
	d.t = d.n
	d.n = keep

	return nil
}

// gnhepVectors extracts generalized eigenvectors of the condensed pencil:
// right ones into MatX (back-transformed by Q), left ones into MatY
// (back-transformed by Z). A conjugate pair occupies two columns holding
// real and imaginary part.
func gnhepVectors(d *DS, s Slot, col int) (float64, error) {
	var basis Slot
	var left bool
	switch s {
	case MatX:
		basis = MatQ
	case MatY:
		basis, left = MatZ, true
	default:
		return 0, fmt.Errorf("vectors into %v: %w", s, ErrUnknownSlot)
	}
	a := d.allocateMat(MatA)
	b := d.allocateMat(MatB)
	v := d.allocateMat(s)
	bas := d.allocateMat(basis)
	rwork, _ := d.ensureWork(2*d.n, 0)
	vre := rwork[:d.n]
	vim := rwork[d.n : 2*d.n]
	lo, hi := d.l, d.n
	if col >= 0 {
		if col < d.l || col >= d.n {
			return 0, fmt.Errorf("vector column %d: %w", col, ErrBadDimension)
		}
		lo = col
		if d.pairSecond(col) {
			lo = col - 1
		}
		hi = lo + 1
		if d.pairFirst(lo) {
			hi = lo + 2
		}
	}
	for j := lo; j < hi; {
		width := 1
		if d.pairFirst(j) {
			width = 2
		}
		pencilBlockVector(a, b, d.ld, d.n, j, left, vre, vim)
		for i := 0; i < d.n; i++ {
			var accR, accI float64
			for p := 0; p < d.n; p++ {
				accR += bas[i*d.ld+p] * vre[p]
				if width == 2 {
					accI += bas[i*d.ld+p] * vim[p]
				}
			}
			v[i*d.ld+j] = accR
			if width == 2 {
				v[i*d.ld+j+1] = accI
			}
		}
		j += width
	}

	return 0, nil
}
