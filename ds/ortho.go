// SPDX-License-Identifier: MIT

// Package ds: orthogonalisation kernels. Classical Gram–Schmidt with one
// re-orthogonalisation pass for the Euclidean case, and the pseudo
// (signature) variant for the indefinite D-inner product, which reflects
// instead of dividing when the prospective norm is non-positive.
package ds

import (
	"fmt"
	"math"
)

// Orthogonalize orthonormalises columns [l, cols) of slot s against the
// locked columns and each other under the Euclidean inner product, using
// classical Gram–Schmidt with a single re-orthogonalisation sweep (CGS2).
// A column whose norm collapses below the working tolerance is replaced by
// zero and not counted. Returns the number of independent columns among
// [l, cols).
func (d *DS) Orthogonalize(s Slot, cols int) (rank int, err error) {
	if err = d.ready(); err != nil {
		return 0, fmt.Errorf("Orthogonalize: %w", err)
	}
	if !d.ops.declares(s) || s == MatT || s == MatD {
		return 0, fmt.Errorf("Orthogonalize(%v): %w", s, ErrUnknownSlot)
	}
	if cols < d.l || cols > d.n {
		return 0, fmt.Errorf("Orthogonalize(%v, %d): %w", s, cols, ErrBadDimension)
	}
	a := d.allocateMat(s)
	tol := tolFor(d.n)
	for j := d.l; j < cols; j++ {
		norm0 := colNorm2(a, d.n, d.ld, j)
		for pass := 0; pass < 2; pass++ { // CGS with one repeat
			for p := 0; p < j; p++ {
				var h float64
				for i := 0; i < d.n; i++ {
					h += a[i*d.ld+p] * a[i*d.ld+j]
				}
				for i := 0; i < d.n; i++ {
					a[i*d.ld+j] -= h * a[i*d.ld+p]
				}
			}
		}
		norm := colNorm2(a, d.n, d.ld, j)
		if norm <= tol*math.Max(norm0, 1) {
			scaleCol(a, d.n, d.ld, j, 0)

			continue
		}
		scaleCol(a, d.n, d.ld, j, 1/norm)
		rank++
	}

	return rank, nil
}

// PseudoOrthogonalize orthogonalises columns [l, cols) of slot s under the
// indefinite inner product ⟨x,y⟩ = yᵀ·diag(sig)·x. sig holds the metric
// signature of length ≥ n (pass nil to use slot D). Every processed column
// is normalised to |⟨v,v⟩| = 1; a negative indefinite norm is handled by
// reflection — the column's Gram sign, written into newSig (length ≥ cols,
// may be nil), becomes −1. When the norm magnitude collapses the breakdown
// is recoverable: the achieved rank is returned together with
// ErrBreakdown and the already processed columns remain valid.
func (d *DS) PseudoOrthogonalize(s Slot, cols int, sig, newSig []float64) (rank int, err error) {
	if err = d.ready(); err != nil {
		return 0, fmt.Errorf("PseudoOrthogonalize: %w", err)
	}
	if !d.ops.declares(s) || s == MatT || s == MatD {
		return 0, fmt.Errorf("PseudoOrthogonalize(%v): %w", s, ErrUnknownSlot)
	}
	if cols < d.l || cols > d.n {
		return 0, fmt.Errorf("PseudoOrthogonalize(%v, %d): %w", s, cols, ErrBadDimension)
	}
	if sig == nil {
		sig = d.allocateMat(MatD)
	}
	if len(sig) < d.n {
		return 0, fmt.Errorf("PseudoOrthogonalize: sig: %w", ErrShortSlice)
	}
	for i := 0; i < d.n; i++ {
		if sig[i] != 1 && sig[i] != -1 {
			return 0, fmt.Errorf("PseudoOrthogonalize: sig[%d]=%v: %w", i, sig[i], ErrZeroSignature)
		}
	}
	a := d.allocateMat(s)
	// gram[p] is the indefinite norm sign of the processed column p; locked
	// columns are assumed ±1-normal already and their sign is measured.
	gram, _ := d.ensureWork(cols+d.n, 0)
	gram = gram[:cols]
	for p := 0; p < d.l; p++ {
		var nu float64
		for i := 0; i < d.n; i++ {
			nu += sig[i] * a[i*d.ld+p] * a[i*d.ld+p]
		}
		gram[p] = math.Copysign(1, nu)
	}
	tol := tolFor(d.n)
	for j := d.l; j < cols; j++ {
		for pass := 0; pass < 2; pass++ {
			for p := 0; p < j; p++ {
				var h float64
				for i := 0; i < d.n; i++ {
					h += sig[i] * a[i*d.ld+p] * a[i*d.ld+j]
				}
				h *= gram[p]
				for i := 0; i < d.n; i++ {
					a[i*d.ld+j] -= h * a[i*d.ld+p]
				}
			}
		}
		var nu float64 // indefinite norm squared of column j
		for i := 0; i < d.n; i++ {
			nu += sig[i] * a[i*d.ld+j] * a[i*d.ld+j]
		}
		if math.Abs(nu) <= tol {
			d.copySig(newSig, gram, j)

			return rank, fmt.Errorf("column %d: %w", j, ErrBreakdown)
		}
		scaleCol(a, d.n, d.ld, j, 1/math.Sqrt(math.Abs(nu)))
		gram[j] = math.Copysign(1, nu)
		rank++
	}
	d.copySig(newSig, gram, cols)

	return rank, nil
}

// copySig publishes the leading upTo Gram signs into the caller's array.
func (d *DS) copySig(dst, gram []float64, upTo int) {
	if dst == nil {
		return
	}
	copy(dst[:upTo], gram[:upTo])
}
