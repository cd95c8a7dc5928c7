// SPDX-License-Identifier: MIT

// Package ds: qep variant — the projected quadratic eigenproblem
// (λ²M + λC + K)x = 0 with the coefficients stored as slot A = K,
// slot B = C, slot C = M. Solve builds the first companion linearization
//
//	L₀ = [[0, I], [−K, −C]],  L₁ = [[I, 0], [0, M]],
//
// runs the QZ iteration of qz.go on the 2n×2n pencil and projects the 2n
// eigenvectors back to length n, so the whole spectrum of the quadratic is
// delivered in one call: wr/wi must have length ≥ 2n. Locking is not part
// of the quadratic interface.
package ds

import (
	"fmt"
	"math"
)

func init() {
	registerVariant(QEP, &variantOps{
		methods: 1,
		slots:   []Slot{MatA, MatB, MatC, MatX, MatW},
		solve:   qepSolve,
		sort:    qepSort,
		cond:    condViaLU,
		vectors: qepVectors,
	})
}

func qepSolve(d *DS, wr, wi []float64) error {
	if d.compact {
		return fmt.Errorf("quadratic pencil needs full storage: %w", ErrUnsupported)
	}
	if d.l != 0 {
		return fmt.Errorf("quadratic pencil cannot lock columns: %w", ErrUnsupported)
	}
	tn := 2 * d.n
	if tn > d.ld {
		return fmt.Errorf("linearization order %d exceeds ld=%d: %w", tn, d.ld, ErrBadDimension)
	}
	if len(wr) < tn || wi == nil || len(wi) < tn {
		return fmt.Errorf("quadratic spectrum has %d values: %w", tn, ErrShortSlice)
	}
	k := d.allocateMat(MatA)
	c := d.allocateMat(MatB)
	m := d.allocateMat(MatC)
	l0 := make([]float64, tn*tn)
	l1 := make([]float64, tn*tn)
	for i := 0; i < d.n; i++ {
		l0[i*tn+d.n+i] = 1
		l1[i*tn+i] = 1
		for j := 0; j < d.n; j++ {
			l0[(d.n+i)*tn+j] = -k[i*d.ld+j]
			l0[(d.n+i)*tn+d.n+j] = -c[i*d.ld+j]
			l1[(d.n+i)*tn+d.n+j] = m[i*d.ld+j]
		}
	}
	alphar := make([]float64, tn)
	alphai := make([]float64, tn)
	beta := make([]float64, tn)
	vsl := make([]float64, tn*tn)
	vsr := make([]float64, tn*tn)
	if err := qzFactor(l0, l1, tn, tn, vsl, vsr, alphar, alphai, beta); err != nil {
		return fmt.Errorf("qz iteration on linearization: %w", err)
	}
	for j := 0; j < tn; j++ {
		if alphai[j] != 0 && beta[j] != 0 {
			wr[j], wi[j] = alphar[j]/beta[j], alphai[j]/beta[j]

			continue
		}
		wr[j], wi[j] = pencilValue(alphar[j], 0, beta[j])
	}
	// companion eigenvectors: condensed-pencil back-substitution followed
	// by the right Schur basis
	vr := make([]float64, tn*tn)
	vre := make([]float64, tn)
	vim := make([]float64, tn)
	for j := 0; j < tn; {
		width := 1
		if j+1 < tn && l0[(j+1)*tn+j] != 0 {
			width = 2
		}
		pencilBlockVector(l0, l1, tn, tn, j, false, vre, vim)
		for i := 0; i < tn; i++ {
			var accR, accI float64
			for p := 0; p < tn; p++ {
				accR += vsr[i*tn+p] * vre[p]
				if width == 2 {
					accI += vsr[i*tn+p] * vim[p]
				}
			}
			vr[i*tn+j] = accR
			if width == 2 {
				vr[i*tn+j+1] = accI
			}
		}
		j += width
	}
	d.qepExtract(vr, tn, wi)
	d.t = tn

	return nil
}

// qepExtract projects the companion eigenvectors back to the quadratic:
// both halves of φ = [x; λx] are multiples of x, so the better-scaled one
// is kept and normalised (pairs jointly, as real and imaginary part).
func (d *DS) qepExtract(vr []float64, tn int, wi []float64) {
	x := d.allocateMat(MatX)
	d.zeroMat(MatX, d.n, tn)
	blockNorm := func(off, j, width int) float64 {
		var s float64
		for i := 0; i < d.n; i++ {
			for cc := 0; cc < width; cc++ {
				v := vr[(off+i)*tn+j+cc]
				s += v * v
			}
		}

		return math.Sqrt(s)
	}
	for j := 0; j < tn; {
		width := 1
		if wi[j] != 0 && j+1 < tn {
			width = 2
		}
		off := 0
		norm := blockNorm(0, j, width)
		if lower := blockNorm(d.n, j, width); lower > norm {
			off, norm = d.n, lower
		}
		for i := 0; i < d.n; i++ {
			for cc := 0; cc < width; cc++ {
				x[i*d.ld+j+cc] = vr[(off+i)*tn+j+cc] / norm
			}
		}
		j += width
	}
}

// qepSort permutes the computed spectrum and the eigenvector columns (the
// coefficient matrices are untouched: the quadratic has no condensed
// factor to reorder). Works on the full 2n range.
func qepSort(d *DS, wr, wi, rr, ri []float64) (int, error) {
	tn := 2 * d.n
	kr, ki := wr, wi
	if rr != nil {
		kr, ki = rr, ri
	}
	blocks := scanBlocks(ki, 0, tn)
	if d.sel != nil {
		for b := range blocks {
			blocks[b].sel = d.sel(kr[blocks[b].start], imagAt(ki, blocks[b].start))
		}
	}
	precedes := func(a, b evBlock) bool {
		if a.sel != b.sel {
			return a.sel
		}

		return d.cmp(kr[a.start], imagAt(ki, a.start), kr[b.start], imagAt(ki, b.start)) < 0
	}
	for i := 1; i < len(blocks); i++ {
		b := blocks[i]
		j := i - 1
		for j >= 0 && precedes(b, blocks[j]) {
			blocks[j+1] = blocks[j]
			j--
		}
		blocks[j+1] = b
	}
	if cap(d.perm) < tn {
		d.perm = make([]int, tn)
	}
	perm := d.perm[:tn]
	selected := 0
	at := 0
	for _, b := range blocks {
		if b.sel {
			selected += b.size
		}
		for o := 0; o < b.size; o++ {
			perm[at] = b.start + o
			at++
		}
	}
	rwork, _ := d.ensureWork(2*tn, 0)
	tmp := rwork[:tn]
	for _, vals := range [][]float64{wr, wi, rr, ri} {
		if vals == nil {
			continue
		}
		copy(tmp, vals[:tn])
		for i := 0; i < tn; i++ {
			vals[i] = tmp[perm[i]]
		}
	}
	x := d.allocateMat(MatX)
	cols := rwork[tn : 2*tn]
	for i := 0; i < d.n; i++ {
		copy(cols, x[i*d.ld:i*d.ld+tn])
		for j := 0; j < tn; j++ {
			x[i*d.ld+j] = cols[perm[j]]
		}
	}

	return selected, nil
}

// qepVectors: the projected eigenvectors are materialised by Solve.
func qepVectors(d *DS, s Slot, col int) (float64, error) {
	if s != MatX {
		return 0, fmt.Errorf("vectors into %v: %w", s, ErrUnknownSlot)
	}

	return 0, nil
}
