// SPDX-License-Identifier: MIT

// Package ds: workspace manager. Owns the named dense buffers and the
// scalar/real/integer scratch arrays of one DS instance. Slots are lazily
// allocated on first use, zero-initialised, and retained until Reset.
// Scratch arrays grow monotonically and are never preserved across growth.
package ds

import (
	"fmt"
	"io"
)

// slotLen returns the allocation length of slot s for leading dimension ld.
// T is three bands of ld reals, D a single diagonal of ld reals, every
// other slot a full ld×ld block.
func slotLen(s Slot, ld int) int {
	switch s {
	case MatT:
		return 3 * ld
	case MatD:
		return ld
	default:
		return ld * ld
	}
}

// allocateMat ensures slot s has storage. Idempotent; zero-fills only the
// first allocation, later calls preserve contents.
func (d *DS) allocateMat(s Slot) []float64 {
	if d.mat[s] == nil {
		d.mat[s] = make([]float64, slotLen(s, d.ld))
	}

	return d.mat[s]
}

// ensureWork grows the scalar/real and integer scratch arrays to at least
// the requested lengths. Contents are NOT preserved across growth.
func (d *DS) ensureWork(realLen, intLen int) ([]float64, []int) {
	if len(d.rwork) < realLen {
		d.rwork = make([]float64, realLen)
	}
	if len(d.iwork) < intLen {
		d.iwork = make([]int, intLen)
	}

	return d.rwork, d.iwork
}

// copyMat copies the leading rows×cols block from slot src to slot dst,
// respecting the common row stride ld. Both slots must be full matrices.
func (d *DS) copyMat(dst, src Slot, rows, cols int) {
	if src == MatT || src == MatD || dst == MatT || dst == MatD {
		panic("ds: copyMat on compact slot")
	}
	a := d.allocateMat(src)
	b := d.allocateMat(dst)
	for i := 0; i < rows; i++ {
		copy(b[i*d.ld:i*d.ld+cols], a[i*d.ld:i*d.ld+cols])
	}
}

// zeroMat clears the leading rows×cols block of a full slot.
func (d *DS) zeroMat(s Slot, rows, cols int) {
	a := d.allocateMat(s)
	for i := 0; i < rows; i++ {
		row := a[i*d.ld : i*d.ld+cols]
		for j := range row {
			row[j] = 0
		}
	}
}

// setIdentity writes the identity into the leading rows×rows block of a
// full slot, clearing the rest of the block.
func (d *DS) setIdentity(s Slot, rows int) {
	d.zeroMat(s, rows, rows)
	a := d.mat[s]
	for i := 0; i < rows; i++ {
		a[i*d.ld+i] = 1
	}
}

// viewMat writes a human-readable dump of the active block of slot s.
// Compact slots print their bands; full slots print the (n(+1))×max(n,m)
// leading block.
func (d *DS) viewMat(w io.Writer, s Slot) error {
	if d.mat[s] == nil {
		_, err := fmt.Fprintf(w, "%s: (unallocated)\n", s)

		return err
	}
	switch s {
	case MatT:
		if _, err := fmt.Fprintf(w, "T diag  %v\n", d.mat[s][:d.n]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "T off   %v\n", d.mat[s][d.ld:d.ld+maxInt(d.n-1, 0)]); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "T arrow %v\n", d.mat[s][2*d.ld:2*d.ld+d.k])

		return err
	case MatD:
		_, err := fmt.Fprintf(w, "D %v\n", d.mat[s][:d.n])

		return err
	default:
		rows := d.n
		if d.extrarow && (s == MatA || s == MatB) {
			rows++
		}
		cols := maxInt(d.n, d.m)
		if _, err := fmt.Fprintf(w, "%s (%dx%d)\n", s, rows, cols); err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			if _, err := fmt.Fprintf(w, "%v\n", d.mat[s][i*d.ld:i*d.ld+cols]); err != nil {
				return err
			}
		}

		return nil
	}
}

// minInt and maxInt are the two-way int extrema used for dimension and
// workspace sizing.
func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
