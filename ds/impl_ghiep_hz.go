// SPDX-License-Identifier: MIT

// Package ds: HZ iteration for the signed tridiagonal pencil (T, Ω) —
// an implicitly shifted QR-type process built from signature-preserving
// rotations. Deflation peels converged 1×1 blocks off the bottom; an
// isolated 2×2 block is split when its spectrum is real and kept as an
// irreducible (complex-pair) block otherwise. Hyperbolic pre-swaps are
// folded into the chase; a chase that hits a pivot collapse is rolled
// back and retried with a perturbed shift before the whole sweep is
// declared broken down.
package ds

import (
	"errors"
	"fmt"
	"math"
)

// errHZRetry aborts one chase attempt; the caller restores the snapshot
// and perturbs the shift.
var errHZRetry = errors.New("hz chase aborted")

// hzIteration drives the active block of w (tridiagonal, symmetric,
// stride ld) to block-diagonal form, accumulating every congruence into q
// and tracking signature swaps in sig.
func (d *DS) hzIteration(w, q, sig []float64) error {
	hi := d.n - 1
	maxIter := MaxIterFactor * maxInt(d.n-d.l, 1)
	iter := 0
	var saveW, saveQ, saveSig []float64
	for hi > d.l {
		if d.hzNegligible(w, hi-1) {
			w[hi*d.ld+hi-1], w[(hi-1)*d.ld+hi] = 0, 0
			hi--

			continue
		}
		if hi-1 == d.l || d.hzNegligible(w, hi-2) {
			if hi-2 >= d.l {
				w[(hi-1)*d.ld+hi-2], w[(hi-2)*d.ld+hi-1] = 0, 0
			}
			d.splitBlock(w, q, sig, hi-1)
			hi -= 2

			continue
		}
		lo := hi - 1
		for lo > d.l && !d.hzNegligible(w, lo-1) {
			lo--
		}
		if lo > d.l {
			w[lo*d.ld+lo-1], w[(lo-1)*d.ld+lo] = 0, 0
		}
		if iter >= maxIter {
			return fmt.Errorf("hz iteration, %d sweeps: %w", maxIter, ErrNotConverged)
		}
		iter++
		if saveW == nil {
			saveW = make([]float64, d.n*d.ld)
			saveQ = make([]float64, d.n*d.ld)
			saveSig = make([]float64, d.n)
		}
		copy(saveW, w[:d.n*d.ld])
		copy(saveQ, q[:d.n*d.ld])
		copy(saveSig, sig[:d.n])
		shift := d.hzShift(w, sig, hi)
		scale := math.Abs(w[hi*d.ld+hi]) + math.Abs(w[hi*d.ld+hi-1]) + 1
		done := false
		for attempt := 0; attempt < 6 && !done; attempt++ {
			if err := d.hzStep(w, q, sig, lo, hi, shift); err == nil {
				done = true

				continue
			}
			copy(w[:d.n*d.ld], saveW)
			copy(q[:d.n*d.ld], saveQ)
			copy(sig[:d.n], saveSig)
			// exceptional shift, deliberately incommensurate with the scale
			shift += float64(attempt+1) * 0.273 * scale
		}
		if !done {
			return fmt.Errorf("hz chase at row %d: %w", hi, ErrBreakdown)
		}
	}

	return nil
}

// hzNegligible reports whether the off-diagonal below row i is below the
// deflation threshold.
func (d *DS) hzNegligible(w []float64, i int) bool {
	off := math.Abs(w[(i+1)*d.ld+i])

	return off <= tolFor(d.n)*math.Max(math.Abs(w[i*d.ld+i])+math.Abs(w[(i+1)*d.ld+i+1]), 1)
}

// hzShift is the Wilkinson-style shift: the eigenvalue of the trailing
// 2×2 of ΩT closest to the corner entry, its real part when the pair is
// complex.
func (d *DS) hzShift(w, sig []float64, hi int) float64 {
	m11 := sig[hi-1] * w[(hi-1)*d.ld+hi-1]
	m12 := sig[hi-1] * w[(hi-1)*d.ld+hi]
	m21 := sig[hi] * w[hi*d.ld+hi-1]
	m22 := sig[hi] * w[hi*d.ld+hi]
	r1, i1, r2, _ := eig2x2(m11, m12, m21, m22)
	if i1 != 0 {
		return r1
	}
	if math.Abs(r1-m22) < math.Abs(r2-m22) {
		return r1
	}

	return r2
}

// hzStep runs one implicit single-shift chase on the irreducible range
// [lo, hi]. The opening rotation is proportional to the first column of
// ΩT − σI; subsequent rotations restore the tridiagonal band. A rotation
// that asks for a hyperbolic pre-swap gets one: the index pair is
// permuted (together with its signature entries) and the rotation is
// rebuilt, exactly as the full reduction does. The swap exchanges the
// bulge with the pivot row, and the displaced band entry is picked up by
// the next chase step. Only a genuine pivot collapse aborts the attempt.
func (d *DS) hzStep(w, q, sig []float64, lo, hi int, shift float64) error {
	f := sig[lo]*w[lo*d.ld+lo] - shift
	g := sig[lo+1] * w[(lo+1)*d.ld+lo]
	r, swap, err := zeroingRotation(f, g, sig[lo], sig[lo+1])
	if swap {
		swapPair(w, d.n, d.ld, q, d.n, sig, lo, lo+1)
		f = sig[lo]*w[lo*d.ld+lo] - shift
		g = sig[lo+1] * w[(lo+1)*d.ld+lo]
		r, swap, err = zeroingRotation(f, g, sig[lo], sig[lo+1])
	}
	if swap || err != nil {
		return errHZRetry
	}
	r.applySym(w, d.n, d.ld, lo, lo+1)
	r.applyCols(q, d.n, d.ld, lo, lo+1)
	for p := lo; p+2 <= hi; p++ {
		f = w[(p+1)*d.ld+p]
		g = w[(p+2)*d.ld+p]
		if g == 0 {
			break
		}
		r, swap, err = zeroingRotation(f, g, sig[p+1], sig[p+2])
		if swap {
			swapPair(w, d.n, d.ld, q, d.n, sig, p+1, p+2)
			f = w[(p+1)*d.ld+p]
			g = w[(p+2)*d.ld+p]
			r, swap, err = zeroingRotation(f, g, sig[p+1], sig[p+2])
		}
		if swap || err != nil {
			return errHZRetry
		}
		r.applySym(w, d.n, d.ld, p+1, p+2)
		r.applyCols(q, d.n, d.ld, p+1, p+2)
		w[(p+2)*d.ld+p], w[p*d.ld+p+2] = 0, 0
	}

	return nil
}

// splitBlock diagonalises the isolated 2×2 block at (j, j+1) when its
// pencil spectrum is real: a Jacobi rotation for equal signature signs, a
// hyperbolic congruence for opposite ones. A complex pair — or the
// degenerate hyperbolic case |a₁+a₂| = 2|b| — leaves the block
// irreducible.
func (d *DS) splitBlock(w, q, sig []float64, j int) {
	b := w[(j+1)*d.ld+j]
	if b == 0 {
		return
	}
	a1 := w[j*d.ld+j]
	a2 := w[(j+1)*d.ld+j+1]
	if sig[j] == sig[j+1] {
		theta := (a2 - a1) / (2 * b)
		t := math.Copysign(1/(math.Abs(theta)+math.Sqrt(theta*theta+1)), theta)
		c := 1 / math.Sqrt(t*t+1)
		r := jRotation{c: c, s: -t * c}
		r.applySym(w, d.n, d.ld, j, j+1)
		r.applyCols(q, d.n, d.ld, j, j+1)
		w[(j+1)*d.ld+j], w[j*d.ld+j+1] = 0, 0

		return
	}
	sum := a1 + a2
	disc := sum*sum - 4*b*b
	if disc <= 0 {
		return // complex pair (or defective): stays a 2×2 block
	}
	// stable root of b·x² + (a₁+a₂)·x + b = 0 with |x| < 1
	x := -2 * b / (sum + math.Copysign(math.Sqrt(disc), sum))
	c := 1 / math.Sqrt(1-x*x)
	r := jRotation{c: c, s: x * c, hyper: true}
	r.applySym(w, d.n, d.ld, j, j+1)
	r.applyCols(q, d.n, d.ld, j, j+1)
	w[(j+1)*d.ld+j], w[j*d.ld+j+1] = 0, 0
}
