// SPDX-License-Identifier: MIT

// Package ds: plane-rotation kernels for the signature-aware reductions.
// Two congruences preserve a ±1 signature D on the index pair (i,j):
// an ordinary Givens rotation when D_i = D_j, and a hyperbolic rotation
// [[c,s],[s,c]] with c²−s² = 1 when D_i = −D_j. When the hyperbolic
// parameters would need |s| ≥ |c| the pair is first permuted (which swaps
// the two signature entries); equal magnitudes are a genuine breakdown.
package ds

import (
	"fmt"
	"math"
)

// jRotation is one signature-preserving congruence on an index pair.
type jRotation struct {
	c, s  float64
	hyper bool
}

// zeroingRotation builds the rotation on pair (i,j), i<j, that annihilates
// the element pair (f, g) = (S[i][t], S[j][t]) in the sense of RᵀS: the
// transformed row j entry becomes zero. With opposite signature signs a
// pre-swap of i and j may be required; swap reports it so the caller can
// permute S, Q and the signature first (after the swap f and g exchange
// roles). Breakdown (|f| = |g| with opposite signs) is reported as
// ErrBreakdown, fatal for the chosen reduction method.
func zeroingRotation(f, g, di, dj float64) (r jRotation, swap bool, err error) {
	if di == dj {
		cs, sn, _ := lp.Dlartg(f, g)

		return jRotation{c: cs, s: sn}, false, nil
	}
	af, ag := math.Abs(f), math.Abs(g)
	if af == ag {
		return jRotation{}, false, fmt.Errorf("hyperbolic pivot |%g|=|%g|: %w", f, g, ErrBreakdown)
	}
	if af < ag {
		// swap so the dominant entry provides the hyperbolic pivot
		f, g = g, f
		swap = true
	}
	t := g / f
	c := 1 / math.Sqrt(1-t*t)
	s := -t * c

	return jRotation{c: c, s: s, hyper: true}, swap, nil
}

// applySym applies S ← RᵀSR on the full symmetric n×n block a (stride ld)
// for the pair (i,j).
func (r jRotation) applySym(a []float64, n, ld, i, j int) {
	c, s := r.c, r.s
	if r.hyper {
		for t := 0; t < n; t++ { // rows
			vi, vj := a[i*ld+t], a[j*ld+t]
			a[i*ld+t] = c*vi + s*vj
			a[j*ld+t] = s*vi + c*vj
		}
		for t := 0; t < n; t++ { // columns
			vi, vj := a[t*ld+i], a[t*ld+j]
			a[t*ld+i] = c*vi + s*vj
			a[t*ld+j] = s*vi + c*vj
		}

		return
	}
	for t := 0; t < n; t++ {
		vi, vj := a[i*ld+t], a[j*ld+t]
		a[i*ld+t] = c*vi + s*vj
		a[j*ld+t] = -s*vi + c*vj
	}
	for t := 0; t < n; t++ {
		vi, vj := a[t*ld+i], a[t*ld+j]
		a[t*ld+i] = c*vi + s*vj
		a[t*ld+j] = -s*vi + c*vj
	}
}

// applyCols accumulates Q ← QR on columns (i,j) over rows [0,rows).
func (r jRotation) applyCols(q []float64, rows, ld, i, j int) {
	c, s := r.c, r.s
	if r.hyper {
		for t := 0; t < rows; t++ {
			vi, vj := q[t*ld+i], q[t*ld+j]
			q[t*ld+i] = c*vi + s*vj
			q[t*ld+j] = s*vi + c*vj
		}

		return
	}
	for t := 0; t < rows; t++ {
		vi, vj := q[t*ld+i], q[t*ld+j]
		q[t*ld+i] = c*vi + s*vj
		q[t*ld+j] = -s*vi + c*vj
	}
}

// swapPair permutes indices i and j of the symmetric block a, the
// accumulator q and the signature sig (a congruence by the exchange
// permutation).
func swapPair(a []float64, n, ld int, q []float64, qrows int, sig []float64, i, j int) {
	for t := 0; t < n; t++ {
		a[i*ld+t], a[j*ld+t] = a[j*ld+t], a[i*ld+t]
	}
	for t := 0; t < n; t++ {
		a[t*ld+i], a[t*ld+j] = a[t*ld+j], a[t*ld+i]
	}
	swapCols(q, qrows, ld, i, j)
	sig[i], sig[j] = sig[j], sig[i]
}
