// SPDX-License-Identifier: MIT

// Package ds: harmonic and rational-Krylov translations of the condensed
// form. Both operate in place and never touch locked columns.
package ds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
)

// harmonicTranslate replaces the condensed factor H by H + g·eᵀ where
// e is the last active coordinate and
//
//	g = ν² · (H − τI)⁻ᵀ e,
//
// so the Ritz values of the updated factor are harmonic Ritz values about
// the target τ with residual weight ν. The rank-one vector is returned in
// g (zero on the locked range) and the norm factor √(1+‖g‖²) — used by
// outer solvers to renormalise the basis — is the first return. In undo
// mode the caller-supplied g is subtracted instead, restoring the factor
// that produced it.
func harmonicTranslate(d *DS, tau, nu float64, undo bool, g []float64) (float64, error) {
	if d.compact {
		return 0, fmt.Errorf("harmonic translation needs full storage: %w", ErrUnsupported)
	}
	a := d.allocateMat(MatA)
	last := d.n - 1
	if undo {
		for i := d.l; i < d.n; i++ {
			a[i*d.ld+last] -= g[i]
		}

		return gammaNorm(g[d.l:d.n]), nil
	}
	nl := d.n - d.l
	w := d.allocateMat(MatW)
	for i := 0; i < nl; i++ {
		for j := 0; j < nl; j++ {
			w[i*d.ld+j] = a[(d.l+i)*d.ld+d.l+j]
		}
		w[i*d.ld+i] -= tau
	}
	rwork, iwork := d.ensureWork(nl, nl)
	if ok := lp.Dgetrf(nl, nl, w, d.ld, iwork[:nl]); !ok {
		return 0, fmt.Errorf("shifted factor at tau=%g: %w", tau, ErrSingular)
	}
	rhs := rwork[:nl]
	for i := range rhs {
		rhs[i] = 0
	}
	rhs[nl-1] = nu * nu
	lp.Dgetrs(blas.Trans, nl, 1, w, d.ld, iwork[:nl], rhs, 1)
	for i := 0; i < d.l; i++ {
		g[i] = 0
	}
	for i := 0; i < nl; i++ {
		g[d.l+i] = rhs[i]
		a[(d.l+i)*d.ld+last] += rhs[i]
	}

	return gammaNorm(g[d.l:d.n]), nil
}

// gammaNorm returns √(1+‖g‖²).
func gammaNorm(g []float64) float64 {
	var s float64
	for _, v := range g {
		s += v * v
	}

	return math.Sqrt(1 + s)
}

// rksShiftDiagonal is the rational-Krylov translation on condensed
// factors: shifting preserves (quasi-)triangular and tridiagonal
// structure, so A − αI is again condensed and Q is untouched. Exact
// round-trip: translating by α then −α restores the factor bitwise up to
// floating-point addition.
func rksShiftDiagonal(d *DS, alpha float64) error {
	if d.compact {
		t := d.allocateMat(MatT)
		for i := d.l; i < d.n; i++ {
			t[i] -= alpha
		}

		return nil
	}
	a := d.allocateMat(MatA)
	for i := d.l; i < d.n; i++ {
		a[i*d.ld+i] -= alpha
	}

	return nil
}

// rksTranslateNHEP is the extra-row aware rational-Krylov translation:
// with a residual row active the (n+1)×n shifted factor is re-factorised
// as Q̃R and the condensed form rebuilt as RQ̃₁ + αI, keeping the Krylov
// relation of the shifted operator. Without the extra row it reduces to
// the diagonal shift.
func rksTranslateNHEP(d *DS, alpha float64) error {
	if !d.extrarow || d.compact {
		return rksShiftDiagonal(d, alpha)
	}
	nl := d.n - d.l
	rows := nl + 1
	a := d.allocateMat(MatA)
	w := d.allocateMat(MatW)
	// W ← bordered shifted factor: rows [l,n] of columns [l,n) of A − α[I;0]
	for i := 0; i < nl; i++ {
		for j := 0; j < nl; j++ {
			w[i*d.ld+j] = a[(d.l+i)*d.ld+d.l+j]
		}
		w[i*d.ld+i] -= alpha
	}
	copy(w[nl*d.ld:nl*d.ld+nl], a[d.n*d.ld+d.l:d.n*d.ld+d.n])
	rwork, _ := d.ensureWork(2*rows, 0)
	tau := rwork[:nl]
	lwork := lworkQuery(func(work []float64) { lp.Dgeqrf(rows, nl, w, d.ld, tau, work, -1) })
	work := make([]float64, lwork)
	lp.Dgeqrf(rows, nl, w, d.ld, tau, work, lwork)
	// R is the upper triangle of W; copy it before forming Q̃
	r := make([]float64, nl*nl)
	for i := 0; i < nl; i++ {
		for j := i; j < nl; j++ {
			r[i*nl+j] = w[i*d.ld+j]
		}
	}
	lwork = lworkQuery(func(work []float64) { lp.Dorgqr(rows, rows, nl, w, d.ld, tau, work, -1) })
	if lwork > len(work) {
		work = make([]float64, lwork)
	}
	lp.Dorgqr(rows, rows, nl, w, d.ld, tau, work, lwork)
	// condensed update: A ← R·Q̃₁ + αI on the active block, residual row
	// from the last row of Q̃ scaled by the last R pivot magnitude
	for i := 0; i < nl; i++ {
		for j := 0; j < nl; j++ {
			var v float64
			for p := i; p < nl; p++ {
				v += r[i*nl+p] * w[p*d.ld+j]
			}
			a[(d.l+i)*d.ld+d.l+j] = v
		}
		a[(d.l+i)*d.ld+d.l+i] += alpha
	}
	for j := 0; j < nl; j++ {
		a[d.n*d.ld+d.l+j] = w[nl*d.ld+j]
	}
	// accumulate the basis change into Q (columns [l,n))
	q := d.allocateMat(MatQ)
	tmp := make([]float64, d.n*nl)
	for i := 0; i < d.n; i++ {
		for j := 0; j < nl; j++ {
			var v float64
			for p := 0; p < nl; p++ {
				v += q[i*d.ld+d.l+p] * w[p*d.ld+j]
			}
			tmp[i*nl+j] = v
		}
	}
	for i := 0; i < d.n; i++ {
		copy(q[i*d.ld+d.l:i*d.ld+d.n], tmp[i*nl:(i+1)*nl])
	}

	return nil
}
