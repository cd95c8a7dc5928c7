// SPDX-License-Identifier: MIT

// Package ds: ghep variant — the generalized symmetric-definite pencil
// (A, B) with B positive definite. Solve reduces to a standard symmetric
// problem through the Cholesky factor of B (Dpotrf plus triangular
// solves), so the computed basis is B-orthonormal and the condensed pencil
// is (Λ, I). Sorting, truncation and vector extraction then coincide with
// the diagonal-form machinery of the symmetric variant.
package ds

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
)

func init() {
	registerVariant(GHEP, &variantOps{
		methods:      1,
		slots:        []Slot{MatA, MatB, MatQ, MatX, MatY, MatW},
		solve:        ghepSolve,
		sort:         hepSort,
		truncate:     hepTruncate,
		updateExtra:  updateExtraRowThroughQ,
		cond:         condViaLU,
		translateRKS: rksShiftDiagonal,
		normalize:    normalizeEuclid,
		vectors:      hepVectors,
		function:     evalFunction,
	})
}

// ghepSolve diagonalises the active pencil. B = LLᵀ, the congruent
// standard problem L⁻¹AL⁻ᵀ is solved with the tridiagonal QL/QR path, and
// the eigenvectors are pulled back as Q = L⁻ᵀY. On exit A holds Λ on its
// active diagonal, B the identity, and QᵀBQ = I over the active columns.
// A Cholesky failure means the mass matrix lost definiteness — reported
// as breakdown so the outer solver can restart with a fresh basis.
func ghepSolve(d *DS, wr, wi []float64) error {
	if d.compact {
		return fmt.Errorf("generalized pencil needs full storage: %w", ErrUnsupported)
	}
	nl := d.n - d.l
	a := d.allocateMat(MatA)
	b := d.allocateMat(MatB)
	q := d.allocateMat(MatQ)
	d.setIdentity(MatQ, d.n)
	if nl == 0 {
		return nil
	}
	w := d.allocateMat(MatW)
	for i := 0; i < nl; i++ {
		copy(w[i*d.ld:i*d.ld+nl], b[(d.l+i)*d.ld+d.l:(d.l+i)*d.ld+d.n])
	}
	if ok := lp.Dpotrf(blas.Lower, nl, w, d.ld); !ok {
		return fmt.Errorf("mass matrix not positive definite: %w", ErrBreakdown)
	}
	bl := blas64.Implementation()
	qsub := q[d.l*d.ld+d.l:]
	for i := 0; i < nl; i++ {
		copy(qsub[i*d.ld:i*d.ld+nl], a[(d.l+i)*d.ld+d.l:(d.l+i)*d.ld+d.n])
	}
	// congruence to the standard problem: C = L⁻¹ A L⁻ᵀ
	bl.Dtrsm(blas.Left, blas.Lower, blas.NoTrans, blas.NonUnit, nl, nl, 1, w, d.ld, qsub, d.ld)
	bl.Dtrsm(blas.Right, blas.Lower, blas.Trans, blas.NonUnit, nl, nl, 1, w, d.ld, qsub, d.ld)
	rwork, _ := d.ensureWork(4*d.n, 0)
	alpha := rwork[:nl]
	beta := rwork[nl : 2*nl]
	tau := rwork[2*nl : 3*nl]
	lwork := lworkQuery(func(wk []float64) { lp.Dsytrd(blas.Lower, nl, qsub, d.ld, alpha, beta, tau, wk, -1) })
	work := make([]float64, lwork)
	lp.Dsytrd(blas.Lower, nl, qsub, d.ld, alpha, beta, tau, work, lwork)
	lwork = lworkQuery(func(wk []float64) { lp.Dorgtr(blas.Lower, nl, qsub, d.ld, tau, wk, -1) })
	if lwork > len(work) {
		work = make([]float64, lwork)
	}
	lp.Dorgtr(blas.Lower, nl, qsub, d.ld, tau, work, lwork)
	steqrWork := make([]float64, maxInt(1, 2*nl-2))
	if ok := lp.Dsteqr(lapack.EVOrig, nl, alpha, beta, qsub, d.ld, steqrWork); !ok {
		return fmt.Errorf("steqr on %d values: %w", nl, ErrNotConverged)
	}
	// pull the eigenvectors back to the B-inner geometry: Q = L⁻ᵀ Y
	bl.Dtrsm(blas.Left, blas.Lower, blas.Trans, blas.NonUnit, nl, nl, 1, w, d.ld, qsub, d.ld)
	for i := d.l; i < d.n; i++ {
		for j := d.l; j < d.n; j++ {
			a[i*d.ld+j] = 0
			b[i*d.ld+j] = 0
		}
		a[i*d.ld+i] = alpha[i-d.l]
		b[i*d.ld+i] = 1
		wr[i] = alpha[i-d.l]
		if wi != nil {
			wi[i] = 0
		}
	}

	return nil
}
