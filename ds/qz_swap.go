// SPDX-License-Identifier: MIT

// Package ds: reordering of the generalized Schur form. Adjacent diagonal
// blocks of the pencil (S, P) are exchanged by the direct-swap method:
// solve the generalized Sylvester equation coupling the two blocks, build
// orthogonal transforms from QR factorizations of the stacked solution,
// and accept the swap only when the rotated pencil is negligibly
// non-triangular. Transforms are applied in place to the factors and the
// stored bases, so repeated moves compose exactly.
package ds

import "math"

// gaussSolveSmall solves the m×m system a·x = rhs in place by Gaussian
// elimination with partial pivoting (a row-major, stride lda). Reports
// false on a pivot at underflow level.
func gaussSolveSmall(a []float64, lda, m int, rhs []float64) bool {
	for k := 0; k < m; k++ {
		piv := k
		for i := k + 1; i < m; i++ {
			if math.Abs(a[i*lda+k]) > math.Abs(a[piv*lda+k]) {
				piv = i
			}
		}
		if math.Abs(a[piv*lda+k]) <= safmin {
			return false
		}
		if piv != k {
			for j := k; j < m; j++ {
				a[k*lda+j], a[piv*lda+j] = a[piv*lda+j], a[k*lda+j]
			}
			rhs[k], rhs[piv] = rhs[piv], rhs[k]
		}
		for i := k + 1; i < m; i++ {
			f := a[i*lda+k] / a[k*lda+k]
			if f == 0 {
				continue
			}
			for j := k; j < m; j++ {
				a[i*lda+j] -= f * a[k*lda+j]
			}
			rhs[i] -= f * rhs[k]
		}
	}
	for k := m - 1; k >= 0; k-- {
		v := rhs[k]
		for j := k + 1; j < m; j++ {
			v -= a[k*lda+j] * rhs[j]
		}
		rhs[k] = v / a[k*lda+k]
	}

	return true
}

// qzSwapAdjacent exchanges the adjacent diagonal blocks of sizes n1 and
// n2 starting at row j1 of the condensed pencil (s, p), updating the
// off-block regions and the stored left (ql) and right (zr) bases.
// Reports false when the Sylvester system is numerically singular or the
// swapped pencil fails the stability test; the pencil is untouched then.
func qzSwapAdjacent(s, p []float64, ld, n int, ql, zr []float64, j1, n1, n2 int) bool {
	m := n1 + n2
	const lds = 4
	var sl, pl [lds * lds]float64
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			sl[i*lds+j] = s[(j1+i)*ld+j1+j]
			pl[i*lds+j] = p[(j1+i)*ld+j1+j]
		}
	}
	var dnorm float64
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			dnorm += sl[i*lds+j]*sl[i*lds+j] + pl[i*lds+j]*pl[i*lds+j]
		}
	}
	dnorm = math.Sqrt(dnorm)
	thresh := math.Max(20*machEps*dnorm, safmin)

	// generalized Sylvester equations S11·R − L·S22 = S12 and
	// P11·R − L·P22 = P12, assembled as one small Kronecker system with
	// unknowns vec(R) then vec(L)
	nu := n1 * n2
	dim := 2 * nu
	var km [64]float64
	var rhs [8]float64
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			ra := i*n2 + j
			rb := nu + ra
			for k := 0; k < n1; k++ {
				km[ra*dim+k*n2+j] += sl[i*lds+k]
				km[rb*dim+k*n2+j] += pl[i*lds+k]
			}
			for k := 0; k < n2; k++ {
				km[ra*dim+nu+i*n2+k] -= sl[(n1+k)*lds+n1+j]
				km[rb*dim+nu+i*n2+k] -= pl[(n1+k)*lds+n1+j]
			}
			rhs[ra] = sl[i*lds+n1+j]
			rhs[rb] = pl[i*lds+n1+j]
		}
	}
	if !gaussSolveSmall(km[:], dim, dim, rhs[:dim]) {
		return false
	}

	// S·[−R; I] = [−L; I]·S22 (and likewise for P): the right transform is
	// the full QR factor of [−R; I], the left one of [−L; I]
	var xb, yb [lds * lds]float64
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			xb[i*lds+j] = -rhs[i*n2+j]
			yb[i*lds+j] = -rhs[nu+i*n2+j]
		}
	}
	for j := 0; j < n2; j++ {
		xb[(n1+j)*lds+j] = 1
		yb[(n1+j)*lds+j] = 1
	}
	var tau, wk [lds]float64
	lp.Dgeqr2(m, n2, xb[:], lds, tau[:n2], wk[:m])
	lp.Dorg2r(m, m, n2, xb[:], lds, tau[:n2], wk[:m])
	lp.Dgeqr2(m, n2, yb[:], lds, tau[:n2], wk[:m])
	lp.Dorg2r(m, m, n2, yb[:], lds, tau[:n2], wk[:m])

	// tentative swap of the local blocks
	var sn2, pn2 [lds * lds]float64
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			var accs, accp float64
			for r := 0; r < m; r++ {
				var ts, tp float64
				for c := 0; c < m; c++ {
					ts += sl[r*lds+c] * xb[c*lds+j]
					tp += pl[r*lds+c] * xb[c*lds+j]
				}
				accs += yb[r*lds+i] * ts
				accp += yb[r*lds+i] * tp
			}
			sn2[i*lds+j] = accs
			pn2[i*lds+j] = accp
		}
	}

	// weak stability test on the entries that must vanish
	var drop float64
	for i := n2; i < m; i++ {
		for j := 0; j < n2; j++ {
			drop += sn2[i*lds+j]*sn2[i*lds+j] + pn2[i*lds+j]*pn2[i*lds+j]
		}
	}
	if math.Sqrt(drop) > thresh {
		return false
	}
	for i := n2; i < m; i++ {
		for j := 0; j < n2; j++ {
			sn2[i*lds+j] = 0
			pn2[i*lds+j] = 0
		}
	}

	// re-triangularize P locally, folding the extra rotations into the
	// transforms before they go global
	if n2 == 2 && pn2[1*lds+0] != 0 {
		cs, sn, _ := lp.Dlartg(pn2[1*lds+1], pn2[1*lds+0])
		for i := 0; i < m; i++ {
			v1, v0 := pn2[i*lds+1], pn2[i*lds+0]
			pn2[i*lds+1] = cs*v1 + sn*v0
			pn2[i*lds+0] = cs*v0 - sn*v1
			v1, v0 = sn2[i*lds+1], sn2[i*lds+0]
			sn2[i*lds+1] = cs*v1 + sn*v0
			sn2[i*lds+0] = cs*v0 - sn*v1
			v1, v0 = xb[i*lds+1], xb[i*lds+0]
			xb[i*lds+1] = cs*v1 + sn*v0
			xb[i*lds+0] = cs*v0 - sn*v1
		}
		pn2[1*lds+0] = 0
	}
	if n1 == 2 && pn2[(m-1)*lds+m-2] != 0 {
		cs, sn, r := lp.Dlartg(pn2[(m-2)*lds+m-2], pn2[(m-1)*lds+m-2])
		pn2[(m-2)*lds+m-2] = r
		pn2[(m-1)*lds+m-2] = 0
		for j := 0; j < m; j++ {
			if j != m-2 {
				va, vb := pn2[(m-2)*lds+j], pn2[(m-1)*lds+j]
				pn2[(m-2)*lds+j] = cs*va + sn*vb
				pn2[(m-1)*lds+j] = cs*vb - sn*va
			}
			va, vb := sn2[(m-2)*lds+j], sn2[(m-1)*lds+j]
			sn2[(m-2)*lds+j] = cs*va + sn*vb
			sn2[(m-1)*lds+j] = cs*vb - sn*va
			va, vb = yb[j*lds+m-2], yb[j*lds+m-1]
			yb[j*lds+m-2] = cs*va + sn*vb
			yb[j*lds+m-1] = cs*vb - sn*va
		}
	}

	// commit: block, off-block rows and columns, bases
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			s[(j1+i)*ld+j1+j] = sn2[i*lds+j]
			p[(j1+i)*ld+j1+j] = pn2[i*lds+j]
		}
	}
	var ts, tp [lds]float64
	for r := 0; r < j1; r++ {
		for j := 0; j < m; j++ {
			var accs, accp float64
			for k := 0; k < m; k++ {
				accs += s[r*ld+j1+k] * xb[k*lds+j]
				accp += p[r*ld+j1+k] * xb[k*lds+j]
			}
			ts[j], tp[j] = accs, accp
		}
		for j := 0; j < m; j++ {
			s[r*ld+j1+j], p[r*ld+j1+j] = ts[j], tp[j]
		}
	}
	for c := j1 + m; c < n; c++ {
		for i := 0; i < m; i++ {
			var accs, accp float64
			for k := 0; k < m; k++ {
				accs += yb[k*lds+i] * s[(j1+k)*ld+c]
				accp += yb[k*lds+i] * p[(j1+k)*ld+c]
			}
			ts[i], tp[i] = accs, accp
		}
		for i := 0; i < m; i++ {
			s[(j1+i)*ld+c], p[(j1+i)*ld+c] = ts[i], tp[i]
		}
	}
	for r := 0; r < n; r++ {
		for j := 0; j < m; j++ {
			var accq, accz float64
			for k := 0; k < m; k++ {
				accq += ql[r*ld+j1+k] * yb[k*lds+j]
				accz += zr[r*ld+j1+k] * xb[k*lds+j]
			}
			ts[j], tp[j] = accq, accz
		}
		for j := 0; j < m; j++ {
			ql[r*ld+j1+j], zr[r*ld+j1+j] = ts[j], tp[j]
		}
	}

	// restore canonical form of any 2×2 block the rotations disturbed
	if n2 == 2 {
		standardizePencilBlock(s, p, ld, n, ql, zr, j1)
	}
	if n1 == 2 {
		standardizePencilBlock(s, p, ld, n, ql, zr, j1+n2)
	}

	return true
}

// qzMoveBlock moves the diagonal block of the condensed pencil that
// contains row ifst to row ilst through a sequence of adjacent swaps,
// carrying the stored bases along. Returns the normalized source and the
// achieved destination rows; ok is false when a swap was rejected (the
// pencil is left in a consistent, partially moved state).
func qzMoveBlock(s, p []float64, ld, n int, ql, zr []float64, ifst, ilst int) (int, int, bool) {
	if ifst > 0 && s[ifst*ld+ifst-1] != 0 {
		ifst--
	}
	nbf := 1
	if ifst+1 < n && s[(ifst+1)*ld+ifst] != 0 {
		nbf = 2
	}
	if ilst > 0 && s[ilst*ld+ilst-1] != 0 {
		ilst--
	}
	here := ifst
	for here > ilst {
		nbnext := 1
		if here >= 2 && s[(here-1)*ld+here-2] != 0 {
			nbnext = 2
		}
		if !qzSwapAdjacent(s, p, ld, n, ql, zr, here-nbnext, nbnext, nbf) {
			return ifst, here, false
		}
		here -= nbnext
	}
	for here < ilst {
		nbnext := 1
		if here+nbf+1 < n && s[(here+nbf+1)*ld+here+nbf] != 0 {
			nbnext = 2
		}
		if !qzSwapAdjacent(s, p, ld, n, ql, zr, here, nbf, nbnext) {
			return ifst, here, false
		}
		here += nbnext
	}

	return ifst, here, true
}
