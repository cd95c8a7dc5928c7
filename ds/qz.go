// SPDX-License-Identifier: MIT

// Package ds: QZ kernels for the generalized real pencil (A, B) — the
// Hessenberg-triangular reduction, the implicitly shifted (single and
// double) QZ iteration and the 2×2 pencil eigenvalue primitive, written
// in the same hand-rolled style as the HZ and qd iterations. Left
// transforms accumulate into ql, right ones into zr, so on exit
// A₀·zr = ql·S and B₀·zr = ql·P with S quasi-triangular and P triangular.
package ds

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
)

// safmin is the smallest positive normal double.
const safmin = 2.2250738585072014e-308

// qzFactor reduces the n×n pencil (a, b) — both row-major with stride
// ld — to generalized real Schur form. ql and zr (same stride, seeded
// here) receive the accumulated left and right orthogonal factors;
// alphar/alphai/beta receive the eigenvalue triples in block order.
func qzFactor(a, b []float64, ld, n int, ql, zr, alphar, alphai, beta []float64) error {
	if n == 1 {
		ql[0], zr[0] = 1, 1
		alphar[0], alphai[0], beta[0] = a[0], 0, b[0]

		return nil
	}
	// orthogonal triangularization of B, folded into A: B = Q·R
	tau := make([]float64, n)
	lwork := lworkQuery(func(w []float64) { lp.Dgeqrf(n, n, b, ld, tau, w, -1) })
	if lw := lworkQuery(func(w []float64) {
		lp.Dormqr(blas.Left, blas.Trans, n, n, n, b, ld, tau, a, ld, w, -1)
	}); lw > lwork {
		lwork = lw
	}
	if lw := lworkQuery(func(w []float64) { lp.Dorgqr(n, n, n, ql, ld, tau, w, -1) }); lw > lwork {
		lwork = lw
	}
	work := make([]float64, maxInt(lwork, n))
	lp.Dgeqrf(n, n, b, ld, tau, work, len(work))
	lp.Dormqr(blas.Left, blas.Trans, n, n, n, b, ld, tau, a, ld, work, len(work))
	// ql starts as the Q of the factorization, zr as the identity
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ql[i*ld+j] = 0
			zr[i*ld+j] = 0
		}
		ql[i*ld+i] = 1
		zr[i*ld+i] = 1
	}
	for i := 1; i < n; i++ {
		copy(ql[i*ld:i*ld+i], b[i*ld:i*ld+i])
	}
	lp.Dorgqr(n, n, n, ql, ld, tau, work, len(work))
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			b[i*ld+j] = 0
		}
	}
	qzHessTri(a, b, ld, n, ql, zr)
	if !qzIterate(a, b, ld, n, ql, zr, alphar, alphai, beta) {
		return ErrNotConverged
	}

	return nil
}

// qzHessTri reduces A to upper Hessenberg while keeping B upper
// triangular: each left rotation that clears an A entry below the first
// subdiagonal is chased by a right rotation restoring B.
func qzHessTri(a, b []float64, ld, n int, ql, zr []float64) {
	bi := blas64.Implementation()
	for jcol := 0; jcol < n-2; jcol++ {
		for jrow := n - 1; jrow > jcol+1; jrow-- {
			// rows (jrow-1, jrow): annihilate a[jrow][jcol]
			cs, sn, r := lp.Dlartg(a[(jrow-1)*ld+jcol], a[jrow*ld+jcol])
			a[(jrow-1)*ld+jcol] = r
			a[jrow*ld+jcol] = 0
			bi.Drot(n-jcol-1, a[(jrow-1)*ld+jcol+1:], 1, a[jrow*ld+jcol+1:], 1, cs, sn)
			bi.Drot(n-jrow+1, b[(jrow-1)*ld+jrow-1:], 1, b[jrow*ld+jrow-1:], 1, cs, sn)
			bi.Drot(n, ql[jrow-1:], ld, ql[jrow:], ld, cs, sn)
			// columns (jrow, jrow-1): annihilate the fill b[jrow][jrow-1]
			cs, sn, r = lp.Dlartg(b[jrow*ld+jrow], b[jrow*ld+jrow-1])
			b[jrow*ld+jrow] = r
			b[jrow*ld+jrow-1] = 0
			bi.Drot(jrow, b[jrow:], ld, b[jrow-1:], ld, cs, sn)
			bi.Drot(n, a[jrow:], ld, a[jrow-1:], ld, cs, sn)
			bi.Drot(n, zr[jrow:], ld, zr[jrow-1:], ld, cs, sn)
		}
	}
}

// pencil2x2Eigen returns the eigenvalues of the 2×2 pencil
// (H, T) with T upper triangular (t21 = 0) as homogeneous pairs
// (wr1, wi)/s1 and (wr2, -wi)/s2, from the characteristic quadratic
// c2·λ² + c1·λ + c0. A complex pair reports wi > 0 with s1 = s2.
func pencil2x2Eigen(h11, h12, h21, h22, t11, t12, t22 float64) (wr1, wi, s1, wr2, s2 float64) {
	c2 := t11 * t22
	c1 := -(h11*t22 + h22*t11 - h21*t12)
	c0 := h11*h22 - h12*h21
	if c2 < 0 {
		c2, c1, c0 = -c2, -c1, -c0
	}
	if c2 == 0 && c1 == 0 && c0 == 0 {
		return 0, 0, 1, 0, 1
	}
	disc := c1*c1 - 4*c2*c0
	if disc < 0 {
		return -c1, math.Sqrt(-disc), 2 * c2, -c1, 2 * c2
	}
	// stable real roots: q carries the dominant term of the quadratic
	q := -0.5 * (c1 + math.Copysign(math.Sqrt(disc), c1))
	wr1, s1 = q, c2
	if q != 0 {
		wr2, s2 = c0, q
	} else {
		wr2, s2 = 0, c2
	}

	return wr1, 0, s1, wr2, s2
}

// qzIterate drives the Hessenberg-triangular pencil to generalized Schur
// form with double-shift QZ sweeps. Reports false when the iteration cap
// is exhausted before every block deflates.
func qzIterate(h, t []float64, ld, n int, ql, zr, alphar, alphai, beta []float64) bool {
	bi := blas64.Implementation()
	ulp := machEps
	anorm := lp.Dlanhs(lapack.Frobenius, n, h, ld, nil)
	bnorm := lp.Dlantr(lapack.Frobenius, blas.Upper, blas.NonUnit, n, n, t, ld, nil)
	atol := math.Max(safmin, ulp*anorm)
	btol := math.Max(safmin, ulp*bnorm)
	ascale := 1 / math.Max(safmin, anorm)
	bscale := 1 / math.Max(safmin, bnorm)

	totalMaxit := MaxIterFactor * n
	ilast := n - 1
	iiter := 0
	eshift := 0.0
	for jiter := 0; jiter < totalMaxit; jiter++ {
		if ilast < 0 {
			break
		}
		// deflation: negligible subdiagonals of H, scanned bottom up
		ifirst := 0
		for j := ilast; j > 0; j-- {
			if math.Abs(h[j*ld+j-1]) <= atol {
				h[j*ld+j-1] = 0
				ifirst = j

				break
			}
			tst1 := math.Abs(h[(j-1)*ld+j-1]) + math.Abs(h[j*ld+j])
			if tst1 == 0 {
				if j >= 2 {
					tst1 += math.Abs(h[(j-1)*ld+j-2])
				}
				if j < ilast {
					tst1 += math.Abs(h[(j+1)*ld+j])
				}
			}
			if math.Abs(h[j*ld+j-1]) <= ulp*tst1 {
				hlj := math.Abs(h[j*ld+j-1])
				hjlm := math.Abs(h[(j-1)*ld+j])
				hjj := math.Abs(h[j*ld+j])
				hdif := math.Abs(h[(j-1)*ld+j-1] - h[j*ld+j])
				if math.Min(hlj, hjlm)*math.Max(hlj, hjlm) <=
					math.Max(safmin, ulp*math.Min(hjj, hdif)*math.Max(hjj, hdif)) {
					h[j*ld+j-1] = 0
					ifirst = j

					break
				}
			}
		}

		if ifirst == ilast {
			alphar[ilast] = h[ilast*ld+ilast]
			alphai[ilast] = 0
			beta[ilast] = t[ilast*ld+ilast]
			ilast--
			iiter = 0

			continue
		}
		if ifirst == ilast-1 {
			wr1, wi, s1, _, _ := pencil2x2Eigen(
				h[ifirst*ld+ifirst], h[ifirst*ld+ilast],
				h[ilast*ld+ifirst], h[ilast*ld+ilast],
				t[ifirst*ld+ifirst], t[ifirst*ld+ilast], t[ilast*ld+ilast])
			if wi == 0 {
				splitRealPencilBlock(h, t, ld, n, ql, zr, ifirst, wr1, s1)
				alphar[ifirst] = h[ifirst*ld+ifirst]
				alphai[ifirst] = 0
				beta[ifirst] = t[ifirst*ld+ifirst]
				alphar[ilast] = h[ilast*ld+ilast]
				alphai[ilast] = 0
				beta[ilast] = t[ilast*ld+ilast]
			} else {
				standardizePencilBlock(h, t, ld, n, ql, zr, ifirst)
				alphar[ifirst] = wr1
				alphai[ifirst] = wi
				beta[ifirst] = s1
				alphar[ilast] = wr1
				alphai[ilast] = -wi
				beta[ilast] = s1
			}
			ilast -= 2
			iiter = 0

			continue
		}

		// infinite eigenvalues: a negligible T diagonal inside the block
		deflInf := false
		if math.Abs(t[ilast*ld+ilast]) <= btol {
			t[ilast*ld+ilast] = 0
			deflInf = true
		} else {
		scanT:
			for jj := ilast - 1; jj >= ifirst; jj-- {
				if math.Abs(t[jj*ld+jj]) > btol {
					continue
				}
				t[jj*ld+jj] = 0
				if jj == 0 || h[jj*ld+jj-1] == 0 {
					// H splits at jj too: push the zero diagonal down with
					// left rotations only
					for jch := jj; jch < ilast; jch++ {
						cs, sn, r := lp.Dlartg(h[jch*ld+jch], h[(jch+1)*ld+jch])
						h[jch*ld+jch] = r
						h[(jch+1)*ld+jch] = 0
						if nrot := n - 1 - jch; nrot > 0 {
							bi.Drot(nrot, h[jch*ld+jch+1:], 1, h[(jch+1)*ld+jch+1:], 1, cs, sn)
							bi.Drot(nrot, t[jch*ld+jch+1:], 1, t[(jch+1)*ld+jch+1:], 1, cs, sn)
						}
						bi.Drot(n, ql[jch:], ld, ql[jch+1:], ld, cs, sn)
						if math.Abs(t[(jch+1)*ld+jch+1]) >= btol {
							if jch+1 >= ilast {
								deflInf = true
							} else {
								ifirst = jch + 1
							}

							break scanT
						}
						t[(jch+1)*ld+jch+1] = 0
					}
					deflInf = true

					break scanT
				}
				// H does not split: alternate left and right rotations to
				// walk the zero down to T(ilast,ilast)
				for jch := jj; jch < ilast; jch++ {
					cs, sn, r := lp.Dlartg(t[jch*ld+jch+1], t[(jch+1)*ld+jch+1])
					t[jch*ld+jch+1] = r
					t[(jch+1)*ld+jch+1] = 0
					if jch < n-2 {
						bi.Drot(n-jch-2, t[jch*ld+jch+2:], 1, t[(jch+1)*ld+jch+2:], 1, cs, sn)
					}
					bi.Drot(n-jch+1, h[jch*ld+jch-1:], 1, h[(jch+1)*ld+jch-1:], 1, cs, sn)
					bi.Drot(n, ql[jch:], ld, ql[jch+1:], ld, cs, sn)
					cs, sn, r = lp.Dlartg(h[(jch+1)*ld+jch], h[(jch+1)*ld+jch-1])
					h[(jch+1)*ld+jch] = r
					h[(jch+1)*ld+jch-1] = 0
					bi.Drot(jch+1, h[jch:], ld, h[jch-1:], ld, cs, sn)
					if jch > 0 {
						bi.Drot(jch, t[jch:], ld, t[jch-1:], ld, cs, sn)
					}
					bi.Drot(n, zr[jch:], ld, zr[jch-1:], ld, cs, sn)
				}
				deflInf = true

				break scanT
			}
		}
		if deflInf {
			// T(ilast,ilast) = 0: clear H(ilast,ilast-1) with a right
			// rotation and deflate β = 0
			cs, sn, r := lp.Dlartg(h[ilast*ld+ilast], h[ilast*ld+ilast-1])
			h[ilast*ld+ilast] = r
			h[ilast*ld+ilast-1] = 0
			if ilast > 0 {
				bi.Drot(ilast, h[ilast:], ld, h[ilast-1:], ld, cs, sn)
				bi.Drot(ilast, t[ilast:], ld, t[ilast-1:], ld, cs, sn)
			}
			bi.Drot(n, zr[ilast:], ld, zr[ilast-1:], ld, cs, sn)
			if t[ilast*ld+ilast] < 0 {
				for j := 0; j <= ilast; j++ {
					h[j*ld+ilast] = -h[j*ld+ilast]
					t[j*ld+ilast] = -t[j*ld+ilast]
				}
				for j := 0; j < n; j++ {
					zr[j*ld+ilast] = -zr[j*ld+ilast]
				}
			}
			alphar[ilast] = h[ilast*ld+ilast]
			alphai[ilast] = 0
			beta[ilast] = t[ilast*ld+ilast]
			ilast--
			iiter = 0
			eshift = 0

			continue
		}

		// one QZ sweep on [ifirst, ilast]
		iiter++
		var s1, wr, wi float64
		if iiter%10 == 0 {
			// exceptional shift
			if float64(totalMaxit)*safmin*math.Abs(h[ilast*ld+ilast-1]) <
				math.Abs(t[(ilast-1)*ld+ilast-1]) {
				eshift = h[ilast*ld+ilast-1] / t[(ilast-1)*ld+ilast-1]
			} else {
				eshift += 1 / (safmin * float64(totalMaxit))
			}
			s1, wr, wi = 1, eshift, 0
		} else {
			jt := ilast - 1
			var wr2, s2 float64
			wr, wi, s1, wr2, s2 = pencil2x2Eigen(
				h[jt*ld+jt], h[jt*ld+ilast], h[ilast*ld+jt], h[ilast*ld+ilast],
				t[jt*ld+jt], t[jt*ld+ilast], t[ilast*ld+ilast])
			if wi == 0 {
				// Wilkinson choice: the root closer to the corner value
				corner := h[ilast*ld+ilast] / t[ilast*ld+ilast]
				if s1 == 0 || (s2 != 0 &&
					math.Abs(wr2/s2-corner) < math.Abs(wr/s1-corner)) {
					wr, s1 = wr2, s2
				}
			}
		}
		if wi == 0 {
			qzSweepSingle(h, t, ld, n, ql, zr, ifirst, ilast, s1, wr)

			continue
		}
		smallTDiag := false
		for k := ifirst; k <= ilast; k++ {
			if math.Abs(t[k*ld+k]) <= btol {
				smallTDiag = true

				break
			}
		}
		if smallTDiag {
			// the scaled double-shift formula divides by the T diagonal
			qzSweepSingle(h, t, ld, n, ql, zr, ifirst, ilast, s1, wr)
		} else {
			qzSweepDouble(h, t, ld, n, ql, zr, ifirst, ilast, ascale, bscale)
		}
	}

	return ilast < 0
}

// qzSweepSingle chases one implicit single-shift bulge through the block
// [ifirst, ilast]: left rotations keep H Hessenberg, right rotations
// keep T triangular.
func qzSweepSingle(h, t []float64, ld, n int, ql, zr []float64, ifirst, ilast int, s1, wr float64) {
	bi := blas64.Implementation()
	temp := h[ifirst*ld+ifirst]
	if s1 != 0 {
		temp -= (wr / s1) * t[ifirst*ld+ifirst]
	}
	cs, sn, _ := lp.Dlartg(temp, h[(ifirst+1)*ld+ifirst])
	for j := ifirst; j < ilast; j++ {
		if j > ifirst {
			f, g := h[j*ld+j-1], h[(j+1)*ld+j-1]
			cs, sn, _ = lp.Dlartg(f, g)
			h[j*ld+j-1] = cs*f + sn*g
			h[(j+1)*ld+j-1] = 0
		}
		bi.Drot(n-j, h[j*ld+j:], 1, h[(j+1)*ld+j:], 1, cs, sn)
		bi.Drot(n-j, t[j*ld+j:], 1, t[(j+1)*ld+j:], 1, cs, sn)
		bi.Drot(n, ql[j:], ld, ql[j+1:], ld, cs, sn)
		if t[(j+1)*ld+j] != 0 {
			cs, sn, _ = lp.Dlartg(t[(j+1)*ld+j+1], t[(j+1)*ld+j])
			t[(j+1)*ld+j+1] = cs*t[(j+1)*ld+j+1] + sn*t[(j+1)*ld+j]
			t[(j+1)*ld+j] = 0
			bi.Drot(minInt(j+2, ilast)+1, h[j+1:], ld, h[j:], ld, cs, sn)
			bi.Drot(j+1, t[j+1:], ld, t[j:], ld, cs, sn)
			bi.Drot(n, zr[j+1:], ld, zr[j:], ld, cs, sn)
		}
	}
}

// qzSweepDouble runs one Francis double-shift sweep with the conjugate
// eigenvalues of the trailing 2×2 as implicit shifts. The bulge is a
// 3-element Householder on the left; the right transform restoring T is
// recovered from a pivoted 2×2 solve.
func qzSweepDouble(h, t []float64, ld, n int, ql, zr []float64, ifirst, ilast int, ascale, bscale float64) {
	bi := blas64.Implementation()
	// first column of the shift polynomial, from the scaled pencil T⁻¹H
	ad11 := (ascale * h[(ilast-1)*ld+ilast-1]) / (bscale * t[(ilast-1)*ld+ilast-1])
	ad21 := (ascale * h[ilast*ld+ilast-1]) / (bscale * t[(ilast-1)*ld+ilast-1])
	ad12 := (ascale * h[(ilast-1)*ld+ilast]) / (bscale * t[ilast*ld+ilast])
	ad22 := (ascale * h[ilast*ld+ilast]) / (bscale * t[ilast*ld+ilast])
	u12 := t[(ilast-1)*ld+ilast] / t[ilast*ld+ilast]
	ad11l := (ascale * h[ifirst*ld+ifirst]) / (bscale * t[ifirst*ld+ifirst])
	ad21l := (ascale * h[(ifirst+1)*ld+ifirst]) / (bscale * t[ifirst*ld+ifirst])
	ad12l := (ascale * h[ifirst*ld+ifirst+1]) / (bscale * t[(ifirst+1)*ld+ifirst+1])
	ad22l := (ascale * h[(ifirst+1)*ld+ifirst+1]) / (bscale * t[(ifirst+1)*ld+ifirst+1])
	ad32l := (ascale * h[(ifirst+2)*ld+ifirst+1]) / (bscale * t[(ifirst+1)*ld+ifirst+1])
	u12l := t[ifirst*ld+ifirst+1] / t[(ifirst+1)*ld+ifirst+1]

	v1 := (ad11-ad11l)*(ad22-ad11l) - ad12*ad21 +
		ad21*u12*ad11l + (ad12l-ad11l*u12l)*ad21l
	v2 := ((ad22l - ad11l) - ad21l*u12l - (ad11 - ad11l) -
		(ad22 - ad11l) + ad21*u12) * ad21l
	v3 := ad32l * ad21l

	var vv [2]float64
	vv[0], vv[1] = v2, v3
	_, tau := lp.Dlarfg(3, v1, vv[:], 1)
	v := [3]float64{1, vv[0], vv[1]}

	for j := ifirst; j < ilast-1; j++ {
		if j > ifirst {
			v1 = h[j*ld+j-1]
			vv[0], vv[1] = h[(j+1)*ld+j-1], h[(j+2)*ld+j-1]
			v1, tau = lp.Dlarfg(3, v1, vv[:], 1)
			v[1], v[2] = vv[0], vv[1]
			h[j*ld+j-1] = v1
			h[(j+1)*ld+j-1] = 0
			h[(j+2)*ld+j-1] = 0
		}
		// left Householder on rows j..j+2
		t2 := tau * v[1]
		t3 := tau * v[2]
		for jc := j; jc < n; jc++ {
			sumh := h[j*ld+jc] + v[1]*h[(j+1)*ld+jc] + v[2]*h[(j+2)*ld+jc]
			h[j*ld+jc] -= tau * sumh
			h[(j+1)*ld+jc] -= t2 * sumh
			h[(j+2)*ld+jc] -= t3 * sumh
			sumt := t[j*ld+jc] + v[1]*t[(j+1)*ld+jc] + v[2]*t[(j+2)*ld+jc]
			t[j*ld+jc] -= tau * sumt
			t[(j+1)*ld+jc] -= t2 * sumt
			t[(j+2)*ld+jc] -= t3 * sumt
		}
		for jr := 0; jr < n; jr++ {
			sum := ql[jr*ld+j] + v[1]*ql[jr*ld+j+1] + v[2]*ql[jr*ld+j+2]
			ql[jr*ld+j] -= tau * sum
			ql[jr*ld+j+1] -= t2 * sum
			ql[jr*ld+j+2] -= t3 * sum
		}

		// right Householder zeroing T(j+1,j) and T(j+2,j) together: solve
		// the 2×2 system with row and column pivoting
		ilpivt := false
		tmp1 := math.Max(math.Abs(t[(j+1)*ld+j+1]), math.Abs(t[(j+1)*ld+j+2]))
		tmp2 := math.Max(math.Abs(t[(j+2)*ld+j+1]), math.Abs(t[(j+2)*ld+j+2]))
		var w11, w12, w21, w22, u1, u2, scl float64
		if math.Max(tmp1, tmp2) < safmin {
			scl, u1, u2 = 0, 1, 0
		} else {
			if tmp1 >= tmp2 {
				w11 = t[(j+1)*ld+j+1]
				w21 = t[(j+2)*ld+j+1]
				w12 = t[(j+1)*ld+j+2]
				w22 = t[(j+2)*ld+j+2]
				u1 = t[(j+1)*ld+j]
				u2 = t[(j+2)*ld+j]
			} else {
				w21 = t[(j+1)*ld+j+1]
				w11 = t[(j+2)*ld+j+1]
				w22 = t[(j+1)*ld+j+2]
				w12 = t[(j+2)*ld+j+2]
				u2 = t[(j+1)*ld+j]
				u1 = t[(j+2)*ld+j]
			}
			if math.Abs(w12) > math.Abs(w11) {
				ilpivt = true
				w11, w12 = w12, w11
				w21, w22 = w22, w21
			}
			piv := w21 / w11
			u2 -= piv * u1
			w22 -= piv * w12
			scl = 1
			if math.Abs(w22) < safmin {
				scl, u2 = 0, 1
				u1 = -w12 / w11
			} else {
				if math.Abs(w22) < math.Abs(u2) {
					scl = math.Abs(w22 / u2)
				}
				if math.Abs(w11) < math.Abs(u1) {
					scl = math.Min(scl, math.Abs(w11/u1))
				}
				u2 = (scl * u2) / w22
				u1 = (scl*u1 - w12*u2) / w11
			}
		}
		if ilpivt {
			u1, u2 = u2, u1
		}
		t1 := math.Sqrt(scl*scl + u1*u1 + u2*u2)
		tauR := 1 + scl/t1
		vs := -1 / (scl + t1)
		v[0], v[1], v[2] = 1, vs*u1, vs*u2
		t2 = tauR * v[1]
		t3 = tauR * v[2]
		for jr := 0; jr <= j+2; jr++ {
			sumh := h[jr*ld+j] + v[1]*h[jr*ld+j+1] + v[2]*h[jr*ld+j+2]
			h[jr*ld+j] -= tauR * sumh
			h[jr*ld+j+1] -= t2 * sumh
			h[jr*ld+j+2] -= t3 * sumh
			sumt := t[jr*ld+j] + v[1]*t[jr*ld+j+1] + v[2]*t[jr*ld+j+2]
			t[jr*ld+j] -= tauR * sumt
			t[jr*ld+j+1] -= t2 * sumt
			t[jr*ld+j+2] -= t3 * sumt
		}
		if j+3 <= ilast {
			jr := j + 3
			sumh := h[jr*ld+j] + v[1]*h[jr*ld+j+1] + v[2]*h[jr*ld+j+2]
			h[jr*ld+j] -= tauR * sumh
			h[jr*ld+j+1] -= t2 * sumh
			h[jr*ld+j+2] -= t3 * sumh
		}
		for jr := 0; jr < n; jr++ {
			sum := zr[jr*ld+j] + v[1]*zr[jr*ld+j+1] + v[2]*zr[jr*ld+j+2]
			zr[jr*ld+j] -= tauR * sum
			zr[jr*ld+j+1] -= t2 * sum
			zr[jr*ld+j+2] -= t3 * sum
		}
		t[(j+1)*ld+j] = 0
		t[(j+2)*ld+j] = 0
	}

	// the bulge collapses to a 2×2 tail, finished with Givens rotations
	j := ilast - 1
	cs, sn, r := lp.Dlartg(h[j*ld+j-1], h[(j+1)*ld+j-1])
	h[j*ld+j-1] = r
	h[(j+1)*ld+j-1] = 0
	bi.Drot(n-j, h[j*ld+j:], 1, h[(j+1)*ld+j:], 1, cs, sn)
	bi.Drot(n-j, t[j*ld+j:], 1, t[(j+1)*ld+j:], 1, cs, sn)
	bi.Drot(n, ql[j:], ld, ql[j+1:], ld, cs, sn)

	cs, sn, r = lp.Dlartg(t[(j+1)*ld+j+1], t[(j+1)*ld+j])
	t[(j+1)*ld+j+1] = r
	t[(j+1)*ld+j] = 0
	bi.Drot(ilast+1, h[j+1:], ld, h[j:], ld, cs, sn)
	bi.Drot(ilast, t[j+1:], ld, t[j:], ld, cs, sn)
	bi.Drot(n, zr[j+1:], ld, zr[j:], ld, cs, sn)
}

// standardizePencilBlock brings the complex-pair 2×2 block at j into
// canonical form: equal H diagonals with h21·h12 < 0, T diagonal and
// positive. The similarity comes from Dlanv2; the T fill it creates is
// removed by one right rotation and the signs fixed by row negation.
func standardizePencilBlock(h, t []float64, ld, n int, ql, zr []float64, j int) {
	bi := blas64.Implementation()
	aa, bb, cc, dd, _, _, _, _, cs, sn := lp.Dlanv2(
		h[j*ld+j], h[j*ld+j+1], h[(j+1)*ld+j], h[(j+1)*ld+j+1])
	h[j*ld+j], h[j*ld+j+1] = aa, bb
	h[(j+1)*ld+j], h[(j+1)*ld+j+1] = cc, dd
	if nh := n - j - 2; nh > 0 {
		bi.Drot(nh, h[j*ld+j+2:], 1, h[(j+1)*ld+j+2:], 1, cs, sn)
	}
	if j > 0 {
		bi.Drot(j, h[j:], ld, h[j+1:], ld, cs, sn)
	}
	bi.Drot(n-j, t[j*ld+j:], 1, t[(j+1)*ld+j:], 1, cs, sn)
	bi.Drot(j+2, t[j:], ld, t[j+1:], ld, cs, sn)
	bi.Drot(n, ql[j:], ld, ql[j+1:], ld, cs, sn)
	bi.Drot(n, zr[j:], ld, zr[j+1:], ld, cs, sn)

	if t21 := t[(j+1)*ld+j]; t21 != 0 {
		cs2, sn2, _ := lp.Dlartg(t[(j+1)*ld+j+1], t21)
		bi.Drot(j+2, t[j:], ld, t[j+1:], ld, cs2, -sn2)
		t[(j+1)*ld+j] = 0
		bi.Drot(j+2, h[j:], ld, h[j+1:], ld, cs2, -sn2)
		bi.Drot(n, zr[j:], ld, zr[j+1:], ld, cs2, -sn2)
	}
	if t[j*ld+j] < 0 {
		bi.Dscal(n, -1, h[j*ld:], 1)
		bi.Dscal(n-j, -1, t[j*ld+j:], 1)
		bi.Dscal(n, -1, ql[j:], ld)
	}
	if t[(j+1)*ld+j+1] < 0 {
		bi.Dscal(n, -1, h[(j+1)*ld:], 1)
		bi.Dscal(n-j-1, -1, t[(j+1)*ld+j+1:], 1)
		bi.Dscal(n, -1, ql[j+1:], ld)
	}
}

// splitRealPencilBlock separates a 2×2 block at j whose pencil spectrum
// is real into two 1×1 blocks. The right rotation sends the null vector
// of s1·H − wr1·T to the first coordinate; the left rotation then
// re-triangularizes T, which forces h21 to zero as well.
func splitRealPencilBlock(h, t []float64, ld, n int, ql, zr []float64, j int, wr1, s1 float64) {
	bi := blas64.Implementation()
	c11 := s1*h[j*ld+j] - wr1*t[j*ld+j]
	c12 := s1*h[j*ld+j+1] - wr1*t[j*ld+j+1]
	c21 := s1 * h[(j+1)*ld+j]
	c22 := s1*h[(j+1)*ld+j+1] - wr1*t[(j+1)*ld+j+1]
	var v1, v2 float64
	if math.Abs(c11)+math.Abs(c12) >= math.Abs(c21)+math.Abs(c22) {
		v1, v2 = -c12, c11
	} else {
		v1, v2 = -c22, c21
	}
	if v1 == 0 && v2 == 0 {
		v1 = 1
	}
	cs, sn, _ := lp.Dlartg(v1, v2)
	// columns (j, j+1): first column of the rotated pencil is the null
	// direction
	bi.Drot(j+2, h[j:], ld, h[j+1:], ld, cs, sn)
	bi.Drot(j+2, t[j:], ld, t[j+1:], ld, cs, sn)
	bi.Drot(n, zr[j:], ld, zr[j+1:], ld, cs, sn)
	// rows (j, j+1): clear the subdiagonal of T (and with it H)
	f, g := t[j*ld+j], t[(j+1)*ld+j]
	if s1 == 0 || math.Abs(f)+math.Abs(g) == 0 {
		f, g = h[j*ld+j], h[(j+1)*ld+j]
	}
	cs, sn, _ = lp.Dlartg(f, g)
	bi.Drot(n-j, h[j*ld+j:], 1, h[(j+1)*ld+j:], 1, cs, sn)
	bi.Drot(n-j, t[j*ld+j:], 1, t[(j+1)*ld+j:], 1, cs, sn)
	bi.Drot(n, ql[j:], ld, ql[j+1:], ld, cs, sn)
	h[(j+1)*ld+j] = 0
	t[(j+1)*ld+j] = 0
}
