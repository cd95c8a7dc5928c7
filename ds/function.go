// SPDX-License-Identifier: MIT

// Package ds: functions of the condensed matrix, consumed by
// matrix-function outer solvers. The source is the active block of the
// condensed factor; the result lands in the matching block of slot W.
// Method selection per function (SetFunMethod):
//
//	exp:     0 scaling-and-squaring [6/6] Padé, 1 scaled Taylor
//	sqrt:    0 Denman–Beavers (coupled), 1 Newton–Schulz, 2 cubic
//	         Newton–Schulz (Sadeghi-type higher order)
//	invsqrt: 0 Denman–Beavers (coupled), 1 cubic Newton–Schulz
//	log:     0 inverse scaling and squaring over Denman–Beavers roots
//	phi1:    0 bordered exponential
//
// All iterations run on compact nl×nl scratch (nl = n−l) with stride nl;
// convergence is declared at a tolFor-scaled relative tolerance and
// exceeding the iteration cap surfaces ErrNotConverged.
package ds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
)

// evalFunction dispatches ComputeFunction for the variants that support
// matrix functions (hep, nhep).
func evalFunction(d *DS, f FunKind) error {
	nl := d.n - d.l
	if nl == 0 {
		return nil
	}
	src := make([]float64, nl*nl)
	d.condensedBlock(src, nl)
	dst := make([]float64, nl*nl)
	var err error
	switch f {
	case FnExp:
		switch d.funmethod {
		case 0:
			err = expPade(dst, src, nl)
		case 1:
			err = expTaylor(dst, src, nl)
		default:
			err = ErrBadMethod
		}
	case FnSqrt:
		switch d.funmethod {
		case 0:
			err = sqrtDenmanBeavers(dst, nil, src, nl)
		case 1:
			err = sqrtNewtonSchulz(dst, src, nl)
		case 2:
			err = invsqrtCubic(nil, dst, src, nl)
		default:
			err = ErrBadMethod
		}
	case FnInvSqrt:
		switch d.funmethod {
		case 0:
			err = sqrtDenmanBeavers(nil, dst, src, nl)
		case 1:
			err = invsqrtCubic(dst, nil, src, nl)
		default:
			err = ErrBadMethod
		}
	case FnLog:
		if d.funmethod != 0 {
			err = ErrBadMethod
		} else {
			err = logInverseScaling(dst, src, nl)
		}
	case FnPhi1:
		if d.funmethod != 0 {
			err = ErrBadMethod
		} else {
			err = phi1Bordered(dst, src, nl)
		}
	default:
		err = ErrUnknownFunction
	}
	if err != nil {
		return fmt.Errorf("%v method %d: %w", f, d.funmethod, err)
	}
	w := d.allocateMat(MatW)
	d.zeroMat(MatW, d.n, d.n)
	for i := 0; i < nl; i++ {
		copy(w[(d.l+i)*d.ld+d.l:(d.l+i)*d.ld+d.n], dst[i*nl:(i+1)*nl])
	}

	return nil
}

// condensedBlock copies the active condensed block into dst (stride nl).
func (d *DS) condensedBlock(dst []float64, nl int) {
	if d.compact {
		t := d.mat[MatT]
		for i := range dst {
			dst[i] = 0
		}
		for i := 0; i < nl; i++ {
			dst[i*nl+i] = t[d.l+i]
		}
		for i := 0; i < nl-1; i++ {
			dst[i*nl+i+1] = t[d.ld+d.l+i]
			dst[(i+1)*nl+i] = t[d.ld+d.l+i]
		}

		return
	}
	a := d.mat[MatA]
	for i := 0; i < nl; i++ {
		copy(dst[i*nl:(i+1)*nl], a[(d.l+i)*d.ld+d.l:(d.l+i)*d.ld+d.n])
	}
}

// --- small free-standing dense helpers on stride-n buffers ---

func genView(a []float64, n int) blas64.General {
	return blas64.General{Rows: n, Cols: n, Stride: n, Data: a}
}

func matMul(c, a, b []float64, n int) {
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1, genView(a, n), genView(b, n), 0, genView(c, n))
}

func matInv(a []float64, n int) error {
	ipiv := make([]int, n)
	if ok := lp.Dgetrf(n, n, a, n, ipiv); !ok {
		return ErrSingular
	}
	lwork := lworkQuery(func(w []float64) { lp.Dgetri(n, a, n, ipiv, w, -1) })
	work := make([]float64, lwork)
	if ok := lp.Dgetri(n, a, n, ipiv, work, lwork); !ok {
		return ErrSingular
	}

	return nil
}

func norm1Of(a []float64, n int) float64 {
	work := make([]float64, n)

	return lp.Dlange(lapack.MaxColumnSum, n, n, a, n, work)
}

func addIdentity(a []float64, n int, f float64) {
	for i := 0; i < n; i++ {
		a[i*n+i] += f
	}
}

func setEye(a []float64, n int) {
	for i := range a {
		a[i] = 0
	}
	addIdentity(a, n, 1)
}

// expPade is scaling-and-squaring with the [6/6] Padé approximant.
func expPade(dst, src []float64, n int) error {
	norm := norm1Of(src, n)
	scale := 0
	for norm > 0.5 {
		norm /= 2
		scale++
	}
	a := append([]float64(nil), src...)
	f := 1 / math.Pow(2, float64(scale))
	for i := range a {
		a[i] *= f
	}
	const p = 6
	num := make([]float64, n*n)
	den := make([]float64, n*n)
	pow := make([]float64, n*n)
	tmp := make([]float64, n*n)
	setEye(num, n)
	setEye(den, n)
	setEye(pow, n)
	c := 1.0
	for k := 1; k <= p; k++ {
		c *= float64(p-k+1) / float64((2*p-k+1)*k)
		matMul(tmp, pow, a, n)
		copy(pow, tmp)
		sign := 1.0
		if k%2 == 1 {
			sign = -1
		}
		for i := range num {
			num[i] += c * pow[i]
			den[i] += sign * c * pow[i]
		}
	}
	if err := matInv(den, n); err != nil {
		return err
	}
	matMul(dst, den, num, n)
	for s := 0; s < scale; s++ {
		matMul(tmp, dst, dst, n)
		copy(dst, tmp)
	}

	return nil
}

// expTaylor is method 1: scale until the norm is small, sum the Taylor
// series to machine precision, then square back.
func expTaylor(dst, src []float64, n int) error {
	norm := norm1Of(src, n)
	scale := 0
	for norm > 0.25 {
		norm /= 2
		scale++
	}
	a := append([]float64(nil), src...)
	f := 1 / math.Pow(2, float64(scale))
	for i := range a {
		a[i] *= f
	}
	term := make([]float64, n*n)
	tmp := make([]float64, n*n)
	setEye(dst, n)
	setEye(term, n)
	for k := 1; k <= 40; k++ {
		matMul(tmp, term, a, n)
		for i := range tmp {
			tmp[i] /= float64(k)
		}
		copy(term, tmp)
		for i := range dst {
			dst[i] += term[i]
		}
		if norm1Of(term, n) < machEps {
			break
		}
	}
	for s := 0; s < scale; s++ {
		matMul(tmp, dst, dst, n)
		copy(dst, tmp)
	}

	return nil
}

// sqrtDenmanBeavers runs the coupled Denman–Beavers iteration
// Y ← (Y+Z⁻¹)/2, Z ← (Z+Y⁻¹)/2; Y → A^{1/2}, Z → A^{−1/2}. Either output
// may be nil when not needed.
func sqrtDenmanBeavers(sqrtOut, invOut, src []float64, n int) error {
	y := append([]float64(nil), src...)
	z := make([]float64, n*n)
	setEye(z, n)
	yi := make([]float64, n*n)
	zi := make([]float64, n*n)
	norm := math.Max(norm1Of(src, n), 1)
	for iter := 0; iter < MaxIterFactor; iter++ {
		copy(yi, y)
		copy(zi, z)
		if err := matInv(yi, n); err != nil {
			return err
		}
		if err := matInv(zi, n); err != nil {
			return err
		}
		var diff float64
		for i := range y {
			ny := 0.5 * (y[i] + zi[i])
			nz := 0.5 * (z[i] + yi[i])
			diff += math.Abs(ny - y[i])
			y[i] = ny
			z[i] = nz
		}
		if diff <= tolFor(n)*norm {
			if sqrtOut != nil {
				copy(sqrtOut, y)
			}
			if invOut != nil {
				copy(invOut, z)
			}

			return nil
		}
	}

	return ErrNotConverged
}

// sqrtNewtonSchulz is the quadratically convergent inverse-free iteration,
// valid after scaling A so that ‖I−A/c‖ < 1; the result is rescaled by √c.
func sqrtNewtonSchulz(dst, src []float64, n int) error {
	c := norm1Of(src, n)
	if c == 0 {
		for i := range dst {
			dst[i] = 0
		}

		return nil
	}
	a := append([]float64(nil), src...)
	for i := range a {
		a[i] /= c
	}
	y := append([]float64(nil), a...)
	z := make([]float64, n*n)
	setEye(z, n)
	t3 := make([]float64, n*n)
	tmp := make([]float64, n*n)
	for iter := 0; iter < MaxIterFactor; iter++ {
		// T = (3I − Z·Y)/2
		matMul(t3, z, y, n)
		for i := range t3 {
			t3[i] = -0.5 * t3[i]
		}
		addIdentity(t3, n, 1.5)
		matMul(tmp, y, t3, n)
		copy(y, tmp)
		matMul(tmp, t3, z, n)
		copy(z, tmp)
		// converged when Z·Y ≈ I
		matMul(tmp, z, y, n)
		addIdentity(tmp, n, -1)
		if norm1Of(tmp, n) <= tolFor(n) {
			break
		}
		if iter == MaxIterFactor-1 {
			return ErrNotConverged
		}
	}
	s := math.Sqrt(c)
	for i := range y {
		dst[i] = y[i] * s
	}

	return nil
}

// invsqrtCubic is the third-order Newton–Schulz family iteration
// X ← X(15I − 10M + 3M²)/8 with M = X²A, converging to A^{−1/2}.
// sqrtOut (= A·X at convergence) and invOut may each be nil.
func invsqrtCubic(invOut, sqrtOut, src []float64, n int) error {
	c := norm1Of(src, n)
	if c == 0 {
		return ErrSingular
	}
	a := append([]float64(nil), src...)
	for i := range a {
		a[i] /= c
	}
	x := make([]float64, n*n)
	setEye(x, n)
	m := make([]float64, n*n)
	m2 := make([]float64, n*n)
	poly := make([]float64, n*n)
	tmp := make([]float64, n*n)
	for iter := 0; iter < MaxIterFactor; iter++ {
		matMul(tmp, x, x, n)
		matMul(m, tmp, a, n)
		matMul(m2, m, m, n)
		for i := range poly {
			poly[i] = (3*m2[i] - 10*m[i]) / 8
		}
		addIdentity(poly, n, 15.0/8)
		matMul(tmp, x, poly, n)
		copy(x, tmp)
		// converged when M ≈ I
		matMul(tmp, x, x, n)
		matMul(m, tmp, a, n)
		addIdentity(m, n, -1)
		if norm1Of(m, n) <= tolFor(n) {
			break
		}
		if iter == MaxIterFactor-1 {
			return ErrNotConverged
		}
	}
	// undo the scaling: (A/c)^{-1/2} = √c·A^{-1/2}
	rc := math.Sqrt(c)
	if invOut != nil {
		for i := range x {
			invOut[i] = x[i] / rc
		}
	}
	if sqrtOut != nil {
		matMul(tmp, src, x, n)
		for i := range tmp {
			sqrtOut[i] = tmp[i] / rc
		}
	}

	return nil
}

// logInverseScaling computes log(A) by repeated square roots until A is
// near the identity, a truncated Mercator series, and 2^k rescaling.
func logInverseScaling(dst, src []float64, n int) error {
	a := append([]float64(nil), src...)
	tmp := make([]float64, n*n)
	k := 0
	for {
		copy(tmp, a)
		addIdentity(tmp, n, -1)
		if norm1Of(tmp, n) < 0.3 {
			break
		}
		if k > 40 {
			return ErrNotConverged
		}
		root := make([]float64, n*n)
		if err := sqrtDenmanBeavers(root, nil, a, n); err != nil {
			return err
		}
		copy(a, root)
		k++
	}
	// X = A − I; log(I+X) = Σ (−1)^{j+1} X^j / j
	x := append([]float64(nil), a...)
	addIdentity(x, n, -1)
	pow := append([]float64(nil), x...)
	for i := range dst {
		dst[i] = 0
	}
	for j := 1; j <= 30; j++ {
		f := 1 / float64(j)
		if j%2 == 0 {
			f = -f
		}
		for i := range dst {
			dst[i] += f * pow[i]
		}
		if norm1Of(pow, n) < machEps {
			break
		}
		matMul(tmp, pow, x, n)
		copy(pow, tmp)
	}
	f := math.Pow(2, float64(k))
	for i := range dst {
		dst[i] *= f
	}

	return nil
}

// phi1Bordered evaluates φ₁(A) = (e^A − I)A⁻¹ as the upper-right block of
// exp([[A, I], [0, 0]]) — valid for singular A as well.
func phi1Bordered(dst, src []float64, n int) error {
	m := 2 * n
	big := make([]float64, m*m)
	for i := 0; i < n; i++ {
		copy(big[i*m:i*m+n], src[i*n:(i+1)*n])
		big[i*m+n+i] = 1
	}
	exp := make([]float64, m*m)
	if err := expPade(exp, big, m); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		copy(dst[i*n:(i+1)*n], exp[i*m+n:i*m+2*n])
	}

	return nil
}
