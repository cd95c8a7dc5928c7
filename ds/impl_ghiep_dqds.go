// SPDX-License-Identifier: MIT

// Package ds: qd/dqds path for the signed tridiagonal pencil. The
// eigenvalues of ΩT come out of a shifted LR (progressive qd) recurrence
// that only ever touches the diagonal and the products of paired
// off-diagonals, so the indefinite signs ride along for free; the
// eigenvectors are recovered afterwards by inverse iteration and welded
// into a pseudo-orthogonal basis. Complex pairs appear as trailing 2×2
// submatrices with negative discriminant and are deflated whole.
package ds

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
)

// dqdsSolve is method 1 of the ghiep variant. On entry w holds the
// reduced tridiagonal in the Ω₁ = sig metric and q the reduction
// congruence from the caller's basis, whose metric is orig. On success w
// carries the block-diagonal condensed form and sig the final signature.
func (d *DS) dqdsSolve(w, q, sig, orig []float64) error {
	nl := d.n - d.l
	if nl == 0 {
		return nil
	}
	// working copies of the signed tridiagonal: diagonal of M = ΩT and the
	// products of paired off-diagonals (all that eigenvalues depend on)
	m := make([]float64, nl)
	p := make([]float64, nl)
	beta := make([]float64, nl)
	for i := 0; i < nl; i++ {
		m[i] = sig[d.l+i] * w[(d.l+i)*d.ld+d.l+i]
		if i < nl-1 {
			beta[i] = w[(d.l+i+1)*d.ld+d.l+i]
			p[i] = sig[d.l+i] * sig[d.l+i+1] * beta[i] * beta[i]
		}
	}
	evRe := make([]float64, nl)
	evIm := make([]float64, nl)
	if err := d.qdEigenvalues(m, p, evRe, evIm); err != nil {
		return err
	}
	vmat, err := d.qdVectors(sig, beta, evRe, evIm)
	if err != nil {
		return err
	}
	// fold the eigenvector matrix into the accumulated basis
	d.foldIntoBasis(q, vmat, nl)
	newSig := make([]float64, d.n)
	if _, err := d.PseudoOrthogonalize(MatQ, d.n, orig, newSig); err != nil {
		return err
	}
	copy(sig[:d.n], newSig)
	// rebuild the original operator and project it onto the final basis;
	// cleaning to the known block pattern removes orthogonalisation noise
	if d.compact {
		d.fullFromCompact(MatW)
	} else {
		d.copyMat(MatW, MatA, d.n, d.n)
	}
	d.projectCondensed(w, q, nl)
	for i := 0; i < nl-1; i++ {
		if evIm[i] <= 0 { // only a pair-opening column keeps its coupling

			w[(d.l+i+1)*d.ld+d.l+i] = 0
			w[(d.l+i)*d.ld+d.l+i+1] = 0
		}
	}
	for i := 0; i < nl; i++ { // anything beyond the first off-diagonal is noise
		for j := 0; j < i-1; j++ {
			w[(d.l+i)*d.ld+d.l+j] = 0
			w[(d.l+j)*d.ld+d.l+i] = 0
		}
	}

	return nil
}

// qdEigenvalues runs the shifted qd recurrence until every eigenvalue has
// deflated. m and p are clobbered; results land in evRe/evIm positioned
// like the final blocks (pairs adjacent, positive imaginary part first).
func (d *DS) qdEigenvalues(m, p, evRe, evIm []float64) error {
	nl := len(m)
	tol := tolFor(d.n)
	negligible := func(i int) bool {
		scale := tol * (math.Abs(m[i]) + math.Abs(m[i+1]) + 1)

		return math.Abs(p[i]) <= scale*scale
	}
	saveM := make([]float64, nl)
	saveP := make([]float64, nl)
	u := make([]float64, nl)
	maxIter := MaxIterFactor * nl
	iter := 0
	hi := nl - 1
	for hi >= 0 {
		if hi == 0 {
			evRe[0], evIm[0] = m[0], 0
			hi--

			continue
		}
		if negligible(hi - 1) {
			evRe[hi], evIm[hi] = m[hi], 0
			hi--

			continue
		}
		if hi == 1 || negligible(hi-2) {
			r1, i1, r2, i2 := eig2x2(m[hi-1], p[hi-1], 1, m[hi])
			evRe[hi-1], evIm[hi-1] = r1, i1
			evRe[hi], evIm[hi] = r2, i2
			hi -= 2

			continue
		}
		if iter >= maxIter {
			return fmt.Errorf("qd iteration, %d steps: %w", maxIter, ErrNotConverged)
		}
		iter++
		r1, i1, r2, _ := eig2x2(m[hi-1], p[hi-1], 1, m[hi])
		shift := r1
		if i1 == 0 && math.Abs(r2-m[hi]) < math.Abs(r1-m[hi]) {
			shift = r2
		}
		copy(saveM, m)
		copy(saveP, p)
		done := false
		scale := math.Abs(m[hi]) + math.Sqrt(math.Abs(p[hi-1])) + 1
		for attempt := 0; attempt < 6 && !done; attempt++ {
			if qdStep(m[:hi+1], p[:hi], u[:hi+1], shift) {
				done = true

				continue
			}
			copy(m, saveM)
			copy(p, saveP)
			shift += float64(attempt+1) * 0.273 * scale
		}
		if !done {
			return fmt.Errorf("qd pivot collapse at row %d: %w", hi, ErrBreakdown)
		}
	}

	return nil
}

// qdStep performs one shifted LR pass in product form: factor M − σI = LU
// and rebuild M ← UL + σI. Reports false on a pivot too small to divide
// by, leaving m/p in an undefined state (the caller restores).
func qdStep(m, p, u []float64, shift float64) bool {
	n := len(m)
	u[0] = m[0] - shift
	for i := 0; i < n-1; i++ {
		if math.Abs(u[i]) <= machEps*(math.Abs(m[i])+math.Abs(shift)+1) {
			return false
		}
		lb := p[i] / u[i]
		u[i+1] = m[i+1] - shift - lb
		m[i] = u[i] + lb + shift
		p[i] = lb * u[i+1]
	}
	m[n-1] = u[n-1] + shift

	return true
}

// qdVectors recovers the eigenvector matrix of M = ΩT by inverse
// iteration: a dense LU per real eigenvalue, and a solve with the real
// quadratic M² − 2pM + (p²+q²)I per conjugate pair, whose two columns are
// the real and imaginary part of the complex eigenvector.
func (d *DS) qdVectors(sig, beta, evRe, evIm []float64) ([]float64, error) {
	nl := d.n - d.l
	// dense M from the signed tridiagonal
	mm := make([]float64, nl*nl)
	for i := 0; i < nl; i++ {
		mm[i*nl+i] = sig[d.l+i] * d.mat[MatW][(d.l+i)*d.ld+d.l+i]
		if i < nl-1 {
			mm[i*nl+i+1] = sig[d.l+i] * beta[i]
			mm[(i+1)*nl+i] = sig[d.l+i+1] * beta[i]
		}
	}
	vmat := make([]float64, nl*nl)
	sing := make([]float64, nl*nl)
	fact := make([]float64, nl*nl)
	rhs := make([]float64, nl)
	_, iwork := d.ensureWork(0, nl)
	ipiv := iwork[:nl]
	for j := 0; j < nl; j++ {
		if evIm[j] < 0 {
			continue // second column of a pair, filled with its partner
		}
		if evIm[j] == 0 {
			copy(sing, mm)
			for i := 0; i < nl; i++ {
				sing[i*nl+i] -= evRe[j]
			}
			if err := nullVector(sing, fact, rhs, ipiv, nl); err != nil {
				return nil, fmt.Errorf("inverse iteration at %g: %w", evRe[j], err)
			}
			for i := 0; i < nl; i++ {
				vmat[i*nl+j] = rhs[i]
			}

			continue
		}
		// quadratic polynomial of M that annihilates the pair
		pr, qi := evRe[j], evIm[j]
		c0 := pr*pr + qi*qi
		for r := 0; r < nl; r++ {
			for c := 0; c < nl; c++ {
				var acc float64
				for k := maxInt(0, r-1); k <= minInt(nl-1, r+1); k++ {
					acc += mm[r*nl+k] * mm[k*nl+c]
				}
				acc -= 2 * pr * mm[r*nl+c]
				if r == c {
					acc += c0
				}
				sing[r*nl+c] = acc
			}
		}
		if err := nullVector(sing, fact, rhs, ipiv, nl); err != nil {
			return nil, fmt.Errorf("inverse iteration at %g±%gi: %w", pr, qi, err)
		}
		for i := 0; i < nl; i++ {
			vmat[i*nl+j] = rhs[i]
		}
		// imaginary part: (M − pI)·u / q
		for i := 0; i < nl; i++ {
			var acc float64
			for k := maxInt(0, i-1); k <= minInt(nl-1, i+1); k++ {
				acc += mm[i*nl+k] * vmat[k*nl+j]
			}
			vmat[i*nl+j+1] = (acc - pr*vmat[i*nl+j]) / qi
		}
	}

	return vmat, nil
}

// nullVector finds a unit vector spanning the near-null space of the
// singular matrix sing by two passes of inverse iteration, leaving it in
// rhs. The start vector cycles through the all-ones vector and the
// coordinate axes: a start that happens to be orthogonal to the adjoint
// null direction locks onto a neighbouring mode instead, which the
// residual test against the unperturbed matrix rejects. The factor is
// nudged on the diagonal when λ is an exact eigenvalue of the
// floating-point matrix.
func nullVector(sing, fact, rhs []float64, ipiv []int, nl int) error {
	var scale float64
	for i := 0; i < nl*nl; i++ {
		if v := math.Abs(sing[i]); v > scale {
			scale = v
		}
	}
	eps := machEps * math.Max(scale, 1)
	copy(fact, sing)
	for attempt := 0; ; attempt++ {
		if ok := lp.Dgetrf(nl, nl, fact, nl, ipiv); ok {
			break
		}
		if attempt == 3 {
			return fmt.Errorf("shifted factor exactly singular: %w", ErrSingular)
		}
		copy(fact, sing)
		for i := 0; i < nl; i++ {
			fact[i*nl+i] += eps * float64(attempt+1)
		}
	}
	best := math.Inf(1)
	bestV := make([]float64, nl)
	for start := 0; start <= nl; start++ {
		for i := 0; i < nl; i++ {
			rhs[i] = 0
		}
		if start == 0 {
			for i := 0; i < nl; i++ {
				rhs[i] = 1
			}
		} else {
			rhs[start-1] = 1
		}
		degenerate := false
		for pass := 0; pass < 2; pass++ {
			lp.Dgetrs(blas.NoTrans, nl, 1, fact, nl, ipiv, rhs, 1)
			norm := vecNorm(rhs)
			if norm == 0 {
				degenerate = true

				break
			}
			for i := 0; i < nl; i++ {
				rhs[i] /= norm
			}
		}
		if degenerate {
			continue
		}
		var res float64
		for i := 0; i < nl; i++ {
			var acc float64
			for k := 0; k < nl; k++ {
				acc += sing[i*nl+k] * rhs[k]
			}
			res += acc * acc
		}
		res = math.Sqrt(res)
		if res <= math.Sqrt(machEps)*(scale+1) {
			return nil
		}
		if res < best {
			best = res
			copy(bestV, rhs[:nl])
		}
	}
	if math.IsInf(best, 1) {
		return fmt.Errorf("inverse iteration stalled: %w", ErrSingular)
	}
	copy(rhs[:nl], bestV)

	return nil
}

func vecNorm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}

	return math.Sqrt(s)
}

// foldIntoBasis multiplies the active columns of q by the nl×nl matrix
// vmat: q[:, l:n) ← q[:, l:n)·vmat.
func (d *DS) foldIntoBasis(q, vmat []float64, nl int) {
	tmp := make([]float64, nl)
	for i := 0; i < d.n; i++ {
		for j := 0; j < nl; j++ {
			var acc float64
			for k := 0; k < nl; k++ {
				acc += q[i*d.ld+d.l+k] * vmat[k*nl+j]
			}
			tmp[j] = acc
		}
		copy(q[i*d.ld+d.l:i*d.ld+d.n], tmp)
	}
}

// projectCondensed overwrites the active block of w with QᵀWQ, the
// original operator expressed in the final basis (w holds the operator on
// entry, q the basis).
func (d *DS) projectCondensed(w, q []float64, nl int) {
	tmp := make([]float64, d.n*nl)
	for i := 0; i < d.n; i++ {
		for j := 0; j < nl; j++ {
			var acc float64
			for k := 0; k < d.n; k++ {
				acc += w[i*d.ld+k] * q[k*d.ld+d.l+j]
			}
			tmp[i*nl+j] = acc
		}
	}
	out := make([]float64, nl*nl)
	for i := 0; i < nl; i++ {
		for j := 0; j < nl; j++ {
			var acc float64
			for k := 0; k < d.n; k++ {
				acc += q[k*d.ld+d.l+i] * tmp[k*nl+j]
			}
			out[i*nl+j] = acc
		}
	}
	for i := 0; i < nl; i++ {
		copy(w[(d.l+i)*d.ld+d.l:(d.l+i)*d.ld+d.n], out[i*nl:(i+1)*nl])
	}
}
