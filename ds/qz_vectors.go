// SPDX-License-Identifier: MIT

// Package ds: eigenvectors of the condensed generalized Schur pencil.
// For the block opening at column j with homogeneous eigenvalue (α, β)
// the right vector solves (β·S − α·P)·v = 0 by complex back-substitution
// over the quasi-triangular structure; the left vector solves the
// transposed system with ᾱ. Working in β-homogeneous form keeps infinite
// eigenvalues (β = 0) on the same code path.
package ds

import (
	"math"
	"math/cmplx"
)

// pencilBlockVector writes the real and imaginary parts of the condensed
// eigenvector for the block at column j into vre and vim (length n). The
// result is normalized to unit max |re|+|im|. For left = true the vector
// y satisfies yᴴ·(β·S − α·P) = 0.
func pencilBlockVector(s, p []float64, ld, n, j int, left bool, vre, vim []float64) {
	width := 1
	if j+1 < n && s[(j+1)*ld+j] != 0 {
		width = 2
	}
	var alpha complex128
	var bet float64
	if width == 1 {
		alpha = complex(s[j*ld+j], 0)
		bet = p[j*ld+j]
	} else {
		wr1, wi, s1, _, _ := pencil2x2Eigen(
			s[j*ld+j], s[j*ld+j+1], s[(j+1)*ld+j], s[(j+1)*ld+j+1],
			p[j*ld+j], p[j*ld+j+1], p[(j+1)*ld+j+1])
		alpha = complex(wr1, wi)
		bet = s1
	}
	if left {
		alpha = cmplx.Conj(alpha)
	}
	// ce reads the shifted pencil C = β·S − α·P, transposed for the left
	// problem
	ce := func(i, k int) complex128 {
		if left {
			i, k = k, i
		}

		return complex(bet*s[i*ld+k], 0) - alpha*complex(p[i*ld+k], 0)
	}
	var snorm, pnorm float64
	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			snorm += math.Abs(s[i*ld+k])
			pnorm += math.Abs(p[i*ld+k])
		}
		if i > 0 {
			snorm += math.Abs(s[i*ld+i-1])
		}
	}
	smin := machEps*(math.Abs(bet)*snorm+cmplx.Abs(alpha)*pnorm) + safmin

	v := make([]complex128, n)
	if width == 1 {
		v[j] = 1
	} else {
		// null vector of the singular 2×2, from its better-scaled row
		c11, c12 := ce(j, j), ce(j, j+1)
		c21, c22 := ce(j+1, j), ce(j+1, j+1)
		if cmplx.Abs(c11)+cmplx.Abs(c12) >= cmplx.Abs(c21)+cmplx.Abs(c22) {
			v[j], v[j+1] = -c12, c11
		} else {
			v[j], v[j+1] = -c22, c21
		}
		if v[j] == 0 && v[j+1] == 0 {
			v[j] = 1
		}
	}

	if !left {
		top := j + width - 1
		for i := j - 1; i >= 0; {
			if i > 0 && s[i*ld+i-1] != 0 {
				var sum1, sum2 complex128
				for k := i + 1; k <= top; k++ {
					sum1 += ce(i-1, k) * v[k]
					sum2 += ce(i, k) * v[k]
				}
				a11, a12 := ce(i-1, i-1), ce(i-1, i)
				a21, a22 := ce(i, i-1), ce(i, i)
				det := a11*a22 - a12*a21
				if cmplx.Abs(det) < smin*smin {
					det = complex(smin*smin, 0)
				}
				v[i-1] = (-sum1*a22 + sum2*a12) / det
				v[i] = (-sum2*a11 + sum1*a21) / det
				i -= 2

				continue
			}
			var sum complex128
			for k := i + 1; k <= top; k++ {
				sum += ce(i, k) * v[k]
			}
			den := ce(i, i)
			if cmplx.Abs(den) < smin {
				den = complex(smin, 0)
			}
			v[i] = -sum / den
			i--
		}
	} else {
		for i := j + width; i < n; {
			if i+1 < n && s[(i+1)*ld+i] != 0 {
				var sum1, sum2 complex128
				for k := j; k < i; k++ {
					sum1 += ce(i, k) * v[k]
					sum2 += ce(i+1, k) * v[k]
				}
				a11, a12 := ce(i, i), ce(i, i+1)
				a21, a22 := ce(i+1, i), ce(i+1, i+1)
				det := a11*a22 - a12*a21
				if cmplx.Abs(det) < smin*smin {
					det = complex(smin*smin, 0)
				}
				v[i] = (-sum1*a22 + sum2*a12) / det
				v[i+1] = (-sum2*a11 + sum1*a21) / det
				i += 2

				continue
			}
			var sum complex128
			for k := j; k < i; k++ {
				sum += ce(i, k) * v[k]
			}
			den := ce(i, i)
			if cmplx.Abs(den) < smin {
				den = complex(smin, 0)
			}
			v[i] = -sum / den
			i++
		}
	}

	var mx float64
	for i := 0; i < n; i++ {
		if a := math.Abs(real(v[i])) + math.Abs(imag(v[i])); a > mx {
			mx = a
		}
	}
	if mx == 0 {
		mx = 1
	}
	for i := 0; i < n; i++ {
		vre[i] = real(v[i]) / mx
		vim[i] = imag(v[i]) / mx
	}
	if left {
		// the solve used ᾱ; conjugate back so the pair convention
		// (positive imaginary part in the leading column) holds
		for i := 0; i < n; i++ {
			vim[i] = -vim[i]
		}
	}
}
