// SPDX-License-Identifier: MIT

// Package ds_test: quadratic eigenproblem (qep) — companion linearization,
// the 2n-wide spectrum and eigenvector projection.
package ds_test

import (
	"testing"

	"github.com/katalvlaran/lvldense/ds"
	"github.com/stretchr/testify/require"
)

// solveQEP condenses the quadratic (λ²M + λC + K)x = 0 with the
// coefficients in slots A=K, B=C, C=M, each n×n row-major.
func solveQEP(t *testing.T, k, c, m []float64, n int, opts ...ds.Option) (*ds.DS, []float64, []float64) {
	t.Helper()
	d, err := ds.New(ds.QEP, opts...)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(2 * n))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	for s, src := range map[ds.Slot][]float64{ds.MatA: k, ds.MatB: c, ds.MatC: m} {
		buf, ld, errGet := d.GetArray(s)
		require.NoError(t, errGet)
		for i := 0; i < n; i++ {
			copy(buf[i*ld:i*ld+n], src[i*n:(i+1)*n])
		}
		require.NoError(t, d.RestoreArray(s))
	}
	wr := make([]float64, 2*n)
	wi := make([]float64, 2*n)
	require.NoError(t, d.Solve(wr, wi))

	return d, wr, wi
}

// TestQEPDecoupledRoots solves two decoupled scalar quadratics
// λ²+3λ+2 and λ²+5λ+6: the four roots are {−1, −2, −2, −3}.
func TestQEPDecoupledRoots(t *testing.T) {
	k := []float64{2, 0, 0, 6}
	c := []float64{3, 0, 0, 5}
	m := []float64{1, 0, 0, 1}
	d, wr, wi := solveQEP(t, k, c, m, 2)
	require.Equal(t, ds.StateCondensed, d.State())
	require.Equal(t, 4, d.TruncatedSize(), "the linearization carries 2n values")
	requireComplexSpectrum(t,
		[]float64{-1, -2, -2, -3}, []float64{0, 0, 0, 0}, wr, wi, 1e-8)
}

// TestQEPComplexRoots: an undamped oscillator λ²+ω² = 0 delivers the
// conjugate pair ±iω.
func TestQEPComplexRoots(t *testing.T) {
	k := []float64{4}
	c := []float64{0}
	m := []float64{1}
	_, wr, wi := solveQEP(t, k, c, m, 1)
	requireComplexSpectrum(t, []float64{0, 0}, []float64{2, -2}, wr, wi, 1e-8)
}

// TestQEPEigenvectorResidual checks (λ²M + λC + K)x = 0 for every real
// eigenvalue of a coupled quadratic.
func TestQEPEigenvectorResidual(t *testing.T) {
	const n = 2
	k := []float64{
		2, 0.5,
		0.5, 6,
	}
	c := []float64{
		3, 0.1,
		0.1, 5,
	}
	m := []float64{
		1, 0,
		0, 1,
	}
	d, wr, wi := solveQEP(t, k, c, m, n)
	x, ld, err := d.GetArray(ds.MatX)
	require.NoError(t, err)
	defer func() { require.NoError(t, d.RestoreArray(ds.MatX)) }()
	for j := 0; j < 2*n; j++ {
		if wi[j] != 0 {
			continue
		}
		lam := wr[j]
		var norm float64
		for i := 0; i < n; i++ {
			var r float64
			for p := 0; p < n; p++ {
				r += (lam*lam*m[i*n+p] + lam*c[i*n+p] + k[i*n+p]) * x[p*ld+j]
			}
			require.InDelta(t, 0, r, 1e-7, "residual row %d of column %d", i, j)
			norm += x[i*ld+j] * x[i*ld+j]
		}
		require.InDelta(t, 1, norm, 1e-8, "projected columns are unit")
	}
}

// TestQEPSortFullWidth sorts all 2n values by largest real part and keeps
// the eigenvector columns aligned with them.
func TestQEPSortFullWidth(t *testing.T) {
	const n = 2
	k := []float64{2, 0, 0, 6}
	c := []float64{3, 0, 0, 5}
	m := []float64{1, 0, 0, 1}
	d, wr, wi := solveQEP(t, k, c, m, n, ds.WithComparator(ds.ByLargestReal()))
	_, err := d.Sort(wr, wi, nil, nil)
	require.NoError(t, err)
	for i, want := range []float64{-1, -2, -2, -3} {
		require.InDelta(t, want, wr[i], 1e-8, "descending real order, index %d", i)
	}

	// columns still satisfy the quadratic after the permutation
	x, ld, err := d.GetArray(ds.MatX)
	require.NoError(t, err)
	for j := 0; j < 2*n; j++ {
		lam := wr[j]
		for i := 0; i < n; i++ {
			var r float64
			for p := 0; p < n; p++ {
				r += (lam*lam*m[i*n+p] + lam*c[i*n+p] + k[i*n+p]) * x[p*ld+j]
			}
			require.InDelta(t, 0, r, 1e-7)
		}
	}
	require.NoError(t, d.RestoreArray(ds.MatX))
}

// TestQEPArgumentGuards covers the linearization preconditions: full
// storage, no locking, room for 2n values.
func TestQEPArgumentGuards(t *testing.T) {
	d, err := ds.New(ds.QEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(4))
	require.NoError(t, d.SetDimensions(2, 0, 0, 0))
	require.ErrorIs(t, d.Solve(make([]float64, 2), make([]float64, 2)), ds.ErrShortSlice)

	require.NoError(t, d.SetDimensions(3, 0, 0, 0)) // 2n = 6 > ld = 4
	require.ErrorIs(t, d.Solve(make([]float64, 6), make([]float64, 6)), ds.ErrBadDimension)

	require.NoError(t, d.SetDimensions(2, 0, 1, 1)) // locking unsupported
	require.ErrorIs(t, d.Solve(make([]float64, 4), make([]float64, 4)), ds.ErrUnsupported)
}
