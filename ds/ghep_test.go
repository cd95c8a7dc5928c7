// SPDX-License-Identifier: MIT

// Package ds_test: generalized symmetric-definite pencil (ghep) — Cholesky
// congruence, B-orthonormal bases and the definiteness guard.
package ds_test

import (
	"testing"

	"github.com/katalvlaran/lvldense/ds"
	"github.com/stretchr/testify/require"
)

// solveGHEP condenses the pencil (a, b) of order n.
func solveGHEP(t *testing.T, a, b []float64, n int) (*ds.DS, []float64) {
	t.Helper()
	d, err := ds.New(ds.GHEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	for s, src := range map[ds.Slot][]float64{ds.MatA: a, ds.MatB: b} {
		buf, ld, errGet := d.GetArray(s)
		require.NoError(t, errGet)
		for i := 0; i < n; i++ {
			copy(buf[i*ld:i*ld+n], src[i*n:(i+1)*n])
		}
		require.NoError(t, d.RestoreArray(s))
	}
	wr := make([]float64, n)
	require.NoError(t, d.Solve(wr, nil))

	return d, wr
}

// TestGHEPPencilEigenvalues solves A·x = λ·B·x for a pencil with known
// spectrum and verifies the condensed pair is (Λ, I).
func TestGHEPPencilEigenvalues(t *testing.T) {
	a := []float64{
		2, 0,
		0, 8,
	}
	b := []float64{
		1, 0,
		0, 2,
	}
	d, wr := solveGHEP(t, a, b, 2)
	requireSpectrum(t, []float64{2, 4}, wr, 1e-12)

	am, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	require.InDelta(t, wr[0], am[0], 1e-12)
	require.InDelta(t, wr[1], am[ld+1], 1e-12)
	require.NoError(t, d.RestoreArray(ds.MatA))
	bm, ld, err := d.GetArray(ds.MatB)
	require.NoError(t, err)
	require.InDelta(t, 1, bm[0], 1e-12)
	require.InDelta(t, 1, bm[ld+1], 1e-12)
	require.InDelta(t, 0, bm[1], 1e-12)
	require.NoError(t, d.RestoreArray(ds.MatB))
}

// TestGHEPBasisIsBOrthonormal checks QᵀBQ = I against the original mass
// matrix and the pencil eigen relation A·q = λ·B·q on a coupled pencil.
func TestGHEPBasisIsBOrthonormal(t *testing.T) {
	const n = 3
	a := []float64{
		2, 1, 0,
		1, 3, 1,
		0, 1, 4,
	}
	b := []float64{
		2, 1, 0,
		1, 2, 1,
		0, 1, 2,
	}
	d, wr := solveGHEP(t, a, b, n)

	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	defer func() { require.NoError(t, d.RestoreArray(ds.MatQ)) }()
	for j := 0; j < n; j++ {
		for c := 0; c < n; c++ {
			var s float64
			for i := 0; i < n; i++ {
				for p := 0; p < n; p++ {
					s += q[i*ld+j] * b[i*n+p] * q[p*ld+c]
				}
			}
			want := 0.0
			if j == c {
				want = 1
			}
			require.InDelta(t, want, s, 1e-10, "QᵀBQ at (%d,%d)", j, c)
		}
		for i := 0; i < n; i++ {
			var av, bv float64
			for p := 0; p < n; p++ {
				av += a[i*n+p] * q[p*ld+j]
				bv += b[i*n+p] * q[p*ld+j]
			}
			require.InDelta(t, wr[j]*bv, av, 1e-10, "pencil relation, column %d", j)
		}
	}
}

// TestGHEPIndefiniteMassBreaksDown: a mass matrix with a negative
// eigenvalue fails the Cholesky factorisation and surfaces ErrBreakdown.
func TestGHEPIndefiniteMassBreaksDown(t *testing.T) {
	a := []float64{
		1, 0,
		0, 1,
	}
	b := []float64{
		1, 0,
		0, -1,
	}
	d, err := ds.New(ds.GHEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(2))
	require.NoError(t, d.SetDimensions(2, 0, 0, 0))
	for s, src := range map[ds.Slot][]float64{ds.MatA: a, ds.MatB: b} {
		buf, ld, errGet := d.GetArray(s)
		require.NoError(t, errGet)
		for i := 0; i < 2; i++ {
			copy(buf[i*ld:i*ld+2], src[i*2:(i+1)*2])
		}
		require.NoError(t, d.RestoreArray(s))
	}
	require.ErrorIs(t, d.Solve(make([]float64, 2), nil), ds.ErrBreakdown)
}

// TestGHEPSortSharesDiagonalMachinery sorts the condensed pencil by
// smallest real part and checks values and transform stay in step.
func TestGHEPSortSharesDiagonalMachinery(t *testing.T) {
	a := []float64{
		6, 0, 0,
		0, 2, 0,
		0, 0, 12,
	}
	b := []float64{
		2, 0, 0,
		0, 1, 0,
		0, 0, 3,
	}
	d, wr := solveGHEP(t, a, b, 3)
	requireSpectrum(t, []float64{2, 3, 4}, wr, 1e-12)
	d.SetComparator(ds.ByLargestReal())
	_, err := d.Sort(wr, nil, nil, nil)
	require.NoError(t, err)
	for i, want := range []float64{4, 3, 2} {
		require.InDelta(t, want, wr[i], 1e-12)
	}
	am, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.InDelta(t, wr[i], am[i*ld+i], 1e-12)
	}
	require.NoError(t, d.RestoreArray(ds.MatA))
}
