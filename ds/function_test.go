// SPDX-License-Identifier: MIT

// Package ds_test: matrix functions of the condensed factor — exponential,
// square root families, logarithm and φ₁, with the result landing in the
// active block of slot W.
package ds_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvldense/ds"
	"github.com/stretchr/testify/require"
)

// newFunDS stores the n×n factor in slot A of a fresh non-symmetric solver.
func newFunDS(t *testing.T, a []float64, n int) *ds.DS {
	t.Helper()
	d, err := ds.New(ds.NHEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	buf, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		copy(buf[i*ld:i*ld+n], a[i*n:(i+1)*n])
	}
	require.NoError(t, d.RestoreArray(ds.MatA))

	return d
}

// funBlock copies the n×n result block out of slot W.
func funBlock(t *testing.T, d *ds.DS, n int) []float64 {
	t.Helper()
	w, ld, err := d.GetArray(ds.MatW)
	require.NoError(t, err)
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		copy(out[i*n:(i+1)*n], w[i*ld:i*ld+n])
	}
	require.NoError(t, d.RestoreArray(ds.MatW))

	return out
}

// TestFunctionExp evaluates the exponential of a nilpotent factor, where
// the series terminates exactly, with both the Padé and Taylor methods.
func TestFunctionExp(t *testing.T) {
	a := []float64{
		0, 1,
		0, 0,
	}
	want := []float64{
		1, 1,
		0, 1,
	}
	for method := 0; method < 2; method++ {
		d := newFunDS(t, a, 2)
		require.NoError(t, d.SetFunMethod(method))
		require.NoError(t, d.ComputeFunction(ds.FnExp))
		got := funBlock(t, d, 2)
		for i := range want {
			require.InDelta(t, want[i], got[i], 1e-12, "method %d, entry %d", method, i)
		}
	}
}

// TestFunctionExpDiagonal: exp(diag(1,−1)) = diag(e, 1/e), exercising the
// scaling-and-squaring ladder on a norm above the threshold.
func TestFunctionExpDiagonal(t *testing.T) {
	a := []float64{
		1, 0,
		0, -1,
	}
	d := newFunDS(t, a, 2)
	require.NoError(t, d.ComputeFunction(ds.FnExp))
	got := funBlock(t, d, 2)
	require.InDelta(t, math.E, got[0], 1e-12)
	require.InDelta(t, 0, got[1], 1e-12)
	require.InDelta(t, 0, got[2], 1e-12)
	require.InDelta(t, 1/math.E, got[3], 1e-12)
}

// TestFunctionSqrtFamilies runs every square-root iteration on diag(4,9)
// and the inverse variants on the same factor.
func TestFunctionSqrtFamilies(t *testing.T) {
	a := []float64{
		4, 0,
		0, 9,
	}
	for method := 0; method < 3; method++ {
		d := newFunDS(t, a, 2)
		require.NoError(t, d.SetFunMethod(method))
		require.NoError(t, d.ComputeFunction(ds.FnSqrt))
		got := funBlock(t, d, 2)
		require.InDelta(t, 2, got[0], 1e-9, "sqrt method %d", method)
		require.InDelta(t, 0, got[1], 1e-9)
		require.InDelta(t, 0, got[2], 1e-9)
		require.InDelta(t, 3, got[3], 1e-9, "sqrt method %d", method)
	}
	for method := 0; method < 2; method++ {
		d := newFunDS(t, a, 2)
		require.NoError(t, d.SetFunMethod(method))
		require.NoError(t, d.ComputeFunction(ds.FnInvSqrt))
		got := funBlock(t, d, 2)
		require.InDelta(t, 0.5, got[0], 1e-9, "invsqrt method %d", method)
		require.InDelta(t, 1.0/3, got[3], 1e-9, "invsqrt method %d", method)
	}
}

// TestFunctionSqrtSquaresBack checks W·W ≈ A on a coupled symmetric
// positive definite factor.
func TestFunctionSqrtSquaresBack(t *testing.T) {
	const n = 2
	a := []float64{
		2, 1,
		1, 2,
	}
	d := newFunDS(t, a, n)
	require.NoError(t, d.ComputeFunction(ds.FnSqrt))
	r := funBlock(t, d, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var s float64
			for p := 0; p < n; p++ {
				s += r[i*n+p] * r[p*n+j]
			}
			require.InDelta(t, a[i*n+j], s, 1e-9, "square at (%d,%d)", i, j)
		}
	}
}

// TestFunctionLog: log(diag(e,1)) = diag(1,0) through inverse scaling.
func TestFunctionLog(t *testing.T) {
	a := []float64{
		math.E, 0,
		0, 1,
	}
	d := newFunDS(t, a, 2)
	require.NoError(t, d.ComputeFunction(ds.FnLog))
	got := funBlock(t, d, 2)
	require.InDelta(t, 1, got[0], 1e-9)
	require.InDelta(t, 0, got[1], 1e-9)
	require.InDelta(t, 0, got[2], 1e-9)
	require.InDelta(t, 0, got[3], 1e-9)
}

// TestFunctionPhi1: φ₁(diag(1,0)) = diag(e−1, 1); the bordered form must
// stay finite on the singular factor.
func TestFunctionPhi1(t *testing.T) {
	a := []float64{
		1, 0,
		0, 0,
	}
	d := newFunDS(t, a, 2)
	require.NoError(t, d.ComputeFunction(ds.FnPhi1))
	got := funBlock(t, d, 2)
	require.InDelta(t, math.E-1, got[0], 1e-12)
	require.InDelta(t, 0, got[1], 1e-12)
	require.InDelta(t, 0, got[2], 1e-12)
	require.InDelta(t, 1, got[3], 1e-12)
}

// TestFunctionCompactSource feeds the exponential from the compact
// tridiagonal band and checks it against the full-storage result.
func TestFunctionCompactSource(t *testing.T) {
	const n = 2
	full := []float64{
		2, 1,
		1, 2,
	}
	fd := newFunDS(t, full, n)
	require.NoError(t, fd.ComputeFunction(ds.FnExp))
	want := funBlock(t, fd, n)

	cd, err := ds.New(ds.HEP, ds.WithCompact())
	require.NoError(t, err)
	require.NoError(t, cd.Allocate(n))
	require.NoError(t, cd.SetDimensions(n, 0, 0, 0))
	tb, ld, err := cd.GetArrayReal(ds.MatT)
	require.NoError(t, err)
	tb[0], tb[1] = 2, 2
	tb[ld] = 1
	require.NoError(t, cd.RestoreArrayReal(ds.MatT))
	require.NoError(t, cd.ComputeFunction(ds.FnExp))
	got := funBlock(t, cd, n)
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-10, "entry %d", i)
	}
}

// TestFunctionLockedColumns keeps the locked part of W untouched: only the
// trailing (n−l)×(n−l) block receives the function value.
func TestFunctionLockedColumns(t *testing.T) {
	const n, l = 3, 1
	a := []float64{
		5, 0, 0,
		0, 0, 1,
		0, 0, 0,
	}
	d := newFunDS(t, a, n)
	require.NoError(t, d.SetDimensions(n, 0, l, l))
	require.NoError(t, d.ComputeFunction(ds.FnExp))
	w, ld, err := d.GetArray(ds.MatW)
	require.NoError(t, err)
	require.Zero(t, w[0], "locked corner stays clear")
	require.InDelta(t, 1, w[l*ld+l], 1e-12)
	require.InDelta(t, 1, w[l*ld+l+1], 1e-12)
	require.InDelta(t, 1, w[(l+1)*ld+l+1], 1e-12)
	require.NoError(t, d.RestoreArray(ds.MatW))
}

// TestFunctionMethodGuards rejects out-of-range sub-methods and unknown
// function kinds.
func TestFunctionMethodGuards(t *testing.T) {
	a := []float64{1}
	d := newFunDS(t, a, 1)
	require.ErrorIs(t, d.SetFunMethod(-1), ds.ErrBadMethod)
	require.NoError(t, d.SetFunMethod(1))
	require.ErrorIs(t, d.ComputeFunction(ds.FnLog), ds.ErrBadMethod)
	require.NoError(t, d.SetFunMethod(0))
	require.ErrorIs(t, d.ComputeFunction(ds.FunKind(99)), ds.ErrUnknownFunction)
}
