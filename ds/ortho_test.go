// SPDX-License-Identifier: MIT

// Package ds_test: Gram–Schmidt orthogonalisation — the Euclidean CGS2
// kernel and the signature (pseudo) variant with reflection and breakdown.
package ds_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/lvldense/ds"
	"github.com/stretchr/testify/require"
)

// newBasisDS returns a solver of order n with the given columns stored in
// slot Q (vectors listed column by column).
func newBasisDS(t *testing.T, n, l int, cols ...[]float64) *ds.DS {
	t.Helper()
	d, err := ds.New(ds.HEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n))
	require.NoError(t, d.SetDimensions(n, 0, l, l))
	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	for j, col := range cols {
		for i := 0; i < n; i++ {
			q[i*ld+j] = col[i]
		}
	}
	require.NoError(t, d.RestoreArray(ds.MatQ))

	return d
}

// TestOrthogonalizeFullRank orthonormalises three independent columns and
// verifies QᵀQ = I.
func TestOrthogonalizeFullRank(t *testing.T) {
	const n = 3
	d := newBasisDS(t, n, 0,
		[]float64{1, 1, 0},
		[]float64{1, 0, 1},
		[]float64{0, 1, 1})
	rank, err := d.Orthogonalize(ds.MatQ, n)
	require.NoError(t, err)
	require.Equal(t, n, rank)

	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	for j := 0; j < n; j++ {
		for c := 0; c < n; c++ {
			var s float64
			for i := 0; i < n; i++ {
				s += q[i*ld+j] * q[i*ld+c]
			}
			want := 0.0
			if j == c {
				want = 1
			}
			require.InDelta(t, want, s, 1e-12, "QᵀQ at (%d,%d)", j, c)
		}
	}
	require.NoError(t, d.RestoreArray(ds.MatQ))
}

// TestOrthogonalizeRankDeficiency zeroes a dependent column instead of
// dividing by a vanishing norm and reports the reduced rank.
func TestOrthogonalizeRankDeficiency(t *testing.T) {
	const n = 3
	d := newBasisDS(t, n, 0,
		[]float64{1, 0, 0},
		[]float64{2, 0, 0}, // multiple of the first
		[]float64{0, 1, 0})
	rank, err := d.Orthogonalize(ds.MatQ, n)
	require.NoError(t, err)
	require.Equal(t, 2, rank)

	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.Zero(t, q[i*ld+1], "dependent column is cleared, row %d", i)
	}
	require.NoError(t, d.RestoreArray(ds.MatQ))
}

// TestOrthogonalizeRespectsLockedColumns projects against the locked
// prefix without modifying it.
func TestOrthogonalizeRespectsLockedColumns(t *testing.T) {
	const n, l = 3, 1
	d := newBasisDS(t, n, l,
		[]float64{1, 0, 0}, // locked, already unit
		[]float64{1, 1, 0}) // overlaps the locked direction
	rank, err := d.Orthogonalize(ds.MatQ, 2)
	require.NoError(t, err)
	require.Equal(t, 1, rank, "only the free columns are counted")

	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	require.InDelta(t, 1, q[0], 1e-15, "locked column untouched")
	require.InDelta(t, 0, q[1], 1e-12, "projected out of the locked direction")
	require.InDelta(t, 1, q[ld+1], 1e-12)
	require.NoError(t, d.RestoreArray(ds.MatQ))
}

// TestOrthogonalizeGuards rejects compact-only slots and column counts
// outside [l, n].
func TestOrthogonalizeGuards(t *testing.T) {
	d := newBasisDS(t, 2, 1, []float64{1, 0})
	_, err := d.Orthogonalize(ds.MatT, 2)
	require.ErrorIs(t, err, ds.ErrUnknownSlot)
	_, err = d.Orthogonalize(ds.MatQ, 3)
	require.ErrorIs(t, err, ds.ErrBadDimension)
	_, err = d.Orthogonalize(ds.MatQ, 0) // below the locked prefix
	require.ErrorIs(t, err, ds.ErrBadDimension)
}

// TestPseudoOrthogonalizeSignature orthogonalises under diag(1,−1): the
// second column picks up a negative Gram sign and both end ±1-normal.
func TestPseudoOrthogonalizeSignature(t *testing.T) {
	const n = 2
	sig := []float64{1, -1}
	d := newBasisDS(t, n, 0,
		[]float64{2, 1},
		[]float64{1, 2})
	newSig := make([]float64, n)
	rank, err := d.PseudoOrthogonalize(ds.MatQ, n, sig, newSig)
	require.NoError(t, err)
	require.Equal(t, n, rank)
	require.Equal(t, 1.0, newSig[0])
	require.Equal(t, -1.0, newSig[1])

	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	inner := func(j, c int) float64 {
		var s float64
		for i := 0; i < n; i++ {
			s += sig[i] * q[i*ld+j] * q[i*ld+c]
		}

		return s
	}
	require.InDelta(t, 1, inner(0, 0), 1e-12)
	require.InDelta(t, -1, inner(1, 1), 1e-12)
	require.InDelta(t, 0, inner(0, 1), 1e-12)
	require.NoError(t, d.RestoreArray(ds.MatQ))
}

// TestPseudoOrthogonalizeBreakdown: an isotropic column (zero indefinite
// norm) is a recoverable breakdown — the achieved rank comes back with the
// error and the processed prefix stays valid.
func TestPseudoOrthogonalizeBreakdown(t *testing.T) {
	const n = 3
	sig := []float64{1, -1, 1}
	d := newBasisDS(t, n, 0,
		[]float64{1, 0, 0},
		[]float64{0, 1, 1}) // ⟨v,v⟩ = −1 + 1 = 0
	newSig := make([]float64, n)
	rank, err := d.PseudoOrthogonalize(ds.MatQ, 2, sig, newSig)
	require.ErrorIs(t, err, ds.ErrBreakdown)
	require.Equal(t, 1, rank)
	require.Equal(t, 1.0, newSig[0])
}

// TestPseudoOrthogonalizeSlotDFallback reads the metric from slot D when
// sig is nil, and validates the stored signature first.
func TestPseudoOrthogonalizeSlotDFallback(t *testing.T) {
	const n = 2
	d, err := ds.New(ds.GHIEP, ds.WithCompact())
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	sd, _, err := d.GetArrayReal(ds.MatD)
	require.NoError(t, err)
	sd[0], sd[1] = 1, -1
	require.NoError(t, d.RestoreArrayReal(ds.MatD))
	q, ld, err := d.GetArray(ds.MatQ)
	require.NoError(t, err)
	q[0], q[ld] = 3, 0
	q[1], q[ld+1] = 0, 2
	require.NoError(t, d.RestoreArray(ds.MatQ))

	newSig := make([]float64, n)
	rank, err := d.PseudoOrthogonalize(ds.MatQ, n, nil, newSig)
	require.NoError(t, err)
	require.Equal(t, n, rank)
	require.Equal(t, []float64{1, -1}, newSig)
	q, ld, err = d.GetArray(ds.MatQ)
	require.NoError(t, err)
	require.InDelta(t, 1, math.Abs(q[0]), 1e-15)
	require.InDelta(t, 1, math.Abs(q[ld+1]), 1e-15)
	require.NoError(t, d.RestoreArray(ds.MatQ))

	_, err = d.PseudoOrthogonalize(ds.MatQ, n, []float64{1, 0.5}, nil)
	require.ErrorIs(t, err, ds.ErrZeroSignature)
	_, err = d.PseudoOrthogonalize(ds.MatQ, n, []float64{1}, nil)
	require.ErrorIs(t, err, ds.ErrShortSlice)
}
