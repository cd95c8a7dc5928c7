// SPDX-License-Identifier: MIT

// Package ds_test: non-symmetric eigenproblem (nhep) behaviour — real
// Schur condensation with conjugate pairs, block-atomic sorting with a
// region selector, eigenvector extraction and refined extraction.
package ds_test

import (
	"sort"
	"testing"

	"github.com/katalvlaran/lvldense/ds"
	"github.com/stretchr/testify/require"
)

// nhepTestMatrix has spectrum {1±i, 2, 3}: a rotation block coupled to two
// real modes through the strictly upper part.
var nhepTestMatrix = []float64{
	1, -1, 5, 2,
	1, 1, 0, 3,
	0, 0, 2, 1,
	0, 0, 0, 3,
}

// solveNHEP sets up and condenses a copy of m (n×n) with options applied.
func solveNHEP(t *testing.T, m []float64, n int, opts ...ds.Option) (*ds.DS, []float64, []float64) {
	t.Helper()
	d, err := ds.New(ds.NHEP, opts...)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	a, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		copy(a[i*ld:i*ld+n], m[i*n:(i+1)*n])
	}
	require.NoError(t, d.RestoreArray(ds.MatA))
	wr := make([]float64, n)
	wi := make([]float64, n)
	require.NoError(t, d.Solve(wr, wi))

	return d, wr, wi
}

// requireComplexSpectrum matches (wr, wi) against the expected multiset of
// complex eigenvalues, ignoring order.
func requireComplexSpectrum(t *testing.T, wantRe, wantIm, gotRe, gotIm []float64, tol float64) {
	t.Helper()
	type ev struct{ re, im float64 }
	toSorted := func(re, im []float64) []ev {
		vs := make([]ev, len(re))
		for i := range re {
			vs[i] = ev{re[i], im[i]}
		}
		sort.Slice(vs, func(a, b int) bool {
			if vs[a].re != vs[b].re {
				return vs[a].re < vs[b].re
			}

			return vs[a].im < vs[b].im
		})

		return vs
	}
	want, got := toSorted(wantRe, wantIm), toSorted(gotRe, gotIm)
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, want[i].re, got[i].re, tol, "re %d", i)
		require.InDelta(t, want[i].im, got[i].im, tol, "im %d", i)
	}
}

// TestNHEPSolveNeedsImaginaryParts: a nil wi cannot carry a non-symmetric
// spectrum.
func TestNHEPSolveNeedsImaginaryParts(t *testing.T) {
	d, err := ds.New(ds.NHEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(2))
	require.NoError(t, d.SetDimensions(2, 0, 0, 0))
	require.ErrorIs(t, d.Solve(make([]float64, 2), nil), ds.ErrShortSlice)
}

// TestNHEPComplexPairSpectrum condenses the 4×4 test matrix and checks the
// full complex spectrum, with conjugate pairs adjacent and the positive
// imaginary part first.
func TestNHEPComplexPairSpectrum(t *testing.T) {
	d, wr, wi := solveNHEP(t, nhepTestMatrix, 4)
	require.Equal(t, ds.StateCondensed, d.State())
	requireComplexSpectrum(t,
		[]float64{1, 1, 2, 3}, []float64{1, -1, 0, 0}, wr, wi, 1e-10)
	for j := 0; j < 4; j++ {
		if wi[j] > 0 {
			require.InDelta(t, wr[j], wr[j+1], 1e-12, "pair must be adjacent")
			require.InDelta(t, -wi[j], wi[j+1], 1e-12, "conjugate follows")
		}
	}
}

// TestNHEPSortKeepsPairsAtomic sorts by largest magnitude: the two real
// modes outrank the pair (√2 < 2 < 3) and the pair travels as one block.
func TestNHEPSortKeepsPairsAtomic(t *testing.T) {
	d, wr, wi := solveNHEP(t, nhepTestMatrix, 4, ds.WithComparator(ds.ByLargestMagnitude()))
	selected, err := d.Sort(wr, wi, nil, nil)
	require.NoError(t, err)
	require.Zero(t, selected, "no selector installed")

	require.InDelta(t, 3, wr[0], 1e-10)
	require.InDelta(t, 2, wr[1], 1e-10)
	require.InDelta(t, 1, wr[2], 1e-10)
	require.InDelta(t, 1, wi[2], 1e-10)
	require.InDelta(t, 1, wr[3], 1e-10)
	require.InDelta(t, -1, wi[3], 1e-10)

	// idempotence: sorting the sorted form is a no-op
	_, err = d.Sort(wr, wi, nil, nil)
	require.NoError(t, err)
	require.InDelta(t, 3, wr[0], 1e-10)
	require.InDelta(t, 1, wi[2], 1e-10)
}

// TestNHEPSelectorPartition moves the eigenvalues inside the disc of
// radius 1.8 about the origin first and reports their count.
func TestNHEPSelectorPartition(t *testing.T) {
	d, wr, wi := solveNHEP(t, nhepTestMatrix, 4,
		ds.WithComparator(ds.ByLargestMagnitude()),
		ds.WithSelector(ds.WithinDistance(0, 0, 1.8)))
	selected, err := d.Sort(wr, wi, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, selected, "only the pair sits inside the disc")
	require.InDelta(t, 1, wr[0], 1e-10)
	require.InDelta(t, 1, wi[0], 1e-10)
	require.InDelta(t, 1, wr[1], 1e-10)
	require.InDelta(t, -1, wi[1], 1e-10)
	require.InDelta(t, 3, wr[2], 1e-10, "rejected group still ordered by the comparator")
	require.InDelta(t, 2, wr[3], 1e-10)
}

// TestNHEPVectors extracts right and left eigenvectors and validates the
// eigen relations against the original matrix, including the two-column
// real/imaginary encoding of the conjugate pair.
func TestNHEPVectors(t *testing.T) {
	const n = 4
	d, wr, wi := solveNHEP(t, nhepTestMatrix, n)
	_, err := d.Vectors(ds.MatX, -1)
	require.NoError(t, err)
	_, err = d.Vectors(ds.MatY, -1)
	require.NoError(t, err)

	x, ld, err := d.GetArray(ds.MatX)
	require.NoError(t, err)
	mulA := func(col int, trans bool) []float64 {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			for p := 0; p < n; p++ {
				if trans {
					out[i] += nhepTestMatrix[p*n+i] * x[p*ld+col]
				} else {
					out[i] += nhepTestMatrix[i*n+p] * x[p*ld+col]
				}
			}
		}

		return out
	}
	for j := 0; j < n; j++ {
		switch {
		case wi[j] > 0: // pair: A·(xr + i·xi) = (a + b·i)(xr + i·xi)
			axr, axi := mulA(j, false), mulA(j+1, false)
			for i := 0; i < n; i++ {
				require.InDelta(t, wr[j]*x[i*ld+j]-wi[j]*x[i*ld+j+1], axr[i], 1e-8)
				require.InDelta(t, wi[j]*x[i*ld+j]+wr[j]*x[i*ld+j+1], axi[i], 1e-8)
			}
		case wi[j] == 0:
			ax := mulA(j, false)
			for i := 0; i < n; i++ {
				require.InDelta(t, wr[j]*x[i*ld+j], ax[i], 1e-8)
			}
		}
	}
	require.NoError(t, d.RestoreArray(ds.MatX))

	// left vectors: yᵀA = λyᵀ for the real eigenvalues
	y, ld, err := d.GetArray(ds.MatY)
	require.NoError(t, err)
	for j := 0; j < n; j++ {
		if wi[j] != 0 {
			continue
		}
		for i := 0; i < n; i++ {
			var v float64
			for p := 0; p < n; p++ {
				v += nhepTestMatrix[p*n+i] * y[p*ld+j]
			}
			require.InDelta(t, wr[j]*y[i*ld+j], v, 1e-8)
		}
	}
	require.NoError(t, d.RestoreArray(ds.MatY))
}

// TestNHEPSingleColumnVector requests one column only and checks it
// matches the eigen relation without touching the other columns.
func TestNHEPSingleColumnVector(t *testing.T) {
	const n = 4
	d, wr, wi := solveNHEP(t, nhepTestMatrix, n)
	var col int
	for col = 0; col < n; col++ {
		if wi[col] == 0 {
			break
		}
	}
	require.Less(t, col, n)
	_, err := d.Vectors(ds.MatX, col)
	require.NoError(t, err)

	x, ld, err := d.GetArray(ds.MatX)
	require.NoError(t, err)
	var norm float64
	for i := 0; i < n; i++ {
		var v float64
		for p := 0; p < n; p++ {
			v += nhepTestMatrix[i*n+p] * x[p*ld+col]
		}
		require.InDelta(t, wr[col]*x[i*ld+col], v, 1e-8)
		norm += x[i*ld+col] * x[i*ld+col]
	}
	require.Greater(t, norm, 1e-8, "requested column must be populated")
	require.NoError(t, d.RestoreArray(ds.MatX))

	_, err = d.Vectors(ds.MatX, n+1)
	require.ErrorIs(t, err, ds.ErrBadDimension)
}

// TestNHEPRefinedVectors: on an upper triangular factor the refined right
// vector of a simple real Ritz value is exact and its singular value — the
// residual of the refined pair — collapses to zero.
func TestNHEPRefinedVectors(t *testing.T) {
	m := []float64{
		2, 1,
		0, 3,
	}
	d, wr, wi := solveNHEP(t, m, 2, ds.WithRefined())
	require.Zero(t, wi[0])
	rnorm, err := d.Vectors(ds.MatX, 0)
	require.NoError(t, err)
	require.InDelta(t, 0, rnorm, 1e-10)

	x, ld, err := d.GetArray(ds.MatX)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		var v float64
		for p := 0; p < 2; p++ {
			v += m[i*2+p] * x[p*ld]
		}
		require.InDelta(t, wr[0]*x[i*ld], v, 1e-8)
	}
	require.NoError(t, d.RestoreArray(ds.MatX))
}

// TestNHEPTruncatePairWidening: a truncation boundary through a conjugate
// pair widens by one column instead of splitting the 2×2 block.
func TestNHEPTruncatePairWidening(t *testing.T) {
	d, wr, wi := solveNHEP(t, nhepTestMatrix, 4, ds.WithComparator(ds.ByLargestMagnitude()))
	_, err := d.Sort(wr, wi, nil, nil)
	require.NoError(t, err)
	// order is now 3, 2, pair — truncating at 3 would cut the pair in half
	require.NoError(t, d.Truncate(3))
	n, _, _, _ := d.Dimensions()
	require.Equal(t, 4, n, "boundary inside a pair must widen")

	require.NoError(t, d.Truncate(2))
	n, _, _, _ = d.Dimensions()
	require.Equal(t, 2, n)
	require.Equal(t, 4, d.TruncatedSize())
}

// TestNHEPRKSWithExtraRow exercises the QR-based rational-Krylov
// translation: the spectrum of the translated factor must be preserved
// (the similarity is exact) while the factor itself changes basis.
func TestNHEPRKSWithExtraRow(t *testing.T) {
	const n = 3
	m := []float64{
		4, 1, 0,
		0, 2, 1,
		0, 0, 1,
	}
	d, err := ds.New(ds.NHEP, ds.WithExtraRow())
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n + 1))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	a, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		copy(a[i*ld:i*ld+n], m[i*n:(i+1)*n])
	}
	// residual row left at zero: the translation is then an exact similarity
	require.NoError(t, d.RestoreArray(ds.MatA))
	wr := make([]float64, n)
	wi := make([]float64, n)
	require.NoError(t, d.Solve(wr, wi))
	require.NoError(t, d.UpdateExtraRow())

	require.NoError(t, d.TranslateRKS(0.5))
	require.Equal(t, ds.StateCondensed, d.State())

	// eigenvalues of the translated active block must be unchanged
	a, ld, err = d.GetArray(ds.MatA)
	require.NoError(t, err)
	shifted := make([]float64, n*n)
	for i := 0; i < n; i++ {
		copy(shifted[i*n:(i+1)*n], a[i*ld:i*ld+n])
	}
	require.NoError(t, d.RestoreArray(ds.MatA))
	_, wr2, wi2 := solveNHEP(t, shifted, n)
	requireComplexSpectrum(t, wr, wi, wr2, wi2, 1e-8)
}
