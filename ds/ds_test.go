// SPDX-License-Identifier: MIT

// Package ds_test exercises the DS driver: lifecycle, capability toggles,
// the state machine and array acquisition. Numerical behaviour per problem
// type lives in the variant test files.
package ds_test

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/katalvlaran/lvldense/ds"
	"github.com/stretchr/testify/require"
)

// newSolved returns a condensed hep DS over diag(vals) with ld = len(vals)
// and the computed eigenvalues. Shared setup for driver-level tests.
func newSolved(t *testing.T, vals []float64, opts ...ds.Option) (*ds.DS, []float64) {
	t.Helper()
	n := len(vals)
	d, err := ds.New(ds.HEP, opts...)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(n))
	require.NoError(t, d.SetDimensions(n, 0, 0, 0))
	a, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	for i, v := range vals {
		a[i*ld+i] = v
	}
	require.NoError(t, d.RestoreArray(ds.MatA))
	wr := make([]float64, n)
	require.NoError(t, d.Solve(wr, nil))

	return d, wr
}

// requireSpectrum asserts that got matches the expected multiset of real
// eigenvalues within tol, ignoring order.
func requireSpectrum(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	w := append([]float64(nil), want...)
	g := append([]float64(nil), got...)
	sort.Float64s(w)
	sort.Float64s(g)
	for i := range w {
		require.InDelta(t, w[i], g[i], tol, "eigenvalue %d", i)
	}
}

// TestNewUnknownKind verifies that a problem-type name outside the fixed
// set is rejected with ErrUnknownKind.
func TestNewUnknownKind(t *testing.T) {
	_, err := ds.New(ds.Kind("pep"))
	require.ErrorIs(t, err, ds.ErrUnknownKind)
}

// TestNewMethodOutOfRange verifies that an option selecting a method the
// variant lacks surfaces ErrBadMethod at construction.
func TestNewMethodOutOfRange(t *testing.T) {
	_, err := ds.New(ds.GNHEP, ds.WithMethod(1)) // gnhep has a single method
	require.ErrorIs(t, err, ds.ErrBadMethod)
}

// TestAllocateValidation covers ld <= 0 and the not-allocated guard on
// SetDimensions.
func TestAllocateValidation(t *testing.T) {
	d, err := ds.New(ds.HEP)
	require.NoError(t, err)

	require.ErrorIs(t, d.Allocate(0), ds.ErrBadDimension)
	require.ErrorIs(t, d.Allocate(-3), ds.ErrBadDimension)
	require.ErrorIs(t, d.SetDimensions(2, 0, 0, 0), ds.ErrNotAllocated)

	require.NoError(t, d.Allocate(4))
	require.Equal(t, 4, d.LeadingDimension())
}

// TestSetDimensionsValidation enforces 0 ≤ l ≤ k ≤ n ≤ ld and 0 ≤ m ≤ ld.
func TestSetDimensionsValidation(t *testing.T) {
	d, err := ds.New(ds.HEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(4))

	require.ErrorIs(t, d.SetDimensions(5, 0, 0, 0), ds.ErrBadDimension)  // n > ld
	require.ErrorIs(t, d.SetDimensions(3, 5, 0, 0), ds.ErrBadDimension)  // m > ld
	require.ErrorIs(t, d.SetDimensions(3, 0, 2, 1), ds.ErrBadDimension)  // k < l
	require.ErrorIs(t, d.SetDimensions(3, 0, -1, 0), ds.ErrBadDimension) // l < 0
	require.ErrorIs(t, d.SetDimensions(3, 0, 1, 4), ds.ErrBadDimension)  // k > n

	require.NoError(t, d.SetDimensions(3, 0, 1, 2))
	n, m, l, k := d.Dimensions()
	require.Equal(t, []int{3, 0, 1, 2}, []int{n, m, l, k})
	require.Equal(t, ds.StateRaw, d.State())
}

// TestTogglesAfterAllocate verifies that the capability toggles refuse to
// flip once the leading dimension is fixed.
func TestTogglesAfterAllocate(t *testing.T) {
	d, err := ds.New(ds.HEP)
	require.NoError(t, err)
	require.NoError(t, d.SetCompact(true))
	require.NoError(t, d.SetCompact(false))
	require.NoError(t, d.Allocate(3))

	require.ErrorIs(t, d.SetCompact(true), ds.ErrAllocated)
	require.ErrorIs(t, d.SetExtraRow(true), ds.ErrAllocated)
	require.ErrorIs(t, d.SetRefined(true), ds.ErrAllocated)
}

// TestArrayAcquisition covers the held-slot protocol: double acquisition,
// release without acquisition, undeclared slots and the compact-only split
// between GetArray and GetArrayReal.
func TestArrayAcquisition(t *testing.T) {
	d, err := ds.New(ds.HEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(3))

	_, _, err = d.GetArray(ds.MatA)
	require.NoError(t, err)
	_, _, err = d.GetArray(ds.MatA)
	require.ErrorIs(t, err, ds.ErrSlotHeld)
	require.NoError(t, d.RestoreArray(ds.MatA))
	require.ErrorIs(t, d.RestoreArray(ds.MatA), ds.ErrSlotNotHeld)

	// hep declares no B slot; T goes through GetArrayReal only
	_, _, err = d.GetArray(ds.MatB)
	require.ErrorIs(t, err, ds.ErrUnknownSlot)
	_, _, err = d.GetArray(ds.MatT)
	require.ErrorIs(t, err, ds.ErrUnknownSlot)
	_, _, err = d.GetArrayReal(ds.MatT)
	require.NoError(t, err)
	require.NoError(t, d.RestoreArrayReal(ds.MatT))

	// nhep declares no compact storage at all
	nh, err := ds.New(ds.NHEP)
	require.NoError(t, err)
	require.NoError(t, nh.Allocate(3))
	_, _, err = nh.GetArrayReal(ds.MatT)
	require.ErrorIs(t, err, ds.ErrUnknownSlot)
}

// TestOperationsRefuseHeldSlot verifies that Solve refuses to run while
// the caller holds a matrix slot.
func TestOperationsRefuseHeldSlot(t *testing.T) {
	d, err := ds.New(ds.HEP)
	require.NoError(t, err)
	require.NoError(t, d.Allocate(2))
	require.NoError(t, d.SetDimensions(2, 0, 0, 0))
	_, _, err = d.GetArray(ds.MatA)
	require.NoError(t, err)

	wr := make([]float64, 2)
	require.ErrorIs(t, d.Solve(wr, nil), ds.ErrSlotHeld)
	require.NoError(t, d.RestoreArray(ds.MatA))
	require.NoError(t, d.Solve(wr, nil))
}

// TestStateMachine walks the legal window of every driver operation:
// Solve from Raw only, Sort from Condensed, Truncate from at least
// Condensed, and the short-slice guard on Solve.
func TestStateMachine(t *testing.T) {
	d, err := ds.New(ds.HEP, ds.WithComparator(ds.ByLargestMagnitude()))
	require.NoError(t, err)
	require.NoError(t, d.Allocate(3))
	require.NoError(t, d.SetDimensions(3, 0, 0, 0))
	a, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	a[0], a[1*ld+1], a[2*ld+2] = 3, 1, 2
	require.NoError(t, d.RestoreArray(ds.MatA))

	wr := make([]float64, 3)
	_, err = d.Sort(wr, nil, nil, nil) // sort before solve
	require.ErrorIs(t, err, ds.ErrBadState)
	require.ErrorIs(t, d.Solve(wr[:2], nil), ds.ErrShortSlice)

	require.NoError(t, d.Solve(wr, nil))
	require.Equal(t, ds.StateCondensed, d.State())
	require.ErrorIs(t, d.Solve(wr, nil), ds.ErrBadState) // already condensed

	_, err = d.Sort(wr, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, ds.StateSorted, d.State())
	_, err = d.Sort(wr, nil, nil, nil) // sorting again is legal
	require.NoError(t, err)

	require.NoError(t, d.Truncate(2))
	require.Equal(t, ds.StateCondensed, d.State())
	require.Equal(t, 3, d.TruncatedSize())

	// SetDimensions rewinds to Raw
	require.NoError(t, d.SetDimensions(3, 0, 0, 0))
	require.Equal(t, ds.StateRaw, d.State())
}

// TestSortRequiresComparator verifies the ErrNoComparator guard.
func TestSortRequiresComparator(t *testing.T) {
	d, wr := newSolved(t, []float64{2, 1})
	_, err := d.Sort(wr, nil, nil, nil)
	require.ErrorIs(t, err, ds.ErrNoComparator)

	d.SetComparator(ds.BySmallestReal())
	_, err = d.Sort(wr, nil, nil, nil)
	require.NoError(t, err)
}

// TestSortShortKeyArrays verifies that undersized rr/ri key arrays are
// rejected with ErrShortSlice instead of being indexed out of range.
func TestSortShortKeyArrays(t *testing.T) {
	d, wr := newSolved(t, []float64{3, 1, 2}, ds.WithComparator(ds.ByLargestReal()))

	_, err := d.Sort(wr, nil, make([]float64, 2), nil)
	require.ErrorIs(t, err, ds.ErrShortSlice)
	_, err = d.Sort(wr, nil, make([]float64, 3), make([]float64, 1))
	require.ErrorIs(t, err, ds.ErrShortSlice)

	_, err = d.Sort(wr, nil, []float64{1, 2, 3}, nil)
	require.NoError(t, err)
}

// TestUnsupportedOperations checks the capability taxonomy: operations
// absent from a variant's vtable return ErrUnsupported, and the extra-row
// operations demand the capability.
func TestUnsupportedOperations(t *testing.T) {
	d, _ := newSolved(t, []float64{1, 2})

	// hep without the extra row enabled
	require.ErrorIs(t, d.UpdateExtraRow(), ds.ErrExtraRowRequired)
	g := make([]float64, 2)
	_, err := d.TranslateHarmonic(0.5, 1, false, g)
	require.ErrorIs(t, err, ds.ErrExtraRowRequired)

	// gnhep carries no truncation or translations
	gd, err := ds.New(ds.GNHEP)
	require.NoError(t, err)
	require.NoError(t, gd.Allocate(2))
	require.NoError(t, gd.SetDimensions(2, 0, 0, 0))
	for _, s := range []ds.Slot{ds.MatA, ds.MatB} {
		a, ld, errGet := gd.GetArray(s)
		require.NoError(t, errGet)
		a[0], a[ld+1] = 1, 1
		require.NoError(t, gd.RestoreArray(s))
	}
	w2 := make([]float64, 2)
	require.NoError(t, gd.Solve(w2, make([]float64, 2)))
	require.ErrorIs(t, gd.TranslateRKS(1), ds.ErrUnsupported)
	require.ErrorIs(t, gd.ComputeFunction(ds.FnExp), ds.ErrUnsupported)
}

// TestResetKeepsStorage verifies that Reset clears contents and dimensions
// but keeps the leading dimension, per the monotonic workspace policy.
func TestResetKeepsStorage(t *testing.T) {
	d, _ := newSolved(t, []float64{1, 2, 3})
	d.Reset()
	require.Equal(t, ds.StateRaw, d.State())
	require.Equal(t, 3, d.LeadingDimension())
	n, _, _, _ := d.Dimensions()
	require.Zero(t, n)

	a, ld, err := d.GetArray(ds.MatA)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			require.Zero(t, a[i*ld+j])
		}
	}
	require.NoError(t, d.RestoreArray(ds.MatA))
}

// TestViewSmoke dumps a solved DS and checks the header line mentions the
// type, state and dimensions.
func TestViewSmoke(t *testing.T) {
	d, _ := newSolved(t, []float64{1, 2})
	var sb strings.Builder
	require.NoError(t, d.View(&sb))
	out := sb.String()
	require.Contains(t, out, "type=hep")
	require.Contains(t, out, "state=condensed")
	require.Contains(t, out, "n=2")

	sb.Reset()
	require.NoError(t, d.ViewMatrix(&sb, ds.MatA))
	require.Contains(t, sb.String(), "A (2x2)")
	require.ErrorIs(t, d.ViewMatrix(&sb, ds.Slot(99)), ds.ErrUnknownSlot)
}

// TestCondOrthogonalBasis: the accumulated transform of a diagonal solve
// is a signed permutation, whose condition number is exactly one.
func TestCondOrthogonalBasis(t *testing.T) {
	d, _ := newSolved(t, []float64{3, 1, 2})
	kappa, err := d.Cond()
	require.NoError(t, err)
	require.InDelta(t, 1, kappa, 1e-8)
	require.False(t, math.IsInf(kappa, 0))
}
