// SPDX-License-Identifier: MIT

// Package ds implements the dense direct-solver kernel used by iterative
// eigensolvers to handle the small projected problem produced at each
// restart: Schur decompositions, pseudo-symmetric tridiagonal
// eigenproblems, SVDs and quadratic eigenproblems on compact storage,
// plus sorting, truncation and translation of the resulting
// decompositions.
//
// What & Why:
//
//	An iterative outer solver projects a large sparse problem onto a small
//	subspace and must repeatedly (1) solve the projected dense problem,
//	(2) reorder its eigenvalues with a caller-supplied criterion,
//	(3) truncate the decomposition for a restart, and (4) recover
//	eigenvectors. The DS object owns the dense workspace for this cycle
//	and exposes one vtable of operations per problem type:
//	hep, nhep, ghep, ghiep, gnhep, svd and qep.
//
// Storage conventions:
//
//	All matrix slots are stored row-major with a fixed row stride ld (the
//	leading dimension), matching gonum's BLAS/LAPACK convention. Slot T is
//	compact (arrow-)tridiagonal storage of 3*ld real entries: band 0 holds
//	the diagonal, band 1 the symmetric off-diagonal (entry i couples rows
//	i and i+1; with an extra row active, entry n-1 holds the residual
//	coefficient), band 2 the arrow entries coupling rows [l,k) to row k.
//	Slot D holds a diagonal, for ghiep a signature of ±1 entries.
//
// Lifecycle:
//
//	d, err := ds.New(ds.HEP)            // pick the variant vtable
//	err = d.Allocate(ld)                // fix the leading dimension
//	err = d.SetDimensions(n, m, l, k)   // active block inside ld
//	a, _ := d.GetArray(ds.MatA)         // fill the projected matrix
//	... write a ...
//	d.RestoreArray(ds.MatA)
//	err = d.Solve(wr, wi)               // condensed form + eigenvalues
//	_, err = d.Sort(wr, wi, nil, nil)   // user comparator order
//	err = d.Truncate(keep)              // restart-sized decomposition
//	_, err = d.Vectors(ds.MatX, -1)     // materialise eigenvectors
//
// The state machine (Raw → Intermediate → Condensed → Sorted) is enforced
// on every entry point; a call out of order returns ErrBadState.
//
// Complexity:
//
//	All operations are O(n³) or cheaper on the active dimension n ≤ ld.
//	The DS is single-threaded and allocation-stable: slots are lazily
//	allocated once and reused until Reset.
package ds
