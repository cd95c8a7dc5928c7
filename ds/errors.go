// SPDX-License-Identifier: MIT
// Package ds: sentinel error set (unified, consistent).
// This file defines ONLY package-level sentinel errors used across the ds
// package. All operations MUST return these sentinels and tests MUST check
// them via errors.Is. No operation panics on user-triggered conditions;
// panics are reserved for programmer errors in private helpers.

package ds

import "errors"

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "ds: ..." for consistency and to allow easy
// grepping across logs. DO NOT %w wrap these sentinels when returning
// directly; if context is essential, wrap with fmt.Errorf("ctx: %w", ErrX)
// at the outer boundary — callers still match with errors.Is.
//
// ERROR PRIORITY (documented, enforced in tests):
// argument (dimension/kind/slot/method) -> state violations -> capability
// -> numerical failures (convergence, breakdown) -> consistency violations.

var (
	// ErrBadDimension is returned when a requested dimension violates
	// 0 ≤ l ≤ n ≤ ld or 0 ≤ m ≤ ld, or when Allocate receives ld <= 0.
	ErrBadDimension = errors.New("ds: invalid dimension")

	// ErrUnknownKind signals a problem-type name outside the fixed set
	// {hep, nhep, ghep, ghiep, gnhep, svd, qep}.
	ErrUnknownKind = errors.New("ds: unknown problem type")

	// ErrUnknownSlot signals a matrix slot identifier outside the named set,
	// or a slot the current variant does not declare.
	ErrUnknownSlot = errors.New("ds: unknown or undeclared matrix slot")

	// ErrBadMethod is returned when SetMethod receives an index outside
	// [0, methods) for the current variant.
	ErrBadMethod = errors.New("ds: method index out of range")

	// ErrNotAllocated is returned by any operation that requires Allocate
	// to have fixed the leading dimension first.
	ErrNotAllocated = errors.New("ds: not allocated")

	// ErrAllocated is returned by capability toggles (compact, extra row,
	// refined) invoked after Allocate.
	ErrAllocated = errors.New("ds: already allocated")

	// ErrBadState signals an operation invoked outside its legal window in
	// the Raw → Intermediate → Condensed → Sorted state machine.
	ErrBadState = errors.New("ds: illegal state for operation")

	// ErrUnsupported marks an operation absent from the current variant's
	// vtable.
	ErrUnsupported = errors.New("ds: operation not supported by problem type")

	// ErrNotConverged reports that an iterative dense solver exhausted its
	// iteration cap. Returned wrapped with the unconverged count.
	ErrNotConverged = errors.New("ds: iteration did not converge")

	// ErrBreakdown reports a zero pivot or a non-positive indefinite norm.
	// For PseudoOrthogonalize it is recoverable and accompanied by the
	// achieved rank; for the intermediate reduction it is fatal for the
	// chosen method (the caller may retry with another method).
	ErrBreakdown = errors.New("ds: numerical breakdown")

	// ErrZeroSignature is fatal: the signature D contains an entry that is
	// zero (or not ±1) where a ghiep operation requires a proper signature.
	ErrZeroSignature = errors.New("ds: signature contains a zero entry")

	// ErrSingular is returned when a factorization meets an exactly singular
	// matrix (condition estimation, harmonic translation, inverses).
	ErrSingular = errors.New("ds: singular matrix")

	// ErrSlotHeld signals a second GetArray on a slot with an outstanding
	// acquisition, or an operation touching a slot still held by the caller.
	ErrSlotHeld = errors.New("ds: matrix slot already acquired")

	// ErrSlotNotHeld signals RestoreArray on a slot with no outstanding
	// acquisition.
	ErrSlotNotHeld = errors.New("ds: matrix slot not acquired")

	// ErrLockViolation is a consistency error: an operation attempted to
	// modify one of the l locked leading columns. Always fatal.
	ErrLockViolation = errors.New("ds: locked column modified")

	// ErrNoComparator is returned by Sort when no eigenvalue comparison has
	// been installed via SetComparator.
	ErrNoComparator = errors.New("ds: no eigenvalue comparator installed")

	// ErrExtraRowRequired marks operations (harmonic translation, extra-row
	// update) that need the extra-row capability enabled before Allocate.
	ErrExtraRowRequired = errors.New("ds: extra row not enabled")

	// ErrShortSlice is returned when a caller-supplied eigenvalue or work
	// slice is shorter than the active dimension requires.
	ErrShortSlice = errors.New("ds: slice too short")

	// ErrUnknownFunction signals a matrix-function selector outside the
	// fixed set {exp, sqrt, invsqrt, log, phi1}.
	ErrUnknownFunction = errors.New("ds: unknown matrix function")
)
