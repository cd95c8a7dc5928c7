// SPDX-License-Identifier: MIT

// Package ds: functional configuration for DS construction and numeric
// policy. This file defines:
//   - Option (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical
//     values — programmer errors, never data-dependent),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - No dead switches: each flag impacts behavior and is covered by tests.
//   - Capability toggles (compact, extra row, refined) must be fixed before
//     Allocate; the Option form and the SetX setters share one code path.
package ds

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultMethod selects each variant's primary algorithm (index 0).
	DefaultMethod = 0

	// DefaultFunMethod selects the primary algorithm of ComputeFunction.
	DefaultFunMethod = 0

	// MaxMethods bounds the method index range across all variants; each
	// variant declares its own count ≤ MaxMethods.
	MaxMethods = 6

	// EpsTol is the unit of the convergence and deflation thresholds used
	// by the hand-written iterations (HZ, DQDS, inverse iteration). The
	// effective tolerance is EpsTol scaled by machine epsilon and n.
	EpsTol = 100.0

	// MaxIterFactor caps iterative inner solvers at MaxIterFactor*n sweeps;
	// exceeding the cap surfaces ErrNotConverged with the pending count.
	MaxIterFactor = 100
)

// Option mutates the construction-time state of a DS. Options apply before
// any storage exists, so they may freely flip capability toggles.
type Option func(*DS)

// WithCompact enables compact (arrow-)tridiagonal storage in slot T with
// diagonal/signature in slot D, instead of full storage in slot A.
func WithCompact() Option {
	return func(d *DS) { d.compact = true }
}

// WithExtraRow treats the decomposition as (n+1)×n; the extra row carries
// residual coefficients propagated by UpdateExtraRow.
func WithExtraRow() Option {
	return func(d *DS) { d.extrarow = true }
}

// WithRefined requests refined Ritz vectors from Vectors instead of the
// vectors extracted directly from the condensed form.
func WithRefined() Option {
	return func(d *DS) { d.refined = true }
}

// WithMethod selects the sub-algorithm index for Solve.
// Panics if method is outside [0, MaxMethods).
func WithMethod(method int) Option {
	if method < 0 || method >= MaxMethods {
		panic("ds: WithMethod index out of range")
	}

	return func(d *DS) { d.method = method }
}

// WithFunMethod selects the sub-algorithm index for ComputeFunction.
// Panics if method is outside [0, MaxMethods).
func WithFunMethod(method int) Option {
	if method < 0 || method >= MaxMethods {
		panic("ds: WithFunMethod index out of range")
	}

	return func(d *DS) { d.funmethod = method }
}

// WithComparator installs the eigenvalue ordering used by Sort.
// Panics on a nil comparator (programmer error; use SetComparator(nil) to
// clear an installed one explicitly).
func WithComparator(cmp Comparator) Option {
	if cmp == nil {
		panic("ds: WithComparator requires a non-nil comparator")
	}

	return func(d *DS) { d.cmp = cmp }
}

// WithSelector installs the region predicate consulted by Sort for
// select/reject partitioning.
func WithSelector(sel Selector) Option {
	if sel == nil {
		panic("ds: WithSelector requires a non-nil selector")
	}

	return func(d *DS) { d.sel = sel }
}

// gatherOptions applies opts in order and re-checks cross-option
// invariants. Kept separate so New stays a thin constructor.
func gatherOptions(d *DS, opts []Option) error {
	for _, opt := range opts {
		opt(d)
	}
	if d.method >= d.ops.methods {
		return ErrBadMethod
	}

	return nil
}
