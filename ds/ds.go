// SPDX-License-Identifier: MIT

// Package ds: the DS object — lifecycle, dimensions, array acquisition and
// the public operations that dispatch into the variant vtable.
package ds

import (
	"fmt"
	"io"
)

// DS owns one projected dense decomposition: the named matrix slots, the
// scratch arrays, the decomposition state and the variant vtable. A DS is
// single-threaded; concurrent use requires external synchronisation.
type DS struct {
	kind Kind
	ops  *variantOps

	ld int // leading dimension (row stride); fixed by Allocate
	n  int // active dimension
	m  int // column dimension (SVD problems are n×m)
	l  int // locked leading columns
	k  int // intermediate dimension (arrow position)
	t  int // dimension prior to the last truncation

	state     State
	method    int
	funmethod int

	compact  bool
	extrarow bool
	refined  bool

	mat  [numSlots][]float64
	held [numSlots]bool

	perm  []int
	rwork []float64
	iwork []int

	cmp Comparator
	sel Selector
}

// New creates an empty DS for the given problem type and applies the
// functional options. The DS must still be Allocate'd before use.
// Returns ErrUnknownKind for a name outside the fixed variant set and
// ErrBadMethod when an option selects a method the variant lacks.
func New(kind Kind, opts ...Option) (*DS, error) {
	ops, err := lookupVariant(kind)
	if err != nil {
		return nil, fmt.Errorf("New(%q): %w", kind, err)
	}
	d := &DS{kind: kind, ops: ops, state: StateRaw}
	if err = gatherOptions(d, opts); err != nil {
		return nil, fmt.Errorf("New(%q): %w", kind, err)
	}

	return d, nil
}

// Kind returns the problem-type name of this DS.
func (d *DS) Kind() Kind { return d.kind }

// State returns the current decomposition phase.
func (d *DS) State() State { return d.state }

// Allocate fixes the leading dimension of all matrix slots. Storage itself
// is lazy; Allocate only validates and records ld. Calling Allocate again
// with a different ld drops all slots (contents are NOT preserved).
func (d *DS) Allocate(ld int) error {
	if ld <= 0 {
		return fmt.Errorf("Allocate(%d): %w", ld, ErrBadDimension)
	}
	if ld != d.ld {
		for s := range d.mat {
			d.mat[s] = nil
		}
		d.perm = nil
	}
	d.ld = ld
	d.n, d.m, d.l, d.k, d.t = 0, 0, 0, 0, 0
	d.setState(StateRaw)

	return nil
}

// Reset clears matrix contents and dimensions but keeps ld and all
// allocated storage for reuse, per the monotonic workspace policy.
func (d *DS) Reset() {
	for s := range d.mat {
		buf := d.mat[s]
		for i := range buf {
			buf[i] = 0
		}
		d.held[s] = false
	}
	d.n, d.m, d.l, d.k, d.t = 0, 0, 0, 0, 0
	d.setState(StateRaw)
}

// SetCompact toggles compact (arrow-)tridiagonal storage. Must be called
// before Allocate.
func (d *DS) SetCompact(on bool) error {
	if d.ld != 0 {
		return fmt.Errorf("SetCompact: %w", ErrAllocated)
	}
	d.compact = on

	return nil
}

// Compact reports whether compact storage is active.
func (d *DS) Compact() bool { return d.compact }

// SetExtraRow toggles the (n+1)×n residual-row convention. Must be called
// before Allocate.
func (d *DS) SetExtraRow(on bool) error {
	if d.ld != 0 {
		return fmt.Errorf("SetExtraRow: %w", ErrAllocated)
	}
	d.extrarow = on

	return nil
}

// ExtraRow reports whether the extra residual row is active.
func (d *DS) ExtraRow() bool { return d.extrarow }

// SetRefined toggles refined Ritz vectors. Must be called before Allocate.
func (d *DS) SetRefined(on bool) error {
	if d.ld != 0 {
		return fmt.Errorf("SetRefined: %w", ErrAllocated)
	}
	d.refined = on

	return nil
}

// Refined reports whether refined vector extraction is active.
func (d *DS) Refined() bool { return d.refined }

// SetMethod selects the sub-algorithm used by Solve.
func (d *DS) SetMethod(method int) error {
	if method < 0 || method >= d.ops.methods {
		return fmt.Errorf("SetMethod(%d) of %d: %w", method, d.ops.methods, ErrBadMethod)
	}
	d.method = method

	return nil
}

// Method returns the selected solve method index.
func (d *DS) Method() int { return d.method }

// SetFunMethod selects the sub-algorithm used by ComputeFunction.
func (d *DS) SetFunMethod(method int) error {
	if method < 0 || method >= MaxMethods {
		return fmt.Errorf("SetFunMethod(%d): %w", method, ErrBadMethod)
	}
	d.funmethod = method

	return nil
}

// FunMethod returns the selected function method index.
func (d *DS) FunMethod() int { return d.funmethod }

// SetComparator installs (or clears, with nil) the eigenvalue ordering
// consulted by Sort.
func (d *DS) SetComparator(cmp Comparator) { d.cmp = cmp }

// SetSelector installs (or clears, with nil) the region predicate used by
// Sort for select/reject partitioning.
func (d *DS) SetSelector(sel Selector) { d.sel = sel }

// SetDimensions fixes the active block: dimension n, column dimension m
// (SVD only; pass 0 otherwise), locked columns l and intermediate marker k.
// Resets the state machine to Raw. Enforces 0 ≤ l ≤ k ≤ n ≤ ld, 0 ≤ m ≤ ld.
func (d *DS) SetDimensions(n, m, l, k int) error {
	if d.ld == 0 {
		return fmt.Errorf("SetDimensions: %w", ErrNotAllocated)
	}
	if n < 0 || n > d.ld || m < 0 || m > d.ld || l < 0 || l > n || k < l || k > n {
		return fmt.Errorf("SetDimensions(%d,%d,%d,%d) ld=%d: %w", n, m, l, k, d.ld, ErrBadDimension)
	}
	d.n, d.m, d.l, d.k = n, m, l, k
	d.t = n
	d.setState(StateRaw)

	return nil
}

// Dimensions returns (n, m, l, k).
func (d *DS) Dimensions() (n, m, l, k int) { return d.n, d.m, d.l, d.k }

// TruncatedSize returns t, the dimension prior to the last truncation.
func (d *DS) TruncatedSize() int { return d.t }

// LeadingDimension returns ld (0 before Allocate).
func (d *DS) LeadingDimension() int { return d.ld }

// GetArray acquires exclusive write access to a full matrix slot and
// returns its backing storage together with the row stride ld. The slot
// stays dirty until RestoreArray; a second acquisition is ErrSlotHeld and
// an undeclared slot is ErrUnknownSlot.
func (d *DS) GetArray(s Slot) ([]float64, int, error) {
	if d.ld == 0 {
		return nil, 0, fmt.Errorf("GetArray(%v): %w", s, ErrNotAllocated)
	}
	if s < 0 || int(s) >= numSlots || s == MatT || s == MatD {
		return nil, 0, fmt.Errorf("GetArray(%v): %w", s, ErrUnknownSlot)
	}
	if !d.ops.declares(s) {
		return nil, 0, fmt.Errorf("GetArray(%v) for %q: %w", s, d.kind, ErrUnknownSlot)
	}
	if d.held[s] {
		return nil, 0, fmt.Errorf("GetArray(%v): %w", s, ErrSlotHeld)
	}
	d.held[s] = true

	return d.allocateMat(s), d.ld, nil
}

// RestoreArray releases an acquisition made by GetArray.
func (d *DS) RestoreArray(s Slot) error {
	if s < 0 || int(s) >= numSlots || !d.held[s] {
		return fmt.Errorf("RestoreArray(%v): %w", s, ErrSlotNotHeld)
	}
	d.held[s] = false

	return nil
}

// GetArrayReal acquires the real-valued compact slots: T (three bands of
// ld entries: diagonal, off-diagonal, arrow) or D (diagonal/signature).
func (d *DS) GetArrayReal(s Slot) ([]float64, int, error) {
	if d.ld == 0 {
		return nil, 0, fmt.Errorf("GetArrayReal(%v): %w", s, ErrNotAllocated)
	}
	if s != MatT && s != MatD {
		return nil, 0, fmt.Errorf("GetArrayReal(%v): %w", s, ErrUnknownSlot)
	}
	if !d.ops.declares(s) {
		return nil, 0, fmt.Errorf("GetArrayReal(%v) for %q: %w", s, d.kind, ErrUnknownSlot)
	}
	if d.held[s] {
		return nil, 0, fmt.Errorf("GetArrayReal(%v): %w", s, ErrSlotHeld)
	}
	d.held[s] = true

	return d.allocateMat(s), d.ld, nil
}

// RestoreArrayReal releases an acquisition made by GetArrayReal.
func (d *DS) RestoreArrayReal(s Slot) error { return d.RestoreArray(s) }

// anyHeld reports an outstanding acquisition; operations refuse to run
// while the caller holds a slot.
func (d *DS) anyHeld() error {
	for s, h := range d.held {
		if h {
			return fmt.Errorf("slot %v: %w", Slot(s), ErrSlotHeld)
		}
	}

	return nil
}

// ready validates the common preconditions of every numerical operation.
func (d *DS) ready() error {
	if d.ld == 0 {
		return ErrNotAllocated
	}
	if d.n == 0 {
		return fmt.Errorf("empty active block: %w", ErrBadDimension)
	}

	return d.anyHeld()
}

// Solve computes the condensed form and fills the eigenvalue arrays: real
// parts in wr[l:n], imaginary parts in wi[l:n] (wi may be nil when the
// caller knows the spectrum is real; variants producing complex pairs then
// return ErrShortSlice). Leaves the DS in StateCondensed.
func (d *DS) Solve(wr, wi []float64) error {
	if err := d.ready(); err != nil {
		return fmt.Errorf("Solve: %w", err)
	}
	if len(wr) < d.n {
		return fmt.Errorf("Solve: wr: %w", ErrShortSlice)
	}
	if err := d.requireState(StateRaw, StateIntermediate); err != nil {
		return fmt.Errorf("Solve: %w", err)
	}
	if err := d.ops.solve(d, wr, wi); err != nil {
		return fmt.Errorf("Solve(%q): %w", d.kind, err)
	}
	d.setState(StateCondensed)

	return nil
}

// Sort reorders the condensed form with the installed comparator. The sort
// keys default to (wr, wi); when rr/ri are non-nil they are used as keys
// instead while wr/wi are permuted alongside. With a Selector installed the
// selected group is moved first and its size returned.
// Requires StateCondensed; leaves the DS in StateSorted.
func (d *DS) Sort(wr, wi, rr, ri []float64) (selected int, err error) {
	if err = d.ready(); err != nil {
		return 0, fmt.Errorf("Sort: %w", err)
	}
	if d.cmp == nil {
		return 0, fmt.Errorf("Sort: %w", ErrNoComparator)
	}
	if len(wr) < d.n {
		return 0, fmt.Errorf("Sort: wr: %w", ErrShortSlice)
	}
	if rr != nil && len(rr) < d.n {
		return 0, fmt.Errorf("Sort: rr: %w", ErrShortSlice)
	}
	if ri != nil && len(ri) < d.n {
		return 0, fmt.Errorf("Sort: ri: %w", ErrShortSlice)
	}
	if err = d.requireState(StateCondensed, StateSorted); err != nil {
		return 0, fmt.Errorf("Sort: %w", err)
	}
	if d.ops.sort == nil {
		return 0, fmt.Errorf("Sort(%q): %w", d.kind, ErrUnsupported)
	}
	if selected, err = d.ops.sort(d, wr, wi, rr, ri); err != nil {
		return 0, fmt.Errorf("Sort(%q): %w", d.kind, err)
	}
	d.setState(StateSorted)

	return selected, nil
}

// Truncate reduces the active dimension to n, keeping the leading n−l
// active columns. The discarded trailing block is assumed negligible
// (caller's responsibility). Leaves the DS in StateCondensed.
func (d *DS) Truncate(n int) error {
	if err := d.ready(); err != nil {
		return fmt.Errorf("Truncate: %w", err)
	}
	if n < d.l || n > d.n {
		return fmt.Errorf("Truncate(%d) with l=%d n=%d: %w", n, d.l, d.n, ErrBadDimension)
	}
	if err := d.requireAtLeast(StateCondensed); err != nil {
		return fmt.Errorf("Truncate: %w", err)
	}
	if d.ops.truncate == nil {
		return fmt.Errorf("Truncate(%q): %w", d.kind, ErrUnsupported)
	}
	if err := d.ops.truncate(d, n); err != nil {
		return fmt.Errorf("Truncate(%q): %w", d.kind, err)
	}
	d.setState(StateCondensed)

	return nil
}

// UpdateExtraRow propagates the residual row through the accumulated
// transform so the (n+1)-th row reflects the decomposition. Requires the
// extra-row capability and at least StateCondensed.
func (d *DS) UpdateExtraRow() error {
	if err := d.ready(); err != nil {
		return fmt.Errorf("UpdateExtraRow: %w", err)
	}
	if !d.extrarow {
		return fmt.Errorf("UpdateExtraRow: %w", ErrExtraRowRequired)
	}
	if err := d.requireAtLeast(StateCondensed); err != nil {
		return fmt.Errorf("UpdateExtraRow: %w", err)
	}
	if d.ops.updateExtra == nil {
		return fmt.Errorf("UpdateExtraRow(%q): %w", d.kind, ErrUnsupported)
	}
	if err := d.ops.updateExtra(d); err != nil {
		return fmt.Errorf("UpdateExtraRow(%q): %w", d.kind, err)
	}
	d.setState(StateCondensed)

	return nil
}

// Cond estimates the condition number of the transform basis, used by
// outer solvers to decide when to restart. The norm choice is
// variant-specific (see DESIGN notes in the repository).
func (d *DS) Cond() (float64, error) {
	if err := d.ready(); err != nil {
		return 0, fmt.Errorf("Cond: %w", err)
	}
	if d.ops.cond == nil {
		return 0, fmt.Errorf("Cond(%q): %w", d.kind, ErrUnsupported)
	}
	kappa, err := d.ops.cond(d)
	if err != nil {
		return 0, fmt.Errorf("Cond(%q): %w", d.kind, err)
	}

	return kappa, nil
}

// TranslateHarmonic replaces the condensed form by one whose Ritz values
// are harmonic Ritz values about tau with weight nu. The rank-one update
// vector is written into g (length ≥ n) and its norm returned. With the
// recover flag (undo) set, the update described by the caller-supplied g
// is undone instead. Requires StateCondensed (or Sorted) and the extra row.
func (d *DS) TranslateHarmonic(tau, nu float64, undo bool, g []float64) (float64, error) {
	if err := d.ready(); err != nil {
		return 0, fmt.Errorf("TranslateHarmonic: %w", err)
	}
	if !d.extrarow {
		return 0, fmt.Errorf("TranslateHarmonic: %w", ErrExtraRowRequired)
	}
	if len(g) < d.n {
		return 0, fmt.Errorf("TranslateHarmonic: g: %w", ErrShortSlice)
	}
	if err := d.requireAtLeast(StateCondensed); err != nil {
		return 0, fmt.Errorf("TranslateHarmonic: %w", err)
	}
	if d.ops.translateHarm == nil {
		return 0, fmt.Errorf("TranslateHarmonic(%q): %w", d.kind, ErrUnsupported)
	}
	gnorm, err := d.ops.translateHarm(d, tau, nu, undo, g)
	if err != nil {
		return 0, fmt.Errorf("TranslateHarmonic(%q): %w", d.kind, err)
	}
	d.setState(StateCondensed)

	return gnorm, nil
}

// TranslateRKS updates the condensed form after a rational Krylov shift
// change: A becomes A − alpha·I with the transform basis adjusted. Locked
// columns are untouched. Requires at least StateCondensed.
func (d *DS) TranslateRKS(alpha float64) error {
	if err := d.ready(); err != nil {
		return fmt.Errorf("TranslateRKS: %w", err)
	}
	if err := d.requireAtLeast(StateCondensed); err != nil {
		return fmt.Errorf("TranslateRKS: %w", err)
	}
	if d.ops.translateRKS == nil {
		return fmt.Errorf("TranslateRKS(%q): %w", d.kind, ErrUnsupported)
	}
	if err := d.ops.translateRKS(d, alpha); err != nil {
		return fmt.Errorf("TranslateRKS(%q): %w", d.kind, err)
	}
	d.setState(StateCondensed)

	return nil
}

// Normalize rescales column col (all active columns when col < 0) of an
// eigenvector slot under the problem's natural inner product: Euclidean,
// B-inner, or the indefinite D-inner for ghiep. Complex conjugate pairs
// are normalised jointly.
func (d *DS) Normalize(s Slot, col int) error {
	if err := d.ready(); err != nil {
		return fmt.Errorf("Normalize: %w", err)
	}
	if d.ops.normalize == nil {
		return fmt.Errorf("Normalize(%q): %w", d.kind, ErrUnsupported)
	}
	if err := d.ops.normalize(d, s, col); err != nil {
		return fmt.Errorf("Normalize(%q): %w", d.kind, err)
	}

	return nil
}

// Vectors computes the eigenvectors (or singular vectors) of the condensed
// problem into slot s: column col only, or all active columns when
// col < 0. The returned residual-norm estimate (when the variant provides
// one) supports locking decisions in outer solvers. Requires at least
// StateCondensed.
func (d *DS) Vectors(s Slot, col int) (rnorm float64, err error) {
	if err = d.ready(); err != nil {
		return 0, fmt.Errorf("Vectors: %w", err)
	}
	if err = d.requireAtLeast(StateCondensed); err != nil {
		return 0, fmt.Errorf("Vectors: %w", err)
	}
	if d.ops.vectors == nil {
		return 0, fmt.Errorf("Vectors(%q): %w", d.kind, ErrUnsupported)
	}
	if rnorm, err = d.ops.vectors(d, s, col); err != nil {
		return 0, fmt.Errorf("Vectors(%q): %w", d.kind, err)
	}

	return rnorm, nil
}

// ComputeFunction evaluates f applied to the condensed matrix into slot W.
// The algorithm per function is selected by SetFunMethod. Requires at
// least StateCondensed for kinds that consume the condensed factor.
func (d *DS) ComputeFunction(f FunKind) error {
	if err := d.ready(); err != nil {
		return fmt.Errorf("ComputeFunction: %w", err)
	}
	if d.ops.function == nil {
		return fmt.Errorf("ComputeFunction(%q): %w", d.kind, ErrUnsupported)
	}
	if err := d.ops.function(d, f); err != nil {
		return fmt.Errorf("ComputeFunction(%q, %v): %w", d.kind, f, err)
	}

	return nil
}

// View writes a structured dump of the DS: type, dimensions, state and the
// allocated slots' active blocks.
func (d *DS) View(w io.Writer) error {
	_, err := fmt.Fprintf(w, "ds: type=%s state=%s ld=%d n=%d m=%d l=%d k=%d t=%d method=%d compact=%t extrarow=%t refined=%t\n",
		d.kind, d.state, d.ld, d.n, d.m, d.l, d.k, d.t, d.method, d.compact, d.extrarow, d.refined)
	if err != nil {
		return err
	}
	for s := 0; s < numSlots; s++ {
		if d.mat[s] == nil {
			continue
		}
		if err = d.viewMat(w, Slot(s)); err != nil {
			return err
		}
	}

	return nil
}

// ViewMatrix writes a dump of one slot's active block.
func (d *DS) ViewMatrix(w io.Writer, s Slot) error {
	if s < 0 || int(s) >= numSlots {
		return fmt.Errorf("ViewMatrix(%v): %w", s, ErrUnknownSlot)
	}

	return d.viewMat(w, s)
}
