// SPDX-License-Identifier: MIT

// Package ds: problem-type registry. Each impl_*.go file registers one
// variant vtable from its init function, the same pattern database/sql
// drivers use. A nil entry in a vtable means the operation is absent for
// that variant and surfaces as ErrUnsupported.
package ds

// variantOps is the vtable a problem type supplies. Only solve is
// mandatory; every other operation is optional.
type variantOps struct {
	// methods is the number of selectable solve algorithms, in [1, MaxMethods].
	methods int

	// slots lists the matrix slots this variant declares. GetArray on a slot
	// outside this list is a programmer error (ErrUnknownSlot).
	slots []Slot

	solve         func(d *DS, wr, wi []float64) error
	sort          func(d *DS, wr, wi, rr, ri []float64) (int, error)
	truncate      func(d *DS, n int) error
	updateExtra   func(d *DS) error
	cond          func(d *DS) (float64, error)
	translateHarm func(d *DS, tau, nu float64, undo bool, g []float64) (float64, error)
	translateRKS  func(d *DS, alpha float64) error
	normalize     func(d *DS, s Slot, col int) error
	vectors       func(d *DS, s Slot, col int) (float64, error)
	function      func(d *DS, f FunKind) error
}

// registry maps variant names to their vtables. Mutated only from init
// functions; read-only afterwards, so no locking is required.
var registry = make(map[Kind]*variantOps)

// registerVariant installs a vtable. Panics on duplicates and on malformed
// vtables — both are programmer errors caught at package init.
func registerVariant(k Kind, ops *variantOps) {
	if _, dup := registry[k]; dup {
		panic("ds: duplicate variant registration: " + string(k))
	}
	if ops.solve == nil || ops.methods < 1 || ops.methods > MaxMethods {
		panic("ds: malformed vtable for variant: " + string(k))
	}
	registry[k] = ops
}

// lookupVariant resolves a name to its vtable.
func lookupVariant(k Kind) (*variantOps, error) {
	ops, ok := registry[k]
	if !ok {
		return nil, ErrUnknownKind
	}

	return ops, nil
}

// declares reports whether the variant declares slot s.
func (v *variantOps) declares(s Slot) bool {
	for _, t := range v.slots {
		if t == s {
			return true
		}
	}

	return false
}
