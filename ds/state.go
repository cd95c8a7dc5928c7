// SPDX-License-Identifier: MIT

// Package ds: decomposition state machine. The legal transitions are
//
//	Raw → Intermediate          variant-specific reduction
//	Raw|Intermediate → Condensed  Solve
//	Condensed → Sorted           Sort
//	Sorted → Condensed           Truncate, UpdateExtraRow, translations
//	any → Raw                    SetDimensions, Reset
//
// Entry points demand a minimum state with requireState and advance with
// setState; internal variant code uses the same helpers so violations are
// caught uniformly as ErrBadState.
package ds

import "fmt"

// requireState fails with ErrBadState unless the current state is one of
// the listed states.
func (d *DS) requireState(states ...State) error {
	for _, s := range states {
		if d.state == s {
			return nil
		}
	}

	return fmt.Errorf("state %v: %w", d.state, ErrBadState)
}

// requireAtLeast fails unless the current state has reached min in the
// Raw < Intermediate < Condensed < Sorted progression.
func (d *DS) requireAtLeast(min State) error {
	if d.state < min {
		return fmt.Errorf("state %v, need at least %v: %w", d.state, min, ErrBadState)
	}

	return nil
}

// setState records a transition. Transitions are validated by the callers
// (each operation knows its target); setState only tracks the value.
func (d *DS) setState(s State) { d.state = s }
