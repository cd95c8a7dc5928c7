// SPDX-License-Identifier: MIT

// Package ds: ready-made eigenvalue comparators and region selectors for
// Sort. Outer solvers typically install one of these; custom orderings
// only need to satisfy the Comparator contract.
package ds

import "math"

// ByLargestMagnitude orders eigenvalues by decreasing |λ|.
func ByLargestMagnitude() Comparator {
	return func(ar, ai, br, bi float64) int {
		return cmpFloat(math.Hypot(br, bi), math.Hypot(ar, ai))
	}
}

// BySmallestMagnitude orders eigenvalues by increasing |λ|.
func BySmallestMagnitude() Comparator {
	return func(ar, ai, br, bi float64) int {
		return cmpFloat(math.Hypot(ar, ai), math.Hypot(br, bi))
	}
}

// ByLargestReal orders eigenvalues by decreasing real part.
func ByLargestReal() Comparator {
	return func(ar, _, br, _ float64) int { return cmpFloat(br, ar) }
}

// BySmallestReal orders eigenvalues by increasing real part.
func BySmallestReal() Comparator {
	return func(ar, _, br, _ float64) int { return cmpFloat(ar, br) }
}

// ByClosestTo orders eigenvalues by increasing distance to the target
// point (tr, ti) in the complex plane.
func ByClosestTo(tr, ti float64) Comparator {
	return func(ar, ai, br, bi float64) int {
		return cmpFloat(math.Hypot(ar-tr, ai-ti), math.Hypot(br-tr, bi-ti))
	}
}

// WithinDistance selects eigenvalues with |λ − (tr + i·ti)| < radius.
// Panics on a non-positive radius (programmer error).
func WithinDistance(tr, ti, radius float64) Selector {
	if radius <= 0 {
		panic("ds: WithinDistance requires radius > 0")
	}

	return func(re, im float64) bool { return math.Hypot(re-tr, im-ti) < radius }
}

// cmpFloat is the three-way comparison shared by the comparators above.
func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
