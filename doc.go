// Package lvldense is your in-memory workbench for the small dense
// eigenproblems at the heart of large-scale spectral computations.
//
// 🚀 What is lvldense/ds?
//
//	A focused library for the projected problems iterative eigensolvers
//	produce — dense, modest order, solved to full accuracy:
//		• Seven problem kinds: hep, nhep, ghep, ghiep, gnhep, svd, qep
//		• Compact band storage for tridiagonal and arrow factors
//		• Locked-column aware solves, truncation and basis updates
//		• Spectrum ordering with pluggable comparators & region selectors
//		• Harmonic and rational-Krylov translations for restarts
//		• Matrix functions of the condensed factor: exp, sqrt, log, φ₁
//
// ✨ Why choose lvldense?
//
//   - Predictable state machine – raw → condensed → sorted, enforced
//   - Explicit workspace – one allocation, reused across restarts
//   - BLAS/LAPACK backbone – gonum kernels underneath, pure Go
//   - Extensible – comparators, selectors and methods are plain values
//
// Everything lives in one subpackage:
//
//	ds/ — the dense-solver type, its variants, sorting and translations
//
// Quick ASCII example:
//
//	┌ α₀ β₀      ┐
//	│ β₀ α₁ β₁   │
//	│    β₁ α₂   │
//	└          β ┘
//
//	a projected tridiagonal with its residual row, ready to condense.
//
// Dive into ds/doc.go for the full API surface and the examples/
// directory for runnable scenarios.
//
//	go get github.com/katalvlaran/lvldense/ds
package lvldense
