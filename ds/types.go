// SPDX-License-Identifier: MIT

// Package ds: domain types shared by the kernel and the variant files.
// Errors live in errors.go and functional options in options.go per the
// repository conventions.
package ds

// Kind names a problem-type variant. The string values are part of the
// public surface: outer solvers select a variant by exactly these names.
type Kind string

// The fixed variant set. Each kind installs its own vtable of operations;
// an operation missing from a vtable yields ErrUnsupported.
const (
	// HEP is the standard Hermitian eigenproblem Ax = λx with A symmetric.
	HEP Kind = "hep"
	// NHEP is the standard non-Hermitian eigenproblem Ax = λx.
	NHEP Kind = "nhep"
	// GHEP is the generalised Hermitian-definite problem Ax = λBx, B > 0.
	GHEP Kind = "ghep"
	// GHIEP is the generalised Hermitian-indefinite problem Tx = λDx with
	// D a ±1 signature; stored compactly as an arrow-tridiagonal pair.
	GHIEP Kind = "ghiep"
	// GNHEP is the generalised non-Hermitian problem Ax = λBx.
	GNHEP Kind = "gnhep"
	// SVD is the singular value decomposition A = U Σ Vᵀ.
	SVD Kind = "svd"
	// QEP is the quadratic eigenproblem (λ²C + λB + A)x = 0.
	QEP Kind = "qep"
)

// State tracks the decomposition phase of the projected problem.
// Transitions are enforced by every entry point; see doc.go.
type State int

const (
	// StateRaw: user data sits in A (and B/C); nothing has been computed.
	StateRaw State = iota
	// StateIntermediate: a variant-specific reduction has been applied
	// (Hessenberg, tridiagonal, arrow elimination).
	StateIntermediate
	// StateCondensed: Solve has produced the canonical condensed factor and
	// the accumulated transform Q (and Z where applicable).
	StateCondensed
	// StateSorted: the condensed form has been reordered by the user
	// comparator.
	StateSorted
)

// String implements fmt.Stringer for diagnostics and View output.
func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateIntermediate:
		return "intermediate"
	case StateCondensed:
		return "condensed"
	case StateSorted:
		return "sorted"
	}

	return "unknown"
}

// Slot identifies one of the named dense buffers owned by a DS.
// The names are part of the ABI shared with outer solvers.
type Slot int

const (
	// MatA holds the projected problem matrix (or its condensed factor).
	MatA Slot = iota
	// MatB holds the second matrix of generalised/quadratic problems.
	MatB
	// MatC holds the third matrix of quadratic problems.
	MatC
	// MatT is compact (arrow-)tridiagonal storage: 3*ld real entries.
	MatT
	// MatD is the signature (±1) or diagonal mass vector: ld real entries.
	MatD
	// MatQ accumulates right Schur/transform vectors.
	MatQ
	// MatZ accumulates left Schur/transform vectors.
	MatZ
	// MatX holds right eigenvectors.
	MatX
	// MatY holds left eigenvectors.
	MatY
	// MatU holds left singular vectors.
	MatU
	// MatVT holds right singular vectors, transposed.
	MatVT
	// MatW is scratch (also the destination of ComputeFunction).
	MatW

	numSlots int = iota // number of named slots; keep last
)

// slotNames is indexed by Slot; used by String and View.
var slotNames = [...]string{"A", "B", "C", "T", "D", "Q", "Z", "X", "Y", "U", "VT", "W"}

// String implements fmt.Stringer.
func (s Slot) String() string {
	if s < 0 || int(s) >= numSlots {
		return "?"
	}

	return slotNames[s]
}

// Comparator orders two (possibly complex) eigenvalues (ar,ai) and (br,bi).
// It returns a negative value when the first argument must precede the
// second, zero on ties (original order is preserved) and a positive value
// otherwise. See compare.go for ready-made comparators.
type Comparator func(ar, ai, br, bi float64) int

// Selector is an optional region predicate consulted by Sort: selected
// eigenvalues are moved, as a stable group, ahead of rejected ones.
// Sort reports the selected count.
type Selector func(re, im float64) bool

// FunKind selects the scalar function applied by ComputeFunction.
type FunKind int

const (
	// FnExp computes the matrix exponential of the condensed factor.
	FnExp FunKind = iota
	// FnSqrt computes the principal matrix square root.
	FnSqrt
	// FnInvSqrt computes the inverse of the principal square root.
	FnInvSqrt
	// FnLog computes the principal matrix logarithm.
	FnLog
	// FnPhi1 computes φ₁(A) = (exp(A) − I) A⁻¹ via the bordered exponential.
	FnPhi1
)

// String implements fmt.Stringer.
func (f FunKind) String() string {
	switch f {
	case FnExp:
		return "exp"
	case FnSqrt:
		return "sqrt"
	case FnInvSqrt:
		return "invsqrt"
	case FnLog:
		return "log"
	case FnPhi1:
		return "phi1"
	}

	return "unknown"
}
