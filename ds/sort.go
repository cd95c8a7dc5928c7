// SPDX-License-Identifier: MIT

// Package ds: sort driver. A reusable comparator-based permutation engine:
// it computes a stable permutation of the active blocks [l,n) — treating a
// 2×2 complex-conjugate pair as one atomic key — and applies it
// synchronously to eigenvalue arrays and to columns/rows of the named
// slots. Quasi-triangular factors do NOT go through the permutation
// appliers; their variants realise the same target order through
// block-swap primitives (Dtrexc, or the pencil block move of qz_swap.go)
// instead.
package ds

// evBlock is one sort key: a 1×1 real eigenvalue or a 2×2 conjugate pair.
type evBlock struct {
	start int  // index of the representative eigenvalue
	size  int  // 1 or 2
	sel   bool // selector verdict for the representative
}

// scanBlocks splits [l,n) into atomic blocks using the imaginary parts:
// a nonzero ki[i] opens a pair (i, i+1). ki may be nil for real spectra.
func scanBlocks(ki []float64, l, n int) []evBlock {
	blocks := make([]evBlock, 0, n-l)
	for i := l; i < n; {
		size := 1
		if ki != nil && ki[i] != 0 && i+1 < n {
			size = 2
		}
		blocks = append(blocks, evBlock{start: i, size: size})
		i += size
	}

	return blocks
}

// sortPerm orders the blocks of [l,n) by the installed comparator over the
// key arrays (kr, ki), with the selector (when present) partitioning
// selected blocks first. Returns the full index permutation (identity on
// [0,l)) and the number of selected eigenvalues.
//
// Stability: insertion sort, exactly the behavior the idempotence
// invariant requires — equal keys keep their original order.
// Complexity: O(b²) comparisons for b blocks; b ≤ n−l is small by design.
func (d *DS) sortPerm(kr, ki []float64) ([]int, int) {
	blocks := scanBlocks(ki, d.l, d.n)
	if d.sel != nil {
		for b := range blocks {
			blocks[b].sel = d.sel(kr[blocks[b].start], imagAt(ki, blocks[b].start))
		}
	}

	// precedes reports strict ordering: selected group first, comparator
	// inside groups.
	precedes := func(a, b evBlock) bool {
		if a.sel != b.sel {
			return a.sel
		}

		return d.cmp(kr[a.start], imagAt(ki, a.start), kr[b.start], imagAt(ki, b.start)) < 0
	}
	for i := 1; i < len(blocks); i++ {
		b := blocks[i]
		j := i - 1
		for j >= 0 && precedes(b, blocks[j]) {
			blocks[j+1] = blocks[j]
			j--
		}
		blocks[j+1] = b
	}

	if cap(d.perm) < d.n {
		d.perm = make([]int, d.n)
	}
	perm := d.perm[:d.n]
	for i := 0; i < d.l; i++ {
		perm[i] = i
	}
	selected := 0
	at := d.l
	for _, b := range blocks {
		if b.sel {
			selected += b.size
		}
		for o := 0; o < b.size; o++ {
			perm[at] = b.start + o
			at++
		}
	}

	return perm, selected
}

// reorderCondensed orders the quasi-triangular blocks of [l,n) by repeated
// selection: the best remaining block under the selector/comparator pair
// is moved to the front of the unsettled range through the variant's
// block-exchange primitive (Dtrexc, or the pencil block move for
// generalized forms), which keeps 2×2 pairs
// atomic and updates the factors and accumulators itself. Key arrays
// travel with the blocks. Returns the number of selected eigenvalues.
func (d *DS) reorderCondensed(wr, wi, rr, ri []float64, move func(ifst, ilst int) (int, int, error)) (int, error) {
	kr, ki := wr, wi
	if rr != nil {
		kr, ki = rr, ri
	}
	selVerdict := func(j int) bool {
		return d.sel != nil && d.sel(kr[j], imagAt(ki, j))
	}
	// count before reordering; the verdicts do not change under permutation
	selected := 0
	for j := d.l; j < d.n; j += d.blockAt(j) {
		if selVerdict(j) {
			selected += d.blockAt(j)
		}
	}
	precedes := func(cand, best int) bool {
		cs, bs := selVerdict(cand), selVerdict(best)
		if cs != bs {
			return cs
		}

		return d.cmp(kr[cand], imagAt(ki, cand), kr[best], imagAt(ki, best)) < 0
	}
	for pos := d.l; pos < d.n; {
		best := pos
		for j := pos + d.blockAt(pos); j < d.n; j += d.blockAt(j) {
			if precedes(j, best) {
				best = j
			}
		}
		size := d.blockAt(best)
		if best != pos {
			ifst, ilst, err := move(best, pos)
			if err != nil {
				return selected, err
			}
			for _, v := range [][]float64{wr, wi, rr, ri} {
				rotateSeg(v, ilst, ifst, size)
			}
		}
		pos += size
	}

	return selected, nil
}

// imagAt reads ki[i] tolerating a nil array (all-real spectrum).
func imagAt(ki []float64, i int) float64 {
	if ki == nil {
		return 0
	}

	return ki[i]
}

// permuteVals reorders vals[l:n] so new position i holds vals[perm[i]].
func (d *DS) permuteVals(perm []int, vals []float64) {
	if vals == nil {
		return
	}
	rwork, _ := d.ensureWork(d.n, 0)
	tmp := rwork[:d.n]
	copy(tmp, vals[:d.n])
	for i := d.l; i < d.n; i++ {
		vals[i] = tmp[perm[i]]
	}
}

// permuteColumns post-multiplies: column i of the leading rows×n block of
// slot s becomes old column perm[i], for i in [l,n). Locked columns are
// untouched by construction of perm.
func (d *DS) permuteColumns(s Slot, rows int, perm []int) {
	a := d.allocateMat(s)
	width := d.n - d.l
	rwork, _ := d.ensureWork(rows*width + d.n, 0)
	tmp := rwork[:rows*width]
	for i := 0; i < rows; i++ {
		copy(tmp[i*width:(i+1)*width], a[i*d.ld+d.l:i*d.ld+d.n])
	}
	for j := d.l; j < d.n; j++ {
		src := perm[j] - d.l
		for i := 0; i < rows; i++ {
			a[i*d.ld+j] = tmp[i*width+src]
		}
	}
}

// permuteRows pre-multiplies: row i of the leading n×cols block of slot s
// becomes old row perm[i], for i in [l,n).
func (d *DS) permuteRows(s Slot, cols int, perm []int) {
	a := d.allocateMat(s)
	height := d.n - d.l
	rwork, _ := d.ensureWork(height*cols + d.n, 0)
	tmp := rwork[:height*cols]
	for i := d.l; i < d.n; i++ {
		copy(tmp[(i-d.l)*cols:(i-d.l+1)*cols], a[i*d.ld:i*d.ld+cols])
	}
	for i := d.l; i < d.n; i++ {
		copy(a[i*d.ld:i*d.ld+cols], tmp[(perm[i]-d.l)*cols:(perm[i]-d.l)*cols+cols])
	}
}

// permuteBoth applies the permutation to rows and columns of a (block-)
// diagonal factor in slot s. Valid only when the factor is block diagonal
// with blocks matching the atomic keys, so the permutation is a
// similarity.
func (d *DS) permuteBoth(s Slot, perm []int) {
	d.permuteColumns(s, d.n, perm)
	d.permuteRows(s, d.n, perm)
}
