// Package spd implements a sparse symmetric positive-definite solver:
// a minimum-degree fill-reducing permutation followed by a sparse LDLᵀ
// factorization, with forward/diagonal/backward triangular solves.
package spd

import (
	"errors"
	"sort"
)

// Entry is one off-or-on-diagonal nonzero in a sparse row or column.
type Entry struct {
	Col int
	Val float64
}

// ErrSingular is returned when factorization encounters a non-positive
// pivot.
var ErrSingular = errors.New("spd: non-positive pivot, matrix is not SPD")

// Factor takes the lower triangle of a symmetric positive-definite
// matrix, given row-wise, sorted by column index, with exactly one
// diagonal entry per row (rows[i] must contain an Entry{Col: i, ...}).
// It computes a minimum-degree permutation P, then the sparse LDLᵀ
// factorization of P A Pᵀ. Returns ErrSingular if any pivot is
// non-positive.
func Factor(rows [][]Entry) (*LLT, error) {
	n := len(rows)
	perm, invPerm := minDegreeOrder(rows)

	// permuted lower-triangle-plus-diagonal, column-major accumulation
	// buffers for the left-looking LDLᵀ sweep.
	colOfRow := make([][]int, n) // for row i, the columns j<i already eliminated with L[i,j] != 0
	colEntries := make([][]Entry, n) // column j's stored (row>=j, value) entries, row-sorted
	D := make([]float64, n)

	// scatter A (permuted) into per-column dense-ish maps for the sweep.
	permColsLower := make([]map[int]float64, n)
	for i := range permColsLower {
		permColsLower[i] = make(map[int]float64)
	}
	for orig, row := range rows {
		pi := invPerm[orig]
		for _, e := range row {
			pj := invPerm[e.Col]
			r, c := pi, pj
			if r < c {
				r, c = c, r
			}
			permColsLower[c][r] += e.Val
		}
	}

	for j := 0; j < n; j++ {
		work := make(map[int]float64, len(permColsLower[j]))
		for i, v := range permColsLower[j] {
			if i >= j {
				work[i] = v
			}
		}
		for _, k := range colOfRow[j] {
			ljk := lookup(colEntries[k], j)
			if ljk == 0 {
				continue
			}
			factor := ljk * D[k]
			for _, e := range colEntries[k] {
				if e.Col >= j {
					work[e.Col] -= factor * e.Val
				}
			}
		}

		diag := work[j]
		if diag <= 0 {
			return nil, ErrSingular
		}
		D[j] = diag

		var col []Entry
		col = append(col, Entry{Col: j, Val: 1}) // unit diagonal of L
		rowsBelow := make([]int, 0, len(work))
		for i := range work {
			if i > j {
				rowsBelow = append(rowsBelow, i)
			}
		}
		sort.Ints(rowsBelow)
		for _, i := range rowsBelow {
			lij := work[i] / diag
			if lij == 0 {
				continue
			}
			col = append(col, Entry{Col: i, Val: lij}) // stored as (row=i, val) below
			colOfRow[i] = append(colOfRow[i], j)
		}
		colEntries[j] = col
	}

	return &LLT{n: n, perm: perm, invPerm: invPerm, col: colEntries, d: D}, nil
}

func lookup(col []Entry, row int) float64 {
	for _, e := range col {
		if e.Col == row {
			return e.Val
		}
	}
	return 0
}

// LLT is a factored SPD matrix supporting in-place solves.
type LLT struct {
	n       int
	perm    []int // perm[permuted] = original index
	invPerm []int // invPerm[original] = permuted index
	col     [][]Entry // col[j]: unit-lower-triangular column j, entries (row, L[row,j]), row>=j, L[j,j]=1
	d       []float64 // diagonal D
}

// Size returns the matrix dimension.
func (f *LLT) Size() int { return f.n }

// Solve solves A x = b in place: b is overwritten with x. Applies P,
// forward-substitutes L, scales by D⁻¹, back-substitutes Lᵀ, then
// un-permutes.
func (f *LLT) Solve(b []float64) error {
	if len(b) != f.n {
		return errors.New("spd: rhs size mismatch")
	}
	y := make([]float64, f.n)
	for i := 0; i < f.n; i++ {
		y[f.invPerm[i]] = b[i]
	}

	// forward: L z = y
	for j := 0; j < f.n; j++ {
		for _, e := range f.col[j] {
			if e.Col > j {
				y[e.Col] -= e.Val * y[j]
			}
		}
	}
	// diagonal
	for j := 0; j < f.n; j++ {
		y[j] /= f.d[j]
	}
	// backward: Lᵀ x = z
	for j := f.n - 1; j >= 0; j-- {
		for _, e := range f.col[j] {
			if e.Col > j {
				y[j] -= e.Val * y[e.Col]
			}
		}
	}

	for i := 0; i < f.n; i++ {
		b[i] = y[f.invPerm[i]]
	}
	return nil
}

// minDegreeOrder computes a greedy minimum-degree permutation: perm[k] is
// the original index placed at permuted slot k, invPerm is its inverse.
// At each step the remaining vertex of smallest degree in the elimination
// graph is chosen and eliminated, its neighbors becoming a clique (fill).
func minDegreeOrder(rows [][]Entry) (perm, invPerm []int) {
	n := len(rows)
	adj := make([]map[int]bool, n)
	for i := range adj {
		adj[i] = make(map[int]bool)
	}
	for i, row := range rows {
		for _, e := range row {
			if e.Col != i {
				adj[i][e.Col] = true
				adj[e.Col][i] = true
			}
		}
	}

	remaining := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		remaining[i] = true
	}

	perm = make([]int, n)
	invPerm = make([]int, n)
	for k := 0; k < n; k++ {
		best, bestDeg := -1, 1<<30
		order := make([]int, 0, len(remaining))
		for v := range remaining {
			order = append(order, v)
		}
		sort.Ints(order) // deterministic tie-break
		for _, v := range order {
			deg := len(adj[v])
			if deg < bestDeg {
				bestDeg = deg
				best = v
			}
		}

		perm[k] = best
		invPerm[best] = k
		delete(remaining, best)

		var nbrs []int
		for v := range adj[best] {
			if remaining[v] {
				nbrs = append(nbrs, v)
			}
		}
		for _, v := range nbrs {
			delete(adj[v], best)
		}
		for i := 0; i < len(nbrs); i++ {
			for j := i + 1; j < len(nbrs); j++ {
				adj[nbrs[i]][nbrs[j]] = true
				adj[nbrs[j]][nbrs[i]] = true
			}
		}
	}
	return perm, invPerm
}
