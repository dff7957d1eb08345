package simplex

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ColKind distinguishes the columns of a tableau.
type ColKind int

const (
	// ColStructural is an original model variable.
	ColStructural ColKind = iota
	// ColSlack is the +1 auxiliary column of a ≤ constraint.
	ColSlack
	// ColSurplus is the −1 auxiliary column of a ≥ constraint.
	ColSurplus
	// ColArtificial is a Phase-I column with unit cost.
	ColArtificial
)

// String returns a short label used in reports ("x", "s", "e", "a").
func (k ColKind) String() string {
	switch k {
	case ColSlack:
		return "s"
	case ColSurplus:
		return "e"
	case ColArtificial:
		return "a"
	default:
		return "x"
	}
}

// Column describes one tableau column.
type Column struct {
	Kind ColKind
	// Var is the structural variable index for ColStructural columns, -1 otherwise.
	Var int
	// Row is the owning constraint row for auxiliary columns, -1 otherwise.
	Row int
}

// Label returns the display name of the column, e.g. "x3" or "s1".
func (c Column) Label() string {
	if c.Kind == ColStructural {
		return fmt.Sprintf("x%d", c.Var+1)
	}
	return fmt.Sprintf("%s%d", c.Kind, c.Row+1)
}

// ErrBasisInvariant is returned by [Tableau.CheckBasis] when the basis
// mapping is inconsistent with the tableau contents.
var ErrBasisInvariant = errors.New("basis invariant violated")

// Tableau is a dense simplex tableau: m constraint rows plus one objective
// row (stored last), and one column per variable plus the right-hand side
// (stored last). The objective row holds negated coefficients for
// maximization and direct coefficients for minimization, so the pivoting
// rule "most negative entry enters" applies uniformly.
type Tableau struct {
	n     int // structural variable count
	cols  []Column
	cells [][]float64
	basis []int // basis[i] = column currently basic in constraint row i
}

func newTableau(n int, cols []Column, rows int) *Tableau {
	cells := make([][]float64, rows+1)
	for i := range cells {
		cells[i] = make([]float64, len(cols)+1)
	}
	return &Tableau{
		n:     n,
		cols:  cols,
		cells: cells,
		basis: make([]int, rows),
	}
}

// NumRows returns the number of constraint rows (excluding the objective row).
func (t *Tableau) NumRows() int { return len(t.cells) - 1 }

// NumCols returns the number of variable columns (excluding the RHS column).
func (t *Tableau) NumCols() int { return len(t.cols) }

// NumStructural returns the number of structural variables.
func (t *Tableau) NumStructural() int { return t.n }

// At returns the cell at constraint row i, column j.
func (t *Tableau) At(i, j int) float64 { return t.cells[i][j] }

// RHS returns the right-hand side of constraint row i.
func (t *Tableau) RHS(i int) float64 { return t.cells[i][len(t.cols)] }

// ReducedCost returns the objective-row entry of column j.
func (t *Tableau) ReducedCost(j int) float64 { return t.cells[len(t.cells)-1][j] }

// ObjectiveRHS returns the right-hand side cell of the objective row.
func (t *Tableau) ObjectiveRHS() float64 { return t.cells[len(t.cells)-1][len(t.cols)] }

// Column returns the descriptor of column j.
func (t *Tableau) Column(j int) Column { return t.cols[j] }

// Columns returns a copy of all column descriptors.
func (t *Tableau) Columns() []Column { return slices.Clone(t.cols) }

// Basis returns a copy of the basis mapping (constraint row → column).
func (t *Tableau) Basis() []int { return slices.Clone(t.basis) }

// BasicColumn returns the column currently basic in constraint row i.
func (t *Tableau) BasicColumn(i int) int { return t.basis[i] }

// IsBasic reports whether column j is in the basis.
func (t *Tableau) IsBasic(j int) bool { return slices.Contains(t.basis, j) }

// Clone returns a deep copy.
func (t *Tableau) Clone() *Tableau {
	out := &Tableau{
		n:     t.n,
		cols:  slices.Clone(t.cols),
		cells: make([][]float64, len(t.cells)),
		basis: slices.Clone(t.basis),
	}
	for i, row := range t.cells {
		out.cells[i] = slices.Clone(row)
	}
	return out
}

// Pivot performs a pivot on constraint row `row` and column `col`:
// the pivot row is scaled so the pivot element becomes 1, the appropriate
// multiple of it is subtracted from every other row (objective row
// included) to zero the column elsewhere, and the basis mapping is updated.
func (t *Tableau) Pivot(row, col int) {
	p := t.cells[row][col]
	pr := t.cells[row]
	for j := range pr {
		pr[j] /= p
	}
	for i, r := range t.cells {
		if i == row {
			continue
		}
		factor := r[col]
		if factor == 0 {
			continue
		}
		for j := range r {
			r[j] -= factor * pr[j]
		}
	}
	t.basis[row] = col
}

// priceOut zeroes the objective-row entries of all basic columns by
// subtracting multiples of the constraint rows. Required after installing a
// starting basis whose columns carry nonzero cost (Phase-I artificials) and
// after restoring the original objective for Phase II.
func (t *Tableau) priceOut() {
	obj := t.cells[len(t.cells)-1]
	for i, col := range t.basis {
		factor := obj[col]
		if factor == 0 {
			continue
		}
		row := t.cells[i]
		for j := range obj {
			obj[j] -= factor * row[j]
		}
	}
}

// Assignment reads the structural variable values from the basis mapping.
// Non-structural basic columns are ignored; non-basic variables are zero.
func (t *Tableau) Assignment() []float64 {
	x := make([]float64, t.n)
	for i, col := range t.basis {
		if c := t.cols[col]; c.Kind == ColStructural {
			x[c.Var] = t.RHS(i)
		}
	}
	return x
}

// CheckBasis verifies the basic-feasible-tableau invariant: the basis has
// one distinct entry per constraint row and every basic column is a unit
// vector within tol.
func (t *Tableau) CheckBasis(tol float64) error {
	m := t.NumRows()
	if len(t.basis) != m {
		return fmt.Errorf("%w: basis size %d for %d rows", ErrBasisInvariant, len(t.basis), m)
	}
	seen := make(map[int]bool, m)
	for i, col := range t.basis {
		if col < 0 || col >= len(t.cols) {
			return fmt.Errorf("%w: row %d maps to column %d", ErrBasisInvariant, i, col)
		}
		if seen[col] {
			return fmt.Errorf("%w: column %d basic in two rows", ErrBasisInvariant, col)
		}
		seen[col] = true
		for r := 0; r < m; r++ {
			want := 0.0
			if r == i {
				want = 1.0
			}
			if math.Abs(t.cells[r][col]-want) > tol {
				return fmt.Errorf("%w: column %d is not a unit vector in row %d", ErrBasisInvariant, col, r)
			}
		}
	}
	return nil
}
