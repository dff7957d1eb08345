package simplex

import (
	"errors"
	"math"
	"testing"
)

// twoRowTableau builds the starting tableau of
//
//	max x1 + 2 x2
//	s.t.  x1 +  x2 <= 4
//	      x1 + 3 x2 <= 6
//
// with slacks basic: columns x1, x2, s1, s2 and the negated objective row.
func twoRowTableau() *Tableau {
	cols := []Column{
		{Kind: ColStructural, Var: 0, Row: -1},
		{Kind: ColStructural, Var: 1, Row: -1},
		{Kind: ColSlack, Var: -1, Row: 0},
		{Kind: ColSlack, Var: -1, Row: 1},
	}
	t := newTableau(2, cols, 2)
	copy(t.cells[0], []float64{1, 1, 1, 0, 4})
	copy(t.cells[1], []float64{1, 3, 0, 1, 6})
	copy(t.cells[2], []float64{-1, -2, 0, 0, 0})
	t.basis[0] = 2
	t.basis[1] = 3
	return t
}

func TestColumnLabel(t *testing.T) {
	tests := []struct {
		col  Column
		want string
	}{
		{Column{Kind: ColStructural, Var: 2, Row: -1}, "x3"},
		{Column{Kind: ColSlack, Var: -1, Row: 0}, "s1"},
		{Column{Kind: ColSurplus, Var: -1, Row: 1}, "e2"},
		{Column{Kind: ColArtificial, Var: -1, Row: 4}, "a5"},
	}
	for _, tt := range tests {
		if got := tt.col.Label(); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestPivot(t *testing.T) {
	tab := twoRowTableau()
	// Bring x2 into the basis via row 1 (min ratio 6/3 = 2).
	tab.Pivot(1, 1)

	if tab.BasicColumn(1) != 1 {
		t.Errorf("basis[1] = %d, want column 1", tab.BasicColumn(1))
	}
	if got := tab.At(1, 1); got != 1 {
		t.Errorf("pivot cell = %g, want 1", got)
	}
	if got := tab.At(0, 1); got != 0 {
		t.Errorf("column 1 not eliminated from row 0: %g", got)
	}
	if got := tab.ReducedCost(1); got != 0 {
		t.Errorf("column 1 not eliminated from objective row: %g", got)
	}
	if got := tab.RHS(1); got != 2 {
		t.Errorf("RHS(1) = %g, want 2", got)
	}
	if got := tab.RHS(0); got != 2 {
		t.Errorf("RHS(0) = %g, want 2", got)
	}
	if got := tab.ObjectiveRHS(); got != 4 {
		t.Errorf("ObjectiveRHS = %g, want 4", got)
	}
	if err := tab.CheckBasis(1e-12); err != nil {
		t.Errorf("basis invalid after pivot: %v", err)
	}
}

func TestAssignment(t *testing.T) {
	tab := twoRowTableau()
	if got := tab.Assignment(); got[0] != 0 || got[1] != 0 {
		t.Errorf("slack basis assignment = %v, want origin", got)
	}

	tab.Pivot(1, 1)
	got := tab.Assignment()
	if got[0] != 0 || got[1] != 2 {
		t.Errorf("Assignment = %v, want [0 2]", got)
	}
}

func TestClone(t *testing.T) {
	tab := twoRowTableau()
	c := tab.Clone()
	c.Pivot(0, 0)

	if tab.At(0, 0) != 1 || tab.BasicColumn(0) != 2 {
		t.Error("pivoting the clone mutated the original")
	}
}

func TestCheckBasisViolations(t *testing.T) {
	dup := twoRowTableau()
	dup.basis[1] = dup.basis[0]
	if err := dup.CheckBasis(1e-9); !errors.Is(err, ErrBasisInvariant) {
		t.Errorf("duplicate basis column: got %v, want ErrBasisInvariant", err)
	}

	nonUnit := twoRowTableau()
	nonUnit.basis[0] = 0 // column 0 is not a unit vector
	if err := nonUnit.CheckBasis(1e-9); !errors.Is(err, ErrBasisInvariant) {
		t.Errorf("non-unit basic column: got %v, want ErrBasisInvariant", err)
	}

	oob := twoRowTableau()
	oob.basis[0] = 99
	if err := oob.CheckBasis(1e-9); !errors.Is(err, ErrBasisInvariant) {
		t.Errorf("out-of-range basis column: got %v, want ErrBasisInvariant", err)
	}
}

func TestPriceOut(t *testing.T) {
	tab := twoRowTableau()
	// Install a cost on the basic slack columns, then price out.
	tab.cells[2][2] = 1
	tab.cells[2][3] = 1
	tab.priceOut()

	for _, j := range tab.basis {
		if got := tab.ReducedCost(j); math.Abs(got) > 1e-12 {
			t.Errorf("basic column %d has reduced cost %g after priceOut", j, got)
		}
	}
}
