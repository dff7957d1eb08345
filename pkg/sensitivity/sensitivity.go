// Package sensitivity performs post-optimal analysis on a frozen optimal
// simplex result: shadow prices, reduced costs, objective-coefficient and
// right-hand-side ranging, and construction of the dual model. It never
// pivots; everything is derived from the terminal basis with dense linear
// algebra.
package sensitivity

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// rangeEps guards divisions when scanning ratio bounds.
const rangeEps = 1e-12

// Range is a closed interval of allowable values for one coefficient,
// within which the current basis stays optimal. Bounds may be infinite.
type Range struct {
	Lower float64
	Upper float64
}

// Report is the full post-optimal analysis of one model/result pair.
type Report struct {
	// ShadowPrices holds one dual value per original constraint: the rate
	// of change of the optimal objective per unit increase of that
	// constraint's right-hand side.
	ShadowPrices []float64

	// ReducedCosts holds one value per structural variable: the amount by
	// which its objective coefficient must improve before the variable
	// becomes attractive. Zero for basic variables.
	ReducedCosts []float64

	// ObjectiveRanges gives, per variable, the interval of objective
	// coefficients over which the current basis stays optimal.
	ObjectiveRanges []Range

	// RHSRanges gives, per original constraint, the interval of right-hand
	// sides over which the current basis stays feasible.
	RHSRanges []Range
}

// canon mirrors the engine's canonicalization so the basis descriptors in
// the terminal tableau can be matched back to matrix columns: NonPositive
// variables sign-substituted, an x ≤ 1 row per binary variable, rows with
// negative right-hand sides negated.
type canon struct {
	coeffs  [][]float64
	rhs     []float64
	cost    []float64 // substituted objective, direction kept
	flip    []bool
	negated []bool
}

func canonicalize(m *lp.Model) *canon {
	n := m.NumVars()
	c := &canon{
		cost: slices.Clone(m.Objective),
		flip: make([]bool, n),
	}
	for j, k := range m.Kinds {
		if k == lp.NonPositive {
			c.flip[j] = true
			c.cost[j] = -c.cost[j]
		}
	}
	for _, con := range m.Constraints {
		row := slices.Clone(con.Coeffs)
		for j, f := range c.flip {
			if f {
				row[j] = -row[j]
			}
		}
		c.coeffs = append(c.coeffs, row)
		c.rhs = append(c.rhs, con.RHS)
	}
	for j, k := range m.Kinds {
		if k == lp.Binary {
			row := make([]float64, n)
			row[j] = 1
			c.coeffs = append(c.coeffs, row)
			c.rhs = append(c.rhs, 1)
		}
	}
	c.negated = make([]bool, len(c.rhs))
	for i := range c.rhs {
		if c.rhs[i] < 0 {
			for j := range c.coeffs[i] {
				c.coeffs[i][j] = -c.coeffs[i][j]
			}
			c.rhs[i] = -c.rhs[i]
			c.negated[i] = true
		}
	}
	return c
}

// basisColumn fills col with the constraint-matrix column of one basis
// member: the canonical coefficients for a structural variable, ±e_row
// for slack and surplus, e_row for a retained artificial.
func (c *canon) basisColumn(desc simplex.Column, col []float64) {
	for i := range col {
		col[i] = 0
	}
	switch desc.Kind {
	case simplex.ColStructural:
		for i := range c.coeffs {
			col[i] = c.coeffs[i][desc.Var]
		}
	case simplex.ColSlack, simplex.ColArtificial:
		col[desc.Row] = 1
	case simplex.ColSurplus:
		col[desc.Row] = -1
	}
}

func (c *canon) basisCost(desc simplex.Column) float64 {
	if desc.Kind == simplex.ColStructural {
		return c.cost[desc.Var]
	}
	return 0
}

// Analyze builds the full sensitivity report for an optimal result.
// The result must carry its terminal tableau; analyzing anything but an
// optimal snapshot is an error.
func Analyze(m *lp.Model, res *simplex.Result) (*Report, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if res == nil || res.Status != simplex.StatusOptimal || res.Tableau == nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"sensitivity analysis requires an optimal result with its tableau")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModel, err, "invalid model")
	}

	c := canonicalize(m)
	t := res.Tableau
	rows := len(c.rhs)
	if t.NumRows() != rows || t.NumStructural() != m.NumVars() {
		return nil, errors.New(errors.ErrCodeInvalidModel,
			"result tableau does not match the model dimensions")
	}

	// Rebuild the basis matrix from the terminal basis descriptors and
	// invert it once; duals, reduced costs and both rangings all hang off
	// B⁻¹.
	basis := t.Basis()
	bmat := mat.NewDense(rows, rows, nil)
	cB := mat.NewVecDense(rows, nil)
	col := make([]float64, rows)
	for i, bc := range basis {
		desc := t.Column(bc)
		c.basisColumn(desc, col)
		for r := 0; r < rows; r++ {
			bmat.Set(r, i, col[r])
		}
		cB.SetVec(i, c.basisCost(desc))
	}
	var binv mat.Dense
	if err := binv.Inverse(bmat); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSingularBasis, err, "terminal basis matrix is singular")
	}

	b := mat.NewVecDense(rows, c.rhs)
	var xB, y mat.VecDense
	xB.MulVec(&binv, b)
	y.MulVec(binv.T(), cB)

	nOrig := m.NumConstraints()
	rep := &Report{
		ShadowPrices:    make([]float64, nOrig),
		ReducedCosts:    make([]float64, m.NumVars()),
		ObjectiveRanges: make([]Range, m.NumVars()),
		RHSRanges:       make([]Range, nOrig),
	}

	for i := 0; i < nOrig; i++ {
		price := y.AtVec(i)
		if c.negated[i] {
			price = -price
		}
		rep.ShadowPrices[i] = price
	}

	for j := 0; j < m.NumVars(); j++ {
		rc := c.cost[j]
		for i := 0; i < rows; i++ {
			rc -= y.AtVec(i) * c.coeffs[i][j]
		}
		if c.flip[j] {
			rc = -rc
		}
		rep.ReducedCosts[j] = rc
		rep.ObjectiveRanges[j] = objectiveRange(m, c, t, j)
	}

	for i := 0; i < nOrig; i++ {
		rep.RHSRanges[i] = rhsRange(m, c, &binv, &xB, i)
	}
	return rep, nil
}

// objectiveRange computes the interval of true objective coefficients for
// variable j over which the terminal basis stays optimal, from the
// terminal reduced-cost row.
func objectiveRange(m *lp.Model, c *canon, t *simplex.Tableau, j int) Range {
	cj := m.Objective[j]

	basisRow := -1
	for i := 0; i < t.NumRows(); i++ {
		if col := t.Column(t.BasicColumn(i)); col.Kind == simplex.ColStructural && col.Var == j {
			basisRow = i
			break
		}
	}

	// Shifts are computed in the tableau's stored-cost space and mapped
	// back to true coefficients at the end.
	lo, hi := math.Inf(-1), math.Inf(1)
	if basisRow < 0 {
		// A nonbasic coefficient may fall until its reduced cost reaches zero.
		lo = -t.ReducedCost(j)
	} else {
		for k := 0; k < t.NumCols(); k++ {
			if t.IsBasic(k) || t.Column(k).Kind == simplex.ColArtificial {
				continue
			}
			alpha := t.At(basisRow, k)
			if alpha > rangeEps {
				hi = math.Min(hi, t.ReducedCost(k)/alpha)
			} else if alpha < -rangeEps {
				lo = math.Max(lo, t.ReducedCost(k)/alpha)
			}
		}
	}

	var r Range
	if m.Direction == lp.Maximize {
		// Stored costs are negated: a stored shift of +d moves the true
		// coefficient by -d, so the interval mirrors.
		r = Range{Lower: cj - hi, Upper: cj - lo}
	} else {
		r = Range{Lower: cj + lo, Upper: cj + hi}
	}
	if c.flip[j] {
		r.Lower, r.Upper = -r.Upper, -r.Lower
	}
	return r
}

// rhsRange computes the interval of true right-hand sides for original
// constraint i over which the terminal basis stays feasible, using column
// i of B⁻¹ as the perturbation direction.
func rhsRange(m *lp.Model, c *canon, binv *mat.Dense, xB *mat.VecDense, i int) Range {
	rows := xB.Len()
	lo, hi := math.Inf(-1), math.Inf(1)
	for r := 0; r < rows; r++ {
		d := binv.At(r, i)
		if d > rangeEps {
			lo = math.Max(lo, -xB.AtVec(r)/d)
		} else if d < -rangeEps {
			hi = math.Min(hi, -xB.AtVec(r)/d)
		}
	}

	bi := m.Constraints[i].RHS
	if c.negated[i] {
		// The canonical row is the negated original; a canonical shift of
		// +d moves the original right-hand side by -d.
		return Range{Lower: bi - hi, Upper: bi - lo}
	}
	return Range{Lower: bi + lo, Upper: bi + hi}
}

// Dual constructs the dual of the model's continuous relaxation, with one
// dual variable per primal constraint. Integrality is ignored: Integer
// and Binary variables dualize as non-negative continuous ones.
func Dual(m *lp.Model) (*lp.Model, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModel, err, "invalid model")
	}

	rows := m.NumConstraints()
	n := m.NumVars()
	max := m.Direction == lp.Maximize

	dual := &lp.Model{
		Objective: make([]float64, rows),
		Kinds:     make([]lp.VarKind, rows),
		Name:      m.Name + "-dual",
	}
	if max {
		dual.Direction = lp.Minimize
	} else {
		dual.Direction = lp.Maximize
	}

	for i, con := range m.Constraints {
		dual.Objective[i] = con.RHS
		switch con.Rel {
		case lp.Equal:
			dual.Kinds[i] = lp.Continuous
		case lp.LessEq:
			if max {
				dual.Kinds[i] = lp.NonNegative
			} else {
				dual.Kinds[i] = lp.NonPositive
			}
		case lp.GreaterEq:
			if max {
				dual.Kinds[i] = lp.NonPositive
			} else {
				dual.Kinds[i] = lp.NonNegative
			}
		}
	}

	for j := 0; j < n; j++ {
		coeffs := make([]float64, rows)
		for i, con := range m.Constraints {
			coeffs[i] = con.Coeffs[j]
		}
		rel := lp.Equal
		switch m.Kinds[j] {
		case lp.Continuous:
			rel = lp.Equal
		case lp.NonPositive:
			if max {
				rel = lp.LessEq
			} else {
				rel = lp.GreaterEq
			}
		default: // NonNegative, Integer, Binary
			if max {
				rel = lp.GreaterEq
			} else {
				rel = lp.LessEq
			}
		}
		dual.Constraints = append(dual.Constraints, lp.Constraint{
			Coeffs: coeffs,
			Rel:    rel,
			RHS:    m.Objective[j],
		})
	}
	return dual, nil
}
