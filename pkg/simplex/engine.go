// Package simplex implements a tableau-based primal simplex engine for
// linear programs, together with a special-case analyzer (feasibility
// pre-checks, Phase-I search, unboundedness rays, degeneracy and alternate
// optima detection) and a revised-simplex variant.
//
// The engine solves one continuous relaxation per call and keeps no state
// between calls: the terminal tableau and basis travel inside the returned
// [Result]. Higher layers (branch-and-bound, cutting planes, sensitivity)
// are built on top of this contract.
package simplex

import (
	"context"
	"math"
	"slices"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/observability"
)

// pivotEps is the fixed epsilon for pivot and ratio comparisons. It is
// independent of SolverOptions.Tolerance: the user tolerance governs
// integrality and verification decisions, never which pivot is taken.
const pivotEps = 1e-12

// canonRow is one constraint after canonicalization.
type canonRow struct {
	coeffs []float64
	rel    lp.Relation
	rhs    float64
}

// canonical is the engine's working form of a model: sign-substituted
// variables, implicit binary upper bounds materialized as rows, and
// non-negative right-hand sides.
type canonical struct {
	model *lp.Model
	obj   []float64 // objective after sign substitution
	rows  []canonRow
	flip  []bool // flip[j]: variable j was substituted x_j := -x_j
}

// canonicalize prepares a model for the tableau:
//
//   - NonPositive variables are substituted x := -x so every structural
//     variable is non-negative in the tableau; assignments are mapped back
//     on output.
//   - Binary variables contribute an implicit x ≤ 1 row, so their
//     relaxation lives in [0, 1].
//   - Rows with a negative right-hand side are negated wholesale, flipping
//     ≤ and ≥, so all right-hand sides are non-negative.
func canonicalize(m *lp.Model) *canonical {
	n := m.NumVars()
	c := &canonical{
		model: m,
		obj:   slices.Clone(m.Objective),
		flip:  make([]bool, n),
	}
	for j, k := range m.Kinds {
		if k == lp.NonPositive {
			c.flip[j] = true
			c.obj[j] = -c.obj[j]
		}
	}

	for _, con := range m.Constraints {
		row := canonRow{coeffs: slices.Clone(con.Coeffs), rel: con.Rel, rhs: con.RHS}
		for j, f := range c.flip {
			if f {
				row.coeffs[j] = -row.coeffs[j]
			}
		}
		c.rows = append(c.rows, row)
	}
	for j, k := range m.Kinds {
		if k == lp.Binary {
			coeffs := make([]float64, n)
			coeffs[j] = 1
			c.rows = append(c.rows, canonRow{coeffs: coeffs, rel: lp.LessEq, rhs: 1})
		}
	}

	for i := range c.rows {
		if c.rows[i].rhs < 0 {
			row := &c.rows[i]
			for j := range row.coeffs {
				row.coeffs[j] = -row.coeffs[j]
			}
			row.rhs = -row.rhs
			row.rel = row.rel.Flip()
		}
	}
	return c
}

// objectiveRow returns the tableau objective coefficient for structural
// variable j: negated when maximizing, direct when minimizing, so the
// "most negative entry enters" rule serves both directions.
func (c *canonical) objectiveRow(j int) float64 {
	if c.model.Direction == lp.Maximize {
		return -c.obj[j]
	}
	return c.obj[j]
}

// buildTableau lays out the tableau for the canonical form: structural
// columns first, then one slack (+1) per ≤ row and one surplus (−1) per ≥
// row. No artificial columns are added here. The second return value
// reports whether a ready feasible basis exists for every row; when it is
// false the caller must go through Phase I.
func buildTableau(c *canonical) (*Tableau, bool) {
	n := len(c.obj)
	m := len(c.rows)

	cols := make([]Column, 0, n+m)
	for j := 0; j < n; j++ {
		cols = append(cols, Column{Kind: ColStructural, Var: j, Row: -1})
	}
	auxCol := make([]int, m)
	for i, row := range c.rows {
		auxCol[i] = -1
		switch row.rel {
		case lp.LessEq:
			auxCol[i] = len(cols)
			cols = append(cols, Column{Kind: ColSlack, Var: -1, Row: i})
		case lp.GreaterEq:
			auxCol[i] = len(cols)
			cols = append(cols, Column{Kind: ColSurplus, Var: -1, Row: i})
		}
	}

	t := newTableau(n, cols, m)
	for i, row := range c.rows {
		for j, a := range row.coeffs {
			t.cells[i][j] = a
		}
		if auxCol[i] >= 0 {
			if row.rel == lp.LessEq {
				t.cells[i][auxCol[i]] = 1
			} else {
				t.cells[i][auxCol[i]] = -1
			}
		}
		t.cells[i][len(cols)] = row.rhs
	}
	obj := t.cells[m]
	for j := 0; j < n; j++ {
		obj[j] = c.objectiveRow(j)
	}

	ready := true
	used := make(map[int]bool, m)
	for i, row := range c.rows {
		if row.rel == lp.LessEq {
			t.basis[i] = auxCol[i]
			used[auxCol[i]] = true
			continue
		}
		// ≥ and = rows have no slack basis; accept a pre-existing unit
		// column if one happens to exist (Phase II resumption builds such
		// tableaus), otherwise flag for Phase I.
		if j := findUnitColumn(t, i, used); j >= 0 {
			t.basis[i] = j
			used[j] = true
			continue
		}
		t.basis[i] = -1
		ready = false
	}
	if ready {
		t.priceOut()
	}
	return t, ready
}

// findUnitColumn returns a column that is 1 in row i and 0 in every other
// constraint row, excluding columns already claimed, or -1.
func findUnitColumn(t *Tableau, i int, used map[int]bool) int {
	m := t.NumRows()
	for j := 0; j < t.NumCols(); j++ {
		if used[j] || math.Abs(t.cells[i][j]-1) > pivotEps {
			continue
		}
		unit := true
		for r := 0; r < m; r++ {
			if r != i && math.Abs(t.cells[r][j]) > pivotEps {
				unit = false
				break
			}
		}
		if unit {
			return j
		}
	}
	return -1
}

// Solve runs the tableau simplex engine on one continuous relaxation.
//
// Both model and opts are required; passing nil for either is an immediate
// argument error (callers that want defaults use lp.DefaultOptions). Models
// whose rows lack a ready slack basis (equality or ≥ rows) are routed
// through a Phase-I solve of an auxiliary model by this same engine before
// the original objective is optimized.
//
// Cancellation is checked once per pivot; a canceled context aborts the
// solve with the context's error.
func Solve(ctx context.Context, m *lp.Model, opts *lp.SolverOptions) (*Result, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if opts == nil {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "solver options are required")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModel, err, "invalid model")
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOptions, err, "invalid options")
	}
	o := opts.Normalized()

	// Constraints with all-zero coefficients and an unsatisfiable
	// right-hand side prove infeasibility without a single pivot.
	if _, ok := CheckTrivial(m); ok {
		return &Result{Status: StatusInfeasible, Objective: math.NaN()}, nil
	}

	observability.Solver().OnSolveStart(ctx, m.NumVars(), m.NumConstraints())
	res, err := solveCanonical(ctx, canonicalize(m), o)
	observability.Solver().OnSolveComplete(ctx, statusLabel(res), err)
	return res, err
}

func statusLabel(res *Result) string {
	if res == nil {
		return StatusError.String()
	}
	return res.Status.String()
}

func solveCanonical(ctx context.Context, c *canonical, o lp.SolverOptions) (*Result, error) {
	t, ready := buildTableau(c)
	if !ready {
		return solveWithPhaseI(ctx, c, o)
	}

	run := &pivotRun{opts: o}
	status, err := run.loop(ctx, t, false)
	if err != nil {
		return nil, err
	}
	return assemble(c, t, status, run), nil
}

// pivotRun tracks iteration count and step snapshots across Phase I and
// Phase II of a single solve.
type pivotRun struct {
	opts  lp.SolverOptions
	iters int
	steps []Step
}

// loop pivots t until optimality, unboundedness, or the iteration cap.
// The returned status is one of StatusOptimal, StatusUnbounded,
// StatusIterationLimit. When blockArtificial is set, artificial columns
// are never selected to enter; Phase II uses this so an artificial kept
// basic at zero for a redundant row cannot regain a positive value.
func (r *pivotRun) loop(ctx context.Context, t *Tableau, blockArtificial bool) (Status, error) {
	obj := t.cells[t.NumRows()]
	for {
		if err := ctx.Err(); err != nil {
			return StatusError, err
		}
		if r.iters >= r.opts.MaxIterations {
			return StatusIterationLimit, nil
		}

		// Dantzig's rule: the most negative objective entry enters, scanning
		// left to right so the first of tied columns wins.
		entering := -1
		for j := 0; j < t.NumCols(); j++ {
			if blockArtificial && t.cols[j].Kind == ColArtificial {
				continue
			}
			if obj[j] < -pivotEps && (entering < 0 || obj[j] < obj[entering]) {
				entering = j
			}
		}
		if entering < 0 {
			return StatusOptimal, nil
		}

		// Minimum-ratio rule over rows with a strictly positive entry in
		// the entering column; strict comparison keeps the first row on ties.
		leaving := -1
		best := math.Inf(1)
		for i := 0; i < t.NumRows(); i++ {
			coeff := t.cells[i][entering]
			if coeff <= pivotEps {
				continue
			}
			if ratio := t.RHS(i) / coeff; ratio < best {
				best = ratio
				leaving = i
			}
		}
		if leaving < 0 {
			return StatusUnbounded, nil
		}

		left := t.basis[leaving]
		t.Pivot(leaving, entering)
		r.iters++
		if r.opts.ShowSteps {
			r.steps = append(r.steps, Step{
				Iteration: r.iters,
				Entering:  entering,
				Leaving:   left,
				Tableau:   t.Clone(),
			})
		}
	}
}

// assemble builds the Result from a terminal tableau: the assignment is
// read from the basis mapping (sign substitutions undone), and the
// objective is recomputed from the original, pre-canonicalization
// coefficients so reporting stays consistent after row sign flips.
func assemble(c *canonical, t *Tableau, status Status, run *pivotRun) *Result {
	x := t.Assignment()
	for j, f := range c.flip {
		if f {
			x[j] = -x[j]
		}
	}

	res := &Result{
		Status:     status,
		X:          x,
		Iterations: run.iters,
		Tableau:    t,
		Steps:      run.steps,
		flip:       c.flip,
	}
	switch status {
	case StatusOptimal:
		res.Objective = c.model.EvalObjective(x)
	case StatusUnbounded:
		if c.model.Direction == lp.Maximize {
			res.Objective = math.Inf(1)
		} else {
			res.Objective = math.Inf(-1)
		}
	case StatusIterationLimit:
		res.Objective = math.NaN()
	case StatusInfeasible:
		res.Objective = math.NaN()
	}
	return res
}
