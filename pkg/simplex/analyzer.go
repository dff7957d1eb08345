package simplex

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
)

// classifyEps is the epsilon for classification decisions made after (or
// instead of) pivoting: feasibility residuals, degeneracy, alternate
// optima, and the structural pre-checks. It is looser than pivotEps
// because these are judgments about an already-computed tableau, not
// pivot selections.
const classifyEps = 1e-9

// Conflict describes a set of constraints proven contradictory without
// solving. Rows are 0-based indices into Model.Constraints.
type Conflict struct {
	Rows   []int
	Reason string
}

// CheckTrivial scans for constraints whose coefficients are all zero but
// whose relation cannot hold, e.g. 0·x ≥ 5. Such a row proves the model
// infeasible before any pivoting.
func CheckTrivial(m *lp.Model) (*Conflict, bool) {
	for i, con := range m.Constraints {
		zero := true
		for _, a := range con.Coeffs {
			if math.Abs(a) > classifyEps {
				zero = false
				break
			}
		}
		if !zero {
			continue
		}
		bad := false
		switch con.Rel {
		case lp.LessEq:
			bad = con.RHS < -classifyEps
		case lp.GreaterEq:
			bad = con.RHS > classifyEps
		case lp.Equal:
			bad = math.Abs(con.RHS) > classifyEps
		}
		if bad {
			return &Conflict{
				Rows:   []int{i},
				Reason: fmt.Sprintf("constraint %d has zero coefficients but requires 0 %s %g", i+1, con.Rel, con.RHS),
			}, true
		}
	}
	return nil, false
}

// CheckParallelEqualities scans for pairs of equality constraints with
// proportional coefficient vectors but inconsistent right-hand sides,
// e.g. x + y = 1 and 2x + 2y = 5. Quadratic in the number of equality
// rows; intended for analysis, not the solve path.
func CheckParallelEqualities(m *lp.Model) (*Conflict, bool) {
	var eqs []int
	for i, con := range m.Constraints {
		if con.Rel == lp.Equal {
			eqs = append(eqs, i)
		}
	}
	for a := 0; a < len(eqs); a++ {
		for b := a + 1; b < len(eqs); b++ {
			ci, cj := m.Constraints[eqs[a]], m.Constraints[eqs[b]]
			scale, ok := proportional(ci.Coeffs, cj.Coeffs)
			if !ok {
				continue
			}
			if math.Abs(cj.RHS-scale*ci.RHS) > classifyEps {
				return &Conflict{
					Rows: []int{eqs[a], eqs[b]},
					Reason: fmt.Sprintf("equality constraints %d and %d are parallel but demand different right-hand sides",
						eqs[a]+1, eqs[b]+1),
				}, true
			}
		}
	}
	return nil, false
}

// proportional reports whether v = scale·u for some scale, returning that
// scale. All-zero u does not count (the trivial check owns that case).
func proportional(u, v []float64) (float64, bool) {
	ref := -1
	for k, a := range u {
		if math.Abs(a) > classifyEps {
			ref = k
			break
		}
	}
	if ref < 0 {
		return 0, false
	}
	scale := v[ref] / u[ref]
	for k := range u {
		if math.Abs(v[k]-scale*u[k]) > classifyEps {
			return 0, false
		}
	}
	return scale, true
}

// buildAuxTableau lays out the Phase-I tableau: the canonical form's
// structural and slack/surplus columns plus one artificial unit column
// per ≥ or = row, with the objective set to minimize the artificial sum.
func buildAuxTableau(c *canonical) *Tableau {
	n := len(c.obj)
	m := len(c.rows)

	cols := make([]Column, 0, n+2*m)
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
	artCol := make([]int, m)
	for i, row := range c.rows {
		artCol[i] = -1
		if row.rel != lp.LessEq {
			artCol[i] = len(cols)
			cols = append(cols, Column{Kind: ColArtificial, Var: -1, Row: i})
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
		if artCol[i] >= 0 {
			t.cells[i][artCol[i]] = 1
		}
		t.cells[i][len(cols)] = row.rhs
	}

	// Phase-I objective: minimize the artificial sum. Minimization stores
	// direct coefficients, so each artificial column carries +1.
	obj := t.cells[m]
	for _, j := range artCol {
		if j >= 0 {
			obj[j] = 1
		}
	}
	for i := range c.rows {
		if artCol[i] >= 0 {
			t.basis[i] = artCol[i]
		} else {
			t.basis[i] = auxCol[i]
		}
	}
	t.priceOut()
	return t
}

// infeasibility sums the values of basic artificial columns. A feasible
// model drives this to (numerical) zero in Phase I.
func infeasibility(t *Tableau) float64 {
	sum := 0.0
	for i, col := range t.basis {
		if t.cols[col].Kind == ColArtificial {
			sum += math.Abs(t.RHS(i))
		}
	}
	return sum
}

// solveWithPhaseI handles models whose rows lack a ready slack basis. It
// minimizes the artificial sum over an auxiliary tableau, declares
// infeasibility if that minimum is positive, and otherwise transitions to
// a Phase-II tableau carrying the original objective. The iteration cap
// spans both phases.
func solveWithPhaseI(ctx context.Context, c *canonical, o lp.SolverOptions) (*Result, error) {
	t := buildAuxTableau(c)
	run := &pivotRun{opts: o}
	status, err := run.loop(ctx, t, false)
	if err != nil {
		return nil, err
	}
	if status == StatusIterationLimit {
		return assemble(c, t, StatusIterationLimit, run), nil
	}
	// The artificial sum is bounded below by zero, so the loop can only
	// stop at optimality here.
	if infeasibility(t) > classifyEps {
		return assemble(c, t, StatusInfeasible, run), nil
	}

	t2 := phaseTwoTableau(c, t)
	status, err = run.loop(ctx, t2, true)
	if err != nil {
		return nil, err
	}
	return assemble(c, t2, status, run), nil
}

// phaseTwoTableau converts a feasible Phase-I terminal tableau into the
// Phase-II starting tableau: basic artificials are pivoted out where a
// non-artificial pivot exists (rows where none exists are redundant and
// keep a zero-valued artificial), nonbasic artificial columns are
// dropped, and the original objective row is installed and priced out.
func phaseTwoTableau(c *canonical, t *Tableau) *Tableau {
	for i, col := range t.basis {
		if t.cols[col].Kind != ColArtificial {
			continue
		}
		for j := 0; j < t.NumCols(); j++ {
			if t.cols[j].Kind == ColArtificial {
				continue
			}
			if math.Abs(t.cells[i][j]) > pivotEps {
				t.Pivot(i, j)
				break
			}
		}
	}

	keep := make([]int, 0, t.NumCols())
	for j := 0; j < t.NumCols(); j++ {
		if t.cols[j].Kind == ColArtificial && !t.IsBasic(j) {
			continue
		}
		keep = append(keep, j)
	}
	remap := make(map[int]int, len(keep))
	cols := make([]Column, len(keep))
	for nj, j := range keep {
		remap[j] = nj
		cols[nj] = t.cols[j]
	}

	out := newTableau(t.n, cols, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		for nj, j := range keep {
			out.cells[i][nj] = t.cells[i][j]
		}
		out.cells[i][len(cols)] = t.RHS(i)
		out.basis[i] = remap[t.basis[i]]
	}
	obj := out.cells[t.NumRows()]
	for nj, j := range keep {
		if col := t.cols[j]; col.Kind == ColStructural {
			obj[nj] = c.objectiveRow(col.Var)
		}
	}
	out.priceOut()
	return out
}

// FeasibilityReport is the outcome of a standalone Phase-I run.
type FeasibilityReport struct {
	// Feasible reports whether the artificial sum reached (numerical) zero.
	Feasible bool
	// Residual is the terminal artificial sum: zero for feasible models,
	// the minimum total constraint violation otherwise.
	Residual float64
	// X is the terminal assignment, a feasible point when Feasible is set
	// and a least-violating point otherwise.
	X []float64
	// ViolatedRows lists the constraints that remain violated at the
	// least-violating point, as 0-based indices into Model.Constraints.
	// Empty for feasible models.
	ViolatedRows []int
	// Iterations is the number of Phase-I pivots.
	Iterations int
}

// PhaseI runs only the feasibility phase: it minimizes the total
// constraint violation and reports whether the model admits any feasible
// point, without ever touching the original objective.
func PhaseI(ctx context.Context, m *lp.Model, opts *lp.SolverOptions) (*FeasibilityReport, error) {
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

	c := canonicalize(m)
	t := buildAuxTableau(c)
	run := &pivotRun{opts: o}
	status, err := run.loop(ctx, t, false)
	if err != nil {
		return nil, err
	}
	if status == StatusIterationLimit {
		return nil, errors.New(errors.ErrCodeTimeout, "phase I exceeded %d iterations", o.MaxIterations)
	}

	x := t.Assignment()
	for j, f := range c.flip {
		if f {
			x[j] = -x[j]
		}
	}
	residual := infeasibility(t)

	// A basic artificial with positive value marks its owning constraint as
	// unsatisfiable at the least-violating point. Artificials only attach
	// to original rows (implicit binary bounds are always ≤ with a
	// non-negative right-hand side), so Row indexes Model.Constraints.
	var violated []int
	if residual > classifyEps {
		for i, col := range t.basis {
			if d := t.cols[col]; d.Kind == ColArtificial && math.Abs(t.RHS(i)) > classifyEps {
				violated = append(violated, d.Row)
			}
		}
		slices.Sort(violated)
	}

	return &FeasibilityReport{
		Feasible:     residual <= classifyEps,
		Residual:     residual,
		X:            x,
		ViolatedRows: violated,
		Iterations:   run.iters,
	}, nil
}

// UnboundedRay reconstructs an improving ray from an unbounded result: a
// direction d with A·d respecting every constraint and the objective
// strictly improving along x + t·d. Returns nil if the result is not an
// unbounded terminal tableau.
func UnboundedRay(res *Result) []float64 {
	if res == nil || res.Status != StatusUnbounded || res.Tableau == nil {
		return nil
	}
	t := res.Tableau
	for j := 0; j < t.NumCols(); j++ {
		if t.cols[j].Kind == ColArtificial || t.ReducedCost(j) >= -pivotEps {
			continue
		}
		open := true
		for i := 0; i < t.NumRows(); i++ {
			if t.cells[i][j] > pivotEps {
				open = false
				break
			}
		}
		if !open {
			continue
		}

		d := make([]float64, t.n)
		if col := t.cols[j]; col.Kind == ColStructural {
			d[col.Var] = 1
		}
		for i, bcol := range t.basis {
			if c := t.cols[bcol]; c.Kind == ColStructural {
				d[c.Var] = -t.cells[i][j]
			}
		}
		for k, f := range res.flip {
			if f {
				d[k] = -d[k]
			}
		}
		return d
	}
	return nil
}

// Analysis is the diagnostic summary produced by [Analyze].
type Analysis struct {
	// Result is the relaxation solve outcome. For pre-check conflicts it
	// is a bare infeasible result with no tableau.
	Result *Result

	// Conflict is non-nil when a structural pre-check proved infeasibility
	// without pivoting.
	Conflict *Conflict

	// Degenerate reports a basic variable at value zero in the terminal
	// tableau. Degenerate models can cycle under the default pivot rule;
	// RecommendBland mirrors this flag for callers that expose advice.
	Degenerate     bool
	RecommendBland bool

	// AlternateOptima reports a non-basic column with zero reduced cost at
	// optimality, meaning other vertices attain the same objective.
	AlternateOptima bool

	// Ray is an improving direction for unbounded models, nil otherwise.
	Ray []float64
}

// Analyze solves the relaxation and classifies its geometry: structural
// conflicts, degeneracy, alternate optima, and unbounded rays.
func Analyze(ctx context.Context, m *lp.Model, opts *lp.SolverOptions) (*Analysis, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if conflict, ok := CheckTrivial(m); ok {
		return &Analysis{
			Result:   &Result{Status: StatusInfeasible, Objective: math.NaN()},
			Conflict: conflict,
		}, nil
	}
	if conflict, ok := CheckParallelEqualities(m); ok {
		return &Analysis{
			Result:   &Result{Status: StatusInfeasible, Objective: math.NaN()},
			Conflict: conflict,
		}, nil
	}

	res, err := Solve(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	a := &Analysis{Result: res}
	t := res.Tableau
	if t == nil {
		return a, nil
	}

	for i := 0; i < t.NumRows(); i++ {
		if math.Abs(t.RHS(i)) <= classifyEps {
			a.Degenerate = true
			a.RecommendBland = true
			break
		}
	}
	if res.Status == StatusOptimal {
		for j := 0; j < t.NumCols(); j++ {
			if t.cols[j].Kind == ColArtificial || t.IsBasic(j) {
				continue
			}
			if math.Abs(t.ReducedCost(j)) <= classifyEps {
				a.AlternateOptima = true
				break
			}
		}
	}
	if res.Status == StatusUnbounded {
		a.Ray = UnboundedRay(res)
	}
	return a, nil
}
