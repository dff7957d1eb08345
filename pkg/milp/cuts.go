package milp

import (
	"context"
	"math"
	"sort"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/observability"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// CutSide distinguishes the two directions a cut can push a variable.
type CutSide int

const (
	// CutLower bounds the variable from below (x ≥ threshold).
	CutLower CutSide = iota
	// CutUpper bounds the variable from above (x ≤ threshold).
	CutUpper
	// CutFix pins a binary variable to the threshold (x = threshold).
	CutFix
)

// CutKey identifies a cut for deduplication. Requesting the same key
// twice means the loop is no longer making progress.
type CutKey struct {
	Var       int
	Side      CutSide
	Threshold float64
}

// SolveWithCuts runs the iterative cutting-plane refinement: solve the
// relaxation, rank the fractional integral variables by how far they sit
// from an integer, append one bound cut for the highest-ranked variable
// whose cut was not tried before, and repeat until the relaxation comes
// back integral or a cap is hit. Binary variables are fixed to their
// nearest bit; integer variables are bounded at floor when the fractional
// part is at most one half and at ceil otherwise.
//
// The loop is a heuristic: a cut can exclude the true integer optimum, so
// agreement with branch-and-bound is expected on well-behaved models but
// not guaranteed. When the loop stalls (every fractional variable's cut
// already tried, or the cut cap reached) it falls back to rounding the
// relaxation solution; a rounded point that violates the original
// constraints yields an infeasible outcome marked Truncated, since
// nothing was proven.
func SolveWithCuts(ctx context.Context, m *lp.Model, opts *Options) (*Outcome, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if opts == nil {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "options are required")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModel, err, "invalid model")
	}
	o := opts.Normalized()

	if !m.HasIntegrality() {
		res, err := simplex.Solve(ctx, m, &o.Solver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: res.Status, Objective: res.Objective, X: res.X}, nil
	}

	tol := o.Solver.Tolerance
	used := make(map[CutKey]bool)
	cur := m
	cuts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := simplex.Solve(ctx, cur, &o.Solver)
		if err != nil {
			return nil, err
		}
		if res.Status != simplex.StatusOptimal {
			out := &Outcome{Status: res.Status, Objective: math.NaN(), CutsApplied: cuts}
			if res.Status == simplex.StatusIterationLimit {
				out.Truncated = true
			}
			return out, nil
		}

		j := branchVar(m, res.X, tol)
		if j < 0 {
			return &Outcome{
				Status:      simplex.StatusOptimal,
				Objective:   res.Objective,
				X:           res.X,
				CutsApplied: cuts,
			}, nil
		}
		if cuts >= o.MaxCuts {
			return roundingFallback(m, res, tol, cuts), nil
		}

		key, con, ok := nextCut(m, res.X, tol, used)
		if !ok {
			return roundingFallback(m, res, tol, cuts), nil
		}
		used[key] = true
		observability.Solver().OnCutAdded(ctx, key.Var, key.Threshold)
		cur = cur.WithConstraints(con)
		cuts++
	}
}

// nextCut picks the cut to apply for the point x: fractional integral
// variables are ordered by decreasing distance to the nearest integer,
// ties toward the lowest index, and the first variable whose cut key was
// not used yet wins. The last return is false when every candidate's cut
// was already tried.
func nextCut(m *lp.Model, x []float64, tol float64, used map[CutKey]bool) (CutKey, lp.Constraint, bool) {
	type candidate struct {
		j    int
		dist float64
	}
	var cands []candidate
	for _, j := range m.IntegralVars() {
		if dist := math.Abs(x[j] - math.Round(x[j])); dist > tol {
			cands = append(cands, candidate{j: j, dist: dist})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist > cands[b].dist })

	for _, c := range cands {
		key, con := cutFor(m, c.j, x[c.j])
		if !used[key] {
			return key, con, true
		}
	}
	return CutKey{}, lp.Constraint{}, false
}

// cutFor builds the bound cut for variable j at fractional value v.
func cutFor(m *lp.Model, j int, v float64) (CutKey, lp.Constraint) {
	if m.Kinds[j] == lp.Binary {
		bit := 0.0
		if v >= 0.5 {
			bit = 1.0
		}
		return CutKey{Var: j, Side: CutFix, Threshold: bit}, m.Bound(j, lp.Equal, bit)
	}
	lo, hi := math.Floor(v), math.Ceil(v)
	if v-lo <= 0.5 {
		return CutKey{Var: j, Side: CutUpper, Threshold: lo}, m.Bound(j, lp.LessEq, lo)
	}
	return CutKey{Var: j, Side: CutLower, Threshold: hi}, m.Bound(j, lp.GreaterEq, hi)
}

// roundingFallback rounds the integral variables of the last relaxation
// solution and keeps it only if it satisfies the original model.
func roundingFallback(m *lp.Model, res *simplex.Result, tol float64, cuts int) *Outcome {
	x := make([]float64, len(res.X))
	copy(x, res.X)
	for _, j := range m.IntegralVars() {
		x[j] = math.Round(x[j])
	}
	if m.Feasible(x, tol) {
		return &Outcome{
			Status:      simplex.StatusOptimal,
			Objective:   m.EvalObjective(x),
			X:           x,
			CutsApplied: cuts,
			Rounded:     true,
			Truncated:   true,
		}
	}
	return &Outcome{
		Status:      simplex.StatusInfeasible,
		Objective:   math.NaN(),
		CutsApplied: cuts,
		Truncated:   true,
	}
}
