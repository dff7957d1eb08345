package simplex

import (
	"context"
	"math"
	"testing"

	"github.com/matzehuels/pivot/pkg/lp"
)

func TestCheckTrivial(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1}, Rel: lp.LessEq, RHS: 2},
			{Coeffs: []float64{0}, Rel: lp.GreaterEq, RHS: 5},
		},
		Kinds: []lp.VarKind{lp.NonNegative},
	}

	conflict, ok := CheckTrivial(m)
	if !ok {
		t.Fatal("CheckTrivial missed 0 >= 5")
	}
	if len(conflict.Rows) != 1 || conflict.Rows[0] != 1 {
		t.Errorf("Rows = %v, want [1]", conflict.Rows)
	}
	if conflict.Reason == "" {
		t.Error("conflict has no reason")
	}

	if _, ok := CheckTrivial(production()); ok {
		t.Error("CheckTrivial flagged a satisfiable model")
	}

	// A zero row that holds is not a conflict.
	harmless := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{0}, Rel: lp.LessEq, RHS: 3},
		},
		Kinds: []lp.VarKind{lp.NonNegative},
	}
	if _, ok := CheckTrivial(harmless); ok {
		t.Error("CheckTrivial flagged 0 <= 3")
	}
}

func TestCheckParallelEqualities(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Minimize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 1}, Rel: lp.Equal, RHS: 1},
			{Coeffs: []float64{2, 2}, Rel: lp.Equal, RHS: 5},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	conflict, ok := CheckParallelEqualities(m)
	if !ok {
		t.Fatal("parallel inconsistent equalities not detected")
	}
	if len(conflict.Rows) != 2 || conflict.Rows[0] != 0 || conflict.Rows[1] != 1 {
		t.Errorf("Rows = %v, want [0 1]", conflict.Rows)
	}

	// Consistent scaling is fine: 2x + 2y = 2 is the same hyperplane.
	m.Constraints[1].RHS = 2
	if _, ok := CheckParallelEqualities(m); ok {
		t.Error("consistent parallel equalities flagged as conflict")
	}

	// Non-proportional rows are fine too.
	m.Constraints[1] = lp.Constraint{Coeffs: []float64{1, 2}, Rel: lp.Equal, RHS: 5}
	if _, ok := CheckParallelEqualities(m); ok {
		t.Error("independent equalities flagged as conflict")
	}
}

func TestAnalyzeConflictShortCircuitsSolve(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{0}, Rel: lp.Equal, RHS: 1},
		},
		Kinds: []lp.VarKind{lp.NonNegative},
	}

	a, err := Analyze(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Conflict == nil {
		t.Fatal("expected a structural conflict")
	}
	if a.Result.Status != StatusInfeasible {
		t.Errorf("Status = %v, want infeasible", a.Result.Status)
	}
	if a.Result.Tableau != nil {
		t.Error("pre-check conflict should not carry a tableau")
	}
	if a.Result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", a.Result.Iterations)
	}
}

func TestAnalyzeCleanOptimum(t *testing.T) {
	a, err := Analyze(context.Background(), production(), lp.DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Result.Status != StatusOptimal {
		t.Fatalf("Status = %v, want optimal", a.Result.Status)
	}
	if a.Conflict != nil {
		t.Errorf("unexpected conflict: %+v", a.Conflict)
	}
	if a.Degenerate || a.RecommendBland {
		t.Error("non-degenerate model flagged degenerate")
	}
	if a.AlternateOptima {
		t.Error("unique optimum flagged as alternate optima")
	}
	if a.Ray != nil {
		t.Errorf("Ray = %v, want nil for a bounded model", a.Ray)
	}
}

func TestAnalyzeDegenerate(t *testing.T) {
	// At the optimum (2, 2) the constraint x + y <= 4 is tight together
	// with both box rows, leaving a basic variable at zero.
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 0}, Rel: lp.LessEq, RHS: 2},
			{Coeffs: []float64{0, 1}, Rel: lp.LessEq, RHS: 2},
			{Coeffs: []float64{1, 1}, Rel: lp.LessEq, RHS: 4},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	a, err := Analyze(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Result.Status != StatusOptimal {
		t.Fatalf("Status = %v, want optimal", a.Result.Status)
	}
	if !a.Degenerate {
		t.Error("degenerate vertex not reported")
	}
	if !a.RecommendBland {
		t.Error("RecommendBland should mirror the degeneracy flag")
	}
}

func TestAnalyzeAlternateOptima(t *testing.T) {
	// The objective is parallel to x + y <= 4, so every point on that
	// facet is optimal.
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 1}, Rel: lp.LessEq, RHS: 4},
			{Coeffs: []float64{1, 0}, Rel: lp.LessEq, RHS: 4},
			{Coeffs: []float64{0, 1}, Rel: lp.LessEq, RHS: 4},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	a, err := Analyze(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Result.Status != StatusOptimal {
		t.Fatalf("Status = %v, want optimal", a.Result.Status)
	}
	if !a.AlternateOptima {
		t.Error("alternate optima not reported")
	}
}

func TestAnalyzeUnboundedRay(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, -1}, Rel: lp.LessEq, RHS: 1},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	a, err := Analyze(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Result.Status != StatusUnbounded {
		t.Fatalf("Status = %v, want unbounded", a.Result.Status)
	}
	d := a.Ray
	if d == nil {
		t.Fatal("no ray reconstructed")
	}
	if len(d) != 2 {
		t.Fatalf("ray has %d components, want 2", len(d))
	}

	// The direction must keep x1 - x2 <= 1 slack and strictly improve the
	// objective.
	if d[0]-d[1] > 1e-9 {
		t.Errorf("ray %v leaves the feasible cone", d)
	}
	if d[0]+d[1] <= 1e-9 {
		t.Errorf("ray %v does not improve the objective", d)
	}
	if d[0] < -1e-9 || d[1] < -1e-9 {
		t.Errorf("ray %v violates variable signs", d)
	}
}

func TestUnboundedRayRejectsNonUnbounded(t *testing.T) {
	res, err := Solve(context.Background(), production(), lp.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if ray := UnboundedRay(res); ray != nil {
		t.Errorf("UnboundedRay on optimal result = %v, want nil", ray)
	}
	if ray := UnboundedRay(nil); ray != nil {
		t.Errorf("UnboundedRay(nil) = %v, want nil", ray)
	}
}

func TestPhaseIFeasible(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Minimize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 1}, Rel: lp.GreaterEq, RHS: 2},
			{Coeffs: []float64{1, 0}, Rel: lp.LessEq, RHS: 5},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	rep, err := PhaseI(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("PhaseI: %v", err)
	}
	if !rep.Feasible {
		t.Fatalf("Feasible = false, residual %g", rep.Residual)
	}
	if rep.Residual > 1e-9 {
		t.Errorf("Residual = %g, want 0", rep.Residual)
	}
	if !m.Feasible(rep.X, 1e-6) {
		t.Errorf("reported point %v is not feasible", rep.X)
	}
	if len(rep.ViolatedRows) != 0 {
		t.Errorf("ViolatedRows = %v, want none for a feasible model", rep.ViolatedRows)
	}
}

func TestPhaseIInfeasibleResidual(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 1}, Rel: lp.LessEq, RHS: 1},
			{Coeffs: []float64{1, 1}, Rel: lp.GreaterEq, RHS: 3},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	rep, err := PhaseI(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("PhaseI: %v", err)
	}
	if rep.Feasible {
		t.Fatal("infeasible model reported feasible")
	}
	// The two rows are 2 apart; no point can shrink the total violation
	// below that gap.
	if math.Abs(rep.Residual-2) > 1e-6 {
		t.Errorf("Residual = %g, want 2", rep.Residual)
	}
	// The ≥ row is the one left short once x+y is pushed to its cap.
	if len(rep.ViolatedRows) != 1 || rep.ViolatedRows[0] != 1 {
		t.Errorf("ViolatedRows = %v, want [1]", rep.ViolatedRows)
	}
}

func TestPhaseIViolatedRows(t *testing.T) {
	// Two independent contradictions: each variable is squeezed between a
	// lower and an upper bound that cannot both hold.
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 0}, Rel: lp.GreaterEq, RHS: 2},
			{Coeffs: []float64{1, 0}, Rel: lp.LessEq, RHS: 1},
			{Coeffs: []float64{0, 1}, Rel: lp.GreaterEq, RHS: 3},
			{Coeffs: []float64{0, 1}, Rel: lp.LessEq, RHS: 1},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	rep, err := PhaseI(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("PhaseI: %v", err)
	}
	if rep.Feasible {
		t.Fatal("infeasible model reported feasible")
	}
	if math.Abs(rep.Residual-3) > 1e-6 {
		t.Errorf("Residual = %g, want 3", rep.Residual)
	}
	want := []int{0, 2}
	if len(rep.ViolatedRows) != len(want) {
		t.Fatalf("ViolatedRows = %v, want %v", rep.ViolatedRows, want)
	}
	for k, i := range want {
		if rep.ViolatedRows[k] != i {
			t.Errorf("ViolatedRows = %v, want %v", rep.ViolatedRows, want)
			break
		}
	}
}

func TestPhaseIArgumentErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := PhaseI(ctx, nil, lp.DefaultOptions()); err == nil {
		t.Error("nil model accepted")
	}
	if _, err := PhaseI(ctx, production(), nil); err == nil {
		t.Error("nil options accepted")
	}
}
