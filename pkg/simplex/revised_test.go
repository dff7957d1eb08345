package simplex

import (
	"context"
	"math"
	"testing"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
)

func TestSolveRevisedMatchesTableauEngine(t *testing.T) {
	m := production()

	dense, err := Solve(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	revised, err := SolveRevised(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("SolveRevised: %v", err)
	}

	if revised.Status != StatusOptimal {
		t.Fatalf("Status = %v, want optimal", revised.Status)
	}
	if math.Abs(revised.Objective-dense.Objective) > 1e-9 {
		t.Errorf("objectives disagree: revised %g, tableau %g", revised.Objective, dense.Objective)
	}
	for j := range dense.X {
		if math.Abs(revised.X[j]-dense.X[j]) > 1e-9 {
			t.Errorf("X[%d] disagrees: revised %g, tableau %g", j, revised.X[j], dense.X[j])
		}
	}
	if revised.Tableau != nil {
		t.Error("revised engine should not expose a tableau")
	}
}

func TestSolveRevisedUnbounded(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Maximize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, -1}, Rel: lp.LessEq, RHS: 1},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	res, err := SolveRevised(context.Background(), m, lp.DefaultOptions())
	if err != nil {
		t.Fatalf("SolveRevised: %v", err)
	}
	if res.Status != StatusUnbounded {
		t.Fatalf("Status = %v, want unbounded", res.Status)
	}
	if !math.IsInf(res.Objective, 1) {
		t.Errorf("Objective = %g, want +inf", res.Objective)
	}
}

func TestSolveRevisedRejectsPhaseIForms(t *testing.T) {
	m := &lp.Model{
		Direction: lp.Minimize,
		Objective: []float64{1, 1},
		Constraints: []lp.Constraint{
			{Coeffs: []float64{1, 1}, Rel: lp.GreaterEq, RHS: 2},
		},
		Kinds: []lp.VarKind{lp.NonNegative, lp.NonNegative},
	}

	_, err := SolveRevised(context.Background(), m, lp.DefaultOptions())
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("got %v, want UNSUPPORTED", err)
	}
}

func TestSolveRevisedIterationLimit(t *testing.T) {
	res, err := SolveRevised(context.Background(), production(), &lp.SolverOptions{MaxIterations: 1})
	if err != nil {
		t.Fatalf("SolveRevised: %v", err)
	}
	if res.Status != StatusIterationLimit {
		t.Fatalf("Status = %v, want iteration limit", res.Status)
	}
	if !math.IsNaN(res.Objective) {
		t.Errorf("Objective = %g, want NaN", res.Objective)
	}
}

func TestSolveRevisedArgumentErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := SolveRevised(ctx, nil, lp.DefaultOptions()); !errors.Is(err, errors.ErrCodeInvalidModel) {
		t.Errorf("nil model: got %v, want INVALID_MODEL", err)
	}
	if _, err := SolveRevised(ctx, production(), nil); !errors.Is(err, errors.ErrCodeInvalidOptions) {
		t.Errorf("nil options: got %v, want INVALID_OPTIONS", err)
	}
}
