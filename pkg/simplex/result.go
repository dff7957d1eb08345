package simplex

// Status classifies the outcome of a relaxation solve.
type Status int

const (
	// StatusOptimal means an optimal basic feasible solution was found.
	StatusOptimal Status = iota
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective can improve without limit.
	StatusUnbounded
	// StatusIterationLimit means the pivot cap was reached before optimality.
	StatusIterationLimit
	// StatusError means the solve aborted; see the accompanying error.
	StatusError
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusIterationLimit:
		return "iteration limit"
	default:
		return "error"
	}
}

// Step records one pivot for step-by-step reporting. Steps are captured
// only when SolverOptions.ShowSteps is set.
type Step struct {
	Iteration int      // 1-based pivot number
	Entering  int      // tableau column index that entered the basis
	Leaving   int      // tableau column index that left the basis
	Tableau   *Tableau // snapshot taken after the pivot
}

// Result is the outcome of one relaxation solve.
//
// The terminal tableau and basis are part of the result value and are owned
// by the caller; the engine keeps no state between calls, so two solves of
// the same model with the same options produce identical results.
type Result struct {
	Status     Status
	Objective  float64   // recomputed from the original objective coefficients
	X          []float64 // one value per structural variable
	Iterations int       // pivots performed (Phase I + Phase II)

	// Tableau is the terminal tableau snapshot, including the basis mapping.
	// It is captured for Optimal, Unbounded and IterationLimit outcomes and
	// consumed by the sensitivity and analysis layers. Nil for pre-check
	// infeasibility and for the revised engine, which keeps no tableau.
	Tableau *Tableau

	// Steps holds per-pivot snapshots when ShowSteps was requested.
	Steps []Step

	// flip records which variables were sign-substituted during
	// canonicalization, so rays and assignments derived from the tableau
	// can be mapped back to model space.
	flip []bool
}
