package lp

import "errors"

// Solver defaults. The pivot epsilon used inside the engine is intentionally
// not configurable; see the simplex package.
const (
	// DefaultMaxIterations caps the number of pivots in one relaxation solve.
	DefaultMaxIterations = 1000

	// DefaultTolerance is the comparison tolerance for integrality checks,
	// bound dominance, and solution verification.
	DefaultTolerance = 1e-6
)

// ErrNegativeTolerance is returned by [SolverOptions.Validate] when the
// tolerance is negative.
var ErrNegativeTolerance = errors.New("tolerance must be non-negative")

// SolverOptions controls a single relaxation solve.
//
// Tolerance applies to integrality and feasibility comparisons made by the
// orchestrators and to solution verification. It deliberately does not
// change the engine's internal pivot and ratio comparisons, which use a
// fixed epsilon so that pivoting behavior is identical regardless of how
// loosely a caller wants integrality judged.
type SolverOptions struct {
	// MaxIterations caps the pivot count; exceeding it yields an
	// IterationLimit result. Zero means DefaultMaxIterations.
	MaxIterations int

	// ShowSteps records a tableau snapshot per pivot in the result for
	// step-by-step reporting. Costs O(iterations × tableau size) memory.
	ShowSteps bool

	// Tolerance for integrality and feasibility comparisons.
	// Zero means DefaultTolerance.
	Tolerance float64
}

// DefaultOptions returns options with all defaults applied.
func DefaultOptions() *SolverOptions {
	return &SolverOptions{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Normalized returns a copy with zero fields replaced by defaults.
func (o SolverOptions) Normalized() SolverOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Validate rejects options that no normalization can repair.
func (o SolverOptions) Validate() error {
	if o.Tolerance < 0 {
		return ErrNegativeTolerance
	}
	return nil
}
