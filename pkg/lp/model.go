// Package lp defines linear and mixed-integer linear programming models.
//
// A [Model] is an immutable problem description: an objective direction,
// objective coefficients, an ordered list of linear constraints, and one
// [VarKind] per variable. Models are produced by [Parse] (text format) or
// built directly, and consumed by the simplex engine and the MILP
// orchestrators. Orchestrators never mutate a model in place - they derive
// tightened variants with [Model.WithConstraints].
package lp

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrEmptyObjective is returned by [Model.Validate] when the model has
	// no objective coefficients, i.e. zero variables.
	ErrEmptyObjective = errors.New("model has no objective coefficients")

	// ErrDimensionMismatch is returned by [Model.Validate] when a constraint
	// coefficient row or the variable-kind sequence does not match the
	// variable count defined by the objective.
	ErrDimensionMismatch = errors.New("coefficient count does not match variable count")

	// ErrUnknownRelation is returned when a constraint carries a relation
	// outside the closed set {LessEq, GreaterEq, Equal}.
	ErrUnknownRelation = errors.New("unknown constraint relation")

	// ErrUnknownKind is returned when a variable kind is outside the closed
	// set {Continuous, NonNegative, NonPositive, Integer, Binary}.
	ErrUnknownKind = errors.New("unknown variable kind")

	// ErrNonFinite is returned when any coefficient or right-hand side is
	// NaN or infinite. The solver operates on finite floating point data only.
	ErrNonFinite = errors.New("coefficient is not finite")
)

// Direction is the optimization sense of a model.
type Direction int

const (
	// Maximize seeks the largest objective value.
	Maximize Direction = iota
	// Minimize seeks the smallest objective value.
	Minimize
)

// String returns the loader token for the direction ("max" or "min").
func (d Direction) String() string {
	if d == Minimize {
		return "min"
	}
	return "max"
}

// Relation is a constraint comparison operator.
type Relation int

const (
	// LessEq is the ≤ relation.
	LessEq Relation = iota
	// GreaterEq is the ≥ relation.
	GreaterEq
	// Equal is the = relation.
	Equal
)

// String returns the loader token for the relation.
func (r Relation) String() string {
	switch r {
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "<="
	}
}

// Flip returns the relation mirrored around equality. Negating both sides
// of a constraint flips ≤ and ≥ while leaving = untouched.
func (r Relation) Flip() Relation {
	switch r {
	case LessEq:
		return GreaterEq
	case GreaterEq:
		return LessEq
	default:
		return Equal
	}
}

// VarKind classifies a variable. Kinds are resolved once at model
// construction; downstream code never re-parses string tags.
type VarKind int

const (
	// NonNegative is a continuous variable restricted to x >= 0. This is the
	// loader default when no kind token is given.
	NonNegative VarKind = iota
	// Continuous is an unrestricted continuous variable. The relaxation
	// treats it as non-negative by the loader's convention; the distinction
	// is kept so reporting can label it correctly.
	Continuous
	// NonPositive is a continuous variable restricted to x <= 0.
	NonPositive
	// Integer requires an integral value in the final solution.
	Integer
	// Binary requires a value in {0, 1} in the final solution.
	Binary
)

// String returns the loader token for the kind.
func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "free"
	case NonPositive:
		return "-"
	case Integer:
		return "int"
	case Binary:
		return "bin"
	default:
		return "+"
	}
}

// IsIntegral reports whether the kind carries an integrality requirement.
func (k VarKind) IsIntegral() bool { return k == Integer || k == Binary }

// Constraint is a single linear constraint: Coeffs·x Rel RHS.
// Coeffs must have exactly one entry per model variable.
type Constraint struct {
	Coeffs []float64
	Rel    Relation
	RHS    float64
}

// LHS evaluates the constraint's left-hand side at x.
func (c Constraint) LHS(x []float64) float64 {
	var sum float64
	for i, a := range c.Coeffs {
		sum += a * x[i]
	}
	return sum
}

// Holds reports whether x satisfies the constraint within tol.
func (c Constraint) Holds(x []float64, tol float64) bool {
	lhs := c.LHS(x)
	switch c.Rel {
	case LessEq:
		return lhs <= c.RHS+tol
	case GreaterEq:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// Model is an immutable LP/MILP description. The variable count is defined
// by len(Objective); every constraint row and the kind sequence must match it.
type Model struct {
	Direction   Direction
	Objective   []float64
	Constraints []Constraint
	Kinds       []VarKind

	// Name is an optional label used in reports and session storage.
	Name string
}

// NumVars returns the number of structural variables.
func (m *Model) NumVars() int { return len(m.Objective) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.Constraints) }

// Validate checks structural consistency: a non-empty objective, matching
// dimensions, known relations and kinds, and finite data.
func (m *Model) Validate() error {
	n := m.NumVars()
	if n == 0 {
		return ErrEmptyObjective
	}
	if len(m.Kinds) != n {
		return fmt.Errorf("%w: %d kinds for %d variables", ErrDimensionMismatch, len(m.Kinds), n)
	}
	for _, c := range m.Objective {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return ErrNonFinite
		}
	}
	for i, con := range m.Constraints {
		if len(con.Coeffs) != n {
			return fmt.Errorf("%w: constraint %d has %d coefficients for %d variables",
				ErrDimensionMismatch, i+1, len(con.Coeffs), n)
		}
		if con.Rel < LessEq || con.Rel > Equal {
			return fmt.Errorf("%w: constraint %d", ErrUnknownRelation, i+1)
		}
		if math.IsNaN(con.RHS) || math.IsInf(con.RHS, 0) {
			return fmt.Errorf("%w: constraint %d right-hand side", ErrNonFinite, i+1)
		}
		for _, a := range con.Coeffs {
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return fmt.Errorf("%w: constraint %d", ErrNonFinite, i+1)
			}
		}
	}
	for _, k := range m.Kinds {
		if k < NonNegative || k > Binary {
			return ErrUnknownKind
		}
	}
	return nil
}

// HasIntegrality reports whether any variable is Integer or Binary.
func (m *Model) HasIntegrality() bool {
	return slices.ContainsFunc(m.Kinds, VarKind.IsIntegral)
}

// IntegralVars returns the indices of Integer and Binary variables.
func (m *Model) IntegralVars() []int {
	var idx []int
	for i, k := range m.Kinds {
		if k.IsIntegral() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Objective value of the assignment x under the original coefficients.
func (m *Model) EvalObjective(x []float64) float64 {
	var sum float64
	for i, c := range m.Objective {
		sum += c * x[i]
	}
	return sum
}

// Feasible reports whether x satisfies every constraint and every sign
// restriction within tol. Integrality is not checked here; the MILP
// orchestrators own that decision.
func (m *Model) Feasible(x []float64, tol float64) bool {
	if len(x) != m.NumVars() {
		return false
	}
	for _, con := range m.Constraints {
		if !con.Holds(x, tol) {
			return false
		}
	}
	for i, k := range m.Kinds {
		switch k {
		case NonPositive:
			if x[i] > tol {
				return false
			}
		case Continuous:
			// unrestricted
		default:
			if x[i] < -tol {
				return false
			}
		}
	}
	return true
}

// Better reports whether objective value a improves on b for the model's
// direction by strictly more than tol.
func (m *Model) Better(a, b, tol float64) bool {
	if m.Direction == Minimize {
		return a < b-tol
	}
	return a > b+tol
}

// Clone returns a deep copy. Callers that only need to append constraints
// should prefer [Model.WithConstraints], which shares the immutable parts.
func (m *Model) Clone() *Model {
	out := &Model{
		Direction:   m.Direction,
		Objective:   slices.Clone(m.Objective),
		Constraints: make([]Constraint, len(m.Constraints)),
		Kinds:       slices.Clone(m.Kinds),
		Name:        m.Name,
	}
	for i, c := range m.Constraints {
		out.Constraints[i] = Constraint{Coeffs: slices.Clone(c.Coeffs), Rel: c.Rel, RHS: c.RHS}
	}
	return out
}

// WithConstraints derives a new model consisting of the receiver plus the
// given constraints. The objective, kinds, and existing constraint rows are
// shared, not copied: models are immutable by convention, so a branch-and-
// bound tree of depth d costs O(d) extra constraints rather than O(d)
// full copies.
func (m *Model) WithConstraints(extra ...Constraint) *Model {
	cons := make([]Constraint, 0, len(m.Constraints)+len(extra))
	cons = append(cons, m.Constraints...)
	cons = append(cons, extra...)
	return &Model{
		Direction:   m.Direction,
		Objective:   m.Objective,
		Constraints: cons,
		Kinds:       m.Kinds,
		Name:        m.Name,
	}
}

// Bound builds a single-variable bound constraint coeff·x_j Rel rhs with
// coefficient 1 on variable j and 0 elsewhere.
func (m *Model) Bound(j int, rel Relation, rhs float64) Constraint {
	coeffs := make([]float64, m.NumVars())
	coeffs[j] = 1
	return Constraint{Coeffs: coeffs, Rel: rel, RHS: rhs}
}
