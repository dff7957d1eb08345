package simplex

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
)

// SolveRevised solves a relaxation with the revised simplex method: the
// constraint matrix stays fixed and the basis inverse is recomputed each
// iteration, so only the columns being priced are touched. It exists as a
// numerical cross-check for the dense tableau engine and follows the same
// entering and leaving rules, so both engines visit the same vertices.
//
// Only models whose canonical form is slack-ready are supported (every
// row a ≤ with non-negative right-hand side after canonicalization);
// anything needing a Phase-I start returns an UNSUPPORTED error. The
// returned Result carries no tableau and no step snapshots.
func SolveRevised(ctx context.Context, m *lp.Model, opts *lp.SolverOptions) (*Result, error) {
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
	for _, row := range c.rows {
		if row.rel != lp.LessEq {
			return nil, errors.New(errors.ErrCodeUnsupported,
				"revised engine supports only ≤ constraints with non-negative right-hand sides")
		}
	}

	n := len(c.obj)
	rows := len(c.rows)
	total := n + rows

	// A = [structural | I], one slack per row.
	a := mat.NewDense(rows, total, nil)
	b := mat.NewVecDense(rows, nil)
	cost := make([]float64, total)
	for i, row := range c.rows {
		for j, v := range row.coeffs {
			a.Set(i, j, v)
		}
		a.Set(i, n+i, 1)
		b.SetVec(i, row.rhs)
	}
	for j := 0; j < n; j++ {
		cost[j] = c.objectiveRow(j)
	}

	basis := make([]int, rows)
	for i := range basis {
		basis[i] = n + i
	}

	var (
		iters int
		xB    mat.VecDense
		binv  mat.Dense
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if iters >= o.MaxIterations {
			return revisedResult(c, StatusIterationLimit, basis, &xB, iters), nil
		}

		bmat := mat.NewDense(rows, rows, nil)
		for i, col := range basis {
			for r := 0; r < rows; r++ {
				bmat.Set(r, i, a.At(r, col))
			}
		}
		if err := binv.Inverse(bmat); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSingularBasis, err,
				"basis matrix is singular at iteration %d", iters)
		}
		xB.MulVec(&binv, b)

		// Simplex multipliers y = c_B · B⁻¹, then price the non-basic columns.
		cB := mat.NewVecDense(rows, nil)
		for i, col := range basis {
			cB.SetVec(i, cost[col])
		}
		var y mat.VecDense
		y.MulVec(binv.T(), cB)

		entering := -1
		best := -pivotEps
		for j := 0; j < total; j++ {
			if inBasis(basis, j) {
				continue
			}
			rc := cost[j] - mat.Dot(&y, a.ColView(j))
			if rc < best {
				best = rc
				entering = j
			}
		}
		if entering < 0 {
			return revisedResult(c, StatusOptimal, basis, &xB, iters), nil
		}

		var d mat.VecDense
		d.MulVec(&binv, a.ColView(entering))
		leaving := -1
		ratio := math.Inf(1)
		for i := 0; i < rows; i++ {
			if d.AtVec(i) <= pivotEps {
				continue
			}
			if r := xB.AtVec(i) / d.AtVec(i); r < ratio {
				ratio = r
				leaving = i
			}
		}
		if leaving < 0 {
			return revisedResult(c, StatusUnbounded, basis, &xB, iters), nil
		}

		basis[leaving] = entering
		iters++
	}
}

func inBasis(basis []int, j int) bool {
	for _, col := range basis {
		if col == j {
			return true
		}
	}
	return false
}

func revisedResult(c *canonical, status Status, basis []int, xB *mat.VecDense, iters int) *Result {
	n := len(c.obj)
	x := make([]float64, n)
	if xB.Len() > 0 {
		for i, col := range basis {
			if col < n {
				x[col] = xB.AtVec(i)
			}
		}
	}
	for j, f := range c.flip {
		if f {
			x[j] = -x[j]
		}
	}

	res := &Result{Status: status, X: x, Iterations: iters, flip: c.flip}
	switch status {
	case StatusOptimal:
		res.Objective = c.model.EvalObjective(x)
	case StatusUnbounded:
		if c.model.Direction == lp.Maximize {
			res.Objective = math.Inf(1)
		} else {
			res.Objective = math.Inf(-1)
		}
	default:
		res.Objective = math.NaN()
	}
	return res
}
