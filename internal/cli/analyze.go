package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts lp.SolverOptions

	cmd := &cobra.Command{
		Use:   "analyze <model-file>",
		Short: "Classify a model: infeasibility causes, degeneracy, rays",
		Long: `Analyze solves the continuous relaxation and explains its geometry:
structural contradictions (zero rows, parallel equalities), degenerate
vertices, alternate optima, and improving rays for unbounded models.
Infeasible models additionally report their minimum total violation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runAnalyze(ctx, args[0], opts)
		},
	}

	cfg := c.Config.Solver
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", cfg.MaxIterations, "pivot cap per relaxation solve")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", cfg.Tolerance, "feasibility tolerance")

	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, path string, opts lp.SolverOptions) error {
	m, err := lp.Load(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse, err, "load model")
	}

	a, err := simplex.Analyze(ctx, m, &opts)
	if err != nil {
		return err
	}

	printInfo("%s (%s, %d variables, %d constraints)",
		m.Name, m.Direction, m.NumVars(), m.NumConstraints())

	if a.Conflict != nil {
		printError("infeasible before pivoting: %s", a.Conflict.Reason)
		return nil
	}

	res := a.Result
	switch res.Status {
	case simplex.StatusOptimal:
		printSuccess("optimal, objective %g after %d iterations", res.Objective, res.Iterations)
	case simplex.StatusInfeasible:
		printError("infeasible")
		if rep, err := simplex.PhaseI(ctx, m, &opts); err == nil {
			printDetail("minimum total constraint violation: %g", rep.Residual)
			for _, i := range rep.ViolatedRows {
				printDetail("constraint %d cannot be satisfied together with the rest", i+1)
			}
		}
	case simplex.StatusUnbounded:
		printWarning("unbounded")
	case simplex.StatusIterationLimit:
		printWarning("stopped at the iteration cap; classification incomplete")
	}

	if a.Degenerate {
		printWarning("degenerate vertex: a basic variable sits at zero")
		printDetail("the default pivot rule can cycle here; Bland's rule is the usual remedy")
	}
	if a.AlternateOptima {
		printInfo("alternate optima: other vertices attain the same objective")
	}
	if len(a.Ray) > 0 {
		printInfo("improving ray:")
		for j, d := range a.Ray {
			if d != 0 {
				printDetail("x%d direction %g", j+1, d)
			}
		}
		printDetail("the objective improves without limit along x + t*ray")
	}
	if !a.Degenerate && !a.AlternateOptima && res.Status == simplex.StatusOptimal {
		printDetail("unique non-degenerate optimum")
	}
	return nil
}
