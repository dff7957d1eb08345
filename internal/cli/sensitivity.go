package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/report"
	"github.com/matzehuels/pivot/pkg/sensitivity"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// sensitivityCommand creates the sensitivity command.
func (c *CLI) sensitivityCommand() *cobra.Command {
	var (
		opts   lp.SolverOptions
		dual   bool
		export string
	)

	cmd := &cobra.Command{
		Use:   "sensitivity <model-file>",
		Short: "Post-optimal ranging, shadow prices, and the dual model",
		Long: `Sensitivity solves the continuous relaxation to optimality and reports
shadow prices, reduced costs, and the ranges over which each objective
coefficient and right-hand side may move without changing the optimal
basis. With --dual it prints the dual model instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runSensitivity(ctx, args[0], opts, dual, export)
		},
	}

	cfg := c.Config.Solver
	cmd.Flags().BoolVar(&dual, "dual", false, "print the dual model instead of ranging")
	cmd.Flags().StringVarP(&export, "export", "o", "", "write the report to a file")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", cfg.MaxIterations, "pivot cap")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", cfg.Tolerance, "feasibility tolerance")

	return cmd
}

func (c *CLI) runSensitivity(ctx context.Context, path string, opts lp.SolverOptions, dual bool, export string) error {
	m, err := lp.Load(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse, err, "load model")
	}

	if dual {
		d, err := sensitivity.Dual(m)
		if err != nil {
			return err
		}
		text := lp.Format(d)
		fmt.Print(text)
		if export != "" {
			if err := report.Export(export, text); err != nil {
				return err
			}
			printFile(export)
		}
		return nil
	}

	res, err := simplex.Solve(ctx, m, &opts)
	if err != nil {
		return err
	}
	if res.Status != simplex.StatusOptimal {
		return errors.New(errors.ErrCodeUnsupported,
			"sensitivity needs an optimal solution, got %s", res.Status)
	}

	rep, err := sensitivity.Analyze(m, res)
	if err != nil {
		return err
	}

	printInfo("%s (%s, %d variables, %d constraints)",
		m.Name, m.Direction, m.NumVars(), m.NumConstraints())
	printSuccess("optimal, objective %g", res.Objective)
	printNewline()

	text := report.Sensitivity(m, rep)
	fmt.Print(text)

	if export != "" {
		if err := report.Export(export, text); err != nil {
			return err
		}
		printFile(export)
	}
	return nil
}
