package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/milp"
	rendertree "github.com/matzehuels/pivot/pkg/render/tree"
)

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		out      string
		format   string
		detailed bool
		solver   lp.SolverOptions
		search   milp.Options
	)

	cmd := &cobra.Command{
		Use:   "tree <model-file>",
		Short: "Export the branch-and-bound search tree as DOT or SVG",
		Long: `Tree runs branch-and-bound on an integer model and renders the explored
search tree. Incumbent nodes are filled green, fathomed nodes grey with
a dashed outline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)

			m, err := lp.Load(args[0])
			if err != nil {
				return errors.Wrap(errors.ErrCodeParse, err, "load model")
			}
			if !m.HasIntegrality() {
				return errors.New(errors.ErrCodeInvalidModel,
					"%s has no integer or binary variables, nothing to branch on", m.Name)
			}

			search.Solver = solver
			outcome, err := milp.Solve(ctx, m, &search)
			if err != nil {
				return err
			}

			printInfo("%s (%s, %d nodes explored)", m.Name, outcome.Status, outcome.NodesExplored)

			dot := rendertree.ToDOT(outcome.Tree, rendertree.Options{Detailed: detailed})

			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = rendertree.RenderSVG(dot)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
				}
			default:
				return errors.New(errors.ErrCodeInvalidOptions, "unknown format %q, use dot or svg", format)
			}

			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", out)
			}
			printSuccess("search tree written")
			printFile(out)
			return nil
		},
	}

	cfg := c.Config.Solver
	cmd.Flags().StringVarP(&out, "out", "o", "tree.svg", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot or svg")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include status, objective and fathoming reason in labels")
	cmd.Flags().IntVar(&solver.MaxIterations, "max-iterations", cfg.MaxIterations, "pivot cap per relaxation solve")
	cmd.Flags().Float64Var(&solver.Tolerance, "tolerance", cfg.Tolerance, "integrality tolerance")
	cmd.Flags().IntVar(&search.MaxDepth, "max-depth", cfg.MaxDepth, "branch-and-bound depth cap")
	cmd.Flags().IntVar(&search.MaxNodes, "max-nodes", cfg.MaxNodes, "branch-and-bound node cap")

	return cmd
}
