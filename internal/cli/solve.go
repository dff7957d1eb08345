package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/pkg/cache"
	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/milp"
	"github.com/matzehuels/pivot/pkg/report"
	"github.com/matzehuels/pivot/pkg/session"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// Engine names accepted by --engine.
const (
	engineSimplex = "simplex"
	engineRevised = "revised"
	engineBnB     = "bnb"
	engineCuts    = "cuts"
)

// solveFlags carries the resolved flag values of one solve invocation.
type solveFlags struct {
	engine  string
	steps   bool
	noCache bool
	export  string
	save    bool
	solver  lp.SolverOptions
	search  milp.Options
}

// solveSummary is the cached, serializable view of a solve outcome.
type solveSummary struct {
	Engine     string    `json:"engine"`
	Status     string    `json:"status"`
	Objective  *float64  `json:"objective,omitempty"`
	X          []float64 `json:"x,omitempty"`
	Iterations int       `json:"iterations,omitempty"`
	Nodes      int       `json:"nodes,omitempty"`
	Cuts       int       `json:"cuts,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
	Rounded    bool      `json:"rounded,omitempty"`
	Report     string    `json:"report"`
}

func (s *solveSummary) objective() float64 {
	if s.Objective == nil {
		return math.NaN()
	}
	return *s.Objective
}

// solveCommand creates the solve command.
func (c *CLI) solveCommand() *cobra.Command {
	var f solveFlags

	cmd := &cobra.Command{
		Use:   "solve <model-file>",
		Short: "Solve an LP or MILP model file",
		Long: `Solve reads a model in the text format and runs the selected engine:

  simplex  dense tableau simplex (default; supports all model forms)
  revised  revised simplex on matrices (slack-ready forms only)
  bnb      branch-and-bound integer search
  cuts     cutting-plane integer refinement

Results are cached by model text and options; identical re-runs are
served from the cache unless --no-cache is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runSolve(ctx, args[0], f)
		},
	}

	cfg := c.Config.Solver
	cmd.Flags().StringVarP(&f.engine, "engine", "e", engineSimplex, "engine: simplex, revised, bnb or cuts")
	cmd.Flags().BoolVar(&f.steps, "steps", false, "print a tableau snapshot per pivot")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "bypass the result cache")
	cmd.Flags().StringVarP(&f.export, "export", "o", "", "write the report to a file")
	cmd.Flags().BoolVar(&f.save, "save", false, "record the run in the session history")
	cmd.Flags().IntVar(&f.solver.MaxIterations, "max-iterations", cfg.MaxIterations, "pivot cap per relaxation solve")
	cmd.Flags().Float64Var(&f.solver.Tolerance, "tolerance", cfg.Tolerance, "integrality and feasibility tolerance")
	cmd.Flags().IntVar(&f.search.MaxDepth, "max-depth", cfg.MaxDepth, "branch-and-bound depth cap")
	cmd.Flags().IntVar(&f.search.MaxNodes, "max-nodes", cfg.MaxNodes, "branch-and-bound node cap")
	cmd.Flags().IntVar(&f.search.MaxCuts, "max-cuts", cfg.MaxCuts, "cutting-plane cap")

	return cmd
}

func (c *CLI) runSolve(ctx context.Context, path string, f solveFlags) error {
	m, err := lp.Load(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse, err, "load model")
	}
	f.solver.ShowSteps = f.steps
	f.search.Solver = f.solver
	modelText := lp.Format(m)

	store := c.newCache(ctx, f.noCache)
	defer store.Close()
	key := cache.NewDefaultKeyer().SolveKey(modelText, cache.KeyOpts{
		Engine:        f.engine,
		MaxIterations: f.solver.MaxIterations,
		Tolerance:     f.solver.Tolerance,
		MaxDepth:      f.search.MaxDepth,
		MaxNodes:      f.search.MaxNodes,
		MaxCuts:       f.search.MaxCuts,
	})

	var sum *solveSummary
	cached := false
	if data, ok, err := store.Get(ctx, key); err == nil && ok {
		var s solveSummary
		if err := json.Unmarshal(data, &s); err == nil {
			sum = &s
			cached = true
		}
	}

	if sum == nil {
		p := newProgress(c.Logger)
		sum, err = c.compute(ctx, m, f)
		if err != nil {
			return err
		}
		p.done(fmt.Sprintf("Solved %s with %s", m.Name, f.engine))
		if data, err := json.Marshal(sum); err == nil {
			if err := store.Set(ctx, key, data, cache.SolveTTL); err != nil {
				c.Logger.Debug("cache write failed", "err", err)
			}
		}
	}

	c.printSummary(m, sum, cached)

	if f.export != "" {
		if err := report.Export(f.export, sum.Report); err != nil {
			return err
		}
		printFile(f.export)
	}
	if f.save {
		if err := c.saveSession(ctx, m, modelText, sum); err != nil {
			return err
		}
	}
	return nil
}

// compute runs the selected engine and folds the outcome into a summary.
func (c *CLI) compute(ctx context.Context, m *lp.Model, f solveFlags) (*solveSummary, error) {
	sum := &solveSummary{Engine: f.engine}
	switch f.engine {
	case engineSimplex, engineRevised:
		var (
			res *simplex.Result
			err error
		)
		if f.engine == engineRevised {
			res, err = simplex.SolveRevised(ctx, m, &f.solver)
		} else {
			res, err = simplex.Solve(ctx, m, &f.solver)
		}
		if err != nil {
			return nil, err
		}
		sum.Status = res.Status.String()
		sum.X = res.X
		sum.Iterations = res.Iterations
		setObjective(sum, res.Objective)
		sum.Report = report.Solution(m, res)
		if f.steps {
			sum.Report += "\n" + report.Steps(res)
		}
	case engineBnB, engineCuts:
		var (
			out *milp.Outcome
			err error
		)
		if f.engine == engineCuts {
			out, err = milp.SolveWithCuts(ctx, m, &f.search)
		} else {
			out, err = milp.Solve(ctx, m, &f.search)
		}
		if err != nil {
			return nil, err
		}
		sum.Status = out.Status.String()
		sum.X = out.X
		sum.Nodes = out.NodesExplored
		sum.Cuts = out.CutsApplied
		sum.Truncated = out.Truncated
		sum.Rounded = out.Rounded
		setObjective(sum, out.Objective)
		sum.Report = report.Search(m, out)
	default:
		return nil, errors.New(errors.ErrCodeInvalidOptions, "unknown engine %q", f.engine)
	}
	return sum, nil
}

func setObjective(sum *solveSummary, v float64) {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		sum.Objective = &v
	}
}

func (c *CLI) printSummary(m *lp.Model, sum *solveSummary, cached bool) {
	printInfo("%s (%s, %s engine)", m.Name, m.Direction, sum.Engine)
	printStats(m.NumVars(), m.NumConstraints(), sum.Iterations, cached)

	switch sum.Status {
	case simplex.StatusOptimal.String():
		printSuccess("optimal, objective %g", sum.objective())
		fmt.Println(solutionTable(m, sum.X))
		if sum.Rounded {
			printWarning("solution produced by rounding fallback")
		}
	case simplex.StatusInfeasible.String():
		if sum.Truncated {
			printWarning("no solution found before the search caps; not proven infeasible")
		} else {
			printError("infeasible: no assignment satisfies the constraints")
			printNextStep("Inspect the cause", fmt.Sprintf("pivot analyze %s", m.Name))
		}
	case simplex.StatusUnbounded.String():
		printWarning("unbounded: the objective improves without limit")
		printNextStep("Inspect the ray", fmt.Sprintf("pivot analyze %s", m.Name))
	case simplex.StatusIterationLimit.String():
		printWarning("stopped at the iteration cap; raise --max-iterations to continue")
	}
	if sum.Nodes > 0 {
		printDetail("%d nodes explored", sum.Nodes)
	}
	if sum.Cuts > 0 {
		printDetail("%d cuts applied", sum.Cuts)
	}
	if cached && sum.Engine == engineSimplex {
		printDetail("served from cache; use --no-cache to recompute")
	}
}

func (c *CLI) saveSession(ctx context.Context, m *lp.Model, modelText string, sum *solveSummary) error {
	if err := errors.ValidateModelName(m.Name); err != nil {
		return err
	}
	store, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sess := session.New(m.Name, modelText, sum.Engine, sum.Status, sum.objective(), sum.X)
	if err := store.Set(ctx, sess); err != nil {
		return err
	}
	printDetail("session %s saved", sess.ID)
	return nil
}
