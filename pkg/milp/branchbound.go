package milp

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/observability"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// Search caps. They bound work, not quality: hitting either leaves the
// outcome marked Truncated rather than proven.
const (
	DefaultMaxDepth = 10
	DefaultMaxNodes = 100
	DefaultMaxCuts  = 50
)

// Options controls the MILP orchestrators.
type Options struct {
	// MaxDepth caps the branching depth. Zero means DefaultMaxDepth.
	MaxDepth int
	// MaxNodes caps the number of explored nodes. Zero means DefaultMaxNodes.
	MaxNodes int
	// MaxCuts caps cutting-plane iterations. Zero means DefaultMaxCuts.
	MaxCuts int
	// Solver configures each relaxation solve.
	Solver lp.SolverOptions
}

// DefaultOptions returns options with all defaults applied.
func DefaultOptions() *Options {
	return &Options{
		MaxDepth: DefaultMaxDepth,
		MaxNodes: DefaultMaxNodes,
		MaxCuts:  DefaultMaxCuts,
		Solver:   *lp.DefaultOptions(),
	}
}

// Normalized returns a copy with zero fields replaced by defaults.
func (o Options) Normalized() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.MaxCuts <= 0 {
		o.MaxCuts = DefaultMaxCuts
	}
	o.Solver = o.Solver.Normalized()
	return o
}

// Outcome is the result of a MILP search.
//
// An infeasible status with Truncated unset is a proof: the search
// exhausted every node without finding an integral point. With Truncated
// set, a cap stopped the search early and the model may still have
// solutions; such runs report StatusIterationLimit instead.
type Outcome struct {
	Status    simplex.Status
	Objective float64
	X         []float64

	// NodesExplored counts relaxation solves in branch-and-bound;
	// CutsApplied counts accepted cuts in the cutting-plane loop.
	NodesExplored int
	CutsApplied   int

	// Truncated reports that a depth, node or cut cap stopped the search
	// before the outcome was proven.
	Truncated bool

	// Rounded marks a solution produced by the rounding fallback of the
	// cutting-plane loop rather than by an exact relaxation.
	Rounded bool

	// Tree is the explored search tree (branch-and-bound only).
	Tree *Tree
}

// frontier is a best-first priority queue of pending nodes, keyed on the
// parent relaxation objective: the most promising bound is popped first,
// and equal bounds pop in insertion order.
type pending struct {
	model  *lp.Model
	depth  int
	parent string
	label  string
	bound  float64
	seq    int
}

type frontier struct {
	items []*pending
	max   bool // true when a larger bound is more promising
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Less(i, j int) bool {
	a, b := f.items[i], f.items[j]
	if a.bound != b.bound {
		if f.max {
			return a.bound > b.bound
		}
		return a.bound < b.bound
	}
	return a.seq < b.seq
}

func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier) Push(x any) { f.items = append(f.items, x.(*pending)) }

func (f *frontier) Pop() any {
	n := len(f.items)
	it := f.items[n-1]
	f.items = f.items[:n-1]
	return it
}

// Solve runs best-first branch-and-bound on a mixed-integer model.
//
// Each node solves one continuous relaxation via the simplex engine on an
// overlay model (the parent plus one bound constraint). Nodes whose
// relaxation is infeasible, unbounded, or bound-dominated by the incumbent
// are fathomed; fractional nodes branch on their most fractional integral
// variable. Models without integral variables reduce to a single
// relaxation solve.
//
// Cancellation is checked once per node, on top of the engine's per-pivot
// checks.
func Solve(ctx context.Context, m *lp.Model, opts *Options) (*Outcome, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if opts == nil {
		return nil, errors.New(errors.ErrCodeInvalidOptions, "options are required")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidModel, err, "invalid model")
	}
	o := opts.Normalized()

	if !m.HasIntegrality() {
		res, err := simplex.Solve(ctx, m, &o.Solver)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: res.Status, Objective: res.Objective, X: res.X, NodesExplored: 1}, nil
	}

	rootBound := math.Inf(1)
	if m.Direction == lp.Minimize {
		rootBound = math.Inf(-1)
	}
	fr := &frontier{max: m.Direction == lp.Maximize}
	heap.Init(fr)
	heap.Push(fr, &pending{model: m, depth: 0, label: "root", bound: rootBound})
	seq := 1

	tree := &Tree{}
	tol := o.Solver.Tolerance
	var (
		bestX    []float64
		bestObj  float64
		haveBest bool
	)
	explored := 0
	truncated := false

	for fr.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if explored >= o.MaxNodes {
			truncated = true
			break
		}
		p := heap.Pop(fr).(*pending)
		explored++

		res, err := simplex.Solve(ctx, p.model, &o.Solver)
		if err != nil {
			return nil, err
		}
		observability.Solver().OnNodeExplored(ctx, p.depth, res.Status.String())

		node := newTreeNode(explored, p.parent, p.depth, p.label)
		node.Status = res.Status
		node.Objective = res.Objective

		switch res.Status {
		case simplex.StatusInfeasible:
			node.Fathomed = FathomInfeasible
			tree.add(node)
			continue
		case simplex.StatusUnbounded:
			node.Fathomed = FathomUnbounded
			tree.add(node)
			continue
		case simplex.StatusIterationLimit:
			node.Fathomed = FathomLimit
			truncated = true
			tree.add(node)
			continue
		}

		// Bound dominance: the relaxation objective bounds every descendant,
		// so a node that cannot beat the incumbent is dead.
		if haveBest && !m.Better(res.Objective, bestObj, tol) {
			node.Fathomed = FathomBound
			tree.add(node)
			continue
		}

		j := branchVar(m, res.X, tol)
		if j < 0 {
			node.Integral = true
			node.Fathomed = FathomIntegral
			if !haveBest || m.Better(res.Objective, bestObj, tol) {
				bestX, bestObj, haveBest = res.X, res.Objective, true
				node.Incumbent = true
				observability.Solver().OnIncumbent(ctx, bestObj)
			}
			tree.add(node)
			continue
		}

		if p.depth >= o.MaxDepth {
			node.Fathomed = FathomDepth
			truncated = true
			tree.add(node)
			continue
		}
		tree.add(node)

		for _, child := range branchChildren(m, p.model, j, res.X[j]) {
			heap.Push(fr, &pending{
				model:  child.model,
				depth:  p.depth + 1,
				parent: node.ID,
				label:  child.label,
				bound:  res.Objective,
				seq:    seq,
			})
			seq++
		}
	}
	if fr.Len() > 0 {
		truncated = true
	}

	out := &Outcome{NodesExplored: explored, Truncated: truncated, Tree: tree}
	switch {
	case haveBest:
		out.Status = simplex.StatusOptimal
		out.Objective = bestObj
		out.X = bestX
	case truncated:
		out.Status = simplex.StatusIterationLimit
		out.Objective = math.NaN()
	default:
		out.Status = simplex.StatusInfeasible
		out.Objective = math.NaN()
	}
	return out, nil
}

// branchVar picks the most fractional integral variable of x, breaking
// ties toward the lowest index. Returns -1 when x is integral within tol.
func branchVar(m *lp.Model, x []float64, tol float64) int {
	best := -1
	bestDist := tol
	for _, j := range m.IntegralVars() {
		dist := math.Abs(x[j] - math.Round(x[j]))
		if dist > bestDist {
			best = j
			bestDist = dist
		}
	}
	return best
}

type childSpec struct {
	model *lp.Model
	label string
}

// branchChildren derives the two child overlays for branching on variable
// j at fractional value v: floor/ceil bounds for integers, fix-to-0 and
// fix-to-1 for binaries.
func branchChildren(m, node *lp.Model, j int, v float64) []childSpec {
	if m.Kinds[j] == lp.Binary {
		return []childSpec{
			{node.WithConstraints(node.Bound(j, lp.Equal, 0)), fmt.Sprintf("x%d = 0", j+1)},
			{node.WithConstraints(node.Bound(j, lp.Equal, 1)), fmt.Sprintf("x%d = 1", j+1)},
		}
	}
	lo, hi := math.Floor(v), math.Ceil(v)
	return []childSpec{
		{node.WithConstraints(node.Bound(j, lp.LessEq, lo)), fmt.Sprintf("x%d <= %g", j+1, lo)},
		{node.WithConstraints(node.Bound(j, lp.GreaterEq, hi)), fmt.Sprintf("x%d >= %g", j+1, hi)},
	}
}
