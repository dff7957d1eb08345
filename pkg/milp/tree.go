// Package milp provides mixed-integer orchestration on top of the
// continuous simplex engine: best-first branch-and-bound and an
// iterative cutting-plane refinement, both driving pkg/simplex through
// derived overlay models and never mutating the input.
package milp

import (
	"fmt"
	"math"

	"github.com/matzehuels/pivot/pkg/simplex"
)

// Fathom reasons recorded in the search tree.
const (
	FathomNone       = ""
	FathomInfeasible = "infeasible"
	FathomUnbounded  = "unbounded"
	FathomLimit      = "iteration limit"
	FathomBound      = "bound"
	FathomIntegral   = "integral"
	FathomDepth      = "depth cap"
)

// Node is one explored branch-and-bound node. IDs are "n1", "n2", ... in
// exploration order, so two runs over the same model produce identical
// trees.
type Node struct {
	ID       string
	ParentID string // empty for the root
	Depth    int

	// Label describes the branching decision that created the node,
	// e.g. "x2 <= 3" or "x1 = 0"; the root is labeled "root".
	Label string

	Status    simplex.Status
	Objective float64
	Integral  bool

	// Fathomed names why the node was not branched, empty if it was.
	Fathomed string

	// Incumbent marks nodes whose solution replaced the best-so-far.
	Incumbent bool
}

// Tree records the explored portion of a branch-and-bound search for
// reporting and DOT export. Nodes appear in exploration order.
type Tree struct {
	Nodes []Node
}

func newTreeNode(ord int, parentID string, depth int, label string) Node {
	return Node{
		ID:        fmt.Sprintf("n%d", ord),
		ParentID:  parentID,
		Depth:     depth,
		Label:     label,
		Objective: math.NaN(),
	}
}

func (t *Tree) add(n Node) {
	t.Nodes = append(t.Nodes, n)
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	if len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

// Children returns the explored children of the node with the given ID.
func (t *Tree) Children(id string) []*Node {
	var out []*Node
	for i := range t.Nodes {
		if t.Nodes[i].ParentID == id {
			out = append(out, &t.Nodes[i])
		}
	}
	return out
}
