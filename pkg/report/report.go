// Package report renders solver results as plain text: final solutions,
// per-iteration tableau snapshots, MILP search summaries, and sensitivity
// tables. It never solves anything; every function formats a frozen value.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/matzehuels/pivot/pkg/errors"
	"github.com/matzehuels/pivot/pkg/lp"
	"github.com/matzehuels/pivot/pkg/milp"
	"github.com/matzehuels/pivot/pkg/sensitivity"
	"github.com/matzehuels/pivot/pkg/simplex"
)

// Solution renders the outcome of a relaxation solve.
func Solution(m *lp.Model, res *simplex.Result) string {
	var b strings.Builder
	name := m.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(&b, "%s: %s (%s, %d variables, %d constraints)\n",
		name, res.Status, m.Direction, m.NumVars(), m.NumConstraints())
	fmt.Fprintf(&b, "iterations: %d\n", res.Iterations)

	switch res.Status {
	case simplex.StatusOptimal:
		fmt.Fprintf(&b, "objective: %s\n", num(res.Objective))
		writeAssignment(&b, m, res.X)
	case simplex.StatusUnbounded:
		fmt.Fprintf(&b, "objective: %s\n", num(res.Objective))
		b.WriteString("the objective improves without limit\n")
	case simplex.StatusInfeasible:
		b.WriteString("no assignment satisfies the constraints\n")
	case simplex.StatusIterationLimit:
		b.WriteString("iteration cap reached before optimality\n")
	}
	return b.String()
}

func writeAssignment(b *strings.Builder, m *lp.Model, x []float64) {
	for j, v := range x {
		fmt.Fprintf(b, "  x%d = %s", j+1, num(v))
		if k := m.Kinds[j]; k != lp.NonNegative {
			fmt.Fprintf(b, " (%s)", k)
		}
		b.WriteByte('\n')
	}
}

// Steps renders the per-pivot tableau snapshots recorded when the solve
// ran with ShowSteps. Without snapshots it returns a short notice.
func Steps(res *simplex.Result) string {
	if len(res.Steps) == 0 {
		return "no step snapshots recorded (solve without --steps)\n"
	}
	var b strings.Builder
	for _, s := range res.Steps {
		entering := s.Tableau.Column(s.Entering).Label()
		leaving := s.Tableau.Column(s.Leaving).Label()
		fmt.Fprintf(&b, "iteration %d: %s enters, %s leaves\n", s.Iteration, entering, leaving)
		writeTableau(&b, s.Tableau)
		b.WriteByte('\n')
	}
	return b.String()
}

// Tableau renders a single tableau with column headers, one row per
// constraint (labeled by its basic column), and the objective row.
func Tableau(t *simplex.Tableau) string {
	var b strings.Builder
	writeTableau(&b, t)
	return b.String()
}

func writeTableau(b *strings.Builder, t *simplex.Tableau) {
	const cell = "%10s"

	fmt.Fprintf(b, cell, "")
	for j := 0; j < t.NumCols(); j++ {
		fmt.Fprintf(b, cell, t.Column(j).Label())
	}
	fmt.Fprintf(b, cell, "rhs")
	b.WriteByte('\n')

	for i := 0; i < t.NumRows(); i++ {
		fmt.Fprintf(b, cell, t.Column(t.BasicColumn(i)).Label())
		for j := 0; j < t.NumCols(); j++ {
			fmt.Fprintf(b, cell, num(t.At(i, j)))
		}
		fmt.Fprintf(b, cell, num(t.RHS(i)))
		b.WriteByte('\n')
	}

	fmt.Fprintf(b, cell, "z")
	for j := 0; j < t.NumCols(); j++ {
		fmt.Fprintf(b, cell, num(t.ReducedCost(j)))
	}
	fmt.Fprintf(b, cell, num(t.ObjectiveRHS()))
	b.WriteByte('\n')
}

// Search renders the outcome of a MILP search (branch-and-bound or
// cutting planes).
func Search(m *lp.Model, out *milp.Outcome) string {
	var b strings.Builder
	name := m.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(&b, "%s: %s\n", name, out.Status)
	if out.NodesExplored > 0 {
		fmt.Fprintf(&b, "nodes explored: %d\n", out.NodesExplored)
	}
	if out.CutsApplied > 0 {
		fmt.Fprintf(&b, "cuts applied: %d\n", out.CutsApplied)
	}
	if out.Truncated {
		b.WriteString("search truncated: result not proven\n")
	}
	if out.Rounded {
		b.WriteString("solution produced by rounding fallback\n")
	}
	if out.Status == simplex.StatusOptimal {
		fmt.Fprintf(&b, "objective: %s\n", num(out.Objective))
		writeAssignment(&b, m, out.X)
	}
	return b.String()
}

// Sensitivity renders a post-optimal analysis report.
func Sensitivity(m *lp.Model, rep *sensitivity.Report) string {
	var b strings.Builder
	b.WriteString("shadow prices:\n")
	for i, p := range rep.ShadowPrices {
		fmt.Fprintf(&b, "  constraint %d: %s (rhs range %s)\n",
			i+1, num(p), rng(rep.RHSRanges[i]))
	}
	b.WriteString("reduced costs:\n")
	for j, rc := range rep.ReducedCosts {
		fmt.Fprintf(&b, "  x%d: %s (objective range %s)\n",
			j+1, num(rc), rng(rep.ObjectiveRanges[j]))
	}
	return b.String()
}

func rng(r sensitivity.Range) string {
	return fmt.Sprintf("[%s, %s]", num(r.Lower), num(r.Upper))
}

// num formats a float compactly, collapsing values within display noise
// of an integer.
func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 1) {
		return "+inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	if r := math.Round(v); math.Abs(v-r) < 1e-9 {
		return fmt.Sprintf("%g", r)
	}
	return fmt.Sprintf("%.6g", v)
}

// Write writes a rendered report to w.
func Write(w io.Writer, content string) error {
	_, err := io.WriteString(w, content)
	return err
}

// Export writes a rendered report to a file at path.
// This is a convenience wrapper around [Write] for file-based output.
func Export(path, content string) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, content)
}
