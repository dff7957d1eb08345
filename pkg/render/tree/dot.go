// Package tree renders branch-and-bound search trees as Graphviz DOT and
// SVG for inspection of how a MILP search unfolded.
package tree

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pivot/pkg/milp"
)

// Options configures search-tree rendering.
type Options struct {
	// Detailed includes status, objective and fathoming reason in node
	// labels. When false, only the branching decision is shown.
	Detailed bool
}

// ToDOT converts an explored search tree to Graphviz DOT format. The
// resulting DOT string can be rendered with [RenderSVG].
//
// Incumbent nodes are filled green, fathomed nodes grey with a dashed
// outline, and branched nodes white.
func ToDOT(t *milp.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph search {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i := range t.Nodes {
		n := &t.Nodes[i]
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.ParentID != "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.ParentID, n.ID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *milp.Node, detailed bool) string {
	if !detailed {
		return n.Label
	}

	parts := []string{n.Label, n.Status.String()}
	if !math.IsNaN(n.Objective) {
		parts = append(parts, fmt.Sprintf("obj: %g", n.Objective))
	}
	if n.Fathomed != milp.FathomNone && n.Fathomed != milp.FathomIntegral {
		parts = append(parts, "fathomed: "+n.Fathomed)
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *milp.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Incumbent:
		attrs = append(attrs, "fillcolor=palegreen")
	case n.Fathomed != milp.FathomNone && n.Fathomed != milp.FathomIntegral:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
