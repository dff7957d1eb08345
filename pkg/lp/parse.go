package lp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Text model format, one model per file:
//
//	max 3 5          direction token, then one objective coefficient per variable
//	1 0 <= 4         interior lines: n coefficients, a relation token, the RHS
//	0 2 <= 12
//	3 2 <= 18
//	+ int            final line: one kind token per variable (optional)
//
// Relation tokens are <=, >= and =. Kind tokens are "+" (non-negative),
// "-" (non-positive), "free" (unrestricted), "int"/"integer" and
// "bin"/"binary". When the kind line is omitted every variable defaults to
// non-negative continuous. Blank lines and lines starting with '#' are
// skipped.

// ParseError describes a syntax error with its line number.
type ParseError struct {
	Line int
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func parseErrf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Parse reads a model in the text format from r.
func Parse(r io.Reader) (*Model, error) {
	type rawLine struct {
		num    int
		fields []string
	}

	var lines []rawLine
	scanner := bufio.NewScanner(r)
	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, rawLine{num: num, fields: strings.Fields(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if len(lines) == 0 {
		return nil, parseErrf(1, "empty model")
	}

	// Line 1: direction + objective coefficients.
	head := lines[0]
	var dir Direction
	switch strings.ToLower(head.fields[0]) {
	case "max", "maximize":
		dir = Maximize
	case "min", "minimize":
		dir = Minimize
	default:
		return nil, parseErrf(head.num, "expected direction token max/min, got %q", head.fields[0])
	}
	objective, err := parseFloats(head.fields[1:])
	if err != nil {
		return nil, parseErrf(head.num, "objective: %v", err)
	}
	if len(objective) == 0 {
		return nil, parseErrf(head.num, "objective has no coefficients")
	}
	n := len(objective)

	m := &Model{Direction: dir, Objective: objective}

	// Interior lines: constraints until a line without a relation token,
	// which must be the trailing kind line.
	rest := lines[1:]
	for i, ln := range rest {
		relIdx := -1
		var rel Relation
		for j, f := range ln.fields {
			if r, ok := parseRelation(f); ok {
				relIdx, rel = j, r
				break
			}
		}
		if relIdx < 0 {
			if i != len(rest)-1 {
				return nil, parseErrf(ln.num, "constraint is missing a relation token (<=, >= or =)")
			}
			kinds, err := parseKinds(ln.fields, n)
			if err != nil {
				return nil, parseErrf(ln.num, "%v", err)
			}
			m.Kinds = kinds
			break
		}
		if relIdx != len(ln.fields)-2 {
			return nil, parseErrf(ln.num, "expected %q followed by a single right-hand side", ln.fields[relIdx])
		}
		coeffs, err := parseFloats(ln.fields[:relIdx])
		if err != nil {
			return nil, parseErrf(ln.num, "constraint coefficients: %v", err)
		}
		if len(coeffs) != n {
			return nil, parseErrf(ln.num, "constraint has %d coefficients, want %d", len(coeffs), n)
		}
		rhs, err := strconv.ParseFloat(ln.fields[len(ln.fields)-1], 64)
		if err != nil {
			return nil, parseErrf(ln.num, "right-hand side %q is not a number", ln.fields[len(ln.fields)-1])
		}
		m.Constraints = append(m.Constraints, Constraint{Coeffs: coeffs, Rel: rel, RHS: rhs})
	}

	if m.Kinds == nil {
		m.Kinds = make([]VarKind, n) // all NonNegative
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a model file from disk. The file's base name (without
// extension) becomes the model name.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base := f.Name()
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	m.Name = base
	return m, nil
}

func parseRelation(tok string) (Relation, bool) {
	switch tok {
	case "<=", "=<":
		return LessEq, true
	case ">=", "=>":
		return GreaterEq, true
	case "=", "==":
		return Equal, true
	}
	return 0, false
}

func parseKinds(fields []string, n int) ([]VarKind, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("kind line has %d tokens, want %d", len(fields), n)
	}
	kinds := make([]VarKind, n)
	for i, f := range fields {
		switch strings.ToLower(f) {
		case "+":
			kinds[i] = NonNegative
		case "-":
			kinds[i] = NonPositive
		case "free", "urs":
			kinds[i] = Continuous
		case "int", "integer":
			kinds[i] = Integer
		case "bin", "binary":
			kinds[i] = Binary
		default:
			return nil, fmt.Errorf("unknown variable kind token %q", f)
		}
	}
	return kinds, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		out[i] = v
	}
	return out, nil
}

// Format renders a model back into the text format accepted by [Parse].
func Format(m *Model) string {
	var b strings.Builder
	b.WriteString(m.Direction.String())
	for _, c := range m.Objective {
		fmt.Fprintf(&b, " %s", trimFloat(c))
	}
	b.WriteByte('\n')
	for _, con := range m.Constraints {
		for i, a := range con.Coeffs {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(trimFloat(a))
		}
		fmt.Fprintf(&b, " %s %s\n", con.Rel, trimFloat(con.RHS))
	}
	for i, k := range m.Kinds {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k.String())
	}
	b.WriteByte('\n')
	return b.String()
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
