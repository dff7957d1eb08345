package lp

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `# classic production model
max 3 5
1 0 <= 4

0 2 <= 12
3 2 <= 18
+ +
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if m.Direction != Maximize {
		t.Errorf("Direction = %v, want Maximize", m.Direction)
	}
	if !reflect.DeepEqual(m.Objective, []float64{3, 5}) {
		t.Errorf("Objective = %v, want [3 5]", m.Objective)
	}
	if len(m.Constraints) != 3 {
		t.Fatalf("got %d constraints, want 3", len(m.Constraints))
	}
	want := Constraint{Coeffs: []float64{3, 2}, Rel: LessEq, RHS: 18}
	if !reflect.DeepEqual(m.Constraints[2], want) {
		t.Errorf("constraint 3 = %+v, want %+v", m.Constraints[2], want)
	}
	if !reflect.DeepEqual(m.Kinds, []VarKind{NonNegative, NonNegative}) {
		t.Errorf("Kinds = %v, want all non-negative", m.Kinds)
	}
}

func TestParseKindTokens(t *testing.T) {
	input := `min 1 2 3 4 5
1 1 1 1 1 >= 1
+ - free int bin
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []VarKind{NonNegative, NonPositive, Continuous, Integer, Binary}
	if !reflect.DeepEqual(m.Kinds, want) {
		t.Errorf("Kinds = %v, want %v", m.Kinds, want)
	}
	if !m.HasIntegrality() {
		t.Error("HasIntegrality() = false, want true")
	}
	if got := m.IntegralVars(); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Errorf("IntegralVars() = %v, want [3 4]", got)
	}
}

func TestParseDefaultsKindsToNonNegative(t *testing.T) {
	m, err := Parse(strings.NewReader("max 1 1\n1 1 <= 2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(m.Kinds, []VarKind{NonNegative, NonNegative}) {
		t.Errorf("Kinds = %v, want all non-negative", m.Kinds)
	}
}

func TestParseRelationAliases(t *testing.T) {
	input := "min 1 1\n1 0 =< 3\n0 1 => 1\n1 1 == 2\n"
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := []Relation{m.Constraints[0].Rel, m.Constraints[1].Rel, m.Constraints[2].Rel}
	want := []Relation{LessEq, GreaterEq, Equal}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("relations = %v, want %v", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"only comments", "# nothing here\n\n"},
		{"bad direction", "best 1 2\n1 1 <= 3\n"},
		{"no objective", "max\n"},
		{"bad objective coefficient", "max 1 two\n1 1 <= 3\n"},
		{"constraint width mismatch", "max 1 2\n1 <= 3\n"},
		{"missing relation mid-file", "max 1 2\n1 1\n1 1 <= 3\n"},
		{"relation not before rhs", "max 1 2\n1 <= 1 3\n"},
		{"bad rhs", "max 1 2\n1 1 <= lots\n"},
		{"kind line width mismatch", "max 1 2\n1 1 <= 3\n+\n"},
		{"unknown kind token", "max 1 2\n1 1 <= 3\n+ what\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	input := `max 8 11 6 4
5 7 4 3 <= 14
bin bin bin bin
`
	m, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	again, err := Parse(strings.NewReader(Format(m)))
	if err != nil {
		t.Fatalf("Parse(Format(m)): %v", err)
	}
	if !reflect.DeepEqual(m, again) {
		t.Errorf("round trip changed the model:\n got %+v\nwant %+v", again, m)
	}
}

func TestLoadSetsNameFromBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knapsack.lp")
	content := "max 8 11\n5 7 <= 14\nbin bin\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "knapsack" {
		t.Errorf("Name = %q, want %q", m.Name, "knapsack")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.lp")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
