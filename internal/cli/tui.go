package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pivot/pkg/lp"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// interactiveCommand creates the interactive command.
func (c *CLI) interactiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive [dir]",
		Short: "Menu-driven solve workflow",
		Long: `Interactive lists the model files in a directory, lets you pick one
and an action, and runs it. Model files are *.lp and *.txt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			entries, err := scanModels(dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printWarning("no model files (*.lp, *.txt) found in %s", dir)
				return nil
			}

			picker := newModelListModel(entries)
			out, err := tea.NewProgram(picker).Run()
			if err != nil {
				return err
			}
			selected := out.(modelListModel).Selected
			if selected == nil {
				return nil
			}

			menu := newActionListModel()
			out, err = tea.NewProgram(menu).Run()
			if err != nil {
				return err
			}
			action := out.(actionListModel).Selected
			if action == "" {
				return nil
			}

			printNewline()
			return c.runAction(ctx, action, selected.Path)
		},
	}

	return cmd
}

// Action names shown in the menu. The solve actions map to --engine values.
const (
	actionSolve       = "solve (simplex)"
	actionSolveBnB    = "solve (branch and bound)"
	actionSolveCuts   = "solve (cutting planes)"
	actionAnalyze     = "analyze"
	actionSensitivity = "sensitivity"
)

var actions = []string{actionSolve, actionSolveBnB, actionSolveCuts, actionAnalyze, actionSensitivity}

// runAction dispatches a menu choice to the matching command logic.
func (c *CLI) runAction(ctx context.Context, action, path string) error {
	cfg := c.Config.Solver
	solver := lp.SolverOptions{MaxIterations: cfg.MaxIterations, Tolerance: cfg.Tolerance}

	switch action {
	case actionSolve, actionSolveBnB, actionSolveCuts:
		engine := engineSimplex
		if action == actionSolveBnB {
			engine = engineBnB
		} else if action == actionSolveCuts {
			engine = engineCuts
		}
		f := solveFlags{engine: engine, solver: solver}
		f.search.MaxDepth = cfg.MaxDepth
		f.search.MaxNodes = cfg.MaxNodes
		f.search.MaxCuts = cfg.MaxCuts
		return c.runSolve(ctx, path, f)
	case actionAnalyze:
		return c.runAnalyze(ctx, path, solver)
	case actionSensitivity:
		return c.runSensitivity(ctx, path, solver, false, "")
	}
	return nil
}

// modelEntry is one row in the model picker.
type modelEntry struct {
	Path        string
	Name        string
	Direction   string
	Vars        int
	Constraints int
	Integral    bool
	Valid       bool
}

// scanModels parses every candidate file in dir into a picker row.
// Unparseable files are listed but cannot be selected.
func scanModels(dir string) ([]modelEntry, error) {
	var paths []string
	for _, pat := range []string{"*.lp", "*.txt"} {
		matches, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	entries := make([]modelEntry, 0, len(paths))
	for _, p := range paths {
		e := modelEntry{Path: p, Name: filepath.Base(p)}
		if m, err := lp.Load(p); err == nil {
			e.Valid = true
			e.Direction = m.Direction.String()
			e.Vars = m.NumVars()
			e.Constraints = m.NumConstraints()
			e.Integral = m.HasIntegrality()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// =============================================================================
// modelListModel - Interactive model file selection
// =============================================================================

// modelListModel is the bubbletea model for picking a model file.
type modelListModel struct {
	Entries  []modelEntry
	Cursor   int
	Selected *modelEntry
	Height   int
	Offset   int
}

func newModelListModel(entries []modelEntry) modelListModel {
	return modelListModel{
		Entries: entries,
		Cursor:  0,
		Height:  15,
		Offset:  0,
	}
}

func (m modelListModel) Init() tea.Cmd {
	return nil
}

func (m modelListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			entry := m.Entries[m.Cursor]
			if !entry.Valid {
				return m, nil
			}
			m.Selected = &entry
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m modelListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Model"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Entries) {
		end = len(m.Entries)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		direction := "—"
		size := "—"
		kind := "—"
		if e.Valid {
			direction = e.Direction
			size = fmt.Sprintf("%d × %d", e.Vars, e.Constraints)
			kind = "LP"
			if e.Integral {
				kind = "MILP"
			}
		}
		rows = append(rows, []string{cursor, e.Name, direction, size, kind})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "File", "Direction", "Vars × Cons", "Type").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Entries) {
				return lipgloss.NewStyle()
			}
			e := m.Entries[actualIdx]
			isCurrent := actualIdx == m.Cursor

			base := lipgloss.NewStyle()
			if !e.Valid {
				return base.Foreground(colorDim)
			}
			if isCurrent {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base.Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}

// =============================================================================
// actionListModel - Interactive action selection
// =============================================================================

// actionListModel is the bubbletea model for picking what to do with a model.
type actionListModel struct {
	Cursor   int
	Selected string
}

func newActionListModel() actionListModel {
	return actionListModel{}
}

func (m actionListModel) Init() tea.Cmd {
	return nil
}

func (m actionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(actions)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = actions[m.Cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m actionListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Action"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, a := range actions {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}
		line := cursor + a
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}
