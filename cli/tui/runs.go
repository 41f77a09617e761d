package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/agharvest/cli/reader"
)

// RunsModel lists archived runs under their outcome counts. The selected
// run's message is shown below the table.
type RunsModel struct {
	view     *reader.RunsView
	table    table.Model
	quitting bool
}

var runColumns = []table.Column{
	{Title: "Run ID", Width: 36},
	{Title: "Command", Width: 10},
	{Title: "Status", Width: 16},
	{Title: "Step", Width: 18},
	{Title: "Started", Width: 19},
	{Title: "Duration", Width: 10},
}

// NewRunsModel creates a runs model. Any payload other than
// *reader.RunsView renders an error line.
func NewRunsModel(data any) RunsModel {
	view, _ := data.(*reader.RunsView)
	rows := []table.Row{}
	if view != nil {
		for _, r := range view.Runs {
			rows = append(rows, table.Row{
				r.RunID,
				r.Command,
				string(r.Status),
				r.Step,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%.1fs", float64(r.DurationMs)/1000),
			})
		}
	}
	t := table.New(
		table.WithColumns(runColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+3, 18)),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Foreground(primaryColor).Bold(true)
	st.Selected = st.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(highlightColor)
	t.SetStyles(st)
	return RunsModel{view: view, table: t}
}

// Init implements tea.Model.
func (m RunsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m RunsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m RunsModel) View() string {
	if m.quitting {
		return ""
	}
	if m.view == nil {
		return "Invalid data type for runs"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Archived Runs"))
	b.WriteString("\n\n")
	s := m.view.Stats
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Total", int64(s.Total), highlightColor),
		statBox("Succeeded", int64(s.Succeeded), successColor),
		statBox("Failed", int64(s.Failed), errorColor),
	))
	b.WriteString("\n\n")

	if len(m.view.Runs) == 0 {
		b.WriteString(ValueStyle.Render("(no runs)"))
	} else {
		b.WriteString(m.table.View())
		if i := m.table.Cursor(); i >= 0 && i < len(m.view.Runs) {
			sel := m.view.Runs[i]
			b.WriteString("\n\n")
			b.WriteString(row("Status", StatusStyle(string(sel.Status)).Render(string(sel.Status))))
			if sel.Message != "" {
				b.WriteString(row("Message", ValueStyle.Render(sel.Message)))
			}
			if len(sel.Outputs) > 0 {
				b.WriteString(row("Outputs", ValueStyle.Render(strings.Join(sel.Outputs, ", "))))
			}
		}
	}
	return b.String() + "\n" + HelpStyle.Render("↑/↓ select • q quit")
}
