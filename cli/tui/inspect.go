package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/agharvest/cli/reader"
)

// InspectModel shows a single record: output metadata or a metrics
// snapshot.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates an inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	var content string
	switch m.viewType {
	case ViewInspect:
		content = m.renderMetadata()
	case ViewMetrics:
		content = m.renderMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}
	return content + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
}

func (m InspectModel) renderMetadata() string {
	data, ok := m.data.(*reader.MetadataView)
	if !ok {
		return "Invalid data type for inspect"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Output Metadata"))
	b.WriteString("\n\n")
	b.WriteString(row("File", ValueStyle.Render(data.File)))
	b.WriteString(row("Source", ValueStyle.Render(data.Source)))
	if data.Source == reader.SourceParquet {
		b.WriteString(row("Rows", ValueStyle.Render(fmt.Sprintf("%d", data.Rows))))
		b.WriteString(row("Columns", ValueStyle.Render(strings.Join(data.Columns, ", "))))
	}
	if data.RenameOld != "" || data.RenameNew != "" {
		b.WriteString(row("Renamed", ValueStyle.Render(data.RenameOld+" → "+data.RenameNew)))
	}

	if len(data.Fields) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Fields"))
		b.WriteString("\n")
		for _, f := range data.Fields {
			b.WriteString(row(f.Key, ValueStyle.Render(f.Value)))
		}
	}
	if len(data.Other) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Other Metadata"))
		b.WriteString("\n")
		for _, f := range data.Other {
			b.WriteString(row(f.Key, ValueStyle.Render(f.Value)))
		}
	}
	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderMetrics() string {
	data, ok := m.data.(*reader.MetricsView)
	if !ok {
		return "Invalid data type for runs_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Metrics"))
	b.WriteString("\n\n")
	b.WriteString(row("Run ID", ValueStyle.Render(data.RunID)))
	b.WriteString(row("Command", ValueStyle.Render(data.Command)))
	b.WriteString(row("Recorded", ValueStyle.Render(data.Ts)))
	if data.StorageBackend != "" {
		b.WriteString(row("Storage", ValueStyle.Render(data.StorageBackend)))
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Steps", data.StepsCompleted, highlightColor),
		statBox("Step Failures", data.StepsFailed, errorColor),
		statBox("Wait Timeouts", data.WaitTimeouts, warningColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statBox("Downloads", data.Downloads, highlightColor),
		statBox("Bytes", data.BytesDownloaded, successColor),
		statBox("Rows Written", data.RowsWritten, successColor),
	))

	if len(data.FailedByStep) > 0 {
		steps := make([]string, 0, len(data.FailedByStep))
		for s := range data.FailedByStep {
			steps = append(steps, s)
		}
		sort.Strings(steps)
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Failed Steps"))
		b.WriteString("\n")
		for _, s := range steps {
			b.WriteString(row(s, ErrorStyle.Render(fmt.Sprintf("%d", data.FailedByStep[s]))))
		}
	}
	return b.String()
}

// RenderStatic renders a single-record view without starting a program.
func RenderStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
