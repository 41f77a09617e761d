package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View types.
const (
	ViewInspect = "inspect"
	ViewRuns    = "runs"
	ViewMetrics = "runs_metrics"
)

// SupportedTUIViews lists the views that have a TUI.
func SupportedTUIViews() []string {
	return []string{ViewInspect, ViewRuns, ViewMetrics}
}

// IsTUISupported reports whether viewType has a TUI.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// NewModel builds the model for viewType.
func NewModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewInspect, ViewMetrics:
		return NewInspectModel(viewType, data), nil
	case ViewRuns:
		return NewRunsModel(data), nil
	}
	return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
}

// Run starts the TUI for viewType and blocks until the user quits.
func Run(viewType string, data any) error {
	model, err := NewModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}
