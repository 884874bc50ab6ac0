package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Stats is the render payload for the runtime counters view, built by
// cmd/wodrt stats from a script.Runtime after a run completes.
type Stats struct {
	StackDepth          int
	ActiveBlocks        int
	EventsDispatched    int64
	HandlersRegistered  int
	MemoryRefsLive      int
	ActionsDrainedTotal int64
}

// StatsModel is a Bubble Tea model for the runtime stats view.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_runtime":
		content = m.renderStatsRuntime()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsRuntime() string {
	data, ok := m.data.(Stats)
	if !ok {
		return "Invalid data type for stats_runtime"
	}

	title := TitleStyle.Render("Runtime Statistics")

	row1 := []string{
		m.renderStatBox("Stack Depth", data.StackDepth, lipgloss.Color("#3B82F6")),
		m.renderStatBox("Active Blocks", data.ActiveBlocks, warningColor),
		m.renderStatBox("Handlers", data.HandlersRegistered, successColor),
	}
	row2 := []string{
		m.renderStatBox("Events Dispatched", int(data.EventsDispatched), lipgloss.Color("#3B82F6")),
		m.renderStatBox("Actions Drained", int(data.ActionsDrainedTotal), successColor),
		m.renderStatBox("Live Memory Refs", data.MemoryRefsLive, warningColor),
	}

	return title + "\n\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, row1...) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, row2...)
}

func (m StatsModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback and
// for tests, since running tea.Program requires a terminal).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
