package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpanNode is the render payload for one completed execution span and its
// children, built by cmd/wodrt inspect from the tracker's span tree. It
// carries exactly the fields the static and TUI renderers print — no
// tracker internals leak into this package.
type SpanNode struct {
	SpanID   string     `json:"spanId"`
	Label    string     `json:"label"`
	Status   string     `json:"status"`
	Elapsed  string     `json:"elapsed"`
	Metrics  []string   `json:"metrics,omitempty"`
	Children []SpanNode `json:"children,omitempty"`
}

// InspectModel is a Bubble Tea model for the span inspection view.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
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
		return m, nil

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
	case "inspect_spans":
		content = m.renderSpans()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderSpans() string {
	roots, ok := m.data.([]SpanNode)
	if !ok {
		return "Invalid data type for inspect_spans"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Execution Spans"))
	b.WriteString("\n\n")
	for _, root := range roots {
		renderSpanNode(&b, root, 0)
	}
	return BoxStyle.Render(b.String())
}

func renderSpanNode(b *strings.Builder, node SpanNode, depth int) {
	indent := strings.Repeat("  ", depth)
	label := fmt.Sprintf("%s%s", indent, node.Label)
	status := StateStyle(node.Status).Render(fmt.Sprintf("[%s]", node.Status))
	elapsed := ValueStyle.Render(node.Elapsed)

	b.WriteString(fmt.Sprintf("%s %s %s\n", label, status, elapsed))
	for _, m := range node.Metrics {
		b.WriteString(fmt.Sprintf("%s  %s\n", indent, LabelStyle.Render(m)))
	}
	for _, child := range node.Children {
		renderSpanNode(b, child, depth+1)
	}
}

// keyMap defines key bindings shared by the inspect and stats models.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback
// and for tests, since running tea.Program requires a terminal).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
