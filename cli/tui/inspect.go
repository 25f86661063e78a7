package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InstanceView is the read-only snapshot the inspect_instance view
// renders, decoupled from engine.Instance so this package never needs
// to import engine.
type InstanceView struct {
	ID         string
	State      string
	MemoryUsed int64
	MemoryPeak int64
}

// SuspensionView is the read-only snapshot the inspect_suspension view
// (`panelrt inspect --tui`) renders, mirroring engine.SuspensionInfo.
type SuspensionView struct {
	SuspensionID string
	InstanceID   string
	SuspendedAt  time.Time
	MemoryUsed   int64
}

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
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
	case "inspect_instance":
		content = m.renderInspectInstance()
	case "inspect_suspension":
		content = m.renderInspectSuspension()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectInstance() string {
	data, ok := m.data.(*InstanceView)
	if !ok {
		return "Invalid data type for inspect_instance"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Instance Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Instance ID", data.ID},
		{"State", data.State},
		{"Memory Used", fmt.Sprintf("%d bytes", data.MemoryUsed)},
		{"Memory Peak", fmt.Sprintf("%d bytes", data.MemoryPeak)},
	}

	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "State" {
			value = StateStyle(data.State).Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderInspectSuspension() string {
	data, ok := m.data.(*SuspensionView)
	if !ok {
		return "Invalid data type for inspect_suspension"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Suspension Details"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Suspension ID:"),
		ValueStyle.Render(data.SuspensionID)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Instance ID:"),
		ValueStyle.Render(data.InstanceID)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Suspended At:"),
		ValueStyle.Render(data.SuspendedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Memory Used:"),
		ValueStyle.Render(fmt.Sprintf("%d bytes", data.MemoryUsed))))

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
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

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
