package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RuntimeStatsView is the read-only snapshot `panelrt stats` renders,
// combining engine.RuntimeStats with the effect policy's counters.
type RuntimeStatsView struct {
	TotalExecutions    int64
	ActiveInstances    int
	AvailableInstances int
	SuspendedInstances int
	CacheHitRate       float64
	AvgExecutionTimeUs float64
	TotalMemoryBytes   int64

	MutationsAdmitted   int64
	MutationsOverflowed int64
	MutationsRejected   int64
	EventsAdmitted      int64
	EventsOverflowed    int64
	EventsRejected      int64
}

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
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
	data, ok := m.data.(*RuntimeStatsView)
	if !ok {
		return "Invalid data type for stats_runtime"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Runtime Statistics"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Executions", int(data.TotalExecutions), lipgloss.Color("#3B82F6")),
		m.renderStatBox("Active", data.ActiveInstances, warningColor),
		m.renderStatBox("Available", data.AvailableInstances, successColor),
		m.renderStatBox("Suspended", data.SuspendedInstances, highlightColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Cache Hit Rate:"),
		ValueStyle.Render(fmt.Sprintf("%.1f%%", data.CacheHitRate*100))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Avg Exec Time:"),
		ValueStyle.Render(fmt.Sprintf("%.0fus", data.AvgExecutionTimeUs))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Total Memory:"),
		ValueStyle.Render(fmt.Sprintf("%d bytes", data.TotalMemoryBytes))))

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Effect Policy"))
	b.WriteString("\n")
	policyBoxes := []string{
		m.renderStatBox("Mut Admit", int(data.MutationsAdmitted), successColor),
		m.renderStatBox("Mut Overflow", int(data.MutationsOverflowed), warningColor),
		m.renderStatBox("Mut Reject", int(data.MutationsRejected), errorColor),
		m.renderStatBox("Evt Admit", int(data.EventsAdmitted), successColor),
		m.renderStatBox("Evt Overflow", int(data.EventsOverflowed), warningColor),
		m.renderStatBox("Evt Reject", int(data.EventsRejected), errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, policyBoxes...))

	return b.String()
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

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
