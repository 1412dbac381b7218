// Package tui provides the Bubble Tea live timer view.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 200

// Model implements the Bubble Tea live timer UI. It only ever sees
// pre-rendered messages sent by a Feed.
type Model struct {
	width  int
	height int

	room     string
	igt      string
	segment  string
	summary  string
	table    []string
	logLines []string

	rooms    int
	resets   int
	presets  int
	segments int
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	roomStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs an empty live view.
func NewModel() *Model {
	return &Model{room: "-"}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	case RoomMsg:
		m.room = msg.Room
		m.igt = msg.IGT
		return m, nil
	case RoomTimeMsg:
		m.rooms++
		m.summary = msg.Summary
		if msg.Segment != "" {
			m.segment = msg.Segment
			m.table = msg.Table
		}
		return m, nil
	case NewSegmentMsg:
		m.segments++
		m.segment = msg.Start
		m.table = nil
		m.appendLog("New segment starting at " + msg.Start)
		return m, nil
	case ResetMsg:
		m.resets++
		m.appendLog("Reset in " + msg.Room)
		return m, nil
	case PresetMsg:
		m.presets++
		m.appendLog("Preset loaded in " + msg.Room)
		return m, nil
	case LogMsg:
		m.appendLog(string(msg))
		return m, nil
	case QuitMsg:
		if msg.Err != nil {
			m.appendLog("Stopped: " + msg.Err.Error())
		}
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	header := titleStyle.Render("smtimer") + "  " + roomStyle.Render(m.room)
	if m.igt != "" {
		header += summaryStyle.Render("  " + m.igt)
	}

	var body []string
	if m.segment != "" {
		body = append(body, roomStyle.Render("Segment: "+m.segment))
	}
	body = append(body, m.table...)
	if m.summary != "" {
		body = append(body, "", summaryStyle.Render(m.summary))
	}
	content := strings.Join(body, "\n")

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return strings.Join([]string{header, content, m.renderLog(0, 5), footer}, "\n")
	}

	contentHeight := lipgloss.Height(content)
	logHeight := m.height - contentHeight - 3
	sections := []string{header, content}
	if logHeight > 0 {
		sections = append(sections, m.renderLog(m.width, logHeight))
	}
	view := lipgloss.JoinVertical(lipgloss.Left, sections...)
	placed := lipgloss.Place(m.width, m.height-1, lipgloss.Left, lipgloss.Top, view)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return placed + "\n" + footerLine
}

// renderLog returns the last height wrapped log lines.
func (m *Model) renderLog(width, height int) string {
	var lines []string
	for _, l := range m.logLines {
		lines = append(lines, wrapText(l, width)...)
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for i, l := range lines {
		style := logStyle
		if strings.HasPrefix(l, "Stopped:") {
			style = alertStyle
		}
		lines[i] = style.Render(l)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{
		fmt.Sprintf("Rooms %d", m.rooms),
		fmt.Sprintf("Segments %d", m.segments),
		fmt.Sprintf("Resets %d", m.resets),
		fmt.Sprintf("Presets %d", m.presets),
		"q quit",
	}
	return footerStyle.Render(strings.Join(segments, " · "))
}
