// Package statsui is a Bubble Tea browser for offline room, segment and
// session statistics.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/model"
	"github.com/verte-zerg/smtimer/internal/report"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/segment"
	"github.com/verte-zerg/smtimer/internal/transition"
)

const (
	tabRooms = iota
	tabSegments
	tabProgression
	tabSessions
	tabCount
)

var tabNames = [tabCount]string{"Rooms", "Segments", "Progression", "Sessions"}

const defaultWindow = 10

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true)
	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveTabStyle = tabStyle.
				Foreground(lipgloss.Color("#B0B0B0")).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// SessionLister is the part of the store the browser reads.
type SessionLister interface {
	ListSessions(ctx context.Context, since *time.Time) ([]model.SessionAggregate, error)
}

// Data is everything the browser reports on.
type Data struct {
	History *history.History
	// Route orders the Rooms tab. The history's order is used when it is
	// nil or empty.
	Route    *route.Route
	Segments []segment.Segment
	// Sessions is optional.
	Sessions SessionLister
}

func (d Data) routeIDs() []transition.ID {
	if d.Route != nil && d.Route.Len() > 0 {
		return d.Route.IDs()
	}
	return d.History.IDs()
}

// Report is one computed set of tab contents.
type Report struct {
	Rooms       []segment.TransitionStats
	Segments    []string
	Progression []string
	Sessions    []string
}

// BuildReport computes every tab for cfg.
func BuildReport(ctx context.Context, data Data, cfg model.StatsConfig) (Report, error) {
	opts := segment.RouteStatsOptions{
		TransitionStatsOptions: segment.TransitionStatsOptions{IQR: cfg.IQR},
		StartRoom:              cfg.StartRoom,
		EndRoom:                cfg.EndRoom,
	}
	out := Report{Rooms: segment.RouteStats(data.routeIDs(), data.History, opts)}

	if len(data.Segments) > 0 {
		out.Segments = report.Segments(segment.NewStats(data.Segments, data.History), cfg.Brief)
		segHistory := segment.BuildSegmentHistory(data.Segments, data.History)
		for _, seg := range data.Segments {
			out.Segments = append(out.Segments, "")
			out.Segments = append(out.Segments, report.Rooms(seg, segment.RoomStats(seg, data.History, segHistory))...)
		}
	} else {
		out.Segments = []string{"No segments selected."}
	}

	out.Progression = report.Progression(segment.Progression(data.History.All(), opts), cfg.Window)

	if data.Sessions == nil {
		out.Sessions = []string{"No session database."}
		return out, nil
	}
	sessions, err := data.Sessions.ListSessions(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("failed to list sessions: %w", err)
	}
	out.Sessions = report.Sessions(sessions)
	return out, nil
}

const (
	fieldStart = iota
	fieldEnd
	fieldWindow
)

// settingsForm edits the start room, end room and moving average window.
type settingsForm struct {
	open   bool
	inputs []textinput.Model
	focus  int
	err    string
}

func newSettingsForm() settingsForm {
	var f settingsForm
	for _, prompt := range []string{"Start room: ", "End room: ", "Window: "} {
		input := textinput.New()
		input.Prompt = prompt
		input.Cursor.SetMode(cursor.CursorBlink)
		f.inputs = append(f.inputs, input)
	}
	return f
}

func (f *settingsForm) show(cfg model.StatsConfig) tea.Cmd {
	f.open = true
	f.err = ""
	f.inputs[fieldStart].SetValue(cfg.StartRoom)
	f.inputs[fieldEnd].SetValue(cfg.EndRoom)
	f.inputs[fieldWindow].SetValue(strconv.Itoa(cfg.Window))
	return f.focusOn(fieldStart)
}

// focusOn focuses input i, wrapping around at both ends.
func (f *settingsForm) focusOn(i int) tea.Cmd {
	n := len(f.inputs)
	f.focus = (i%n + n) % n
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f *settingsForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-lipgloss.Width(f.inputs[i].Prompt)-2)
	}
}

// apply copies the form into cfg. cfg is untouched on error.
func (f *settingsForm) apply(cfg *model.StatsConfig) error {
	window := defaultWindow
	if v := strings.TrimSpace(f.inputs[fieldWindow].Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid window %q (use an integer >= 1)", v)
		}
		window = n
	}
	cfg.StartRoom = strings.TrimSpace(f.inputs[fieldStart].Value())
	cfg.EndRoom = strings.TrimSpace(f.inputs[fieldEnd].Value())
	cfg.Window = window
	return nil
}

func (f *settingsForm) view() string {
	lines := []string{"Settings"}
	for _, input := range f.inputs {
		lines = append(lines, input.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	data Data
	cfg  model.StatsConfig

	report Report
	errMsg string

	active int
	rooms  table.Model
	pages  [tabCount]viewport.Model
	form   settingsForm

	width  int
	height int
}

// NewModel constructs a stats UI model.
func NewModel(data Data, cfg model.StatsConfig) *Model {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	m := &Model{
		data: data,
		cfg:  cfg,
		form: newSettingsForm(),
		rooms: table.New(
			table.WithColumns(roomColumns(cfg.IQR)),
			table.WithFocused(true),
			table.WithStyles(roomTableStyles()),
		),
	}
	for i := range m.pages {
		m.pages[i] = viewport.New(0, 0)
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.form.open {
			return m, m.updateForm(msg)
		}
		return m, m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "left", "h":
		m.switchTab(-1)
		return tea.ClearScreen
	case "right", "l":
		m.switchTab(1)
		return tea.ClearScreen
	case "=":
		m.cfg.Window = nextWindow(m.cfg.Window)
		m.refresh()
	case "-":
		m.cfg.Window = prevWindow(m.cfg.Window)
		m.refresh()
	case "i":
		m.cfg.IQR = !m.cfg.IQR
		m.refresh()
	case "/":
		return m.form.show(m.cfg)
	case "g", "home":
		if m.active == tabRooms {
			m.rooms.GotoTop()
		} else {
			m.pages[m.active].GotoTop()
		}
	case "G", "end":
		if m.active == tabRooms {
			m.rooms.GotoBottom()
		} else {
			m.pages[m.active].GotoBottom()
		}
	default:
		var cmd tea.Cmd
		if m.active == tabRooms {
			m.rooms, cmd = m.rooms.Update(msg)
		} else {
			m.pages[m.active], cmd = m.pages[m.active].Update(msg)
		}
		return cmd
	}
	return nil
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.form.open = false
		m.resize()
		return nil
	case tea.KeyEnter:
		if err := m.form.apply(&m.cfg); err != nil {
			m.form.err = err.Error()
			return nil
		}
		m.form.open = false
		m.refresh()
		return nil
	case tea.KeyTab, tea.KeyDown:
		return m.form.focusOn(m.form.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m.form.focusOn(m.form.focus - 1)
	}
	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return cmd
}

func (m *Model) switchTab(delta int) {
	m.active = ((m.active+delta)%tabCount + tabCount) % tabCount
	if m.active == tabRooms {
		m.rooms.Focus()
	} else {
		m.rooms.Blur()
	}
}

// refresh recomputes the report and pushes it into the table and pages.
func (m *Model) refresh() {
	rep, err := BuildReport(context.Background(), m.data, m.cfg)
	m.report = rep
	m.errMsg = ""
	if err != nil {
		m.errMsg = err.Error()
	}
	// Rows must be cleared first or the table renders them against the
	// new column set.
	m.rooms.SetRows(nil)
	m.rooms.SetColumns(roomColumns(m.cfg.IQR))
	m.rooms.SetRows(roomRows(rep.Rooms))
	m.pages[tabSegments].SetContent(strings.Join(rep.Segments, "\n"))
	m.pages[tabProgression].SetContent(strings.Join(rep.Progression, "\n"))
	m.pages[tabSessions].SetContent(strings.Join(rep.Sessions, "\n"))
	m.resize()
}

func (m *Model) headerHeight() int {
	return lipgloss.Height(activeTabStyle.Render("x")) + 1
}

func (m *Model) footerHeight() int {
	if !m.form.open && m.errMsg != "" {
		return 2
	}
	return 1
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-m.headerHeight()-m.footerHeight())
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	body := m.bodyHeight()
	for i := range m.pages {
		m.pages[i].Width = m.width
		m.pages[i].Height = body
	}
	m.rooms.SetWidth(m.width)
	m.rooms.SetHeight(body)
	m.form.setWidth(m.width)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	return strings.Join([]string{
		fit(m.header(), m.width, m.headerHeight()),
		fit(m.body(), m.width, m.bodyHeight()),
		fit(m.footer(), m.width, m.footerHeight()),
	}, "\n")
}

func (m *Model) header() string {
	tabs := make([]string, tabCount)
	for i, name := range tabNames {
		if i == m.active {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = inactiveTabStyle.Render(name)
		}
	}
	start, end := m.cfg.StartRoom, m.cfg.EndRoom
	if start == "" {
		start = "first"
	}
	if end == "" {
		end = "last"
	}
	summary := fmt.Sprintf("start=%s  end=%s  save=%s  window=%d", start, end, saveTitle(m.cfg.IQR), m.cfg.Window)
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" + dimStyle.Render(truncate(summary, m.width))
}

func (m *Model) body() string {
	switch {
	case m.form.open:
		return m.form.view()
	case m.active != tabRooms:
		return m.pages[m.active].View()
	case len(m.report.Rooms) <= 1:
		return "No transitions found."
	default:
		return tableStyle.Render(m.rooms.View())
	}
}

func (m *Model) footer() string {
	if m.form.open {
		return dimStyle.Render("tab: next field  enter: apply  esc: cancel")
	}
	help := dimStyle.Render("left/right: tab  up/down: scroll  i: IQR  -/=: window  /: settings  q: quit")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func saveTitle(iqr bool) string {
	if iqr {
		return "P75-P25"
	}
	return "P50-P0"
}

func roomColumns(iqr bool) []table.Column {
	cols := []table.Column{{Title: "Room", Width: 28}, {Title: "N", Width: 5}}
	for _, title := range []string{"Best", "P25", "P50", "P75", "P90", saveTitle(iqr)} {
		cols = append(cols, table.Column{Title: title, Width: 8})
	}
	return cols
}

// roomRows renders every row followed by the column totals.
func roomRows(rows []segment.TransitionStats) []table.Row {
	if len(rows) == 0 {
		return nil
	}
	out := make([]table.Row, 0, len(rows)+1)
	for _, s := range append(rows[:len(rows):len(rows)], segment.Totals(rows)) {
		n := ""
		if s.N > 0 {
			n = strconv.Itoa(s.N)
		}
		out = append(out, table.Row{
			truncate(s.Room, 28), n,
			s.Best.String(), s.P25.String(), s.P50.String(),
			s.P75.String(), s.P90.String(), s.Save.String(),
		})
	}
	return out
}

func roomTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	return styles
}

// nextWindow and prevWindow step the moving average window through
// multiples of five.
func nextWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return n / 5 * 5
}

// fit cuts or pads s to exactly height lines, each at least width cells.
func fit(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
