package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alorbach/sunostyle/pkg/catalog"
)

// ErrCancelled is returned when the browser is closed without a selection.
var ErrCancelled = errors.New("tui: cancelled")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C3C3C"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	labelStyle = lipgloss.NewStyle().
			Width(18).
			Foreground(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// listColumns are the columns shown in the list, the number keys toggle
// sorting on them.
var listColumns = []string{catalog.FieldStyle, catalog.FieldDecade, catalog.FieldTempo, catalog.FieldMood}

type model struct {
	view      *catalog.View
	cursor    int
	offset    int
	filter    string
	filtering bool
	width     int
	height    int
	selected  catalog.Style
	cancelled bool
}

func newModel(styles []catalog.Style, initial string) *model {
	m := &model{
		view:   catalog.NewView(styles),
		width:  100,
		height: 30,
	}
	for i, s := range m.view.Rows() {
		if initial != "" && strings.EqualFold(s.Name(), initial) {
			m.cursor = i
			break
		}
	}
	m.scroll()
	return m
}

// Run shows the browser and returns the style chosen with enter.
func Run(ctx context.Context, styles []catalog.Style, initial string) (catalog.Style, error) {
	m := newModel(styles, initial)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("tui: couldn't run browser: %w", err)
	}
	if m.cancelled || m.selected == nil {
		return nil, ErrCancelled
	}
	return m.selected, nil
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll()
	case tea.KeyMsg:
		if m.filtering {
			return m, m.updateFilter(msg)
		}
		return m, m.updateList(msg)
	}
	return m, nil
}

func (m *model) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancelled = true
		return tea.Quit
	case tea.KeyEnter:
		m.filtering = false
	case tea.KeyEsc:
		m.filtering = false
		m.setFilter("")
	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.setFilter(string(r[:len(r)-1]))
		}
	case tea.KeyRunes, tea.KeySpace:
		m.setFilter(m.filter + string(msg.Runes))
	}
	return nil
}

func (m *model) updateList(msg tea.KeyMsg) tea.Cmd {
	rows := m.view.Rows()
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return tea.Quit
	case "enter":
		if len(rows) == 0 {
			return nil
		}
		m.selected = rows[m.cursor]
		return tea.Quit
	case "/":
		m.filtering = true
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.pageSize())
	case "pgdown":
		m.move(m.pageSize())
	case "home", "g":
		m.move(-len(rows))
	case "end", "G":
		m.move(len(rows))
	case "1", "2", "3", "4":
		m.sortBy(listColumns[msg.String()[0]-'1'])
	}
	return nil
}

func (m *model) setFilter(text string) {
	m.filter = text
	m.view.SetFilter(catalog.Filter{Text: text})
	m.cursor = 0
	m.offset = 0
}

// sortBy keeps the highlighted style selected after reordering.
func (m *model) sortBy(column string) {
	current := m.current()
	m.view.SortBy(column)
	for i, s := range m.view.Rows() {
		if current != nil && s.Name() == current.Name() {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

func (m *model) current() catalog.Style {
	rows := m.view.Rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return rows[m.cursor]
}

func (m *model) move(delta int) {
	n := len(m.view.Rows())
	m.cursor += delta
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll()
}

func (m *model) pageSize() int {
	// Title, filter, header, detail pane and help
	size := m.height - 18
	if size < 3 {
		size = 3
	}
	return size
}

func (m *model) scroll() {
	size := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+size {
		m.offset = m.cursor - size + 1
	}
}

func (m *model) View() string {
	var b strings.Builder
	rows := m.view.Rows()

	b.WriteString(titleStyle.Render(fmt.Sprintf("Suno styles (%d)", len(rows))))
	b.WriteString("\n")
	filter := m.filter
	if m.filtering {
		filter += "█"
	}
	if filter == "" {
		b.WriteString(dimStyle.Render("press / to filter"))
	} else {
		b.WriteString("Filter: " + filter)
	}
	b.WriteString("\n\n")

	widths := m.columnWidths()
	b.WriteString(headerStyle.Render(m.header(widths)))
	b.WriteString("\n")

	end := m.offset + m.pageSize()
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		line := formatRow(rows[i], widths)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  no styles match"))
		b.WriteString("\n")
	}

	if s := m.current(); s != nil {
		b.WriteString(detailStyle.Width(m.width - 4).Render(details(s)))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓ move • / filter • 1-4 sort • enter select • q quit"))
	return b.String()
}

func (m *model) header(widths []int) string {
	order := m.view.Order()
	cells := make([]string, len(listColumns))
	for i, c := range listColumns {
		label := fmt.Sprintf("%d %s", i+1, c)
		if order.Column == c {
			if order.Desc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		cells[i] = pad(label, widths[i])
	}
	return "  " + strings.Join(cells, " ")
}

func (m *model) columnWidths() []int {
	available := m.width - 2 - len(listColumns)
	if available < 40 {
		available = 40
	}
	return []int{available * 4 / 10, available * 2 / 10, available / 10, available * 3 / 10}
}

func formatRow(s catalog.Style, widths []int) string {
	cells := make([]string, len(listColumns))
	for i, c := range listColumns {
		cells[i] = pad(s.Get(c), widths[i])
	}
	return strings.Join(cells, " ")
}

func details(s catalog.Style) string {
	var lines []string
	for _, c := range catalog.Columns {
		v := s.Get(c)
		if v == "" {
			continue
		}
		lines = append(lines, labelStyle.Render(c)+v)
	}
	return strings.Join(lines, "\n")
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
