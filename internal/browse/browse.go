// Package browse is an interactive terminal browser over a recorded tree.
// Branches start collapsed and open on demand.
package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mcncl/rnbdview/internal/projector"
	"github.com/mcncl/rnbdview/internal/tree"
)

// Row is a node currently shown on screen.
type Row struct {
	Node  *tree.Node
	Depth int
}

// Styles holds the browser styles.
type Styles struct {
	Title    lipgloss.Style
	Branch   lipgloss.Style
	Value    lipgloss.Style
	Error    lipgloss.Style
	Selected lipgloss.Style
}

// DefaultStyles returns the default browser styles.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Branch:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Value:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Selected: lipgloss.NewStyle().Reverse(true),
	}
}

// Model is the bubbletea model of the browser.
type Model struct {
	tree     *tree.Tree
	title    string
	expanded map[*tree.Node]bool
	rows     []Row
	cursor   int
	offset   int
	width    int
	height   int

	keys   KeyMap
	help   help.Model
	styles Styles
}

// New creates a browser over t with only the top-level nodes showing.
func New(t *tree.Tree, title string) Model {
	m := Model{
		tree:     t,
		title:    title,
		expanded: make(map[*tree.Node]bool),
		width:    80,
		height:   24,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		styles:   DefaultStyles(),
	}
	m.refresh()
	return m
}

// Run starts the browser on the alternate screen and blocks until it quits.
func Run(t *tree.Tree, title string) error {
	if _, err := tea.NewProgram(New(t, title), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.move(-1)
		case key.Matches(msg, m.keys.Down):
			m.move(1)
		case key.Matches(msg, m.keys.PageUp):
			m.move(-m.pageSize())
		case key.Matches(msg, m.keys.PageDown):
			m.move(m.pageSize())
		case key.Matches(msg, m.keys.Top):
			m.move(-len(m.rows))
		case key.Matches(msg, m.keys.Bottom):
			m.move(len(m.rows))
		case key.Matches(msg, m.keys.Toggle):
			if n := m.Selected(); n != nil && !n.IsLeaf() {
				m.setExpanded(n, !m.expanded[n])
			}
		case key.Matches(msg, m.keys.Expand):
			if n := m.Selected(); n != nil && !n.IsLeaf() {
				m.setExpanded(n, true)
			}
		case key.Matches(msg, m.keys.Collapse):
			m.collapseOrParent()
		case key.Matches(msg, m.keys.ExpandAll):
			m.setAll(true)
		case key.Matches(msg, m.keys.CollapseAll):
			m.setAll(false)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n")

	end := m.offset + m.pageSize()
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for i := m.offset; i < end; i++ {
		line := m.line(m.rows[i])
		if i == m.cursor {
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString("(empty dump)\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Rows returns the rows currently visible, in display order.
func (m Model) Rows() []Row {
	return m.rows
}

// Cursor returns the index of the selected row.
func (m Model) Cursor() int {
	return m.cursor
}

// Selected returns the node under the cursor, or nil if there is none.
func (m Model) Selected() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].Node
}

func (m Model) line(r Row) string {
	indent := strings.Repeat("  ", r.Depth)
	n := r.Node
	switch {
	case n.IsLeaf():
		style := m.styles.Value
		if n.Label == projector.ErrorLabel {
			style = m.styles.Error
		}
		return fmt.Sprintf("%s  %s = %s", indent, n.Label, style.Render(n.Value))
	case len(n.Children) == 0:
		return fmt.Sprintf("%s  %s", indent, m.styles.Branch.Render(n.Label))
	case m.expanded[n]:
		return fmt.Sprintf("%s▾ %s", indent, m.styles.Branch.Render(n.Label))
	default:
		return fmt.Sprintf("%s▸ %s", indent, m.styles.Branch.Render(n.Label))
	}
}

// pageSize is the number of tree rows that fit between title and help.
func (m Model) pageSize() int {
	if size := m.height - 2; size > 0 {
		return size
	}
	return 1
}

func (m *Model) move(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll()
}

func (m *Model) scroll() {
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if maxOffset := len(m.rows) - page; m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) setExpanded(n *tree.Node, open bool) {
	if open {
		m.expanded[n] = true
	} else {
		delete(m.expanded, n)
	}
	m.refreshKeeping(n)
}

// collapseOrParent closes the selected branch, or moves to its parent when
// it is already closed.
func (m *Model) collapseOrParent() {
	n := m.Selected()
	if n == nil {
		return
	}
	if m.expanded[n] {
		m.setExpanded(n, false)
		return
	}
	if n.Parent != nil && n.Parent != m.tree.Root() {
		m.refreshKeeping(n.Parent)
	}
}

func (m *Model) setAll(open bool) {
	selected := m.Selected()
	if !open {
		m.expanded = make(map[*tree.Node]bool)
		// The selection may now be hidden; fall back to its top-level ancestor.
		for selected != nil && selected.Parent != nil && selected.Parent != m.tree.Root() {
			selected = selected.Parent
		}
	} else {
		_ = m.tree.Walk(func(n *tree.Node, _ int) error {
			if len(n.Children) > 0 {
				m.expanded[n] = true
			}
			return nil
		})
	}
	m.refreshKeeping(selected)
}

// refreshKeeping rebuilds the rows and puts the cursor back on n.
func (m *Model) refreshKeeping(n *tree.Node) {
	m.refresh()
	for i, r := range m.rows {
		if r.Node == n {
			m.cursor = i
			break
		}
	}
	m.move(0)
}

func (m *Model) refresh() {
	m.rows = nil
	_ = m.tree.Walk(func(n *tree.Node, depth int) error {
		m.rows = append(m.rows, Row{Node: n, Depth: depth})
		if !m.expanded[n] {
			return tree.SkipChildren
		}
		return nil
	})
	m.move(0)
}
