package browse

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcncl/rnbdview/internal/parser"
	"github.com/mcncl/rnbdview/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"exports": [
		{"mapping_path": "/dev/a", "state": "open"},
		{"mapping_path": "/dev/b", "state": "closed"}
	],
	"imports": [],
	"version": "1.0"
}`

func newModel(t *testing.T, input string) Model {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)
	tr, err := tree.Build(doc.Root)
	require.NoError(t, err)
	return New(tr, "dump")
}

func labels(m Model) []string {
	out := make([]string, 0, len(m.Rows()))
	for _, r := range m.Rows() {
		out = append(out, r.Node.Label)
	}
	return out
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	down  = tea.KeyMsg{Type: tea.KeyDown}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	space = tea.KeyMsg{Type: tea.KeySpace}
	left  = tea.KeyMsg{Type: tea.KeyLeft}
	right = tea.KeyMsg{Type: tea.KeyRight}
)

func TestNew_TopLevelCollapsed(t *testing.T) {
	m := newModel(t, sample)
	assert.Equal(t, []string{"exports", "imports", "version"}, labels(m))
	assert.Equal(t, 0, m.Cursor())
	assert.Equal(t, "exports", m.Selected().Label)
}

func TestUpdate_Navigation(t *testing.T) {
	m := newModel(t, sample)

	m = press(t, m, down, down)
	assert.Equal(t, "version", m.Selected().Label)

	m = press(t, m, down)
	assert.Equal(t, 2, m.Cursor(), "cursor stops at the last row")

	m = press(t, m, up, runes("k"))
	assert.Equal(t, 0, m.Cursor())

	m = press(t, m, runes("j"))
	assert.Equal(t, "imports", m.Selected().Label)

	m = press(t, m, runes("G"))
	assert.Equal(t, "version", m.Selected().Label)
	m = press(t, m, runes("g"))
	assert.Equal(t, "exports", m.Selected().Label)
}

func TestUpdate_Toggle(t *testing.T) {
	m := newModel(t, sample)

	m = press(t, m, enter)
	assert.Equal(t, []string{"exports", "/dev/a", "/dev/b", "imports", "version"}, labels(m))
	assert.Equal(t, "exports", m.Selected().Label, "cursor stays on the toggled node")

	m = press(t, m, down, space)
	assert.Equal(t, []string{"exports", "/dev/a", "mapping_path", "state", "/dev/b", "imports", "version"}, labels(m))
	assert.Equal(t, 2, m.Rows()[2].Depth)

	m = press(t, m, up, enter)
	assert.Equal(t, []string{"exports", "imports", "version"}, labels(m))
}

func TestUpdate_ToggleLeafIsNoop(t *testing.T) {
	m := newModel(t, sample)
	m = press(t, m, runes("G"), enter)
	assert.Equal(t, []string{"exports", "imports", "version"}, labels(m))
}

func TestUpdate_ExpandAllCollapseAll(t *testing.T) {
	m := newModel(t, sample)

	m = press(t, m, runes("e"))
	assert.Equal(t, []string{
		"exports",
		"/dev/a", "mapping_path", "state",
		"/dev/b", "mapping_path", "state",
		"imports",
		"version",
	}, labels(m))

	// Select a deep leaf, then collapse everything.
	m = press(t, m, down, down, down)
	assert.Equal(t, "state", m.Selected().Label)

	m = press(t, m, runes("c"))
	assert.Equal(t, []string{"exports", "imports", "version"}, labels(m))
	assert.Equal(t, "exports", m.Selected().Label, "selection falls back to its top-level ancestor")
}

func TestUpdate_LeftRight(t *testing.T) {
	m := newModel(t, sample)

	m = press(t, m, right, down, right, down)
	assert.Equal(t, "mapping_path", m.Selected().Label)

	m = press(t, m, left)
	assert.Equal(t, "/dev/a", m.Selected().Label, "left on a leaf moves to the parent")

	m = press(t, m, left)
	assert.Equal(t, []string{"exports", "/dev/a", "/dev/b", "imports", "version"}, labels(m))
	assert.Equal(t, "/dev/a", m.Selected().Label)
}

func TestUpdate_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		m := newModel(t, sample)
		_, cmd := m.Update(k)
		require.NotNil(t, cmd, k.String())
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok, k.String())
	}
}

func TestUpdate_Scrolling(t *testing.T) {
	m := newModel(t, sample)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 4})
	m = next.(Model)

	m = press(t, m, runes("e"), runes("G"))
	assert.Equal(t, 8, m.Cursor())

	view := m.View()
	assert.Contains(t, view, "version = 1.0")
	assert.NotContains(t, view, "exports", "top rows are scrolled out of view")
}

func TestView(t *testing.T) {
	m := newModel(t, sample)
	view := m.View()

	assert.Contains(t, view, "dump")
	assert.Contains(t, view, "▸ exports")
	assert.Contains(t, view, "  imports")
	assert.Contains(t, view, "version = 1.0")
	assert.Contains(t, view, "quit")

	m = press(t, m, enter)
	assert.Contains(t, m.View(), "▾ exports")
}

func TestView_Empty(t *testing.T) {
	m := New(tree.New(), "dump")
	assert.Nil(t, m.Selected())
	assert.Contains(t, m.View(), "(empty dump)")

	m = press(t, m, down, enter, runes("e"), left)
	assert.Nil(t, m.Selected())
}
