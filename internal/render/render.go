// Package render prints a recorded tree as text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltree "github.com/charmbracelet/lipgloss/tree"
	"github.com/mcncl/rnbdview/internal/config"
	"github.com/mcncl/rnbdview/internal/projector"
	"github.com/mcncl/rnbdview/internal/tree"
)

// PathSeparator joins labels in the paths format.
const PathSeparator = " > "

// Renderer writes trees in one of the display formats.
type Renderer struct {
	Format string
	Color  bool
}

// NewRenderer creates a Renderer from the display settings.
func NewRenderer(cfg config.DisplayConfig) *Renderer {
	return &Renderer{Format: cfg.Format, Color: cfg.Color}
}

// Render writes t to w. Title labels the top of the tree format and is
// ignored by the paths format.
func (r *Renderer) Render(w io.Writer, t *tree.Tree, title string) error {
	switch r.Format {
	case "", config.FormatTree:
		_, err := fmt.Fprintln(w, r.Tree(t, title))
		return err
	case config.FormatPaths:
		return Paths(w, t)
	default:
		return fmt.Errorf("unknown format %q", r.Format)
	}
}

type styles struct {
	root       lipgloss.Style
	branch     lipgloss.Style
	value      lipgloss.Style
	errorValue lipgloss.Style
	enumerator lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain.PaddingRight(1)}
	}
	return styles{
		root:       lipgloss.NewStyle().Bold(true),
		branch:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		value:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		errorValue: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		enumerator: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingRight(1),
	}
}

// Tree renders t with box-drawing connectors. Leaves read "label = value".
func (r *Renderer) Tree(t *tree.Tree, title string) string {
	st := newStyles(r.Color)

	root := ltree.Root(st.root.Render(title)).
		EnumeratorStyle(st.enumerator)
	addChildren(root, t.Root().Children, st)
	return root.String()
}

func addChildren(parent *ltree.Tree, nodes []*tree.Node, st styles) {
	for _, n := range nodes {
		if n.IsLeaf() {
			parent.Child(leafLine(n, st))
			continue
		}
		sub := ltree.Root(st.branch.Render(displayLabel(n.Label))).
			EnumeratorStyle(st.enumerator)
		addChildren(sub, n.Children, st)
		parent.Child(sub)
	}
}

func leafLine(n *tree.Node, st styles) string {
	valueStyle := st.value
	if n.Label == projector.ErrorLabel {
		valueStyle = st.errorValue
	}
	return displayLabel(n.Label) + " = " + valueStyle.Render(n.Value)
}

// displayLabel quotes empty labels. lipgloss nests a rootless subtree into
// its previous sibling, so a branch must never have an empty root.
func displayLabel(label string) string {
	if label == "" {
		return `""`
	}
	return label
}

// Paths writes one line per leaf and per childless branch, each prefixed by
// the labels leading to it.
func Paths(w io.Writer, t *tree.Tree) error {
	bw := bufio.NewWriter(w)
	err := t.Walk(func(n *tree.Node, _ int) error {
		path := strings.Join(n.Path(), PathSeparator)
		switch {
		case n.IsLeaf():
			_, err := fmt.Fprintf(bw, "%s = %s\n", path, n.Value)
			return err
		case len(n.Children) == 0:
			_, err := fmt.Fprintln(bw, path)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}
