// Package tree provides an in-memory projector.Sink that records the projected
// nodes so they can be rendered, browsed or compared.
package tree

import (
	"errors"
	"fmt"

	"github.com/mcncl/rnbdview/internal/models"
	"github.com/mcncl/rnbdview/internal/projector"
)

var (
	ErrUnknownParent = errors.New("unknown parent node")
	ErrDuplicateID   = errors.New("duplicate node id")
)

// Node is a recorded tree node.
type Node struct {
	ID       projector.NodeID
	Label    string
	Value    string
	HasValue bool
	Parent   *Node
	Children []*Node
}

// IsLeaf reports whether the node carries a display value.
func (n *Node) IsLeaf() bool {
	return n.HasValue
}

// Path returns the labels from the top-level ancestor down to n.
func (n *Node) Path() []string {
	var path []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		path = append([]string{cur.Label}, path...)
	}
	return path
}

// Tree records insertions. The zero value is not usable; call New.
// A Tree is not safe for concurrent use.
type Tree struct {
	root  *Node
	nodes map[projector.NodeID]*Node
}

// New returns an empty tree holding only the root node.
func New() *Tree {
	root := &Node{ID: projector.RootID}
	return &Tree{
		root:  root,
		nodes: map[projector.NodeID]*Node{projector.RootID: root},
	}
}

// Build projects value into a fresh tree.
func Build(value models.Value, opts ...projector.Option) (*Tree, error) {
	t := New()
	if err := projector.Project(t, value, opts...); err != nil {
		return nil, err
	}
	return t, nil
}

// Insert implements projector.Sink.
func (t *Tree) Insert(n projector.Node) error {
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
	}
	parent, ok := t.nodes[n.Parent]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParent, n.Parent)
	}
	if parent.HasValue {
		return fmt.Errorf("node %q is a leaf and cannot have children", parent.Label)
	}

	node := &Node{
		ID:       n.ID,
		Label:    n.Label,
		Value:    n.Value,
		HasValue: n.HasValue,
		Parent:   parent,
	}
	parent.Children = append(parent.Children, node)
	t.nodes[n.ID] = node
	return nil
}

// Root returns the root node. It has no label and its children are the
// top-level nodes.
func (t *Tree) Root() *Node {
	return t.root
}

// Len returns the number of nodes, not counting the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Get returns the node with the given id.
func (t *Tree) Get(id projector.NodeID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Find follows labels from the root and returns the node reached. When
// several siblings share a label the first one wins.
func (t *Tree) Find(labels ...string) (*Node, bool) {
	cur := t.root
	for _, label := range labels {
		var next *Node
		for _, child := range cur.Children {
			if child.Label == label {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// WalkFunc is called for every node in pre-order. Depth starts at 0 for
// top-level nodes. Returning SkipChildren skips the node's subtree.
type WalkFunc func(n *Node, depth int) error

// SkipChildren can be returned from a WalkFunc to prune the walk.
var SkipChildren = errors.New("skip children")

// Walk visits every node except the root in pre-order.
func (t *Tree) Walk(fn WalkFunc) error {
	return walk(t.root.Children, 0, fn)
}

func walk(nodes []*Node, depth int, fn WalkFunc) error {
	for _, n := range nodes {
		err := fn(n, depth)
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
		if err := walk(n.Children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Shape is the id-free structure of a subtree.
type Shape struct {
	Label    string
	Value    string
	HasValue bool
	Children []Shape
}

// Shape returns the structure of the tree below the root. Two projections of
// the same document have equal shapes even though their ids differ.
func (t *Tree) Shape() []Shape {
	return shapes(t.root.Children)
}

func shapes(nodes []*Node) []Shape {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Shape, len(nodes))
	for i, n := range nodes {
		out[i] = Shape{
			Label:    n.Label,
			Value:    n.Value,
			HasValue: n.HasValue,
			Children: shapes(n.Children),
		}
	}
	return out
}
