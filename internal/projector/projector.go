// Package projector turns a parsed dump into a sequence of tree node
// insertions. Objects become labeled branches, scalars become leaves, and
// lists are re-expressed as keyed branches through the keyer package, so a
// list never shows up as a run of anonymous siblings.
package projector

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcncl/rnbdview/internal/errors"
	"github.com/mcncl/rnbdview/internal/keyer"
	"github.com/mcncl/rnbdview/internal/logging"
	"github.com/mcncl/rnbdview/internal/models"
	"go.uber.org/zap"
)

// NodeID identifies a node within one projection.
type NodeID string

// RootID is the parent of top-level nodes.
const RootID NodeID = ""

// DefaultMaxDepth bounds the nesting the projector will follow.
const DefaultMaxDepth = 512

// ErrorLabel labels the placeholder leaves inserted for unusable list items.
const ErrorLabel = "error"

// Node is a single insertion into a Sink. Value is only meaningful when
// HasValue is set, which is the case for leaves.
type Node struct {
	ID       NodeID
	Parent   NodeID
	Label    string
	Value    string
	HasValue bool
}

// Sink consumes node insertions. Parents are always inserted before their
// children, and siblings arrive in display order.
type Sink interface {
	Insert(node Node) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Node) error

// Insert calls f(node).
func (f SinkFunc) Insert(node Node) error { return f(node) }

// IDGenerator returns a fresh node id on every call.
type IDGenerator func() NodeID

// UUIDs generates random UUID node ids.
func UUIDs() NodeID {
	return NodeID(uuid.NewString())
}

// Sequence returns a generator of ids prefix1, prefix2, ...
func Sequence(prefix string) IDGenerator {
	n := 0
	return func() NodeID {
		n++
		return NodeID(fmt.Sprintf("%s%d", prefix, n))
	}
}

// ErrorPolicy decides what happens when a list item cannot be keyed.
type ErrorPolicy string

const (
	// Abort stops the projection at the first unusable item.
	Abort ErrorPolicy = "abort"
	// Placeholder inserts an error leaf for the item and carries on.
	Placeholder ErrorPolicy = "placeholder"
)

// ParseErrorPolicy validates a policy name. The empty string means Abort.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Abort:
		return Abort, nil
	case Placeholder:
		return Placeholder, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want %q or %q)", s, Abort, Placeholder)
	}
}

// Option configures a Projector.
type Option func(*Projector)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(p *Projector) { p.newID = gen }
}

// WithErrorPolicy sets how unusable list items are handled.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(p *Projector) { p.policy = policy }
}

// WithMaxDepth sets the deepest nesting level that will be projected.
func WithMaxDepth(depth int) Option {
	return func(p *Projector) { p.maxDepth = depth }
}

// WithLogger sets the logger used to report placeholder substitutions.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Projector) { p.logger = logger }
}

// Projector walks JSON values and feeds the resulting nodes to a Sink.
// It is not safe for concurrent use.
type Projector struct {
	sink     Sink
	newID    IDGenerator
	policy   ErrorPolicy
	maxDepth int
	logger   *zap.Logger

	inserted int
}

// New creates a Projector writing to sink.
func New(sink Sink, opts ...Option) *Projector {
	p := &Projector{
		sink:     sink,
		newID:    UUIDs,
		policy:   Abort,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger)
	if p.maxDepth <= 0 {
		p.maxDepth = DefaultMaxDepth
	}
	return p
}

// Inserted returns how many nodes have been inserted so far.
func (p *Projector) Inserted() int {
	return p.inserted
}

// Project inserts the tree for value below parent. An object contributes one
// child of parent per member; a list is keyed as if it had no name (so by
// position) and contributes one child per element. Any other value is
// rejected, since it has no label to show.
func (p *Projector) Project(parent NodeID, value models.Value) error {
	switch v := value.(type) {
	case models.Object:
		return p.members(parent, v, 1, "")
	case models.Array:
		return p.list(parent, "", v, 1, "")
	default:
		return &errors.MalformedInputError{
			Reason: fmt.Sprintf("document root must be an object or a list, got %s", kindOf(value)),
		}
	}
}

// Project is a convenience wrapper that projects value under RootID with
// default options.
func Project(sink Sink, value models.Value, opts ...Option) error {
	return New(sink, opts...).Project(RootID, value)
}

func (p *Projector) members(parent NodeID, obj models.Object, depth int, path string) error {
	for _, m := range obj {
		if err := p.walk(parent, m.Key, m.Value, depth, join(path, m.Key)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) walk(parent NodeID, label string, value models.Value, depth int, path string) error {
	if depth > p.maxDepth {
		return &errors.MalformedInputError{
			Path:   path,
			Reason: fmt.Sprintf("nesting exceeds %d levels", p.maxDepth),
		}
	}

	switch v := value.(type) {
	case models.Object:
		id, err := p.insert(Node{Parent: parent, Label: label})
		if err != nil {
			return err
		}
		return p.members(id, v, depth+1, path)
	case models.Array:
		id, err := p.insert(Node{Parent: parent, Label: label})
		if err != nil {
			return err
		}
		return p.list(id, label, v, depth+1, path)
	default:
		_, err := p.insert(Node{Parent: parent, Label: label, Value: LeafText(value), HasValue: true})
		return err
	}
}

func (p *Projector) list(parent NodeID, fieldName string, items models.Array, depth int, path string) error {
	// Positional keys cannot fail.
	if p.policy != Placeholder || !keyer.Keyed(fieldName) {
		keyed, err := keyer.DeriveKeys(fieldName, items)
		if err != nil {
			return err
		}
		return p.members(parent, keyed, depth, path)
	}

	// Keep failed items at their position among the keyed ones.
	type entry struct {
		key   string
		value models.Value
		err   error
	}
	entries := make([]entry, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		key, err := keyer.KeyFor(fieldName, i, item)
		if err != nil {
			p.logger.Warn("Substituting placeholder for list item",
				zap.String("list", fieldName),
				zap.Int("index", i),
				zap.Error(err))
			entries = append(entries, entry{err: err})
			continue
		}
		if at, ok := index[key]; ok {
			entries[at].value = item
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry{key: key, value: item})
	}

	for _, e := range entries {
		if e.err != nil {
			if _, err := p.insert(Node{Parent: parent, Label: ErrorLabel, Value: e.err.Error(), HasValue: true}); err != nil {
				return err
			}
			continue
		}
		if err := p.walk(parent, e.key, e.value, depth, join(path, e.key)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) insert(node Node) (NodeID, error) {
	node.ID = p.newID()
	if err := p.sink.Insert(node); err != nil {
		return "", fmt.Errorf("failed to insert node %q: %w", node.Label, err)
	}
	p.inserted++
	return node.ID, nil
}

// LeafText renders a scalar for display. Spaces in strings become
// underscores so values fit a single column; null renders as None.
func LeafText(v models.Value) string {
	switch t := v.(type) {
	case models.String:
		return strings.ReplaceAll(string(t), " ", "_")
	case models.Null, nil:
		return "None"
	case models.Number:
		return string(t)
	case models.Bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func kindOf(v models.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}
