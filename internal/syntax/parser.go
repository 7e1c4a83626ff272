// Package syntax parses Python source with tree-sitter and converts the
// result into an immutable node arena shared by the extractors.
//
// A Parser is not safe for concurrent use; each worker owns its own. A Tree
// is read-only once built and may be shared freely.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxNodes bounds the arena size of a single file.
const DefaultMaxNodes = 2_000_000

var (
	// ErrSyntax marks a source that does not parse cleanly.
	ErrSyntax = errors.New("invalid syntax")
	// ErrTooLarge is returned when a tree exceeds the node limit.
	ErrTooLarge = errors.New("syntax tree exceeds node limit")
)

// SyntaxError locates the first syntax error of a source.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid syntax (line %d, column %d): %s", e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Parser wraps a tree-sitter parser configured for Python.
type Parser struct {
	parser   *sitter.Parser
	maxNodes int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxNodes sets the node limit; n <= 0 keeps the default.
func WithMaxNodes(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxNodes = n
		}
	}
}

// NewParser creates a Python parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{parser: sitter.NewParser(), maxNodes: DefaultMaxNodes}
	p.parser.SetLanguage(python.GetLanguage())
	for _, o := range opts {
		o(p)
	}
	return p
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// Parse parses source into a Tree. A source with syntax errors still
// yields a Tree; use Tree.Err to check.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Tree, error) {
	st, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer st.Close()

	return build(st.RootNode(), source, p.maxNodes)
}

// build copies the tree-sitter tree into an arena using a single cursor
// walk, recording each node's parent and field name.
func build(root *sitter.Node, source []byte, maxNodes int) (*Tree, error) {
	t := &Tree{Source: source}

	c := sitter.NewTreeCursor(root)
	defer c.Close()

	parent := NoNode
	for {
		if len(t.Nodes) >= maxNodes {
			return nil, fmt.Errorf("%w (%d)", ErrTooLarge, maxNodes)
		}
		n := c.CurrentNode()
		id := NodeID(len(t.Nodes))
		sp, ep := n.StartPoint(), n.EndPoint()
		t.Nodes = append(t.Nodes, Node{
			Kind:    n.Type(),
			Field:   c.CurrentFieldName(),
			Named:   n.IsNamed(),
			Missing: n.IsMissing(),
			Start:   int(n.StartByte()),
			End:     int(n.EndByte()),
			StartAt: Point{Line: int(sp.Row) + 1, Column: int(sp.Column)},
			EndAt:   Point{Line: int(ep.Row) + 1, Column: int(ep.Column)},
			Parent:  parent,
		})
		if parent != NoNode {
			t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
		}
		if t.Nodes[id].IsError() || t.Nodes[id].Missing {
			t.errs = append(t.errs, id)
		} else if msg := rejected(t, id); msg != "" {
			if t.reasons == nil {
				t.reasons = map[NodeID]string{}
			}
			t.reasons[id] = msg
			t.errs = append(t.errs, id)
		}

		if c.GoToFirstChild() {
			parent = id
			continue
		}
		for !c.GoToNextSibling() {
			if !c.GoToParent() {
				return t, nil
			}
			parent = t.Nodes[parent].Parent
		}
	}
}
