package syntax

import (
	"strings"
	"unicode/utf8"
)

// NodeID indexes a node in its Tree's arena.
type NodeID int32

// NoNode is the parent of the root and the result of failed lookups.
const NoNode NodeID = -1

// Point is a source position: Line is 1-based, Column a 0-based byte offset.
type Point struct {
	Line   int
	Column int
}

// Node is one arena entry.
type Node struct {
	Kind     string
	Field    string // field name under the parent, "" if none
	Named    bool
	Missing  bool
	Start    int
	End      int
	StartAt  Point
	EndAt    Point
	Parent   NodeID
	Children []NodeID
}

// IsError reports whether the node is an error-recovery node.
func (n *Node) IsError() bool { return n.Kind == "ERROR" }

// Tree is an immutable Python syntax tree. Node 0 is the module.
type Tree struct {
	Source  []byte
	Nodes   []Node
	errs    []NodeID
	// reasons holds the message of error nodes that parsed cleanly but
	// are not valid Python 3.
	reasons map[NodeID]string
}

// Root returns the module node.
func (t *Tree) Root() NodeID { return 0 }

// Node returns the node for id.
func (t *Tree) Node(id NodeID) *Node { return &t.Nodes[id] }

// Kind returns the node kind of id, or "" for NoNode.
func (t *Tree) Kind(id NodeID) string {
	if id == NoNode {
		return ""
	}
	return t.Nodes[id].Kind
}

// Parent returns the parent of id.
func (t *Tree) Parent(id NodeID) NodeID { return t.Nodes[id].Parent }

// Text returns the source text spanned by id.
func (t *Tree) Text(id NodeID) string {
	if id == NoNode {
		return ""
	}
	n := &t.Nodes[id]
	return string(t.Source[n.Start:n.End])
}

// Line returns the 1-based start line of id.
func (t *Tree) Line(id NodeID) int { return t.Nodes[id].StartAt.Line }

// EndLine returns the 1-based end line of id.
func (t *Tree) EndLine(id NodeID) int {
	n := &t.Nodes[id]
	// A node ending at column 0 stops at the previous line's newline.
	if n.EndAt.Column == 0 && n.EndAt.Line > n.StartAt.Line {
		return n.EndAt.Line - 1
	}
	return n.EndAt.Line
}

// Field returns the first child of id stored under field, or NoNode.
func (t *Tree) Field(id NodeID, field string) NodeID {
	for _, c := range t.Nodes[id].Children {
		if t.Nodes[c].Field == field {
			return c
		}
	}
	return NoNode
}

// Fields returns every child of id stored under field.
func (t *Tree) Fields(id NodeID, field string) []NodeID {
	var out []NodeID
	for _, c := range t.Nodes[id].Children {
		if t.Nodes[c].Field == field {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildren returns the named children of id, skipping comments.
func (t *Tree) NamedChildren(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.Nodes[id].Children {
		n := &t.Nodes[c]
		if n.Named && n.Kind != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// HasToken reports whether id has an anonymous child token equal to tok,
// such as "async" on a function definition.
func (t *Tree) HasToken(id NodeID, tok string) bool {
	for _, c := range t.Nodes[id].Children {
		n := &t.Nodes[c]
		if !n.Named && n.Kind == tok {
			return true
		}
	}
	return false
}

// Walk visits the subtree of id in preorder using an explicit stack. If
// visit returns false the node's children are skipped.
func (t *Tree) Walk(id NodeID, visit func(NodeID) bool) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(cur) {
			continue
		}
		children := t.Nodes[cur].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Enclosing returns the nearest proper ancestor of id whose kind is one of
// kinds, or NoNode.
func (t *Tree) Enclosing(id NodeID, kinds ...string) NodeID {
	for p := t.Nodes[id].Parent; p != NoNode; p = t.Nodes[p].Parent {
		for _, k := range kinds {
			if t.Nodes[p].Kind == k {
				return p
			}
		}
	}
	return NoNode
}

// Definition unwraps a decorated_definition to the def or class it wraps.
func (t *Tree) Definition(id NodeID) NodeID {
	if t.Kind(id) == "decorated_definition" {
		return t.Field(id, "definition")
	}
	return id
}

// Decorators returns the decorator nodes attached to a definition.
func (t *Tree) Decorators(def NodeID) []NodeID {
	p := t.Nodes[def].Parent
	if p == NoNode || t.Nodes[p].Kind != "decorated_definition" {
		return nil
	}
	var out []NodeID
	for _, c := range t.Nodes[p].Children {
		if t.Nodes[c].Kind == "decorator" {
			out = append(out, c)
		}
	}
	return out
}

// HasError reports whether the source contains a syntax error.
func (t *Tree) HasError() bool { return len(t.errs) > 0 }

// Errors returns the error and missing nodes in source order.
func (t *Tree) Errors() []NodeID { return t.errs }

// Err returns a *SyntaxError for the first syntax error, or nil.
func (t *Tree) Err() error {
	if len(t.errs) == 0 {
		return nil
	}
	return t.syntaxError(t.errs[0])
}

// ErrorMessages describes every syntax error, one string per error node.
func (t *Tree) ErrorMessages() []string {
	out := make([]string, 0, len(t.errs))
	for _, id := range t.errs {
		out = append(out, t.syntaxError(id).Error())
	}
	return out
}

func (t *Tree) syntaxError(id NodeID) *SyntaxError {
	n := &t.Nodes[id]
	e := &SyntaxError{Line: n.StartAt.Line, Column: n.StartAt.Column + 1}
	if msg, ok := t.reasons[id]; ok {
		e.Msg = msg
		return e
	}
	if n.Missing {
		e.Msg = "missing " + quote(n.Kind)
		return e
	}
	e.Msg = "unexpected " + quote(truncate(firstLine(t.Text(id)), 20))
	return e
}

func quote(s string) string { return "'" + s + "'" }

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
