// Package structure extracts the canonical classes and functions of a
// Python file. It is strict: a source with any syntax error is rejected
// and the caller decides how to degrade.
package structure

import (
	"sort"

	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// Result holds the classes and top-level functions of a file, each in
// source order.
type Result struct {
	Classes   []*model.Class
	Functions []*model.Function
}

// Entries returns the classes followed by the top-level functions.
func (r *Result) Entries() []model.Entry {
	out := make([]model.Entry, 0, len(r.Classes)+len(r.Functions))
	for _, c := range r.Classes {
		out = append(out, c)
	}
	for _, f := range r.Functions {
		out = append(out, f)
	}
	return out
}

// Extract returns the structure of t, or the tree's syntax error.
//
// Every class reachable outside a function body is reported, nested
// classes included; a class's methods are only the defs directly in its
// body. A def is top-level when its nearest non-block parent is not a
// class, so defs under module-level if/try blocks count. Function bodies
// are never descended into.
func Extract(t *syntax.Tree) (*Result, error) {
	if err := t.Err(); err != nil {
		return nil, err
	}

	r := &Result{}
	t.Walk(t.Root(), func(id syntax.NodeID) bool {
		switch t.Kind(id) {
		case "class_definition":
			r.Classes = append(r.Classes, class(t, id))
			return true
		case "function_definition":
			if !isMethod(t, id) {
				r.Functions = append(r.Functions, function(t, id, ""))
			}
			return false
		}
		return true
	})
	return r, nil
}

func isMethod(t *syntax.Tree, def syntax.NodeID) bool {
	p := t.Parent(def)
	for p != syntax.NoNode {
		switch t.Kind(p) {
		case "decorated_definition", "block":
			p = t.Parent(p)
		case "class_definition":
			return true
		default:
			return false
		}
	}
	return false
}

func class(t *syntax.Tree, id syntax.NodeID) *model.Class {
	name := t.Text(t.Field(id, "name"))
	c := &model.Class{
		Type:      "Class",
		Name:      name,
		StartLine: t.Line(id),
		EndLine:   t.EndLine(id),
		HasPart:   []*model.Function{},
	}
	body := t.Field(id, "body")
	if body == syntax.NoNode {
		return c
	}
	c.Description, _ = t.Docstring(body)
	for _, stmt := range t.NamedChildren(body) {
		def := t.Definition(stmt)
		if t.Kind(def) == "function_definition" {
			c.HasPart = append(c.HasPart, function(t, def, name))
		}
	}
	return c
}

func function(t *syntax.Tree, def syntax.NodeID, class string) *model.Function {
	doc, _ := t.Docstring(t.Field(def, "body"))
	return &model.Function{
		Type:        "Function",
		Name:        t.Text(t.Field(def, "name")),
		Text:        t.Text(def),
		Description: doc,
		Decorators:  decorators(t, def),
		Calls:       calls(t, def),
		IsAsync:     t.HasToken(def, "async"),
		InClass:     class,
		StartLine:   t.Line(def),
		EndLine:     t.EndLine(def),
	}
}

// decorators returns the sorted, de-duplicated simple names of the
// decorators of def.
func decorators(t *syntax.Tree, def syntax.NodeID) []string {
	set := map[string]struct{}{}
	for _, d := range t.Decorators(def) {
		set[DecoratorName(t, d)] = struct{}{}
	}
	return sorted(set)
}

// DecoratorName resolves a decorator node to a bare name, the final
// attribute component, or the expression source text.
func DecoratorName(t *syntax.Tree, dec syntax.NodeID) string {
	exprs := t.NamedChildren(dec)
	if len(exprs) == 0 {
		return t.Text(dec)
	}
	e := exprs[0]
	switch t.Kind(e) {
	case "identifier":
		return t.Text(e)
	case "attribute":
		return t.Text(t.Field(e, "attribute"))
	}
	return t.Text(e)
}

// calls collects the callee names of every call expression in def,
// including its decorators and default values.
func calls(t *syntax.Tree, def syntax.NodeID) []string {
	set := map[string]struct{}{}
	collect := func(id syntax.NodeID) bool {
		if t.Kind(id) == "call" {
			if name := CalleeName(t, t.Field(id, "function")); name != "" {
				set[name] = struct{}{}
			}
		}
		return true
	}
	for _, d := range t.Decorators(def) {
		t.Walk(d, collect)
	}
	t.Walk(def, collect)
	return sorted(set)
}

// CalleeName returns the bare name of a called identifier or the final
// component of a called attribute, and "" for any other callee.
func CalleeName(t *syntax.Tree, fn syntax.NodeID) string {
	fn = t.Unparen(fn)
	switch t.Kind(fn) {
	case "identifier":
		return t.Text(fn)
	case "attribute":
		return t.Text(t.Field(fn, "attribute"))
	}
	return ""
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
