// Package cst extracts the lexical view of a Python file: parameter
// annotations and defaults, return types, decorator and import source
// text, and the comments leading each definition.
//
// Its lists are a separate view of the file and are not reconciled with
// the structural entries.
package cst

import (
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// Error types reported on a degraded result.
const (
	ErrorTypeSyntax  = "syntax"
	ErrorTypeUnknown = "unknown"
)

func empty() *model.ConcreteSyntax {
	return &model.ConcreteSyntax{
		Type:            "ConcreteSyntaxAnalysis",
		Functions:       []model.SyntaxFunction{},
		Classes:         []model.SyntaxClass{},
		Imports:         []model.Import{},
		Packages:        []string{},
		TypeAnnotations: map[string]string{},
	}
}

// Failed returns the empty result for an extraction that could not run.
func Failed(err error) *model.ConcreteSyntax {
	r := empty()
	r.ExtractionStatus = model.StatusFailed
	r.ParseError = err.Error()
	r.ErrorType = ErrorTypeUnknown
	return r
}

// Extract builds the concrete-syntax view of t. A source with syntax
// errors yields an empty partial result carrying the first error.
func Extract(t *syntax.Tree) *model.ConcreteSyntax {
	r := empty()
	if err := t.Err(); err != nil {
		r.ExtractionStatus = model.StatusPartial
		r.ParseError = err.Error()
		r.ErrorType = ErrorTypeSyntax
		return r
	}

	r.Imports = Imports(t, t.Root())
	r.Packages = packages(r.Imports)

	t.Walk(t.Root(), func(id syntax.NodeID) bool {
		switch t.Kind(id) {
		case "function_definition":
			fn := function(t, id, "Function")
			r.Functions = append(r.Functions, fn)
			annotate(r.TypeAnnotations, t, id, fn.QualifiedName)
		case "class_definition":
			r.Classes = append(r.Classes, class(t, id))
		case "assignment":
			if typ := t.Field(id, "type"); typ != syntax.NoNode {
				if key := variableKey(t, id); key != "" {
					r.TypeAnnotations[key] = t.Text(typ)
				}
			}
			return false
		}
		return true
	})

	r.ExtractionStatus = model.StatusSuccess
	return r
}

func function(t *syntax.Tree, def syntax.NodeID, typ string) model.SyntaxFunction {
	fn := model.SyntaxFunction{
		Type:          typ,
		Name:          t.Text(t.Field(def, "name")),
		QualifiedName: qualifiedName(t, def),
		Parameters:    []model.Parameter{},
		TypeComments:  leadingComments(t, def),
		Decorators:    decoratorTexts(t, def),
		IsAsync:       t.HasToken(def, "async"),
		Line:          t.Line(def),
	}
	for _, p := range t.Params(def) {
		fn.Parameters = append(fn.Parameters, model.Parameter{
			Name:       p.Name,
			Annotation: optText(t, p.Annotation),
			Default:    optText(t, p.Default),
			Kind:       p.Kind,
		})
	}
	fn.ReturnType = optText(t, t.Field(def, "return_type"))
	if doc, ok := t.Docstring(t.Field(def, "body")); ok {
		fn.Docstring = &doc
	}
	if cls := t.Enclosing(def, "class_definition", "function_definition"); t.Kind(cls) == "class_definition" {
		fn.InClass = t.Text(t.Field(cls, "name"))
	}
	return fn
}

func class(t *syntax.Tree, id syntax.NodeID) model.SyntaxClass {
	c := model.SyntaxClass{
		Type:       "Class",
		Name:       t.Text(t.Field(id, "name")),
		Bases:      []string{},
		Keywords:   []string{},
		Decorators: decoratorTexts(t, id),
		Methods:    []model.SyntaxFunction{},
		Text:       t.Text(id),
		Line:       t.Line(id),
	}
	if supers := t.Field(id, "superclasses"); supers != syntax.NoNode {
		for _, arg := range t.NamedChildren(supers) {
			if t.Kind(arg) == "keyword_argument" {
				c.Keywords = append(c.Keywords, t.Text(arg))
			} else {
				c.Bases = append(c.Bases, t.Text(arg))
			}
		}
	}
	body := t.Field(id, "body")
	if body == syntax.NoNode {
		return c
	}
	if doc, ok := t.Docstring(body); ok {
		c.Docstring = &doc
	}
	for _, stmt := range t.NamedChildren(body) {
		def := t.Definition(stmt)
		if t.Kind(def) != "function_definition" {
			continue
		}
		m := function(t, def, "Method")
		m.Text = t.Text(def)
		c.Methods = append(c.Methods, m)
	}
	return c
}

// qualifiedName joins the names of the enclosing classes and functions.
func qualifiedName(t *syntax.Tree, def syntax.NodeID) string {
	parts := []string{t.Text(t.Field(def, "name"))}
	for p := t.Parent(def); p != syntax.NoNode; p = t.Parent(p) {
		switch t.Kind(p) {
		case "class_definition", "function_definition":
			parts = append(parts, t.Text(t.Field(p, "name")))
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func annotate(out map[string]string, t *syntax.Tree, def syntax.NodeID, qual string) {
	for _, p := range t.Params(def) {
		if p.Annotation != syntax.NoNode {
			out[qual+"."+p.Name] = t.Text(p.Annotation)
		}
	}
	if rt := t.Field(def, "return_type"); rt != syntax.NoNode {
		out[qual+".return"] = t.Text(rt)
	}
}

// variableKey names an annotated assignment outside function bodies, or
// returns "" for locals and non-name targets.
func variableKey(t *syntax.Tree, assign syntax.NodeID) string {
	left := t.Field(assign, "left")
	if t.Kind(left) != "identifier" {
		return ""
	}
	scope := t.Enclosing(assign, "class_definition", "function_definition")
	switch t.Kind(scope) {
	case "function_definition":
		return ""
	case "class_definition":
		return qualifiedName(t, scope) + "." + t.Text(left)
	}
	return t.Text(left)
}

// leadingComments returns the comments directly preceding a definition,
// decorators included.
func leadingComments(t *syntax.Tree, def syntax.NodeID) []string {
	outer := def
	if p := t.Parent(def); t.Kind(p) == "decorated_definition" {
		outer = p
	}
	out := []string{}
	parent := t.Parent(outer)
	if parent == syntax.NoNode {
		return out
	}
	siblings := t.Node(parent).Children
	i := 0
	for i < len(siblings) && siblings[i] != outer {
		i++
	}
	for j := i - 1; j >= 0 && t.Kind(siblings[j]) == "comment"; j-- {
		out = append([]string{t.Text(siblings[j])}, out...)
	}
	return out
}

func decoratorTexts(t *syntax.Tree, def syntax.NodeID) []string {
	out := []string{}
	for _, d := range t.Decorators(def) {
		out = append(out, strings.TrimSpace(strings.TrimPrefix(t.Text(d), "@")))
	}
	return out
}

func optText(t *syntax.Tree, id syntax.NodeID) *string {
	if id == syntax.NoNode {
		return nil
	}
	s := t.Text(id)
	return &s
}
