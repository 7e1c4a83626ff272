// Package tolerant extracts structure from Python files that may not
// parse cleanly. Definitions are taken from well-formed nodes and
// recovered from error nodes, where a def or class keyword followed by a
// name is enough to report an entry.
package tolerant

import (
	"github.com/phobologic/pyjsonld/internal/cst"
	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

func empty() *model.ErrorTolerant {
	return &model.ErrorTolerant{
		Type:        "ErrorTolerantParse",
		Functions:   []model.RecoveredFunction{},
		Classes:     []model.RecoveredClass{},
		Imports:     []model.Import{},
		ParseErrors: []string{},
	}
}

// Failed returns the result for an extraction that could not run.
func Failed(err error) *model.ErrorTolerant {
	r := empty()
	r.ExtractionStatus = model.StatusFailed
	r.Error = err.Error()
	r.ParseErrors = append(r.ParseErrors, err.Error())
	r.IsPartialParse = true
	return r
}

// Extract recovers module-level functions, classes with their direct
// methods, and imports from t. Entries touched by a syntax error are
// flagged IsErrorRecovered.
func Extract(t *syntax.Tree) *model.ErrorTolerant {
	r := empty()
	r.ParseErrors = append(r.ParseErrors, t.ErrorMessages()...)
	r.IsPartialParse = len(r.ParseErrors) > 0
	r.Imports = cst.Imports(t, t.Root())

	classes := map[syntax.NodeID]int{}
	t.Walk(t.Root(), func(id syntax.NodeID) bool {
		switch t.Kind(id) {
		case "class_definition":
			if t.Enclosing(id, "function_definition") != syntax.NoNode {
				return true
			}
			classes[id] = len(r.Classes)
			r.Classes = append(r.Classes, model.RecoveredClass{
				Type:             "Class",
				Name:             t.Text(t.Field(id, "name")),
				StartLine:        t.Line(id),
				EndLine:          t.EndLine(id),
				Methods:          []model.RecoveredFunction{},
				IsErrorRecovered: damaged(t, id),
			})
		case "function_definition":
			if t.Enclosing(id, "function_definition") != syntax.NoNode {
				return true
			}
			fn := model.RecoveredFunction{
				Type:             "Function",
				Name:             t.Text(t.Field(id, "name")),
				StartLine:        t.Line(id),
				EndLine:          t.EndLine(id),
				IsAsync:          t.HasToken(id, "async"),
				Text:             t.Text(id),
				IsErrorRecovered: damaged(t, id),
			}
			if idx, ok := classes[ownerClass(t, id)]; ok {
				fn.InClass = r.Classes[idx].Name
				r.Classes[idx].Methods = append(r.Classes[idx].Methods, fn)
			} else {
				r.Functions = append(r.Functions, fn)
			}
		case "ERROR":
			recoverDefinitions(t, id, r)
		}
		return true
	})

	r.ExtractionStatus = model.StatusSuccess
	return r
}

// ownerClass returns the class whose body directly holds def, or NoNode.
func ownerClass(t *syntax.Tree, def syntax.NodeID) syntax.NodeID {
	for p := t.Parent(def); p != syntax.NoNode; p = t.Parent(p) {
		switch t.Kind(p) {
		case "decorated_definition", "block":
			continue
		case "class_definition":
			return p
		}
		return syntax.NoNode
	}
	return syntax.NoNode
}

// damaged reports whether id lies in or contains a syntax error.
func damaged(t *syntax.Tree, id syntax.NodeID) bool {
	if t.Enclosing(id, "ERROR") != syntax.NoNode {
		return true
	}
	n := t.Node(id)
	for _, e := range t.Errors() {
		en := t.Node(e)
		if en.Start >= n.Start && en.End <= n.End {
			return true
		}
	}
	return false
}

// recoverDefinitions scans the direct children of an error node for a
// def or class keyword followed by an identifier.
func recoverDefinitions(t *syntax.Tree, errNode syntax.NodeID, r *model.ErrorTolerant) {
	kids := t.Node(errNode).Children
	end := t.Node(errNode).End
	for i, c := range kids {
		kw := t.Node(c)
		if kw.Named || (kw.Kind != "def" && kw.Kind != "class") {
			continue
		}
		if i+1 >= len(kids) || t.Kind(kids[i+1]) != "identifier" {
			continue
		}
		start := c
		isAsync := i > 0 && t.Kind(kids[i-1]) == "async"
		if isAsync {
			start = kids[i-1]
		}
		name := t.Text(kids[i+1])
		line := t.Line(start)
		endLine := t.EndLine(errNode)

		if kw.Kind == "class" {
			r.Classes = append(r.Classes, model.RecoveredClass{
				Type:             "Class",
				Name:             name,
				StartLine:        line,
				EndLine:          endLine,
				Methods:          []model.RecoveredFunction{},
				IsErrorRecovered: true,
			})
			continue
		}
		r.Functions = append(r.Functions, model.RecoveredFunction{
			Type:             "Function",
			Name:             name,
			StartLine:        line,
			EndLine:          endLine,
			IsAsync:          isAsync,
			Text:             string(t.Source[t.Node(start).Start:end]),
			IsErrorRecovered: true,
		})
	}
}
