// Package callgraph builds the per-function call adjacency of a Python
// file together with a per-call log and ranking analytics.
//
// Callee names are syntactic: a called name is recorded as written and a
// called attribute by its final component. Nothing is resolved against
// imports or types.
package callgraph

import (
	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// Callee types recorded in call details.
const (
	CalleeFunction      = "function"
	CalleeMethod        = "method"
	CalleeAttributeCall = "attribute_call"
	CalleeChainedCall   = "chained_call"
)

const (
	// TopN bounds the most-called and most-calling rankings.
	TopN = 10
	// MaxDepth bounds the call chains explored for callDepth.
	MaxDepth = 16
	// complexCall names the callee of a call whose target is itself a call.
	complexCall = "complex_call"
)

func empty() *model.CallGraph {
	return &model.CallGraph{
		Type:                "CallGraph",
		Relationships:       []model.CallRelationship{},
		CallDetails:         []model.CallDetail{},
		Functions:           []string{},
		Classes:             []string{},
		FunctionDefinitions: []model.FunctionDefinition{},
		CallPatterns: model.CallPatterns{
			MostCalledFunctions:  []model.RankedName{},
			MostCallingFunctions: []model.RankedName{},
			RecursiveFunctions:   []string{},
			IsolatedFunctions:    []string{},
			UncalledFunctions:    []string{},
			CallDepth:            map[string]int{},
		},
	}
}

// Failed returns the failure marker for a file whose call graph could not
// be built.
func Failed(err error) *model.CallGraph {
	g := empty()
	g.ExtractionStatus = model.StatusFailed
	g.Error = err.Error()
	return g
}

type frame struct {
	id    syntax.NodeID
	fn    string
	class string
}

// builder accumulates edges in first-seen order.
type builder struct {
	t       *syntax.Tree
	g       *model.CallGraph
	callers []string
	callees map[string][]string
	seen    map[string]map[string]struct{}
	counts  map[string]int
	defined map[string]struct{}
	classes map[string]struct{}
}

// Extract builds the call graph of t. A source with syntax errors yields
// a failure marker.
func Extract(t *syntax.Tree) *model.CallGraph {
	if err := t.Err(); err != nil {
		return Failed(err)
	}

	b := &builder{
		t:       t,
		g:       empty(),
		callees: map[string][]string{},
		seen:    map[string]map[string]struct{}{},
		counts:  map[string]int{},
		defined: map[string]struct{}{},
		classes: map[string]struct{}{},
	}
	b.walk()
	b.finish()
	return b.g
}

func qualify(class, name string) string {
	if class != "" {
		return class + "." + name
	}
	return name
}

func (b *builder) walk() {
	t := b.t
	stack := []frame{{id: t.Root()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := t.Node(f.id).Children
		fn, class := f.fn, f.class
		var pre []frame

		switch t.Kind(f.id) {
		case "class_definition":
			class = t.Text(t.Field(f.id, "name"))
			b.defineClass(class)
		case "function_definition":
			fn = b.defineFunction(f.id, f.class)
		case "decorated_definition":
			// Decorators of a function are evaluated as part of it.
			def := t.Field(f.id, "definition")
			if t.Kind(def) == "function_definition" {
				qn := qualify(f.class, t.Text(t.Field(def, "name")))
				for _, d := range t.Decorators(def) {
					pre = append(pre, frame{id: d, fn: qn, class: f.class})
				}
				pre = append(pre, frame{id: def, fn: f.fn, class: f.class})
				children = nil
			}
		case "call":
			if f.fn != "" {
				b.call(f.id, f.fn, f.class)
			}
		}

		for _, c := range children {
			pre = append(pre, frame{id: c, fn: fn, class: class})
		}
		for i := len(pre) - 1; i >= 0; i-- {
			stack = append(stack, pre[i])
		}
	}
}

func (b *builder) defineClass(name string) {
	if _, ok := b.classes[name]; ok {
		return
	}
	b.classes[name] = struct{}{}
	b.g.Classes = append(b.g.Classes, name)
}

func (b *builder) defineFunction(def syntax.NodeID, class string) string {
	t := b.t
	name := t.Text(t.Field(def, "name"))
	qn := qualify(class, name)
	if _, ok := b.defined[qn]; ok {
		return qn
	}
	b.defined[qn] = struct{}{}
	params := []string{}
	for _, p := range t.Params(def) {
		if p.Kind == syntax.PositionalOrKeyword {
			params = append(params, p.Name)
		}
	}
	b.g.Functions = append(b.g.Functions, qn)
	b.g.FunctionDefinitions = append(b.g.FunctionDefinitions, model.FunctionDefinition{
		Name:          name,
		QualifiedName: qn,
		Class:         class,
		Line:          t.Line(def),
		Parameters:    params,
		IsAsync:       t.HasToken(def, "async"),
	})
	return qn
}

func (b *builder) call(call syntax.NodeID, caller, class string) {
	t := b.t
	name, typ, receiver := callee(t, t.Field(call, "function"))
	if name == "" {
		return
	}

	argc, kw := arguments(t, t.Field(call, "arguments"))
	b.g.CallDetails = append(b.g.CallDetails, model.CallDetail{
		Caller:         caller,
		Callee:         name,
		CalleeType:     typ,
		Receiver:       receiver,
		Line:           t.Line(call),
		ArgumentCount:  argc,
		HasKeywordArgs: kw,
		Context:        class,
	})

	if _, ok := b.seen[caller]; !ok {
		b.seen[caller] = map[string]struct{}{}
		b.callers = append(b.callers, caller)
	}
	b.counts[caller]++
	if _, ok := b.seen[caller][name]; !ok {
		b.seen[caller][name] = struct{}{}
		b.callees[caller] = append(b.callees[caller], name)
	}
}

// callee classifies the target of a call.
func callee(t *syntax.Tree, fn syntax.NodeID) (name, typ, receiver string) {
	fn = t.Unparen(fn)
	switch t.Kind(fn) {
	case "identifier":
		return t.Text(fn), CalleeFunction, ""
	case "attribute":
		attr := t.Text(t.Field(fn, "attribute"))
		obj := t.Unparen(t.Field(fn, "object"))
		if t.Kind(obj) == "identifier" {
			return attr, CalleeMethod, t.Text(obj)
		}
		return attr, CalleeAttributeCall, ""
	case "call":
		return complexCall, CalleeChainedCall, ""
	}
	return "", "", ""
}

// arguments counts positional arguments and reports keyword arguments.
func arguments(t *syntax.Tree, args syntax.NodeID) (int, bool) {
	switch t.Kind(args) {
	case "argument_list":
	case "generator_expression":
		return 1, false
	default:
		return 0, false
	}
	n, kw := 0, false
	for _, a := range t.NamedChildren(args) {
		switch t.Kind(a) {
		case "keyword_argument", "dictionary_splat":
			kw = true
		default:
			n++
		}
	}
	return n, kw
}

func (b *builder) finish() {
	g := b.g
	for _, caller := range b.callers {
		callees := b.callees[caller]
		g.Relationships = append(g.Relationships, model.CallRelationship{
			Type:          "FunctionCall",
			Caller:        caller,
			Callees:       callees,
			CallCount:     b.counts[caller],
			UniqueCallees: len(callees),
		})
		g.TotalRelationships += len(callees)
	}
	g.CallPatterns = b.patterns()
	g.ExtractionStatus = model.StatusSuccess
}
