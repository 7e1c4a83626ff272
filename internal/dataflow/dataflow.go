// Package dataflow records how values move through the functions of a
// Python file: parameter inputs, assignments, augmented assignments,
// returns and yields, each with a classified value source.
//
// Statements outside any function are recorded under model.ModuleScope.
// Dependencies are one level deep; they are not transitively closed.
package dataflow

import (
	"slices"

	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// Flow destinations for function outputs.
const (
	DestFunctionOutput  = "function_output"
	DestGeneratorOutput = "generator_output"
)

func empty() *model.DataFlow {
	return &model.DataFlow{
		Type:              "DataFlowAnalysis",
		Flows:             []model.DataFlowEdge{},
		FunctionVariables: map[string]map[string]model.VariableInfo{},
		DataDependencies:  map[string]map[string][]string{},
		FlowPatterns: model.FlowPatterns{
			InputOutputFunctions: map[string]model.IOSummary{},
			DataTransformers:     []model.Transformer{},
			ComplexDependencies:  []model.ComplexDependency{},
			VariableLifecycles:   map[string]map[string]model.Lifecycle{},
		},
	}
}

// Failed returns the failure marker for a file whose data flow could not
// be analyzed.
func Failed(err error) *model.DataFlow {
	df := empty()
	df.ExtractionStatus = model.StatusFailed
	df.Error = err.Error()
	return df
}

type frame struct {
	id    syntax.NodeID
	fn    string
	class string
}

type analyzer struct {
	t         *syntax.Tree
	df        *model.DataFlow
	functions []string
	defined   map[string]struct{}
	params    map[string][]string
	depSeen   map[string]map[string]map[string]struct{}
}

// Extract analyzes the data flow of t. A source with syntax errors yields
// a failure marker.
func Extract(t *syntax.Tree) *model.DataFlow {
	if err := t.Err(); err != nil {
		return Failed(err)
	}
	a := &analyzer{
		t:       t,
		df:      empty(),
		defined: map[string]struct{}{},
		params:  map[string][]string{},
		depSeen: map[string]map[string]map[string]struct{}{},
	}
	a.walk()
	a.df.FlowPatterns = a.patterns()
	a.df.TotalFlows = len(a.df.Flows)
	a.df.ExtractionStatus = model.StatusSuccess
	return a.df
}

func scope(fn string) string {
	if fn == "" {
		return model.ModuleScope
	}
	return fn
}

func (a *analyzer) walk() {
	t := a.t
	stack := []frame{{id: t.Root()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn, class := f.fn, f.class

		switch t.Kind(f.id) {
		case "class_definition":
			class = t.Text(t.Field(f.id, "name"))
		case "function_definition":
			fn = t.Text(t.Field(f.id, "name"))
			if f.class != "" {
				fn = f.class + "." + fn
			}
			a.enter(f.id, fn)
		case "assignment":
			if t.Kind(t.Parent(f.id)) != "assignment" {
				a.assignment(f.id, scope(f.fn))
			}
		case "augmented_assignment":
			a.augmented(f.id, scope(f.fn))
		case "return_statement":
			a.output(f.id, scope(f.fn), model.FlowReturn, DestFunctionOutput)
		case "yield":
			if !t.HasToken(f.id, "from") {
				a.output(f.id, scope(f.fn), model.FlowYield, DestGeneratorOutput)
			}
		}

		children := t.Node(f.id).Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], fn: fn, class: class})
		}
	}
}

func (a *analyzer) variables(fn string) map[string]model.VariableInfo {
	vars, ok := a.df.FunctionVariables[fn]
	if !ok {
		vars = map[string]model.VariableInfo{}
		a.df.FunctionVariables[fn] = vars
	}
	return vars
}

func (a *analyzer) addDependency(fn, variable, dep string) {
	seen, ok := a.depSeen[fn]
	if !ok {
		seen = map[string]map[string]struct{}{}
		a.depSeen[fn] = seen
		a.df.DataDependencies[fn] = map[string][]string{}
	}
	if _, ok := seen[variable]; !ok {
		seen[variable] = map[string]struct{}{}
	}
	if _, ok := seen[variable][dep]; ok {
		return
	}
	seen[variable][dep] = struct{}{}
	a.df.DataDependencies[fn][variable] = append(a.df.DataDependencies[fn][variable], dep)
}

// enter records the positional-or-keyword parameters of def as inputs. A
// redefined name, such as a property setter, adds only new inputs.
func (a *analyzer) enter(def syntax.NodeID, fn string) {
	t := a.t
	if _, ok := a.defined[fn]; !ok {
		a.defined[fn] = struct{}{}
		a.functions = append(a.functions, fn)
		a.params[fn] = []string{}
	}
	line := t.Line(def)
	for _, p := range t.Params(def) {
		if p.Kind != syntax.PositionalOrKeyword {
			continue
		}
		a.variables(fn)[p.Name] = model.VariableInfo{
			Type:     "parameter",
			Source:   &model.ValueSource{Type: SourceInput},
			Line:     line,
			DataType: annotationName(t, p.Annotation),
		}
		if !slices.Contains(a.params[fn], p.Name) {
			a.params[fn] = append(a.params[fn], p.Name)
		}
		a.df.Flows = append(a.df.Flows, model.DataFlowEdge{
			Type:        "DataFlow",
			Function:    fn,
			Variable:    p.Name,
			FlowType:    model.FlowParameter,
			Source:      &model.ValueSource{Type: SourceParameter},
			Destination: p.Name,
			Line:        line,
		})
	}
}

// assignment records each simple-name target of a possibly chained
// assignment. Annotated assignments are not recorded.
func (a *analyzer) assignment(id syntax.NodeID, fn string) {
	t := a.t
	var targets []syntax.NodeID
	cur := id
	value := syntax.NoNode
	for value == syntax.NoNode {
		if t.Field(cur, "type") != syntax.NoNode {
			return
		}
		targets = append(targets, t.Field(cur, "left"))
		right := t.Field(cur, "right")
		switch t.Kind(right) {
		case "":
			return
		case "assignment":
			cur = right
		default:
			value = right
		}
	}

	src := classify(t, value, 0)
	var deps []string
	switch src.Type {
	case SourceVariable:
		deps = append(deps, src.Name)
	case SourceCall:
		deps = append(deps, "call:"+src.Function)
	}

	line := t.Line(id)
	for _, target := range targets {
		if t.Kind(target) != "identifier" {
			continue
		}
		name := t.Text(target)
		a.variables(fn)[name] = model.VariableInfo{Type: "assignment", Source: src, Line: line}
		a.df.Flows = append(a.df.Flows, model.DataFlowEdge{
			Type:         "DataFlow",
			Function:     fn,
			Variable:     name,
			FlowType:     model.FlowAssignment,
			Source:       src,
			Destination:  name,
			Dependencies: deps,
			Line:         line,
		})
		for _, d := range deps {
			a.addDependency(fn, name, d)
		}
	}
}

// augmented records x op= y; x depends on itself and on y when y is a
// variable.
func (a *analyzer) augmented(id syntax.NodeID, fn string) {
	t := a.t
	left := t.Field(id, "left")
	if t.Kind(left) != "identifier" {
		return
	}
	name := t.Text(left)
	src := classify(t, t.Field(id, "right"), 0)
	deps := []string{name}
	if src.Type == SourceVariable && src.Name != name {
		deps = append(deps, src.Name)
	}
	a.df.Flows = append(a.df.Flows, model.DataFlowEdge{
		Type:         "DataFlow",
		Function:     fn,
		Variable:     name,
		FlowType:     model.FlowAugmentedAssignment,
		Operation:    syntax.OperatorName(t.Text(t.Field(id, "operator"))),
		Source:       src,
		Destination:  name,
		Dependencies: deps,
		Line:         t.Line(id),
	})
	for _, d := range deps {
		a.addDependency(fn, name, d)
	}
}

// output records a return or yield that carries a value.
func (a *analyzer) output(id syntax.NodeID, fn, kind, dest string) {
	t := a.t
	values := t.NamedChildren(id)
	if len(values) == 0 {
		return
	}
	a.df.Flows = append(a.df.Flows, model.DataFlowEdge{
		Type:        "DataFlow",
		Function:    fn,
		FlowType:    kind,
		Source:      classify(t, values[0], 0),
		Destination: dest,
		Line:        t.Line(id),
	})
}
