package dataflow

import (
	"maps"
	"slices"
	"sort"

	"github.com/phobologic/pyjsonld/internal/model"
)

// complexThreshold is the dependency count above which a variable is
// reported as a complex dependency.
const complexThreshold = 2

func (a *analyzer) patterns() model.FlowPatterns {
	p := empty().FlowPatterns

	for _, fn := range a.functions {
		outputs := []*model.ValueSource{}
		for _, f := range a.df.Flows {
			if f.Function == fn && f.FlowType == model.FlowReturn {
				outputs = append(outputs, f.Source)
			}
		}
		p.InputOutputFunctions[fn] = model.IOSummary{
			Inputs:      a.params[fn],
			Outputs:     outputs,
			InputCount:  len(a.params[fn]),
			OutputCount: len(outputs),
		}

		var transformed []string
		for name, info := range a.df.FunctionVariables[fn] {
			if info.Type == "assignment" && info.Source != nil && info.Source.Type == SourceCall {
				transformed = append(transformed, name)
			}
		}
		if len(transformed) > 0 {
			sort.Strings(transformed)
			p.DataTransformers = append(p.DataTransformers, model.Transformer{
				Function:            fn,
				Variables:           transformed,
				TransformationCount: len(transformed),
			})
		}
	}

	for _, fn := range slices.Sorted(maps.Keys(a.df.DataDependencies)) {
		deps := a.df.DataDependencies[fn]
		for _, name := range slices.Sorted(maps.Keys(deps)) {
			if len(deps[name]) > complexThreshold {
				p.ComplexDependencies = append(p.ComplexDependencies, model.ComplexDependency{
					Function:        fn,
					Variable:        name,
					Dependencies:    deps[name],
					DependencyCount: len(deps[name]),
				})
			}
		}
	}

	for _, f := range a.df.Flows {
		if f.Variable == "" {
			continue
		}
		vars, ok := p.VariableLifecycles[f.Function]
		if !ok {
			vars = map[string]model.Lifecycle{}
			p.VariableLifecycles[f.Function] = vars
		}
		lc, ok := vars[f.Variable]
		if !ok {
			lc = model.Lifecycle{FirstLine: f.Line, LastLine: f.Line}
		}
		lc.FirstLine = min(lc.FirstLine, f.Line)
		lc.LastLine = max(lc.LastLine, f.Line)
		lc.Writes++
		if !slices.Contains(lc.Kinds, f.FlowType) {
			lc.Kinds = append(lc.Kinds, f.FlowType)
		}
		vars[f.Variable] = lc
	}
	return p
}
