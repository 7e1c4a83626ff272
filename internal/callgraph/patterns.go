package callgraph

import (
	"sort"
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
)

func (b *builder) patterns() model.CallPatterns {
	p := empty().CallPatterns

	incoming := map[string]int{}
	for _, d := range b.g.CallDetails {
		incoming[d.Callee]++
	}
	p.MostCalledFunctions = rank(incoming)

	outgoing := map[string]int{}
	for _, caller := range b.callers {
		outgoing[caller] = len(b.callees[caller])
	}
	p.MostCallingFunctions = rank(outgoing)

	for _, caller := range b.callers {
		if b.callsItself(caller) {
			p.RecursiveFunctions = append(p.RecursiveFunctions, caller)
		}
	}

	for _, fn := range b.g.Functions {
		called := incoming[fn] > 0 || incoming[bare(fn)] > 0
		if !called {
			p.UncalledFunctions = append(p.UncalledFunctions, fn)
			if len(b.callees[fn]) == 0 {
				p.IsolatedFunctions = append(p.IsolatedFunctions, fn)
			}
		}
	}

	resolve := b.resolver()
	for _, caller := range b.callers {
		budget := maxSteps
		p.CallDepth[caller] = b.depth(caller, resolve, map[string]bool{caller: true}, 1, &budget)
	}
	return p
}

// rank orders counts descending with ties broken by name and keeps TopN.
func rank(counts map[string]int) []model.RankedName {
	out := make([]model.RankedName, 0, len(counts))
	for name, n := range counts {
		out = append(out, model.RankedName{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

func bare(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func (b *builder) callsItself(caller string) bool {
	seen := b.seen[caller]
	if _, ok := seen[caller]; ok {
		return true
	}
	_, ok := seen[bare(caller)]
	return ok
}

// resolver maps callee names to the functions defined in the file that
// they may refer to, by qualified or bare name.
func (b *builder) resolver() map[string][]string {
	out := map[string][]string{}
	for _, fn := range b.g.Functions {
		out[fn] = append(out[fn], fn)
		if short := bare(fn); short != fn {
			out[short] = append(out[short], fn)
		}
	}
	return out
}

// maxSteps bounds the chain search of a single caller.
const maxSteps = 10_000

// depth returns the length of the longest simple call chain starting at
// fn, counting fn itself. The search stops at MaxDepth or when the step
// budget runs out.
func (b *builder) depth(fn string, resolve map[string][]string, onPath map[string]bool, level int, budget *int) int {
	best := level
	if level >= MaxDepth || *budget <= 0 {
		return best
	}
	*budget--
	for _, callee := range b.callees[fn] {
		for _, target := range resolve[callee] {
			if onPath[target] {
				continue
			}
			onPath[target] = true
			if d := b.depth(target, resolve, onPath, level+1, budget); d > best {
				best = d
			}
			delete(onPath, target)
		}
	}
	return best
}
