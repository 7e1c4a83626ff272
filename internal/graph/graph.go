// Package graph resolves intra-package imports into file dependencies and
// ranks files with PageRank.
package graph

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
)

// Node is one file of the package together with its import statements.
type Node struct {
	Path    string // slash-separated, relative to the package root
	Imports []model.Import
}

// ModuleName returns the dotted module path of a file and whether the file
// is a package initializer. The root __init__.py maps to "".
func ModuleName(path string) (string, bool) {
	parts := strings.Split(strings.TrimSuffix(path, ".py"), "/")
	isPkg := parts[len(parts)-1] == "__init__"
	if isPkg {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "."), isPkg
}

// index maps dotted module names to file paths. When the package root is
// itself an importable package, every module is also indexed under the
// package name.
type index map[string]string

func newIndex(nodes []Node, pkgName string) index {
	idx := make(index, len(nodes)*2)
	for _, n := range nodes {
		mod, _ := ModuleName(n.Path)
		if mod != "" {
			idx[mod] = n.Path
		}
		if pkgName != "" {
			idx[join(pkgName, mod)] = n.Path
		}
	}
	return idx
}

// longest returns the file of the longest indexed prefix of mod.
func (idx index) longest(mod string) (string, bool) {
	for mod != "" {
		if p, ok := idx[mod]; ok {
			return p, true
		}
		i := strings.LastIndexByte(mod, '.')
		if i < 0 {
			break
		}
		mod = mod[:i]
	}
	return "", false
}

// BuildGraph creates file -> file edges from the import statements of
// nodes. pkgName is the importable name of the package root, or "" when
// the root is a plain directory. Imports of modules outside the package
// are ignored.
func BuildGraph(nodes []Node, pkgName string) []model.Dependency {
	idx := newIndex(nodes, pkgName)

	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)
	add := func(src, tgt, sym string) {
		if src == tgt {
			return
		}
		key := edgeKey{src, tgt}
		if !slices.Contains(edgeSymbols[key], sym) {
			edgeSymbols[key] = append(edgeSymbols[key], sym)
		}
	}

	for _, n := range nodes {
		for _, imp := range n.Imports {
			full, ok := absolute(n.Path, imp)
			if !ok {
				continue
			}
			if imp.Type == "Import" {
				if tgt, ok := idx.longest(full); ok {
					add(n.Path, tgt, full)
				}
				continue
			}
			for _, name := range imp.Names {
				if name.Name != "*" {
					if tgt, ok := idx[join(full, name.Name)]; ok {
						add(n.Path, tgt, name.Name)
						continue
					}
				}
				if tgt, ok := idx[full]; ok {
					add(n.Path, tgt, name.Name)
				} else if full == pkgName || (pkgName == "" && full == "") {
					if tgt, ok := rootInit(nodes); ok {
						add(n.Path, tgt, name.Name)
					}
				}
			}
		}
	}

	deps := make([]model.Dependency, 0, len(edgeSymbols))
	for key, syms := range edgeSymbols {
		deps = append(deps, model.Dependency{Source: key.src, Target: key.tgt, Symbols: syms})
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})
	return deps
}

// absolute resolves a possibly relative import against the importing file.
func absolute(path string, imp model.Import) (string, bool) {
	if imp.Level == 0 {
		return imp.Module, imp.Module != ""
	}
	mod, isPkg := ModuleName(path)
	var parts []string
	if mod != "" {
		parts = strings.Split(mod, ".")
	}
	if !isPkg {
		if len(parts) == 0 {
			return "", false
		}
		parts = parts[:len(parts)-1]
	}
	up := imp.Level - 1
	if up > len(parts) {
		return "", false
	}
	parts = parts[:len(parts)-up]
	return join(strings.Join(parts, "."), strings.TrimLeft(imp.Module, ".")), true
}

func rootInit(nodes []Node) (string, bool) {
	for _, n := range nodes {
		if n.Path == "__init__.py" {
			return n.Path, true
		}
	}
	return "", false
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "." + b
}

// Rank runs PageRank over the files at paths, weighting each edge by its
// symbol count. Without edges every file gets the same rank.
func Rank(paths []string, deps []model.Dependency) map[string]float64 {
	ranks := make(map[string]float64, len(paths))
	if len(paths) == 0 {
		return ranks
	}
	if len(deps) == 0 {
		uniform := 1.0 / float64(len(paths))
		for _, p := range paths {
			ranks[p] = uniform
		}
		return ranks
	}

	nodes := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		nodes[p] = struct{}{}
	}
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, d := range deps {
		for range d.Symbols {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
			outDegree[d.Source]++
		}
	}
	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := float64(len(nodes))
	rank := make(map[string]float64, len(nodes))
	for node := range nodes {
		rank[node] = 1.0 / n
	}
	teleport := (1.0 - alpha) / n

	for range maxIter {
		// Rank held by files without imports is spread evenly.
		var dangling float64
		for node := range nodes {
			if outDegree[node] == 0 {
				dangling += rank[node]
			}
		}

		next := make(map[string]float64, len(nodes))
		for node := range nodes {
			next[node] = teleport + alpha*dangling/n
		}
		for src, targets := range outEdges {
			if _, ok := nodes[src]; !ok {
				continue
			}
			share := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				if _, ok := nodes[tgt]; ok {
					next[tgt] += share
				}
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(next[node] - rank[node])
		}
		rank = next
		if diff < tol {
			break
		}
	}
	return rank
}
