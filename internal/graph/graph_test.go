package graph

import (
	"math"
	"testing"

	"github.com/phobologic/pyjsonld/internal/model"
)

func from(module string, level int, names ...string) model.Import {
	imp := model.Import{Type: "ImportFrom", Module: module, Level: level}
	for _, n := range names {
		imp.Names = append(imp.Names, model.ImportName{Name: n})
	}
	return imp
}

func plain(module string) model.Import {
	return model.Import{Type: "Import", Module: module}
}

func TestModuleName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path  string
		mod   string
		isPkg bool
	}{
		{"core.py", "core", false},
		{"pkg/core.py", "pkg.core", false},
		{"pkg/__init__.py", "pkg", true},
		{"__init__.py", "", true},
	}
	for _, c := range cases {
		mod, isPkg := ModuleName(c.path)
		if mod != c.mod || isPkg != c.isPkg {
			t.Errorf("ModuleName(%q) = %q, %v; want %q, %v", c.path, mod, isPkg, c.mod, c.isPkg)
		}
	}
}

func TestBuildGraphAbsoluteAndRelative(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{Path: "pkg/__init__.py", Imports: []model.Import{from(".core", 1, "helper")}},
		{Path: "pkg/core.py", Imports: []model.Import{
			from(".", 1, "util"),
			plain("os"),
			from("pkg.sub.deep", 0, "thing"),
		}},
		{Path: "pkg/util.py", Imports: []model.Import{plain("pkg.core")}},
		{Path: "pkg/sub/deep.py", Imports: []model.Import{from("..util", 2, "*")}},
	}

	deps := BuildGraph(nodes, "")
	want := []model.Dependency{
		{Source: "pkg/__init__.py", Target: "pkg/core.py", Symbols: []string{"helper"}},
		{Source: "pkg/core.py", Target: "pkg/sub/deep.py", Symbols: []string{"thing"}},
		{Source: "pkg/core.py", Target: "pkg/util.py", Symbols: []string{"util"}},
		{Source: "pkg/sub/deep.py", Target: "pkg/util.py", Symbols: []string{"*"}},
		{Source: "pkg/util.py", Target: "pkg/core.py", Symbols: []string{"pkg.core"}},
	}
	if len(deps) != len(want) {
		t.Fatalf("expected %d deps, got %d: %+v", len(want), len(deps), deps)
	}
	for i := range want {
		if deps[i].Source != want[i].Source || deps[i].Target != want[i].Target {
			t.Errorf("dep %d: got %s -> %s, want %s -> %s", i, deps[i].Source, deps[i].Target, want[i].Source, want[i].Target)
		}
		if len(deps[i].Symbols) != 1 || deps[i].Symbols[0] != want[i].Symbols[0] {
			t.Errorf("dep %d symbols: %v", i, deps[i].Symbols)
		}
	}
}

func TestBuildGraphPackageName(t *testing.T) {
	t.Parallel()

	// The root is the package itself: files import each other by the
	// package name.
	nodes := []Node{
		{Path: "__init__.py"},
		{Path: "core.py", Imports: []model.Import{from("mylib", 0, "version"), from("mylib.util", 0, "fmt")}},
		{Path: "util.py"},
	}

	deps := BuildGraph(nodes, "mylib")
	if len(deps) != 2 {
		t.Fatalf("expected 2 deps, got %+v", deps)
	}
	if deps[0].Target != "__init__.py" || deps[1].Target != "util.py" {
		t.Errorf("targets: %+v", deps)
	}
}

func TestBuildGraphNoSelfEdgeOrExternal(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{Path: "a.py", Imports: []model.Import{plain("a"), plain("requests"), from("...too.far", 3, "x")}},
	}
	if deps := BuildGraph(nodes, ""); len(deps) != 0 {
		t.Errorf("expected no deps, got %+v", deps)
	}
}

func TestRankUniform(t *testing.T) {
	t.Parallel()

	ranks := Rank([]string{"a.py", "b.py"}, nil)
	if ranks["a.py"] != 0.5 || ranks["b.py"] != 0.5 {
		t.Errorf("ranks: %v", ranks)
	}
	if len(Rank(nil, nil)) != 0 {
		t.Error("expected empty ranks")
	}
}

func TestRankImportedFileWins(t *testing.T) {
	t.Parallel()

	paths := []string{"a.py", "b.py", "c.py"}
	deps := []model.Dependency{
		{Source: "a.py", Target: "c.py", Symbols: []string{"x"}},
		{Source: "b.py", Target: "c.py", Symbols: []string{"y", "z"}},
	}
	ranks := Rank(paths, deps)

	if ranks["c.py"] <= ranks["a.py"] || ranks["c.py"] <= ranks["b.py"] {
		t.Errorf("expected c.py to rank highest: %v", ranks)
	}
	var total float64
	for _, r := range ranks {
		total += r
	}
	if math.Abs(total-1.0) > 1e-3 {
		t.Errorf("ranks should sum to ~1, got %f", total)
	}
}
