package cst

import (
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// Imports returns every import statement under root in source order.
// A plain import binding several modules yields one Import per module.
func Imports(t *syntax.Tree, root syntax.NodeID) []model.Import {
	out := []model.Import{}
	t.Walk(root, func(id syntax.NodeID) bool {
		switch t.Kind(id) {
		case "import_statement":
			out = append(out, plainImports(t, id)...)
			return false
		case "import_from_statement", "future_import_statement":
			out = append(out, fromImport(t, id))
			return false
		}
		return true
	})
	return out
}

func plainImports(t *syntax.Tree, stmt syntax.NodeID) []model.Import {
	text := t.Text(stmt)
	var out []model.Import
	for _, n := range t.Fields(stmt, "name") {
		imp := model.Import{Type: "Import", Text: text, Line: t.Line(stmt)}
		switch t.Kind(n) {
		case "aliased_import":
			imp.Module = t.Text(t.Field(n, "name"))
			alias := t.Text(t.Field(n, "alias"))
			imp.Alias = &alias
		default:
			imp.Module = t.Text(n)
		}
		out = append(out, imp)
	}
	return out
}

func fromImport(t *syntax.Tree, stmt syntax.NodeID) model.Import {
	imp := model.Import{
		Type:  "ImportFrom",
		Text:  t.Text(stmt),
		Line:  t.Line(stmt),
		Names: []model.ImportName{},
	}
	if t.Kind(stmt) == "future_import_statement" {
		imp.Module = "__future__"
	} else {
		imp.Module = t.Text(t.Field(stmt, "module_name"))
		imp.Level = len(imp.Module) - len(strings.TrimLeft(imp.Module, "."))
	}

	for _, c := range t.NamedChildren(stmt) {
		if t.Kind(c) == "wildcard_import" {
			imp.Names = append(imp.Names, model.ImportName{Name: "*"})
			return imp
		}
	}
	for _, n := range t.Fields(stmt, "name") {
		switch t.Kind(n) {
		case "aliased_import":
			alias := t.Text(t.Field(n, "alias"))
			imp.Names = append(imp.Names, model.ImportName{Name: t.Text(t.Field(n, "name")), Alias: &alias})
		default:
			imp.Names = append(imp.Names, model.ImportName{Name: t.Text(n)})
		}
	}
	return imp
}

// TopLevelPackage returns the first component of an absolute module path
// and "" for relative imports.
func TopLevelPackage(module string) string {
	if module == "" || strings.HasPrefix(module, ".") {
		return ""
	}
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}

func packages(imports []model.Import) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, imp := range imports {
		p := TopLevelPackage(imp.Module)
		if p == "" || p == "__future__" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
