// Package assemble groups merged files into modules and wraps them in the
// final document.
package assemble

import (
	"github.com/google/uuid"

	"github.com/phobologic/pyjsonld/internal/model"
)

// Modules groups files by directory. Modules appear in the order their
// first file appears; files keep their input order within a module.
func Modules(files []model.File) []model.Module {
	modules := []model.Module{}
	pos := make(map[string]int)
	for _, f := range files {
		group := f.Group()
		i, ok := pos[group]
		if !ok {
			i = len(modules)
			pos[group] = i
			modules = append(modules, model.Module{Type: "Module", Name: group, HasPart: []model.File{}})
		}
		modules[i].HasPart = append(modules[i].HasPart, f)
	}
	return modules
}

// Document builds the package document. A missing name in meta falls back
// to fallbackName.
func Document(meta model.Metadata, fallbackName string, modules []model.Module, deps []model.Dependency) *model.Document {
	if meta.Name == "" {
		meta.Name = fallbackName
	}
	if deps == nil {
		deps = []model.Dependency{}
	}
	if modules == nil {
		modules = []model.Module{}
	}
	return &model.Document{
		Context:             model.Context,
		Type:                "SoftwareSourceCode",
		ID:                  "urn:uuid:" + uuid.NewString(),
		Metadata:            meta,
		ProgrammingLanguage: model.Language,
		HasPart:             modules,
		Dependencies:        deps,
	}
}

// FileCount returns the number of files across modules.
func FileCount(modules []model.Module) int {
	n := 0
	for _, m := range modules {
		n += len(m.HasPart)
	}
	return n
}
