// Package model defines the JSON-LD document produced by pyjsonld.
//
// Every record is built once per analysis run, bottom-up (Function before
// File, File before Module), and is not mutated after it has been handed
// to the next stage.
package model

import "strings"

const (
	// Context is the JSON-LD vocabulary used for every document.
	Context = "https://schema.org"
	// Language is the fixed programmingLanguage of every file.
	Language = "Python"
)

// Status reports whether an extractor produced its payload.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Metadata describes the analyzed package. It is supplied by a metadata
// provider and flattened into the top-level Document.
type Metadata struct {
	Name           string            `json:"name"`
	Version        string            `json:"version,omitempty"`
	Description    string            `json:"description,omitempty"`
	License        string            `json:"license,omitempty"`
	Authors        []string          `json:"author,omitempty"`
	Keywords       []string          `json:"keywords,omitempty"`
	CodeRepository string            `json:"codeRepository,omitempty"`
	URLs           map[string]string `json:"urls,omitempty"`
}

// Document is the complete analysis of one package.
type Document struct {
	Context string `json:"@context"`
	Type    string `json:"@type"`
	ID      string `json:"@id,omitempty"`
	Metadata
	ProgrammingLanguage string       `json:"programmingLanguage"`
	HasPart             []Module     `json:"hasPart"`
	Dependencies        []Dependency `json:"dependencies"`
}

// Module groups the files of one directory. The package root maps to the
// empty name.
type Module struct {
	Type    string `json:"@type"`
	Name    string `json:"name"`
	HasPart []File `json:"hasPart"`
}

// File is the merged record of one source file.
type File struct {
	Type                string  `json:"@type"`
	Name                string  `json:"name"`
	ProgrammingLanguage string  `json:"programmingLanguage"`
	Text                string  `json:"text"`
	HasPart             []Entry `json:"hasPart"`
	// ExtractionStatus describes HasPart: failed means the primary parse
	// was rejected and HasPart is empty by degradation, not by content.
	ExtractionStatus Status    `json:"extractionStatus"`
	Error            string    `json:"error,omitempty"`
	Rank             float64   `json:"rank"`
	Enhanced         *Enhanced `json:"enhanced,omitempty"`
}

// Group returns the module name the file belongs to.
func (f *File) Group() string {
	i := strings.LastIndex(f.Name, "/")
	if i < 0 {
		return ""
	}
	return f.Name[:i]
}

// Enhanced bundles the independently failable side channels of a File.
// A nil field means the analyzer was disabled for the run.
type Enhanced struct {
	ConcreteSyntax   *ConcreteSyntax   `json:"concreteSyntax"`
	ErrorTolerant    *ErrorTolerant    `json:"errorTolerant"`
	TypeAnalysis     *TypeAnalysis     `json:"typeAnalysis"`
	SecurityAnalysis *SecurityAnalysis `json:"securityAnalysis"`
	CallGraph        *CallGraph        `json:"callGraph"`
	DataFlow         *DataFlow         `json:"dataFlow"`
}

// Entry is a top-level member of a File: a *Class or a *Function.
type Entry interface {
	EntryName() string
}

// Function describes a function or method found by the structural pass.
type Function struct {
	Type        string    `json:"@type"`
	Name        string    `json:"name"`
	Text        string    `json:"text"`
	Description string    `json:"description"`
	Decorators  []string  `json:"decorators"`
	Calls       []string  `json:"calls"`
	IsAsync     bool      `json:"isAsync"`
	InClass     string    `json:"inClass,omitempty"`
	StartLine   int       `json:"startLine"`
	EndLine     int       `json:"endLine"`
	Summary     string    `json:"summary,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

func (f *Function) EntryName() string { return f.Name }

// QualifiedName returns Class.method for methods and the bare name otherwise.
func (f *Function) QualifiedName() string {
	if f.InClass != "" {
		return f.InClass + "." + f.Name
	}
	return f.Name
}

// Class describes a class and its direct methods.
type Class struct {
	Type        string      `json:"@type"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	StartLine   int         `json:"startLine"`
	EndLine     int         `json:"endLine"`
	HasPart     []*Function `json:"hasPart"`
}

func (c *Class) EntryName() string { return c.Name }

// Dependency is an import edge between two files of the package:
// Source imports Symbols from Target.
type Dependency struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Symbols []string `json:"symbols"`
}
