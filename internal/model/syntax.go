package model

// Parameter is one formal parameter recovered from the concrete syntax.
type Parameter struct {
	Name       string  `json:"name"`
	Annotation *string `json:"annotation"`
	Default    *string `json:"default"`
	// Kind is one of positional_only, positional_or_keyword, var_positional,
	// keyword_only, var_keyword.
	Kind string `json:"kind"`
}

// SyntaxFunction is a function or method as seen by the concrete-syntax pass.
type SyntaxFunction struct {
	Type          string      `json:"@type"`
	Name          string      `json:"name"`
	QualifiedName string      `json:"qualifiedName"`
	Parameters    []Parameter `json:"parameters"`
	ReturnType    *string     `json:"returnType"`
	TypeComments  []string    `json:"typeComments"`
	Decorators    []string    `json:"decorators"`
	Docstring     *string     `json:"docstring"`
	IsAsync       bool        `json:"isAsync"`
	InClass       string      `json:"inClass,omitempty"`
	Text          string      `json:"text,omitempty"`
	Line          int         `json:"line"`
}

// SyntaxClass is a class as seen by the concrete-syntax pass.
type SyntaxClass struct {
	Type       string           `json:"@type"`
	Name       string           `json:"name"`
	Bases      []string         `json:"bases"`
	Keywords   []string         `json:"keywords"`
	Decorators []string         `json:"decorators"`
	Methods    []SyntaxFunction `json:"methods"`
	Docstring  *string          `json:"docstring"`
	Text       string           `json:"text"`
	Line       int              `json:"line"`
}

// ImportName is one name bound by a from-import.
type ImportName struct {
	Name  string  `json:"name"`
	Alias *string `json:"alias"`
}

// Import is an import or from-import statement. Module carries leading
// dots for relative imports.
type Import struct {
	Type   string       `json:"@type"`
	Module string       `json:"module"`
	Alias  *string      `json:"alias,omitempty"`
	Names  []ImportName `json:"names,omitempty"`
	Level  int          `json:"level,omitempty"`
	Text   string       `json:"text"`
	Line   int          `json:"line"`
}

// ConcreteSyntax is the lexical side channel of a File.
type ConcreteSyntax struct {
	Type             string            `json:"@type"`
	Functions        []SyntaxFunction  `json:"functions"`
	Classes          []SyntaxClass     `json:"classes"`
	Imports          []Import          `json:"imports"`
	Packages         []string          `json:"packages"`
	TypeAnnotations  map[string]string `json:"typeAnnotations"`
	ExtractionStatus Status            `json:"extractionStatus"`
	ParseError       string            `json:"parseError,omitempty"`
	ErrorType        string            `json:"errorType,omitempty"`
}

// RecoveredFunction is a function found by the error-tolerant pass.
type RecoveredFunction struct {
	Type             string `json:"@type"`
	Name             string `json:"name"`
	StartLine        int    `json:"startLine"`
	EndLine          int    `json:"endLine"`
	IsAsync          bool   `json:"isAsync"`
	InClass          string `json:"inClass,omitempty"`
	Text             string `json:"text"`
	IsErrorRecovered bool   `json:"isErrorRecovered"`
}

// RecoveredClass is a class found by the error-tolerant pass.
type RecoveredClass struct {
	Type             string              `json:"@type"`
	Name             string              `json:"name"`
	StartLine        int                 `json:"startLine"`
	EndLine          int                 `json:"endLine"`
	Methods          []RecoveredFunction `json:"methods"`
	IsErrorRecovered bool                `json:"isErrorRecovered"`
}

// ErrorTolerant is the error-recovering side channel of a File.
type ErrorTolerant struct {
	Type             string              `json:"@type"`
	Functions        []RecoveredFunction `json:"functions"`
	Classes          []RecoveredClass    `json:"classes"`
	Imports          []Import            `json:"imports"`
	ParseErrors      []string            `json:"parseErrors"`
	IsPartialParse   bool                `json:"isPartialParse"`
	ExtractionStatus Status              `json:"extractionStatus"`
	Error            string              `json:"error,omitempty"`
}
