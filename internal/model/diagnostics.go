package model

import "encoding/json"

// Availability is the probed capability of an external checker.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
	Disabled    Availability = "disabled"
)

// Diagnostic is a normalized type or security finding.
type Diagnostic struct {
	Tool       string `json:"tool"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Rule       string `json:"rule,omitempty"`
	CWE        string `json:"cwe,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	TestName   string `json:"testName,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
	MoreInfo   string `json:"moreInfo,omitempty"`
}

// ToolResult is the outcome of one checker for one file. Error is set when
// the tool ran but failed or timed out.
type ToolResult struct {
	Tool         string          `json:"tool"`
	Version      string          `json:"version,omitempty"`
	Diagnostics  []Diagnostic    `json:"diagnostics"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	ReturnCode   *int            `json:"returnCode,omitempty"`
	Metrics      json.RawMessage `json:"metrics,omitempty"`
	SkippedTests []string        `json:"skippedTests,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// TypeSummary aggregates the type checkers of a File.
type TypeSummary struct {
	TotalErrors   int      `json:"totalErrors"`
	TotalWarnings int      `json:"totalWarnings"`
	FilesAnalyzed int      `json:"filesAnalyzed"`
	ToolsUsed     []string `json:"toolsUsed"`
	Coverage      string   `json:"coverage"`
}

// TypeAnalysis is the type-checking side channel of a File. A nil tool
// field means the tool was unavailable or disabled; see Availability.
type TypeAnalysis struct {
	Type         string                  `json:"@type"`
	Pyright      *ToolResult             `json:"pyright"`
	Mypy         *ToolResult             `json:"mypy"`
	Availability map[string]Availability `json:"availability"`
	Summary      TypeSummary             `json:"summary"`
}

// SecuritySummary aggregates the security scanners of a File.
type SecuritySummary struct {
	TotalVulnerabilities int            `json:"totalVulnerabilities"`
	SeverityBreakdown    map[string]int `json:"severityBreakdown"`
	ToolsUsed            []string       `json:"toolsUsed"`
	RiskLevel            string         `json:"riskLevel"`
}

// SecurityAnalysis is the security side channel of a File.
type SecurityAnalysis struct {
	Type         string                  `json:"@type"`
	Bandit       *ToolResult             `json:"bandit"`
	CodeQL       *ToolResult             `json:"codeql"`
	Availability map[string]Availability `json:"availability"`
	Summary      SecuritySummary         `json:"summary"`
}
