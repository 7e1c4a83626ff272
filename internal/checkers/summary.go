package checkers

import (
	"encoding/json"
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
)

// report is the whole-root output of one tool.
type report struct {
	tool       string
	version    string
	byFile     map[string][]model.Diagnostic
	summary    json.RawMessage
	returnCode *int
	metrics    map[string]json.RawMessage
	skipped    []string
	err        string
}

func newReport(tool string) *report {
	return &report{tool: tool, byFile: make(map[string][]model.Diagnostic)}
}

func (r *report) add(d model.Diagnostic) {
	d.Tool = r.tool
	r.byFile[d.File] = append(r.byFile[d.File], d)
}

func (r *report) forFile(rel string) *model.ToolResult {
	diags := append([]model.Diagnostic{}, r.byFile[rel]...)
	return &model.ToolResult{
		Tool:         r.tool,
		Version:      r.version,
		Diagnostics:  diags,
		Summary:      r.summary,
		ReturnCode:   r.returnCode,
		Metrics:      r.metrics[rel],
		SkippedTests: r.skipped,
		Error:        r.err,
	}
}

// Coverage labels.
const (
	CoverageGood    = "GOOD"
	CoveragePartial = "PARTIAL"
)

// Risk levels.
const (
	RiskHigh    = "HIGH"
	RiskMedium  = "MEDIUM"
	RiskLow     = "LOW"
	RiskMinimal = "MINIMAL"
)

const maxGoodWarnings = 10

// used reports whether a tool produced diagnostics that can be trusted.
func used(r *model.ToolResult) bool {
	return r != nil && r.Error == ""
}

func typeSummary(results ...*model.ToolResult) model.TypeSummary {
	s := model.TypeSummary{ToolsUsed: []string{}}
	files := make(map[string]struct{})
	for _, r := range results {
		if !used(r) {
			continue
		}
		s.ToolsUsed = append(s.ToolsUsed, r.Tool)
		for _, d := range r.Diagnostics {
			files[d.File] = struct{}{}
			if d.Severity == "error" {
				s.TotalErrors++
			} else {
				s.TotalWarnings++
			}
		}
	}
	s.FilesAnalyzed = len(files)
	s.Coverage = CoveragePartial
	if len(s.ToolsUsed) > 0 && s.TotalErrors == 0 && s.TotalWarnings <= maxGoodWarnings {
		s.Coverage = CoverageGood
	}
	return s
}

func securitySummary(results ...*model.ToolResult) model.SecuritySummary {
	s := model.SecuritySummary{
		SeverityBreakdown: map[string]int{"high": 0, "medium": 0, "low": 0, "info": 0},
		ToolsUsed:         []string{},
	}
	for _, r := range results {
		if !used(r) {
			continue
		}
		s.ToolsUsed = append(s.ToolsUsed, r.Tool)
		for _, d := range r.Diagnostics {
			sev := strings.ToLower(d.Severity)
			if _, ok := s.SeverityBreakdown[sev]; !ok {
				sev = "info"
			}
			s.SeverityBreakdown[sev]++
			s.TotalVulnerabilities++
		}
	}
	s.RiskLevel = riskLevel(s.SeverityBreakdown)
	return s
}

func riskLevel(counts map[string]int) string {
	switch {
	case counts["high"] > 0:
		return RiskHigh
	case counts["medium"] > 2:
		return RiskMedium
	case counts["low"] > 5:
		return RiskLow
	default:
		return RiskMinimal
	}
}
