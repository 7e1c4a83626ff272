package checkers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phobologic/pyjsonld/internal/model"
)

const codeqlSuite = "python-security-and-quality"

// sarifLog is the subset of SARIF 2.1.0 read from codeql.
type sarifLog struct {
	Runs []struct {
		Results []sarifResult `json:"results"`
	} `json:"runs"`
}

type sarifResult struct {
	RuleID  string `json:"ruleId"`
	Level   string `json:"level"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	Locations []struct {
		PhysicalLocation struct {
			ArtifactLocation struct {
				URI string `json:"uri"`
			} `json:"artifactLocation"`
			Region struct {
				StartLine   int `json:"startLine"`
				StartColumn int `json:"startColumn"`
				Snippet     struct {
					Text string `json:"text"`
				} `json:"snippet"`
			} `json:"region"`
		} `json:"physicalLocation"`
	} `json:"locations"`
}

func (a *Analyzer) codeql(ctx context.Context) (*report, error) {
	tmp, err := os.MkdirTemp("", "codeql-")
	if err != nil {
		return nil, fmt.Errorf("codeql: %w", err)
	}
	defer os.RemoveAll(tmp)

	db := filepath.Join(tmp, "db")
	sarifPath := filepath.Join(tmp, "results.sarif")

	out, err := a.invoke(ctx, a.codeqlTimeout, CodeQL,
		"database", "create", db, "--language=python", "--source-root="+a.root)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("database creation failed: %w", failure(CodeQL, out))
	}

	out, err = a.invoke(ctx, a.codeqlTimeout, CodeQL,
		"database", "analyze", db, "--format=sarif-latest", "--output="+sarifPath, codeqlSuite)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, fmt.Errorf("analysis failed: %w", failure(CodeQL, out))
	}

	data, err := os.ReadFile(sarifPath)
	if err != nil {
		return nil, fmt.Errorf("codeql: reading results: %w", err)
	}
	var log sarifLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("codeql: decoding sarif: %w", err)
	}

	rep := newReport(CodeQL)
	for _, run := range log.Runs {
		for _, res := range run.Results {
			for _, loc := range res.Locations {
				pl := loc.PhysicalLocation
				rep.add(model.Diagnostic{
					File:     a.relPath(pl.ArtifactLocation.URI),
					Line:     pl.Region.StartLine,
					Column:   pl.Region.StartColumn,
					Severity: sarifSeverity(res.Level),
					Message:  res.Message.Text,
					Rule:     res.RuleID,
					Snippet:  pl.Region.Snippet.Text,
				})
			}
		}
	}
	return rep, nil
}

// sarifSeverity maps SARIF levels onto the security severity scale.
func sarifSeverity(level string) string {
	switch level {
	case "error":
		return "high"
	case "warning":
		return "medium"
	case "note":
		return "low"
	default:
		return "info"
	}
}
