package checkers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
)

type banditOutput struct {
	Results []struct {
		Filename   string `json:"filename"`
		LineNumber int    `json:"line_number"`
		ColOffset  int    `json:"col_offset"`
		Severity   string `json:"issue_severity"`
		Confidence string `json:"issue_confidence"`
		Text       string `json:"issue_text"`
		TestID     string `json:"test_id"`
		TestName   string `json:"test_name"`
		Code       string `json:"code"`
		MoreInfo   string `json:"more_info"`
		CWE        *struct {
			ID int `json:"id"`
		} `json:"issue_cwe"`
	} `json:"results"`
	Metrics map[string]json.RawMessage `json:"metrics"`
	Skipped []string                   `json:"skipped"`
}

func (a *Analyzer) bandit(ctx context.Context) (*report, error) {
	out, err := a.invoke(ctx, a.timeout, Bandit, "-r", ".", "-f", "json", "-q")
	if err != nil {
		return nil, err
	}
	// Exit status 1 only means issues were found.
	if out.ExitCode > 1 || len(out.Stdout) == 0 {
		return nil, failure(Bandit, out)
	}

	var parsed banditOutput
	if err := json.Unmarshal(out.Stdout, &parsed); err != nil {
		return nil, fmt.Errorf("bandit: decoding output: %w", err)
	}

	rep := newReport(Bandit)
	rep.skipped = parsed.Skipped
	rep.metrics = make(map[string]json.RawMessage, len(parsed.Metrics))
	for name, m := range parsed.Metrics {
		if name == "_totals" {
			continue
		}
		rep.metrics[a.relPath(name)] = m
	}
	for _, r := range parsed.Results {
		d := model.Diagnostic{
			File:       a.relPath(r.Filename),
			Line:       r.LineNumber,
			Column:     r.ColOffset + 1,
			Severity:   strings.ToLower(r.Severity),
			Message:    r.Text,
			Rule:       r.TestID,
			Confidence: strings.ToLower(r.Confidence),
			TestName:   r.TestName,
			Snippet:    r.Code,
			MoreInfo:   r.MoreInfo,
		}
		if r.CWE != nil && r.CWE.ID != 0 {
			d.CWE = "CWE-" + strconv.Itoa(r.CWE.ID)
		}
		rep.add(d)
	}
	return rep, nil
}
