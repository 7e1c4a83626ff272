package checkers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phobologic/pyjsonld/internal/model"
)

type pyrightPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type pyrightOutput struct {
	Version            string `json:"version"`
	GeneralDiagnostics []struct {
		File     string `json:"file"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Rule     string `json:"rule"`
		Range    struct {
			Start pyrightPosition `json:"start"`
		} `json:"range"`
	} `json:"generalDiagnostics"`
	Summary json.RawMessage `json:"summary"`
}

func (a *Analyzer) pyright(ctx context.Context) (*report, error) {
	out, err := a.invoke(ctx, a.timeout, Pyright, "--outputjson", ".")
	if err != nil {
		return nil, err
	}
	// 0: clean, 1: diagnostics reported. Anything else is a fatal run.
	if out.ExitCode > 1 || len(out.Stdout) == 0 {
		return nil, failure(Pyright, out)
	}

	var parsed pyrightOutput
	if err := json.Unmarshal(out.Stdout, &parsed); err != nil {
		return nil, fmt.Errorf("pyright: decoding output: %w", err)
	}

	rep := newReport(Pyright)
	rep.summary = parsed.Summary
	for _, d := range parsed.GeneralDiagnostics {
		sev := d.Severity
		if sev == "" {
			sev = "error"
		}
		// Pyright ranges are zero-based.
		rep.add(model.Diagnostic{
			File:     a.relPath(d.File),
			Line:     d.Range.Start.Line + 1,
			Column:   d.Range.Start.Character + 1,
			Severity: sev,
			Message:  d.Message,
			Rule:     d.Rule,
		})
	}
	return rep, nil
}
