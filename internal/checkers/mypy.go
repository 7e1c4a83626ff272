package checkers

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strconv"

	"github.com/phobologic/pyjsonld/internal/model"
)

// mypyLine matches "path:line:col: severity: message  [code]".
var mypyLine = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)? (error|warning|note): (.*?)(?:  \[([\w-]+)\])?$`)

func (a *Analyzer) mypy(ctx context.Context) (*report, error) {
	out, err := a.invoke(ctx, a.timeout, Mypy,
		"--show-error-codes", "--show-column-numbers", "--no-error-summary", "--no-color-output", ".")
	if err != nil {
		return nil, err
	}

	rep := newReport(Mypy)
	code := out.ExitCode
	rep.returnCode = &code
	// 1 means type errors were found; 2 means mypy itself failed.
	if out.ExitCode > 1 {
		return rep, failure(Mypy, out)
	}

	sc := bufio.NewScanner(bytes.NewReader(out.Stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := mypyLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		rep.add(model.Diagnostic{
			File:     a.relPath(m[1]),
			Line:     line,
			Column:   col,
			Severity: m[4],
			Message:  m[5],
			Rule:     m[6],
		})
	}
	return rep, sc.Err()
}
