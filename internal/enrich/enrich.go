// Package enrich attaches short summaries and embedding vectors to
// extracted functions. Both are produced by pluggable collaborators; the
// defaults here work offline and are deterministic.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/phobologic/pyjsonld/internal/model"
)

// Summarizer turns function source into a one-line description.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Embedder turns function source into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Enricher applies a Summarizer and an Embedder, either of which may be nil.
type Enricher struct {
	Summarizer Summarizer
	Embedder   Embedder
}

// Enabled reports whether the enricher does anything.
func (e *Enricher) Enabled() bool {
	return e != nil && (e.Summarizer != nil || e.Embedder != nil)
}

// Entries enriches every function and method in entries in place.
func (e *Enricher) Entries(ctx context.Context, entries []model.Entry) error {
	if !e.Enabled() {
		return nil
	}
	for _, entry := range entries {
		switch v := entry.(type) {
		case *model.Function:
			if err := e.Function(ctx, v); err != nil {
				return err
			}
		case *model.Class:
			for _, m := range v.HasPart {
				if err := e.Function(ctx, m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Function sets fn.Summary and fn.Embedding.
func (e *Enricher) Function(ctx context.Context, fn *model.Function) error {
	if e.Summarizer != nil {
		s, err := e.Summarizer.Summarize(ctx, fn.Text)
		if err != nil {
			return fmt.Errorf("summarizing %s: %w", fn.QualifiedName(), err)
		}
		fn.Summary = s
	}
	if e.Embedder != nil {
		v, err := e.Embedder.Embed(ctx, fn.Text)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", fn.QualifiedName(), err)
		}
		fn.Embedding = v
	}
	return nil
}

// DocstringSummarizer uses the first docstring line, falling back to the
// def signature.
type DocstringSummarizer struct{}

func (DocstringSummarizer) Summarize(_ context.Context, text string) (string, error) {
	lines := strings.Split(text, "\n")

	// The signature may span several lines; it ends at the first ':'
	// outside brackets.
	var sig strings.Builder
	depth := 0
	done := false
	i := 0
	for ; i < len(lines) && !done; i++ {
		line := strings.TrimSpace(lines[i])
		if sig.Len() == 0 && (line == "" || strings.HasPrefix(line, "@") || strings.HasPrefix(line, "#")) {
			continue
		}
		if sig.Len() > 0 {
			sig.WriteByte(' ')
		}
	scan:
		for _, r := range line {
			switch r {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
			case '#':
				break scan
			case ':':
				if depth == 0 {
					done = true
					break scan
				}
			}
			sig.WriteRune(r)
		}
	}

	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if doc, ok := docstringStart(line); ok {
			if doc != "" {
				return doc, nil
			}
			if i+1 < len(lines) {
				if next := strings.TrimSpace(lines[i+1]); next != "" && !isQuote(next) {
					return next, nil
				}
			}
		}
		break
	}

	return strings.TrimSpace(sig.String()), nil
}

var quotes = []string{`"""`, `'''`}

// docstringStart returns the text of a docstring's first line when line
// opens one.
func docstringStart(line string) (string, bool) {
	body := strings.TrimLeft(line, "rRuU")
	for _, q := range quotes {
		if rest, ok := strings.CutPrefix(body, q); ok {
			if end := strings.Index(rest, q); end >= 0 {
				rest = rest[:end]
			}
			return strings.TrimSpace(rest), true
		}
	}
	for _, q := range []string{`"`, `'`} {
		if rest, ok := strings.CutPrefix(body, q); ok {
			if end := strings.Index(rest, q); end >= 0 {
				return strings.TrimSpace(rest[:end]), true
			}
		}
	}
	return "", false
}

func isQuote(line string) bool {
	return line == `"""` || line == `'''`
}
