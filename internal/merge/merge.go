// Package merge runs every extractor over one source file and combines
// their results into a single File record.
//
// Each extractor fails on its own: a syntax error, a panic or a tool
// failure only affects the field it owns. The File itself is always
// produced.
package merge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime/debug"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/pyjsonld/internal/callgraph"
	"github.com/phobologic/pyjsonld/internal/cst"
	"github.com/phobologic/pyjsonld/internal/dataflow"
	"github.com/phobologic/pyjsonld/internal/enrich"
	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/structure"
	"github.com/phobologic/pyjsonld/internal/syntax"
	"github.com/phobologic/pyjsonld/internal/tolerant"
)

// DefaultCacheSize is the number of distinct file contents remembered.
const DefaultCacheSize = 1024

// Extractors selects the optional side channels.
type Extractors struct {
	ConcreteSyntax bool
	ErrorTolerant  bool
	CallGraph      bool
	DataFlow       bool
}

// AllExtractors enables every side channel.
var AllExtractors = Extractors{ConcreteSyntax: true, ErrorTolerant: true, CallGraph: true, DataFlow: true}

// Checkers provides the per-file results of the external tools.
type Checkers interface {
	TypeAnalysis(rel string) *model.TypeAnalysis
	SecurityAnalysis(rel string) *model.SecurityAnalysis
}

// Result is a merged file plus the imports it declares.
type Result struct {
	File    model.File
	Imports []model.Import
}

// Merger holds the configuration shared by all workers. It is safe for
// concurrent use; parsing happens in Workers.
type Merger struct {
	extractors Extractors
	enricher   *enrich.Enricher
	maxNodes   int
	cache      *lru.Cache[string, *extraction]
	log        *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithExtractors selects the side channels to compute.
func WithExtractors(e Extractors) Option {
	return func(m *Merger) { m.extractors = e }
}

// WithEnricher adds summaries and embeddings to functions.
func WithEnricher(e *enrich.Enricher) Option {
	return func(m *Merger) { m.enricher = e }
}

// WithMaxNodes bounds the syntax tree of one file.
func WithMaxNodes(n int) Option {
	return func(m *Merger) { m.maxNodes = n }
}

// WithCacheSize sets the content cache size; 0 disables it.
func WithCacheSize(n int) Option {
	return func(m *Merger) {
		m.cache = nil
		if n > 0 {
			m.cache, _ = lru.New[string, *extraction](n)
		}
	}
}

// WithLogger sets the logger for per-file degradations.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) { m.log = l }
}

// New creates a Merger. By default every extractor is enabled and no
// external tools are attached.
func New(opts ...Option) *Merger {
	m := &Merger{
		extractors: AllExtractors,
		log:        slog.New(slog.DiscardHandler),
	}
	m.cache, _ = lru.New[string, *extraction](DefaultCacheSize)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Worker merges files with its own parser. It must not be shared between
// goroutines.
type Worker struct {
	m      *Merger
	parser *syntax.Parser
}

// NewWorker creates a worker. Close it when done.
func (m *Merger) NewWorker() *Worker {
	return &Worker{m: m, parser: syntax.NewParser(syntax.WithMaxNodes(m.maxNodes))}
}

// Close releases the worker's parser.
func (w *Worker) Close() {
	w.parser.Close()
}

// extraction is everything derived from a file's text alone.
type extraction struct {
	entries  []model.Entry
	status   model.Status
	err      string
	concrete *model.ConcreteSyntax
	tolerant *model.ErrorTolerant
	calls    *model.CallGraph
	flow     *model.DataFlow
	imports  []model.Import
}

// Merge produces the File record for the source at rel.
func (w *Worker) Merge(ctx context.Context, rel, text string) Result {
	log := w.m.log.With("file", rel)

	var key string
	if w.m.cache != nil {
		sum := sha256.Sum256([]byte(text))
		key = hex.EncodeToString(sum[:])
	}
	x, ok := w.cached(key)
	if !ok {
		x = w.extract(ctx, log, text)
		if w.m.enricher.Enabled() {
			if err := w.m.enricher.Entries(ctx, x.entries); err != nil {
				log.Warn("enrichment failed", "err", err)
			}
		}
		if key != "" && ctx.Err() == nil {
			w.m.cache.Add(key, x)
		}
	} else {
		log.Debug("reusing extraction of identical content")
	}

	return record(rel, text, x)
}

// Unreadable produces the File record of a source that was found but could
// not be read, such as one over the size limit. Every extractor reports
// err.
func (m *Merger) Unreadable(rel string, err error) Result {
	m.log.Warn("file not analyzed", "file", rel, "err", err)
	return record(rel, "", m.failed(err))
}

func record(rel, text string, x *extraction) Result {
	file := model.File{
		Type:                "SoftwareSourceCode",
		Name:                rel,
		ProgrammingLanguage: model.Language,
		Text:                text,
		HasPart:             x.entries,
		ExtractionStatus:    x.status,
		Error:               x.err,
		Enhanced: &model.Enhanced{
			ConcreteSyntax: x.concrete,
			ErrorTolerant:  x.tolerant,
			CallGraph:      x.calls,
			DataFlow:       x.flow,
		},
	}
	return Result{File: file, Imports: x.imports}
}

// failed is the extraction of a file with no usable syntax tree.
func (m *Merger) failed(err error) *extraction {
	ex := m.extractors
	x := &extraction{
		entries:  []model.Entry{},
		imports:  []model.Import{},
		status:   model.StatusFailed,
		err:      err.Error(),
		tolerant: tolerant.Failed(err),
	}
	if ex.ConcreteSyntax {
		x.concrete = cst.Failed(err)
	}
	if ex.CallGraph {
		x.calls = callgraph.Failed(err)
	}
	if ex.DataFlow {
		x.flow = dataflow.Failed(err)
	}
	return x
}

// Attach adds the type and security diagnostics of c to a merged file.
// The checkers run over the whole package, so this happens once they have
// finished, independently of the per-file extraction.
func (m *Merger) Attach(f *model.File, c Checkers) {
	if f.Enhanced == nil {
		f.Enhanced = &model.Enhanced{}
	}
	log := m.log.With("file", f.Name)
	f.Enhanced.TypeAnalysis = guard(log, "type", func() *model.TypeAnalysis {
		return c.TypeAnalysis(f.Name)
	}, func(error) *model.TypeAnalysis { return nil })
	f.Enhanced.SecurityAnalysis = guard(log, "security", func() *model.SecurityAnalysis {
		return c.SecurityAnalysis(f.Name)
	}, func(error) *model.SecurityAnalysis { return nil })
}

func (w *Worker) cached(key string) (*extraction, bool) {
	if key == "" {
		return nil, false
	}
	return w.m.cache.Get(key)
}

func (w *Worker) extract(ctx context.Context, log *slog.Logger, text string) *extraction {
	ex := w.m.extractors
	x := &extraction{entries: []model.Entry{}, imports: []model.Import{}}

	t, err := w.parser.Parse(ctx, []byte(text))
	if err != nil {
		log.Warn("parse failed", "extractor", "syntax", "err", err)
		return w.m.failed(err)
	}

	res := guard(log, "structure", func() error {
		r, err := structure.Extract(t)
		if err != nil {
			return err
		}
		x.entries = r.Entries()
		return nil
	}, func(err error) error { return err })
	x.status = model.StatusSuccess
	if res != nil {
		log.Warn("structural extraction failed", "extractor", "structure", "err", res)
		x.status, x.err = model.StatusFailed, res.Error()
		x.entries = []model.Entry{}
	}

	// The error-tolerant view is always attached when the strict parse
	// fails, so the recovered structure stays visible.
	if ex.ErrorTolerant || res != nil {
		x.tolerant = guard(log, "tolerant", func() *model.ErrorTolerant { return tolerant.Extract(t) }, tolerant.Failed)
	}
	if ex.ConcreteSyntax {
		x.concrete = guard(log, "cst", func() *model.ConcreteSyntax { return cst.Extract(t) }, cst.Failed)
	}
	if ex.CallGraph {
		x.calls = guard(log, "callgraph", func() *model.CallGraph { return callgraph.Extract(t) }, callgraph.Failed)
	}
	if ex.DataFlow {
		x.flow = guard(log, "dataflow", func() *model.DataFlow { return dataflow.Extract(t) }, dataflow.Failed)
	}
	x.imports = guard(log, "imports", func() []model.Import { return cst.Imports(t, t.Root()) },
		func(error) []model.Import { return []model.Import{} })
	return x
}

// guard runs fn and converts a panic into fail's result, so one broken
// extractor cannot take down the file or the run.
func guard[T any](log *slog.Logger, extractor string, fn func() T, fail func(error) T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s extractor panicked: %v", extractor, r)
			log.Error("extractor panicked", "extractor", extractor, "err", err, "stack", string(debug.Stack()))
			out = fail(err)
		}
	}()
	return fn()
}
