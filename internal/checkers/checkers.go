// Package checkers runs external type checkers and security scanners over a
// package root and distributes their diagnostics to individual files.
//
// Every tool is probed once and run at most once per Analyzer. A missing
// binary is not an error: the tool is reported as unavailable and its
// per-file field stays nil.
package checkers

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/pyjsonld/internal/model"
)

// Tool names.
const (
	Pyright = "pyright"
	Mypy    = "mypy"
	Bandit  = "bandit"
	CodeQL  = "codeql"
)

// Default timeouts.
const (
	DefaultTimeout       = 120 * time.Second
	DefaultCodeQLTimeout = 300 * time.Second
	probeTimeout         = 15 * time.Second
)

var (
	ErrToolUnavailable = errors.New("tool unavailable")
	ErrTimeout         = errors.New("timed out")
)

var (
	typeTools     = []string{Pyright, Mypy}
	securityTools = []string{Bandit, CodeQL}
)

// Tools lists every supported checker in report order.
func Tools() []string {
	return append(append([]string{}, typeTools...), securityTools...)
}

// Analyzer runs the checkers for one package root.
type Analyzer struct {
	root          string
	roots         []string
	binDir        string
	timeout       time.Duration
	codeqlTimeout time.Duration
	disabled      map[string]bool
	lookPath      LookPath
	run           Runner
	log           *slog.Logger

	probeOnce sync.Once
	probes    map[string]Probe
	paths     map[string]string

	runOnce sync.Once
	reports map[string]*report
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger for tool degradations.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithBinDir makes binaries in dir take precedence over PATH.
func WithBinDir(dir string) Option {
	return func(a *Analyzer) { a.binDir = dir }
}

// WithTimeout bounds each pyright, mypy and bandit invocation.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCodeQLTimeout bounds each codeql invocation.
func WithCodeQLTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.codeqlTimeout = d
		}
	}
}

// WithDisabled turns the named tools off without probing them.
func WithDisabled(tools ...string) Option {
	return func(a *Analyzer) {
		for _, t := range tools {
			a.disabled[t] = true
		}
	}
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn LookPath) Option {
	return func(a *Analyzer) { a.lookPath = fn }
}

// WithRunner replaces ExecRunner.
func WithRunner(fn Runner) Option {
	return func(a *Analyzer) { a.run = fn }
}

// New creates an Analyzer for the package at root.
func New(root string, opts ...Option) *Analyzer {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	a := &Analyzer{
		root:          root,
		roots:         []string{root},
		timeout:       DefaultTimeout,
		codeqlTimeout: DefaultCodeQLTimeout,
		disabled:      make(map[string]bool),
		lookPath:      exec.LookPath,
		run:           ExecRunner,
		log:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	if real, err := filepath.EvalSymlinks(root); err == nil && real != root {
		a.roots = append(a.roots, real)
	}
	return a
}

// Run executes every available tool once over the package root. Later
// calls return immediately. Tool failures are recorded, never returned.
func (a *Analyzer) Run(ctx context.Context) {
	a.runOnce.Do(func() {
		probes := a.Probe(ctx)

		var mu sync.Mutex
		reports := make(map[string]*report)
		var g errgroup.Group
		for _, name := range Tools() {
			if probes[name].Availability != model.Available {
				continue
			}
			g.Go(func() error {
				start := time.Now()
				rep := a.runTool(ctx, name)
				rep.version = probes[name].Version
				if rep.err != "" {
					a.log.Warn("tool failed", "tool", name, "err", rep.err)
				} else {
					a.log.Debug("tool finished", "tool", name, "files", len(rep.byFile), "elapsed", time.Since(start))
				}
				mu.Lock()
				reports[name] = rep
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		a.reports = reports
	})
}

func (a *Analyzer) runTool(ctx context.Context, name string) *report {
	var (
		rep *report
		err error
	)
	switch name {
	case Pyright:
		rep, err = a.pyright(ctx)
	case Mypy:
		rep, err = a.mypy(ctx)
	case Bandit:
		rep, err = a.bandit(ctx)
	case CodeQL:
		rep, err = a.codeql(ctx)
	}
	if rep == nil {
		rep = newReport(name)
	}
	if err != nil {
		rep.err = err.Error()
	}
	return rep
}

// TypeAnalysis returns the type-checking side channel for the file at rel
// (slash-separated, relative to the root). Run must have been called.
func (a *Analyzer) TypeAnalysis(rel string) *model.TypeAnalysis {
	ta := &model.TypeAnalysis{
		Type:         "TypeAnalysis",
		Pyright:      a.result(Pyright, rel),
		Mypy:         a.result(Mypy, rel),
		Availability: a.availability(typeTools),
	}
	ta.Summary = typeSummary(ta.Pyright, ta.Mypy)
	return ta
}

// SecurityAnalysis returns the security side channel for the file at rel.
func (a *Analyzer) SecurityAnalysis(rel string) *model.SecurityAnalysis {
	sa := &model.SecurityAnalysis{
		Type:         "SecurityAnalysis",
		Bandit:       a.result(Bandit, rel),
		CodeQL:       a.result(CodeQL, rel),
		Availability: a.availability(securityTools),
	}
	sa.Summary = securitySummary(sa.Bandit, sa.CodeQL)
	return sa
}

func (a *Analyzer) availability(tools []string) map[string]model.Availability {
	out := make(map[string]model.Availability, len(tools))
	for _, t := range tools {
		out[t] = a.probes[t].Availability
		if out[t] == "" {
			out[t] = model.Unavailable
		}
	}
	return out
}

func (a *Analyzer) result(name, rel string) *model.ToolResult {
	rep, ok := a.reports[name]
	if !ok {
		return nil
	}
	return rep.forFile(rel)
}

// relPath maps a path reported by a tool onto a root-relative slash path.
func (a *Analyzer) relPath(p string) string {
	p = strings.TrimPrefix(p, "file://")
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p))
	}
	for _, base := range a.roots {
		r, err := filepath.Rel(base, p)
		if err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(r)
		}
	}
	return filepath.ToSlash(p)
}
