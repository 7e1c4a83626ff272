// Package ecosystem analyzes a primary package together with the other
// distributions installed next to it in a site-packages directory.
//
// The primary package gets the full pipeline. Every other distribution is
// only walked and scanned for imports, which is enough to see how the
// packages of the environment depend on each other.
package ecosystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/pyjsonld/internal/cst"
	"github.com/phobologic/pyjsonld/internal/discover"
	"github.com/phobologic/pyjsonld/internal/model"
	"github.com/phobologic/pyjsonld/internal/pipeline"
	"github.com/phobologic/pyjsonld/internal/syntax"
)

// ErrPrimaryNotFound is returned when the primary package is not installed
// in the scanned directory.
var ErrPrimaryNotFound = errors.New("primary package not found")

// Analysis types.
const (
	Deep  = "deep"
	Light = "light"
)

// Light analysis statuses.
const (
	StatusSuccess      = "success"
	StatusPathNotFound = "path_not_found"
	StatusFailed       = "failed"
)

// infrastructure distributions are installed everywhere and never analyzed.
var infrastructure = map[string]struct{}{
	"pip":        {},
	"setuptools": {},
	"wheel":      {},
}

// Package is the analysis of one installed distribution.
type Package struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	TopLevel     []string `json:"topLevel"`
	Path         string   `json:"path,omitempty"`
	AnalysisType string   `json:"analysisType"`
	Status       string   `json:"status"`
	Error        string   `json:"error,omitempty"`
	FileCount    int      `json:"fileCount"`
	// Imports are the distinct top-level modules imported by the package,
	// excluding its own.
	Imports []string `json:"imports"`
}

// CrossImport records that Source imports Modules owned by Target.
type CrossImport struct {
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Modules []string `json:"modules"`
}

// Report is the result of an ecosystem run.
type Report struct {
	Context             string          `json:"@context"`
	Type                string          `json:"@type"`
	Primary             *model.Document `json:"primary"`
	Packages            []Package       `json:"packages"`
	CrossPackageImports []CrossImport   `json:"crossPackageImports"`
}

// Analyzer runs ecosystem analyses.
type Analyzer struct {
	pipeline *pipeline.Pipeline
	walk     discover.Options
	workers  int
	maxNodes int
	log      *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithWorkers bounds the number of dependencies scanned concurrently.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// WithWalk sets the discovery options used for dependencies.
func WithWalk(opts discover.Options) Option {
	return func(a *Analyzer) { a.walk = opts }
}

// WithMaxNodes bounds the syntax tree of one dependency file.
func WithMaxNodes(n int) Option {
	return func(a *Analyzer) { a.maxNodes = n }
}

// New creates an Analyzer that deep-analyzes the primary package with p.
func New(p *pipeline.Pipeline, opts ...Option) *Analyzer {
	a := &Analyzer{pipeline: p, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.NumCPU()
	}
	return a
}

// Analyze scans sitePackages, deep-analyzes primary and light-analyzes
// every other distribution. A dependency that cannot be analyzed is
// reported with its status; only a missing primary package, an unreadable
// directory or cancellation fail the run.
func (a *Analyzer) Analyze(ctx context.Context, sitePackages, primary string) (*Report, error) {
	dists, err := Scan(sitePackages)
	if err != nil {
		return nil, err
	}
	a.log.Info("scanned distributions", "dir", sitePackages, "distributions", len(dists))

	pi := slices.IndexFunc(dists, func(d Distribution) bool { return Normalize(d.Name) == Normalize(primary) })
	var prim Distribution
	if pi >= 0 {
		prim = dists[pi]
	} else {
		prim = Distribution{Name: primary, TopLevel: []string{Normalize(primary)}}
	}
	primPath, ok := locate(sitePackages, prim)
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", primary, sitePackages, ErrPrimaryNotFound)
	}

	an, err := a.pipeline.Run(ctx, primPath)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", primary, err)
	}
	if pi >= 0 {
		an.Document.Metadata = mergeMetadata(an.Document.Metadata, prim.Metadata)
	}

	var primImports []model.Import
	for _, r := range an.Files {
		primImports = append(primImports, r.Imports...)
	}
	primPkg := Package{
		Name:         prim.Name,
		Version:      prim.Version,
		TopLevel:     prim.TopLevel,
		Path:         primPath,
		AnalysisType: Deep,
		Status:       StatusSuccess,
		FileCount:    len(an.Files),
		Imports:      topLevelImports(primImports, prim.TopLevel),
	}

	var deps []Distribution
	for i, d := range dists {
		if i == pi {
			continue
		}
		if _, skip := infrastructure[Normalize(d.Name)]; skip {
			a.log.Debug("skipping infrastructure package", "package", d.Name)
			continue
		}
		deps = append(deps, d)
	}

	light := make([]Package, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, d := range deps {
		g.Go(func() error {
			light[i] = a.light(gctx, sitePackages, d)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkgs := append([]Package{primPkg}, light...)
	return &Report{
		Context:             model.Context,
		Type:                "SoftwareApplication",
		Primary:             an.Document,
		Packages:            pkgs,
		CrossPackageImports: CrossImports(pkgs),
	}, nil
}

// light walks a dependency and collects its imports.
func (a *Analyzer) light(ctx context.Context, sitePackages string, d Distribution) Package {
	pkg := Package{
		Name:         d.Name,
		Version:      d.Version,
		TopLevel:     d.TopLevel,
		AnalysisType: Light,
		Imports:      []string{},
	}
	log := a.log.With("package", d.Name)

	path, ok := locate(sitePackages, d)
	if !ok {
		log.Warn("package directory not found")
		pkg.Status = StatusPathNotFound
		return pkg
	}
	pkg.Path = path

	files, err := a.sources(path)
	if err != nil {
		log.Warn("light analysis failed", "err", err)
		pkg.Status, pkg.Error = StatusFailed, err.Error()
		return pkg
	}

	p := syntax.NewParser(syntax.WithMaxNodes(a.maxNodes))
	defer p.Close()

	var imports []model.Import
	for _, f := range files {
		if f.Err != nil {
			log.Debug("skipping file", "file", f.Path, "err", f.Err)
			continue
		}
		t, err := p.Parse(ctx, []byte(f.Text))
		if err != nil {
			log.Debug("skipping file", "file", f.Path, "err", err)
			continue
		}
		// Trees with syntax errors still carry the imports that parsed.
		imports = append(imports, cst.Imports(t, t.Root())...)
	}
	pkg.Status = StatusSuccess
	pkg.FileCount = len(files)
	pkg.Imports = topLevelImports(imports, d.TopLevel)
	log.Debug("light analysis complete", "files", len(files), "imports", len(pkg.Imports))
	return pkg
}

// sources returns the files of a package directory or single-module
// distribution.
func (a *Analyzer) sources(path string) ([]discover.SourceFile, error) {
	if strings.HasSuffix(path, discover.Extension) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []discover.SourceFile{{Path: filepath.Base(path), Text: string(data)}}, nil
	}
	walk := a.walk
	walk.Logger = a.log
	return discover.Walk(path, walk)
}

// locate finds the installed code of d: the first top-level name that is
// a directory or a single module file.
func locate(sitePackages string, d Distribution) (string, bool) {
	candidates := slices.Clone(d.TopLevel)
	candidates = append(candidates, d.Name, Normalize(d.Name), strings.ReplaceAll(d.Name, "_", "-"))
	for _, name := range candidates {
		if name == "" {
			continue
		}
		p := filepath.Join(sitePackages, filepath.FromSlash(name))
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
		if info, err := os.Stat(p + discover.Extension); err == nil && !info.IsDir() {
			return p + discover.Extension, true
		}
	}
	return "", false
}

// topLevelImports returns the sorted distinct top-level modules imported,
// excluding own and the standard __future__ pseudo-module.
func topLevelImports(imports []model.Import, own []string) []string {
	seen := map[string]struct{}{"__future__": {}}
	for _, o := range own {
		seen[o] = struct{}{}
	}
	out := []string{}
	for _, imp := range imports {
		top := cst.TopLevelPackage(imp.Module)
		if top == "" {
			continue
		}
		if _, ok := seen[top]; ok {
			continue
		}
		seen[top] = struct{}{}
		out = append(out, top)
	}
	sort.Strings(out)
	return out
}

// CrossImports matches the imports of every package against the top-level
// modules of the others.
func CrossImports(pkgs []Package) []CrossImport {
	owner := make(map[string]string)
	for _, p := range pkgs {
		for _, top := range p.TopLevel {
			if _, taken := owner[top]; !taken {
				owner[top] = p.Name
			}
		}
	}

	out := []CrossImport{}
	for _, p := range pkgs {
		byTarget := map[string][]string{}
		for _, imp := range p.Imports {
			if tgt, ok := owner[imp]; ok && tgt != p.Name {
				byTarget[tgt] = append(byTarget[tgt], imp)
			}
		}
		targets := make([]string, 0, len(byTarget))
		for t := range byTarget {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		for _, t := range targets {
			out = append(out, CrossImport{Source: p.Name, Target: t, Modules: byTarget[t]})
		}
	}
	return out
}

// mergeMetadata fills the fields a source checkout lacks from the
// installed distribution.
func mergeMetadata(have, dist model.Metadata) model.Metadata {
	if dist.Name != "" {
		have.Name = dist.Name
	}
	if have.Version == "" {
		have.Version = dist.Version
	}
	if have.Description == "" {
		have.Description = dist.Description
	}
	if have.License == "" {
		have.License = dist.License
	}
	if len(have.Authors) == 0 {
		have.Authors = dist.Authors
	}
	if len(have.Keywords) == 0 {
		have.Keywords = dist.Keywords
	}
	if have.CodeRepository == "" {
		have.CodeRepository = dist.CodeRepository
	}
	if len(have.URLs) == 0 {
		have.URLs = dist.URLs
	}
	return have
}

// Normalize returns the canonical form of a distribution name.
func Normalize(name string) string {
	return strings.ToLower(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}
