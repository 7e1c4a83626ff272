// Package pipeline wires the walker, the per-file merger, the external
// checkers and the module assembler into one analysis run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/pyjsonld/internal/assemble"
	"github.com/phobologic/pyjsonld/internal/checkers"
	"github.com/phobologic/pyjsonld/internal/discover"
	"github.com/phobologic/pyjsonld/internal/graph"
	"github.com/phobologic/pyjsonld/internal/merge"
	"github.com/phobologic/pyjsonld/internal/metadata"
	"github.com/phobologic/pyjsonld/internal/model"
)

// Pipeline analyzes package directories.
type Pipeline struct {
	workers  int
	walk     discover.Options
	merger   []merge.Option
	tools    bool
	toolOpts []checkers.Option
	name     string
	log      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used by every stage.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithWorkers bounds the number of files processed concurrently.
// n <= 0 uses the number of CPUs.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithWalk sets the discovery options.
func WithWalk(opts discover.Options) Option {
	return func(p *Pipeline) { p.walk = opts }
}

// WithMerge passes options to the per-file merger.
func WithMerge(opts ...merge.Option) Option {
	return func(p *Pipeline) { p.merger = append(p.merger, opts...) }
}

// WithTools enables the external checkers with the given options.
func WithTools(opts ...checkers.Option) Option {
	return func(p *Pipeline) {
		p.tools = true
		p.toolOpts = append(p.toolOpts, opts...)
	}
}

// WithName overrides the package name of the document.
func WithName(name string) Option {
	return func(p *Pipeline) { p.name = name }
}

// New creates a Pipeline. External tools are off unless WithTools is given.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	return p
}

// Analysis is the outcome of one run.
type Analysis struct {
	Document *model.Document
	Files    []merge.Result
}

// Run analyzes the package rooted at root. It only fails when the root
// cannot be walked or ctx is cancelled; per-file problems are recorded in
// the document.
func (p *Pipeline) Run(ctx context.Context, root string) (*Analysis, error) {
	start := time.Now()

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	walk := p.walk
	walk.Logger = p.log
	files, err := discover.Walk(root, walk)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	p.log.Info("discovered files", "root", root, "files", len(files))

	m := merge.New(append([]merge.Option{merge.WithLogger(p.log)}, p.merger...)...)

	var an *checkers.Analyzer
	g, gctx := errgroup.WithContext(ctx)
	if p.tools && len(files) > 0 {
		an = checkers.New(root, append([]checkers.Option{checkers.WithLogger(p.log)}, p.toolOpts...)...)
		g.Go(func() error {
			an.Run(gctx)
			return nil
		})
	}

	results := make([]merge.Result, len(files))
	work := make(chan int)
	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range min(p.workers, max(len(files), 1)) {
		g.Go(func() error {
			// Each goroutine gets its own parser.
			w := m.NewWorker()
			defer w.Close()
			for i := range work {
				f := files[i]
				if f.Err != nil {
					results[i] = m.Unreadable(f.Path, f.Err)
					continue
				}
				results[i] = w.Merge(gctx, f.Path, f.Text)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := make([]graph.Node, len(results))
	paths := make([]string, len(results))
	merged := make([]model.File, len(results))
	failed := 0
	for i := range results {
		if an != nil {
			m.Attach(&results[i].File, an)
		}
		if results[i].File.ExtractionStatus == model.StatusFailed {
			failed++
		}
		nodes[i] = graph.Node{Path: results[i].File.Name, Imports: results[i].Imports}
		paths[i] = results[i].File.Name
	}

	pkgName := packageName(root, files)
	deps := graph.BuildGraph(nodes, pkgName)
	ranks := graph.Rank(paths, deps)
	for i := range results {
		results[i].File.Rank = ranks[results[i].File.Name]
		merged[i] = results[i].File
	}

	meta, src, err := metadata.Load(root, filepath.Base(root))
	if err != nil {
		p.log.Warn("reading package metadata", "err", err)
	}
	p.log.Debug("package metadata", "source", src, "name", meta.Name)
	if p.name != "" {
		meta.Name = p.name
	}

	modules := assemble.Modules(merged)
	doc := assemble.Document(meta, filepath.Base(root), modules, deps)

	p.log.Info("analysis complete",
		"files", assemble.FileCount(modules),
		"modules", len(modules),
		"failed", failed,
		"dependencies", len(deps),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &Analysis{Document: doc, Files: results}, nil
}

// packageName is the import name of root when root is itself a package.
func packageName(root string, files []discover.SourceFile) string {
	for _, f := range files {
		if f.Path == "__init__.py" {
			return filepath.Base(root)
		}
	}
	return ""
}
