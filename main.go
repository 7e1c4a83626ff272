// pyjsonld generates a JSON-LD knowledge graph of a Python package.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phobologic/pyjsonld/internal/checkers"
	"github.com/phobologic/pyjsonld/internal/config"
	"github.com/phobologic/pyjsonld/internal/discover"
	"github.com/phobologic/pyjsonld/internal/ecosystem"
	"github.com/phobologic/pyjsonld/internal/encode"
	"github.com/phobologic/pyjsonld/internal/enrich"
	"github.com/phobologic/pyjsonld/internal/merge"
	"github.com/phobologic/pyjsonld/internal/pipeline"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	stdout, stderr io.Writer

	v          *viper.Viper
	configFile string
	verbose    bool

	cfg *config.Config
	log *slog.Logger
}

// flagKeys maps command-line flags to configuration keys. Flags override
// the config file and environment.
var flagKeys = map[string]string{
	"format":        "output.format",
	"indent":        "output.indent",
	"workers":       "analysis.workers",
	"max-nodes":     "analysis.max_nodes",
	"exclude":       "walk.exclude",
	"skip-dir":      "walk.skip_dirs",
	"gitignore":     "walk.respect_gitignore",
	"max-file-size": "walk.max_file_size",
	"bin-dir":       "tools.bin_dir",
	"summaries":     "enrich.summaries",
	"embedding-dim": "enrich.embedding_dim",
	"log-format":    "logging.format",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, v: config.New()}

	root := &cobra.Command{
		Use:           "pyjsonld",
		Short:         "Generate a JSON-LD knowledge graph of a Python package",
		Long:          "pyjsonld walks a Python package, extracts its modules, classes, functions, call graph and data flow, runs the available type checkers and security scanners, and writes one JSON-LD document.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("pyjsonld {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./.pyjsonld.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("log-format", "text", "log format: text|json")

	root.AddCommand(a.analyzeCmd(), a.ecosystemCmd(), a.probeCmd(), newInitCmd(stdout, stderr))
	return root
}

// setup binds the flags of cmd, loads the configuration and builds the
// logger. It runs at the start of every command that needs configuration.
func (a *app) setup(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(a.stderr, cfg.Logging.Format, a.verbose)
	return nil
}

func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output file, or a directory for a timestamped file (default: stdout)")
	cmd.Flags().String("format", "json", "output format: json|yaml")
	cmd.Flags().Int("indent", 2, "indentation width, 0 for compact output")
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 0, "files analyzed concurrently (default: number of CPUs)")
	cmd.Flags().Int("max-nodes", 2_000_000, "syntax tree size limit per file")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns of files to skip")
	cmd.Flags().StringSlice("skip-dir", nil, "directory names to skip besides tool caches")
	cmd.Flags().Bool("gitignore", false, "skip files ignored by git")
	cmd.Flags().Int64("max-file-size", 5<<20, "report files larger than this many bytes as failed instead of parsing them")
	cmd.Flags().Bool("no-tools", false, "do not run external type checkers and security scanners")
	cmd.Flags().String("bin-dir", "", "directory searched for tools before PATH")
	cmd.Flags().Bool("summaries", false, "add a one-line summary to every function")
	cmd.Flags().Int("embedding-dim", 0, "add embedding vectors of this size to every function")
}

func (a *app) analyzeCmd() *cobra.Command {
	var name, cache string
	cmd := &cobra.Command{
		Use:   "analyze [package_dir]",
		Short: "Analyze one package directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}
			noTools, _ := cmd.Flags().GetBool("no-tools")

			if cache != "" && a.cacheIsFresh(cache, dir) {
				if data, err := os.ReadFile(cache); err == nil {
					a.log.Debug("using cached output", "cache", cache)
					_, err = a.stdout.Write(data)
					return err
				}
			}

			p := pipeline.New(a.pipelineOptions(name, noTools)...)
			an, err := p.Run(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if cache != "" {
				if err := a.write(cache, an.Document); err != nil {
					a.log.Warn("writing cache", "cache", cache, "err", err)
				}
			}
			return a.output(cmd, an.Document.Name, an.Document)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "package name (default: from packaging metadata or directory name)")
	cmd.Flags().StringVar(&cache, "cache", "", "reuse this output file while no source file is newer")
	addOutputFlags(cmd)
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) ecosystemCmd() *cobra.Command {
	var primary string
	cmd := &cobra.Command{
		Use:   "ecosystem <site-packages>",
		Short: "Analyze a package together with its installed dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			noTools, _ := cmd.Flags().GetBool("no-tools")
			p := pipeline.New(a.pipelineOptions("", noTools)...)
			eco := ecosystem.New(p,
				ecosystem.WithLogger(a.log),
				ecosystem.WithWorkers(a.cfg.Analysis.Workers),
				ecosystem.WithWalk(a.walkOptions()),
				ecosystem.WithMaxNodes(a.cfg.Analysis.MaxNodes),
			)
			rep, err := eco.Analyze(cmd.Context(), args[0], primary)
			if err != nil {
				return err
			}
			return a.output(cmd, primary+"_ecosystem", rep)
		},
	}
	cmd.Flags().StringVar(&primary, "primary", "", "name of the package to analyze in depth")
	_ = cmd.MarkFlagRequired("primary")
	addOutputFlags(cmd)
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) probeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show which external tools are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			an := checkers.New(".", a.checkerOptions()...)
			probes := an.Probe(cmd.Context())
			out := make([]checkers.Probe, 0, len(probes))
			for _, name := range checkers.Tools() {
				out = append(out, probes[name])
			}
			f, err := encode.ParseFormat(a.cfg.Output.Format)
			if err != nil {
				return err
			}
			return encode.Encode(a.stdout, out, f, a.cfg.Output.Indent)
		},
	}
	cmd.Flags().String("format", "json", "output format: json|yaml")
	cmd.Flags().String("bin-dir", "", "directory searched for tools before PATH")
	return cmd
}

// output writes v to stdout, a file, or a timestamped file inside a
// directory, depending on --output.
func (a *app) output(cmd *cobra.Command, name string, v any) error {
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		f, err := encode.ParseFormat(a.cfg.Output.Format)
		if err != nil {
			return err
		}
		return encode.Encode(a.stdout, v, f, a.cfg.Output.Indent)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		f, err := encode.ParseFormat(a.cfg.Output.Format)
		if err != nil {
			return err
		}
		out = filepath.Join(out, encode.FileName(name, f, time.Now()))
	}
	if err := a.write(out, v); err != nil {
		return err
	}
	a.log.Info("wrote document", "path", out)
	return nil
}

func (a *app) write(path string, v any) error {
	f, err := encode.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	return encode.WriteFile(path, v, f, a.cfg.Output.Indent)
}

// cacheIsFresh reports whether the cache file is newer than every source
// file the walk would pick up.
func (a *app) cacheIsFresh(cache, root string) bool {
	files, err := discover.Walk(root, a.walkOptions())
	if err != nil {
		return false
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return encode.Fresh(cache, root, paths)
}

func (a *app) walkOptions() discover.Options {
	return discover.Options{
		Exclude:          a.cfg.Walk.Exclude,
		SkipDirs:         a.cfg.Walk.SkipDirs,
		RespectGitignore: a.cfg.Walk.RespectGitignore,
		MaxFileSize:      a.cfg.Walk.MaxFileSize,
		Logger:           a.log,
	}
}

func (a *app) checkerOptions() []checkers.Option {
	return []checkers.Option{
		checkers.WithLogger(a.log),
		checkers.WithBinDir(a.cfg.Tools.BinDir),
		checkers.WithTimeout(a.cfg.Tools.Timeout),
		checkers.WithCodeQLTimeout(a.cfg.Tools.CodeQLTimeout),
		checkers.WithDisabled(a.cfg.DisabledTools()...),
	}
}

func (a *app) pipelineOptions(name string, noTools bool) []pipeline.Option {
	cfg := a.cfg
	opts := []pipeline.Option{
		pipeline.WithLogger(a.log),
		pipeline.WithWorkers(cfg.Analysis.Workers),
		pipeline.WithWalk(a.walkOptions()),
		pipeline.WithMerge(
			merge.WithExtractors(merge.Extractors{
				ConcreteSyntax: cfg.Analysis.ConcreteSyntax,
				ErrorTolerant:  cfg.Analysis.ErrorTolerant,
				CallGraph:      cfg.Analysis.CallGraph,
				DataFlow:       cfg.Analysis.DataFlow,
			}),
			merge.WithMaxNodes(cfg.Analysis.MaxNodes),
			merge.WithCacheSize(cfg.Cache.Size),
			merge.WithEnricher(a.enricher()),
		),
		pipeline.WithName(name),
	}
	if cfg.Tools.Enabled && !noTools {
		opts = append(opts, pipeline.WithTools(a.checkerOptions()...))
	}
	return opts
}

func (a *app) enricher() *enrich.Enricher {
	e := &enrich.Enricher{}
	if a.cfg.Enrich.Summaries {
		e.Summarizer = enrich.DocstringSummarizer{}
	}
	if a.cfg.Enrich.EmbeddingDim > 0 {
		e.Embedder = enrich.NewHashingEmbedder(a.cfg.Enrich.EmbeddingDim)
	}
	if !e.Enabled() {
		return nil
	}
	return e
}
