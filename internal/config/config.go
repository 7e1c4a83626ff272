// Package config handles configuration loading and validation for pyjsonld.
//
// Values are layered: built-in defaults, an optional .pyjsonld.yaml file,
// PYJSONLD_* environment variables, and finally command-line flags bound by
// the caller.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".pyjsonld"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "PYJSONLD"
)

// Config holds all configuration for pyjsonld.
type Config struct {
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Walk     WalkConfig     `mapstructure:"walk" yaml:"walk"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Tools    ToolsConfig    `mapstructure:"tools" yaml:"tools"`
	Enrich   EnrichConfig   `mapstructure:"enrich" yaml:"enrich"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// OutputConfig controls document encoding.
type OutputConfig struct {
	// Format is json or yaml.
	Format string `mapstructure:"format" yaml:"format"`
	Indent int    `mapstructure:"indent" yaml:"indent"`
}

// WalkConfig controls source discovery.
type WalkConfig struct {
	// Exclude lists glob patterns matched against package-relative paths.
	Exclude          []string `mapstructure:"exclude" yaml:"exclude"`
	SkipDirs         []string `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	RespectGitignore bool     `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	// MaxFileSize caps the bytes read per file. Larger files are reported
	// as failed instead of parsed.
	MaxFileSize      int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// AnalysisConfig selects the extractors and bounds the work per file.
type AnalysisConfig struct {
	// Workers is the number of files processed concurrently; 0 uses every CPU.
	Workers        int  `mapstructure:"workers" yaml:"workers"`
	MaxNodes       int  `mapstructure:"max_nodes" yaml:"max_nodes"`
	ConcreteSyntax bool `mapstructure:"concrete_syntax" yaml:"concrete_syntax"`
	ErrorTolerant  bool `mapstructure:"error_tolerant" yaml:"error_tolerant"`
	CallGraph      bool `mapstructure:"call_graph" yaml:"call_graph"`
	DataFlow       bool `mapstructure:"data_flow" yaml:"data_flow"`
}

// ToolsConfig controls the external type checkers and security scanners.
type ToolsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// BinDir is searched before PATH, typically a virtualenv's bin directory.
	BinDir        string        `mapstructure:"bin_dir" yaml:"bin_dir"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CodeQLTimeout time.Duration `mapstructure:"codeql_timeout" yaml:"codeql_timeout"`
	Pyright       bool          `mapstructure:"pyright" yaml:"pyright"`
	Mypy          bool          `mapstructure:"mypy" yaml:"mypy"`
	Bandit        bool          `mapstructure:"bandit" yaml:"bandit"`
	CodeQL        bool          `mapstructure:"codeql" yaml:"codeql"`
}

// EnrichConfig enables function summaries and embeddings.
type EnrichConfig struct {
	Summaries bool `mapstructure:"summaries" yaml:"summaries"`
	// EmbeddingDim is the embedding vector size; 0 disables embeddings.
	EmbeddingDim int `mapstructure:"embedding_dim" yaml:"embedding_dim"`
}

// CacheConfig sizes the extraction cache.
type CacheConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Output: OutputConfig{Format: "json", Indent: 2},
		Walk: WalkConfig{
			Exclude:          []string{},
			SkipDirs:         []string{},
			RespectGitignore: false,
			MaxFileSize:      5 << 20,
		},
		Analysis: AnalysisConfig{
			MaxNodes:       2_000_000,
			ConcreteSyntax: true,
			ErrorTolerant:  true,
			CallGraph:      true,
			DataFlow:       true,
		},
		Tools: ToolsConfig{
			Enabled:       true,
			Timeout:       120 * time.Second,
			CodeQLTimeout: 300 * time.Second,
			Pyright:       true,
			Mypy:          true,
			Bandit:        true,
			CodeQL:        true,
		},
		Cache:   CacheConfig{Size: 1024},
		Logging: LoggingConfig{Format: "text"},
	}
}

// New returns a viper instance holding the defaults and reading
// PYJSONLD_* environment variables. Callers bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file into v and unmarshals the result.
// configFile may be empty, in which case .pyjsonld.yaml is looked up in
// the working directory and silently skipped when missing.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("output format must be 'json' or 'yaml', got %q", c.Output.Format)
	}
	if c.Output.Indent < 0 {
		return fmt.Errorf("output indent must not be negative, got %d", c.Output.Indent)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging format must be 'text' or 'json', got %q", c.Logging.Format)
	}

	for name, n := range map[string]int64{
		"walk.max_file_size":   c.Walk.MaxFileSize,
		"analysis.workers":     int64(c.Analysis.Workers),
		"analysis.max_nodes":   int64(c.Analysis.MaxNodes),
		"enrich.embedding_dim": int64(c.Enrich.EmbeddingDim),
		"cache.size":           int64(c.Cache.Size),
	} {
		if n < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, n)
		}
	}
	if c.Tools.Timeout <= 0 || c.Tools.CodeQLTimeout <= 0 {
		return fmt.Errorf("tool timeouts must be positive")
	}

	for _, p := range c.Walk.Exclude {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("walk exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

// DisabledTools lists the external tools switched off individually.
func (c *Config) DisabledTools() []string {
	tools := []struct {
		name string
		on   bool
	}{
		{"pyright", c.Tools.Pyright},
		{"mypy", c.Tools.Mypy},
		{"bandit", c.Tools.Bandit},
		{"codeql", c.Tools.CodeQL},
	}
	var out []string
	for _, t := range tools {
		if !t.on {
			out = append(out, t.name)
		}
	}
	return out
}

// Marshal renders c as a YAML configuration file.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.indent", d.Output.Indent)

	v.SetDefault("walk.exclude", d.Walk.Exclude)
	v.SetDefault("walk.skip_dirs", d.Walk.SkipDirs)
	v.SetDefault("walk.respect_gitignore", d.Walk.RespectGitignore)
	v.SetDefault("walk.max_file_size", d.Walk.MaxFileSize)

	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.max_nodes", d.Analysis.MaxNodes)
	v.SetDefault("analysis.concrete_syntax", d.Analysis.ConcreteSyntax)
	v.SetDefault("analysis.error_tolerant", d.Analysis.ErrorTolerant)
	v.SetDefault("analysis.call_graph", d.Analysis.CallGraph)
	v.SetDefault("analysis.data_flow", d.Analysis.DataFlow)

	v.SetDefault("tools.enabled", d.Tools.Enabled)
	v.SetDefault("tools.bin_dir", d.Tools.BinDir)
	v.SetDefault("tools.timeout", d.Tools.Timeout)
	v.SetDefault("tools.codeql_timeout", d.Tools.CodeQLTimeout)
	v.SetDefault("tools.pyright", d.Tools.Pyright)
	v.SetDefault("tools.mypy", d.Tools.Mypy)
	v.SetDefault("tools.bandit", d.Tools.Bandit)
	v.SetDefault("tools.codeql", d.Tools.CodeQL)

	v.SetDefault("enrich.summaries", d.Enrich.Summaries)
	v.SetDefault("enrich.embedding_dim", d.Enrich.EmbeddingDim)

	v.SetDefault("cache.size", d.Cache.Size)

	v.SetDefault("logging.format", d.Logging.Format)
}
