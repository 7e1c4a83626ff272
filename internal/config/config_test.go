package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sameAsDefaults(t *testing.T, cfg *Config) {
	t.Helper()
	d := Defaults()
	assert.Equal(t, d.Output, cfg.Output)
	assert.Equal(t, d.Analysis, cfg.Analysis)
	assert.Equal(t, d.Tools, cfg.Tools)
	assert.Equal(t, d.Enrich, cfg.Enrich)
	assert.Equal(t, d.Cache, cfg.Cache)
	assert.Equal(t, d.Logging, cfg.Logging)
	assert.Empty(t, cfg.Walk.Exclude)
	assert.Empty(t, cfg.Walk.SkipDirs)
	assert.Equal(t, d.Walk.MaxFileSize, cfg.Walk.MaxFileSize)
	assert.False(t, cfg.Walk.RespectGitignore)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	sameAsDefaults(t, cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  format: yaml
walk:
  exclude: ["tests/**"]
tools:
  timeout: 30s
  codeql: false
`), 0o644))
	t.Setenv("PYJSONLD_ANALYSIS_WORKERS", "3")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, 2, cfg.Output.Indent)
	assert.Equal(t, []string{"tests/**"}, cfg.Walk.Exclude)
	assert.Equal(t, 30*time.Second, cfg.Tools.Timeout)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.Equal(t, []string{"codeql"}, cfg.DisabledTools())
}

func TestLoadOverride(t *testing.T) {
	t.Parallel()

	v := New()
	v.Set("output.format", "yaml")
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"ok", func(*Config) {}, ""},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "output format"},
		{"logging", func(c *Config) { c.Logging.Format = "pretty" }, "logging format"},
		{"workers", func(c *Config) { c.Analysis.Workers = -1 }, "analysis.workers"},
		{"cache", func(c *Config) { c.Cache.Size = -5 }, "cache.size"},
		{"timeout", func(c *Config) { c.Tools.Timeout = 0 }, "timeouts"},
		{"glob", func(c *Config) { c.Walk.Exclude = []string{"[a-"} }, "exclude pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	d := Defaults()
	data, err := d.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "codeql_timeout: 5m0s")

	path := filepath.Join(t.TempDir(), "written.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	cfg, err := Load(New(), path)
	require.NoError(t, err)
	sameAsDefaults(t, cfg)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "analysis")
}
